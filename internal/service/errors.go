package service

import (
	"errors"
	"fmt"
	"strings"
)

// ConflictKind names the reason a write was rejected as a conflict.
type ConflictKind string

const (
	// SlotAlreadyBooked means another active booking holds the slot.
	SlotAlreadyBooked ConflictKind = "SLOT_ALREADY_BOOKED"
)

// ErrNotFound is returned when the booking id does not exist.
var ErrNotFound = errors.New("booking not found")

// ErrPermission is returned when a requester is neither the booking's
// customer nor an admin.
var ErrPermission = errors.New("permission denied")

// ErrInvalidTransition is returned when a status update would leave the
// booking state machine (for example, reopening a cancelled booking).
var ErrInvalidTransition = errors.New("invalid status transition")

// ValidationError lists the request fields that are missing or malformed.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid fields: %s", strings.Join(e.Fields, ", "))
}

func (e *ValidationError) add(field string) {
	for _, f := range e.Fields {
		if f == field {
			return
		}
	}
	e.Fields = append(e.Fields, field)
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// ConflictError reports that the requested slot is taken.
type ConflictError struct {
	Kind ConflictKind
	Slot string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Slot)
}

// IsConflict reports whether err is a slot conflict.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
