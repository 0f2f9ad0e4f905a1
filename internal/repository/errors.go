// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between failure scenarios. For
// example, ErrSlotTaken signals that the unique slot index rejected a
// write, while ErrNotFound indicates the row does not exist.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a row looked up by id does not exist.
var ErrNotFound = errors.New("not found")

// ErrSlotTaken is returned when an insert or update collides with another
// active booking on the uq_bookings_slot index. Callers should translate
// this into a SLOT_ALREADY_BOOKED conflict.
var ErrSlotTaken = errors.New("slot already booked")

// ErrDuplicateReference is returned when a generated booking reference
// collides with an existing one. Callers regenerate and retry.
var ErrDuplicateReference = errors.New("duplicate booking reference")

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// duplicateKey returns the name of the unique index a MySQL 1062 error
// refers to. ok is false for any other error.
func duplicateKey(err error) (key string, ok bool) {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != mysqlDuplicateEntry {
		return "", false
	}
	// message format: Duplicate entry 'x' for key 'bookings.uq_bookings_slot'
	msg := me.Message
	if i := strings.LastIndex(msg, "for key "); i >= 0 {
		key = strings.Trim(msg[i+len("for key "):], "'` ")
		if j := strings.LastIndex(key, "."); j >= 0 {
			key = key[j+1:]
		}
	}
	return key, true
}
