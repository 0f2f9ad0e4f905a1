package service

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexString accepts a JSON string, number or null. The WordPress form
// posts category ids as strings while the admin panel sends numbers.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// Int parses f as an integer, returning def when empty or malformed.
func (f FlexString) Int(def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(string(f)))
	if err != nil {
		return def
	}
	return n
}

// PublicBookingInput is the strict schema accepted from the anonymous
// WordPress form.
type PublicBookingInput struct {
	CustomerName       string     `json:"customer_name" validate:"required"`
	CustomerEmail      string     `json:"customer_email" validate:"required,email"`
	CustomerPhone      string     `json:"customer_phone" validate:"required"`
	ServiceName        string     `json:"service_name" validate:"required"`
	ServiceDetails     string     `json:"service_details"`
	CategoryID         FlexString `json:"category_id"`
	BookingDate        string     `json:"booking_date" validate:"required"`
	BookingTime        string     `json:"booking_time" validate:"required"`
	BookingNotes       string     `json:"booking_notes" validate:"max=4000"`
	EmployeeID         FlexString `json:"employee_id"`
	PaymentIntentID    string     `json:"payment_intent_id"`
	PaymentAmountCents int64      `json:"payment_amount_cents" validate:"gte=0"`
}

// AdminBookingInput is the lenient schema used by authenticated callers.
// Only name and email are required; an unusable date is dropped.
type AdminBookingInput struct {
	CustomerName       string     `json:"customer_name" validate:"required"`
	CustomerEmail      string     `json:"customer_email" validate:"required,email"`
	CustomerPhone      string     `json:"customer_phone"`
	ServiceName        string     `json:"service_name"`
	ServiceDetails     string     `json:"service_details"`
	CategoryID         FlexString `json:"category_id"`
	BookingDate        string     `json:"booking_date"`
	BookingTime        string     `json:"booking_time"`
	BookingNotes       string     `json:"booking_notes"`
	EmployeeID         FlexString `json:"employee_id"`
	Status             string     `json:"status" validate:"omitempty,oneof=pending confirmed cancelled"`
	PaymentStatus      string     `json:"payment_status" validate:"omitempty,oneof=pending processing paid failed refunded"`
	PaymentIntentID    string     `json:"payment_intent_id"`
	PaymentAmountCents int64      `json:"payment_amount_cents" validate:"gte=0"`
	Source             string     `json:"source"`
}

// BookingPatch carries the fields an update may change. id,
// booking_reference and created_at are not representable, so a client
// cannot overwrite them.
type BookingPatch struct {
	CustomerName       *string     `json:"customer_name"`
	CustomerEmail      *string     `json:"customer_email"`
	CustomerPhone      *string     `json:"customer_phone"`
	ServiceName        *string     `json:"service_name"`
	ServiceDetails     *string     `json:"service_details"`
	CategoryID         *FlexString `json:"category_id"`
	BookingDate        *string     `json:"booking_date"`
	BookingTime        *string     `json:"booking_time"`
	BookingNotes       *string     `json:"booking_notes"`
	EmployeeID         *FlexString `json:"employee_id"`
	Status             *string     `json:"status" validate:"omitempty,oneof=pending confirmed cancelled"`
	PaymentStatus      *string     `json:"payment_status" validate:"omitempty,oneof=pending processing paid failed refunded"`
	PaymentIntentID    *string     `json:"payment_intent_id"`
	PaymentAmountCents *int64      `json:"payment_amount_cents" validate:"omitempty,gte=0"`
}

// trim strips surrounding whitespace so "required" rejects blank values.
func (in *PublicBookingInput) trim() {
	for _, p := range []*string{
		&in.CustomerName, &in.CustomerEmail, &in.CustomerPhone, &in.ServiceName,
		&in.ServiceDetails, &in.BookingDate, &in.BookingTime, &in.BookingNotes, &in.PaymentIntentID,
	} {
		*p = strings.TrimSpace(*p)
	}
}

func (in *AdminBookingInput) trim() {
	for _, p := range []*string{
		&in.CustomerName, &in.CustomerEmail, &in.CustomerPhone, &in.ServiceName,
		&in.ServiceDetails, &in.BookingDate, &in.BookingTime, &in.BookingNotes,
		&in.Status, &in.PaymentStatus, &in.PaymentIntentID, &in.Source,
	} {
		*p = strings.TrimSpace(*p)
	}
}
