package model

import (
	"time"

	"github.com/iliyamo/booking-service/internal/slot"
)

// Booking status values.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// Payment status values.
const (
	PaymentPending    = "pending"
	PaymentProcessing = "processing"
	PaymentPaid       = "paid"
	PaymentFailed     = "failed"
	PaymentRefunded   = "refunded"
)

// Booking sources.
const (
	SourceWordPress  = "wordpress"
	SourceAdminPanel = "admin_panel"
)

// DefaultEmployeeID is assigned when a request names no staff member.
const DefaultEmployeeID = 1

// Booking is a customer's request for a service at a date and time.
//
// Fields:
//
//	ID              : bookings.id, assigned by the store.
//	BookingReference: human code (ABC-123), set once at creation.
//	BookingDate     : calendar day of the appointment (nil when the admin
//	                  panel created it without one).
//	BookingTime     : time as submitted: 12h for pickups, 24h otherwise.
//	SlotMinute      : canonical minutes since midnight for BookingTime.
//	Status          : pending, confirmed or cancelled.
//	PaymentStatus   : pending, processing, paid, failed or refunded.
type Booking struct {
	ID                 uint64     `json:"id"`
	BookingReference   string     `json:"booking_reference"`
	CustomerName       string     `json:"customer_name"`
	CustomerEmail      string     `json:"customer_email"`
	CustomerPhone      string     `json:"customer_phone"`
	ServiceName        string     `json:"service_name"`
	ServiceDetails     string     `json:"service_details"`
	CategoryID         string     `json:"category_id"`
	BookingDate        *time.Time `json:"booking_date"`
	BookingTime        string     `json:"booking_time"`
	SlotMinute         *int       `json:"-"`
	Status             string     `json:"status"`
	PaymentStatus      string     `json:"payment_status"`
	PaymentIntentID    string     `json:"payment_intent_id,omitempty"`
	PaymentAmountCents int64      `json:"payment_amount_cents,omitempty"`
	EmployeeID         int        `json:"employee_id"`
	BookingNotes       string     `json:"booking_notes"`
	Source             string     `json:"source"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Active reports whether the booking still counts for conflict checks.
func (b *Booking) Active() bool { return b.Status != StatusCancelled }

// SlotKey returns the unique slot identity the store indexes, or nil when
// the booking does not occupy a slot (cancelled, exempt, or undated).
func (b *Booking) SlotKey() *string {
	if !b.Active() || slot.IsExempt(b.CategoryID) || b.BookingDate == nil || b.SlotMinute == nil {
		return nil
	}
	k := slot.Key(*b.BookingDate, slot.Clock(*b.SlotMinute))
	return &k
}

// Occupant converts b into the calculator's view.
func (b *Booking) Occupant() slot.Occupant {
	o := slot.Occupant{
		Time:      b.BookingTime,
		Minute:    b.SlotMinute,
		Category:  b.CategoryID,
		Cancelled: !b.Active(),
	}
	if b.BookingDate != nil {
		o.Date = *b.BookingDate
	}
	return o
}

// CanTransition reports whether status may move from one value to another.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCancelled
	}
	return false
}

// ValidStatus reports whether s is a known booking status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// ValidPaymentStatus reports whether s is a known payment status.
func ValidPaymentStatus(s string) bool {
	switch s {
	case PaymentPending, PaymentProcessing, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}
