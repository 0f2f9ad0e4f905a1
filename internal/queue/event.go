// Package queue defines booking events exchanged over RabbitMQ, the
// publisher used by the booking service and the notification consumer.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/booking-service/internal/model"
)

// Event types, also used as routing keys on the booking exchange.
const (
	EventBookingCreated = "booking.created"
	EventBookingUpdated = "booking.updated"
)

// BookingEvent is published after a booking is written. It carries enough
// of the record for downstream consumers to notify the customer without
// querying the primary database.
type BookingEvent struct {
	EventID          string    `json:"event_id"`
	Type             string    `json:"type"`
	BookingID        uint64    `json:"booking_id"`
	BookingReference string    `json:"booking_reference"`
	CustomerName     string    `json:"customer_name"`
	CustomerEmail    string    `json:"customer_email"`
	ServiceName      string    `json:"service_name"`
	ServiceDetails   string    `json:"service_details"`
	CategoryID       string    `json:"category_id"`
	BookingDate      string    `json:"booking_date"`
	BookingTime      string    `json:"booking_time"`
	Status           string    `json:"status"`
	PaymentStatus    string    `json:"payment_status"`
	Source           string    `json:"source"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// NewBookingEvent builds an event of the given type from b.
func NewBookingEvent(eventType string, b *model.Booking) BookingEvent {
	ev := BookingEvent{
		EventID:          uuid.NewString(),
		Type:             eventType,
		BookingID:        b.ID,
		BookingReference: b.BookingReference,
		CustomerName:     b.CustomerName,
		CustomerEmail:    b.CustomerEmail,
		ServiceName:      b.ServiceName,
		ServiceDetails:   b.ServiceDetails,
		CategoryID:       b.CategoryID,
		BookingTime:      b.BookingTime,
		Status:           b.Status,
		PaymentStatus:    b.PaymentStatus,
		Source:           b.Source,
		OccurredAt:       time.Now().UTC(),
	}
	if b.BookingDate != nil {
		ev.BookingDate = b.BookingDate.Format("2006-01-02")
	}
	return ev
}
