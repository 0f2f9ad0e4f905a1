package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/booking-service/internal/config"
	"github.com/iliyamo/booking-service/internal/model"
)

type notifierFunc func(ctx context.Context, ev BookingEvent) error

func (f notifierFunc) Notify(ctx context.Context, ev BookingEvent) error { return f(ctx, ev) }

func TestNewBookingEvent(t *testing.T) {
	day := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	b := &model.Booking{
		ID:               42,
		BookingReference: "QWE-482",
		CustomerEmail:    "ana@example.com",
		CategoryID:       "1",
		BookingDate:      &day,
		BookingTime:      "3:00 PM",
		Status:           model.StatusPending,
	}

	ev := NewBookingEvent(EventBookingCreated, b)
	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, "2025-06-10", ev.BookingDate)
	assert.EqualValues(t, 42, ev.BookingID)

	b.BookingDate = nil
	assert.Empty(t, NewBookingEvent(EventBookingUpdated, b).BookingDate)
	assert.NotEqual(t, ev.EventID, NewBookingEvent(EventBookingCreated, b).EventID)
}

func TestConsumerHandle(t *testing.T) {
	var got []BookingEvent
	c := NewConsumer(config.BrokerConfig{}, notifierFunc(func(_ context.Context, ev BookingEvent) error {
		got = append(got, ev)
		return nil
	}))

	body, err := json.Marshal(BookingEvent{EventID: "e1", Type: EventBookingCreated, BookingReference: "QWE-482"})
	require.NoError(t, err)
	require.NoError(t, c.Handle(context.Background(), body))
	require.Len(t, got, 1)
	assert.Equal(t, "QWE-482", got[0].BookingReference)

	assert.Error(t, c.Handle(context.Background(), []byte("{not json")))
	assert.Error(t, c.Handle(context.Background(), []byte(`{"type":"booking.created"}`)))
	assert.Len(t, got, 1)
}

func TestConsumerHandle_PropagatesNotifierError(t *testing.T) {
	c := NewConsumer(config.BrokerConfig{}, notifierFunc(func(context.Context, BookingEvent) error {
		return errors.New("smtp down")
	}))
	body := []byte(`{"type":"booking.updated","booking_reference":"ABC-123"}`)
	assert.ErrorContains(t, c.Handle(context.Background(), body), "smtp down")
}

func TestPublisher_ReportsDialFailure(t *testing.T) {
	p := NewPublisher(config.BrokerConfig{URL: "amqp://127.0.0.1:1/", Exchange: "booking.events"})
	err := p.Publish(context.Background(), BookingEvent{Type: EventBookingCreated})
	assert.ErrorContains(t, err, "rabbitmq dial")
	assert.NoError(t, p.Close())
}
