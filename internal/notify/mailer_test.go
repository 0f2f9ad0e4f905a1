package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "gopkg.in/gomail.v2"

	"github.com/iliyamo/booking-service/internal/config"
	"github.com/iliyamo/booking-service/internal/queue"
)

func sampleEvent() queue.BookingEvent {
	return queue.BookingEvent{
		Type:             queue.EventBookingCreated,
		BookingReference: "QWE-482",
		CustomerName:     "Ana <Ruiz>",
		CustomerEmail:    "ana@example.com",
		ServiceName:      "Airport transfer",
		BookingDate:      "2025-06-10",
		BookingTime:      "3:00 PM",
		Status:           "pending",
	}
}

func TestMessage_RendersEvent(t *testing.T) {
	m := NewMailer(config.MailConfig{From: "bookings@example.com", AdminTo: "ops@example.com"})

	msg, err := m.Message(sampleEvent())
	require.NoError(t, err)
	assert.Equal(t, []string{"ana@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"ops@example.com"}, msg.GetHeader("Bcc"))
	assert.Equal(t, []string{"Booking QWE-482 received"}, msg.GetHeader("Subject"))

	var raw bytes.Buffer
	_, err = msg.WriteTo(&raw)
	require.NoError(t, err)
	assert.Contains(t, raw.String(), "Airport transfer")
	assert.NotContains(t, raw.String(), "Ana <Ruiz>", "customer input is escaped")
}

func TestNotify_UsesSender(t *testing.T) {
	var sent []*gomail.Message
	m := &Mailer{cfg: config.MailConfig{From: "bookings@example.com"}, send: func(msg *gomail.Message) error {
		sent = append(sent, msg)
		return nil
	}}

	ev := sampleEvent()
	ev.Type = queue.EventBookingUpdated
	require.NoError(t, m.Notify(context.Background(), ev))
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"Booking QWE-482 updated"}, sent[0].GetHeader("Subject"))

	m.send = func(*gomail.Message) error { return errors.New("smtp down") }
	assert.ErrorContains(t, m.Notify(context.Background(), ev), "smtp down")
}

func TestNotify_WithoutSMTPOnlyLogs(t *testing.T) {
	m := NewMailer(config.MailConfig{})
	assert.NoError(t, m.Notify(context.Background(), sampleEvent()))

	ev := sampleEvent()
	ev.CustomerEmail = ""
	assert.NoError(t, m.Notify(context.Background(), ev))
}
