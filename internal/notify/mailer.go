// Package notify sends booking confirmation e-mails.
package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"

	log "github.com/sirupsen/logrus"
	gomail "gopkg.in/gomail.v2"

	"github.com/iliyamo/booking-service/internal/config"
	"github.com/iliyamo/booking-service/internal/queue"
)

var bookingTemplate = template.Must(template.New("booking").Parse(`<p>Hello {{.CustomerName}},</p>
{{if eq .Type "booking.created"}}<p>We received your booking request.</p>{{else}}<p>Your booking has been updated.</p>{{end}}
<table>
<tr><td>Reference</td><td>{{.BookingReference}}</td></tr>
<tr><td>Service</td><td>{{.ServiceName}}</td></tr>
{{if .ServiceDetails}}<tr><td>Details</td><td>{{.ServiceDetails}}</td></tr>{{end}}
<tr><td>Date</td><td>{{if .BookingDate}}{{.BookingDate}}{{else}}to be arranged{{end}}</td></tr>
<tr><td>Time</td><td>{{.BookingTime}}</td></tr>
<tr><td>Status</td><td>{{.Status}}</td></tr>
</table>`))

// Mailer renders booking events to HTML mail and sends them over SMTP.
// With no SMTP host configured it only logs the message.
type Mailer struct {
	cfg  config.MailConfig
	send func(*gomail.Message) error
}

// NewMailer returns a Mailer for cfg.
func NewMailer(cfg config.MailConfig) *Mailer {
	m := &Mailer{cfg: cfg}
	if cfg.Host != "" {
		d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
		d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
		m.send = func(msg *gomail.Message) error { return d.DialAndSend(msg) }
	}
	return m
}

// Notify implements queue.Notifier.
func (m *Mailer) Notify(_ context.Context, ev queue.BookingEvent) error {
	if ev.CustomerEmail == "" {
		return nil
	}
	msg, err := m.Message(ev)
	if err != nil {
		return err
	}
	entry := log.WithFields(log.Fields{
		"reference": ev.BookingReference,
		"to":        ev.CustomerEmail,
		"event":     ev.Type,
	})
	if m.send == nil {
		entry.Info("mail: smtp not configured, notification logged only")
		return nil
	}
	if err := m.send(msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	entry.Info("mail: notification sent")
	return nil
}

// Message builds the e-mail for ev.
func (m *Mailer) Message(ev queue.BookingEvent) (*gomail.Message, error) {
	var body bytes.Buffer
	if err := bookingTemplate.Execute(&body, ev); err != nil {
		return nil, fmt.Errorf("render mail: %w", err)
	}
	subject := fmt.Sprintf("Booking %s received", ev.BookingReference)
	if ev.Type == queue.EventBookingUpdated {
		subject = fmt.Sprintf("Booking %s updated", ev.BookingReference)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", ev.CustomerEmail)
	if m.cfg.AdminTo != "" {
		msg.SetHeader("Bcc", m.cfg.AdminTo)
	}
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body.String())
	return msg, nil
}
