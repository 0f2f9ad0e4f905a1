package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/booking-service/internal/model"
	"github.com/iliyamo/booking-service/internal/slot"
)

// BookingSchema creates the bookings table. slot_key is NULL for bookings
// that do not occupy a slot (cancelled, pickup category, or undated), so
// the unique index only constrains active, conflict-checked bookings.
const BookingSchema = `CREATE TABLE IF NOT EXISTS bookings (
    id                   BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
    booking_reference    VARCHAR(16)  NOT NULL,
    customer_name        VARCHAR(255) NOT NULL,
    customer_email       VARCHAR(255) NOT NULL,
    customer_phone       VARCHAR(64)  NOT NULL DEFAULT '',
    service_name         VARCHAR(255) NOT NULL DEFAULT '',
    service_details      VARCHAR(1024) NOT NULL DEFAULT '',
    category_id          VARCHAR(32)  NOT NULL DEFAULT '',
    booking_date         DATE NULL,
    booking_time         VARCHAR(16)  NOT NULL DEFAULT '',
    slot_minute          SMALLINT NULL,
    slot_key             VARCHAR(32)  NULL,
    status               ENUM('pending','confirmed','cancelled') NOT NULL DEFAULT 'pending',
    payment_status       ENUM('pending','processing','paid','failed','refunded') NOT NULL DEFAULT 'pending',
    payment_intent_id    VARCHAR(255) NOT NULL DEFAULT '',
    payment_amount_cents BIGINT NOT NULL DEFAULT 0,
    employee_id          INT NOT NULL DEFAULT 1,
    booking_notes        TEXT NULL,
    source               VARCHAR(32)  NOT NULL DEFAULT '',
    created_at           DATETIME NOT NULL,
    updated_at           DATETIME NOT NULL,
    UNIQUE KEY uq_bookings_reference (booking_reference),
    UNIQUE KEY uq_bookings_slot (slot_key),
    KEY idx_bookings_date (booking_date, slot_minute),
    KEY idx_bookings_email (customer_email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const bookingColumns = `id, booking_reference, customer_name, customer_email, customer_phone,
    service_name, service_details, category_id, booking_date, booking_time, slot_minute,
    status, payment_status, payment_intent_id, payment_amount_cents, employee_id,
    booking_notes, source, created_at, updated_at`

// BookingRepo provides persistence for bookings. All timestamps are
// stored in UTC; booking_date is a plain calendar date.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// Create inserts b and populates its ID. A collision on the slot index
// returns ErrSlotTaken; on the reference index ErrDuplicateReference.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (booking_reference, customer_name, customer_email, customer_phone,
        service_name, service_details, category_id, booking_date, booking_time, slot_minute, slot_key,
        status, payment_status, payment_intent_id, payment_amount_cents, employee_id,
        booking_notes, source, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		b.BookingReference, b.CustomerName, b.CustomerEmail, b.CustomerPhone,
		b.ServiceName, b.ServiceDetails, b.CategoryID, dateArg(b.BookingDate), b.BookingTime,
		intArg(b.SlotMinute), strArg(b.SlotKey()),
		b.Status, b.PaymentStatus, b.PaymentIntentID, b.PaymentAmountCents, b.EmployeeID,
		b.BookingNotes, b.Source, b.CreatedAt.UTC(), b.UpdatedAt.UTC(),
	)
	if err != nil {
		return translateWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// GetByID loads a single booking. It returns ErrNotFound when absent.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ? LIMIT 1`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// FindActiveInSlot returns an active, conflict-checked booking on day at
// minute, ignoring excludeID. It returns nil when the slot is free.
func (r *BookingRepo) FindActiveInSlot(ctx context.Context, day time.Time, minute int, excludeID uint64) (*model.Booking, error) {
	from := slot.Day(day, time.UTC)
	to := from.AddDate(0, 0, 1)
	const q = `SELECT ` + bookingColumns + ` FROM bookings
        WHERE booking_date >= ? AND booking_date < ? AND slot_minute = ?
          AND status <> 'cancelled' AND category_id <> ? AND id <> ?
        LIMIT 1`
	row := r.db.QueryRowContext(ctx, q, from.Format("2006-01-02"), to.Format("2006-01-02"), minute, slot.ExemptCategory, excludeID)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListActiveBetween returns non-cancelled bookings dated in [from, to).
func (r *BookingRepo) ListActiveBetween(ctx context.Context, from, to time.Time) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings
        WHERE booking_date >= ? AND booking_date < ? AND status <> 'cancelled'
        ORDER BY booking_date, slot_minute`
	rows, err := r.db.QueryContext(ctx, q, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// List returns bookings newest first. A non-empty email restricts the
// result to that customer's bookings.
func (r *BookingRepo) List(ctx context.Context, email string) ([]model.Booking, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if email == "" {
		rows, err = r.db.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC`)
	} else {
		rows, err = r.db.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE customer_email = ? ORDER BY created_at DESC`, email)
	}
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// Update writes every mutable column of b. booking_reference and
// created_at are never touched.
func (r *BookingRepo) Update(ctx context.Context, b *model.Booking) error {
	const q = `UPDATE bookings SET customer_name = ?, customer_email = ?, customer_phone = ?,
        service_name = ?, service_details = ?, category_id = ?, booking_date = ?, booking_time = ?,
        slot_minute = ?, slot_key = ?, status = ?, payment_status = ?, payment_intent_id = ?,
        payment_amount_cents = ?, employee_id = ?, booking_notes = ?, source = ?, updated_at = ?
        WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q,
		b.CustomerName, b.CustomerEmail, b.CustomerPhone,
		b.ServiceName, b.ServiceDetails, b.CategoryID, dateArg(b.BookingDate), b.BookingTime,
		intArg(b.SlotMinute), strArg(b.SlotKey()), b.Status, b.PaymentStatus, b.PaymentIntentID,
		b.PaymentAmountCents, b.EmployeeID, b.BookingNotes, b.Source, b.UpdatedAt.UTC(),
		b.ID,
	)
	if err != nil {
		return translateWriteErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete physically removes a booking.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func translateWriteErr(err error) error {
	key, ok := duplicateKey(err)
	if !ok {
		return err
	}
	switch key {
	case "uq_bookings_slot":
		return ErrSlotTaken
	case "uq_bookings_reference":
		return ErrDuplicateReference
	}
	return fmt.Errorf("duplicate entry on %s: %w", key, err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(s rowScanner) (*model.Booking, error) {
	var (
		b      model.Booking
		date   sql.NullTime
		minute sql.NullInt64
		notes  sql.NullString
	)
	err := s.Scan(&b.ID, &b.BookingReference, &b.CustomerName, &b.CustomerEmail, &b.CustomerPhone,
		&b.ServiceName, &b.ServiceDetails, &b.CategoryID, &date, &b.BookingTime, &minute,
		&b.Status, &b.PaymentStatus, &b.PaymentIntentID, &b.PaymentAmountCents, &b.EmployeeID,
		&notes, &b.Source, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if date.Valid {
		d := slot.Day(date.Time, time.UTC)
		b.BookingDate = &d
	}
	if minute.Valid {
		m := int(minute.Int64)
		b.SlotMinute = &m
	}
	b.BookingNotes = notes.String
	return &b, nil
}

func collectBookings(rows *sql.Rows) ([]model.Booking, error) {
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func dateArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}

func intArg(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func strArg(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
