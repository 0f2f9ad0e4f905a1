// Package service implements booking creation with slot conflict checks,
// booking CRUD with ownership rules, and availability reads.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/booking-service/internal/metrics"
	"github.com/iliyamo/booking-service/internal/model"
	"github.com/iliyamo/booking-service/internal/queue"
	"github.com/iliyamo/booking-service/internal/repository"
	"github.com/iliyamo/booking-service/internal/slot"
)

// maxReferenceAttempts bounds regeneration after reference collisions.
const maxReferenceAttempts = 5

// Store is the booking persistence the service needs. Implementations must
// reject a second active booking on the same slot with
// repository.ErrSlotTaken, and a reused reference with
// repository.ErrDuplicateReference.
type Store interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	FindActiveInSlot(ctx context.Context, day time.Time, minute int, excludeID uint64) (*model.Booking, error)
	ListActiveBetween(ctx context.Context, from, to time.Time) ([]model.Booking, error)
	List(ctx context.Context, email string) ([]model.Booking, error)
	Update(ctx context.Context, b *model.Booking) error
	Delete(ctx context.Context, id uint64) error
}

// EventPublisher delivers booking events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// CacheInvalidator drops cached availability responses.
type CacheInvalidator interface {
	Purge(ctx context.Context) error
}

// Options carries the optional collaborators of a Service.
type Options struct {
	Events  EventPublisher
	Cache   CacheInvalidator
	Metrics *metrics.BookingMetrics
	Logger  log.FieldLogger
	Now     func() time.Time
	Rand    io.Reader
}

// BookingService orchestrates the store, the slot calculator and the
// side effects of booking writes.
type BookingService struct {
	store    Store
	calc     *slot.Calculator
	validate *validator.Validate
	events   EventPublisher
	cache    CacheInvalidator
	metrics  *metrics.BookingMetrics
	log      log.FieldLogger
	now      func() time.Time
	rand     io.Reader
}

// NewBookingService wires a BookingService. store and calc are required.
func NewBookingService(store Store, calc *slot.Calculator, opts Options) *BookingService {
	if store == nil || calc == nil {
		panic("service: store and calculator required")
	}
	s := &BookingService{
		store:    store,
		calc:     calc,
		validate: NewValidator(),
		events:   opts.Events,
		cache:    opts.Cache,
		metrics:  opts.Metrics,
		log:      opts.Logger,
		now:      opts.Now,
		rand:     opts.Rand,
	}
	if s.log == nil {
		s.log = log.StandardLogger()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// NewValidator returns a validator that reports fields by their JSON name.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// CreatePublic creates a booking submitted by the anonymous WordPress form.
// Contact details, service, date and time are mandatory and the date and
// time must parse.
func (s *BookingService) CreatePublic(ctx context.Context, in PublicBookingInput) (*model.Booking, error) {
	in.trim()
	verr := s.structErrors(in)
	b := &model.Booking{
		CustomerName:       in.CustomerName,
		CustomerEmail:      strings.ToLower(in.CustomerEmail),
		CustomerPhone:      in.CustomerPhone,
		ServiceName:        in.ServiceName,
		ServiceDetails:     in.ServiceDetails,
		CategoryID:         string(in.CategoryID),
		BookingTime:        in.BookingTime,
		BookingNotes:       in.BookingNotes,
		EmployeeID:         in.EmployeeID.Int(model.DefaultEmployeeID),
		PaymentIntentID:    in.PaymentIntentID,
		PaymentAmountCents: in.PaymentAmountCents,
		Status:             model.StatusPending,
		PaymentStatus:      model.PaymentPending,
		Source:             model.SourceWordPress,
	}
	if in.BookingDate != "" {
		day, err := slot.ParseDate(in.BookingDate, s.calc.Location)
		if err != nil {
			verr.add("booking_date")
		} else {
			b.BookingDate = &day
		}
	}
	if b.BookingTime != "" {
		clk, err := slot.ParseClock(b.BookingTime)
		if err != nil {
			verr.add("booking_time")
		} else {
			m := int(clk)
			b.SlotMinute = &m
		}
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return s.create(ctx, b)
}

// CreateAdmin creates a booking for an authenticated caller. Only name and
// email are required; a missing or unparseable date leaves the booking
// undated, and an unparseable time leaves it without a slot.
func (s *BookingService) CreateAdmin(ctx context.Context, in AdminBookingInput, req model.Requester) (*model.Booking, error) {
	in.trim()
	if err := s.structErrors(in).orNil(); err != nil {
		return nil, err
	}
	b := &model.Booking{
		CustomerName:       in.CustomerName,
		CustomerEmail:      strings.ToLower(in.CustomerEmail),
		CustomerPhone:      in.CustomerPhone,
		ServiceName:        in.ServiceName,
		ServiceDetails:     in.ServiceDetails,
		CategoryID:         string(in.CategoryID),
		BookingTime:        in.BookingTime,
		BookingNotes:       in.BookingNotes,
		EmployeeID:         in.EmployeeID.Int(model.DefaultEmployeeID),
		PaymentIntentID:    in.PaymentIntentID,
		PaymentAmountCents: in.PaymentAmountCents,
		Status:             model.StatusPending,
		PaymentStatus:      model.PaymentPending,
		Source:             model.SourceAdminPanel,
	}
	if in.Status != "" {
		b.Status = in.Status
	}
	if in.PaymentStatus != "" {
		b.PaymentStatus = in.PaymentStatus
	}
	if in.Source != "" {
		b.Source = in.Source
	}
	if day, err := slot.ParseDate(in.BookingDate, s.calc.Location); err == nil {
		b.BookingDate = &day
	} else if in.BookingDate != "" {
		s.log.WithField("booking_date", in.BookingDate).Debug("admin booking created without unparseable date")
	}
	if clk, err := slot.ParseClock(b.BookingTime); err == nil {
		m := int(clk)
		b.SlotMinute = &m
	}
	s.log.WithFields(log.Fields{"requester": req.UserID, "role": req.Role}).Debug("admin booking create")
	return s.create(ctx, b)
}

// create runs the conflict guard and inserts b. The read before the insert
// only gives early feedback; the store's unique slot index decides.
func (s *BookingService) create(ctx context.Context, b *model.Booking) (*model.Booking, error) {
	if b.PaymentIntentID != "" && b.Status == model.StatusPending {
		b.Status = model.StatusConfirmed
		b.PaymentStatus = model.PaymentPaid
	}

	if key := b.SlotKey(); key != nil {
		existing, err := s.store.FindActiveInSlot(ctx, *b.BookingDate, *b.SlotMinute, 0)
		if err != nil {
			return nil, fmt.Errorf("check slot: %w", err)
		}
		if existing != nil {
			s.metrics.ObserveConflict("precheck")
			return nil, &ConflictError{Kind: SlotAlreadyBooked, Slot: *key}
		}
	}

	now := s.now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now

	var lastErr error
	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		ref, err := NewReference(s.rand)
		if err != nil {
			return nil, fmt.Errorf("generate reference: %w", err)
		}
		b.BookingReference = ref
		err = s.store.Create(ctx, b)
		switch {
		case err == nil:
			s.metrics.ObserveCreated(b.Source, slot.IsExempt(b.CategoryID))
			s.log.WithFields(log.Fields{
				"booking_id": b.ID,
				"reference":  b.BookingReference,
				"category":   b.CategoryID,
				"source":     b.Source,
			}).Info("booking created")
			s.afterWrite(ctx, queue.EventBookingCreated, b)
			return b, nil
		case errors.Is(err, repository.ErrDuplicateReference):
			lastErr = err
			continue
		case errors.Is(err, repository.ErrSlotTaken):
			s.metrics.ObserveConflict("constraint")
			return nil, &ConflictError{Kind: SlotAlreadyBooked, Slot: derefOr(b.SlotKey(), "")}
		default:
			return nil, fmt.Errorf("create booking: %w", err)
		}
	}
	return nil, fmt.Errorf("create booking: %w", lastErr)
}

// Get returns a booking visible to req.
func (s *BookingService) Get(ctx context.Context, id uint64, req model.Requester) (*model.Booking, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(b, req) {
		return nil, ErrPermission
	}
	return b, nil
}

// List returns every booking for admins and the requester's own bookings
// for everyone else.
func (s *BookingService) List(ctx context.Context, req model.Requester) ([]model.Booking, error) {
	email := ""
	if !req.IsAdmin() {
		email = strings.ToLower(strings.TrimSpace(req.Email))
		if email == "" {
			return nil, ErrPermission
		}
	}
	out, err := s.store.List(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return out, nil
}

// Update applies patch to booking id on behalf of req.
func (s *BookingService) Update(ctx context.Context, id uint64, patch BookingPatch, req model.Requester) (*model.Booking, error) {
	verr := s.structErrors(patch)
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(current, req) {
		return nil, ErrPermission
	}

	next := *current
	if patch.CustomerName != nil {
		next.CustomerName = strings.TrimSpace(*patch.CustomerName)
		if next.CustomerName == "" {
			verr.add("customer_name")
		}
	}
	if patch.CustomerEmail != nil {
		next.CustomerEmail = strings.ToLower(strings.TrimSpace(*patch.CustomerEmail))
		if s.validate.Var(next.CustomerEmail, "required,email") != nil {
			verr.add("customer_email")
		}
	}
	if patch.CustomerPhone != nil {
		next.CustomerPhone = strings.TrimSpace(*patch.CustomerPhone)
	}
	if patch.ServiceName != nil {
		next.ServiceName = strings.TrimSpace(*patch.ServiceName)
	}
	if patch.ServiceDetails != nil {
		next.ServiceDetails = strings.TrimSpace(*patch.ServiceDetails)
	}
	if patch.CategoryID != nil {
		next.CategoryID = string(*patch.CategoryID)
	}
	if patch.BookingDate != nil {
		if strings.TrimSpace(*patch.BookingDate) == "" {
			next.BookingDate = nil
		} else if day, err := slot.ParseDate(*patch.BookingDate, s.calc.Location); err != nil {
			verr.add("booking_date")
		} else {
			next.BookingDate = &day
		}
	}
	if patch.BookingTime != nil {
		next.BookingTime = strings.TrimSpace(*patch.BookingTime)
		next.SlotMinute = nil
		if next.BookingTime != "" {
			if clk, err := slot.ParseClock(next.BookingTime); err != nil {
				verr.add("booking_time")
			} else {
				m := int(clk)
				next.SlotMinute = &m
			}
		}
	}
	if patch.BookingNotes != nil {
		next.BookingNotes = strings.TrimSpace(*patch.BookingNotes)
	}
	if patch.EmployeeID != nil {
		next.EmployeeID = patch.EmployeeID.Int(current.EmployeeID)
	}
	if patch.PaymentIntentID != nil {
		next.PaymentIntentID = strings.TrimSpace(*patch.PaymentIntentID)
	}
	if patch.PaymentAmountCents != nil {
		next.PaymentAmountCents = *patch.PaymentAmountCents
	}
	if patch.PaymentStatus != nil {
		next.PaymentStatus = *patch.PaymentStatus
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	if patch.Status != nil {
		if !model.CanTransition(current.Status, *patch.Status) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, *patch.Status)
		}
		next.Status = *patch.Status
	} else if next.PaymentStatus == model.PaymentPaid && current.PaymentStatus != model.PaymentPaid && next.Status == model.StatusPending {
		next.Status = model.StatusConfirmed
	}
	if key := next.SlotKey(); key != nil && !sameSlotKey(key, current.SlotKey()) {
		existing, err := s.store.FindActiveInSlot(ctx, *next.BookingDate, *next.SlotMinute, id)
		if err != nil {
			return nil, fmt.Errorf("check slot: %w", err)
		}
		if existing != nil {
			s.metrics.ObserveConflict("precheck")
			return nil, &ConflictError{Kind: SlotAlreadyBooked, Slot: *key}
		}
	}

	next.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, &next); err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotTaken):
			s.metrics.ObserveConflict("constraint")
			return nil, &ConflictError{Kind: SlotAlreadyBooked, Slot: derefOr(next.SlotKey(), "")}
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update booking: %w", err)
	}
	s.log.WithFields(log.Fields{"booking_id": next.ID, "status": next.Status}).Info("booking updated")
	s.afterWrite(ctx, queue.EventBookingUpdated, &next)
	return &next, nil
}

// Delete removes booking id on behalf of req.
func (s *BookingService) Delete(ctx context.Context, id uint64, req model.Requester) error {
	b, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !canAccess(b, req) {
		return ErrPermission
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete booking: %w", err)
	}
	s.log.WithField("booking_id", id).Info("booking deleted")
	s.purgeCache(ctx)
	return nil
}

// Availability returns free slots for the window starting at date. An
// empty or unparseable date means today. Storage errors propagate rather
// than reporting an empty (or full) calendar.
func (s *BookingService) Availability(ctx context.Context, date, category string) (slot.Week, error) {
	var ref time.Time
	if d, err := slot.ParseDate(date, s.calc.Location); err == nil {
		ref = d
	}
	from, to := s.calc.Window(ref)
	bookings, err := s.store.ListActiveBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}
	occupants := make([]slot.Occupant, 0, len(bookings))
	for i := range bookings {
		occupants = append(occupants, bookings[i].Occupant())
	}
	s.metrics.ObserveAvailability("timeslots")
	return s.calc.Compute(from, strings.TrimSpace(category), occupants), nil
}

// CheckAvailability reports whether a single slot is free. The exempt
// category is always available.
func (s *BookingService) CheckAvailability(ctx context.Context, date, clock, category string) (bool, error) {
	verr := &ValidationError{}
	if strings.TrimSpace(date) == "" {
		verr.add("date")
	}
	if strings.TrimSpace(clock) == "" {
		verr.add("time")
	}
	if err := verr.orNil(); err != nil {
		return false, err
	}
	s.metrics.ObserveAvailability("check")
	if slot.IsExempt(category) {
		return true, nil
	}
	day, err := slot.ParseDate(date, s.calc.Location)
	if err != nil {
		verr.add("date")
	}
	clk, err := slot.ParseClock(clock)
	if err != nil {
		verr.add("time")
	}
	if err := verr.orNil(); err != nil {
		return false, err
	}
	existing, err := s.store.FindActiveInSlot(ctx, day, int(clk), 0)
	if err != nil {
		return false, fmt.Errorf("check slot: %w", err)
	}
	return existing == nil, nil
}

func (s *BookingService) load(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	return b, nil
}

func (s *BookingService) afterWrite(ctx context.Context, eventType string, b *model.Booking) {
	s.purgeCache(ctx)
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, queue.NewBookingEvent(eventType, b)); err != nil {
		s.log.WithError(err).WithField("booking_id", b.ID).Warn("booking event not published")
	}
}

func (s *BookingService) purgeCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Purge(ctx); err != nil {
		s.log.WithError(err).Warn("availability cache not purged")
	}
}

// structErrors runs tag validation and collects failing JSON field names.
func (s *BookingService) structErrors(v any) *ValidationError {
	verr := &ValidationError{}
	err := s.validate.Struct(v)
	if err == nil {
		return verr
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			verr.add(fe.Field())
		}
		return verr
	}
	verr.add("body")
	return verr
}

func canAccess(b *model.Booking, req model.Requester) bool {
	if req.IsAdmin() {
		return true
	}
	return req.Email != "" && strings.EqualFold(strings.TrimSpace(req.Email), b.CustomerEmail)
}

func sameSlotKey(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func derefOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
