package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/booking-service/internal/middleware"
	"github.com/iliyamo/booking-service/internal/model"
	"github.com/iliyamo/booking-service/internal/service"
	"github.com/iliyamo/booking-service/internal/slot"
)

// BookingService is the booking API the handlers drive.
type BookingService interface {
	CreatePublic(ctx context.Context, in service.PublicBookingInput) (*model.Booking, error)
	CreateAdmin(ctx context.Context, in service.AdminBookingInput, req model.Requester) (*model.Booking, error)
	Get(ctx context.Context, id uint64, req model.Requester) (*model.Booking, error)
	List(ctx context.Context, req model.Requester) ([]model.Booking, error)
	Update(ctx context.Context, id uint64, patch service.BookingPatch, req model.Requester) (*model.Booking, error)
	Delete(ctx context.Context, id uint64, req model.Requester) error
	Availability(ctx context.Context, date, category string) (slot.Week, error)
	CheckAvailability(ctx context.Context, date, clock, category string) (bool, error)
}

// BookingHandler serves the booking and availability endpoints.
type BookingHandler struct {
	Svc BookingService
	// Production hides storage error detail from clients.
	Production bool
}

func NewBookingHandler(svc BookingService, production bool) *BookingHandler {
	return &BookingHandler{Svc: svc, Production: production}
}

// requestTimeout bounds the storage work of one request.
const requestTimeout = 5 * time.Second

// TimeSlots: GET /api/bookings/timeslots?date=&category=
// Returns the free slots of the 7 days starting at date (or today), keyed
// by day name.
func (h *BookingHandler) TimeSlots(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	week, err := h.Svc.Availability(ctx, c.QueryParam("date"), c.QueryParam("category"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, week)
}

// CheckAvailability: GET /api/bookings/availability?date=&time=&category=
func (h *BookingHandler) CheckAvailability(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	ok, err := h.Svc.CheckAvailability(ctx, c.QueryParam("date"), c.QueryParam("time"), c.QueryParam("category"))
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"available": false,
				"message":   "Date and time are required",
				"fields":    verr.Fields,
			})
		}
		return h.fail(c, err)
	}
	msg := "Time slot is available"
	if !ok {
		msg = "Time slot is already booked"
	}
	return c.JSON(http.StatusOK, echo.Map{"available": ok, "message": msg})
}

// CreatePublic: POST /api/bookings/wordpress (no auth).
func (h *BookingHandler) CreatePublic(c echo.Context) error {
	var in service.PublicBookingInput
	if err := c.Bind(&in); err != nil {
		return badBody(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	b, err := h.Svc.CreatePublic(ctx, in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Create: POST /api/bookings (JWT).
func (h *BookingHandler) Create(c echo.Context) error {
	req, ok := middleware.Requester(c)
	if !ok {
		return unauthorized(c)
	}
	var in service.AdminBookingInput
	if err := c.Bind(&in); err != nil {
		return badBody(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	b, err := h.Svc.CreateAdmin(ctx, in, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// List: GET /api/bookings and GET /api/admin/bookings (JWT).
func (h *BookingHandler) List(c echo.Context) error {
	req, ok := middleware.Requester(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	items, err := h.Svc.List(ctx, req)
	if err != nil {
		return h.fail(c, err)
	}
	if items == nil {
		items = []model.Booking{}
	}
	return c.JSON(http.StatusOK, items)
}

// Get: GET /api/bookings/:id (JWT).
func (h *BookingHandler) Get(c echo.Context) error {
	req, ok := middleware.Requester(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	b, err := h.Svc.Get(ctx, id, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Update: PUT|PATCH /api/bookings/:id (JWT). Both verbs apply a partial
// update; fields left out of the body keep their value.
func (h *BookingHandler) Update(c echo.Context) error {
	req, ok := middleware.Requester(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid id"})
	}
	var patch service.BookingPatch
	if err := c.Bind(&patch); err != nil {
		return badBody(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	b, err := h.Svc.Update(ctx, id, patch, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Booking updated successfully", "booking": b})
}

// Delete: DELETE /api/bookings/:id (JWT).
func (h *BookingHandler) Delete(c echo.Context) error {
	req, ok := middleware.Requester(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Svc.Delete(ctx, id, req); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Booking deleted successfully"})
}

// fail maps service errors to HTTP responses.
func (h *BookingHandler) fail(c echo.Context, err error) error {
	var (
		verr *service.ValidationError
		cerr *service.ConflictError
	)
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "VALIDATION_FAILED", "fields": verr.Fields})
	case errors.As(err, &cerr):
		return c.JSON(http.StatusConflict, echo.Map{
			"success": false,
			"error":   string(cerr.Kind),
			"message": "This time slot has already been booked. Please choose another time.",
		})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "NOT_FOUND", "message": "Booking not found"})
	case errors.Is(err, service.ErrPermission):
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "error": "FORBIDDEN"})
	case errors.Is(err, service.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"success": false, "error": "INVALID_STATUS_TRANSITION", "message": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		log.WithError(err).WithField("path", c.Path()).Warn("booking request timed out")
		return c.JSON(http.StatusGatewayTimeout, echo.Map{"success": false, "error": "timeout"})
	}
	log.WithError(err).WithField("path", c.Path()).Error("booking request failed")
	msg := "internal error"
	if !h.Production {
		msg = err.Error()
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": msg})
}

func parseID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func badBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid body"})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "unauthorized"})
}
