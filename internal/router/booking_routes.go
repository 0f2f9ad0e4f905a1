package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/booking-service/internal/handler"
	"github.com/iliyamo/booking-service/internal/middleware"
	"github.com/iliyamo/booking-service/internal/model"
)

// BookingMiddleware groups the optional Redis-backed middleware of the
// booking routes. Nil entries are skipped.
type BookingMiddleware struct {
	// RateLimit guards the anonymous create endpoint.
	RateLimit echo.MiddlewareFunc
	// Cache wraps the availability reads.
	Cache echo.MiddlewareFunc
}

// RegisterBookings registers the booking endpoints. Availability reads and
// the WordPress create endpoint are public; everything else requires a
// valid JWT, and /api/admin requires the admin role.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, mw BookingMiddleware) {
	cached := optional(mw.Cache)
	limited := optional(mw.RateLimit)

	api := e.Group("/api")
	api.GET("/bookings/timeslots", h.TimeSlots, cached...)
	// alias used by the WordPress form script
	api.GET("/timeslots", h.TimeSlots, cached...)
	api.GET("/bookings/availability", h.CheckAvailability, cached...)
	api.POST("/bookings/wordpress", h.CreatePublic, limited...)

	auth := e.Group("/api/bookings",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin),
	)
	auth.POST("", h.Create)
	auth.GET("", h.List)
	auth.GET("/:id", h.Get)
	auth.PUT("/:id", h.Update)
	auth.PATCH("/:id", h.Update)
	auth.DELETE("/:id", h.Delete)

	admin := e.Group("/api/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	admin.GET("/bookings", h.List)
}

func optional(m echo.MiddlewareFunc) []echo.MiddlewareFunc {
	if m == nil {
		return nil
	}
	return []echo.MiddlewareFunc{m}
}
