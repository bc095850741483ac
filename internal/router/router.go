// Package router wires handlers and middleware onto echo routes.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-booking/internal/handler"
	"github.com/iliyamo/hotel-room-booking/internal/middleware"
	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// Deps carries everything the routes need.  RateLimit and Cache may be
// nil to disable them.
type Deps struct {
	Health    *handler.HealthHandler
	Booking   *handler.BookingHandler
	Owner     *handler.OwnerHandler
	JWTSecret string
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

// RegisterRoutes installs the validator and every route group.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.Validator = handler.NewRequestValidator()
	e.GET("/healthz", d.Health.Health)
	RegisterPublic(e, d)
	RegisterCustomer(e, d)
	RegisterOwner(e, d)
}

func optional(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := mws[:0]
	for _, mw := range mws {
		if mw != nil {
			out = append(out, mw)
		}
	}
	return out
}

// RegisterPublic registers unauthenticated read endpoints.  They are
// rate limited and served through the response cache.
func RegisterPublic(e *echo.Echo, d Deps) {
	e.GET("/v1/room-types/:id/availability", d.Booking.Availability, optional(d.RateLimit, d.Cache)...)
}

// RegisterCustomer registers endpoints for any authenticated user.
// Only customers may create bookings.
func RegisterCustomer(e *echo.Echo, d Deps) {
	g := e.Group("/v1", optional(middleware.JWTAuth(d.JWTSecret), d.RateLimit)...)
	g.POST("/bookings", d.Booking.CreateBooking, middleware.RequireRole(model.RoleCustomer))
	g.GET("/my-reservations", d.Booking.ListReservations)
	g.GET("/reservations/:id", d.Booking.GetReservation)
	g.POST("/reservations/:id/cancel", d.Booking.CancelReservation)
}

// RegisterOwner registers OWNER-only endpoints under /v1/owner.
func RegisterOwner(e *echo.Echo, d Deps) {
	g := e.Group("/v1/owner", optional(middleware.JWTAuth(d.JWTSecret), middleware.RequireRole(model.RoleOwner), d.RateLimit)...)
	g.POST("/reservations/:id/complete", d.Booking.CompleteReservation)
	g.POST("/room-types", d.Owner.CreateRoomType)
	g.PUT("/room-types/:id/calendar/:date", d.Owner.SetCalendar)
}
