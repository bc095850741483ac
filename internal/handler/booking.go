package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-booking/internal/booking"
	"github.com/iliyamo/hotel-room-booking/internal/middleware"
	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// BookingService is the booking core as seen by HTTP handlers.
type BookingService interface {
	Book(ctx context.Context, req booking.BookRequest) (model.Reservation, error)
	Get(ctx context.Context, userID, id uint64) (model.Reservation, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error)
	Cancel(ctx context.Context, userID, id uint64) (model.Reservation, error)
	Complete(ctx context.Context, id uint64) (model.Reservation, error)
	Availability(ctx context.Context, roomTypeID uint64, checkIn, checkOut string) (booking.Quote, error)
}

// BookingHandler serves booking and reservation endpoints.  Routes are
// expected behind JWTAuth except Availability, which is public.
type BookingHandler struct {
	svc BookingService
}

// NewBookingHandler panics on a nil service.
func NewBookingHandler(svc BookingService) *BookingHandler {
	if svc == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{svc: svc}
}

// CreateBookingRequest is the body of POST /v1/bookings.
type CreateBookingRequest struct {
	HotelID      uint64 `json:"hotel_id" validate:"required"`
	RoomTypeID   uint64 `json:"room_type_id" validate:"required"`
	CheckInDate  string `json:"check_in_date" validate:"required,datetime=2006-01-02"`
	CheckOutDate string `json:"check_out_date" validate:"required,datetime=2006-01-02"`
	Quantity     int    `json:"quantity" validate:"gte=1"`
}

// reservationResponse renders dates as calendar days.
type reservationResponse struct {
	model.Reservation
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
	Nights   int    `json:"nights"`
}

func toResponse(r model.Reservation) reservationResponse {
	return reservationResponse{
		Reservation: r,
		CheckIn:     r.CheckIn.Format(booking.DateLayout),
		CheckOut:    r.CheckOut.Format(booking.DateLayout),
		Nights:      r.Nights(),
	}
}

// CreateBooking handles POST /v1/bookings.  201 with the paid
// reservation, 400 with validation_error, insufficient_inventory (names
// the date) or sold_out, 404 for an unknown room type.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	var req CreateBookingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	res, err := h.svc.Book(c.Request().Context(), booking.BookRequest{
		HotelID:    req.HotelID,
		RoomTypeID: req.RoomTypeID,
		UserID:     userID,
		CheckIn:    req.CheckInDate,
		CheckOut:   req.CheckOutDate,
		Quantity:   req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toResponse(res))
}

// GetReservation handles GET /v1/reservations/:id for the owner of the
// reservation.
func (h *BookingHandler) GetReservation(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	res, err := h.svc.Get(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toResponse(res))
}

// ListReservations handles GET /v1/my-reservations, newest first.
func (h *BookingHandler) ListReservations(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	list, err := h.svc.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]reservationResponse, 0, len(list))
	for _, r := range list {
		out = append(out, toResponse(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": out})
}

// CancelReservation handles POST /v1/reservations/:id/cancel.
func (h *BookingHandler) CancelReservation(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	res, err := h.svc.Cancel(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toResponse(res))
}

// CompleteReservation handles POST /v1/owner/reservations/:id/complete.
func (h *BookingHandler) CompleteReservation(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	res, err := h.svc.Complete(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toResponse(res))
}

type dayResponse struct {
	Date string `json:"date"`
	booking.DayAvailability
}

// Availability handles GET /v1/room-types/:id/availability with
// check_in and check_out query parameters and an optional quantity
// (default 1) that drives the "available" flag.
func (h *BookingHandler) Availability(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	quantity := 1
	if q := c.QueryParam("quantity"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			return writeError(c, &booking.ValidationError{Field: "quantity", Msg: "must be at least 1"})
		}
		quantity = n
	}
	quote, err := h.svc.Availability(c.Request().Context(), id, c.QueryParam("check_in"), c.QueryParam("check_out"))
	if err != nil {
		return writeError(c, err)
	}
	days := make([]dayResponse, 0, len(quote.Days))
	for _, d := range quote.Days {
		days = append(days, dayResponse{Date: d.Date.Format(booking.DateLayout), DayAvailability: d})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"room_type_id":        quote.RoomTypeID,
		"check_in":            quote.CheckIn.Format(booking.DateLayout),
		"check_out":           quote.CheckOut.Format(booking.DateLayout),
		"nights":              quote.Nights,
		"nightly_price_cents": quote.NightlyPriceCents,
		"quantity":            quantity,
		"available":           quote.Available(quantity),
		"days":                days,
	})
}

func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, &booking.ValidationError{Field: name, Msg: "must be a positive integer"}
	}
	return id, nil
}
