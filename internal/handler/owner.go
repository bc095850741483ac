package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-booking/internal/booking"
	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// RoomTypeStore is the inventory write side used by owners.
type RoomTypeStore interface {
	GetRoomType(ctx context.Context, id uint64) (model.RoomType, error)
	Create(ctx context.Context, rt *model.RoomType) error
	UpsertCalendar(ctx context.Context, roomTypeID uint64, e model.CalendarEntry) error
}

// OwnerHandler lets OWNER accounts manage room types and their calendar.
type OwnerHandler struct {
	rooms RoomTypeStore
}

// NewOwnerHandler panics on a nil store.
func NewOwnerHandler(rooms RoomTypeStore) *OwnerHandler {
	if rooms == nil {
		panic("nil store passed to NewOwnerHandler")
	}
	return &OwnerHandler{rooms: rooms}
}

// CreateRoomTypeRequest is the body of POST /v1/owner/room-types.
type CreateRoomTypeRequest struct {
	HotelID        uint64 `json:"hotel_id" validate:"required"`
	Name           string `json:"name" validate:"required,max=120"`
	BasePriceCents int64  `json:"base_price_cents" validate:"gte=0"`
	BaseStock      int    `json:"base_stock" validate:"gte=0"`
}

// CreateRoomType handles POST /v1/owner/room-types.
func (h *OwnerHandler) CreateRoomType(c echo.Context) error {
	var req CreateRoomTypeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	rt := model.RoomType{
		HotelID:        req.HotelID,
		Name:           req.Name,
		BasePriceCents: req.BasePriceCents,
		BaseStock:      req.BaseStock,
	}
	if err := h.rooms.Create(c.Request().Context(), &rt); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, rt)
}

// CalendarRequest is the body of PUT /v1/owner/room-types/:id/calendar/:date.
// Omitted fields clear the override.
type CalendarRequest struct {
	PriceCents *int64 `json:"price_cents" validate:"omitempty,gte=0"`
	Stock      *int   `json:"stock" validate:"omitempty,gte=0"`
}

// SetCalendar handles PUT /v1/owner/room-types/:id/calendar/:date and
// returns the room type with its updated calendar.  Lowering stock
// below what is already sold does not touch existing reservations; it
// only blocks new ones.
func (h *OwnerHandler) SetCalendar(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	day, err := booking.ParseDate("date", c.Param("date"))
	if err != nil {
		return writeError(c, err)
	}
	var req CalendarRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx := c.Request().Context()
	if _, err := h.rooms.GetRoomType(ctx, id); err != nil {
		return writeError(c, err)
	}
	entry := model.CalendarEntry{Date: day, PriceCents: req.PriceCents, Stock: req.Stock}
	if err := h.rooms.UpsertCalendar(ctx, id, entry); err != nil {
		return writeError(c, err)
	}
	rt, err := h.rooms.GetRoomType(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rt)
}
