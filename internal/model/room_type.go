package model

import "time"

// RoomType describes a bookable category of rooms in a hotel.  The
// booking core only reads room types; they are owned by the hotel
// domain.  BaseStock is the number of physical rooms of this type and
// acts as the daily capacity unless a calendar entry overrides it.
//
// Fields:
//  ID             – primary key identifier.
//  HotelID        – hotel that offers this room type.
//  Name           – display name (e.g. "Deluxe Twin").
//  BasePriceCents – nightly price in cents used to price new reservations.
//  BaseStock      – default number of rooms sellable per night.
//  Calendar       – sparse per-date overrides, unordered, unique per date.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type RoomType struct {
	ID             uint64          `json:"id"`               // room_types.id
	HotelID        uint64          `json:"hotel_id"`         // room_types.hotel_id
	Name           string          `json:"name"`             // room_types.name
	BasePriceCents int64           `json:"base_price_cents"` // room_types.base_price_cents
	BaseStock      int             `json:"base_stock"`       // room_types.base_stock
	Calendar       []CalendarEntry `json:"calendar"`         // room_type_calendar rows
	CreatedAt      time.Time       `json:"created_at"`       // room_types.created_at
	UpdatedAt      time.Time       `json:"updated_at"`       // room_types.updated_at
}

// CalendarEntry is a per-date exception to a room type's base price
// or stock.  A nil pointer means the field is not overridden for the
// date.  Date is a calendar day at UTC midnight.
type CalendarEntry struct {
	Date       time.Time `json:"date"`                  // room_type_calendar.day
	PriceCents *int64    `json:"price_cents,omitempty"` // room_type_calendar.price_cents (nullable)
	Stock      *int      `json:"stock,omitempty"`       // room_type_calendar.stock (nullable)
}
