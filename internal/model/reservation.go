package model

import "time"

// Reservation statuses.  Pending, paid and completed reservations hold
// inventory; cancelled ones do not.
const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// ActiveStatuses lists the statuses that count against room capacity.
var ActiveStatuses = []string{StatusPending, StatusPaid, StatusCompleted}

// Reservation records a customer's booking of one or more rooms of a
// room type for a half-open range of nights [CheckIn, CheckOut).  The
// checkout day itself is not occupied.  CreatedAt and ID together form
// the commit order used to settle races between concurrent bookings.
//
// Fields:
//  ID              – primary key identifier (monotonic).
//  RoomTypeID      – room type being reserved.
//  HotelID         – hotel the room type belongs to.
//  UserID          – customer who made the reservation.
//  CheckIn         – first night, UTC midnight.
//  CheckOut        – departure day, UTC midnight, not occupied.
//  Quantity        – number of rooms reserved, at least 1.
//  TotalPriceCents – base price × quantity × nights at creation time.
//  Status          – pending, paid, completed or cancelled.
//  VerifiedAt      – when the post-booking check kept the reservation
//                    (nil while tentative).
//  CreatedAt       – creation timestamp with microsecond precision.
//  UpdatedAt       – last update timestamp.
type Reservation struct {
	ID              uint64     `json:"id"`                    // reservations.id
	RoomTypeID      uint64     `json:"room_type_id"`          // reservations.room_type_id
	HotelID         uint64     `json:"hotel_id"`              // reservations.hotel_id
	UserID          uint64     `json:"user_id"`               // reservations.user_id
	CheckIn         time.Time  `json:"check_in"`              // reservations.check_in
	CheckOut        time.Time  `json:"check_out"`             // reservations.check_out
	Quantity        int        `json:"quantity"`              // reservations.quantity
	TotalPriceCents int64      `json:"total_price_cents"`     // reservations.total_price_cents
	Status          string     `json:"status"`                // reservations.status
	VerifiedAt      *time.Time `json:"verified_at,omitempty"` // reservations.verified_at (nullable)
	CreatedAt       time.Time  `json:"created_at"`            // reservations.created_at
	UpdatedAt       time.Time  `json:"updated_at"`            // reservations.updated_at
}

// IsActive reports whether the reservation counts against capacity.
func (r Reservation) IsActive() bool {
	return IsActiveStatus(r.Status)
}

// Covers reports whether the night starting on day is part of the stay.
func (r Reservation) Covers(day time.Time) bool {
	return !day.Before(r.CheckIn) && day.Before(r.CheckOut)
}

// Nights returns the number of nights between check-in and checkout.
func (r Reservation) Nights() int {
	return int(r.CheckOut.Sub(r.CheckIn).Hours() / 24)
}

// IsActiveStatus reports whether status belongs to the active set.
func IsActiveStatus(status string) bool {
	for _, s := range ActiveStatuses {
		if s == status {
			return true
		}
	}
	return false
}
