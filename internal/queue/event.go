// Package queue publishes booking lifecycle events to RabbitMQ and runs
// the consumer that appends them to logs/booking.log.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// Queue names.  Each event type goes to its own durable queue on the
// default exchange.
const (
	QueueBookingConfirmed   = "booking.confirmed"
	QueueBookingCancelled   = "booking.cancelled"
	QueueBookingRevoked     = "booking.revoked"
	QueueCompensationFailed = "reservation.compensation_failed"
)

// AllQueues lists every queue the consumer listens on.
var AllQueues = []string{QueueBookingConfirmed, QueueBookingCancelled, QueueBookingRevoked, QueueCompensationFailed}

// ReservationEvent is the payload of every booking event.  It carries
// enough for consumers to log or notify without reading the database.
type ReservationEvent struct {
	MessageID       string `json:"message_id"`
	Type            string `json:"type"`
	ReservationID   uint64 `json:"reservation_id"`
	RoomTypeID      uint64 `json:"room_type_id"`
	HotelID         uint64 `json:"hotel_id"`
	UserID          uint64 `json:"user_id"`
	CheckIn         string `json:"check_in"`
	CheckOut        string `json:"check_out"`
	Quantity        int    `json:"quantity"`
	TotalPriceCents int64  `json:"total_price_cents"`
	Status          string `json:"status"`
	Reason          string `json:"reason,omitempty"`
	OccurredAt      string `json:"occurred_at"`
}

// NewReservationEvent builds an event of the given type (a queue name)
// with a fresh message id.
func NewReservationEvent(typ string, res model.Reservation, at time.Time) ReservationEvent {
	return ReservationEvent{
		MessageID:       uuid.NewString(),
		Type:            typ,
		ReservationID:   res.ID,
		RoomTypeID:      res.RoomTypeID,
		HotelID:         res.HotelID,
		UserID:          res.UserID,
		CheckIn:         res.CheckIn.Format("2006-01-02"),
		CheckOut:        res.CheckOut.Format("2006-01-02"),
		Quantity:        res.Quantity,
		TotalPriceCents: res.TotalPriceCents,
		Status:          res.Status,
		OccurredAt:      at.UTC().Format(time.RFC3339),
	}
}
