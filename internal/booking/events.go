package booking

import (
	"context"
	"time"

	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// EventPublisher receives booking lifecycle notifications.  Publishing
// failures are logged by callers and never undo a booking.
type EventPublisher interface {
	BookingConfirmed(ctx context.Context, res model.Reservation) error
	BookingCancelled(ctx context.Context, res model.Reservation) error
	BookingRevoked(ctx context.Context, res model.Reservation) error
	CompensationFailed(ctx context.Context, res model.Reservation, cause error) error
}

// Ledger is an optional per-(room type, night) counter that admits a
// booking only if every night still has room, atomically.  It is the
// alternative to relying on the post-booking check alone for stores
// that offer atomic check-and-increment.
type Ledger interface {
	Reserve(ctx context.Context, room model.RoomType, days []time.Time, quantity int) error
	Release(ctx context.Context, roomTypeID uint64, days []time.Time, quantity int) error
}
