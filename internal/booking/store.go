// Package booking decides whether a room-night reservation is accepted.
//
// Capacity is never tracked in a counter.  A booking reads the active
// reservations overlapping its stay, rejects early when a night is
// already full, writes the reservation without any lock, then re-reads
// and settles races by commit order (created_at, id): a reservation that
// pushes any night over its limit deletes itself.  The persisted state
// therefore respects the daily limits however many writers raced.
package booking

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// Inventory resolves room types.  Implementations return
// ErrRoomTypeNotFound for unknown ids.
type Inventory interface {
	GetRoomType(ctx context.Context, id uint64) (model.RoomType, error)
}

// Store persists reservations.  Each call must be atomic on its own;
// no call sequence is expected to be.
type Store interface {
	// ActiveOverlapping returns reservations of the room type whose
	// status is active and whose stay intersects [checkIn, checkOut).
	// It must read its own writes: a row just returned by Insert has to
	// be visible to the next call, so it cannot be served from a lagging
	// replica.  The verifier reports a missing row as sold out.
	ActiveOverlapping(ctx context.Context, roomTypeID uint64, checkIn, checkOut time.Time) ([]model.Reservation, error)
	// Insert writes r and fills in ID, CreatedAt and UpdatedAt.
	Insert(ctx context.Context, r *model.Reservation) error
	// Delete removes the reservation and reports whether a row was removed.
	Delete(ctx context.Context, id uint64) (bool, error)
	// MarkVerified records that the post-booking check kept the reservation.
	MarkVerified(ctx context.Context, id uint64, at time.Time) error
	// ListUnverified returns active reservations never verified and
	// created before the cutoff, oldest first.
	ListUnverified(ctx context.Context, createdBefore time.Time, limit int) ([]model.Reservation, error)
	// ListVerifiedSince returns active, verified reservations created in
	// [since, before), oldest first.
	ListVerifiedSince(ctx context.Context, since, before time.Time, limit int) ([]model.Reservation, error)
	// Get returns a reservation or ErrReservationNotFound.
	Get(ctx context.Context, id uint64) (model.Reservation, error)
	// ListByUser returns the user's reservations, newest first.
	ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error)
	// UpdateStatus moves the reservation to status `to` if its current
	// status is one of `from`, and reports whether it changed.
	UpdateStatus(ctx context.Context, id uint64, from []string, to string) (bool, error)
}

// SortByCommitOrder sorts reservations by (CreatedAt, ID) ascending.
// Under equal timestamps the id decides, so there is no strict FIFO
// guarantee between requests that land in the same clock tick.
func SortByCommitOrder(rs []model.Reservation) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].CreatedAt.Before(rs[j].CreatedAt)
		}
		return rs[i].ID < rs[j].ID
	})
}

// SettleOrder sorts reservations the way the post-booking check ranks
// them: verified reservations first, then unverified ones, each group in
// commit order.  When rows become visible in commit order this ranks
// every reservation exactly like SortByCommitOrder would.  When a row
// with an earlier created_at becomes visible after a later one was
// already kept, the late row yields instead of overbooking the night.
func SettleOrder(rs []model.Reservation) {
	sort.SliceStable(rs, func(i, j int) bool {
		vi, vj := rs[i].VerifiedAt != nil, rs[j].VerifiedAt != nil
		if vi != vj {
			return vi
		}
		if !rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].CreatedAt.Before(rs[j].CreatedAt)
		}
		return rs[i].ID < rs[j].ID
	})
}
