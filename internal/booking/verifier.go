package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/hotel-room-booking/internal/clock"
	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// Verifier re-checks a written reservation against everything that
// committed before it and deletes it when it does not fit.
type Verifier struct {
	store  Store
	clock  clock.Clock
	events EventPublisher
}

// NewVerifier returns a Verifier.  events may be nil.
func NewVerifier(store Store, clk clock.Clock, events EventPublisher) *Verifier {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Verifier{store: store, clock: clk, events: events}
}

// Losers walks each night in order and returns, for every reservation
// that lands at or past the point where the running total first exceeds
// the night's limit, the first night it lost.  ordered must already be
// sorted by SettleOrder (or SortByCommitOrder).
func Losers(room model.RoomType, days []time.Time, ordered []model.Reservation) map[uint64]time.Time {
	losers := make(map[uint64]time.Time)
	for _, day := range days {
		limit := DailyLimit(room, day)
		total := 0
		over := false
		for _, r := range ordered {
			if !r.IsActive() || !r.Covers(day) {
				continue
			}
			total += r.Quantity
			if !over && total > limit {
				over = true
			}
			if over {
				if _, seen := losers[r.ID]; !seen {
					losers[r.ID] = day
				}
			}
		}
	}
	return losers
}

// Verify settles res against the reservations now visible for its stay.
// It returns nil when res is kept (and marks it verified), a sold-out
// CapacityError after deleting it, ErrReservationGone when it is no
// longer active, or an error wrapping ErrCompensationFailed when it lost
// but could not be deleted.
func (v *Verifier) Verify(ctx context.Context, room model.RoomType, res model.Reservation) error {
	days, err := ExpandRange(res.CheckIn, res.CheckOut)
	if err != nil {
		return err
	}
	day, lost, err := v.rank(ctx, room, res, days)
	if err != nil {
		return err
	}
	if !lost {
		if err := v.store.MarkVerified(ctx, res.ID, v.clock.Now()); err != nil {
			// The reservation is valid; the sweep will mark it later.
			log.Printf("booking: mark verified reservation=%d: %v", res.ID, err)
		}
		return nil
	}

	if _, err := v.store.Delete(ctx, res.ID); err != nil {
		log.Printf("booking: ESCALATE compensating delete failed reservation=%d room_type=%d day=%s: %v",
			res.ID, res.RoomTypeID, day.Format(DateLayout), err)
		if v.events != nil {
			if perr := v.events.CompensationFailed(context.WithoutCancel(ctx), res, err); perr != nil {
				log.Printf("booking: publish compensation failure reservation=%d: %v", res.ID, perr)
			}
		}
		return fmt.Errorf("%w: reservation %d: %v", ErrCompensationFailed, res.ID, err)
	}
	log.Printf("booking: evicted reservation=%d room_type=%d first_lost_day=%s", res.ID, res.RoomTypeID, day.Format(DateLayout))
	return &CapacityError{}
}

// Audit re-ranks an already verified reservation against everything now
// visible for its stay.  A reservation that loses is cancelled, not
// deleted, and a BookingRevoked event is published.  Audit returns nil
// when it is kept, ErrReservationGone when it is no longer active, or a
// sold-out CapacityError after revoking it.
func (v *Verifier) Audit(ctx context.Context, room model.RoomType, res model.Reservation) error {
	days, err := ExpandRange(res.CheckIn, res.CheckOut)
	if err != nil {
		return err
	}
	day, lost, err := v.rank(ctx, room, res, days)
	if err != nil || !lost {
		return err
	}
	changed, err := v.store.UpdateStatus(ctx, res.ID, []string{model.StatusPending, model.StatusPaid}, model.StatusCancelled)
	if err != nil {
		return fmt.Errorf("revoke reservation %d: %w", res.ID, err)
	}
	if !changed {
		return ErrReservationGone
	}
	res.Status = model.StatusCancelled
	log.Printf("booking: revoked reservation=%d room_type=%d first_lost_day=%s", res.ID, res.RoomTypeID, day.Format(DateLayout))
	if v.events != nil {
		if perr := v.events.BookingRevoked(context.WithoutCancel(ctx), res); perr != nil {
			log.Printf("booking: publish revocation reservation=%d: %v", res.ID, perr)
		}
	}
	return &CapacityError{}
}

// rank re-reads the stay and reports whether res loses on any night,
// and the first such night.
func (v *Verifier) rank(ctx context.Context, room model.RoomType, res model.Reservation, days []time.Time) (time.Time, bool, error) {
	current, err := v.store.ActiveOverlapping(ctx, res.RoomTypeID, res.CheckIn, res.CheckOut)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("post-check overlap query: %w", err)
	}
	present := false
	for _, r := range current {
		if r.ID == res.ID {
			present = true
			break
		}
	}
	if !present {
		return time.Time{}, false, ErrReservationGone
	}
	SettleOrder(current)
	day, lost := Losers(room, days, current)[res.ID]
	return day, lost, nil
}

// IsEvicted reports whether err means the verifier deleted or revoked
// the reservation.
func IsEvicted(err error) bool {
	return errors.Is(err, ErrSoldOut)
}
