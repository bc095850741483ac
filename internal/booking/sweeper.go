package booking

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/hotel-room-booking/internal/clock"
	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// Sweeper re-runs the post-booking check for reservations that were
// written but never verified, e.g. because the process died between the
// insert and the check or a compensating delete failed.  It then audits
// recently verified reservations: two writers whose rows became visible
// out of created_at order can both have been kept, and the audit
// revokes the later one.
type Sweeper struct {
	Inventory Inventory
	Store     Store
	Verifier  *Verifier
	Ledger    Ledger
	Clock     clock.Clock
	// Grace is how old an unverified reservation must be before the
	// sweep touches it, so in-flight requests settle themselves first.
	Grace time.Duration
	// Batch caps how many reservations each phase of a pass examines.
	Batch int
	// AuditWindow is how far back verified reservations are re-audited.
	// Zero disables the audit.
	AuditWindow time.Duration
}

// SweepResult counts what one pass did.
type SweepResult struct {
	Checked int
	Kept    int
	Evicted int
	Gone    int
	Failed  int
	Audited int
	Revoked int
}

// RunOnce verifies one batch of stale unverified reservations, then
// audits one batch of verified reservations created within AuditWindow
// before the grace cutoff.  Errors on individual reservations are logged
// and counted; only a failure to list candidates is returned.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	var out SweepResult
	clk := s.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	batch := s.Batch
	if batch <= 0 {
		batch = 100
	}
	cutoff := clk.Now().Add(-s.Grace)
	rooms := make(map[uint64]model.RoomType)

	pending, err := s.Store.ListUnverified(ctx, cutoff, batch)
	if err != nil {
		return out, err
	}
	for _, res := range pending {
		out.Checked++
		room, ok := s.room(ctx, rooms, res)
		if !ok {
			out.Failed++
			continue
		}
		err := s.Verifier.Verify(ctx, room, res)
		switch {
		case err == nil:
			out.Kept++
		case IsEvicted(err):
			out.Evicted++
			s.release(ctx, res)
		case errors.Is(err, ErrReservationGone):
			out.Gone++
		default:
			log.Printf("sweeper: verify reservation=%d: %v", res.ID, err)
			out.Failed++
		}
	}

	if s.AuditWindow > 0 {
		recent, err := s.Store.ListVerifiedSince(ctx, cutoff.Add(-s.AuditWindow), cutoff, batch)
		if err != nil {
			return out, err
		}
		for _, res := range recent {
			out.Audited++
			room, ok := s.room(ctx, rooms, res)
			if !ok {
				out.Failed++
				continue
			}
			err := s.Verifier.Audit(ctx, room, res)
			switch {
			case err == nil, errors.Is(err, ErrReservationGone):
			case IsEvicted(err):
				out.Revoked++
				s.release(ctx, res)
			default:
				log.Printf("sweeper: audit reservation=%d: %v", res.ID, err)
				out.Failed++
			}
		}
	}
	return out, nil
}

func (s *Sweeper) room(ctx context.Context, cache map[uint64]model.RoomType, res model.Reservation) (model.RoomType, bool) {
	if room, ok := cache[res.RoomTypeID]; ok {
		return room, true
	}
	room, err := s.Inventory.GetRoomType(ctx, res.RoomTypeID)
	if err != nil {
		log.Printf("sweeper: load room type=%d for reservation=%d: %v", res.RoomTypeID, res.ID, err)
		return model.RoomType{}, false
	}
	cache[res.RoomTypeID] = room
	return room, true
}

func (s *Sweeper) release(ctx context.Context, res model.Reservation) {
	if s.Ledger == nil {
		return
	}
	days, err := ExpandRange(res.CheckIn, res.CheckOut)
	if err != nil {
		return
	}
	if err := s.Ledger.Release(ctx, res.RoomTypeID, days, res.Quantity); err != nil {
		log.Printf("sweeper: ledger release reservation=%d: %v", res.ID, err)
	}
}
