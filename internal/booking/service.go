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

const (
	defaultTimeout       = 5 * time.Second
	defaultVerifyTimeout = 5 * time.Second
)

// Service runs the booking protocol: validate, pre-check, write,
// post-check.  It holds no mutable state shared between requests.
type Service struct {
	inventory     Inventory
	store         Store
	verifier      *Verifier
	ledger        Ledger
	events        EventPublisher
	clock         clock.Clock
	timeout       time.Duration
	verifyTimeout time.Duration
	maxNights     int
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock used for verification timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLedger enables the counter-based admission check.
func WithLedger(l Ledger) Option { return func(s *Service) { s.ledger = l } }

// WithEvents sets the lifecycle event publisher.
func WithEvents(p EventPublisher) Option { return func(s *Service) { s.events = p } }

// WithTimeouts overrides the request and verification timeouts.  Zero
// values keep the defaults.
func WithTimeouts(request, verify time.Duration) Option {
	return func(s *Service) {
		if request > 0 {
			s.timeout = request
		}
		if verify > 0 {
			s.verifyTimeout = verify
		}
	}
}

// WithMaxNights caps the length of a stay.  Zero keeps DefaultMaxNights.
func WithMaxNights(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxNights = n
		}
	}
}

// NewService builds a Service over the given collaborators.
func NewService(inv Inventory, store Store, opts ...Option) *Service {
	s := &Service{
		inventory:     inv,
		store:         store,
		clock:         clock.NewSystem(),
		timeout:       defaultTimeout,
		verifyTimeout: defaultVerifyTimeout,
		maxNights:     DefaultMaxNights,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.verifier = NewVerifier(store, s.clock, s.events)
	return s
}

// Verifier exposes the service's post-booking verifier so the
// reconciliation sweep shares its configuration.
func (s *Service) Verifier() *Verifier { return s.verifier }

// BookRequest is a customer's request for rooms.  Dates are ISO
// calendar dates; the stay is [CheckIn, CheckOut).
type BookRequest struct {
	HotelID    uint64
	RoomTypeID uint64
	UserID     uint64
	CheckIn    string
	CheckOut   string
	Quantity   int
}

// Book accepts or rejects req.  On success the returned reservation is
// persisted with status paid.  Errors are ValidationError,
// ErrRoomTypeNotFound, CapacityError (pre-check names a date, post-check
// does not), ErrCompensationFailed or a wrapped storage error.
func (s *Service) Book(ctx context.Context, req BookRequest) (model.Reservation, error) {
	checkIn, checkOut, err := ParseStay(req.CheckIn, req.CheckOut, s.maxNights)
	if err != nil {
		return model.Reservation{}, err
	}
	if req.Quantity < 1 {
		return model.Reservation{}, invalid("quantity", "must be at least 1")
	}
	if req.RoomTypeID == 0 {
		return model.Reservation{}, invalid("room_type_id", "is required")
	}
	days, err := ExpandRange(checkIn, checkOut)
	if err != nil {
		return model.Reservation{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	room, err := s.inventory.GetRoomType(ctx, req.RoomTypeID)
	if err != nil {
		if errors.Is(err, ErrRoomTypeNotFound) {
			return model.Reservation{}, ErrRoomTypeNotFound
		}
		return model.Reservation{}, fmt.Errorf("load room type: %w", err)
	}
	if req.HotelID != 0 && room.HotelID != req.HotelID {
		return model.Reservation{}, ErrRoomTypeNotFound
	}

	existing, err := s.store.ActiveOverlapping(ctx, room.ID, checkIn, checkOut)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("pre-check overlap query: %w", err)
	}
	if err := PreCheck(room, days, existing, req.Quantity); err != nil {
		return model.Reservation{}, err
	}

	if s.ledger != nil {
		if err := s.ledger.Reserve(ctx, room, days, req.Quantity); err != nil {
			return model.Reservation{}, err
		}
	}

	res := model.Reservation{
		RoomTypeID:      room.ID,
		HotelID:         room.HotelID,
		UserID:          req.UserID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Quantity:        req.Quantity,
		TotalPriceCents: room.BasePriceCents * int64(req.Quantity) * int64(len(days)),
		Status:          model.StatusPaid,
	}
	if err := s.store.Insert(ctx, &res); err != nil {
		s.release(room.ID, days, req.Quantity)
		return model.Reservation{}, fmt.Errorf("insert reservation: %w", err)
	}

	// Once written, the reservation must be verified even if the caller
	// has gone away or the request deadline has passed.
	vctx, vcancel := context.WithTimeout(context.WithoutCancel(ctx), s.verifyTimeout)
	defer vcancel()
	if err := s.verifier.Verify(vctx, room, res); err != nil {
		if IsEvicted(err) || errors.Is(err, ErrReservationGone) {
			s.release(room.ID, days, req.Quantity)
		}
		if errors.Is(err, ErrReservationGone) {
			return model.Reservation{}, &CapacityError{}
		}
		return model.Reservation{}, err
	}

	now := s.clock.Now()
	res.VerifiedAt = &now
	s.publish(vctx, func(ctx context.Context) error { return s.events.BookingConfirmed(ctx, res) }, res.ID)
	return res, nil
}

// Get returns a reservation owned by userID.
func (s *Service) Get(ctx context.Context, userID, id uint64) (model.Reservation, error) {
	res, err := s.store.Get(ctx, id)
	if err != nil {
		return model.Reservation{}, err
	}
	if res.UserID != userID {
		return model.Reservation{}, ErrReservationNotFound
	}
	return res, nil
}

// ListByUser returns the user's reservations, newest first.
func (s *Service) ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	return s.store.ListByUser(ctx, userID)
}

// Cancel moves the caller's pending or paid reservation to cancelled,
// freeing its rooms.  Cancelling an already cancelled reservation is a
// no-op; completed stays cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, userID, id uint64) (model.Reservation, error) {
	res, err := s.Get(ctx, userID, id)
	if err != nil {
		return model.Reservation{}, err
	}
	if res.Status == model.StatusCancelled {
		return res, nil
	}
	changed, err := s.store.UpdateStatus(ctx, id, []string{model.StatusPending, model.StatusPaid}, model.StatusCancelled)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("cancel reservation: %w", err)
	}
	if !changed {
		// Status moved underneath us (completed, or evicted by a verifier).
		return model.Reservation{}, ErrInvalidTransition
	}
	res.Status = model.StatusCancelled
	if days, err := ExpandRange(res.CheckIn, res.CheckOut); err == nil {
		s.release(res.RoomTypeID, days, res.Quantity)
	}
	s.publish(ctx, func(ctx context.Context) error { return s.events.BookingCancelled(ctx, res) }, res.ID)
	return res, nil
}

// Complete marks a paid reservation as completed.
func (s *Service) Complete(ctx context.Context, id uint64) (model.Reservation, error) {
	res, err := s.store.Get(ctx, id)
	if err != nil {
		return model.Reservation{}, err
	}
	if res.Status == model.StatusCompleted {
		return res, nil
	}
	changed, err := s.store.UpdateStatus(ctx, id, []string{model.StatusPaid}, model.StatusCompleted)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("complete reservation: %w", err)
	}
	if !changed {
		return model.Reservation{}, ErrInvalidTransition
	}
	res.Status = model.StatusCompleted
	return res, nil
}

// Quote is the availability picture of a stay for one room type.
type Quote struct {
	RoomTypeID        uint64
	CheckIn           time.Time
	CheckOut          time.Time
	Nights            int
	NightlyPriceCents int64
	Days              []DayAvailability
}

// Available reports whether quantity rooms fit on every night.
func (q Quote) Available(quantity int) bool {
	for _, d := range q.Days {
		if d.Remaining < quantity {
			return false
		}
	}
	return len(q.Days) > 0
}

// Availability computes the per-night capacity of a stay the same way
// the pre-booking check does.  It writes nothing.
func (s *Service) Availability(ctx context.Context, roomTypeID uint64, checkIn, checkOut string) (Quote, error) {
	in, out, err := ParseStay(checkIn, checkOut, s.maxNights)
	if err != nil {
		return Quote{}, err
	}
	days, err := ExpandRange(in, out)
	if err != nil {
		return Quote{}, err
	}
	room, err := s.inventory.GetRoomType(ctx, roomTypeID)
	if err != nil {
		if errors.Is(err, ErrRoomTypeNotFound) {
			return Quote{}, ErrRoomTypeNotFound
		}
		return Quote{}, fmt.Errorf("load room type: %w", err)
	}
	existing, err := s.store.ActiveOverlapping(ctx, room.ID, in, out)
	if err != nil {
		return Quote{}, fmt.Errorf("availability overlap query: %w", err)
	}
	return Quote{
		RoomTypeID:        room.ID,
		CheckIn:           in,
		CheckOut:          out,
		Nights:            len(days),
		NightlyPriceCents: room.BasePriceCents,
		Days:              DayUsage(room, days, existing),
	}, nil
}

func (s *Service) release(roomTypeID uint64, days []time.Time, quantity int) {
	if s.ledger == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.verifyTimeout)
	defer cancel()
	if err := s.ledger.Release(ctx, roomTypeID, days, quantity); err != nil {
		log.Printf("booking: ledger release room_type=%d: %v", roomTypeID, err)
	}
}

func (s *Service) publish(ctx context.Context, fn func(context.Context) error, id uint64) {
	if s.events == nil {
		return
	}
	if err := fn(ctx); err != nil {
		log.Printf("booking: publish event reservation=%d: %v", id, err)
	}
}
