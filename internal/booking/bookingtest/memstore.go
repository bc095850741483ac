// Package bookingtest provides in-memory implementations of the booking
// collaborators.  Each method is atomic on its own, like single-row
// statements against a database; nothing spans calls.
package bookingtest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/hotel-room-booking/internal/booking"
	"github.com/iliyamo/hotel-room-booking/internal/clock"
	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// MemStore is an in-memory booking.Store.
type MemStore struct {
	mu     sync.Mutex
	clock  clock.Clock
	nextID uint64
	rows   map[uint64]model.Reservation

	// Hooks run outside the store lock.  Tests use them to line up
	// concurrent bookings at a given step.
	BeforeInsert func()
	AfterInsert  func(model.Reservation)
	// DeleteErr, when set, is returned by Delete instead of deleting.
	DeleteErr error
	// OverlapErr, when set, is returned by ActiveOverlapping.
	OverlapErr error

	overlapCalls int
}

// NewMemStore returns an empty store stamping CreatedAt from clk.
func NewMemStore(clk clock.Clock) *MemStore {
	if clk == nil {
		clk = clock.NewStepping(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Microsecond)
	}
	return &MemStore{clock: clk, rows: make(map[uint64]model.Reservation)}
}

func (s *MemStore) ActiveOverlapping(ctx context.Context, roomTypeID uint64, checkIn, checkOut time.Time) ([]model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlapCalls++
	if s.OverlapErr != nil {
		return nil, s.OverlapErr
	}
	var out []model.Reservation
	for _, r := range s.rows {
		if r.RoomTypeID != roomTypeID || !r.IsActive() {
			continue
		}
		if r.CheckIn.Before(checkOut) && r.CheckOut.After(checkIn) {
			out = append(out, r)
		}
	}
	// Map order is random, which is what callers must cope with.
	return out, nil
}

func (s *MemStore) Insert(_ context.Context, r *model.Reservation) error {
	if s.BeforeInsert != nil {
		s.BeforeInsert()
	}
	s.mu.Lock()
	s.nextID++
	r.ID = s.nextID
	r.CreatedAt = s.clock.Now()
	r.UpdatedAt = r.CreatedAt
	s.rows[r.ID] = *r
	stored := *r
	s.mu.Unlock()
	if s.AfterInsert != nil {
		s.AfterInsert(stored)
	}
	return nil
}

func (s *MemStore) Delete(_ context.Context, id uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeleteErr != nil {
		return false, s.DeleteErr
	}
	_, ok := s.rows[id]
	delete(s.rows, id)
	return ok, nil
}

func (s *MemStore) MarkVerified(_ context.Context, id uint64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok || r.VerifiedAt != nil {
		return nil
	}
	t := at
	r.VerifiedAt = &t
	s.rows[id] = r
	return nil
}

func (s *MemStore) ListUnverified(_ context.Context, createdBefore time.Time, limit int) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Reservation
	for _, r := range s.rows {
		if r.VerifiedAt == nil && r.IsActive() && r.CreatedAt.Before(createdBefore) {
			out = append(out, r)
		}
	}
	booking.SortByCommitOrder(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) ListVerifiedSince(_ context.Context, since, before time.Time, limit int) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Reservation
	for _, r := range s.rows {
		if r.VerifiedAt != nil && r.IsActive() && !r.CreatedAt.Before(since) && r.CreatedAt.Before(before) {
			out = append(out, r)
		}
	}
	booking.SortByCommitOrder(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) Get(_ context.Context, id uint64) (model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return model.Reservation{}, booking.ErrReservationNotFound
	}
	return r, nil
}

func (s *MemStore) ListByUser(_ context.Context, userID uint64) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Reservation
	for _, r := range s.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemStore) UpdateStatus(_ context.Context, id uint64, from []string, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return false, nil
	}
	for _, st := range from {
		if r.Status == st {
			r.Status = to
			s.rows[id] = r
			return true, nil
		}
	}
	return false, nil
}

// Put stores r as is, keeping its ID and CreatedAt.  Used to seed state.
func (s *MemStore) Put(r model.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID > s.nextID {
		s.nextID = r.ID
	}
	s.rows[r.ID] = r
}

// All returns every stored reservation in commit order.
func (s *MemStore) All() []model.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Reservation, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	booking.SortByCommitOrder(out)
	return out
}

// OverlapCalls reports how many overlap queries were served.
func (s *MemStore) OverlapCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlapCalls
}

// MemInventory is an in-memory booking.Inventory.
type MemInventory struct {
	mu    sync.Mutex
	rooms map[uint64]model.RoomType
	calls int
	// Err, when set, is returned by GetRoomType.
	Err error
}

// NewMemInventory returns an inventory holding rooms.
func NewMemInventory(rooms ...model.RoomType) *MemInventory {
	inv := &MemInventory{rooms: make(map[uint64]model.RoomType)}
	for _, r := range rooms {
		inv.rooms[r.ID] = r
	}
	return inv
}

func (i *MemInventory) GetRoomType(_ context.Context, id uint64) (model.RoomType, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls++
	if i.Err != nil {
		return model.RoomType{}, i.Err
	}
	r, ok := i.rooms[id]
	if !ok {
		return model.RoomType{}, booking.ErrRoomTypeNotFound
	}
	return r, nil
}

// Create adds a room type, assigning the next id.
func (i *MemInventory) Create(_ context.Context, rt *model.RoomType) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	var max uint64
	for id, r := range i.rooms {
		if r.HotelID == rt.HotelID && r.Name == rt.Name {
			return errors.New("duplicate room type")
		}
		if id > max {
			max = id
		}
	}
	rt.ID = max + 1
	i.rooms[rt.ID] = *rt
	return nil
}

// UpsertCalendar sets or clears the override for e.Date.
func (i *MemInventory) UpsertCalendar(_ context.Context, roomTypeID uint64, e model.CalendarEntry) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	rt, ok := i.rooms[roomTypeID]
	if !ok {
		return booking.ErrRoomTypeNotFound
	}
	day := booking.Day(e.Date)
	cal := make([]model.CalendarEntry, 0, len(rt.Calendar)+1)
	for _, c := range rt.Calendar {
		if !booking.Day(c.Date).Equal(day) {
			cal = append(cal, c)
		}
	}
	if e.PriceCents != nil || e.Stock != nil {
		e.Date = day
		cal = append(cal, e)
	}
	rt.Calendar = cal
	i.rooms[roomTypeID] = rt
	return nil
}

// Calls reports how many lookups were served.
func (i *MemInventory) Calls() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.calls
}

// CheckInvariant returns an error naming the first room type and night
// whose active reservations exceed the daily limit.
func CheckInvariant(inv *MemInventory, store *MemStore) error {
	all := store.All()
	for _, r := range all {
		if !r.IsActive() {
			continue
		}
		room, err := inv.GetRoomType(context.Background(), r.RoomTypeID)
		if err != nil {
			return err
		}
		days, err := booking.ExpandRange(r.CheckIn, r.CheckOut)
		if err != nil {
			return err
		}
		for _, d := range booking.DayUsage(room, days, all) {
			if d.Used > d.Limit {
				return errors.New("room type oversold on " + d.Date.Format(booking.DateLayout))
			}
		}
	}
	return nil
}
