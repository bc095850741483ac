package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-room-booking/internal/booking"
	"github.com/iliyamo/hotel-room-booking/internal/booking/bookingtest"
	"github.com/iliyamo/hotel-room-booking/internal/clock"
	"github.com/iliyamo/hotel-room-booking/internal/model"
)

var start = time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

func intp(n int) *int { return &n }

func roomType(id uint64, stock int) model.RoomType {
	return model.RoomType{ID: id, HotelID: 7, Name: "Standard", BasePriceCents: 12000, BaseStock: stock}
}

func newService(t *testing.T, rooms ...model.RoomType) (*booking.Service, *bookingtest.MemStore, *bookingtest.MemInventory) {
	t.Helper()
	clk := clock.NewStepping(start, time.Microsecond)
	store := bookingtest.NewMemStore(clk)
	inv := bookingtest.NewMemInventory(rooms...)
	return booking.NewService(inv, store, booking.WithClock(clk)), store, inv
}

func request(roomTypeID, userID uint64, in, out string, qty int) booking.BookRequest {
	return booking.BookRequest{RoomTypeID: roomTypeID, UserID: userID, CheckIn: in, CheckOut: out, Quantity: qty}
}

// bookConcurrently fires n requests that all pass the pre-check before
// any of them writes, the worst case for the protocol.
func bookConcurrently(t *testing.T, svc *booking.Service, store *bookingtest.MemStore, n int, req func(i int) booking.BookRequest) (ok int, errs []error) {
	t.Helper()
	var arrived sync.WaitGroup
	arrived.Add(n)
	store.BeforeInsert = func() {
		arrived.Done()
		arrived.Wait()
	}
	defer func() { store.BeforeInsert = nil }()

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Book(context.Background(), req(i))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
				return
			}
			errs = append(errs, err)
		}(i)
	}
	wg.Wait()
	return ok, errs
}

func TestBookConcurrentSameNight(t *testing.T) {
	svc, store, inv := newService(t, roomType(1, 5))

	ok, errs := bookConcurrently(t, svc, store, 20, func(i int) booking.BookRequest {
		return request(1, uint64(i+1), "2026-10-01", "2026-10-02", 1)
	})

	assert.Equal(t, 5, ok)
	require.Len(t, errs, 15)
	for _, err := range errs {
		assert.True(t, errors.Is(err, booking.ErrCapacity), "unexpected error %v", err)
		assert.True(t, booking.IsEvicted(err), "post-check rejections carry no date: %v", err)
	}
	rows := store.All()
	assert.Len(t, rows, 5)
	for _, r := range rows {
		assert.NotNil(t, r.VerifiedAt)
	}
	assert.NoError(t, bookingtest.CheckInvariant(inv, store))
}

func TestBookConcurrentSurvivorsAreEarliest(t *testing.T) {
	// A fixed clock forces every timestamp to tie; the id decides.
	clk := clock.NewFixed(start)
	store := bookingtest.NewMemStore(clk)
	inv := bookingtest.NewMemInventory(roomType(1, 3))
	svc := booking.NewService(inv, store, booking.WithClock(clk))

	ok, _ := bookConcurrently(t, svc, store, 10, func(i int) booking.BookRequest {
		return request(1, uint64(i+1), "2026-10-01", "2026-10-03", 1)
	})

	assert.Equal(t, 3, ok)
	var ids []uint64
	for _, r := range store.All() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []uint64{1, 2, 3}, ids)
}

func TestBookConcurrentFewerRequestsThanStock(t *testing.T) {
	svc, store, inv := newService(t, roomType(1, 8))
	ok, errs := bookConcurrently(t, svc, store, 6, func(i int) booking.BookRequest {
		return request(1, 1, "2026-10-01", "2026-10-04", 1)
	})
	assert.Equal(t, 6, ok)
	assert.Empty(t, errs)
	assert.NoError(t, bookingtest.CheckInvariant(inv, store))
}

func TestBookConcurrentOverlappingRanges(t *testing.T) {
	room := roomType(1, 4)
	room.Calendar = []model.CalendarEntry{{Date: time.Date(2026, 10, 3, 0, 0, 0, 0, time.UTC), Stock: intp(2)}}
	svc, store, inv := newService(t, room)

	ranges := [][2]string{
		{"2026-10-01", "2026-10-03"},
		{"2026-10-02", "2026-10-05"},
		{"2026-10-03", "2026-10-04"},
		{"2026-10-01", "2026-10-06"},
	}
	_, _ = bookConcurrently(t, svc, store, 24, func(i int) booking.BookRequest {
		r := ranges[i%len(ranges)]
		return request(1, uint64(i+1), r[0], r[1], 1+i%2)
	})
	assert.NoError(t, bookingtest.CheckInvariant(inv, store))
	assert.NotEmpty(t, store.All())
}

func TestBookConcurrentWithoutBarrier(t *testing.T) {
	svc, store, inv := newService(t, roomType(1, 5))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := svc.Book(context.Background(), request(1, uint64(i+1), "2026-10-01", "2026-10-02", 1)); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 5, ok)
	assert.Len(t, store.All(), 5)
	assert.NoError(t, bookingtest.CheckInvariant(inv, store))
}

func TestBookCalendarOverrideCitesDate(t *testing.T) {
	room := roomType(1, 10)
	room.Calendar = []model.CalendarEntry{{Date: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), Stock: intp(2)}}
	svc, store, _ := newService(t, room)

	_, err := svc.Book(context.Background(), request(1, 1, "2026-10-01", "2026-10-02", 3))

	var cerr *booking.CapacityError
	require.True(t, errors.As(err, &cerr))
	require.NotNil(t, cerr.Date)
	assert.Equal(t, "2026-10-01", cerr.Date.Format(booking.DateLayout))
	assert.Contains(t, err.Error(), "2026-10-01")
	assert.Empty(t, store.All())
}

func TestBookSequentialOverlap(t *testing.T) {
	svc, store, _ := newService(t, roomType(1, 5))

	first, err := svc.Book(context.Background(), request(1, 1, "2026-10-01", "2026-10-04", 3))
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaid, first.Status)
	assert.NotZero(t, first.ID)
	assert.NotNil(t, first.VerifiedAt)
	assert.Equal(t, int64(12000*3*3), first.TotalPriceCents)
	assert.Equal(t, uint64(7), first.HotelID)

	_, err = svc.Book(context.Background(), request(1, 2, "2026-10-03", "2026-10-06", 3))
	assert.True(t, errors.Is(err, booking.ErrCapacity))
	assert.Equal(t, "date 2026-10-03 insufficient inventory", err.Error())
	assert.Len(t, store.All(), 1)
}

func TestBookHalfOpenBackToBack(t *testing.T) {
	svc, _, _ := newService(t, roomType(1, 1))
	_, err := svc.Book(context.Background(), request(1, 1, "2026-10-01", "2026-10-03", 1))
	require.NoError(t, err)
	_, err = svc.Book(context.Background(), request(1, 2, "2026-10-03", "2026-10-05", 1))
	assert.NoError(t, err)
}

func TestBookZeroStockOverride(t *testing.T) {
	room := roomType(1, 5)
	room.Calendar = []model.CalendarEntry{{Date: time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), Stock: intp(0)}}
	svc, _, _ := newService(t, room)

	_, err := svc.Book(context.Background(), request(1, 1, "2026-12-30", "2027-01-02", 1))
	assert.Equal(t, "date 2026-12-31 insufficient inventory", err.Error())
}

func TestBookValidationBeforeLookup(t *testing.T) {
	svc, store, inv := newService(t, roomType(1, 5))

	tests := []struct {
		name  string
		req   booking.BookRequest
		field string
	}{
		{"equal dates", request(1, 1, "2026-10-01", "2026-10-01", 1), "check_out_date"},
		{"reversed dates", request(1, 1, "2026-10-05", "2026-10-01", 1), "check_out_date"},
		{"malformed date", request(1, 1, "2026/10/01", "2026-10-02", 1), "check_in_date"},
		{"zero quantity", request(1, 1, "2026-10-01", "2026-10-02", 0), "quantity"},
		{"negative quantity", request(1, 1, "2026-10-01", "2026-10-02", -2), "quantity"},
		{"missing room type", request(0, 1, "2026-10-01", "2026-10-02", 1), "room_type_id"},
		{"stay too long", request(1, 1, "0001-01-01", "9999-12-31", 1), "check_out_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Book(context.Background(), tt.req)
			var verr *booking.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
	assert.Zero(t, inv.Calls())
	assert.Zero(t, store.OverlapCalls())
}

func TestBookMaxNightsOption(t *testing.T) {
	store := bookingtest.NewMemStore(nil)
	inv := bookingtest.NewMemInventory(roomType(1, 5))
	svc := booking.NewService(inv, store, booking.WithMaxNights(3))

	_, err := svc.Book(context.Background(), request(1, 1, "2026-10-01", "2026-10-05", 1))
	var verr *booking.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Zero(t, inv.Calls())

	_, err = svc.Availability(context.Background(), 1, "2026-10-01", "2026-10-05")
	assert.True(t, errors.As(err, &verr), "got %v", err)

	_, err = svc.Book(context.Background(), request(1, 1, "2026-10-01", "2026-10-04", 1))
	assert.NoError(t, err)
}

func TestBookUnknownRoomType(t *testing.T) {
	svc, store, _ := newService(t, roomType(1, 5))

	_, err := svc.Book(context.Background(), request(99, 1, "2026-10-01", "2026-10-02", 1))
	assert.ErrorIs(t, err, booking.ErrRoomTypeNotFound)

	req := request(1, 1, "2026-10-01", "2026-10-02", 1)
	req.HotelID = 8
	_, err = svc.Book(context.Background(), req)
	assert.ErrorIs(t, err, booking.ErrRoomTypeNotFound)
	assert.Empty(t, store.All())
}

func TestBookInventoryFailure(t *testing.T) {
	svc, _, inv := newService(t, roomType(1, 5))
	inv.Err = errors.New("connection refused")

	_, err := svc.Book(context.Background(), request(1, 1, "2026-10-01", "2026-10-02", 1))
	require.Error(t, err)
	assert.NotErrorIs(t, err, booking.ErrRoomTypeNotFound)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestBookVerifiesAfterCallerCancels(t *testing.T) {
	svc, store, _ := newService(t, roomType(1, 2))
	ctx, cancel := context.WithCancel(context.Background())
	store.AfterInsert = func(model.Reservation) { cancel() }

	res, err := svc.Book(ctx, request(1, 1, "2026-10-01", "2026-10-02", 1))
	require.NoError(t, err)

	stored, err := store.Get(context.Background(), res.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.VerifiedAt)
}

func TestBookEvictedWhenSlotTakenAfterPreCheck(t *testing.T) {
	svc, store, _ := newService(t, roomType(1, 1))
	// Another booking lands between the pre-check and the write.
	store.BeforeInsert = func() {
		store.BeforeInsert = nil
		store.Put(model.Reservation{
			ID: 100, RoomTypeID: 1, HotelID: 7, UserID: 9,
			CheckIn:   time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
			CheckOut:  time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC),
			Quantity:  1,
			Status:    model.StatusPaid,
			CreatedAt: start.Add(-time.Second),
		})
	}

	_, err := svc.Book(context.Background(), request(1, 1, "2026-10-01", "2026-10-02", 1))
	assert.True(t, booking.IsEvicted(err))
	rows := store.All()
	require.Len(t, rows, 1)
	assert.Equal(t, uint64(100), rows[0].ID)
}

func TestCancelFreesCapacity(t *testing.T) {
	svc, _, _ := newService(t, roomType(1, 1))
	ctx := context.Background()

	res, err := svc.Book(ctx, request(1, 1, "2026-10-01", "2026-10-02", 1))
	require.NoError(t, err)
	_, err = svc.Book(ctx, request(1, 2, "2026-10-01", "2026-10-02", 1))
	require.ErrorIs(t, err, booking.ErrCapacity)

	_, err = svc.Cancel(ctx, 2, res.ID)
	assert.ErrorIs(t, err, booking.ErrReservationNotFound)

	cancelled, err := svc.Cancel(ctx, 1, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)

	again, err := svc.Cancel(ctx, 1, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, again.Status)

	_, err = svc.Book(ctx, request(1, 2, "2026-10-01", "2026-10-02", 1))
	assert.NoError(t, err)
}

func TestCompleteThenCancel(t *testing.T) {
	svc, _, _ := newService(t, roomType(1, 1))
	ctx := context.Background()

	res, err := svc.Book(ctx, request(1, 1, "2026-10-01", "2026-10-02", 1))
	require.NoError(t, err)

	done, err := svc.Complete(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, done.Status)

	_, err = svc.Cancel(ctx, 1, res.ID)
	assert.ErrorIs(t, err, booking.ErrInvalidTransition)

	// Completed stays still hold their nights.
	_, err = svc.Book(ctx, request(1, 2, "2026-10-01", "2026-10-02", 1))
	assert.ErrorIs(t, err, booking.ErrCapacity)

	_, err = svc.Complete(ctx, 999)
	assert.ErrorIs(t, err, booking.ErrReservationNotFound)
}

func TestGetAndList(t *testing.T) {
	svc, _, _ := newService(t, roomType(1, 5))
	ctx := context.Background()

	a, err := svc.Book(ctx, request(1, 1, "2026-10-01", "2026-10-02", 1))
	require.NoError(t, err)
	b, err := svc.Book(ctx, request(1, 1, "2026-11-01", "2026-11-02", 1))
	require.NoError(t, err)
	_, err = svc.Book(ctx, request(1, 2, "2026-10-01", "2026-10-02", 1))
	require.NoError(t, err)

	got, err := svc.Get(ctx, 1, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = svc.Get(ctx, 2, a.ID)
	assert.ErrorIs(t, err, booking.ErrReservationNotFound)

	list, err := svc.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, a.ID, list[1].ID)
}

func TestAvailability(t *testing.T) {
	room := roomType(1, 3)
	room.Calendar = []model.CalendarEntry{{Date: time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC), Stock: intp(1)}}
	svc, _, _ := newService(t, room)
	ctx := context.Background()

	_, err := svc.Book(ctx, request(1, 1, "2026-10-01", "2026-10-03", 1))
	require.NoError(t, err)

	q, err := svc.Availability(ctx, 1, "2026-10-01", "2026-10-04")
	require.NoError(t, err)
	assert.Equal(t, 3, q.Nights)
	assert.Equal(t, int64(12000), q.NightlyPriceCents)
	require.Len(t, q.Days, 3)
	assert.Equal(t, 2, q.Days[0].Remaining)
	assert.Equal(t, 0, q.Days[1].Remaining)
	assert.Equal(t, 1, q.Days[1].Limit)
	assert.Equal(t, 3, q.Days[2].Remaining)
	assert.False(t, q.Available(1))

	q, err = svc.Availability(ctx, 1, "2026-10-03", "2026-10-05")
	require.NoError(t, err)
	assert.True(t, q.Available(3))

	_, err = svc.Availability(ctx, 42, "2026-10-01", "2026-10-02")
	assert.ErrorIs(t, err, booking.ErrRoomTypeNotFound)

	_, err = svc.Availability(ctx, 1, "2026-10-02", "2026-10-01")
	var verr *booking.ValidationError
	assert.True(t, errors.As(err, &verr))
}
