package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-room-booking/internal/booking"
	"github.com/iliyamo/hotel-room-booking/internal/booking/bookingtest"
	"github.com/iliyamo/hotel-room-booking/internal/clock"
	"github.com/iliyamo/hotel-room-booking/internal/handler"
	"github.com/iliyamo/hotel-room-booking/internal/model"
	"github.com/iliyamo/hotel-room-booking/internal/utils"
)

const secret = "router-test-secret"

type fixture struct {
	e     *echo.Echo
	store *bookingtest.MemStore
	inv   *bookingtest.MemInventory
}

func newFixture(t *testing.T, rooms ...model.RoomType) *fixture {
	t.Helper()
	clk := clock.NewStepping(time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC), time.Microsecond)
	store := bookingtest.NewMemStore(clk)
	inv := bookingtest.NewMemInventory(rooms...)
	svc := booking.NewService(inv, store, booking.WithClock(clk))

	e := echo.New()
	RegisterRoutes(e, Deps{
		Health:    handler.NewHealthHandler(nil),
		Booking:   handler.NewBookingHandler(svc),
		Owner:     handler.NewOwnerHandler(inv),
		JWTSecret: secret,
	})
	return &fixture{e: e, store: store, inv: inv}
}

func token(t *testing.T, userID uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, userID, role, time.Hour)
	require.NoError(t, err)
	return tok.Token
}

func (f *fixture) do(t *testing.T, method, path, tok, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if tok != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	var out map[string]interface{}
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func room(stock int) model.RoomType {
	return model.RoomType{ID: 1, HotelID: 7, Name: "Standard", BasePriceCents: 12000, BaseStock: stock}
}

func bookingBody(in, out string, qty int) string {
	b, _ := json.Marshal(map[string]interface{}{
		"hotel_id": 7, "room_type_id": 1, "check_in_date": in, "check_out_date": out, "quantity": qty,
	})
	return string(b)
}

func TestCreateBooking(t *testing.T) {
	f := newFixture(t, room(5))
	rec, body := f.do(t, http.MethodPost, "/v1/bookings", token(t, 11, model.RoleCustomer),
		bookingBody("2026-10-01", "2026-10-03", 2))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "paid", body["status"])
	assert.Equal(t, "2026-10-01", body["check_in"])
	assert.Equal(t, "2026-10-03", body["check_out"])
	assert.EqualValues(t, 2, body["nights"])
	assert.EqualValues(t, 48000, body["total_price_cents"])
	assert.EqualValues(t, 11, body["user_id"])
	assert.NotEmpty(t, body["verified_at"])
}

func TestCreateBookingErrors(t *testing.T) {
	room := room(10)
	room.Calendar = []model.CalendarEntry{{Date: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), Stock: intp(2)}}
	f := newFixture(t, room)
	customer := token(t, 11, model.RoleCustomer)

	tests := []struct {
		name   string
		tok    string
		body   string
		status int
		code   string
		msg    string
	}{
		{"no token", "", bookingBody("2026-10-01", "2026-10-02", 1), http.StatusUnauthorized, "unauthorized", ""},
		{"owner cannot book", token(t, 2, model.RoleOwner), bookingBody("2026-10-01", "2026-10-02", 1), http.StatusForbidden, "forbidden", ""},
		{"bad json", customer, "{", http.StatusBadRequest, "validation_error", "invalid request body"},
		{"missing date", customer, `{"hotel_id":7,"room_type_id":1,"check_out_date":"2026-10-02","quantity":1}`, http.StatusBadRequest, "validation_error", "check_in_date: is required"},
		{"bad date", customer, bookingBody("2026-13-01", "2026-10-02", 1), http.StatusBadRequest, "validation_error", "check_in_date: must be a date in YYYY-MM-DD format"},
		{"zero quantity", customer, bookingBody("2026-10-01", "2026-10-02", 0), http.StatusBadRequest, "validation_error", "quantity: must be at least 1"},
		{"reversed", customer, bookingBody("2026-10-02", "2026-10-01", 1), http.StatusBadRequest, "validation_error", "check_out_date: must be after check_in_date"},
		{"override", customer, bookingBody("2026-10-01", "2026-10-02", 3), http.StatusBadRequest, "insufficient_inventory", "date 2026-10-01 insufficient inventory"},
		{"unknown room", customer, `{"hotel_id":7,"room_type_id":99,"check_in_date":"2026-10-01","check_out_date":"2026-10-02","quantity":1}`, http.StatusNotFound, "not_found", ""},
		{"wrong hotel", customer, `{"hotel_id":8,"room_type_id":1,"check_in_date":"2026-10-01","check_out_date":"2026-10-02","quantity":1}`, http.StatusNotFound, "not_found", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := f.do(t, http.MethodPost, "/v1/bookings", tt.tok, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, body["code"])
			if tt.msg != "" {
				assert.Equal(t, tt.msg, body["error"])
			}
		})
	}
	assert.Empty(t, f.store.All())
}

func TestConcurrentBookingsOverHTTP(t *testing.T) {
	f := newFixture(t, room(5))
	customer := token(t, 11, model.RoleCustomer)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		codes = map[int]int{}
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/v1/bookings", strings.NewReader(bookingBody("2026-10-01", "2026-10-02", 1)))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+customer)
			rec := httptest.NewRecorder()
			f.e.ServeHTTP(rec, req)
			mu.Lock()
			codes[rec.Code]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, codes[http.StatusCreated])
	assert.Equal(t, 15, codes[http.StatusBadRequest])
	assert.Len(t, f.store.All(), 5)
	assert.NoError(t, bookingtest.CheckInvariant(f.inv, f.store))
}

func TestReservationLifecycle(t *testing.T) {
	f := newFixture(t, room(1))
	alice := token(t, 11, model.RoleCustomer)
	bob := token(t, 12, model.RoleCustomer)
	owner := token(t, 1, model.RoleOwner)

	rec, created := f.do(t, http.MethodPost, "/v1/bookings", alice, bookingBody("2026-10-01", "2026-10-02", 1))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := int(created["id"].(float64))
	path := "/v1/reservations/" + itoa(id)

	rec, _ = f.do(t, http.MethodGet, path, alice, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, body := f.do(t, http.MethodGet, path, bob, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", body["code"])

	rec, body = f.do(t, http.MethodGet, "/v1/my-reservations", alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["reservations"], 1)

	rec, body = f.do(t, http.MethodPost, "/v1/owner/reservations/"+itoa(id)+"/complete", alice, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body = f.do(t, http.MethodPost, "/v1/owner/reservations/"+itoa(id)+"/complete", owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", body["status"])

	rec, body = f.do(t, http.MethodPost, path+"/cancel", alice, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", body["code"])

	rec, _ = f.do(t, http.MethodGet, "/v1/reservations/abc", alice, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelReleasesNight(t *testing.T) {
	f := newFixture(t, room(1))
	alice := token(t, 11, model.RoleCustomer)
	bob := token(t, 12, model.RoleCustomer)

	rec, created := f.do(t, http.MethodPost, "/v1/bookings", alice, bookingBody("2026-10-01", "2026-10-02", 1))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := itoa(int(created["id"].(float64)))

	rec, body := f.do(t, http.MethodPost, "/v1/bookings", bob, bookingBody("2026-10-01", "2026-10-02", 1))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "insufficient_inventory", body["code"])

	rec, body = f.do(t, http.MethodPost, "/v1/reservations/"+id+"/cancel", alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", body["status"])

	rec, _ = f.do(t, http.MethodPost, "/v1/bookings", bob, bookingBody("2026-10-01", "2026-10-02", 1))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAvailabilityIsPublic(t *testing.T) {
	f := newFixture(t, room(3))
	_, _ = f.do(t, http.MethodPost, "/v1/bookings", token(t, 11, model.RoleCustomer), bookingBody("2026-10-01", "2026-10-02", 2))

	rec, body := f.do(t, http.MethodGet, "/v1/room-types/1/availability?check_in=2026-10-01&check_out=2026-10-03&quantity=2", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 2, body["nights"])
	assert.EqualValues(t, 12000, body["nightly_price_cents"])
	assert.Equal(t, false, body["available"])
	days := body["days"].([]interface{})
	require.Len(t, days, 2)
	first := days[0].(map[string]interface{})
	assert.Equal(t, "2026-10-01", first["date"])
	assert.EqualValues(t, 3, first["limit"])
	assert.EqualValues(t, 2, first["used"])
	assert.EqualValues(t, 1, first["remaining"])

	rec, body = f.do(t, http.MethodGet, "/v1/room-types/1/availability?check_in=2026-10-03&check_out=2026-10-01", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", body["code"])

	rec, _ = f.do(t, http.MethodGet, "/v1/room-types/9/availability?check_in=2026-10-01&check_out=2026-10-02", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOwnerRoomTypes(t *testing.T) {
	f := newFixture(t)
	owner := token(t, 1, model.RoleOwner)

	rec, body := f.do(t, http.MethodPost, "/v1/owner/room-types", owner,
		`{"hotel_id":7,"name":"Suite","base_price_cents":30000,"base_stock":2}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := itoa(int(body["id"].(float64)))

	rec, body = f.do(t, http.MethodPut, "/v1/owner/room-types/"+id+"/calendar/2026-12-31", owner, `{"stock":0}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, body["calendar"], 1)

	rec, body = f.do(t, http.MethodPost, "/v1/bookings", token(t, 11, model.RoleCustomer),
		`{"hotel_id":7,"room_type_id":`+id+`,"check_in_date":"2026-12-30","check_out_date":"2027-01-01","quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "date 2026-12-31 insufficient inventory", body["error"])

	rec, body = f.do(t, http.MethodPut, "/v1/owner/room-types/"+id+"/calendar/31-12-2026", owner, `{"stock":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = f.do(t, http.MethodPost, "/v1/owner/room-types", owner, `{"hotel_id":7,"base_stock":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", body["code"])
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec, _ := f.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func intp(n int) *int { return &n }

func itoa(n int) string { return strconv.Itoa(n) }
