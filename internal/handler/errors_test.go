package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/hotel-room-booking/internal/booking"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
)

func TestWriteError(t *testing.T) {
	day := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &booking.ValidationError{Field: "quantity", Msg: "must be at least 1"}, http.StatusBadRequest, CodeValidation},
		{"room type", booking.ErrRoomTypeNotFound, http.StatusNotFound, CodeNotFound},
		{"reservation", booking.ErrReservationNotFound, http.StatusNotFound, CodeNotFound},
		{"pre-check", &booking.CapacityError{Date: &day}, http.StatusBadRequest, CodeInsufficient},
		{"post-check", &booking.CapacityError{}, http.StatusBadRequest, CodeSoldOut},
		{"transition", booking.ErrInvalidTransition, http.StatusConflict, CodeInvalidTransition},
		{"duplicate", repository.ErrConflict, http.StatusConflict, CodeConflict},
		{"compensation", fmt.Errorf("%w: reservation 4: boom", booking.ErrCompensationFailed), http.StatusInternalServerError, CodeCompensationFailed},
		{"storage", fmt.Errorf("insert reservation: %w", errors.New("connection reset")), http.StatusInternalServerError, CodeInternal},
		{"deadline", context.DeadlineExceeded, http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodPost, "/v1/bookings", nil), rec)
			assert.NoError(t, writeError(c, tt.err))
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), `"code":"`+tt.code+`"`)
		})
	}
}

func TestInternalErrorsAreHidden(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	_ = writeError(c, errors.New("dial tcp 10.0.0.5:3306: connection refused"))
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestRequestValidatorMessages(t *testing.T) {
	v := NewRequestValidator()
	field, msg, ok := describe(v.Validate(&CreateBookingRequest{
		HotelID: 1, RoomTypeID: 2, CheckInDate: "2026-10-01", CheckOutDate: "2026-10-02",
	}))
	assert.True(t, ok)
	assert.Equal(t, "quantity", field)
	assert.Equal(t, "must be at least 1", msg)

	assert.NoError(t, v.Validate(&CreateBookingRequest{
		HotelID: 1, RoomTypeID: 2, CheckInDate: "2026-10-01", CheckOutDate: "2026-10-02", Quantity: 1,
	}))

	_, _, ok = describe(errors.New("plain"))
	assert.False(t, ok)
}
