package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-booking/internal/booking"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
)

// Error codes returned in the "code" field of error bodies.
const (
	CodeValidation         = "validation_error"
	CodeNotFound           = "not_found"
	CodeInsufficient       = "insufficient_inventory"
	CodeSoldOut            = "sold_out"
	CodeConflict           = "conflict"
	CodeInvalidTransition  = "invalid_transition"
	CodeCompensationFailed = "compensation_failed"
	CodeInternal           = "internal_error"
	CodeUnauthorized       = "unauthorized"
)

func fail(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, echo.Map{"error": msg, "code": code})
}

// writeError maps booking and repository errors onto HTTP responses.
// Unknown errors are logged and hidden behind a generic 500.
func writeError(c echo.Context, err error) error {
	var verr *booking.ValidationError
	switch {
	case errors.As(err, &verr):
		return fail(c, http.StatusBadRequest, CodeValidation, verr.Error())
	case errors.Is(err, booking.ErrRoomTypeNotFound), errors.Is(err, booking.ErrReservationNotFound):
		return fail(c, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, booking.ErrSoldOut):
		return fail(c, http.StatusBadRequest, CodeSoldOut, err.Error())
	case errors.Is(err, booking.ErrCapacity):
		return fail(c, http.StatusBadRequest, CodeInsufficient, err.Error())
	case errors.Is(err, booking.ErrInvalidTransition):
		return fail(c, http.StatusConflict, CodeInvalidTransition, err.Error())
	case errors.Is(err, repository.ErrConflict):
		return fail(c, http.StatusConflict, CodeConflict, "already exists")
	case errors.Is(err, booking.ErrCompensationFailed):
		c.Logger().Errorf("booking compensation failed: %v", err)
		return fail(c, http.StatusInternalServerError, CodeCompensationFailed, "booking could not be settled; it will be reconciled")
	}
	c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	return fail(c, http.StatusInternalServerError, CodeInternal, "internal error")
}

// bindAndValidate binds the JSON body into req and runs the registered
// validator.  Failures come back as *booking.ValidationError.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return &booking.ValidationError{Msg: "invalid request body"}
	}
	if err := c.Validate(req); err != nil {
		if field, msg, ok := describe(err); ok {
			return &booking.ValidationError{Field: field, Msg: msg}
		}
		return &booking.ValidationError{Msg: err.Error()}
	}
	return nil
}
