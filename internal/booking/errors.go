package booking

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRoomTypeNotFound is returned when the room type does not exist
	// or does not belong to the requested hotel.
	ErrRoomTypeNotFound = errors.New("room type not found")
	// ErrReservationNotFound is returned when a reservation does not
	// exist or is not visible to the caller.
	ErrReservationNotFound = errors.New("reservation not found")
	// ErrCapacity matches every CapacityError, whether raised before or
	// after the write.
	ErrCapacity = errors.New("insufficient inventory")
	// ErrSoldOut matches capacity errors raised by the post-booking
	// check, after the tentative reservation was deleted.
	ErrSoldOut = errors.New("room type sold out for the requested dates")
	// ErrCompensationFailed means a reservation lost the post-booking
	// check but could not be deleted.  It stays unverified so the
	// reconciliation sweep retries the delete.
	ErrCompensationFailed = errors.New("compensating delete failed")
	// ErrReservationGone is returned by the verifier when the reservation
	// is no longer active at verification time.
	ErrReservationGone = errors.New("reservation no longer active")
	// ErrInvalidTransition is returned when a status change is not
	// allowed from the reservation's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError reports a malformed booking request.  It is always
// raised before inventory state is read.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func invalid(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }

// CapacityError reports that a booking would exceed the daily limit.
// Date is set by the pre-booking check and names the first offending
// day.  It is nil when the post-booking check evicted the reservation,
// since several days may have tipped at once.
type CapacityError struct {
	Date *time.Time
}

func (e *CapacityError) Error() string {
	if e.Date != nil {
		return fmt.Sprintf("date %s insufficient inventory", e.Date.Format(DateLayout))
	}
	return ErrSoldOut.Error()
}

// Is lets errors.Is match ErrCapacity for every capacity error and
// ErrSoldOut for post-check evictions.
func (e *CapacityError) Is(target error) bool {
	switch target {
	case ErrCapacity:
		return true
	case ErrSoldOut:
		return e.Date == nil
	}
	return false
}
