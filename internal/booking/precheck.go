package booking

import (
	"time"

	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// PreCheck rejects a request that would already overcommit a night
// given the reservations visible now.  It names the first offending
// day.  Passing it reserves nothing.
func PreCheck(room model.RoomType, days []time.Time, existing []model.Reservation, quantity int) error {
	for _, d := range DayUsage(room, days, existing) {
		if d.Used+quantity > d.Limit {
			day := d.Date
			return &CapacityError{Date: &day}
		}
	}
	return nil
}
