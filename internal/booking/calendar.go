package booking

import (
	"time"

	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// DailyLimit returns how many rooms of the room type may be sold for
// the night starting on day: the calendar's stock override when one
// exists for that date, otherwise the base stock.
func DailyLimit(room model.RoomType, day time.Time) int {
	day = Day(day)
	for _, e := range room.Calendar {
		if e.Stock != nil && Day(e.Date).Equal(day) {
			return *e.Stock
		}
	}
	return room.BaseStock
}

// DayAvailability is the capacity picture of one night.
type DayAvailability struct {
	Date      time.Time `json:"-"`
	Limit     int       `json:"limit"`
	Used      int       `json:"used"`
	Remaining int       `json:"remaining"`
}

// UsageOn sums the quantity of active reservations covering day.
func UsageOn(day time.Time, reservations []model.Reservation) int {
	used := 0
	for _, r := range reservations {
		if r.IsActive() && r.Covers(day) {
			used += r.Quantity
		}
	}
	return used
}

// DayUsage computes limit, usage and remaining rooms for every night in
// days.  Remaining never goes below zero.
func DayUsage(room model.RoomType, days []time.Time, reservations []model.Reservation) []DayAvailability {
	out := make([]DayAvailability, 0, len(days))
	for _, d := range days {
		limit := DailyLimit(room, d)
		used := UsageOn(d, reservations)
		remaining := limit - used
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, DayAvailability{Date: d, Limit: limit, Used: used, Remaining: remaining})
	}
	return out
}
