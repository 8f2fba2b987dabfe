package booking

import (
	"context"
	"time"
)

// Calendar answers the two read-side questions a booking depends on:
// whether a slot is occupied and how many hours a student already holds
// on a day.
type Calendar struct {
	store Store
}

// NewCalendar returns a Calendar backed by store.
func NewCalendar(store Store) *Calendar { return &Calendar{store: store} }

// HasConflict reports whether a reservation for room at startHour exists
// on day.  Slots are exactly one hour, so the end hour is not compared.
func (c *Calendar) HasConflict(ctx context.Context, roomID uint64, day time.Time, startHour int) (bool, error) {
	rs, err := c.store.ReservationsOn(ctx, day)
	if err != nil {
		return false, storageError("list reservations", err)
	}
	for _, r := range rs {
		if r.RoomID == roomID && r.StartHour == startHour {
			return true, nil
		}
	}
	return false, nil
}

// HoursBooked sums the hours of every reservation on day in which the
// student takes part as either participant.
func (c *Calendar) HoursBooked(ctx context.Context, studentID uint64, day time.Time) (int, error) {
	rs, err := c.store.ReservationsOn(ctx, day)
	if err != nil {
		return 0, storageError("list reservations", err)
	}
	total := 0
	for _, r := range rs {
		if r.Involves(studentID) {
			total += r.Hours()
		}
	}
	return total, nil
}
