package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// BusinessHours is the daily booking window in local clock hours,
// half-open: a start at Close is already outside.
type BusinessHours struct {
	Open  int
	Close int
}

func (h BusinessHours) valid() bool {
	return h.Open >= 0 && h.Close <= 24 && h.Open < h.Close
}

// Contains reports whether t's local hour falls inside the window.
func (h BusinessHours) Contains(t time.Time) bool {
	hr := t.Hour()
	return hr >= h.Open && hr < h.Close
}

// SlotTimes enumerates the candidate start times for one day at fixed
// duration granularity. It only enumerates; availability is decided by
// the caller against existing bookings and the current time.
func SlotTimes(date time.Time, hours BusinessHours, duration time.Duration) ([]time.Time, error) {
	if duration <= 0 {
		return nil, ErrInvalidSlotDuration
	}
	if !hours.valid() {
		return nil, ErrInvalidBusinessHours
	}

	y, m, d := date.Date()
	open := time.Date(y, m, d, hours.Open, 0, 0, 0, date.Location())
	close := time.Date(y, m, d, hours.Close, 0, 0, 0, date.Location())

	var times []time.Time
	for t := open; t.Add(duration).Before(close) || t.Add(duration).Equal(close); t = t.Add(duration) {
		times = append(times, t)
	}
	return times, nil
}

// MarkAvailability turns candidate start times into slots. A slot is
// available iff it starts strictly after now and does not overlap any
// scheduled appointment in booked.
func MarkAvailability(times []time.Time, duration time.Duration, booked []Appointment, now time.Time) []Slot {
	slots := make([]Slot, 0, len(times))
	for _, t := range times {
		available := t.After(now) && !overlapsAny(booked, t, t.Add(duration), uuid.Nil)
		slots = append(slots, Slot{Time: t, Available: available})
	}
	return slots
}
