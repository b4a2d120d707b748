package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Overlaps reports whether the half-open intervals [s1,e1) and [s2,e2)
// intersect. Touching endpoints do not overlap, so back-to-back
// appointments are fine.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// overlapsAny checks [start,end) against every scheduled appointment in
// appts, skipping exclude (uuid.Nil excludes nothing). Non-scheduled
// rows never count: a cancelled or completed slot is rebookable.
func overlapsAny(appts []Appointment, start, end time.Time, exclude uuid.UUID) bool {
	for _, a := range appts {
		if a.Status != StatusScheduled {
			continue
		}
		if exclude != uuid.Nil && a.ID == exclude {
			continue
		}
		if Overlaps(a.StartTime, a.EndTime, start, end) {
			return true
		}
	}
	return false
}
