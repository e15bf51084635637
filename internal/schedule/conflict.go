package schedule

import (
	"errors"
	"time"

	"github.com/velvetpaws/groomhub/internal/model"
)

// ErrSlotConflict distinguishes a double-booking from plain validation errors,
// so callers can answer 409 and offer alternate times.
var ErrSlotConflict = errors.New("slot conflict")

// Overlaps reports whether the half-open intervals [s1,e1) and [s2,e2) intersect.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && e1.After(s2)
}

// EffectiveInterval is the calendar time an appointment occupies: its duration
// plus the cleanup buffer appended after it. The buffer is added after existing
// appointments only, not before candidate ones; groomers need cleanup time once
// a dog leaves, not before it arrives.
func EffectiveInterval(a model.Appointment, buffer time.Duration) (time.Time, time.Time) {
	return a.ScheduledAt, a.End().Add(buffer)
}

// HasConflict reports whether a candidate interval [start, start+duration)
// collides with any appointment that still occupies calendar time.
func HasConflict(start time.Time, duration time.Duration, appts []model.Appointment, buffer time.Duration) bool {
	return countConflicts(start, duration, appts, buffer, true) > 0
}

// ConflictCount returns how many occupying appointments overlap the candidate
// interval. Used to annotate unavailable slots.
func ConflictCount(start time.Time, duration time.Duration, appts []model.Appointment, buffer time.Duration) int {
	return countConflicts(start, duration, appts, buffer, false)
}

func countConflicts(start time.Time, duration time.Duration, appts []model.Appointment, buffer time.Duration, stopAtFirst bool) int {
	end := start.Add(duration)
	n := 0
	for _, a := range appts {
		if !a.Blocks() {
			continue
		}
		aptStart, aptEnd := EffectiveInterval(a, buffer)
		if Overlaps(start, end, aptStart, aptEnd) {
			n++
			if stopAtFirst {
				return n
			}
		}
	}
	return n
}
