package schedule

import (
	"time"

	"github.com/velvetpaws/groomhub/internal/model"
)

// DayAvailability is the computed slot list for one date. Slots are ephemeral;
// they are recomputed on every query and never persisted.
type DayAvailability struct {
	IsClosed     bool
	ClosedReason string
	Slots        []model.TimeSlot
}

// SlotsForDay produces candidate start times at the given granularity across
// the open window, each marked available or not against the existing
// appointments. A slot is available iff [start, start+duration) does not
// overlap any occupying appointment's effective interval (duration + buffer).
// Slots whose duration would run past closing are not emitted at all.
func SlotsForDay(win DayWindow, duration, granularity, buffer time.Duration, appts []model.Appointment) DayAvailability {
	if win.Closed {
		return DayAvailability{IsClosed: true, ClosedReason: win.ClosedReason, Slots: []model.TimeSlot{}}
	}
	if duration <= 0 || granularity <= 0 {
		return DayAvailability{Slots: []model.TimeSlot{}}
	}

	slots := []model.TimeSlot{}
	for t := win.Open; !t.Add(duration).After(win.Close); t = t.Add(granularity) {
		n := ConflictCount(t, duration, appts, buffer)
		slots = append(slots, model.TimeSlot{
			StartTime:     t.Format("15:04"),
			Available:     n == 0,
			ConflictCount: n,
		})
	}
	return DayAvailability{Slots: slots}
}
