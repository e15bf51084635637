package schedule

import (
	"testing"
	"time"

	"github.com/velvetpaws/groomhub/internal/model"
)

func mondayToSaturdayHours() []model.DayHours {
	var hours []model.DayHours
	for wd := 0; wd <= 6; wd++ {
		h := model.DayHours{Weekday: wd, OpenMinute: 540, CloseMinute: 1020} // 09:00-17:00
		if wd == 0 {
			h.Closed = true
		}
		hours = append(hours, h)
	}
	return hours
}

func appointment(day time.Time, hour, minute, durationMins int, status string) model.Appointment {
	return model.Appointment{
		ID:           "apt-1",
		ScheduledAt:  time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location()),
		DurationMins: durationMins,
		Status:       status,
	}
}

func TestSlotsForDay_SundayClosed(t *testing.T) {
	sunday := time.Date(2026, 9, 6, 0, 0, 0, 0, time.UTC) // a Sunday
	win := ResolveDay(sunday, mondayToSaturdayHours(), nil)

	got := SlotsForDay(win, 30*time.Minute, 30*time.Minute, 15*time.Minute, nil)
	if !got.IsClosed {
		t.Fatal("expected closed day")
	}
	if got.ClosedReason != ClosedWeeklyHours {
		t.Fatalf("unexpected closed reason: %s", got.ClosedReason)
	}
	if len(got.Slots) != 0 {
		t.Fatalf("expected empty slot list, got %d", len(got.Slots))
	}
}

func TestSlotsForDay_BufferBlocksFollowingSlot(t *testing.T) {
	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC) // a Monday
	win := ResolveDay(day, mondayToSaturdayHours(), nil)

	// Existing confirmed appointment 10:00 for 60 min with a 15 min buffer
	// occupies [10:00, 11:15). A 30 min slot at 10:30 must be unavailable,
	// and 11:00 too (11:00 < 11:15). 11:30 is the first free start after it.
	appts := []model.Appointment{appointment(day, 10, 0, 60, model.StatusConfirmed)}
	got := SlotsForDay(win, 30*time.Minute, 30*time.Minute, 15*time.Minute, appts)
	if got.IsClosed {
		t.Fatal("expected open day")
	}

	byStart := map[string]model.TimeSlot{}
	for _, s := range got.Slots {
		byStart[s.StartTime] = s
	}
	for _, start := range []string{"10:00", "10:30", "11:00"} {
		s, ok := byStart[start]
		if !ok {
			t.Fatalf("missing slot %s", start)
		}
		if s.Available {
			t.Fatalf("slot %s should be unavailable", start)
		}
		if s.ConflictCount != 1 {
			t.Fatalf("slot %s conflict count = %d, want 1", start, s.ConflictCount)
		}
	}
	if s := byStart["09:30"]; !s.Available {
		t.Fatal("slot 09:30 should be available")
	}
	if s := byStart["11:30"]; !s.Available {
		t.Fatal("slot 11:30 should be available")
	}
}

func TestSlotsForDay_NoBufferBeforeAppointment(t *testing.T) {
	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	win := ResolveDay(day, mondayToSaturdayHours(), nil)

	// A 30 min slot at 09:30 ends exactly when the 10:00 appointment starts.
	// The buffer applies after appointments only, so 09:30 stays bookable.
	appts := []model.Appointment{appointment(day, 10, 0, 60, model.StatusConfirmed)}
	got := SlotsForDay(win, 30*time.Minute, 30*time.Minute, 15*time.Minute, appts)
	for _, s := range got.Slots {
		if s.StartTime == "09:30" && !s.Available {
			t.Fatal("slot 09:30 should not be blocked by a later appointment's buffer")
		}
	}
}

func TestSlotsForDay_CancelledAndNoShowDoNotBlock(t *testing.T) {
	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	win := ResolveDay(day, mondayToSaturdayHours(), nil)

	appts := []model.Appointment{
		appointment(day, 10, 0, 60, model.StatusCancelled),
		appointment(day, 13, 0, 60, model.StatusNoShow),
	}
	got := SlotsForDay(win, 30*time.Minute, 30*time.Minute, 15*time.Minute, appts)
	for _, s := range got.Slots {
		if !s.Available {
			t.Fatalf("slot %s should be available when only cancelled/no-show appointments exist", s.StartTime)
		}
	}
}

func TestSlotsForDay_DurationPastClosingNotEmitted(t *testing.T) {
	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	win := ResolveDay(day, mondayToSaturdayHours(), nil)

	// 90 min service: the last emitted slot must start no later than 15:30.
	got := SlotsForDay(win, 90*time.Minute, 30*time.Minute, 15*time.Minute, nil)
	if len(got.Slots) == 0 {
		t.Fatal("expected slots")
	}
	last := got.Slots[len(got.Slots)-1]
	if last.StartTime != "15:30" {
		t.Fatalf("last slot = %s, want 15:30", last.StartTime)
	}
}

func TestSlotsForDay_DurationLongerThanOpenWindow(t *testing.T) {
	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	win := ResolveDay(day, mondayToSaturdayHours(), nil)

	got := SlotsForDay(win, 9*time.Hour, 30*time.Minute, 15*time.Minute, nil)
	if len(got.Slots) != 0 {
		t.Fatalf("expected no slots for a duration longer than the open window, got %d", len(got.Slots))
	}
}

func TestResolveDay_BlockedDates(t *testing.T) {
	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC) // Monday
	blocked := []model.BlockedDate{{Date: "2026-09-07", Reason: "staff training"}}
	win := ResolveDay(day, mondayToSaturdayHours(), blocked)
	if !win.Closed || win.ClosedReason != ClosedBlockedDate {
		t.Fatalf("expected blocked date closure, got %+v", win)
	}

	recurring := []model.BlockedDate{{Recurring: true, Weekday: 1}}
	win = ResolveDay(day, mondayToSaturdayHours(), recurring)
	if !win.Closed || win.ClosedReason != ClosedRecurringDate {
		t.Fatalf("expected recurring weekday closure, got %+v", win)
	}
}
