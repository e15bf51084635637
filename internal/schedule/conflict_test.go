package schedule

import (
	"testing"
	"time"

	"github.com/velvetpaws/groomhub/internal/model"
)

func TestOverlaps_HalfOpen(t *testing.T) {
	base := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		name           string
		s1Off, e1Off   int // minutes from base
		s2Off, e2Off   int
		want           bool
	}{
		{"identical", 0, 30, 0, 30, true},
		{"contained", 0, 60, 15, 30, true},
		{"partial", 0, 30, 15, 45, true},
		{"touching ends", 0, 30, 30, 60, false},
		{"disjoint", 0, 30, 60, 90, false},
	}
	for _, tc := range cases {
		got := Overlaps(
			base.Add(time.Duration(tc.s1Off)*time.Minute), base.Add(time.Duration(tc.e1Off)*time.Minute),
			base.Add(time.Duration(tc.s2Off)*time.Minute), base.Add(time.Duration(tc.e2Off)*time.Minute),
		)
		if got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestHasConflict_SkipsCancelledAndNoShow(t *testing.T) {
	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	appts := []model.Appointment{
		{ScheduledAt: day.Add(10 * time.Hour), DurationMins: 60, Status: model.StatusCancelled},
		{ScheduledAt: day.Add(10 * time.Hour), DurationMins: 60, Status: model.StatusNoShow},
	}
	if HasConflict(day.Add(10*time.Hour), 30*time.Minute, appts, 15*time.Minute) {
		t.Fatal("cancelled/no-show appointments must not conflict")
	}

	appts = append(appts, model.Appointment{
		ScheduledAt: day.Add(10 * time.Hour), DurationMins: 60, Status: model.StatusConfirmed,
	})
	if !HasConflict(day.Add(10*time.Hour), 30*time.Minute, appts, 15*time.Minute) {
		t.Fatal("confirmed appointment must conflict")
	}
}

func TestHasConflict_BufferExtendsOccupiedInterval(t *testing.T) {
	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	appts := []model.Appointment{
		{ScheduledAt: day.Add(10 * time.Hour), DurationMins: 60, Status: model.StatusConfirmed},
	}

	// Appointment occupies [10:00, 11:15) with a 15 min buffer.
	if !HasConflict(day.Add(11*time.Hour), 30*time.Minute, appts, 15*time.Minute) {
		t.Fatal("11:00 start should conflict with the 10:00 appointment's buffer")
	}
	if HasConflict(day.Add(11*time.Hour+15*time.Minute), 30*time.Minute, appts, 15*time.Minute) {
		t.Fatal("11:15 start should be clear of the buffer")
	}
	// Without buffer 11:00 is fine.
	if HasConflict(day.Add(11*time.Hour), 30*time.Minute, appts, 0) {
		t.Fatal("11:00 start should not conflict without buffer")
	}
}
