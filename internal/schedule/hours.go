package schedule

import (
	"time"

	"github.com/velvetpaws/groomhub/internal/model"
)

// Closed reasons reported on availability responses.
const (
	ClosedWeeklyHours   = "closed_weekly_hours"
	ClosedBlockedDate   = "blocked_date"
	ClosedRecurringDate = "recurring_blocked_weekday"
)

// DayWindow is the resolved open period for one calendar day.
type DayWindow struct {
	Open         time.Time
	Close        time.Time
	Closed       bool
	ClosedReason string
}

// ResolveDay combines weekly business hours with blocked dates (one-off and
// recurring) into the open window for the given day. Blocked dates win over
// weekly hours.
func ResolveDay(day time.Time, hours []model.DayHours, blocked []model.BlockedDate) DayWindow {
	dateStr := day.Format("2006-01-02")
	weekday := int(day.Weekday())

	for _, b := range blocked {
		if b.Recurring {
			if b.Weekday == weekday {
				return DayWindow{Closed: true, ClosedReason: ClosedRecurringDate}
			}
			continue
		}
		if b.Date == dateStr {
			return DayWindow{Closed: true, ClosedReason: ClosedBlockedDate}
		}
	}

	for _, h := range hours {
		if h.Weekday != weekday {
			continue
		}
		if h.Closed || h.CloseMinute <= h.OpenMinute {
			return DayWindow{Closed: true, ClosedReason: ClosedWeeklyHours}
		}
		midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
		return DayWindow{
			Open:  midnight.Add(time.Duration(h.OpenMinute) * time.Minute),
			Close: midnight.Add(time.Duration(h.CloseMinute) * time.Minute),
		}
	}

	// No row for this weekday means the salon never opens on it.
	return DayWindow{Closed: true, ClosedReason: ClosedWeeklyHours}
}
