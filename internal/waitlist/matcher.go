package waitlist

import (
	"sort"
	"strconv"
	"strings"

	"github.com/velvetpaws/groomhub/internal/model"
)

// MatchesPreference reports whether a slot start ("HH:MM") satisfies a
// time-of-day preference: morning is before 12:00, afternoon 12:00 or later,
// any always matches.
func MatchesPreference(pref string, slotTime string) bool {
	switch pref {
	case model.PreferAny, "":
		return true
	case model.PreferMorning:
		return slotHour(slotTime) < 12
	case model.PreferAfternoon:
		return slotHour(slotTime) >= 12
	default:
		return false
	}
}

func slotHour(slotTime string) int {
	h, _, ok := strings.Cut(slotTime, ":")
	if !ok {
		return -1
	}
	n, err := strconv.Atoi(h)
	if err != nil {
		return -1
	}
	return n
}

// Match filters active entries to those whose preference fits the slot,
// ordered oldest first so earlier joiners keep priority, capped at limit.
func Match(entries []model.WaitlistEntry, slotTime string, limit int) []model.WaitlistEntry {
	var out []model.WaitlistEntry
	for _, e := range entries {
		if e.Status != model.WaitlistActive {
			continue
		}
		if !MatchesPreference(e.TimePreference, slotTime) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
