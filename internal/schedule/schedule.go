// Package schedule computes delivery and take-effect dates under the weekly
// ordering cutoff.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultHorizonDays is how far ahead NextDeliveryDate looks.
const DefaultHorizonDays = 14

// Undated marks orders with no resolvable vendor. It sorts after every real date.
var Undated = time.Date(2099, time.December, 31, 0, 0, 0, 0, time.UTC)

// Settings is the weekly cutoff policy.
type Settings struct {
	CutoffDay    time.Weekday
	CutoffHour   int
	CutoffMinute int
	Location     *time.Location
	// LockAtCutoff makes the cutoff instant itself locked. When false only
	// instants strictly after the cutoff are locked.
	LockAtCutoff bool
}

// DefaultSettings is Friday 12:00 UTC, locking at the cutoff instant.
func DefaultSettings() Settings {
	return Settings{
		CutoffDay:    time.Friday,
		CutoffHour:   12,
		CutoffMinute: 0,
		Location:     time.UTC,
		LockAtCutoff: true,
	}
}

func (s Settings) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// ParseWeekday parses a full English weekday name, case-insensitively.
func ParseWeekday(name string) (time.Weekday, bool) {
	name = strings.TrimSpace(name)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), name) {
			return d, true
		}
	}
	return 0, false
}

// ParseWeekdays parses names, skipping anything that is not a weekday.
func ParseWeekdays(names []string) []time.Weekday {
	var out []time.Weekday
	for _, n := range names {
		if d, ok := ParseWeekday(n); ok {
			out = append(out, d)
		}
	}
	return out
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid clock %q: want HH:MM", s)
	}
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

// Midnight truncates t to the start of its day in its own location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WeekStart returns midnight of the Sunday on or before t.
func WeekStart(t time.Time) time.Time {
	return Midnight(t).AddDate(0, 0, -int(t.Weekday()))
}

// NextDeliveryDate returns the first date in ref+1 .. ref+horizonDays whose
// weekday is in weekdays. A non-positive horizon means DefaultHorizonDays.
func NextDeliveryDate(weekdays []time.Weekday, ref time.Time, horizonDays int) (time.Time, bool) {
	if len(weekdays) == 0 {
		return time.Time{}, false
	}
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	base := Midnight(ref)
	for i := 1; i <= horizonDays; i++ {
		d := base.AddDate(0, 0, i)
		for _, wd := range weekdays {
			if d.Weekday() == wd {
				return d, true
			}
		}
	}
	return time.Time{}, false
}

// Cutoff returns the cutoff instant of the week containing now.
func Cutoff(s Settings, now time.Time) time.Time {
	ws := WeekStart(now.In(s.location()))
	day := ws.AddDate(0, 0, int(s.CutoffDay))
	return time.Date(day.Year(), day.Month(), day.Day(), s.CutoffHour, s.CutoffMinute, 0, 0, day.Location())
}

// PastCutoff reports whether now is inside the locked part of its week.
func PastCutoff(s Settings, now time.Time) bool {
	cutoff := Cutoff(s, now)
	if s.LockAtCutoff {
		return !now.Before(cutoff)
	}
	return now.After(cutoff)
}

// TakeEffectDate returns the Sunday on which a change saved at now becomes
// binding: the upcoming Sunday before the cutoff, the Sunday after that once
// the cutoff has passed.
func TakeEffectDate(s Settings, now time.Time) time.Time {
	next := WeekStart(now.In(s.location())).AddDate(0, 0, 7)
	if PastCutoff(s, now) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

// IsDeliveryDateLocked reports whether a delivery on date can no longer be
// changed. The current week is always locked; next week locks at the cutoff.
func IsDeliveryDateLocked(s Settings, date, now time.Time) bool {
	loc := s.location()
	nextWeek := WeekStart(now.In(loc)).AddDate(0, 0, 7)
	d := Midnight(date.In(loc))
	if d.Before(nextWeek) {
		return true
	}
	if d.Before(nextWeek.AddDate(0, 0, 7)) {
		return PastCutoff(s, now)
	}
	return false
}
