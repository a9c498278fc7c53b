package schedule

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestNextDeliveryDate(t *testing.T) {
	monday := date(2026, time.October, 19, 9, 30)

	tests := []struct {
		name     string
		weekdays []time.Weekday
		ref      time.Time
		horizon  int
		want     time.Time
		wantOK   bool
	}{
		{"same weekday is next week", []time.Weekday{time.Monday}, monday, 14, date(2026, time.October, 26, 0, 0), true},
		{"later this week", []time.Weekday{time.Friday, time.Tuesday}, monday, 14, date(2026, time.October, 20, 0, 0), true},
		{"default horizon", []time.Weekday{time.Sunday}, monday, 0, date(2026, time.October, 25, 0, 0), true},
		{"no weekdays", nil, monday, 14, time.Time{}, false},
		{"outside short horizon", []time.Weekday{time.Saturday}, monday, 3, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NextDeliveryDate(tt.weekdays, tt.ref, tt.horizon)
			if ok != tt.wantOK {
				t.Fatalf("ok: got %v, want %v", ok, tt.wantOK)
			}
			if !got.Equal(tt.want) {
				t.Errorf("date: got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNextDeliveryDate_WithinHorizon(t *testing.T) {
	ref := date(2026, time.October, 19, 23, 59)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		got, ok := NextDeliveryDate([]time.Weekday{wd}, ref, DefaultHorizonDays)
		if !ok {
			t.Fatalf("%s: expected a date", wd)
		}
		if !got.After(ref) || got.After(ref.AddDate(0, 0, DefaultHorizonDays)) {
			t.Errorf("%s: %s outside (ref, ref+14]", wd, got)
		}
		if got.Weekday() != wd {
			t.Errorf("weekday: got %s, want %s", got.Weekday(), wd)
		}
	}
}

func TestTakeEffectDate(t *testing.T) {
	s := DefaultSettings()
	upcoming := date(2026, time.October, 25, 0, 0)
	following := date(2026, time.November, 1, 0, 0)

	tests := []struct {
		name string
		now  time.Time
		lock bool
		want time.Time
	}{
		{"monday before cutoff", date(2026, time.October, 19, 10, 0), true, upcoming},
		{"friday just before cutoff", date(2026, time.October, 23, 11, 59), true, upcoming},
		{"friday at cutoff locks", date(2026, time.October, 23, 12, 0), true, following},
		{"friday at cutoff, strict mode", date(2026, time.October, 23, 12, 0), false, upcoming},
		{"friday after cutoff, strict mode", date(2026, time.October, 23, 12, 1), false, following},
		{"saturday", date(2026, time.October, 24, 8, 0), true, following},
		{"sunday morning", date(2026, time.October, 18, 0, 0), true, upcoming},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.LockAtCutoff = tt.lock
			got := TakeEffectDate(s, tt.now)
			if !got.Equal(tt.want) {
				t.Errorf("got %s, want %s", got, tt.want)
			}
			if got.Weekday() != time.Sunday {
				t.Errorf("take-effect date %s is a %s", got, got.Weekday())
			}
		})
	}
}

func TestTakeEffectDate_AlwaysSunday(t *testing.T) {
	s := DefaultSettings()
	start := date(2026, time.January, 1, 0, 0)
	for h := 0; h < 24*60; h += 7 {
		now := start.Add(time.Duration(h) * time.Hour)
		if got := TakeEffectDate(s, now); got.Weekday() != time.Sunday {
			t.Fatalf("now=%s: got %s (%s)", now, got, got.Weekday())
		}
	}
}

func TestIsDeliveryDateLocked(t *testing.T) {
	s := DefaultSettings()
	beforeCutoff := date(2026, time.October, 20, 9, 0)
	afterCutoff := date(2026, time.October, 23, 15, 0)

	thisWeek := date(2026, time.October, 22, 0, 0)
	nextWeek := date(2026, time.October, 28, 0, 0)
	later := date(2026, time.November, 4, 0, 0)

	if !IsDeliveryDateLocked(s, thisWeek, beforeCutoff) {
		t.Error("current week should always be locked")
	}
	if IsDeliveryDateLocked(s, nextWeek, beforeCutoff) {
		t.Error("next week should be open before cutoff")
	}
	if !IsDeliveryDateLocked(s, nextWeek, afterCutoff) {
		t.Error("next week should lock after cutoff")
	}
	if IsDeliveryDateLocked(s, later, afterCutoff) {
		t.Error("the week after next should stay open")
	}
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("17:45")
	if err != nil || h != 17 || m != 45 {
		t.Fatalf("got %d:%d err=%v", h, m, err)
	}
	for _, bad := range []string{"", "1745", "24:00", "12:60", "ab:cd"} {
		if _, _, err := ParseClock(bad); err == nil {
			t.Errorf("ParseClock(%q): expected error", bad)
		}
	}
}

func TestParseWeekdays(t *testing.T) {
	got := ParseWeekdays([]string{"monday", "Funday", " FRIDAY "})
	if len(got) != 2 || got[0] != time.Monday || got[1] != time.Friday {
		t.Errorf("got %v", got)
	}
}
