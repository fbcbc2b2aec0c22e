package marketdata

import (
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is an offset from UTC midnight.
type TimeOfDay time.Duration

// ParseTimeOfDay reads HH:MM or HH:MM:SS.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	raw = strings.TrimSpace(raw)
	var t time.Time
	var err error
	switch strings.Count(raw, ":") {
	case 1:
		t, err = time.Parse("15:04", raw)
	case 2:
		t, err = time.Parse("15:04:05", raw)
	default:
		return 0, fmt.Errorf("invalid time of day %q", raw)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", raw, err)
	}
	return TimeOfDay(time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second), nil
}

func (t TimeOfDay) String() string {
	d := time.Duration(t)
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

// Hours is the regular equity session in UTC.
type Hours struct {
	Open     TimeOfDay
	Close    TimeOfDay
	Holidays map[string]string // YYYY-MM-DD -> name
}

const holidayLayout = "2006-01-02"

// ParseHolidays reads "2026-12-25=Christmas;2026-11-26=Thanksgiving".
func ParseHolidays(raw string) (map[string]string, error) {
	out := map[string]string{}
	for _, item := range strings.Split(raw, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		date, name, _ := strings.Cut(item, "=")
		date = strings.TrimSpace(date)
		if _, err := time.Parse(holidayLayout, date); err != nil {
			return nil, fmt.Errorf("invalid holiday date %q: %w", date, err)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			name = "holiday"
		}
		out[date] = name
	}
	return out, nil
}

// IsOpen reports whether stocks trade at now and, when closed, why.
func (h Hours) IsOpen(now time.Time) (bool, string) {
	now = now.UTC()
	if name, ok := h.Holidays[now.Format(holidayLayout)]; ok {
		return false, name
	}
	switch now.Weekday() {
	case time.Saturday, time.Sunday:
		return false, "weekend"
	}
	y, m, d := now.Date()
	sinceMidnight := TimeOfDay(now.Sub(time.Date(y, m, d, 0, 0, 0, 0, time.UTC)))
	if sinceMidnight < h.Open || sinceMidnight >= h.Close {
		return false, fmt.Sprintf("market hours are %s-%s UTC", h.Open, h.Close)
	}
	return true, ""
}

// Clock binds Hours to a time source.
type Clock struct {
	Hours Hours
	Now   func() time.Time
}

func (c Clock) IsMarketOpen() (bool, string) {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return c.Hours.IsOpen(now())
}
