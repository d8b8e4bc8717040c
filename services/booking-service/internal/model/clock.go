package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04"
	DateTimeLayout = "2006-01-02 15:04:05"
	MonthLayout    = "2006-01"
)

var dateTimeLayouts = []string{
	DateTimeLayout,
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

var ErrInvalidDate = errors.New("invalid date")

// WallClock drops the zone of t, keeping the clock reading.
func WallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q (want YYYY-MM-DD)", ErrInvalidDate, s)
	}
	return t, nil
}

// ParseDateTime accepts "YYYY-MM-DD HH:MM[:SS]", the same with a T separator,
// or RFC3339, whose offset is discarded.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return WallClock(t), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q (want YYYY-MM-DD HH:MM:SS)", ErrInvalidDate, s)
}

// CombineDateTime joins a date and an HH:MM[:SS] time of day.
func CombineDateTime(date, clock string) (time.Time, error) {
	day, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	clock = strings.TrimSpace(clock)
	var tod time.Time
	if tod, err = time.Parse(TimeLayout, clock); err != nil {
		if tod, err = time.Parse("15:04:05", clock); err != nil {
			return time.Time{}, fmt.Errorf("%w: time %q (want HH:MM)", ErrInvalidDate, clock)
		}
	}
	return day.Add(time.Duration(tod.Hour())*time.Hour +
		time.Duration(tod.Minute())*time.Minute +
		time.Duration(tod.Second())*time.Second), nil
}

func SlotLabel(t time.Time) string {
	return t.Format(TimeLayout)
}
