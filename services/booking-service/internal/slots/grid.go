// Package slots generates the canonical list of bookable times of day.
package slots

import (
	"fmt"
	"time"

	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/model"
)

// Config describes a business day. Open and Close are offsets from midnight;
// Close is the last bookable start time, inclusive.
type Config struct {
	Open  time.Duration
	Close time.Duration
	Width time.Duration
}

func DefaultConfig() Config {
	return Config{Open: 8 * time.Hour, Close: 19 * time.Hour, Width: 30 * time.Minute}
}

// ParseConfig builds a Config from "HH:MM" bounds and a width in minutes.
func ParseConfig(open, closing string, widthMinutes int) (Config, error) {
	o, err := clockOffset(open)
	if err != nil {
		return Config{}, apperr.Wrap(apperr.KindConfig, err, "slot open time")
	}
	c, err := clockOffset(closing)
	if err != nil {
		return Config{}, apperr.Wrap(apperr.KindConfig, err, "slot close time")
	}
	cfg := Config{Open: o, Close: c, Width: time.Duration(widthMinutes) * time.Minute}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch {
	case c.Width <= 0:
		return apperr.New(apperr.KindConfig, "slot width must be positive (got %s)", c.Width)
	case c.Close <= c.Open:
		return apperr.New(apperr.KindConfig, "closing time %s must be after opening time %s", label(c.Close), label(c.Open))
	case c.Open < 0 || c.Close >= 24*time.Hour:
		return apperr.New(apperr.KindConfig, "business hours must fall within one day")
	}
	return nil
}

// Grid is an immutable, ordered set of slot labels.
type Grid struct {
	labels []string
	index  map[string]int
}

func New(cfg Config) (*Grid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &Grid{index: map[string]int{}}
	for t := cfg.Open; t <= cfg.Close; t += cfg.Width {
		l := label(t)
		g.index[l] = len(g.labels)
		g.labels = append(g.labels, l)
	}
	return g, nil
}

// Labels returns the grid in ascending order. The slice is a copy.
func (g *Grid) Labels() []string {
	out := make([]string, len(g.labels))
	copy(out, g.labels)
	return out
}

func (g *Grid) Len() int { return len(g.labels) }

func (g *Grid) Contains(l string) bool {
	_, ok := g.index[l]
	return ok
}

// Fits reports whether t starts exactly on a grid slot.
func (g *Grid) Fits(t time.Time) bool {
	return t.Second() == 0 && t.Nanosecond() == 0 && g.Contains(model.SlotLabel(t))
}

func label(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

func clockOffset(s string) (time.Duration, error) {
	t, err := time.Parse(model.TimeLayout, s)
	if err != nil {
		return 0, fmt.Errorf("want HH:MM, got %q", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
