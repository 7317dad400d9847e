// Package period provides pure functions for quota period windows.
// All functions are deterministic - same input always produces same output.
package period

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidGranularity is returned for granularities outside {day, month}.
var ErrInvalidGranularity = errors.New("invalid granularity")

// Granularity is the length of a quota period.
type Granularity string

const (
	Day   Granularity = "day"
	Month Granularity = "month"
)

// Granularities lists every supported granularity.
var Granularities = []Granularity{Day, Month}

// Valid reports whether g is a supported granularity.
func (g Granularity) Valid() bool {
	return g == Day || g == Month
}

// ParseGranularity normalizes s and validates it.
func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(strings.ToLower(strings.TrimSpace(s)))
	if !g.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidGranularity, s)
	}
	return g, nil
}

// Window is an inclusive [Start, End] interval (immutable value type).
type Window struct {
	Start time.Time
	End   time.Time
}

// lastInstant is the final representable instant of a calendar day.
const lastInstant = int(time.Second - time.Nanosecond)

// Compute returns the window of granularity g that contains ref.
// Boundaries are computed in ref's location.
// This is a PURE function.
func Compute(g Granularity, ref time.Time) (Window, error) {
	loc := ref.Location()
	y, m, d := ref.Date()

	switch g {
	case Day:
		return Window{
			Start: time.Date(y, m, d, 0, 0, 0, 0, loc),
			End:   time.Date(y, m, d, 23, 59, 59, lastInstant, loc),
		}, nil
	case Month:
		// Day 0 of the next month normalizes to the last day of this one,
		// which covers 28/29/30/31-day months without a lookup table.
		return Window{
			Start: time.Date(y, m, 1, 0, 0, 0, 0, loc),
			End:   time.Date(y, m+1, 0, 23, 59, 59, lastInstant, loc),
		}, nil
	default:
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidGranularity, string(g))
	}
}

// Clock is the subset of ports.Clock used here.
type Clock interface {
	Now() time.Time
}

// Current returns the window of granularity g containing clock.Now().
// A nil clock means wall-clock time.
func Current(g Granularity, clock Clock) (Window, error) {
	if clock == nil {
		return Compute(g, time.Now())
	}
	return Compute(g, clock.Now())
}

// Contains reports whether t falls inside w, both ends inclusive.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// ResetAt returns the first instant after the window.
func (w Window) ResetAt() time.Time {
	return w.End.Add(time.Nanosecond)
}

// Next returns the window of granularity g that follows w.
func (w Window) Next(g Granularity) (Window, error) {
	return Compute(g, w.ResetAt())
}

// Duration returns the length of the window.
func (w Window) Duration() time.Duration {
	return w.ResetAt().Sub(w.Start)
}

// String formats the window for logs and CLI output.
func (w Window) String() string {
	return w.Start.Format(time.RFC3339) + " .. " + w.End.Format(time.RFC3339Nano)
}
