// Package clock provides Clock implementations.
package clock

import (
	"sync"
	"time"

	"github.com/artpar/imgquota/ports"
)

// Real returns the actual current time in the local zone.
type Real struct{}

// Now returns the current time.
func (Real) Now() time.Time {
	return time.Now()
}

// Zoned returns the current time in a fixed location, so period windows
// follow that zone's calendar regardless of the host's TZ.
type Zoned struct {
	loc *time.Location
}

// NewZoned creates a clock for the named IANA zone ("" or "Local" = host zone).
func NewZoned(name string) (*Zoned, error) {
	if name == "" {
		return &Zoned{loc: time.Local}, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}
	return &Zoned{loc: loc}, nil
}

// Now returns the current time in the configured zone.
func (z *Zoned) Now() time.Time {
	return time.Now().In(z.loc)
}

// Location returns the configured zone.
func (z *Zoned) Location() *time.Location {
	return z.loc
}

// Fake provides a controllable clock for testing.
type Fake struct {
	mu      sync.RWMutex
	current time.Time
}

// NewFake creates a fake clock set to the given time.
func NewFake(t time.Time) *Fake {
	return &Fake{current: t}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current
}

// Set sets the fake current time.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = t
}

// Advance moves the fake time forward by duration d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = f.current.Add(d)
}

var (
	_ ports.Clock = Real{}
	_ ports.Clock = (*Zoned)(nil)
	_ ports.Clock = (*Fake)(nil)
)
