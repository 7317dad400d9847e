// Package quota provides pure functions for quota enforcement.
// All functions are deterministic with no side effects.
package quota

import (
	"github.com/artpar/imgquota/domain/period"
)

// ReasonQuotaExceeded is the denial reason when a request would exceed the plan limit.
const ReasonQuotaExceeded = "QUOTA_EXCEEDED"

// WarningLevel indicates how close to or over quota the identity is.
type WarningLevel int

const (
	WarningNone        WarningLevel = iota // < 80%
	WarningApproaching                     // >= 80%
	WarningCritical                        // >= 95%
	WarningExceeded                        // >= 100%
)

// Decision is the outcome of a quota check (value type).
//
// Used is the window total after the decision: it includes the requested
// quantity when admitted and excludes it when denied.
type Decision struct {
	Admitted     bool
	Reason       string // empty when admitted
	EntryID      string // ledger entry written for an admitted request
	PlanID       string
	Used         int64
	Requested    int64
	Limit        int64
	Remaining    int64
	PercentUsed  float64
	WarningLevel WarningLevel
	Window       period.Window
}

// Check decides whether requested units fit on top of current within max.
// It compares against the remaining headroom so huge requests cannot wrap.
// This is a PURE function - no side effects.
func Check(current, requested, max int64) Decision {
	d := Decision{
		Requested: requested,
		Limit:     max,
	}

	if requested > max-current {
		d.Reason = ReasonQuotaExceeded
		d.Used = current
	} else {
		d.Admitted = true
		d.Used = current + requested
	}

	d.Remaining = max - d.Used
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	d.PercentUsed = percent(d.Used, max)
	d.WarningLevel = LevelFor(d.PercentUsed)
	return d
}

// Status describes current usage without a request (read-only view).
// This is a PURE function.
func Status(current, max int64) Decision {
	d := Check(current, 0, max)
	d.Admitted = current < max
	if !d.Admitted {
		d.Reason = ReasonQuotaExceeded
	}
	return d
}

// LevelFor maps a usage percentage to a warning level.
// This is a PURE function.
func LevelFor(pct float64) WarningLevel {
	switch {
	case pct >= 100:
		return WarningExceeded
	case pct >= 95:
		return WarningCritical
	case pct >= 80:
		return WarningApproaching
	default:
		return WarningNone
	}
}

func percent(used, max int64) float64 {
	if max <= 0 {
		return 0
	}
	return float64(used) / float64(max) * 100
}

// String returns the string representation of a warning level.
func (w WarningLevel) String() string {
	switch w {
	case WarningNone:
		return "none"
	case WarningApproaching:
		return "approaching"
	case WarningCritical:
		return "critical"
	case WarningExceeded:
		return "exceeded"
	default:
		return "unknown"
	}
}
