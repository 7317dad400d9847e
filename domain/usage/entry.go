// Package usage provides ledger entry types and aggregation functions.
// All functions are pure - no side effects.
package usage

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidEntry is returned by Entry.Validate.
var ErrInvalidEntry = errors.New("invalid usage entry")

// Status tags the outcome of the metered action an entry records.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusPending Status = "pending"
)

// Valid reports whether s is a known status. Empty is not valid.
func (s Status) Valid() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusPending:
		return true
	}
	return false
}

// Entry is one recorded unit of metered usage (immutable value type).
// Entries are created once per admitted action and never mutated.
type Entry struct {
	ID        string
	Identity  string
	PlanID    string
	Quantity  int64 // >= 1
	Bytes     int64 // optional size metric, 0 if unknown
	Status    Status
	Metadata  map[string]string
	Timestamp time.Time
}

// NewEntry creates an entry with defaults applied: success status,
// non-nil timestamp.
func NewEntry(id, identity, planID string, quantity, bytes int64, status Status, metadata map[string]string, at time.Time) Entry {
	if status == "" {
		status = StatusSuccess
	}
	return Entry{
		ID:        id,
		Identity:  identity,
		PlanID:    planID,
		Quantity:  quantity,
		Bytes:     bytes,
		Status:    status,
		Metadata:  metadata,
		Timestamp: at,
	}
}

// Validate checks the entry invariants.
func (e Entry) Validate() error {
	switch {
	case e.Identity == "":
		return fmt.Errorf("%w: identity is required", ErrInvalidEntry)
	case e.Quantity < 1:
		return fmt.Errorf("%w: quantity must be >= 1, got %d", ErrInvalidEntry, e.Quantity)
	case e.Bytes < 0:
		return fmt.Errorf("%w: bytes must be >= 0, got %d", ErrInvalidEntry, e.Bytes)
	case !e.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", ErrInvalidEntry, e.Status)
	case e.Timestamp.IsZero():
		return fmt.Errorf("%w: timestamp is required", ErrInvalidEntry)
	}
	return nil
}
