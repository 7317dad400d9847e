// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"

	"github.com/artpar/imgquota/domain/period"
	"github.com/artpar/imgquota/domain/usage"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// Hasher checks secrets against stored hashes.
type Hasher interface {
	// Hash generates a hash from a plaintext value.
	Hash(plaintext string) ([]byte, error)

	// Compare checks if plaintext matches hash.
	Compare(hash []byte, plaintext string) bool
}

// -----------------------------------------------------------------------------
// Ledger Ports
// -----------------------------------------------------------------------------

// UsageLedger is the append-only store of usage entries.
// Implementations return errors classified by quota.StoreError.
type UsageLedger interface {
	// Append records one entry and returns its ID.
	Append(ctx context.Context, e usage.Entry) (string, error)

	// SumWithinWindow returns the total quantity of the identity's entries
	// whose timestamp lies in [w.Start, w.End]. Returns 0 when there are none.
	SumWithinWindow(ctx context.Context, identity string, w period.Window) (int64, error)
}

// AtomicLedger is a ledger that can count-and-append in one atomic step.
type AtomicLedger interface {
	UsageLedger

	// AppendWithinLimit appends e only if the identity's total inside w plus
	// e.Quantity stays <= max. It returns the total after the operation
	// (including e when admitted) and whether e was written.
	AppendWithinLimit(ctx context.Context, e usage.Entry, w period.Window, max int64) (total int64, admitted bool, err error)
}

// UsageHistory exposes read-side queries over the ledger.
type UsageHistory interface {
	// Recent returns the identity's latest entries, newest first.
	Recent(ctx context.Context, identity string, limit int) ([]usage.Entry, error)

	// Summarize aggregates the identity's entries inside w.
	Summarize(ctx context.Context, identity string, w period.Window) (usage.Summary, error)
}

// Ledger is the full ledger surface implemented by every adapter.
type Ledger interface {
	AtomicLedger
	UsageHistory

	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}
