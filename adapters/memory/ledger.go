package memory

import (
	"context"
	"errors"
	"hash/fnv"
	"sort"
	"sync"

	"github.com/artpar/imgquota/domain/period"
	"github.com/artpar/imgquota/domain/quota"
	"github.com/artpar/imgquota/domain/usage"
	"github.com/artpar/imgquota/ports"
)

// ErrClosed is returned by operations on a closed ledger.
var ErrClosed = errors.New("memory ledger closed")

// ledgerShard is a single shard of the ledger.
type ledgerShard struct {
	mu      sync.RWMutex
	entries map[string][]usage.Entry // identity -> entries in append order
}

// Ledger is a sharded in-memory implementation of ports.Ledger.
// Identities hash to shards, so AppendWithinLimit is atomic per identity
// while unrelated identities do not contend.
type Ledger struct {
	shards    []*ledgerShard
	numShards int

	mu     sync.RWMutex
	closed bool
}

// LedgerConfig configures the in-memory ledger.
type LedgerConfig struct {
	NumShards int // Number of shards (default: 32)
}

// NewLedger creates a new sharded in-memory ledger.
func NewLedger(cfg LedgerConfig) *Ledger {
	if cfg.NumShards <= 0 {
		cfg.NumShards = 32
	}

	l := &Ledger{
		shards:    make([]*ledgerShard, cfg.NumShards),
		numShards: cfg.NumShards,
	}
	for i := range l.shards {
		l.shards[i] = &ledgerShard{entries: make(map[string][]usage.Entry)}
	}
	return l
}

// getShard returns the shard for an identity using consistent hashing.
func (l *Ledger) getShard(identity string) *ledgerShard {
	h := fnv.New32a()
	h.Write([]byte(identity))
	return l.shards[h.Sum32()%uint32(l.numShards)]
}

func (l *Ledger) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return quota.StoreError(op, err)
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return quota.StoreError(op, ErrClosed)
	}
	return nil
}

// Append records one entry.
func (l *Ledger) Append(ctx context.Context, e usage.Entry) (string, error) {
	if err := l.check(ctx, "append"); err != nil {
		return "", err
	}

	shard := l.getShard(e.Identity)
	shard.mu.Lock()
	shard.entries[e.Identity] = append(shard.entries[e.Identity], cloneEntry(e))
	shard.mu.Unlock()

	return e.ID, nil
}

// SumWithinWindow returns the identity's total quantity inside w.
func (l *Ledger) SumWithinWindow(ctx context.Context, identity string, w period.Window) (int64, error) {
	if err := l.check(ctx, "sum"); err != nil {
		return 0, err
	}

	shard := l.getShard(identity)
	shard.mu.RLock()
	defer shard.mu.RUnlock()

	return usage.SumWithin(shard.entries[identity], identity, w.Start, w.End), nil
}

// AppendWithinLimit sums and appends under the shard lock.
func (l *Ledger) AppendWithinLimit(ctx context.Context, e usage.Entry, w period.Window, max int64) (int64, bool, error) {
	if err := l.check(ctx, "append_within_limit"); err != nil {
		return 0, false, err
	}

	shard := l.getShard(e.Identity)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	total := usage.SumWithin(shard.entries[e.Identity], e.Identity, w.Start, w.End)
	if e.Quantity > max-total {
		return total, false, nil
	}

	shard.entries[e.Identity] = append(shard.entries[e.Identity], cloneEntry(e))
	return total + e.Quantity, true, nil
}

// Recent returns the identity's latest entries, newest first.
func (l *Ledger) Recent(ctx context.Context, identity string, limit int) ([]usage.Entry, error) {
	if err := l.check(ctx, "recent"); err != nil {
		return nil, err
	}

	shard := l.getShard(identity)
	shard.mu.RLock()
	src := shard.entries[identity]
	out := make([]usage.Entry, len(src))
	copy(out, src)
	shard.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Summarize aggregates the identity's entries inside w.
func (l *Ledger) Summarize(ctx context.Context, identity string, w period.Window) (usage.Summary, error) {
	if err := l.check(ctx, "summarize"); err != nil {
		return usage.Summary{}, err
	}

	shard := l.getShard(identity)
	shard.mu.RLock()
	defer shard.mu.RUnlock()

	return usage.Summarize(shard.entries[identity], identity, w.Start, w.End), nil
}

// Ping reports whether the ledger is open.
func (l *Ledger) Ping(ctx context.Context) error {
	return l.check(ctx, "ping")
}

// Close marks the ledger closed. Entries are kept for inspection.
func (l *Ledger) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	return nil
}

// Len returns the total number of entries across all shards (for testing).
func (l *Ledger) Len() int {
	total := 0
	for _, shard := range l.shards {
		shard.mu.RLock()
		for _, entries := range shard.entries {
			total += len(entries)
		}
		shard.mu.RUnlock()
	}
	return total
}

func cloneEntry(e usage.Entry) usage.Entry {
	if e.Metadata != nil {
		md := make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			md[k] = v
		}
		e.Metadata = md
	}
	return e
}

// Ensure interface compliance.
var _ ports.Ledger = (*Ledger)(nil)
