// Package idgen provides ID generation implementations.
package idgen

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/artpar/imgquota/ports"
	"github.com/google/uuid"
	"go.jetify.com/typeid/v2"
)

// EntryPrefix is the TypeID prefix for ledger entries.
const EntryPrefix = "use"

// UUID generates UUIDs.
type UUID struct{}

// New generates a new UUID v4.
func (UUID) New() string {
	return uuid.New().String()
}

// TypeID generates K-sortable, prefix-qualified IDs ("use_01h2x...").
type TypeID struct {
	prefix string
}

// NewTypeID creates a TypeID generator. It fails for prefixes TypeID rejects.
func NewTypeID(prefix string) (*TypeID, error) {
	if _, err := typeid.Generate(prefix); err != nil {
		return nil, fmt.Errorf("typeid prefix %q: %w", prefix, err)
	}
	return &TypeID{prefix: prefix}, nil
}

// New generates the next TypeID.
func (g *TypeID) New() string {
	tid, err := typeid.Generate(g.prefix)
	if err != nil {
		// prefix was validated in NewTypeID
		panic(fmt.Sprintf("idgen: typeid generate: %v", err))
	}
	return tid.String()
}

// New returns a generator for the given format: "uuid" (default) or "typeid".
func New(format string) (ports.IDGenerator, error) {
	switch format {
	case "", "uuid":
		return UUID{}, nil
	case "typeid":
		return NewTypeID(EntryPrefix)
	default:
		return nil, fmt.Errorf("unknown id format %q", format)
	}
}

// Sequential generates sequential IDs (for testing).
type Sequential struct {
	prefix  string
	counter uint64
}

// NewSequential creates a sequential ID generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New generates the next sequential ID.
func (s *Sequential) New() string {
	n := atomic.AddUint64(&s.counter, 1)
	return s.prefix + strconv.FormatUint(n, 10)
}

// Reset resets the counter (for testing).
func (s *Sequential) Reset() {
	atomic.StoreUint64(&s.counter, 0)
}

// Ensure interface compliance.
var (
	_ ports.IDGenerator = UUID{}
	_ ports.IDGenerator = (*TypeID)(nil)
	_ ports.IDGenerator = (*Sequential)(nil)
)
