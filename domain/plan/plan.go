// Package plan provides plan value types and the immutable plan catalog.
package plan

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/artpar/imgquota/domain/period"
)

// ErrUnknownPlan is returned when a plan ID is not in the catalog.
var ErrUnknownPlan = errors.New("unknown plan")

// ErrInvalidPlan is returned by NewCatalog for malformed plan definitions.
var ErrInvalidPlan = errors.New("invalid plan")

// Built-in plan identifiers.
const (
	Free     = "FREE"
	Pro      = "PRO"
	Business = "BUSINESS"
)

// Plan represents a pricing tier (immutable value type).
type Plan struct {
	ID          string
	Name        string
	Granularity period.Granularity
	Max         int64 // units per period
}

// Limit is the quota part of a plan (value type).
type Limit struct {
	Granularity period.Granularity
	Max         int64
}

// Limit returns the plan's quota limit.
func (p Plan) Limit() Limit {
	return Limit{Granularity: p.Granularity, Max: p.Max}
}

// Defaults returns the built-in plan table.
func Defaults() []Plan {
	return []Plan{
		{ID: Free, Name: "Free", Granularity: period.Day, Max: 20},
		{ID: Pro, Name: "Pro", Granularity: period.Day, Max: 500},
		{ID: Business, Name: "Business", Granularity: period.Month, Max: 10000},
	}
}

// Catalog maps plan IDs to plans. The zero value is an empty catalog.
// A Catalog is never mutated after NewCatalog returns; share it freely.
type Catalog struct {
	plans map[string]Plan
}

// NewCatalog validates plans and builds a catalog from copies of them.
func NewCatalog(plans ...Plan) (Catalog, error) {
	m := make(map[string]Plan, len(plans))
	for i, p := range plans {
		p.ID = NormalizeID(p.ID)
		if p.ID == "" {
			return Catalog{}, fmt.Errorf("%w: plans[%d]: id is required", ErrInvalidPlan, i)
		}
		if _, dup := m[p.ID]; dup {
			return Catalog{}, fmt.Errorf("%w: duplicate plan id %q", ErrInvalidPlan, p.ID)
		}
		if !p.Granularity.Valid() {
			return Catalog{}, fmt.Errorf("%w: plan %q: %w", ErrInvalidPlan, p.ID,
				fmt.Errorf("%w: %q", period.ErrInvalidGranularity, string(p.Granularity)))
		}
		if p.Max < 1 {
			return Catalog{}, fmt.Errorf("%w: plan %q: max must be >= 1, got %d", ErrInvalidPlan, p.ID, p.Max)
		}
		if p.Name == "" {
			p.Name = p.ID
		}
		m[p.ID] = p
	}
	return Catalog{plans: m}, nil
}

// MustCatalog is like NewCatalog but panics on error. Use for hardcoded tables.
func MustCatalog(plans ...Plan) Catalog {
	c, err := NewCatalog(plans...)
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultCatalog returns a catalog of the built-in plans.
func DefaultCatalog() Catalog {
	return MustCatalog(Defaults()...)
}

// NormalizeID canonicalizes a plan ID for lookup.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// LimitFor returns the limit of the given plan.
// This is a PURE function.
func (c Catalog) LimitFor(planID string) (Limit, error) {
	p, err := c.Get(planID)
	if err != nil {
		return Limit{}, err
	}
	return p.Limit(), nil
}

// Get returns the plan with the given ID.
func (c Catalog) Get(planID string) (Plan, error) {
	p, ok := c.plans[NormalizeID(planID)]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %q", ErrUnknownPlan, planID)
	}
	return p, nil
}

// Plans returns all plans sorted by ID.
func (c Catalog) Plans() []Plan {
	out := make([]Plan, 0, len(c.plans))
	for _, p := range c.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of plans.
func (c Catalog) Len() int {
	return len(c.plans)
}
