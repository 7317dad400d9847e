package plan

import (
	"errors"
	"testing"

	"github.com/artpar/imgquota/domain/period"
)

func TestDefaultCatalog_Free(t *testing.T) {
	c := DefaultCatalog()

	limit, err := c.LimitFor(Free)
	if err != nil {
		t.Fatalf("LimitFor(FREE) error: %v", err)
	}
	if limit.Granularity != period.Day {
		t.Errorf("Granularity = %q, want day", limit.Granularity)
	}
	if limit.Max != 20 {
		t.Errorf("Max = %d, want 20", limit.Max)
	}
}

func TestLimitFor_Idempotent(t *testing.T) {
	c := DefaultCatalog()
	for _, id := range []string{Free, Pro, Business} {
		a, errA := c.LimitFor(id)
		b, errB := c.LimitFor(id)
		if errA != nil || errB != nil {
			t.Fatalf("LimitFor(%s) errors: %v, %v", id, errA, errB)
		}
		if a != b {
			t.Errorf("LimitFor(%s) not idempotent: %+v vs %+v", id, a, b)
		}
	}
}

func TestLimitFor_UnknownPlan(t *testing.T) {
	c := DefaultCatalog()
	_, err := c.LimitFor("ENTERPRISE")
	if !errors.Is(err, ErrUnknownPlan) {
		t.Errorf("err = %v, want ErrUnknownPlan", err)
	}
}

func TestLimitFor_CaseInsensitive(t *testing.T) {
	c := DefaultCatalog()
	limit, err := c.LimitFor(" pro ")
	if err != nil {
		t.Fatalf("LimitFor error: %v", err)
	}
	if limit.Max != 500 {
		t.Errorf("Max = %d, want 500", limit.Max)
	}
}

func TestNewCatalog_Validation(t *testing.T) {
	tests := []struct {
		name  string
		plans []Plan
	}{
		{"empty id", []Plan{{ID: "", Granularity: period.Day, Max: 1}}},
		{"duplicate", []Plan{{ID: "A", Granularity: period.Day, Max: 1}, {ID: "a", Granularity: period.Day, Max: 2}}},
		{"bad granularity", []Plan{{ID: "A", Granularity: "week", Max: 1}}},
		{"zero max", []Plan{{ID: "A", Granularity: period.Month, Max: 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.plans...)
			if !errors.Is(err, ErrInvalidPlan) {
				t.Errorf("err = %v, want ErrInvalidPlan", err)
			}
		})
	}
}

func TestNewCatalog_BadGranularityWrapsPeriodError(t *testing.T) {
	_, err := NewCatalog(Plan{ID: "A", Granularity: "hour", Max: 1})
	if !errors.Is(err, period.ErrInvalidGranularity) {
		t.Errorf("err = %v, want to wrap ErrInvalidGranularity", err)
	}
}

func TestNewCatalog_CopiesInput(t *testing.T) {
	plans := []Plan{{ID: "custom", Granularity: period.Day, Max: 5}}
	c, err := NewCatalog(plans...)
	if err != nil {
		t.Fatalf("NewCatalog error: %v", err)
	}

	plans[0].Max = 500

	limit, _ := c.LimitFor("CUSTOM")
	if limit.Max != 5 {
		t.Errorf("catalog changed with caller slice: Max = %d", limit.Max)
	}

	got := c.Plans()
	got[0].Max = 99
	limit, _ = c.LimitFor("custom")
	if limit.Max != 5 {
		t.Errorf("catalog changed through Plans(): Max = %d", limit.Max)
	}
	if got[0].Name != "CUSTOM" {
		t.Errorf("Name default = %q, want CUSTOM", got[0].Name)
	}
}

func TestPlans_Sorted(t *testing.T) {
	plans := DefaultCatalog().Plans()
	if len(plans) != 3 {
		t.Fatalf("len = %d, want 3", len(plans))
	}
	want := []string{Business, Free, Pro}
	for i, p := range plans {
		if p.ID != want[i] {
			t.Errorf("plans[%d] = %s, want %s", i, p.ID, want[i])
		}
	}
}

func TestZeroCatalog(t *testing.T) {
	var c Catalog
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
	if _, err := c.LimitFor(Free); !errors.Is(err, ErrUnknownPlan) {
		t.Errorf("err = %v, want ErrUnknownPlan", err)
	}
}
