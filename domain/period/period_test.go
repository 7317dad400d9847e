package period

import (
	"errors"
	"testing"
	"time"
)

// -----------------------------------------------------------------------------
// Compute tests
// -----------------------------------------------------------------------------

func TestCompute_DayContainsReference(t *testing.T) {
	refs := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 29, 12, 30, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 23, 59, 59, 999999999, time.UTC),
		time.Date(2023, 6, 15, 8, 0, 0, 0, time.FixedZone("UTC+9", 9*3600)),
	}

	for _, ref := range refs {
		w, err := Compute(Day, ref)
		if err != nil {
			t.Fatalf("Compute(day, %v) error: %v", ref, err)
		}
		if ref.Before(w.Start) || ref.After(w.End) {
			t.Errorf("window %v does not contain %v", w, ref)
		}
		if !w.Contains(ref) {
			t.Errorf("Contains(%v) = false, want true", ref)
		}
	}
}

func TestCompute_DayBoundaries(t *testing.T) {
	ref := time.Date(2024, 3, 10, 14, 25, 0, 0, time.UTC)
	w, err := Compute(Day, ref)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}

	wantStart := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2024, 3, 10, 23, 59, 59, 999999999, time.UTC)
	if !w.Start.Equal(wantStart) {
		t.Errorf("Start = %v, want %v", w.Start, wantStart)
	}
	if !w.End.Equal(wantEnd) {
		t.Errorf("End = %v, want %v", w.End, wantEnd)
	}
}

func TestCompute_MonthEnd(t *testing.T) {
	tests := []struct {
		name    string
		ref     time.Time
		wantEnd time.Time
	}{
		{"leap february", time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{"non-leap february", time.Date(2023, 2, 15, 0, 0, 0, 0, time.UTC), time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC)},
		{"century non-leap", time.Date(2100, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2100, 2, 28, 0, 0, 0, 0, time.UTC)},
		{"thirty days", time.Date(2024, 4, 30, 23, 0, 0, 0, time.UTC), time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)},
		{"december rolls year", time.Date(2024, 12, 5, 0, 0, 0, 0, time.UTC), time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := Compute(Month, tt.ref)
			if err != nil {
				t.Fatalf("Compute error: %v", err)
			}
			y, m, d := w.End.Date()
			wy, wm, wd := tt.wantEnd.Date()
			if y != wy || m != wm || d != wd {
				t.Errorf("End date = %d-%02d-%02d, want %d-%02d-%02d", y, m, d, wy, wm, wd)
			}
			if w.End.Hour() != 23 || w.End.Minute() != 59 || w.End.Second() != 59 {
				t.Errorf("End time = %v, want 23:59:59", w.End)
			}
			if w.Start.Day() != 1 || w.Start.Hour() != 0 {
				t.Errorf("Start = %v, want first of month at midnight", w.Start)
			}
		})
	}
}

func TestCompute_InvalidGranularity(t *testing.T) {
	_, err := Compute(Granularity("week"), time.Now())
	if !errors.Is(err, ErrInvalidGranularity) {
		t.Errorf("err = %v, want ErrInvalidGranularity", err)
	}
}

func TestCompute_StartNotAfterEnd(t *testing.T) {
	ref := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 800; i++ {
		at := ref.Add(time.Duration(i) * 13 * time.Hour)
		for _, g := range Granularities {
			w, err := Compute(g, at)
			if err != nil {
				t.Fatalf("Compute error: %v", err)
			}
			if w.Start.After(w.End) {
				t.Fatalf("Start %v after End %v", w.Start, w.End)
			}
			if !w.Contains(at) {
				t.Fatalf("%s window %v does not contain %v", g, w, at)
			}
		}
	}
}

func TestCompute_KeepsLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	ref := time.Date(2024, 7, 4, 22, 0, 0, 0, loc)
	w, err := Compute(Day, ref)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	if w.Start.Location() != loc {
		t.Errorf("Start location = %v, want %v", w.Start.Location(), loc)
	}
	if w.Start.Day() != 4 {
		t.Errorf("Start day = %d, want 4 (local date)", w.Start.Day())
	}
}

// -----------------------------------------------------------------------------
// Window helpers
// -----------------------------------------------------------------------------

func TestWindow_NextAndReset(t *testing.T) {
	w, _ := Compute(Month, time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC))

	reset := w.ResetAt()
	if !reset.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ResetAt = %v, want 2024-02-01", reset)
	}

	next, err := w.Next(Month)
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	if next.End.Day() != 29 {
		t.Errorf("next End day = %d, want 29", next.End.Day())
	}
	if w.Contains(next.Start) {
		t.Error("windows overlap")
	}
}

func TestWindow_Duration(t *testing.T) {
	w, _ := Compute(Day, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	if w.Duration() != 24*time.Hour {
		t.Errorf("Duration = %v, want 24h", w.Duration())
	}
}

func TestParseGranularity(t *testing.T) {
	tests := []struct {
		in      string
		want    Granularity
		wantErr bool
	}{
		{"day", Day, false},
		{" Month ", Month, false},
		{"DAY", Day, false},
		{"year", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseGranularity(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidGranularity) {
				t.Errorf("ParseGranularity(%q) err = %v, want ErrInvalidGranularity", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseGranularity(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

func TestCurrent_UsesClock(t *testing.T) {
	now := time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC)
	w, err := Current(Month, fixedClock(now))
	if err != nil {
		t.Fatalf("Current error: %v", err)
	}
	if w.Start.Month() != time.February || w.End.Day() != 29 {
		t.Errorf("Current = %v, want February 2024", w)
	}
}
