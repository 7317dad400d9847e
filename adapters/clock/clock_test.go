package clock_test

import (
	"testing"
	"time"

	"github.com/artpar/imgquota/adapters/clock"
)

func TestReal_Now(t *testing.T) {
	before := time.Now()
	got := clock.Real{}.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("Real.Now() = %v, want between %v and %v", got, before, after)
	}
}

func TestZoned_UsesLocation(t *testing.T) {
	z, err := clock.NewZoned("UTC")
	if err != nil {
		t.Fatalf("NewZoned error: %v", err)
	}
	if z.Now().Location() != time.UTC {
		t.Errorf("Location = %v, want UTC", z.Now().Location())
	}
	if z.Location() != time.UTC {
		t.Errorf("Location() = %v, want UTC", z.Location())
	}
}

func TestZoned_EmptyMeansLocal(t *testing.T) {
	z, err := clock.NewZoned("")
	if err != nil {
		t.Fatalf("NewZoned error: %v", err)
	}
	if z.Location() != time.Local {
		t.Errorf("Location() = %v, want Local", z.Location())
	}
}

func TestZoned_UnknownZone(t *testing.T) {
	if _, err := clock.NewZoned("Mars/Olympus_Mons"); err == nil {
		t.Error("expected error for unknown zone")
	}
}

func TestFake(t *testing.T) {
	start := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	f := clock.NewFake(start)

	if !f.Now().Equal(start) {
		t.Errorf("Now() = %v, want %v", f.Now(), start)
	}

	f.Advance(90 * time.Minute)
	if want := start.Add(90 * time.Minute); !f.Now().Equal(want) {
		t.Errorf("after Advance Now() = %v, want %v", f.Now(), want)
	}

	later := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	f.Set(later)
	if !f.Now().Equal(later) {
		t.Errorf("after Set Now() = %v, want %v", f.Now(), later)
	}
}

func TestFake_Concurrent(t *testing.T) {
	f := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	done := make(chan struct{})

	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				f.Advance(time.Second)
				_ = f.Now()
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(1000 * time.Second)
	if !f.Now().Equal(want) {
		t.Errorf("Now() = %v, want %v", f.Now(), want)
	}
}
