package app

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestKeyedMutex_ExclusivePerKey(t *testing.T) {
	k := newKeyedMutex()
	ctx := context.Background()

	unlock, err := k.Lock(ctx, "a")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	// A different key is independent.
	unlockB, err := k.Lock(ctx, "b")
	if err != nil {
		t.Fatalf("Lock(b): %v", err)
	}
	unlockB()

	// The same key blocks until the deadline.
	tctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if _, err := k.Lock(tctx, "a"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("second Lock err = %v, want DeadlineExceeded", err)
	}

	unlock()
	unlock, err = k.Lock(ctx, "a")
	if err != nil {
		t.Fatalf("Lock after unlock: %v", err)
	}
	unlock()
}

func TestKeyedMutex_ReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		unlock, _ := k.Lock(ctx, key)
		unlock()
	}
	if k.size() != 0 {
		t.Errorf("size = %d, want 0 after all unlocks", k.size())
	}
}
