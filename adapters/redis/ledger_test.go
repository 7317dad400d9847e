package redis_test

import (
	"context"
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/artpar/imgquota/adapters/redis"
	"github.com/artpar/imgquota/domain/period"
	"github.com/artpar/imgquota/domain/usage"
)

// newTestLedger connects to IMGQUOTA_TEST_REDIS_ADDR (default localhost:6379)
// and skips the test when Redis is not reachable.
func newTestLedger(t *testing.T) (*redis.Ledger, *goredis.Client, string) {
	t.Helper()

	addr := os.Getenv("IMGQUOTA_TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := goredis.NewClient(&goredis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("Skipping integration test: Redis not available (%v)", err)
	}

	prefix := fmt.Sprintf("imgquota_test_%d", time.Now().UnixNano())
	l, err := redis.NewLedger(context.Background(), client, prefix)
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	t.Cleanup(func() {
		keys, _ := client.Keys(context.Background(), prefix+":*").Result()
		if len(keys) > 0 {
			client.Del(context.Background(), keys...)
		}
		l.Close()
	})
	return l, client, prefix
}

var day = period.Window{
	Start: time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2024, 2, 15, 23, 59, 59, 999999999, time.UTC),
}

func entry(id, identity string, qty int64, at time.Time) usage.Entry {
	return usage.NewEntry(id, identity, "FREE", qty, 0, usage.StatusSuccess, nil, at)
}

func TestRedisLedger_Integration(t *testing.T) {
	l, client, prefix := newTestLedger(t)
	ctx := context.Background()

	t.Run("AppendAndSum", func(t *testing.T) {
		for _, e := range []usage.Entry{
			entry("e1", "sum-user", 2, day.Start),
			entry("e2", "sum-user", 3, day.End),
			entry("e3", "sum-user", 5, day.End.Add(time.Microsecond)),
			entry("e4", "sum-user", 7, day.Start.Add(-time.Microsecond)),
		} {
			if _, err := l.Append(ctx, e); err != nil {
				t.Fatalf("Append failed: %v", err)
			}
		}

		total, err := l.SumWithinWindow(ctx, "sum-user", day)
		if err != nil {
			t.Fatalf("SumWithinWindow failed: %v", err)
		}
		if total != 5 {
			t.Errorf("total = %d, want 5", total)
		}
	})

	t.Run("AppendWithinLimit", func(t *testing.T) {
		at := day.Start.Add(time.Hour)
		if _, err := l.Append(ctx, entry("seed", "limit-user", 19, at)); err != nil {
			t.Fatal(err)
		}

		total, ok, err := l.AppendWithinLimit(ctx, entry("a", "limit-user", 1, at), day, 20)
		if err != nil || !ok || total != 20 {
			t.Fatalf("first = %d, %v, %v; want 20, true, nil", total, ok, err)
		}
		total, ok, err = l.AppendWithinLimit(ctx, entry("b", "limit-user", 1, at), day, 20)
		if err != nil || ok || total != 20 {
			t.Fatalf("second = %d, %v, %v; want 20, false, nil", total, ok, err)
		}
	})

	t.Run("MaxInt64Denied", func(t *testing.T) {
		at := day.Start.Add(time.Hour)
		if _, err := l.Append(ctx, entry("seed", "huge-user", 1, at)); err != nil {
			t.Fatal(err)
		}
		total, ok, err := l.AppendWithinLimit(ctx, entry("h", "huge-user", math.MaxInt64, at), day, 20)
		if err != nil || ok || total != 1 {
			t.Fatalf("huge = %d, %v, %v; want 1, false, nil", total, ok, err)
		}
	})

	t.Run("SumReadsOnlyTheSortedSet", func(t *testing.T) {
		at := day.Start.Add(time.Hour)
		if _, err := l.Append(ctx, entry("k1", "keys-user", 4, at)); err != nil {
			t.Fatal(err)
		}
		if err := client.Del(ctx, prefix+":{keys-user}:entry:k1").Err(); err != nil {
			t.Fatal(err)
		}
		total, err := l.SumWithinWindow(ctx, "keys-user", day)
		if err != nil || total != 4 {
			t.Errorf("SumWithinWindow = %d, %v; want 4, nil", total, err)
		}
	})

	t.Run("ConcurrentAppendWithinLimit", func(t *testing.T) {
		at := day.Start.Add(time.Hour)
		var admitted int64
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, ok, err := l.AppendWithinLimit(ctx, entry(fmt.Sprintf("c%d", i), "race-user", 1, at), day, 20)
				if err != nil {
					t.Errorf("AppendWithinLimit: %v", err)
				}
				if ok {
					atomic.AddInt64(&admitted, 1)
				}
			}(i)
		}
		wg.Wait()
		if admitted != 20 {
			t.Errorf("admitted = %d, want 20", admitted)
		}
	})

	t.Run("RecentAndSummarize", func(t *testing.T) {
		l.Append(ctx, usage.NewEntry("r1", "hist-user", "PRO", 1, 10, usage.StatusFailed,
			map[string]string{"format": "avif"}, day.Start.Add(time.Hour)))
		l.Append(ctx, entry("r2", "hist-user", 2, day.Start.Add(2*time.Hour)))

		recent, err := l.Recent(ctx, "hist-user", 1)
		if err != nil {
			t.Fatalf("Recent failed: %v", err)
		}
		if len(recent) != 1 || recent[0].ID != "r2" {
			t.Errorf("Recent = %+v, want [r2]", recent)
		}

		s, err := l.Summarize(ctx, "hist-user", day)
		if err != nil {
			t.Fatalf("Summarize failed: %v", err)
		}
		if s.Quantity != 3 || s.Bytes != 10 || s.Entries != 2 || s.Failed != 1 {
			t.Errorf("Summarize = %+v", s)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := l.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})
}

func TestNewLedger_Unreachable(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	if _, err := redis.NewLedger(context.Background(), client, ""); err == nil {
		t.Error("NewLedger should fail when Redis is unreachable")
	}
}
