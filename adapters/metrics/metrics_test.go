package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/artpar/imgquota/adapters/metrics"
)

func TestNewWithRegistry(t *testing.T) {
	// Use a new registry to avoid conflicts with other tests
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	if m == nil {
		t.Fatal("NewWithRegistry returned nil")
	}
	if m.ConsumeTotal == nil {
		t.Error("ConsumeTotal is nil")
	}
	if m.PartialFailures == nil {
		t.Error("PartialFailures is nil")
	}
	if m.StoreErrors == nil {
		t.Error("StoreErrors is nil")
	}
	if m.RequestDuration == nil {
		t.Error("RequestDuration is nil")
	}
}

func TestObserveConsume(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.ObserveConsume("FREE", "atomic", metrics.OutcomeAdmitted, 3, 2*time.Millisecond)
	m.ObserveConsume("FREE", "atomic", metrics.OutcomeAdmitted, 1, time.Millisecond)
	m.ObserveConsume("FREE", "atomic", metrics.OutcomeDenied, 5, time.Millisecond)

	if got := testutil.ToFloat64(m.ConsumeTotal.WithLabelValues("FREE", metrics.OutcomeAdmitted)); got != 2 {
		t.Errorf("admitted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ConsumeTotal.WithLabelValues("FREE", metrics.OutcomeDenied)); got != 1 {
		t.Errorf("denied = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ConsumedUnits.WithLabelValues("FREE")); got != 4 {
		t.Errorf("consumed units = %v, want 4 (denied quantity excluded)", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "imgquota_consume_duration_seconds" {
			found = true
			if f.GetMetric()[0].GetHistogram().GetSampleCount() != 3 {
				t.Errorf("expected 3 observations, got %d", f.GetMetric()[0].GetHistogram().GetSampleCount())
			}
		}
	}
	if !found {
		t.Error("imgquota_consume_duration_seconds metric not found")
	}
}

func TestObserveFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.ObserveStoreError("sum")
	m.ObserveStoreError("sum")
	m.ObservePartialFailure()

	if got := testutil.ToFloat64(m.StoreErrors.WithLabelValues("sum")); got != 2 {
		t.Errorf("store errors = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.PartialFailures); got != 1 {
		t.Errorf("partial failures = %v, want 1", got)
	}
}

func TestObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.ObserveRequest("POST", "/v1/consume", 429, 10*time.Millisecond)

	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("POST", "/v1/consume", "429")); got != 1 {
		t.Errorf("requests = %v, want 1", got)
	}
}

func TestObserveReload(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	at := time.Unix(1700000000, 0)
	m.ObserveReload(nil, at)
	m.ObserveReload(errors.New("bad yaml"), at)

	if got := testutil.ToFloat64(m.ConfigReloads); got != 1 {
		t.Errorf("reloads = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ConfigReloadErrors); got != 1 {
		t.Errorf("reload errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ConfigLastReload); got != 1700000000 {
		t.Errorf("last reload = %v, want 1700000000", got)
	}
}

func TestNilCollector(t *testing.T) {
	var m *metrics.Collector

	// Must not panic.
	m.ObserveConsume("FREE", "none", metrics.OutcomeError, 1, time.Millisecond)
	m.ObserveStoreError("append")
	m.ObservePartialFailure()
	m.ObserveRequest("GET", "/health", 200, time.Millisecond)
	m.ObserveReload(nil, time.Now())
}
