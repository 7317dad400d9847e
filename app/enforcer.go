// Package app provides application services that orchestrate domain logic.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"github.com/artpar/imgquota/domain/period"
	"github.com/artpar/imgquota/domain/plan"
	"github.com/artpar/imgquota/domain/quota"
	"github.com/artpar/imgquota/domain/usage"
	"github.com/artpar/imgquota/ports"
)

// Strategy selects how the read-check-append sequence is made safe.
type Strategy string

const (
	// StrategyAtomic delegates count-and-append to the ledger in one call.
	StrategyAtomic Strategy = "atomic"
	// StrategyLocked serializes each identity behind an in-process lock.
	StrategyLocked Strategy = "locked"
	// StrategyNone checks then appends with no coordination. Under N
	// concurrent callers an identity can be admitted up to max+N-1 units.
	StrategyNone Strategy = "none"
)

// ParseStrategy parses a strategy name. Empty selects automatically.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case "", StrategyAtomic, StrategyLocked, StrategyNone:
		return st, nil
	default:
		return "", fmt.Errorf("unknown enforcement strategy %q", s)
	}
}

// Recorder receives enforcement measurements. *metrics.Collector implements it.
type Recorder interface {
	ObserveConsume(planID, strategy, outcome string, quantity int64, d time.Duration)
	ObserveStoreError(op string)
	ObservePartialFailure()
}

type noopRecorder struct{}

func (noopRecorder) ObserveConsume(string, string, string, int64, time.Duration) {}
func (noopRecorder) ObserveStoreError(string)                                  {}
func (noopRecorder) ObservePartialFailure()                                     {}

// Consume outcomes reported to the Recorder.
const (
	outcomeAdmitted = "admitted"
	outcomeDenied   = "denied"
	outcomeError    = "error"
)

// Request is one metered action to be admitted or denied.
type Request struct {
	Identity string
	PlanID   string
	Quantity int64
	Bytes    int64
	Status   usage.Status // defaults to success
	Metadata map[string]string
}

func (r Request) validate() error {
	switch {
	case strings.TrimSpace(r.Identity) == "":
		return fmt.Errorf("%w: identity is required", quota.ErrInvalidInput)
	case r.Quantity < 1:
		return fmt.Errorf("%w: quantity must be >= 1, got %d", quota.ErrInvalidInput, r.Quantity)
	case r.Bytes < 0:
		return fmt.Errorf("%w: bytes must be >= 0, got %d", quota.ErrInvalidInput, r.Bytes)
	case r.Status != "" && !r.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", quota.ErrInvalidInput, r.Status)
	}
	return nil
}

// EnforcerDeps contains dependencies for Enforcer.
type EnforcerDeps struct {
	Ledger  ports.UsageLedger
	Clock   ports.Clock
	IDGen   ports.IDGenerator
	Logger  zerolog.Logger
	Metrics Recorder // optional
}

// EnforcerConfig contains configuration for Enforcer.
type EnforcerConfig struct {
	Catalog     plan.Catalog
	Strategy    Strategy      // empty: atomic when the ledger supports it, else locked
	ReadRetries int           // extra attempts for a failed window read
	RetryDelay  time.Duration // initial backoff between read attempts
	Timeout     time.Duration // per-call deadline applied on top of the caller's
}

// Enforcer admits or denies metered actions against plan limits.
// It keeps no cached totals: every decision reads the ledger.
type Enforcer struct {
	ledger       ports.UsageLedger
	atomicLedger ports.AtomicLedger
	clock        ports.Clock
	idGen        ports.IDGenerator
	logger       zerolog.Logger
	metrics      Recorder

	strategy    Strategy
	readRetries int
	retryDelay  time.Duration
	timeout     time.Duration

	catalog atomic.Pointer[plan.Catalog]
	locks   *keyedMutex
}

// NewEnforcer creates a new enforcer.
func NewEnforcer(deps EnforcerDeps, cfg EnforcerConfig) (*Enforcer, error) {
	if deps.Ledger == nil {
		return nil, errors.New("enforcer: ledger is required")
	}
	if deps.Clock == nil || deps.IDGen == nil {
		return nil, errors.New("enforcer: clock and id generator are required")
	}
	if cfg.Catalog.Len() == 0 {
		return nil, errors.New("enforcer: catalog has no plans")
	}

	e := &Enforcer{
		ledger:      deps.Ledger,
		clock:       deps.Clock,
		idGen:       deps.IDGen,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
		strategy:    cfg.Strategy,
		readRetries: cfg.ReadRetries,
		retryDelay:  cfg.RetryDelay,
		timeout:     cfg.Timeout,
		locks:       newKeyedMutex(),
	}
	if e.metrics == nil {
		e.metrics = noopRecorder{}
	}
	if e.retryDelay <= 0 {
		e.retryDelay = 50 * time.Millisecond
	}
	if e.readRetries < 0 {
		e.readRetries = 0
	}

	al, isAtomic := deps.Ledger.(ports.AtomicLedger)
	switch e.strategy {
	case "":
		e.strategy = StrategyLocked
		if isAtomic {
			e.strategy = StrategyAtomic
		}
	case StrategyAtomic:
		if !isAtomic {
			return nil, fmt.Errorf("enforcer: strategy %q requires a ledger with atomic append", StrategyAtomic)
		}
	case StrategyLocked, StrategyNone:
	default:
		return nil, fmt.Errorf("enforcer: unknown strategy %q", e.strategy)
	}
	if e.strategy == StrategyAtomic {
		e.atomicLedger = al
	}

	e.SetCatalog(cfg.Catalog)
	return e, nil
}

// Strategy returns the active strategy.
func (e *Enforcer) Strategy() Strategy {
	return e.strategy
}

// Catalog returns the current plan catalog.
func (e *Enforcer) Catalog() plan.Catalog {
	return *e.catalog.Load()
}

// SetCatalog atomically replaces the plan catalog.
// In-flight calls finish with the catalog they started with.
func (e *Enforcer) SetCatalog(c plan.Catalog) {
	e.catalog.Store(&c)
}

// TryConsume decides whether req fits in the identity's current window and,
// when it does, records it in the ledger.
//
// A denial is a Decision with Admitted=false and a nil error. Errors are
// classified by the quota package: ErrInvalidInput, ErrUnknownPlan,
// ErrInvalidGranularity, ErrStoreUnavailable, ErrTimeout or ErrPartialFailure.
func (e *Enforcer) TryConsume(ctx context.Context, req Request) (quota.Decision, error) {
	started := time.Now()
	planID := plan.NormalizeID(req.PlanID)

	d, err := e.tryConsume(ctx, req, planID)

	outcome := outcomeAdmitted
	switch {
	case err != nil:
		outcome = outcomeError
	case !d.Admitted:
		outcome = outcomeDenied
	}
	e.metrics.ObserveConsume(planID, string(e.strategy), outcome, req.Quantity, time.Since(started))

	return d, err
}

func (e *Enforcer) tryConsume(ctx context.Context, req Request, planID string) (quota.Decision, error) {
	if err := req.validate(); err != nil {
		return quota.Decision{}, err
	}

	limit, err := e.Catalog().LimitFor(planID)
	if err != nil {
		return quota.Decision{}, err
	}

	now := e.clock.Now()
	w, err := period.Compute(limit.Granularity, now)
	if err != nil {
		return quota.Decision{}, err
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	entry := usage.NewEntry(e.idGen.New(), req.Identity, planID, req.Quantity, req.Bytes, req.Status, req.Metadata, now)
	log := e.logger.With().
		Str("identity", req.Identity).
		Str("plan_id", planID).
		Int64("quantity", req.Quantity).
		Logger()

	var d quota.Decision
	switch e.strategy {
	case StrategyAtomic:
		d, err = e.consumeAtomic(ctx, entry, w, limit.Max)
	case StrategyLocked:
		unlock, lerr := e.locks.Lock(ctx, req.Identity)
		if lerr != nil {
			return quota.Decision{}, quota.StoreError("lock", lerr)
		}
		d, err = e.consumeChecked(ctx, entry, w, limit.Max)
		unlock()
	default:
		d, err = e.consumeChecked(ctx, entry, w, limit.Max)
	}

	if err != nil {
		if quota.IsPartialFailure(err) {
			e.metrics.ObservePartialFailure()
			log.Error().Err(err).
				Bool("alert", true).
				Str("entry_id", entry.ID).
				Msg("admitted request was not recorded")
		} else {
			log.Warn().Err(err).Msg("consume failed")
		}
		return quota.Decision{}, err
	}

	d.PlanID = planID
	d.Window = w
	if d.Admitted {
		d.EntryID = entry.ID
		log.Debug().Int64("used", d.Used).Int64("limit", d.Limit).Msg("consume admitted")
	} else {
		log.Debug().Int64("used", d.Used).Int64("limit", d.Limit).Msg("consume denied")
	}
	return d, nil
}

// consumeAtomic lets the ledger decide and write in one step. A failed call
// is a store error: the write is never retried.
func (e *Enforcer) consumeAtomic(ctx context.Context, entry usage.Entry, w period.Window, max int64) (quota.Decision, error) {
	total, admitted, err := e.atomicLedger.AppendWithinLimit(ctx, entry, w, max)
	if err != nil {
		e.metrics.ObserveStoreError("append_within_limit")
		return quota.Decision{}, quota.StoreError("append_within_limit", err)
	}

	if admitted {
		return quota.Check(total-entry.Quantity, entry.Quantity, max), nil
	}
	d := quota.Check(total, entry.Quantity, max)
	if d.Admitted {
		// The ledger saw a larger total than it reported; trust its refusal.
		d.Admitted = false
		d.Reason = quota.ReasonQuotaExceeded
	}
	return d, nil
}

// consumeChecked reads the window total, decides, then appends.
func (e *Enforcer) consumeChecked(ctx context.Context, entry usage.Entry, w period.Window, max int64) (quota.Decision, error) {
	total, err := e.sumWithRetry(ctx, entry.Identity, w)
	if err != nil {
		return quota.Decision{}, err
	}

	d := quota.Check(total, entry.Quantity, max)
	if !d.Admitted {
		return d, nil
	}

	if _, err := e.ledger.Append(ctx, entry); err != nil {
		e.metrics.ObserveStoreError("append")
		return quota.Decision{}, quota.PartialFailure(err)
	}
	return d, nil
}

// sumWithRetry reads the window total, retrying transient failures with
// exponential backoff. Deadlines are never retried.
func (e *Enforcer) sumWithRetry(ctx context.Context, identity string, w period.Window) (int64, error) {
	op := func() (int64, error) {
		total, err := e.ledger.SumWithinWindow(ctx, identity, w)
		if err == nil {
			return total, nil
		}
		e.metrics.ObserveStoreError("sum")
		err = quota.StoreError("sum", err)
		if errors.Is(err, quota.ErrTimeout) || !quota.IsRetryable(err) {
			return 0, backoff.Permanent(err)
		}
		return 0, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.retryDelay

	total, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(e.readRetries+1)),
	)
	if err != nil {
		return 0, quota.StoreError("sum", err)
	}
	return total, nil
}

// Status reports the identity's usage in its current window without writing.
func (e *Enforcer) Status(ctx context.Context, identity, planID string) (quota.Decision, error) {
	if strings.TrimSpace(identity) == "" {
		return quota.Decision{}, fmt.Errorf("%w: identity is required", quota.ErrInvalidInput)
	}

	planID = plan.NormalizeID(planID)
	limit, err := e.Catalog().LimitFor(planID)
	if err != nil {
		return quota.Decision{}, err
	}

	w, err := period.Compute(limit.Granularity, e.clock.Now())
	if err != nil {
		return quota.Decision{}, err
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	total, err := e.sumWithRetry(ctx, identity, w)
	if err != nil {
		return quota.Decision{}, err
	}

	d := quota.Status(total, limit.Max)
	d.PlanID = planID
	d.Window = w
	return d, nil
}

// Window returns the current window for planID.
func (e *Enforcer) Window(planID string) (period.Window, error) {
	limit, err := e.Catalog().LimitFor(planID)
	if err != nil {
		return period.Window{}, err
	}
	return period.Compute(limit.Granularity, e.clock.Now())
}
