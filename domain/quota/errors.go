package quota

import (
	"context"
	"errors"
	"net/http"

	"github.com/artpar/imgquota/domain/period"
	"github.com/artpar/imgquota/domain/plan"
)

// Sentinel errors for quota enforcement.
var (
	// Caller configuration errors. Not retried.
	ErrInvalidInput       = errors.New("quota: invalid input")
	ErrInvalidGranularity = period.ErrInvalidGranularity
	ErrUnknownPlan        = plan.ErrUnknownPlan

	// Store errors.
	ErrStoreUnavailable = errors.New("quota: store unavailable")
	ErrTimeout          = errors.New("quota: store timeout")

	// An admit decision was made but the ledger write failed.
	ErrPartialFailure = errors.New("quota: partial failure")
)

// IsConfigError returns true for caller configuration errors.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidGranularity) ||
		errors.Is(err, ErrUnknownPlan)
}

// IsRetryable returns true if the error is transient and the read can be retried.
// A partial failure is never retryable: retrying would double-admit.
func IsRetryable(err error) bool {
	if IsPartialFailure(err) {
		return false
	}
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrTimeout)
}

// IsPartialFailure returns true if an admit decision was made but not persisted.
func IsPartialFailure(err error) bool {
	return errors.Is(err, ErrPartialFailure)
}

// StoreError classifies a raw store error. Context deadlines become
// ErrTimeout, everything else ErrStoreUnavailable. The cause stays wrapped.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsRetryable(err) || IsPartialFailure(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &OpError{Op: op, Kind: ErrTimeout, Err: err}
	}
	return &OpError{Op: op, Kind: ErrStoreUnavailable, Err: err}
}

// PartialFailure wraps a write error that happened after an admit decision.
func PartialFailure(err error) error {
	return &OpError{Op: "append", Kind: ErrPartialFailure, Err: err}
}

// OpError carries the failed store operation, its classification and cause.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	return e.Kind.Error() + ": " + e.Op + ": " + e.Err.Error()
}

// Unwrap exposes both the classification and the cause to errors.Is/As.
func (e *OpError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// HTTPStatus maps an enforcement error to an HTTP status code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsConfigError(err):
		return http.StatusBadRequest
	case IsPartialFailure(err), errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Code returns a stable machine-readable code for an enforcement error.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, ErrInvalidGranularity):
		return "INVALID_GRANULARITY"
	case errors.Is(err, ErrUnknownPlan):
		return "UNKNOWN_PLAN"
	case IsPartialFailure(err):
		return "PARTIAL_FAILURE"
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, ErrStoreUnavailable):
		return "STORE_UNAVAILABLE"
	default:
		return "INTERNAL"
	}
}
