package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/artpar/imgquota/app"
	"github.com/artpar/imgquota/domain/period"
	"github.com/artpar/imgquota/domain/plan"
	"github.com/artpar/imgquota/domain/quota"
	"github.com/artpar/imgquota/domain/usage"
	"github.com/artpar/imgquota/pkg/jsonapi"
	"github.com/artpar/imgquota/ports"
)

// IdentityHeader carries the caller identity set by the trusted identity provider.
const IdentityHeader = "X-Identity"

// Quota response headers.
const (
	HeaderLimit     = "X-Quota-Limit"
	HeaderRemaining = "X-Quota-Remaining"
	HeaderReset     = "X-Quota-Reset"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
	maxBodyBytes       = 64 << 10
)

// ConsumeRequest is the body of POST /v1/consume.
type ConsumeRequest struct {
	Identity string            `json:"identity,omitempty" example:"user-42"`
	PlanID   string            `json:"plan_id" example:"FREE"`
	Quantity *int64            `json:"quantity,omitempty" example:"1"` // defaults to 1
	Bytes    int64             `json:"bytes,omitempty" example:"524288"`
	Status   string            `json:"status,omitempty" example:"success"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Enforcer is the quota service used by the handlers.
type Enforcer interface {
	TryConsume(ctx context.Context, req app.Request) (quota.Decision, error)
	Status(ctx context.Context, identity, planID string) (quota.Decision, error)
	Catalog() plan.Catalog
}

// QuotaHandler serves the quota API.
type QuotaHandler struct {
	enforcer Enforcer
	history  ports.UsageHistory
	clock    ports.Clock
	logger   zerolog.Logger
}

// NewQuotaHandler creates a new quota handler. history may be nil, in which
// case the recent-usage endpoint reports 404.
func NewQuotaHandler(enforcer Enforcer, history ports.UsageHistory, clock ports.Clock, logger zerolog.Logger) *QuotaHandler {
	return &QuotaHandler{
		enforcer: enforcer,
		history:  history,
		clock:    clock,
		logger:   logger,
	}
}

// Consume admits or denies one metered action.
//
//	@Summary		Consume quota
//	@Description	Admits the action and records it when it fits the plan limit for the current window
//	@Tags			Quota
//	@Accept			json
//	@Produce		json
//	@Param			X-Identity		header	string			false	"Caller identity (overrides body identity)"
//	@Param			X-Service-Key	header	string			false	"Service key"
//	@Param			request			body	ConsumeRequest	true	"Metered action"
//	@Success		200	{object}	jsonapi.Document	"Admitted"
//	@Failure		400	{object}	jsonapi.Document	"Invalid input or unknown plan"
//	@Failure		401	{object}	jsonapi.Document	"Missing or invalid service key"
//	@Failure		429	{object}	jsonapi.Document	"Quota exceeded"
//	@Failure		503	{object}	jsonapi.Document	"Ledger unavailable"
//	@Router			/v1/consume [post]
func (h *QuotaHandler) Consume(w http.ResponseWriter, r *http.Request) {
	var body ConsumeRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		jsonapi.WriteBadRequest(w, "Invalid JSON body: "+err.Error())
		return
	}

	identity := body.Identity
	if hdr := strings.TrimSpace(r.Header.Get(IdentityHeader)); hdr != "" {
		identity = hdr
	}
	quantity := int64(1)
	if body.Quantity != nil {
		quantity = *body.Quantity
	}

	d, err := h.enforcer.TryConsume(r.Context(), app.Request{
		Identity: identity,
		PlanID:   body.PlanID,
		Quantity: quantity,
		Bytes:    body.Bytes,
		Status:   usage.Status(strings.ToLower(body.Status)),
		Metadata: body.Metadata,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.setQuotaHeaders(w, d)
	if !d.Admitted {
		retry := d.Window.ResetAt().Sub(h.clock.Now())
		w.Header().Set("Retry-After", strconv.FormatInt(int64(retry.Round(time.Second)/time.Second), 10))
		jsonapi.WriteError(w, jsonapi.NewError(http.StatusTooManyRequests, quota.ReasonQuotaExceeded, "Quota Exceeded").
			Detailf("Plan %s allows %d per %s; %d used, %d requested", d.PlanID, d.Limit, granularityOf(d.Window), d.Used, d.Requested).
			ID(middleware.GetReqID(r.Context())).
			Meta("used", d.Used).
			Meta("limit", d.Limit).
			Meta("remaining", d.Remaining).
			Meta("reset_at", d.Window.ResetAt().Format(time.RFC3339)).
			Build())
		return
	}

	jsonapi.WriteResource(w, http.StatusOK, decisionResource("decisions", d.EntryID, d))
}

// Usage reports the identity's usage in the current window.
//
//	@Summary		Current usage
//	@Tags			Quota
//	@Produce		json
//	@Param			identity	query	string	false	"Identity (or X-Identity header)"
//	@Param			plan_id		query	string	true	"Plan ID"
//	@Success		200	{object}	jsonapi.Document
//	@Failure		400	{object}	jsonapi.Document
//	@Failure		503	{object}	jsonapi.Document
//	@Router			/v1/usage [get]
func (h *QuotaHandler) Usage(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)
	d, err := h.enforcer.Status(r.Context(), identity, r.URL.Query().Get("plan_id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.setQuotaHeaders(w, d)
	jsonapi.WriteResource(w, http.StatusOK, decisionResource("usage", identity, d))
}

// Recent lists the identity's latest ledger entries.
//
//	@Summary		Recent usage entries
//	@Tags			Quota
//	@Produce		json
//	@Param			identity	query	string	false	"Identity (or X-Identity header)"
//	@Param			limit		query	int		false	"Maximum entries (default 20, max 100)"
//	@Success		200	{object}	jsonapi.Document
//	@Failure		400	{object}	jsonapi.Document
//	@Router			/v1/usage/recent [get]
func (h *QuotaHandler) Recent(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		jsonapi.WriteError(w, jsonapi.ErrNotFound("usage history"))
		return
	}

	identity := identityFrom(r)
	if identity == "" {
		jsonapi.WriteError(w, jsonapi.ErrInvalidParam("INVALID_INPUT", "identity", "identity is required"))
		return
	}

	limit := defaultRecentLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			jsonapi.WriteError(w, jsonapi.ErrInvalidParam("INVALID_INPUT", "limit", "limit must be a positive integer"))
			return
		}
		limit = min(n, maxRecentLimit)
	}

	entries, err := h.history.Recent(r.Context(), identity, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resources := make([]jsonapi.Resource, 0, len(entries))
	for _, e := range entries {
		resources = append(resources, jsonapi.NewResource("usage_entries", e.ID).
			Attr("identity", e.Identity).
			Attr("plan_id", e.PlanID).
			Attr("quantity", e.Quantity).
			Attr("bytes", e.Bytes).
			Attr("status", string(e.Status)).
			Attr("metadata", e.Metadata).
			Attr("timestamp", e.Timestamp.Format(time.RFC3339Nano)).
			Build())
	}
	jsonapi.WriteCollection(w, http.StatusOK, r.URL.RequestURI(), resources, jsonapi.Meta{"count": len(resources)})
}

// Plans lists the plan catalog.
//
//	@Summary		List plans
//	@Tags			Plans
//	@Produce		json
//	@Success		200	{object}	jsonapi.Document
//	@Router			/v1/plans [get]
func (h *QuotaHandler) Plans(w http.ResponseWriter, r *http.Request) {
	plans := h.enforcer.Catalog().Plans()
	resources := make([]jsonapi.Resource, 0, len(plans))
	for _, p := range plans {
		resources = append(resources, jsonapi.NewResource("plans", p.ID).
			Attr("name", p.Name).
			Attr("granularity", string(p.Granularity)).
			Attr("max", p.Max).
			Build())
	}
	jsonapi.WriteCollection(w, http.StatusOK, r.URL.RequestURI(), resources, nil)
}

// Window computes the period window for a granularity and reference time.
//
//	@Summary		Compute a period window
//	@Tags			Plans
//	@Produce		json
//	@Param			granularity	query	string	true	"day or month"
//	@Param			at			query	string	false	"RFC 3339 reference time (default now)"
//	@Success		200	{object}	jsonapi.Document
//	@Failure		400	{object}	jsonapi.Document
//	@Router			/v1/window [get]
func (h *QuotaHandler) Window(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	g, err := period.ParseGranularity(q.Get("granularity"))
	if err != nil {
		jsonapi.WriteError(w, jsonapi.ErrInvalidParam("INVALID_GRANULARITY", "granularity", err.Error()))
		return
	}

	at := h.clock.Now()
	if s := q.Get("at"); s != "" {
		at, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			jsonapi.WriteError(w, jsonapi.ErrInvalidParam("INVALID_INPUT", "at", "at must be an RFC 3339 timestamp"))
			return
		}
	}

	win, err := period.Compute(g, at)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	jsonapi.WriteResource(w, http.StatusOK, jsonapi.NewResource("windows", string(g)).
		Attr("start", win.Start.Format(time.RFC3339Nano)).
		Attr("end", win.End.Format(time.RFC3339Nano)).
		Attr("reset_at", win.ResetAt().Format(time.RFC3339Nano)).
		Build())
}

func (h *QuotaHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := quota.HTTPStatus(err)
	code := quota.Code(err)
	reqID := middleware.GetReqID(r.Context())

	detail := err.Error()
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("request_id", reqID).Str("code", code).Msg("quota request failed")
		detail = http.StatusText(status)
		if quota.IsPartialFailure(err) {
			detail = "The request was admitted but could not be recorded"
		}
	}

	jsonapi.WriteError(w, jsonapi.NewError(status, code, http.StatusText(status)).
		Detail(detail).
		ID(reqID).
		Build())
}

func (h *QuotaHandler) setQuotaHeaders(w http.ResponseWriter, d quota.Decision) {
	w.Header().Set(HeaderLimit, strconv.FormatInt(d.Limit, 10))
	w.Header().Set(HeaderRemaining, strconv.FormatInt(d.Remaining, 10))
	w.Header().Set(HeaderReset, strconv.FormatInt(d.Window.ResetAt().Unix(), 10))
}

func identityFrom(r *http.Request) string {
	if hdr := strings.TrimSpace(r.Header.Get(IdentityHeader)); hdr != "" {
		return hdr
	}
	return strings.TrimSpace(r.URL.Query().Get("identity"))
}

func decisionResource(typ, id string, d quota.Decision) jsonapi.Resource {
	return jsonapi.NewResource(typ, id).
		Attr("admitted", d.Admitted).
		Attr("plan_id", d.PlanID).
		Attr("used", d.Used).
		Attr("limit", d.Limit).
		Attr("remaining", d.Remaining).
		Attr("percent_used", d.PercentUsed).
		Attr("warning_level", d.WarningLevel.String()).
		Attr("window_start", d.Window.Start.Format(time.RFC3339Nano)).
		Attr("window_end", d.Window.End.Format(time.RFC3339Nano)).
		Attr("reset_at", d.Window.ResetAt().Format(time.RFC3339)).
		Build()
}

// granularityOf names a window by its length for messages.
func granularityOf(w period.Window) string {
	if w.Duration() > 32*time.Hour {
		return string(period.Month)
	}
	return string(period.Day)
}
