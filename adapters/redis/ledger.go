// Package redis provides a Redis implementation of the usage ledger.
//
// Each identity owns a sorted set scored by timestamp (unix microseconds)
// whose members are "<quantity>:<entry id>", plus one hash per entry. The
// scripts sum quantities from the members alone and only touch keys passed
// in KEYS. Keys share a {identity} hash tag so an identity's data lives in
// one cluster slot. The count-and-append decision runs as a single script.
package redis

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/artpar/imgquota/domain/period"
	"github.com/artpar/imgquota/domain/quota"
	"github.com/artpar/imgquota/domain/usage"
	"github.com/artpar/imgquota/ports"
)

//go:embed sum_window.lua
var sumWindowScript string

//go:embed append_within_limit.lua
var appendWithinLimitScript string

// DefaultPrefix namespaces all ledger keys.
const DefaultPrefix = "imgquota"

// Ledger implements ports.Ledger on Redis.
type Ledger struct {
	client goredis.UniversalClient
	prefix string

	sumSHA    string
	appendSHA string
}

// NewLedger pings Redis and loads the ledger scripts.
func NewLedger(ctx context.Context, client goredis.UniversalClient, prefix string) (*Ledger, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	l := &Ledger{client: client, prefix: prefix}
	if err := l.loadScripts(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) loadScripts(ctx context.Context) error {
	sha, err := l.client.ScriptLoad(ctx, sumWindowScript).Result()
	if err != nil {
		return fmt.Errorf("load sum script: %w", err)
	}
	l.sumSHA = sha

	sha, err = l.client.ScriptLoad(ctx, appendWithinLimitScript).Result()
	if err != nil {
		return fmt.Errorf("load append script: %w", err)
	}
	l.appendSHA = sha
	return nil
}

func (l *Ledger) entriesKey(identity string) string {
	return l.prefix + ":{" + identity + "}:entries"
}

func (l *Ledger) entryPrefix(identity string) string {
	return l.prefix + ":{" + identity + "}:entry:"
}

func member(e usage.Entry) string {
	return strconv.FormatInt(e.Quantity, 10) + ":" + e.ID
}

func memberIDs(members []string) []string {
	ids := make([]string, 0, len(members))
	for _, m := range members {
		if _, id, ok := strings.Cut(m, ":"); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// evalSha runs a loaded script, reloading once if Redis lost its script cache.
func (l *Ledger) evalSha(ctx context.Context, sha *string, src string, keys []string, args ...any) (any, error) {
	res, err := l.client.EvalSha(ctx, *sha, keys, args...).Result()
	if err != nil && goredis.HasErrorPrefix(err, "NOSCRIPT") {
		reloaded, lerr := l.client.ScriptLoad(ctx, src).Result()
		if lerr != nil {
			return nil, lerr
		}
		*sha = reloaded
		res, err = l.client.EvalSha(ctx, *sha, keys, args...).Result()
	}
	return res, err
}

// Append stores one entry.
func (l *Ledger) Append(ctx context.Context, e usage.Entry) (string, error) {
	fields, err := entryFields(e)
	if err != nil {
		return "", quota.StoreError("append", err)
	}

	_, err = l.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, l.entryPrefix(e.Identity)+e.ID, fields...)
		pipe.ZAdd(ctx, l.entriesKey(e.Identity), goredis.Z{
			Score:  float64(e.Timestamp.UnixMicro()),
			Member: member(e),
		})
		return nil
	})
	if err != nil {
		return "", quota.StoreError("append", err)
	}
	return e.ID, nil
}

// SumWithinWindow returns the identity's total quantity inside w.
func (l *Ledger) SumWithinWindow(ctx context.Context, identity string, w period.Window) (int64, error) {
	res, err := l.evalSha(ctx, &l.sumSHA, sumWindowScript,
		[]string{l.entriesKey(identity)},
		w.Start.UnixMicro(), w.End.UnixMicro(),
	)
	if err != nil {
		return 0, quota.StoreError("sum", err)
	}
	total, ok := res.(int64)
	if !ok {
		return 0, quota.StoreError("sum", fmt.Errorf("unexpected script reply %T", res))
	}
	return total, nil
}

// AppendWithinLimit sums and conditionally appends in one script call.
func (l *Ledger) AppendWithinLimit(ctx context.Context, e usage.Entry, w period.Window, max int64) (int64, bool, error) {
	const op = "append_within_limit"

	fields, err := entryFields(e)
	if err != nil {
		return 0, false, quota.StoreError(op, err)
	}

	args := []any{
		w.Start.UnixMicro(), w.End.UnixMicro(), max,
		e.Timestamp.UnixMicro(), member(e), e.Quantity,
	}
	args = append(args, fields...)

	res, err := l.evalSha(ctx, &l.appendSHA, appendWithinLimitScript,
		[]string{l.entriesKey(e.Identity), l.entryPrefix(e.Identity) + e.ID},
		args...,
	)
	if err != nil {
		return 0, false, quota.StoreError(op, err)
	}

	values, ok := res.([]any)
	if !ok || len(values) != 2 {
		return 0, false, quota.StoreError(op, errors.New("invalid lua response format"))
	}
	total, _ := values[0].(int64)
	admitted, _ := values[1].(int64)
	return total, admitted == 1, nil
}

// Recent returns the identity's latest entries, newest first.
func (l *Ledger) Recent(ctx context.Context, identity string, limit int) ([]usage.Entry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	members, err := l.client.ZRevRange(ctx, l.entriesKey(identity), 0, stop).Result()
	if err != nil {
		return nil, quota.StoreError("recent", err)
	}
	entries, err := l.load(ctx, identity, memberIDs(members))
	if err != nil {
		return nil, quota.StoreError("recent", err)
	}
	return entries, nil
}

// Summarize aggregates the identity's entries inside w.
func (l *Ledger) Summarize(ctx context.Context, identity string, w period.Window) (usage.Summary, error) {
	members, err := l.client.ZRangeByScore(ctx, l.entriesKey(identity), &goredis.ZRangeBy{
		Min: strconv.FormatInt(w.Start.UnixMicro(), 10),
		Max: strconv.FormatInt(w.End.UnixMicro(), 10),
	}).Result()
	if err != nil {
		return usage.Summary{}, quota.StoreError("summarize", err)
	}
	entries, err := l.load(ctx, identity, memberIDs(members))
	if err != nil {
		return usage.Summary{}, quota.StoreError("summarize", err)
	}
	return usage.Summarize(entries, identity, w.Start, w.End), nil
}

// load fetches entry hashes in one pipeline, preserving the order of ids.
func (l *Ledger) load(ctx context.Context, identity string, ids []string) ([]usage.Entry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*goredis.MapStringStringCmd, len(ids))
	_, err := l.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, l.entryPrefix(identity)+id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	entries := make([]usage.Entry, 0, len(ids))
	for _, cmd := range cmds {
		m := cmd.Val()
		if len(m) == 0 {
			continue
		}
		e, err := parseEntry(m)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Ping checks the Redis connection.
func (l *Ledger) Ping(ctx context.Context) error {
	return quota.StoreError("ping", l.client.Ping(ctx).Err())
}

// Close closes the Redis client.
func (l *Ledger) Close() error {
	return l.client.Close()
}

func entryFields(e usage.Entry) ([]any, error) {
	metadata := ""
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
		metadata = string(b)
	}
	return []any{
		"id", e.ID,
		"identity", e.Identity,
		"plan_id", e.PlanID,
		"quantity", e.Quantity,
		"bytes", e.Bytes,
		"status", string(e.Status),
		"metadata", metadata,
		"ts_ns", e.Timestamp.UTC().UnixNano(),
	}, nil
}

func parseEntry(m map[string]string) (usage.Entry, error) {
	qty, err := strconv.ParseInt(m["quantity"], 10, 64)
	if err != nil {
		return usage.Entry{}, fmt.Errorf("parse quantity: %w", err)
	}
	bytes, _ := strconv.ParseInt(m["bytes"], 10, 64)
	tsNs, err := strconv.ParseInt(m["ts_ns"], 10, 64)
	if err != nil {
		return usage.Entry{}, fmt.Errorf("parse timestamp: %w", err)
	}

	e := usage.Entry{
		ID:        m["id"],
		Identity:  m["identity"],
		PlanID:    m["plan_id"],
		Quantity:  qty,
		Bytes:     bytes,
		Status:    usage.Status(m["status"]),
		Timestamp: time.Unix(0, tsNs).UTC(),
	}
	if md := m["metadata"]; md != "" {
		if err := json.Unmarshal([]byte(md), &e.Metadata); err != nil {
			return usage.Entry{}, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return e, nil
}

// Ensure interface compliance.
var _ ports.Ledger = (*Ledger)(nil)
