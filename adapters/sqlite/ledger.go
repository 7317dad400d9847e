package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/artpar/imgquota/domain/period"
	"github.com/artpar/imgquota/domain/quota"
	"github.com/artpar/imgquota/domain/usage"
	"github.com/artpar/imgquota/ports"
)

// Ledger implements ports.Ledger using SQLite.
// Timestamps are stored as UTC unix nanoseconds so window bounds compare exactly.
type Ledger struct {
	db *DB
}

// NewLedger creates a new SQLite usage ledger.
func NewLedger(db *DB) *Ledger {
	return &Ledger{db: db}
}

const insertEntry = `
	INSERT INTO usage_entries (id, identity, plan_id, quantity, bytes, status, metadata, ts_ns)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

// insertWithinLimit writes the row only when the requested quantity fits in
// the headroom left under the limit. One statement, one decision.
const insertWithinLimit = `
	INSERT INTO usage_entries (id, identity, plan_id, quantity, bytes, status, metadata, ts_ns)
	SELECT ?, ?, ?, ?, ?, ?, ?, ?
	WHERE ? <= ? - (
		SELECT COALESCE(SUM(quantity), 0) FROM usage_entries
		WHERE identity = ? AND ts_ns >= ? AND ts_ns <= ?
	)
`

const sumWithinWindow = `
	SELECT COALESCE(SUM(quantity), 0) FROM usage_entries
	WHERE identity = ? AND ts_ns >= ? AND ts_ns <= ?
`

// Append stores one entry.
func (l *Ledger) Append(ctx context.Context, e usage.Entry) (string, error) {
	args, err := entryArgs(e)
	if err != nil {
		return "", storeError(ctx, "append", err)
	}
	if _, err := l.db.ExecContext(ctx, insertEntry, args...); err != nil {
		return "", storeError(ctx, "append", err)
	}
	return e.ID, nil
}

// SumWithinWindow returns the identity's total quantity inside w.
func (l *Ledger) SumWithinWindow(ctx context.Context, identity string, w period.Window) (int64, error) {
	var total int64
	err := l.db.QueryRowContext(ctx, sumWithinWindow,
		identity, w.Start.UnixNano(), w.End.UnixNano(),
	).Scan(&total)
	if err != nil {
		return 0, storeError(ctx, "sum", err)
	}
	return total, nil
}

// AppendWithinLimit performs the conditional insert and reads the resulting
// total inside the same transaction.
func (l *Ledger) AppendWithinLimit(ctx context.Context, e usage.Entry, w period.Window, max int64) (int64, bool, error) {
	const op = "append_within_limit"

	args, err := entryArgs(e)
	if err != nil {
		return 0, false, storeError(ctx, op, err)
	}
	start, end := w.Start.UnixNano(), w.End.UnixNano()
	args = append(args, e.Quantity, max, e.Identity, start, end)

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, storeError(ctx, op, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, insertWithinLimit, args...)
	if err != nil {
		return 0, false, storeError(ctx, op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, storeError(ctx, op, err)
	}

	var total int64
	if err := tx.QueryRowContext(ctx, sumWithinWindow, e.Identity, start, end).Scan(&total); err != nil {
		return 0, false, storeError(ctx, op, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, storeError(ctx, op, err)
	}
	return total, n == 1, nil
}

// Recent returns the identity's latest entries, newest first.
func (l *Ledger) Recent(ctx context.Context, identity string, limit int) ([]usage.Entry, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, identity, plan_id, quantity, bytes, status, metadata, ts_ns
		FROM usage_entries
		WHERE identity = ?
		ORDER BY ts_ns DESC, rowid DESC
		LIMIT ?
	`, identity, limit)
	if err != nil {
		return nil, storeError(ctx, "recent", err)
	}
	defer rows.Close()

	var entries []usage.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, storeError(ctx, "recent", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(ctx, "recent", err)
	}
	return entries, nil
}

// Summarize aggregates the identity's entries inside w.
func (l *Ledger) Summarize(ctx context.Context, identity string, w period.Window) (usage.Summary, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(quantity), 0),
			COALESCE(SUM(bytes), 0),
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)
		FROM usage_entries
		WHERE identity = ? AND ts_ns >= ? AND ts_ns <= ?
	`, identity, w.Start.UnixNano(), w.End.UnixNano())

	s := usage.Summary{
		Identity:    identity,
		PeriodStart: w.Start,
		PeriodEnd:   w.End,
	}
	if err := row.Scan(&s.Quantity, &s.Bytes, &s.Entries, &s.Failed); err != nil {
		return usage.Summary{}, storeError(ctx, "summarize", err)
	}
	return s, nil
}

// Ping checks the database connection.
func (l *Ledger) Ping(ctx context.Context) error {
	return storeError(ctx, "ping", l.db.PingContext(ctx))
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// storeError classifies err, reporting it as a timeout when the caller's
// context is already done. Drivers do not always return ctx.Err() verbatim.
func storeError(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if cerr := ctx.Err(); cerr != nil && !errors.Is(err, cerr) {
		err = fmt.Errorf("%w: %v", cerr, err)
	}
	return quota.StoreError(op, err)
}

func entryArgs(e usage.Entry) ([]any, error) {
	var metadata sql.NullString
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
		metadata = sql.NullString{String: string(b), Valid: true}
	}
	return []any{
		e.ID, e.Identity, e.PlanID, e.Quantity, e.Bytes, string(e.Status), metadata,
		e.Timestamp.UTC().UnixNano(),
	}, nil
}

func scanEntry(rows *sql.Rows) (usage.Entry, error) {
	var (
		e        usage.Entry
		status   string
		metadata sql.NullString
		tsNs     int64
	)
	if err := rows.Scan(&e.ID, &e.Identity, &e.PlanID, &e.Quantity, &e.Bytes, &status, &metadata, &tsNs); err != nil {
		return usage.Entry{}, err
	}
	e.Status = usage.Status(status)
	e.Timestamp = time.Unix(0, tsNs).UTC()
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &e.Metadata); err != nil {
			return usage.Entry{}, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return e, nil
}

// Ensure interface compliance.
var _ ports.Ledger = (*Ledger)(nil)
