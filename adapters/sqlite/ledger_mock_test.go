package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/artpar/imgquota/adapters/sqlite"
	"github.com/artpar/imgquota/domain/quota"
)

var errDisk = errors.New("disk I/O error")

func newMockLedger(t *testing.T) (*sqlite.Ledger, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })
	return sqlite.NewLedger(&sqlite.DB{DB: mockDB}), mock
}

func TestLedgerMock_SumError(t *testing.T) {
	l, mock := newMockLedger(t)

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(quantity\), 0\) FROM usage_entries`).
		WithArgs("user1", day.Start.UnixNano(), day.End.UnixNano()).
		WillReturnError(errDisk)

	_, err := l.SumWithinWindow(context.Background(), "user1", day)
	if !errors.Is(err, quota.ErrStoreUnavailable) {
		t.Errorf("err = %v, want ErrStoreUnavailable", err)
	}
	if !errors.Is(err, errDisk) {
		t.Errorf("err = %v, want cause preserved", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestLedgerMock_AppendError(t *testing.T) {
	l, mock := newMockLedger(t)

	mock.ExpectExec(`INSERT INTO usage_entries`).WillReturnError(errDisk)

	_, err := l.Append(context.Background(), entry("e1", "user1", 1, day.Start))
	if !errors.Is(err, quota.ErrStoreUnavailable) {
		t.Errorf("err = %v, want ErrStoreUnavailable", err)
	}
}

func TestLedgerMock_AppendWithinLimit_Denied(t *testing.T) {
	l, mock := newMockLedger(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO usage_entries .* SELECT`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(quantity\), 0\)`).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(20))
	mock.ExpectCommit()

	total, ok, err := l.AppendWithinLimit(context.Background(), entry("e1", "user1", 1, day.Start), day, 20)
	if err != nil {
		t.Fatalf("AppendWithinLimit failed: %v", err)
	}
	if ok || total != 20 {
		t.Errorf("AppendWithinLimit = %d, %v; want 20, false", total, ok)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestLedgerMock_AppendWithinLimit_CommitError(t *testing.T) {
	l, mock := newMockLedger(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO usage_entries .* SELECT`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(quantity\), 0\)`).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(1))
	mock.ExpectCommit().WillReturnError(errDisk)

	_, ok, err := l.AppendWithinLimit(context.Background(), entry("e1", "user1", 1, day.Start), day, 20)
	if ok {
		t.Error("a failed commit must not report admitted")
	}
	if !errors.Is(err, quota.ErrStoreUnavailable) {
		t.Errorf("err = %v, want ErrStoreUnavailable", err)
	}
}

func TestLedgerMock_DeadlineIsTimeout(t *testing.T) {
	l, mock := newMockLedger(t)

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(quantity\), 0\)`).
		WillDelayFor(time.Second).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(0))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := l.SumWithinWindow(ctx, "user1", day)
	if !errors.Is(err, quota.ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
}

func TestLedgerMock_PingError(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer mockDB.Close()
	l := sqlite.NewLedger(&sqlite.DB{DB: mockDB})

	mock.ExpectPing().WillReturnError(errDisk)

	if err := l.Ping(context.Background()); !errors.Is(err, quota.ErrStoreUnavailable) {
		t.Errorf("Ping err = %v, want ErrStoreUnavailable", err)
	}
}
