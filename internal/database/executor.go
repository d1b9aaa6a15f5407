package database

import (
	"context"
	"errors"
	"time"

	"github.com/koustreak/datamodeler/internal/errs"
	"github.com/koustreak/datamodeler/internal/logger"
	"github.com/koustreak/datamodeler/internal/model"
)

// DefaultMockDelay is how long MockExecutor pretends a query runs.
const DefaultMockDelay = 1500 * time.Millisecond

// ResultSet is the outcome of one executed statement.
type ResultSet struct {
	Columns  []string      `json:"columns"`
	Rows     []model.Row   `json:"rows"`
	Duration time.Duration `json:"duration"`
}

// Executor runs a SQL statement and collects its rows.
type Executor interface {
	Execute(ctx context.Context, sql string, args ...any) (*ResultSet, error)
}

// DBExecutor executes statements against a live DB.
type DBExecutor struct {
	db      DB
	timeout time.Duration
	log     *logger.Logger
}

// NewDBExecutor wraps db. A positive timeout bounds every statement.
func NewDBExecutor(db DB, timeout time.Duration, log *logger.Logger) *DBExecutor {
	if log == nil {
		log = logger.Nop()
	}
	return &DBExecutor{db: db, timeout: timeout, log: log.Component("executor")}
}

// Execute runs sql and scans every row.
func (e *DBExecutor) Execute(ctx context.Context, sql string, args ...any) (*ResultSet, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := e.db.Query(ctx, sql, args...)
	if err != nil {
		e.log.ErrorWith("query failed", err, map[string]any{"args": len(args)})
		return nil, err
	}
	cols, out, err := ScanRows(rows)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errs.Wrap(errs.ErrKindTimeout, "query exceeded its deadline", err)
		}
		return nil, err
	}

	rs := &ResultSet{Columns: cols, Rows: out, Duration: time.Since(start)}
	e.log.With().Int("rows", len(out)).Any("elapsed", rs.Duration.String()).Logger().Debug("query executed")
	return rs, nil
}

// MockExecutor stands in for a database while none is configured. It
// waits Delay and then returns a copy of Result.
type MockExecutor struct {
	Delay  time.Duration
	Result *ResultSet
}

// NewMockExecutor returns a MockExecutor with the default delay and the
// sample result.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{Delay: DefaultMockDelay, Result: SampleResult()}
}

// Execute ignores sql and args. A cancelled or expired ctx ends the wait
// with a timeout error.
func (m *MockExecutor) Execute(ctx context.Context, sql string, args ...any) (*ResultSet, error) {
	start := time.Now()
	if m.Delay > 0 {
		t := time.NewTimer(m.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, errs.Wrap(errs.ErrKindTimeout, "query cancelled", ctx.Err())
		case <-t.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindTimeout, "query cancelled", err)
	}

	src := m.Result
	if src == nil {
		src = SampleResult()
	}
	rs := &ResultSet{
		Columns:  append([]string(nil), src.Columns...),
		Rows:     make([]model.Row, len(src.Rows)),
		Duration: time.Since(start),
	}
	for i, r := range src.Rows {
		rs.Rows[i] = r.Clone()
	}
	return rs, nil
}

// SampleResult is the canned result MockExecutor returns by default.
func SampleResult() *ResultSet {
	return &ResultSet{
		Columns: []string{"id", "customer", "region", "amount"},
		Rows: []model.Row{
			{"id": 1, "customer": "Acme Corp", "region": "North", "amount": 1250.0},
			{"id": 2, "customer": "Globex", "region": "South", "amount": 830.5},
			{"id": 3, "customer": "Initech", "region": "North", "amount": 412.75},
			{"id": 4, "customer": "Umbrella", "region": "West", "amount": 2100.0},
		},
	}
}
