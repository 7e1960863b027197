package postgres_test

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// rowStub implements pgx.Row
type rowStub struct{ scan func(dest ...any) error }

func (r rowStub) Scan(dest ...any) error { return r.scan(dest...) }

// rowsStub implements pgx.Rows over a fixed set of pre-scanned rows.
type rowsStub struct {
	rows [][]any
	idx  int
	err  error
}

func (r *rowsStub) Close()                                       {}
func (r *rowsStub) Err() error                                   { return r.err }
func (r *rowsStub) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *rowsStub) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *rowsStub) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}
func (r *rowsStub) Scan(dest ...any) error {
	vals := r.rows[r.idx-1]
	if len(dest) != len(vals) {
		return errors.New("scan arity mismatch")
	}
	for i, v := range vals {
		if err := assign(dest[i], v); err != nil {
			return err
		}
	}
	return nil
}
func (r *rowsStub) Values() ([]any, error) { return nil, nil }
func (r *rowsStub) RawValues() [][]byte    { return nil }
func (r *rowsStub) Conn() *pgx.Conn        { return nil }

func assign(dst, src any) error {
	switch d := dst.(type) {
	case *string:
		s, ok := src.(string)
		if !ok {
			return errors.New("expected string")
		}
		*d = s
	case *int:
		n, ok := src.(int)
		if !ok {
			return errors.New("expected int")
		}
		*d = n
	case *int64:
		n, ok := src.(int64)
		if !ok {
			return errors.New("expected int64")
		}
		*d = n
	case *time.Time:
		ts, ok := src.(time.Time)
		if !ok {
			return errors.New("expected time.Time")
		}
		*d = ts
	case **time.Time:
		switch s := src.(type) {
		case nil:
			*d = nil
		case *time.Time:
			*d = s
		case time.Time:
			*d = &s
		default:
			return errors.New("expected *time.Time")
		}
	default:
		return errors.New("unsupported scan destination")
	}
	return nil
}

// poolStub implements postgres.PgxPool for tests.
// Shared helper so multiple *_test.go files can reuse it without redefs.
type poolStub struct {
	execTag  pgconn.CommandTag
	execErr  error
	row      rowStub
	rows     *rowsStub
	queryErr error
}

func (p *poolStub) Exec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	return p.execTag, p.execErr
}

func (p *poolStub) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	if p.row.scan == nil {
		return rowStub{scan: func(_ ...any) error { return errors.New("no row configured") }}
	}
	return p.row
}

func (p *poolStub) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	if p.rows == nil {
		return &rowsStub{}, nil
	}
	return p.rows, nil
}

func (p *poolStub) BeginTx(_ context.Context, _ pgx.TxOptions) (pgx.Tx, error) {
	return nil, errors.New("tx not supported in stub")
}

func noRowsErr() error { return pgx.ErrNoRows }
