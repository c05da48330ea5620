package core

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type (
	DBExecutor interface {
		sqlx.ExtContext

		GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	}

	DB interface {
		DBExecutor

		BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	}

	// Transactor runs fn inside a single unit of work. Repositories receive the executor through their
	// variadic `exec` argument; a nil executor means "use the repository's own".
	Transactor interface {
		WithTx(ctx context.Context, fn func(exec DBExecutor) error) error
	}
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// CleanOrdering drops orderings on fields not in `allowed`; ordering fields end up in raw SQL.
func CleanOrdering(ordering []DBOrdering, allowed ...string) []DBOrdering {
	if ordering == nil {
		return nil
	}
	cleaned := make([]DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		for _, fld := range allowed {
			if ord.Field == fld {
				cleaned = append(cleaned, ord)
				break
			}
		}
	}
	return cleaned
}

type sqlTransactor struct {
	db DB
}

var _ Transactor = (*sqlTransactor)(nil) // interface compliance check

func NewTransactor(db DB) Transactor {
	return &sqlTransactor{db: db}
}

func (t sqlTransactor) WithTx(ctx context.Context, fn func(exec DBExecutor) error) error {
	tx, err := t.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrap(rbErr, "rolling back transaction")
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

type noopTransactor struct{}

// NoopTransactor runs fn directly with a nil executor; used with the in-memory repositories.
func NoopTransactor() Transactor {
	return noopTransactor{}
}

func (noopTransactor) WithTx(_ context.Context, fn func(exec DBExecutor) error) error {
	return fn(nil)
}
