package uow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/roach88/keeper/internal/outcome"
	"github.com/roach88/keeper/internal/store"
)

// Config controls how units of work acquire their connection and
// transaction.
type Config struct {
	// Attempts is how many times acquiring a connection or beginning a
	// transaction is tried when SQLite reports lock contention.
	Attempts uint

	// Delay is the base backoff between attempts.
	Delay time.Duration
}

// DefaultConfig returns the settings used when none are supplied.
func DefaultConfig() Config {
	return Config{Attempts: 3, Delay: 50 * time.Millisecond}
}

// Factory creates units of work over a connection pool.
type Factory struct {
	db  *sql.DB
	cfg Config
}

// NewFactory returns a factory drawing connections from db.
func NewFactory(db *sql.DB, cfg Config) *Factory {
	if cfg.Attempts == 0 {
		cfg.Attempts = DefaultConfig().Attempts
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultConfig().Delay
	}
	return &Factory{db: db, cfg: cfg}
}

func (f *Factory) retry(ctx context.Context, fn func() error) error {
	return retry.Do(fn,
		retry.Context(ctx),
		retry.Attempts(f.cfg.Attempts),
		retry.Delay(f.cfg.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(store.IsBusy),
		retry.LastErrorOnly(true),
	)
}

// Open acquires a connection and returns a unit of work bound to it. The
// caller must Commit, Rollback or Close it.
func (f *Factory) Open(ctx context.Context) (*UnitOfWork, error) {
	var conn *sql.Conn
	err := f.retry(ctx, func() error {
		c, err := f.db.Conn(ctx)
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return newUnitOfWork(conn), nil
}

// OpenTx is Open followed by Begin, with Begin retried on lock contention.
func (f *Factory) OpenTx(ctx context.Context) (*UnitOfWork, error) {
	u, err := f.Open(ctx)
	if err != nil {
		return nil, err
	}
	if err := f.retry(ctx, func() error { return u.Begin(ctx) }); err != nil {
		u.Close()
		return nil, err
	}
	return u, nil
}

// Run executes fn inside one transaction and commits when fn returns nil.
//
// Any error rolls the transaction back. Request failures are returned as-is;
// every other error is logged and returned as an opaque infrastructure
// fault for operation op.
func (f *Factory) Run(ctx context.Context, op string, fn func(u *UnitOfWork) error) error {
	u, err := f.OpenTx(ctx)
	if err != nil {
		return fault(op, err)
	}
	defer u.Close()

	if err := fn(u); err != nil {
		if rerr := u.Rollback(); rerr != nil {
			slog.Warn("rollback failed", "op", op, "error", rerr)
		}
		if outcome.IsRequestFailure(err) {
			slog.Debug("request rejected", "op", op, "reason", err)
			return err
		}
		return fault(op, err)
	}

	if err := u.Commit(); err != nil {
		return fault(op, err)
	}
	return nil
}

// Read executes fn on a unit of work without opening a transaction. Use it
// for single-statement reads; multi-statement reads belong in View.
// Errors are mapped the same way as Run.
func (f *Factory) Read(ctx context.Context, op string, fn func(u *UnitOfWork) error) error {
	u, err := f.Open(ctx)
	if err != nil {
		return fault(op, err)
	}
	defer u.Close()

	if err := fn(u); err != nil {
		if outcome.IsRequestFailure(err) {
			return err
		}
		return fault(op, err)
	}
	return nil
}

// View executes fn inside one transaction that is always rolled back, so
// every statement fn issues reads the same snapshot and no concurrent
// writer can commit between them. Errors are mapped the same way as Run.
func (f *Factory) View(ctx context.Context, op string, fn func(u *UnitOfWork) error) error {
	u, err := f.OpenTx(ctx)
	if err != nil {
		return fault(op, err)
	}
	defer u.Close()

	if err := fn(u); err != nil {
		if outcome.IsRequestFailure(err) {
			return err
		}
		return fault(op, err)
	}
	return nil
}

func fault(op string, err error) error {
	f := outcome.Infra(op, err)
	var ie *outcome.InfraError
	if errors.As(f, &ie) {
		slog.Error("operation failed", append(ie.Details(), "error", ie.Cause())...)
	}
	return f
}
