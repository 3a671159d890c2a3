// Package uow groups the reads and writes of one logical operation onto a
// single database connection and, when writes are involved, a single
// transaction.
//
// A UnitOfWork is request-scoped: one per operation, never shared between
// goroutines. Its entity accessors are constructed up front and all route
// through the unit of work, so they observe and join its transaction.
package uow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/keeper/internal/store"
)

// ErrClosed is returned when a released unit of work is used again.
var ErrClosed = errors.New("uow: unit of work already released")

// UnitOfWork owns one connection and at most one open transaction.
type UnitOfWork struct {
	conn     *sql.Conn
	tx       *sql.Tx
	released bool

	Users       *store.Users
	Groups      *store.Groups
	Memberships *store.Memberships
	Keepers     *store.Keepers
	Filedata    *store.Filedata
	Permits     *store.Permits
}

func newUnitOfWork(conn *sql.Conn) *UnitOfWork {
	u := &UnitOfWork{conn: conn}
	u.Users = store.NewUsers(u)
	u.Groups = store.NewGroups(u)
	u.Memberships = store.NewMemberships(u)
	u.Keepers = store.NewKeepers(u)
	u.Filedata = store.NewFiledata(u)
	u.Permits = store.NewPermits(u)
	return u
}

// InTx reports whether a transaction is open.
func (u *UnitOfWork) InTx() bool {
	return u.tx != nil
}

// Begin opens a transaction on the held connection. It is a no-op when one
// is already open.
func (u *UnitOfWork) Begin(ctx context.Context) error {
	if u.released {
		return ErrClosed
	}
	if u.tx != nil {
		return nil
	}
	tx, err := u.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	u.tx = tx
	return nil
}

// Commit commits the open transaction, if any, and releases the connection.
// The connection is released even when the commit fails.
func (u *UnitOfWork) Commit() error {
	if u.released {
		return ErrClosed
	}
	var err error
	if u.tx != nil {
		if cerr := u.tx.Commit(); cerr != nil {
			err = fmt.Errorf("commit: %w", cerr)
		}
		u.tx = nil
	}
	return errors.Join(err, u.release())
}

// Rollback aborts the open transaction, if any, and releases the connection.
func (u *UnitOfWork) Rollback() error {
	if u.released {
		return ErrClosed
	}
	var err error
	if u.tx != nil {
		if rerr := u.tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
			err = fmt.Errorf("rollback: %w", rerr)
		}
		u.tx = nil
	}
	return errors.Join(err, u.release())
}

// Close rolls back a transaction that was neither committed nor rolled back
// and releases the connection. Safe to call after Commit or Rollback, so it
// can always be deferred.
func (u *UnitOfWork) Close() error {
	if u.released {
		return nil
	}
	return u.Rollback()
}

func (u *UnitOfWork) release() error {
	if u.released {
		return nil
	}
	u.released = true
	if err := u.conn.Close(); err != nil {
		return fmt.Errorf("release connection: %w", err)
	}
	return nil
}

// ExecContext implements store.DBTX, routing through the open transaction
// when there is one.
func (u *UnitOfWork) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if u.released {
		return nil, ErrClosed
	}
	if u.tx != nil {
		return u.tx.ExecContext(ctx, query, args...)
	}
	return u.conn.ExecContext(ctx, query, args...)
}

// QueryContext implements store.DBTX.
func (u *UnitOfWork) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if u.released {
		return nil, ErrClosed
	}
	if u.tx != nil {
		return u.tx.QueryContext(ctx, query, args...)
	}
	return u.conn.QueryContext(ctx, query, args...)
}

// QueryRowContext implements store.DBTX. After release it returns a row
// from the closed connection, whose Scan reports sql.ErrConnDone.
func (u *UnitOfWork) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	if u.tx != nil {
		return u.tx.QueryRowContext(ctx, query, args...)
	}
	return u.conn.QueryRowContext(ctx, query, args...)
}
