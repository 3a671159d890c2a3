package uow

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/keeper/internal/model"
	"github.com/roach88/keeper/internal/outcome"
	"github.com/roach88/keeper/internal/store"
)

var testTime = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

// createTestFactory opens a file-backed store with two pooled connections so
// tests can observe the database from outside a unit of work.
func createTestFactory(t *testing.T) (*Factory, *store.Store) {
	t.Helper()
	opts := store.DefaultOptions(filepath.Join(t.TempDir(), "test.db"))
	opts.MaxOpenConns = 2
	s, err := store.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewFactory(s.DB(), DefaultConfig()), s
}

func testUser(id string) model.User {
	return model.User{
		ID:        id,
		Name:      id,
		Email:     id + "@example.com",
		Password:  "hash",
		Role:      model.RoleBasic,
		CreatedAt: testTime,
	}
}

func countUsers(t *testing.T, s *store.Store) int {
	t.Helper()
	var n int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM users").Scan(&n))
	return n
}

func TestNewFactory_Defaults(t *testing.T) {
	f := NewFactory(nil, Config{})
	assert.Equal(t, DefaultConfig(), f.cfg)
}

func TestUnitOfWork_BeginIsIdempotent(t *testing.T) {
	f, _ := createTestFactory(t)
	ctx := context.Background()

	u, err := f.Open(ctx)
	require.NoError(t, err)
	defer u.Close()

	assert.False(t, u.InTx())
	require.NoError(t, u.Begin(ctx))
	tx := u.tx
	require.NoError(t, u.Begin(ctx))
	assert.True(t, u.InTx())
	assert.Same(t, tx, u.tx, "second Begin must not open another transaction")
}

func TestUnitOfWork_CommitMakesWritesVisible(t *testing.T) {
	f, s := createTestFactory(t)
	ctx := context.Background()

	u, err := f.OpenTx(ctx)
	require.NoError(t, err)
	require.NoError(t, u.Users.Insert(ctx, testUser("alice")))

	// Visible inside the transaction, not outside it.
	exists, err := u.Users.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, 0, countUsers(t, s))

	require.NoError(t, u.Commit())
	assert.Equal(t, 1, countUsers(t, s))
}

func TestUnitOfWork_RollbackDiscardsWrites(t *testing.T) {
	f, s := createTestFactory(t)
	ctx := context.Background()

	u, err := f.OpenTx(ctx)
	require.NoError(t, err)
	require.NoError(t, u.Users.Insert(ctx, testUser("alice")))
	require.NoError(t, u.Rollback())

	assert.Equal(t, 0, countUsers(t, s))
}

func TestUnitOfWork_CloseWithoutCommitRollsBack(t *testing.T) {
	f, s := createTestFactory(t)
	ctx := context.Background()

	func() {
		u, err := f.OpenTx(ctx)
		require.NoError(t, err)
		defer u.Close()
		require.NoError(t, u.Users.Insert(ctx, testUser("alice")))
		// forgotten Commit
	}()

	assert.Equal(t, 0, countUsers(t, s))
}

func TestUnitOfWork_ReleasedExactlyOnce(t *testing.T) {
	f, s := createTestFactory(t)
	ctx := context.Background()

	u, err := f.OpenTx(ctx)
	require.NoError(t, err)
	require.NoError(t, u.Commit())

	assert.ErrorIs(t, u.Commit(), ErrClosed)
	assert.ErrorIs(t, u.Rollback(), ErrClosed)
	assert.ErrorIs(t, u.Begin(ctx), ErrClosed)
	assert.NoError(t, u.Close())

	err = u.Users.Insert(ctx, testUser("alice"))
	assert.ErrorIs(t, err, ErrClosed)

	// The connection went back to the pool.
	assert.Equal(t, 0, s.DB().Stats().InUse)
}

func TestUnitOfWork_CommitWithoutBegin(t *testing.T) {
	f, s := createTestFactory(t)
	ctx := context.Background()

	u, err := f.Open(ctx)
	require.NoError(t, err)
	require.NoError(t, u.Users.Insert(ctx, testUser("alice"))) // autocommit
	require.NoError(t, u.Commit())

	assert.Equal(t, 1, countUsers(t, s))
}

func TestUnitOfWork_AccessorsShareTransaction(t *testing.T) {
	f, s := createTestFactory(t)
	ctx := context.Background()

	u, err := f.OpenTx(ctx)
	require.NoError(t, err)
	defer u.Close()

	require.NoError(t, u.Users.Insert(ctx, testUser("alice")))
	require.NoError(t, u.Groups.Insert(ctx, model.Group{ID: "eng", Name: "eng", CreatedAt: testTime}))
	// Foreign keys resolve against rows written earlier in the same transaction.
	_, err = u.Memberships.Insert(ctx, "eng", "alice")
	require.NoError(t, err)

	require.NoError(t, u.Rollback())
	assert.Equal(t, 0, countUsers(t, s))
}

func TestFactory_RunCommits(t *testing.T) {
	f, s := createTestFactory(t)

	err := f.Run(context.Background(), "test.create", func(u *UnitOfWork) error {
		return u.Users.Insert(context.Background(), testUser("alice"))
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countUsers(t, s))
}

func TestFactory_RunRequestFailureRollsBack(t *testing.T) {
	f, s := createTestFactory(t)
	ctx := context.Background()

	err := f.Run(ctx, "test.create", func(u *UnitOfWork) error {
		if err := u.Users.Insert(ctx, testUser("alice")); err != nil {
			return err
		}
		return outcome.Duplicate("already there")
	})
	require.Error(t, err)
	assert.True(t, outcome.Is(err, outcome.CodeDuplicate))
	assert.Equal(t, "DUPLICATE: already there", err.Error())
	assert.Equal(t, 0, countUsers(t, s))
}

func TestFactory_RunInfrastructureFaultIsOpaque(t *testing.T) {
	f, s := createTestFactory(t)
	ctx := context.Background()

	err := f.Run(ctx, "test.create", func(u *UnitOfWork) error {
		if err := u.Users.Insert(ctx, testUser("alice")); err != nil {
			return err
		}
		// Same id again: a raw constraint failure, not a request failure.
		return u.Users.Insert(ctx, testUser("alice"))
	})
	require.Error(t, err)
	assert.True(t, outcome.IsInfrastructure(err))
	assert.Equal(t, outcome.OpaqueMessage, err.Error())
	assert.True(t, store.IsUniqueViolation(err))
	assert.Equal(t, 0, countUsers(t, s))
	assert.Equal(t, 0, s.DB().Stats().InUse)
}

func TestFactory_ReadHasNoTransaction(t *testing.T) {
	f, _ := createTestFactory(t)

	var inTx bool
	err := f.Read(context.Background(), "test.read", func(u *UnitOfWork) error {
		inTx = u.InTx()
		return nil
	})
	require.NoError(t, err)
	assert.False(t, inTx)
}

func TestFactory_ReadMapsErrors(t *testing.T) {
	f, _ := createTestFactory(t)
	ctx := context.Background()

	err := f.Read(ctx, "test.read", func(u *UnitOfWork) error {
		return outcome.NotFound("nope")
	})
	assert.True(t, outcome.Is(err, outcome.CodeNotFound))

	err = f.Read(ctx, "test.read", func(u *UnitOfWork) error {
		return errors.New("disk on fire")
	})
	assert.True(t, outcome.IsInfrastructure(err))
	assert.NotContains(t, err.Error(), "disk")
}

func TestFactory_ViewRunsInRolledBackTransaction(t *testing.T) {
	f, s := createTestFactory(t)
	ctx := context.Background()

	var inTx bool
	err := f.View(ctx, "test.view", func(u *UnitOfWork) error {
		inTx = u.InTx()
		return u.Users.Insert(ctx, testUser("stray"))
	})
	require.NoError(t, err)
	assert.True(t, inTx)
	assert.Equal(t, 0, countUsers(t, s))
	assert.Equal(t, 0, s.DB().Stats().InUse)
}

func TestFactory_ViewMapsErrors(t *testing.T) {
	f, s := createTestFactory(t)
	ctx := context.Background()

	err := f.View(ctx, "test.view", func(u *UnitOfWork) error {
		return outcome.Forbidden("no")
	})
	assert.True(t, outcome.Is(err, outcome.CodeForbidden))

	err = f.View(ctx, "test.view", func(u *UnitOfWork) error {
		_, err := u.Users.Get(ctx, "ghost")
		return err
	})
	assert.True(t, outcome.IsInfrastructure(err))
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.Equal(t, 0, s.DB().Stats().InUse)
}

func TestFactory_OpenCancelledContext(t *testing.T) {
	f, _ := createTestFactory(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Open(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled) || errors.Is(err, sql.ErrConnDone))
}
