package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/keeper/internal/model"
)

func setupPermitFixtures(t *testing.T) *Store {
	t.Helper()
	s := createTestStore(t)
	mustInsertUser(t, s, "alice", model.RoleBasic)
	mustInsertUser(t, s, "bob", model.RoleBasic)
	mustInsertGroup(t, s, "eng")
	mustInsertMembership(t, s, "eng", "bob")
	mustInsertDocument(t, s, "k1", "alice")
	return s
}

func TestPermits_InsertGetList(t *testing.T) {
	s := setupPermitFixtures(t)
	ctx := context.Background()
	permits := NewPermits(s.db)

	mustInsertPermit(t, s, "p1", "k1", "alice", "")
	mustInsertPermit(t, s, "p2", "k1", "", "eng")
	mustInsertPermit(t, s, "p3", "k1", "alice", "eng")

	p, err := permits.Get(ctx, "p3")
	require.NoError(t, err)
	assert.Equal(t, model.Permit{ID: "p3", KeeperID: "k1", UserID: "alice", GroupID: "eng"}, p)

	p, err = permits.Get(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, "", p.UserID)
	assert.Equal(t, "eng", p.GroupID)

	list, err := permits.ListByKeeper(ctx, "k1")
	require.NoError(t, err)
	assert.Len(t, list, 3)

	_, err = permits.Get(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPermits_RequiresTarget(t *testing.T) {
	s := setupPermitFixtures(t)

	err := NewPermits(s.db).Insert(context.Background(), model.Permit{ID: "p1", KeeperID: "k1"})
	assert.Error(t, err)
}

func TestPermits_UniqueTripleWithNulls(t *testing.T) {
	s := setupPermitFixtures(t)
	ctx := context.Background()
	permits := NewPermits(s.db)

	mustInsertPermit(t, s, "p1", "k1", "", "eng")

	err := permits.Insert(ctx, model.Permit{ID: "p2", KeeperID: "k1", GroupID: "eng"})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err), "NULL user_id must not defeat the uniqueness index")

	// Same group plus a user is a different triple.
	require.NoError(t, permits.Insert(ctx, model.Permit{ID: "p3", KeeperID: "k1", UserID: "alice", GroupID: "eng"}))

	n, err := permits.Count(ctx, "k1", "", "eng")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = permits.Count(ctx, "k1", "alice", "eng")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = permits.Count(ctx, "k1", "alice", "")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPermits_ForeignKeys(t *testing.T) {
	s := setupPermitFixtures(t)
	ctx := context.Background()
	permits := NewPermits(s.db)

	err := permits.Insert(ctx, model.Permit{ID: "p1", KeeperID: "ghost", UserID: "alice"})
	assert.True(t, IsForeignKeyViolation(err))

	err = permits.Insert(ctx, model.Permit{ID: "p2", KeeperID: "k1", UserID: "ghost"})
	assert.True(t, IsForeignKeyViolation(err))

	err = permits.Insert(ctx, model.Permit{ID: "p3", KeeperID: "k1", GroupID: "ghost"})
	assert.True(t, IsForeignKeyViolation(err))
}

func TestPermits_CountDirectAndViaGroups(t *testing.T) {
	s := setupPermitFixtures(t)
	ctx := context.Background()
	permits := NewPermits(s.db)

	mustInsertPermit(t, s, "p1", "k1", "alice", "")
	mustInsertPermit(t, s, "p2", "k1", "", "eng")

	n, err := permits.CountDirect(ctx, "k1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = permits.CountViaGroups(ctx, "k1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = permits.CountDirect(ctx, "k1", "bob")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = permits.CountViaGroups(ctx, "k1", "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPermits_BulkDeletes(t *testing.T) {
	s := setupPermitFixtures(t)
	ctx := context.Background()
	permits := NewPermits(s.db)
	mustInsertDocument(t, s, "k2", "alice")

	mustInsertPermit(t, s, "p1", "k1", "alice", "")
	mustInsertPermit(t, s, "p2", "k1", "", "eng")
	mustInsertPermit(t, s, "p3", "k2", "alice", "eng")
	mustInsertPermit(t, s, "p4", "k2", "bob", "")

	n, err := permits.DeleteByGroup(ctx, "eng")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "both the group-only and the user+group permit go")

	n, err = permits.DeleteByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = permits.DeleteByKeeper(ctx, "k2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM permits").Scan(&n))
	assert.Equal(t, int64(0), n)

	assert.ErrorIs(t, permits.Delete(ctx, "p1"), ErrNotFound)
}
