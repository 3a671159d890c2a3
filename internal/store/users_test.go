package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/keeper/internal/model"
)

func TestUsers_InsertAndGet(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	users := NewUsers(s.db)

	want := mustInsertUser(t, s, "alice", model.RoleManager)

	got, err := users.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Nil(t, got.ActivatedAt)
	assert.Nil(t, got.LastLoginAt)

	byName, err := users.GetByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", byName.ID)
}

func TestUsers_GetMissing(t *testing.T) {
	s := createTestStore(t)

	_, err := NewUsers(s.db).Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUsers_UniqueNameAndEmail(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	users := NewUsers(s.db)
	mustInsertUser(t, s, "alice", model.RoleBasic)

	dupName := model.User{ID: "u2", Name: "alice", Email: "other@example.com", Password: "x", Role: model.RoleBasic, CreatedAt: testTime}
	err := users.Insert(ctx, dupName)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	dupEmail := model.User{ID: "u3", Name: "other", Email: "alice@example.com", Password: "x", Role: model.RoleBasic, CreatedAt: testTime}
	err = users.Insert(ctx, dupEmail)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	n, err := users.CountByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = users.CountByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUsers_RoleCheckConstraint(t *testing.T) {
	s := createTestStore(t)

	u := model.User{ID: "u1", Name: "x", Email: "x@example.com", Password: "x", Role: "root", CreatedAt: testTime}
	err := NewUsers(s.db).Insert(context.Background(), u)
	assert.Error(t, err)
}

func TestUsers_Timestamps(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	users := NewUsers(s.db)
	mustInsertUser(t, s, "alice", model.RoleBasic)

	activated := testTime.Add(time.Hour)
	login := testTime.Add(2 * time.Hour)
	require.NoError(t, users.SetActivated(ctx, "alice", activated))
	require.NoError(t, users.SetLastLogin(ctx, "alice", login))

	got, err := users.Get(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got.ActivatedAt)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, activated.Equal(*got.ActivatedAt))
	assert.True(t, login.Equal(*got.LastLoginAt))

	assert.ErrorIs(t, users.SetActivated(ctx, "ghost", activated), ErrNotFound)
}

func TestUsers_ListOrderedByCreation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	users := NewUsers(s.db)

	for i, id := range []string{"carol", "alice", "bob"} {
		u := model.User{
			ID: id, Name: id, Email: id + "@example.com", Password: "x",
			Role: model.RoleBasic, CreatedAt: testTime.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, users.Insert(ctx, u))
	}

	list, err := users.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "carol", list[0].ID)
	assert.Equal(t, "alice", list[1].ID)
	assert.Equal(t, "bob", list[2].ID)
}

func TestUsers_DeleteBlockedByDependents(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustInsertUser(t, s, "alice", model.RoleBasic)
	mustInsertGroup(t, s, "eng")
	mustInsertMembership(t, s, "eng", "alice")

	err := NewUsers(s.db).Delete(ctx, "alice")
	require.Error(t, err)
	assert.True(t, IsForeignKeyViolation(err))

	_, err = NewMemberships(s.db).DeleteByUser(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, NewUsers(s.db).Delete(ctx, "alice"))

	exists, err := NewUsers(s.db).Exists(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUsers_DeleteNullsPoster(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustInsertUser(t, s, "alice", model.RoleBasic)
	mustInsertDocument(t, s, "k1", "alice")

	require.NoError(t, NewUsers(s.db).Delete(ctx, "alice"))

	k, err := NewKeepers(s.db).Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "", k.PostedBy)
}

func TestUsers_DeleteMissing(t *testing.T) {
	s := createTestStore(t)
	assert.ErrorIs(t, NewUsers(s.db).Delete(context.Background(), "ghost"), ErrNotFound)
}
