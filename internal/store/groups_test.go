package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/keeper/internal/model"
)

func TestGroups_CRUD(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	groups := NewGroups(s.db)

	g := model.Group{ID: "g1", Name: "eng", Description: "engineering", CreatedAt: testTime}
	require.NoError(t, groups.Insert(ctx, g))

	got, err := groups.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, g, got)

	byName, err := groups.GetByName(ctx, "eng")
	require.NoError(t, err)
	assert.Equal(t, "g1", byName.ID)

	err = groups.Insert(ctx, model.Group{ID: "g2", Name: "eng", CreatedAt: testTime})
	assert.True(t, IsUniqueViolation(err))

	n, err := groups.CountByName(ctx, "eng")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err := groups.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, groups.Delete(ctx, "g1"))
	exists, err := groups.Exists(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.ErrorIs(t, groups.Delete(ctx, "g1"), ErrNotFound)
	_, err = groups.Get(ctx, "g1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGroups_DeleteBlockedByPermit(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustInsertUser(t, s, "alice", model.RoleBasic)
	mustInsertGroup(t, s, "eng")
	mustInsertDocument(t, s, "k1", "alice")
	mustInsertPermit(t, s, "p1", "k1", "", "eng")

	err := NewGroups(s.db).Delete(ctx, "eng")
	require.Error(t, err)
	assert.True(t, IsForeignKeyViolation(err))
}
