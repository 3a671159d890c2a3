package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/keeper/internal/model"
	"github.com/roach88/keeper/internal/outcome"
	"github.com/roach88/keeper/internal/store"
	"github.com/roach88/keeper/internal/testutil"
	"github.com/roach88/keeper/internal/uow"
)

func setup(t *testing.T) (*store.Store, *Service, *testutil.Seed) {
	t.Helper()
	s, uows := testutil.OpenStore(t)
	return s, NewService(uows), testutil.NewSeed(t, s)
}

func ids(keepers []model.Keeper) []string {
	out := make([]string, 0, len(keepers))
	for _, k := range keepers {
		out = append(out, k.ID)
	}
	return out
}

func TestGroupPermitGrantsMembers(t *testing.T) {
	_, svc, seed := setup(t)
	ctx := context.Background()

	seed.User("alice", model.RoleBasic)
	seed.User("bob", model.RoleBasic)
	seed.Group("finance", "alice")
	seed.Document("report", "")
	seed.Permit("p1", "report", "", "finance")

	visible, err := svc.ListVisible(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"report"}, ids(visible))

	ok, err := svc.CanRead(ctx, "alice", "report")
	require.NoError(t, err)
	assert.True(t, ok)

	basis, err := svc.Explain(ctx, "alice", "report")
	require.NoError(t, err)
	assert.Equal(t, BasisGroup, basis)

	ok, err = svc.CanRead(ctx, "bob", "report")
	require.NoError(t, err)
	assert.False(t, ok)

	visible, err = svc.ListVisible(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, visible)
}

func TestDirectPermit(t *testing.T) {
	_, svc, seed := setup(t)
	ctx := context.Background()

	seed.User("alice", model.RoleBasic)
	seed.Document("notes", "")
	seed.Permit("p1", "notes", "alice", "")

	basis, err := svc.Explain(ctx, "alice", "notes")
	require.NoError(t, err)
	assert.Equal(t, BasisDirect, basis)
	assert.True(t, basis.Granted())
}

func TestDirectReportedAheadOfGroup(t *testing.T) {
	_, svc, seed := setup(t)
	ctx := context.Background()

	seed.User("alice", model.RoleBasic)
	seed.Group("finance", "alice")
	seed.Document("report", "")
	seed.Permit("p1", "report", "", "finance")
	seed.Permit("p2", "report", "alice", "")

	basis, err := svc.Explain(ctx, "alice", "report")
	require.NoError(t, err)
	assert.Equal(t, BasisDirect, basis)
}

func TestAdminSeesEverything(t *testing.T) {
	_, svc, seed := setup(t)
	ctx := context.Background()

	seed.User("root", model.RoleAdmin)
	seed.Document("a", "")
	seed.Document("b", "")
	seed.Document("c", "")

	visible, err := svc.ListVisible(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(visible))

	basis, err := svc.Explain(ctx, "root", "b")
	require.NoError(t, err)
	assert.Equal(t, BasisAdmin, basis)
}

func TestManagerHasNoBypass(t *testing.T) {
	_, svc, seed := setup(t)
	ctx := context.Background()

	seed.User("mgr", model.RoleManager)
	seed.Document("a", "")

	ok, err := svc.CanRead(ctx, "mgr", "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListVisibleIsDuplicateFree(t *testing.T) {
	_, svc, seed := setup(t)
	ctx := context.Background()

	seed.User("alice", model.RoleBasic)
	seed.Group("finance", "alice")
	seed.Group("audit", "alice")
	seed.Document("report", "")
	seed.Document("memo", "")
	seed.Permit("p1", "report", "alice", "")
	seed.Permit("p2", "report", "", "finance")
	seed.Permit("p3", "report", "", "audit")
	seed.Permit("p4", "memo", "", "audit")

	visible, err := svc.ListVisible(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"report", "memo"}, ids(visible))
}

func TestRevocationTakesEffectImmediately(t *testing.T) {
	s, svc, seed := setup(t)
	ctx := context.Background()

	seed.User("alice", model.RoleBasic)
	seed.Group("finance", "alice")
	seed.Document("report", "")
	seed.Permit("p1", "report", "", "finance")

	ok, err := svc.CanRead(ctx, "alice", "report")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.NewMemberships(s.DB()).Delete(ctx, "finance", "alice"))

	ok, err = svc.CanRead(ctx, "alice", "report")
	require.NoError(t, err)
	assert.False(t, ok)

	visible, err := svc.ListVisible(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, visible)
}

func TestUnknownRequester(t *testing.T) {
	_, svc, seed := setup(t)
	ctx := context.Background()
	seed.Document("report", "")

	_, err := svc.ListVisible(ctx, "ghost")
	assert.True(t, outcome.Is(err, outcome.CodeNotFound))

	_, err = svc.CanRead(ctx, "ghost", "report")
	assert.True(t, outcome.Is(err, outcome.CodeNotFound))

	_, err = svc.ListVisible(ctx, "")
	assert.True(t, outcome.Is(err, outcome.CodeInvalid))
}

func TestExplainUnknownDocument(t *testing.T) {
	_, svc, seed := setup(t)
	seed.User("alice", model.RoleBasic)

	basis, err := svc.Explain(context.Background(), "alice", "missing")
	assert.True(t, outcome.Is(err, outcome.CodeNotFound))
	assert.Equal(t, BasisNone, basis)
}

func TestResolverSharesCallerUnitOfWork(t *testing.T) {
	_, uows := testutil.OpenStore(t)
	ctx := context.Background()

	// Grants written inside an open transaction are visible to the resolver
	// running on the same unit of work before commit.
	err := uows.Run(ctx, "test", func(u *uow.UnitOfWork) error {
		require.NoError(t, u.Users.Insert(ctx, model.User{ID: "alice", Name: "alice", Email: "a@example.com", Role: model.RoleBasic, CreatedAt: testutil.Epoch}))
		require.NoError(t, u.Keepers.Insert(ctx, model.Keeper{ID: "doc", Filename: "doc.txt", ContentType: "text/plain", PostedAt: testutil.Epoch}))
		require.NoError(t, u.Permits.Insert(ctx, model.Permit{ID: "p1", KeeperID: "doc", UserID: "alice"}))

		ok, err := CanRead(ctx, u, "alice", "doc")
		require.NoError(t, err)
		assert.True(t, ok)
		return nil
	})
	require.NoError(t, err)
}
