package testutil

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/keeper/internal/model"
	"github.com/roach88/keeper/internal/store"
	"github.com/roach88/keeper/internal/uow"
)

// OpenStore opens a fresh file-backed store in t.TempDir() with a small
// connection pool, and a unit-of-work factory over it.
func OpenStore(t *testing.T) (*store.Store, *uow.Factory) {
	t.Helper()
	opts := store.DefaultOptions(filepath.Join(t.TempDir(), "keeper.db"))
	opts.MaxOpenConns = 4
	s, err := store.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, uow.NewFactory(s.DB(), uow.DefaultConfig())
}

// Seed inserts fixture rows directly through the store accessors, bypassing
// the lifecycle services. Ids equal the names given.
type Seed struct {
	t     *testing.T
	db    store.DBTX
	clock *StepClock
}

// NewSeed returns a seeder writing to s.
func NewSeed(t *testing.T, s *store.Store) *Seed {
	return &Seed{t: t, db: s.DB(), clock: NewStepClock()}
}

// User inserts a user whose id and name are both name.
func (s *Seed) User(name string, role model.Role) model.User {
	s.t.Helper()
	u := model.User{
		ID:        name,
		Name:      name,
		Email:     name + "@example.com",
		Password:  "hash",
		Role:      role,
		CreatedAt: s.clock.Now(),
	}
	require.NoError(s.t, store.NewUsers(s.db).Insert(context.Background(), u))
	return u
}

// Group inserts a group whose id and name are both name.
func (s *Seed) Group(name string, members ...string) model.Group {
	s.t.Helper()
	g := model.Group{ID: name, Name: name, CreatedAt: s.clock.Now()}
	require.NoError(s.t, store.NewGroups(s.db).Insert(context.Background(), g))
	for _, m := range members {
		s.Member(name, m)
	}
	return g
}

// Member adds userID to groupID.
func (s *Seed) Member(groupID, userID string) {
	s.t.Helper()
	_, err := store.NewMemberships(s.db).Insert(context.Background(), groupID, userID)
	require.NoError(s.t, err)
}

// Document inserts a keeper with id id, filename id+".txt", and its payload.
func (s *Seed) Document(id, postedBy string) model.Keeper {
	s.t.Helper()
	ctx := context.Background()
	k := model.Keeper{
		ID:          id,
		Filename:    id + ".txt",
		ContentType: "text/plain",
		PostedAt:    s.clock.Now(),
		PostedBy:    postedBy,
	}
	require.NoError(s.t, store.NewKeepers(s.db).Insert(ctx, k))
	require.NoError(s.t, store.NewFiledata(s.db).Insert(ctx, model.Filedata{KeeperID: id, Data: []byte("content of " + id)}))
	return k
}

// Permit inserts a permit with id id.
func (s *Seed) Permit(id, keeperID, userID, groupID string) model.Permit {
	s.t.Helper()
	p := model.Permit{ID: id, KeeperID: keeperID, UserID: userID, GroupID: groupID}
	require.NoError(s.t, store.NewPermits(s.db).Insert(context.Background(), p))
	return p
}

// Count returns the number of rows in table.
func Count(t *testing.T, s *store.Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

// Exec runs a raw statement, typically to install a fault-injection trigger.
func Exec(t *testing.T, s *store.Store, query string) {
	t.Helper()
	_, err := s.DB().Exec(query)
	require.NoError(t, err)
}

// FailOn installs a trigger that aborts every statement of the given kind
// (INSERT, UPDATE or DELETE) on table.
func FailOn(t *testing.T, s *store.Store, kind, table string) {
	t.Helper()
	Exec(t, s, "CREATE TRIGGER fail_"+kind+"_"+table+" BEFORE "+kind+" ON "+table+
		" BEGIN SELECT RAISE(ABORT, 'injected fault'); END")
}

// RaceInsert installs a trigger that, before every INSERT on table, writes
// the same row (the given columns) with INSERT OR IGNORE. The triggering
// insert then fails on the table's uniqueness constraint although no
// conflicting row existed when the caller checked, as if a concurrent writer
// had won.
func RaceInsert(t *testing.T, s *store.Store, table string, columns ...string) {
	t.Helper()
	cols := strings.Join(columns, ", ")
	vals := "NEW." + strings.Join(columns, ", NEW.")
	Exec(t, s, "CREATE TRIGGER race_insert_"+table+" BEFORE INSERT ON "+table+
		" BEGIN INSERT OR IGNORE INTO "+table+" ("+cols+") VALUES ("+vals+"); END")
}
