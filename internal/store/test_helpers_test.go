package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/keeper/internal/model"
)

var testTime = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(DefaultOptions(path))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustInsertUser(t *testing.T, s *Store, id string, role model.Role) model.User {
	t.Helper()
	u := model.User{
		ID:        id,
		Name:      id,
		Email:     id + "@example.com",
		Password:  "hash",
		Role:      role,
		CreatedAt: testTime,
	}
	if err := NewUsers(s.db).Insert(context.Background(), u); err != nil {
		t.Fatalf("insert user %s: %v", id, err)
	}
	return u
}

func mustInsertGroup(t *testing.T, s *Store, id string) model.Group {
	t.Helper()
	g := model.Group{ID: id, Name: id, CreatedAt: testTime}
	if err := NewGroups(s.db).Insert(context.Background(), g); err != nil {
		t.Fatalf("insert group %s: %v", id, err)
	}
	return g
}

func mustInsertDocument(t *testing.T, s *Store, id, postedBy string) model.Keeper {
	t.Helper()
	k := model.Keeper{
		ID:          id,
		Filename:    id + ".txt",
		ContentType: "text/plain",
		PostedAt:    testTime,
		PostedBy:    postedBy,
	}
	ctx := context.Background()
	if err := NewKeepers(s.db).Insert(ctx, k); err != nil {
		t.Fatalf("insert keeper %s: %v", id, err)
	}
	if err := NewFiledata(s.db).Insert(ctx, model.Filedata{KeeperID: id, Data: []byte("payload of " + id)}); err != nil {
		t.Fatalf("insert filedata %s: %v", id, err)
	}
	return k
}

func mustInsertPermit(t *testing.T, s *Store, id, keeperID, userID, groupID string) {
	t.Helper()
	p := model.Permit{ID: id, KeeperID: keeperID, UserID: userID, GroupID: groupID}
	if err := NewPermits(s.db).Insert(context.Background(), p); err != nil {
		t.Fatalf("insert permit %s: %v", id, err)
	}
}

func mustInsertMembership(t *testing.T, s *Store, groupID, userID string) {
	t.Helper()
	if _, err := NewMemberships(s.db).Insert(context.Background(), groupID, userID); err != nil {
		t.Fatalf("insert membership %s/%s: %v", groupID, userID, err)
	}
}
