package store

import (
	"context"
	"fmt"

	"github.com/roach88/keeper/internal/model"
)

// Memberships reads and writes the memberships join table.
type Memberships struct {
	q DBTX
}

// NewMemberships binds a Memberships accessor to q.
func NewMemberships(q DBTX) *Memberships {
	return &Memberships{q: q}
}

func scanMembership(row scanner) (model.Membership, error) {
	var m model.Membership
	err := row.Scan(&m.ID, &m.GroupID, &m.UserID)
	return m, err
}

// Insert links userID to groupID and returns the generated row id.
func (r *Memberships) Insert(ctx context.Context, groupID, userID string) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO memberships (group_id, user_id) VALUES (?, ?)
	`, groupID, userID)
	if err != nil {
		return 0, fmt.Errorf("insert membership: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert membership: last insert id: %w", err)
	}
	return id, nil
}

// ListByUser returns the memberships of userID.
func (r *Memberships) ListByUser(ctx context.Context, userID string) ([]model.Membership, error) {
	return queryAll(ctx, r.q, "list memberships by user", scanMembership, `
		SELECT id, group_id, user_id FROM memberships
		WHERE user_id = ?
		ORDER BY id ASC
	`, userID)
}

// ListByGroup returns the memberships of groupID.
func (r *Memberships) ListByGroup(ctx context.Context, groupID string) ([]model.Membership, error) {
	return queryAll(ctx, r.q, "list memberships by group", scanMembership, `
		SELECT id, group_id, user_id FROM memberships
		WHERE group_id = ?
		ORDER BY id ASC
	`, groupID)
}

// Count counts memberships for the (group, user) pair (0 or 1).
func (r *Memberships) Count(ctx context.Context, groupID, userID string) (int, error) {
	return count(ctx, r.q, "count memberships", `
		SELECT COUNT(*) FROM memberships WHERE group_id = ? AND user_id = ?
	`, groupID, userID)
}

// Delete removes the (group, user) link.
func (r *Memberships) Delete(ctx context.Context, groupID, userID string) error {
	return execOne(ctx, r.q, "delete membership", `
		DELETE FROM memberships WHERE group_id = ? AND user_id = ?
	`, groupID, userID)
}

// DeleteByUser removes every membership of userID.
func (r *Memberships) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	return execMany(ctx, r.q, "delete memberships by user", `
		DELETE FROM memberships WHERE user_id = ?
	`, userID)
}

// DeleteByGroup removes every membership of groupID.
func (r *Memberships) DeleteByGroup(ctx context.Context, groupID string) (int64, error) {
	return execMany(ctx, r.q, "delete memberships by group", `
		DELETE FROM memberships WHERE group_id = ?
	`, groupID)
}
