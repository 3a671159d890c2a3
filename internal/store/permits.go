package store

import (
	"context"
	"database/sql"

	"github.com/roach88/keeper/internal/model"
)

const permitColumns = `id, keeper_id, user_id, group_id`

// Permits reads and writes read grants.
type Permits struct {
	q DBTX
}

// NewPermits binds a Permits accessor to q.
func NewPermits(q DBTX) *Permits {
	return &Permits{q: q}
}

func scanPermit(row scanner) (model.Permit, error) {
	var (
		p             model.Permit
		user, groupID sql.NullString
	)
	if err := row.Scan(&p.ID, &p.KeeperID, &user, &groupID); err != nil {
		return model.Permit{}, err
	}
	p.UserID = user.String
	p.GroupID = groupID.String
	return p, nil
}

// Insert adds p. Empty UserID or GroupID is stored as NULL.
func (r *Permits) Insert(ctx context.Context, p model.Permit) error {
	_, err := execMany(ctx, r.q, "insert permit", `
		INSERT INTO permits (`+permitColumns+`) VALUES (?, ?, ?, ?)
	`, p.ID, p.KeeperID, nullString(p.UserID), nullString(p.GroupID))
	return err
}

// Get returns the permit with the given id.
func (r *Permits) Get(ctx context.Context, id string) (model.Permit, error) {
	return queryOne(ctx, r.q, "get permit", scanPermit, `
		SELECT `+permitColumns+` FROM permits WHERE id = ?
	`, id)
}

// ListByKeeper returns every permit on keeperID.
func (r *Permits) ListByKeeper(ctx context.Context, keeperID string) ([]model.Permit, error) {
	return queryAll(ctx, r.q, "list permits by keeper", scanPermit, `
		SELECT `+permitColumns+` FROM permits
		WHERE keeper_id = ?
		ORDER BY id ASC
	`, keeperID)
}

// Count counts permits with exactly this (keeper, user, group) triple; an
// empty userID or groupID matches NULL.
func (r *Permits) Count(ctx context.Context, keeperID, userID, groupID string) (int, error) {
	return count(ctx, r.q, "count permits", `
		SELECT COUNT(*) FROM permits
		WHERE keeper_id = ?
		  AND IFNULL(user_id, '') = ?
		  AND IFNULL(group_id, '') = ?
	`, keeperID, userID, groupID)
}

// CountDirect counts permits on keeperID naming userID.
func (r *Permits) CountDirect(ctx context.Context, keeperID, userID string) (int, error) {
	return count(ctx, r.q, "count direct permits", `
		SELECT COUNT(*) FROM permits WHERE keeper_id = ? AND user_id = ?
	`, keeperID, userID)
}

// CountViaGroups counts permits on keeperID naming a group userID belongs to.
func (r *Permits) CountViaGroups(ctx context.Context, keeperID, userID string) (int, error) {
	return count(ctx, r.q, "count group permits", `
		SELECT COUNT(*) FROM permits p
		JOIN memberships m ON m.group_id = p.group_id
		WHERE p.keeper_id = ? AND m.user_id = ?
	`, keeperID, userID)
}

// Delete removes one permit by id.
func (r *Permits) Delete(ctx context.Context, id string) error {
	return execOne(ctx, r.q, "delete permit", `DELETE FROM permits WHERE id = ?`, id)
}

// DeleteByKeeper removes every permit on keeperID.
func (r *Permits) DeleteByKeeper(ctx context.Context, keeperID string) (int64, error) {
	return execMany(ctx, r.q, "delete permits by keeper", `
		DELETE FROM permits WHERE keeper_id = ?
	`, keeperID)
}

// DeleteByUser removes every permit naming userID, including permits that
// also name a group.
func (r *Permits) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	return execMany(ctx, r.q, "delete permits by user", `
		DELETE FROM permits WHERE user_id = ?
	`, userID)
}

// DeleteByGroup removes every permit naming groupID, including permits that
// also name a user.
func (r *Permits) DeleteByGroup(ctx context.Context, groupID string) (int64, error) {
	return execMany(ctx, r.q, "delete permits by group", `
		DELETE FROM permits WHERE group_id = ?
	`, groupID)
}
