package store

import (
	"context"

	"github.com/roach88/keeper/internal/model"
)

const groupColumns = `id, name, description, created_at`

// Groups reads and writes the user_groups table.
type Groups struct {
	q DBTX
}

// NewGroups binds a Groups accessor to q.
func NewGroups(q DBTX) *Groups {
	return &Groups{q: q}
}

func scanGroup(row scanner) (model.Group, error) {
	var (
		g         model.Group
		createdAt int64
	)
	if err := row.Scan(&g.ID, &g.Name, &g.Description, &createdAt); err != nil {
		return model.Group{}, err
	}
	g.CreatedAt = fromMillis(createdAt)
	return g, nil
}

// Insert adds g. The caller supplies the id.
func (r *Groups) Insert(ctx context.Context, g model.Group) error {
	_, err := execMany(ctx, r.q, "insert group", `
		INSERT INTO user_groups (`+groupColumns+`) VALUES (?, ?, ?, ?)
	`, g.ID, g.Name, g.Description, toMillis(g.CreatedAt))
	return err
}

// Get returns the group with the given id.
func (r *Groups) Get(ctx context.Context, id string) (model.Group, error) {
	return queryOne(ctx, r.q, "get group", scanGroup, `
		SELECT `+groupColumns+` FROM user_groups WHERE id = ?
	`, id)
}

// GetByName returns the group with the given (normalized) name.
func (r *Groups) GetByName(ctx context.Context, name string) (model.Group, error) {
	return queryOne(ctx, r.q, "get group by name", scanGroup, `
		SELECT `+groupColumns+` FROM user_groups WHERE name = ?
	`, name)
}

// List returns every group ordered by creation time.
func (r *Groups) List(ctx context.Context) ([]model.Group, error) {
	return queryAll(ctx, r.q, "list groups", scanGroup, `
		SELECT `+groupColumns+` FROM user_groups
		ORDER BY created_at ASC, id ASC
	`)
}

// CountByName counts groups with the given name (0 or 1).
func (r *Groups) CountByName(ctx context.Context, name string) (int, error) {
	return count(ctx, r.q, "count groups by name", `SELECT COUNT(*) FROM user_groups WHERE name = ?`, name)
}

// Exists reports whether a group with id exists.
func (r *Groups) Exists(ctx context.Context, id string) (bool, error) {
	n, err := count(ctx, r.q, "group exists", `SELECT COUNT(*) FROM user_groups WHERE id = ?`, id)
	return n > 0, err
}

// Delete removes the group row. Dependent memberships and permits must be
// removed first.
func (r *Groups) Delete(ctx context.Context, id string) error {
	return execOne(ctx, r.q, "delete group", `DELETE FROM user_groups WHERE id = ?`, id)
}
