package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/roach88/keeper/internal/model"
)

const userColumns = `id, name, email, password, role, created_at, activated_at, last_login_at`

// Users reads and writes the users table.
type Users struct {
	q DBTX
}

// NewUsers binds a Users accessor to q.
func NewUsers(q DBTX) *Users {
	return &Users{q: q}
}

func scanUser(row scanner) (model.User, error) {
	var (
		u                  model.User
		role               string
		createdAt          int64
		activated, lastLog sql.NullInt64
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &role, &createdAt, &activated, &lastLog); err != nil {
		return model.User{}, err
	}
	u.Role = model.Role(role)
	u.CreatedAt = fromMillis(createdAt)
	u.ActivatedAt = fromNullMillis(activated)
	u.LastLoginAt = fromNullMillis(lastLog)
	return u, nil
}

// Insert adds u. The caller supplies the id.
func (r *Users) Insert(ctx context.Context, u model.User) error {
	_, err := execMany(ctx, r.q, "insert user", `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		u.ID,
		u.Name,
		u.Email,
		u.Password,
		string(u.Role),
		toMillis(u.CreatedAt),
		nullMillis(u.ActivatedAt),
		nullMillis(u.LastLoginAt),
	)
	return err
}

// Get returns the user with the given id.
func (r *Users) Get(ctx context.Context, id string) (model.User, error) {
	return queryOne(ctx, r.q, "get user", scanUser, `
		SELECT `+userColumns+` FROM users WHERE id = ?
	`, id)
}

// GetByName returns the user with the given (normalized) name.
func (r *Users) GetByName(ctx context.Context, name string) (model.User, error) {
	return queryOne(ctx, r.q, "get user by name", scanUser, `
		SELECT `+userColumns+` FROM users WHERE name = ?
	`, name)
}

// List returns every user ordered by creation time.
func (r *Users) List(ctx context.Context) ([]model.User, error) {
	return queryAll(ctx, r.q, "list users", scanUser, `
		SELECT `+userColumns+` FROM users
		ORDER BY created_at ASC, id ASC
	`)
}

// CountByName counts users with the given name (0 or 1).
func (r *Users) CountByName(ctx context.Context, name string) (int, error) {
	return count(ctx, r.q, "count users by name", `SELECT COUNT(*) FROM users WHERE name = ?`, name)
}

// CountByEmail counts users with the given email (0 or 1).
func (r *Users) CountByEmail(ctx context.Context, email string) (int, error) {
	return count(ctx, r.q, "count users by email", `SELECT COUNT(*) FROM users WHERE email = ?`, email)
}

// Exists reports whether a user with id exists.
func (r *Users) Exists(ctx context.Context, id string) (bool, error) {
	n, err := count(ctx, r.q, "user exists", `SELECT COUNT(*) FROM users WHERE id = ?`, id)
	return n > 0, err
}

// SetActivated stamps the activation time.
func (r *Users) SetActivated(ctx context.Context, id string, at time.Time) error {
	return execOne(ctx, r.q, "activate user", `
		UPDATE users SET activated_at = ? WHERE id = ?
	`, toMillis(at), id)
}

// SetLastLogin stamps the last-login time.
func (r *Users) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	return execOne(ctx, r.q, "record user login", `
		UPDATE users SET last_login_at = ? WHERE id = ?
	`, toMillis(at), id)
}

// Delete removes the user row. Dependent memberships and permits must be
// removed first.
func (r *Users) Delete(ctx context.Context, id string) error {
	return execOne(ctx, r.q, "delete user", `DELETE FROM users WHERE id = ?`, id)
}
