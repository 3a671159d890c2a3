package store

import (
	"context"
	"database/sql"

	"github.com/roach88/keeper/internal/model"
)

const keeperColumns = `k.id, k.filename, k.content_type, k.description, k.category, k.posted_at, k.posted_by`

// Keepers reads and writes document metadata.
type Keepers struct {
	q DBTX
}

// NewKeepers binds a Keepers accessor to q.
func NewKeepers(q DBTX) *Keepers {
	return &Keepers{q: q}
}

func scanKeeper(row scanner) (model.Keeper, error) {
	var (
		k        model.Keeper
		postedAt int64
		postedBy sql.NullString
	)
	if err := row.Scan(&k.ID, &k.Filename, &k.ContentType, &k.Description, &k.Category, &postedAt, &postedBy); err != nil {
		return model.Keeper{}, err
	}
	k.PostedAt = fromMillis(postedAt)
	k.PostedBy = postedBy.String
	return k, nil
}

func scanDocument(row scanner) (model.Document, error) {
	var (
		d        model.Document
		postedAt int64
		postedBy sql.NullString
	)
	if err := row.Scan(&d.ID, &d.Filename, &d.ContentType, &d.Description, &d.Category, &postedAt, &postedBy, &d.Data); err != nil {
		return model.Document{}, err
	}
	d.PostedAt = fromMillis(postedAt)
	d.PostedBy = postedBy.String
	return d, nil
}

// Insert adds the metadata row. The caller supplies the id.
func (r *Keepers) Insert(ctx context.Context, k model.Keeper) error {
	_, err := execMany(ctx, r.q, "insert keeper", `
		INSERT INTO keepers (id, filename, content_type, description, category, posted_at, posted_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		k.ID,
		k.Filename,
		k.ContentType,
		k.Description,
		k.Category,
		toMillis(k.PostedAt),
		nullString(k.PostedBy),
	)
	return err
}

// Get returns the metadata row with the given id.
func (r *Keepers) Get(ctx context.Context, id string) (model.Keeper, error) {
	return queryOne(ctx, r.q, "get keeper", scanKeeper, `
		SELECT `+keeperColumns+` FROM keepers k WHERE k.id = ?
	`, id)
}

// GetDocument joins the metadata row with its payload.
func (r *Keepers) GetDocument(ctx context.Context, id string) (model.Document, error) {
	return queryOne(ctx, r.q, "get document", scanDocument, `
		SELECT `+keeperColumns+`, f.data
		FROM keepers k
		JOIN filedata f ON f.keeper_id = k.id
		WHERE k.id = ?
	`, id)
}

// List returns every keeper ordered by posting time.
func (r *Keepers) List(ctx context.Context) ([]model.Keeper, error) {
	return queryAll(ctx, r.q, "list keepers", scanKeeper, `
		SELECT `+keeperColumns+` FROM keepers k
		ORDER BY k.posted_at ASC, k.id ASC
	`)
}

// ListPermitted returns the keepers that have at least one permit naming
// userID directly or naming a group userID belongs to. Each keeper appears
// once however many permits match.
func (r *Keepers) ListPermitted(ctx context.Context, userID string) ([]model.Keeper, error) {
	return queryAll(ctx, r.q, "list permitted keepers", scanKeeper, `
		SELECT `+keeperColumns+` FROM keepers k
		WHERE EXISTS (
			SELECT 1 FROM permits p
			WHERE p.keeper_id = k.id
			  AND (
				p.user_id = ?
				OR p.group_id IN (SELECT m.group_id FROM memberships m WHERE m.user_id = ?)
			  )
		)
		ORDER BY k.posted_at ASC, k.id ASC
	`, userID, userID)
}

// CountByFilename counts keepers with the given filename (0 or 1).
func (r *Keepers) CountByFilename(ctx context.Context, filename string) (int, error) {
	return count(ctx, r.q, "count keepers by filename", `
		SELECT COUNT(*) FROM keepers WHERE filename = ?
	`, filename)
}

// Exists reports whether a keeper with id exists.
func (r *Keepers) Exists(ctx context.Context, id string) (bool, error) {
	n, err := count(ctx, r.q, "keeper exists", `SELECT COUNT(*) FROM keepers WHERE id = ?`, id)
	return n > 0, err
}

// UpdateMetadata overwrites the mutable metadata columns of k.ID. The id,
// posting time and poster are never changed.
func (r *Keepers) UpdateMetadata(ctx context.Context, k model.Keeper) error {
	return execOne(ctx, r.q, "update keeper", `
		UPDATE keepers
		SET filename = ?, content_type = ?, description = ?, category = ?
		WHERE id = ?
	`, k.Filename, k.ContentType, k.Description, k.Category, k.ID)
}

// Delete removes the metadata row. Its filedata row and permits must be
// removed first.
func (r *Keepers) Delete(ctx context.Context, id string) error {
	return execOne(ctx, r.q, "delete keeper", `DELETE FROM keepers WHERE id = ?`, id)
}
