package store

import (
	"context"

	"github.com/roach88/keeper/internal/model"
)

// Filedata reads and writes document payloads.
type Filedata struct {
	q DBTX
}

// NewFiledata binds a Filedata accessor to q.
func NewFiledata(q DBTX) *Filedata {
	return &Filedata{q: q}
}

func scanFiledata(row scanner) (model.Filedata, error) {
	var f model.Filedata
	err := row.Scan(&f.KeeperID, &f.Data)
	return f, err
}

// Insert stores the payload for an existing keeper.
func (r *Filedata) Insert(ctx context.Context, f model.Filedata) error {
	_, err := execMany(ctx, r.q, "insert filedata", `
		INSERT INTO filedata (keeper_id, data) VALUES (?, ?)
	`, f.KeeperID, f.Data)
	return err
}

// Get returns the payload of keeperID.
func (r *Filedata) Get(ctx context.Context, keeperID string) (model.Filedata, error) {
	return queryOne(ctx, r.q, "get filedata", scanFiledata, `
		SELECT keeper_id, data FROM filedata WHERE keeper_id = ?
	`, keeperID)
}

// Delete removes the payload of keeperID.
func (r *Filedata) Delete(ctx context.Context, keeperID string) error {
	return execOne(ctx, r.q, "delete filedata", `DELETE FROM filedata WHERE keeper_id = ?`, keeperID)
}
