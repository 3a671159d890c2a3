// Package documents manages the paired keeper and filedata records that
// make up a document.
//
// A document is created, and deleted, as one unit: both rows are written
// or removed inside a single transaction, the payload row always removed
// before the metadata row it references. After creation only metadata may
// change; replacing content means deleting and re-creating the document.
package documents

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/keeper/internal/access"
	"github.com/roach88/keeper/internal/grants"
	"github.com/roach88/keeper/internal/model"
	"github.com/roach88/keeper/internal/outcome"
	"github.com/roach88/keeper/internal/store"
	"github.com/roach88/keeper/internal/uow"
)

// NewDocument is the input to Create.
type NewDocument struct {
	Filename    string
	ContentType string
	Description string
	Category    string
	PostedBy    string
	Data        []byte
}

// normalize returns a copy with the filename normalized and the content
// type defaulted.
func (d NewDocument) normalize() NewDocument {
	d.Filename = model.NormalizeName(d.Filename)
	if d.ContentType == "" {
		d.ContentType = model.DefaultContentType
	}
	return d
}

// Validate checks required fields. It does not touch storage.
func (d NewDocument) Validate() error {
	switch {
	case model.NormalizeName(d.Filename) == "":
		return outcome.Invalid("filename is required")
	case len(d.Data) == 0:
		return outcome.Invalid("document content is required")
	case d.PostedBy == "":
		return outcome.Invalid("posting user id is required")
	}
	return nil
}

// Update changes document metadata. Nil fields are left as they are.
type Update struct {
	Filename    *string
	ContentType *string
	Description *string
	Category    *string
}

// Empty reports whether u changes nothing.
func (u Update) Empty() bool {
	return u.Filename == nil && u.ContentType == nil && u.Description == nil && u.Category == nil
}

// apply returns k with u's fields overlaid.
func (u Update) apply(k model.Keeper) (model.Keeper, error) {
	if u.Filename != nil {
		name := model.NormalizeName(*u.Filename)
		if name == "" {
			return k, outcome.Invalid("filename must not be empty")
		}
		k.Filename = name
	}
	if u.ContentType != nil {
		k.ContentType = *u.ContentType
		if k.ContentType == "" {
			k.ContentType = model.DefaultContentType
		}
	}
	if u.Description != nil {
		k.Description = *u.Description
	}
	if u.Category != nil {
		k.Category = *u.Category
	}
	return k, nil
}

// Service implements the document lifecycle.
type Service struct {
	uows  *uow.Factory
	ids   model.IDGenerator
	clock model.Clock
}

// NewService returns a document service. ids generates keeper ids and
// clock stamps posting times.
func NewService(uows *uow.Factory, ids model.IDGenerator, clock model.Clock) *Service {
	return &Service{uows: uows, ids: ids, clock: clock}
}

// Create stores a new document and returns its metadata.
func (s *Service) Create(ctx context.Context, req NewDocument) (model.Keeper, error) {
	if err := req.Validate(); err != nil {
		return model.Keeper{}, err
	}
	req = req.normalize()

	var k model.Keeper
	err := s.uows.Run(ctx, "documents.create", func(u *uow.UnitOfWork) error {
		poster, err := u.Users.Exists(ctx, req.PostedBy)
		if err != nil {
			return err
		}
		if !poster {
			return outcome.NotFound("user %s not found", req.PostedBy)
		}

		n, err := u.Keepers.CountByFilename(ctx, req.Filename)
		if err != nil {
			return err
		}
		if n > 0 {
			return duplicateFilename(req.Filename)
		}

		k = model.Keeper{
			ID:          s.ids.Generate(),
			Filename:    req.Filename,
			ContentType: req.ContentType,
			Description: req.Description,
			Category:    req.Category,
			PostedAt:    s.clock.Now(),
			PostedBy:    req.PostedBy,
		}
		err = u.Keepers.Insert(ctx, k)
		if store.IsUniqueViolation(err) {
			return duplicateFilename(req.Filename)
		}
		if err != nil {
			return err
		}
		return u.Filedata.Insert(ctx, model.Filedata{KeeperID: k.ID, Data: req.Data})
	})
	if err != nil {
		return model.Keeper{}, err
	}

	slog.Debug("document created", "id", k.ID, "filename", k.Filename, "bytes", len(req.Data))
	return k, nil
}

func duplicateFilename(name string) error {
	return outcome.Duplicate("a document named %q already exists", name)
}

// List returns the metadata of every document requesterID may read.
func (s *Service) List(ctx context.Context, requesterID string) ([]model.Keeper, error) {
	var out []model.Keeper
	err := s.uows.View(ctx, "documents.list", func(u *uow.UnitOfWork) error {
		var err error
		out, err = access.ListVisible(ctx, u, requesterID)
		return err
	})
	return out, err
}

// testHookBeforeFetch runs between the visibility check and the payload
// read in Get.
var testHookBeforeFetch = func() {}

// Get returns a document's metadata and payload. A document that does not
// exist is NOT_FOUND; one that exists but is not visible to requesterID is
// FORBIDDEN. All checks and the fetch read one snapshot.
func (s *Service) Get(ctx context.Context, requesterID, keeperID string) (model.Document, error) {
	if keeperID == "" {
		return model.Document{}, outcome.Invalid("document id is required")
	}

	var doc model.Document
	err := s.uows.View(ctx, "documents.get", func(u *uow.UnitOfWork) error {
		requester, err := access.Requester(ctx, u, requesterID)
		if err != nil {
			return err
		}
		if err := requireKeeper(ctx, u, keeperID); err != nil {
			return err
		}

		basis, err := access.ExplainFor(ctx, u, requester, keeperID)
		if err != nil {
			return err
		}
		if !basis.Granted() {
			return outcome.Forbidden("user %s may not read document %s", requesterID, keeperID)
		}

		testHookBeforeFetch()
		doc, err = u.Keepers.GetDocument(ctx, keeperID)
		if errors.Is(err, store.ErrNotFound) {
			return outcome.NotFound("document %s not found", keeperID)
		}
		return err
	})
	if err != nil {
		return model.Document{}, err
	}
	return doc, nil
}

// Update changes a document's metadata and returns the result. The payload
// is never modified.
func (s *Service) Update(ctx context.Context, keeperID string, upd Update) (model.Keeper, error) {
	if keeperID == "" {
		return model.Keeper{}, outcome.Invalid("document id is required")
	}

	var k model.Keeper
	err := s.uows.Run(ctx, "documents.update", func(u *uow.UnitOfWork) error {
		current, err := u.Keepers.Get(ctx, keeperID)
		if errors.Is(err, store.ErrNotFound) {
			return outcome.NotFound("document %s not found", keeperID)
		}
		if err != nil {
			return err
		}

		k, err = upd.apply(current)
		if err != nil {
			return err
		}
		if k == current {
			return nil
		}

		if k.Filename != current.Filename {
			n, err := u.Keepers.CountByFilename(ctx, k.Filename)
			if err != nil {
				return err
			}
			if n > 0 {
				return duplicateFilename(k.Filename)
			}
		}

		err = u.Keepers.UpdateMetadata(ctx, k)
		if store.IsUniqueViolation(err) {
			return duplicateFilename(k.Filename)
		}
		return err
	})
	if err != nil {
		return model.Keeper{}, err
	}
	return k, nil
}

// Delete removes a document: its permits, then its payload, then its
// metadata, in one transaction.
func (s *Service) Delete(ctx context.Context, keeperID string) error {
	if keeperID == "" {
		return outcome.Invalid("document id is required")
	}

	var purged grants.Purged
	err := s.uows.Run(ctx, "documents.delete", func(u *uow.UnitOfWork) error {
		if err := requireKeeper(ctx, u, keeperID); err != nil {
			return err
		}

		var err error
		if purged, err = grants.PurgeKeeper(ctx, u, keeperID); err != nil {
			return err
		}
		if err := u.Filedata.Delete(ctx, keeperID); err != nil {
			return err
		}
		return u.Keepers.Delete(ctx, keeperID)
	})
	if err != nil {
		return err
	}

	slog.Debug("document deleted", "id", keeperID, "permits", purged.Permits)
	return nil
}

func requireKeeper(ctx context.Context, u *uow.UnitOfWork, id string) error {
	ok, err := u.Keepers.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return outcome.NotFound("document %s not found", id)
	}
	return nil
}
