// Package access answers which documents a user may read.
//
// A user may read a keeper when the user's role is admin, when a permit on
// the keeper names the user, or when a permit on the keeper names a group the
// user is a member of. Permission is evaluated against the permit and
// membership rows at call time and never cached, so revoking a permit or a
// membership takes effect on the next read.
//
// The resolver never mutates state and never acquires its own connection:
// callers pass the unit of work the surrounding operation already holds.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/keeper/internal/model"
	"github.com/roach88/keeper/internal/outcome"
	"github.com/roach88/keeper/internal/store"
	"github.com/roach88/keeper/internal/uow"
)

// Basis names the rule that granted (or failed to grant) read access.
type Basis string

const (
	BasisNone   Basis = "none"
	BasisAdmin  Basis = "admin"
	BasisDirect Basis = "direct"
	BasisGroup  Basis = "group"
)

// Granted reports whether b allows reading.
func (b Basis) Granted() bool {
	return b != BasisNone && b != ""
}

// Requester loads the requesting user, reporting an unknown id as a request
// failure.
func Requester(ctx context.Context, u *uow.UnitOfWork, userID string) (model.User, error) {
	if userID == "" {
		return model.User{}, outcome.Invalid("requester id is required")
	}
	user, err := u.Users.Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return model.User{}, outcome.NotFound("user %s not found", userID)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("load requester: %w", err)
	}
	return user, nil
}

// ListVisible returns every keeper userID may read: all keepers for an
// admin, otherwise the duplicate-free union of directly and group-permitted
// keepers, ordered by posting time.
func ListVisible(ctx context.Context, u *uow.UnitOfWork, userID string) ([]model.Keeper, error) {
	user, err := Requester(ctx, u, userID)
	if err != nil {
		return nil, err
	}
	if user.Role.IsAdmin() {
		return u.Keepers.List(ctx)
	}
	return u.Keepers.ListPermitted(ctx, user.ID)
}

// Explain reports why userID may read keeperID, or BasisNone. A direct
// permit is reported ahead of a group permit when both exist. The keeper's
// existence is not checked.
func Explain(ctx context.Context, u *uow.UnitOfWork, userID, keeperID string) (Basis, error) {
	user, err := Requester(ctx, u, userID)
	if err != nil {
		return BasisNone, err
	}
	return ExplainFor(ctx, u, user, keeperID)
}

// ExplainFor is Explain for an already loaded requester.
func ExplainFor(ctx context.Context, u *uow.UnitOfWork, user model.User, keeperID string) (Basis, error) {
	if user.Role.IsAdmin() {
		return BasisAdmin, nil
	}

	direct, err := u.Permits.CountDirect(ctx, keeperID, user.ID)
	if err != nil {
		return BasisNone, err
	}
	if direct > 0 {
		return BasisDirect, nil
	}

	viaGroups, err := u.Permits.CountViaGroups(ctx, keeperID, user.ID)
	if err != nil {
		return BasisNone, err
	}
	if viaGroups > 0 {
		return BasisGroup, nil
	}
	return BasisNone, nil
}

// CanRead reports whether userID may read keeperID.
func CanRead(ctx context.Context, u *uow.UnitOfWork, userID, keeperID string) (bool, error) {
	basis, err := Explain(ctx, u, userID, keeperID)
	if err != nil {
		return false, err
	}
	return basis.Granted(), nil
}

// Service exposes the resolver to callers that do not hold a unit of work.
// Each call runs in its own read transaction.
type Service struct {
	uows *uow.Factory
}

// NewService returns a resolver service drawing units of work from uows.
func NewService(uows *uow.Factory) *Service {
	return &Service{uows: uows}
}

// ListVisible runs ListVisible on a fresh unit of work.
func (s *Service) ListVisible(ctx context.Context, userID string) ([]model.Keeper, error) {
	var out []model.Keeper
	err := s.uows.View(ctx, "access.list_visible", func(u *uow.UnitOfWork) error {
		var err error
		out, err = ListVisible(ctx, u, userID)
		return err
	})
	return out, err
}

// CanRead runs CanRead on a fresh unit of work.
func (s *Service) CanRead(ctx context.Context, userID, keeperID string) (bool, error) {
	basis, err := s.Explain(ctx, userID, keeperID)
	return basis.Granted(), err
}

// Explain runs Explain on a fresh unit of work, additionally reporting an
// unknown keeper as a request failure.
func (s *Service) Explain(ctx context.Context, userID, keeperID string) (Basis, error) {
	basis := BasisNone
	err := s.uows.View(ctx, "access.explain", func(u *uow.UnitOfWork) error {
		exists, err := u.Keepers.Exists(ctx, keeperID)
		if err != nil {
			return err
		}
		if !exists {
			return outcome.NotFound("document %s not found", keeperID)
		}
		basis, err = Explain(ctx, u, userID, keeperID)
		return err
	})
	if err != nil {
		return BasisNone, err
	}
	return basis, nil
}
