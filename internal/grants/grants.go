// Package grants manages group memberships and document permits.
//
// Every write runs in its own unit-of-work transaction. Duplicate checks
// count matching rows first for a readable rejection, and a uniqueness
// constraint violation on insert is reported the same way, so two
// concurrent creates of the same grant yield one success and one
// DUPLICATE.
//
// The Purge functions remove the grants that reference a parent row. They
// run inside the caller's unit of work so the parent delete and its
// dependent deletes commit or roll back together.
package grants

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/keeper/internal/model"
	"github.com/roach88/keeper/internal/outcome"
	"github.com/roach88/keeper/internal/store"
	"github.com/roach88/keeper/internal/uow"
)

// NewPermit describes a grant of read access on KeeperID to UserID, GroupID,
// or both.
type NewPermit struct {
	KeeperID string
	UserID   string
	GroupID  string
}

func (p NewPermit) permit() model.Permit {
	return model.Permit{KeeperID: p.KeeperID, UserID: p.UserID, GroupID: p.GroupID}
}

// Validate checks the fields that can be checked without storage.
func (p NewPermit) Validate() error {
	if p.KeeperID == "" {
		return outcome.Invalid("keeper id is required")
	}
	if !p.permit().Targets() {
		return outcome.Invalid("permit must name a user, a group, or both")
	}
	return nil
}

// Purged counts the dependent rows removed by a purge.
type Purged struct {
	Permits     int64
	Memberships int64
}

// Service creates and removes memberships and permits.
type Service struct {
	uows *uow.Factory
	ids  model.IDGenerator
}

// NewService returns a grants service. ids generates permit ids.
func NewService(uows *uow.Factory, ids model.IDGenerator) *Service {
	return &Service{uows: uows, ids: ids}
}

// CreateMembership adds userID to groupID.
func (s *Service) CreateMembership(ctx context.Context, groupID, userID string) (model.Membership, error) {
	if groupID == "" || userID == "" {
		return model.Membership{}, outcome.Invalid("group id and user id are required")
	}

	var m model.Membership
	err := s.uows.Run(ctx, "grants.create_membership", func(u *uow.UnitOfWork) error {
		if err := requireGroup(ctx, u, groupID); err != nil {
			return err
		}
		if err := requireUser(ctx, u, userID); err != nil {
			return err
		}

		n, err := u.Memberships.Count(ctx, groupID, userID)
		if err != nil {
			return err
		}
		if n > 0 {
			return duplicateMembership(groupID, userID)
		}

		id, err := u.Memberships.Insert(ctx, groupID, userID)
		if store.IsUniqueViolation(err) {
			return duplicateMembership(groupID, userID)
		}
		if err != nil {
			return err
		}
		m = model.Membership{ID: id, GroupID: groupID, UserID: userID}
		return nil
	})
	return m, err
}

func duplicateMembership(groupID, userID string) error {
	return outcome.Duplicate("user %s is already a member of group %s", userID, groupID)
}

// DeleteMembership removes userID from groupID.
func (s *Service) DeleteMembership(ctx context.Context, groupID, userID string) error {
	if groupID == "" || userID == "" {
		return outcome.Invalid("group id and user id are required")
	}
	return s.uows.Run(ctx, "grants.delete_membership", func(u *uow.UnitOfWork) error {
		err := u.Memberships.Delete(ctx, groupID, userID)
		if errors.Is(err, store.ErrNotFound) {
			return outcome.NotFound("user %s is not a member of group %s", userID, groupID)
		}
		return err
	})
}

// ListMembershipsByUser returns the groups userID belongs to.
func (s *Service) ListMembershipsByUser(ctx context.Context, userID string) ([]model.Membership, error) {
	var out []model.Membership
	err := s.uows.Read(ctx, "grants.list_memberships_by_user", func(u *uow.UnitOfWork) error {
		if err := requireUser(ctx, u, userID); err != nil {
			return err
		}
		var err error
		out, err = u.Memberships.ListByUser(ctx, userID)
		return err
	})
	return out, err
}

// ListMembershipsByGroup returns the members of groupID.
func (s *Service) ListMembershipsByGroup(ctx context.Context, groupID string) ([]model.Membership, error) {
	var out []model.Membership
	err := s.uows.Read(ctx, "grants.list_memberships_by_group", func(u *uow.UnitOfWork) error {
		if err := requireGroup(ctx, u, groupID); err != nil {
			return err
		}
		var err error
		out, err = u.Memberships.ListByGroup(ctx, groupID)
		return err
	})
	return out, err
}

// CreatePermit grants read access on a keeper. Malformed input is rejected
// before a connection is acquired.
func (s *Service) CreatePermit(ctx context.Context, req NewPermit) (model.Permit, error) {
	if err := req.Validate(); err != nil {
		return model.Permit{}, err
	}

	p := req.permit()
	err := s.uows.Run(ctx, "grants.create_permit", func(u *uow.UnitOfWork) error {
		if err := requireKeeper(ctx, u, p.KeeperID); err != nil {
			return err
		}
		if p.UserID != "" {
			if err := requireUser(ctx, u, p.UserID); err != nil {
				return err
			}
		}
		if p.GroupID != "" {
			if err := requireGroup(ctx, u, p.GroupID); err != nil {
				return err
			}
		}

		n, err := u.Permits.Count(ctx, p.KeeperID, p.UserID, p.GroupID)
		if err != nil {
			return err
		}
		if n > 0 {
			return duplicatePermit(p)
		}

		p.ID = s.ids.Generate()
		err = u.Permits.Insert(ctx, p)
		if store.IsUniqueViolation(err) {
			return duplicatePermit(p)
		}
		return err
	})
	if err != nil {
		return model.Permit{}, err
	}
	return p, nil
}

func duplicatePermit(p model.Permit) error {
	return outcome.Duplicate("an identical permit on document %s already exists (user %q, group %q)", p.KeeperID, p.UserID, p.GroupID)
}

// DeletePermit revokes one permit by id.
func (s *Service) DeletePermit(ctx context.Context, permitID string) error {
	if permitID == "" {
		return outcome.Invalid("permit id is required")
	}
	return s.uows.Run(ctx, "grants.delete_permit", func(u *uow.UnitOfWork) error {
		err := u.Permits.Delete(ctx, permitID)
		if errors.Is(err, store.ErrNotFound) {
			return outcome.NotFound("permit %s not found", permitID)
		}
		return err
	})
}

// ListPermits returns every permit on keeperID.
func (s *Service) ListPermits(ctx context.Context, keeperID string) ([]model.Permit, error) {
	var out []model.Permit
	err := s.uows.Read(ctx, "grants.list_permits", func(u *uow.UnitOfWork) error {
		if err := requireKeeper(ctx, u, keeperID); err != nil {
			return err
		}
		var err error
		out, err = u.Permits.ListByKeeper(ctx, keeperID)
		return err
	})
	return out, err
}

// PurgeUser removes every permit naming userID and every membership of
// userID. The caller's transaction must be open.
func PurgeUser(ctx context.Context, u *uow.UnitOfWork, userID string) (Purged, error) {
	var (
		p   Purged
		err error
	)
	if p.Permits, err = u.Permits.DeleteByUser(ctx, userID); err != nil {
		return Purged{}, fmt.Errorf("purge permits of user %s: %w", userID, err)
	}
	if p.Memberships, err = u.Memberships.DeleteByUser(ctx, userID); err != nil {
		return Purged{}, fmt.Errorf("purge memberships of user %s: %w", userID, err)
	}
	return p, nil
}

// PurgeGroup removes every permit naming groupID and every membership in
// groupID. The caller's transaction must be open.
func PurgeGroup(ctx context.Context, u *uow.UnitOfWork, groupID string) (Purged, error) {
	var (
		p   Purged
		err error
	)
	if p.Permits, err = u.Permits.DeleteByGroup(ctx, groupID); err != nil {
		return Purged{}, fmt.Errorf("purge permits of group %s: %w", groupID, err)
	}
	if p.Memberships, err = u.Memberships.DeleteByGroup(ctx, groupID); err != nil {
		return Purged{}, fmt.Errorf("purge memberships of group %s: %w", groupID, err)
	}
	return p, nil
}

// PurgeKeeper removes every permit on keeperID. The caller's transaction
// must be open.
func PurgeKeeper(ctx context.Context, u *uow.UnitOfWork, keeperID string) (Purged, error) {
	n, err := u.Permits.DeleteByKeeper(ctx, keeperID)
	if err != nil {
		return Purged{}, fmt.Errorf("purge permits of document %s: %w", keeperID, err)
	}
	return Purged{Permits: n}, nil
}

func requireUser(ctx context.Context, u *uow.UnitOfWork, id string) error {
	ok, err := u.Users.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return outcome.NotFound("user %s not found", id)
	}
	return nil
}

func requireGroup(ctx context.Context, u *uow.UnitOfWork, id string) error {
	ok, err := u.Groups.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return outcome.NotFound("group %s not found", id)
	}
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
