// Package directory manages users and groups.
//
// Names are compared after Unicode normalization, emails additionally
// case-folded. Deleting a user or group removes every permit and membership
// that references it in the same transaction as the parent row.
package directory

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/roach88/keeper/internal/grants"
	"github.com/roach88/keeper/internal/model"
	"github.com/roach88/keeper/internal/outcome"
	"github.com/roach88/keeper/internal/store"
	"github.com/roach88/keeper/internal/uow"
)

// NewUser is the input to CreateUser. Password is stored as given; hashing
// it is the caller's job.
type NewUser struct {
	Name     string
	Email    string
	Password string
	Role     model.Role
}

// Validate checks required fields on a normalized NewUser.
func (n NewUser) Validate() error {
	switch {
	case n.Name == "":
		return outcome.Invalid("user name is required")
	case n.Email == "":
		return outcome.Invalid("email is required")
	case !strings.Contains(n.Email, "@"):
		return outcome.Invalid("email %q is not an address", n.Email)
	case n.Password == "":
		return outcome.Invalid("password is required")
	case !n.Role.Valid():
		return outcome.Invalid("unknown role %q", n.Role)
	}
	return nil
}

func (n NewUser) normalize() NewUser {
	n.Name = model.NormalizeName(n.Name)
	n.Email = model.NormalizeEmail(n.Email)
	if n.Role == "" {
		n.Role = model.RoleBasic
	}
	return n
}

// NewGroup is the input to CreateGroup.
type NewGroup struct {
	Name        string
	Description string
}

// Service creates, reads and deletes users and groups.
type Service struct {
	uows  *uow.Factory
	ids   model.IDGenerator
	clock model.Clock
}

// NewService returns a directory service.
func NewService(uows *uow.Factory, ids model.IDGenerator, clock model.Clock) *Service {
	return &Service{uows: uows, ids: ids, clock: clock}
}

// CreateUser registers a new user.
func (s *Service) CreateUser(ctx context.Context, req NewUser) (model.User, error) {
	req = req.normalize()
	if err := req.Validate(); err != nil {
		return model.User{}, err
	}

	var user model.User
	err := s.uows.Run(ctx, "directory.create_user", func(u *uow.UnitOfWork) error {
		if n, err := u.Users.CountByName(ctx, req.Name); err != nil {
			return err
		} else if n > 0 {
			return outcome.Duplicate("user name %q is taken", req.Name)
		}
		if n, err := u.Users.CountByEmail(ctx, req.Email); err != nil {
			return err
		} else if n > 0 {
			return outcome.Duplicate("email %q is already registered", req.Email)
		}

		user = model.User{
			ID:        s.ids.Generate(),
			Name:      req.Name,
			Email:     req.Email,
			Password:  req.Password,
			Role:      req.Role,
			CreatedAt: s.clock.Now(),
		}
		err := u.Users.Insert(ctx, user)
		if store.IsUniqueViolation(err) {
			return outcome.Duplicate("user %q or email %q already exists", req.Name, req.Email)
		}
		return err
	})
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}

// GetUser returns the user with id.
func (s *Service) GetUser(ctx context.Context, id string) (model.User, error) {
	var user model.User
	err := s.uows.Read(ctx, "directory.get_user", func(u *uow.UnitOfWork) error {
		var err error
		user, err = getUser(ctx, u, id)
		return err
	})
	return user, err
}

// ListUsers returns every user ordered by creation time.
func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	var out []model.User
	err := s.uows.Read(ctx, "directory.list_users", func(u *uow.UnitOfWork) error {
		var err error
		out, err = u.Users.List(ctx)
		return err
	})
	return out, err
}

// ActivateUser stamps the user's activation time. Activating an already
// active user leaves the original stamp in place.
func (s *Service) ActivateUser(ctx context.Context, id string) (model.User, error) {
	var user model.User
	err := s.uows.Run(ctx, "directory.activate_user", func(u *uow.UnitOfWork) error {
		var err error
		if user, err = getUser(ctx, u, id); err != nil {
			return err
		}
		if user.ActivatedAt != nil {
			return nil
		}
		now := s.clock.Now()
		if err := u.Users.SetActivated(ctx, id, now); err != nil {
			return err
		}
		user.ActivatedAt = &now
		return nil
	})
	return user, err
}

// RecordLogin stamps the user's last-login time.
func (s *Service) RecordLogin(ctx context.Context, id string) (model.User, error) {
	var user model.User
	err := s.uows.Run(ctx, "directory.record_login", func(u *uow.UnitOfWork) error {
		var err error
		if user, err = getUser(ctx, u, id); err != nil {
			return err
		}
		now := s.clock.Now()
		if err := u.Users.SetLastLogin(ctx, id, now); err != nil {
			return err
		}
		user.LastLoginAt = &now
		return nil
	})
	return user, err
}

// DeleteUser removes a user with its permits and memberships. Documents the
// user posted are kept and lose their poster.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	var purged grants.Purged
	err := s.uows.Run(ctx, "directory.delete_user", func(u *uow.UnitOfWork) error {
		if _, err := getUser(ctx, u, id); err != nil {
			return err
		}
		var err error
		if purged, err = grants.PurgeUser(ctx, u, id); err != nil {
			return err
		}
		return u.Users.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	slog.Debug("user deleted", "id", id, "permits", purged.Permits, "memberships", purged.Memberships)
	return nil
}

func getUser(ctx context.Context, u *uow.UnitOfWork, id string) (model.User, error) {
	if id == "" {
		return model.User{}, outcome.Invalid("user id is required")
	}
	user, err := u.Users.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.User{}, outcome.NotFound("user %s not found", id)
	}
	return user, err
}

// CreateGroup registers a new group.
func (s *Service) CreateGroup(ctx context.Context, req NewGroup) (model.Group, error) {
	name := model.NormalizeName(req.Name)
	if name == "" {
		return model.Group{}, outcome.Invalid("group name is required")
	}

	var group model.Group
	err := s.uows.Run(ctx, "directory.create_group", func(u *uow.UnitOfWork) error {
		n, err := u.Groups.CountByName(ctx, name)
		if err != nil {
			return err
		}
		if n > 0 {
			return outcome.Duplicate("group name %q is taken", name)
		}

		group = model.Group{
			ID:          s.ids.Generate(),
			Name:        name,
			Description: strings.TrimSpace(req.Description),
			CreatedAt:   s.clock.Now(),
		}
		err = u.Groups.Insert(ctx, group)
		if store.IsUniqueViolation(err) {
			return outcome.Duplicate("group name %q is taken", name)
		}
		return err
	})
	if err != nil {
		return model.Group{}, err
	}
	return group, nil
}

// GetGroup returns the group with id.
func (s *Service) GetGroup(ctx context.Context, id string) (model.Group, error) {
	var group model.Group
	err := s.uows.Read(ctx, "directory.get_group", func(u *uow.UnitOfWork) error {
		var err error
		group, err = getGroup(ctx, u, id)
		return err
	})
	return group, err
}

// ListGroups returns every group ordered by creation time.
func (s *Service) ListGroups(ctx context.Context) ([]model.Group, error) {
	var out []model.Group
	err := s.uows.Read(ctx, "directory.list_groups", func(u *uow.UnitOfWork) error {
		var err error
		out, err = u.Groups.List(ctx)
		return err
	})
	return out, err
}

// DeleteGroup removes a group with its permits and memberships.
func (s *Service) DeleteGroup(ctx context.Context, id string) error {
	var purged grants.Purged
	err := s.uows.Run(ctx, "directory.delete_group", func(u *uow.UnitOfWork) error {
		if _, err := getGroup(ctx, u, id); err != nil {
			return err
		}
		var err error
		if purged, err = grants.PurgeGroup(ctx, u, id); err != nil {
			return err
		}
		return u.Groups.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	slog.Debug("group deleted", "id", id, "permits", purged.Permits, "memberships", purged.Memberships)
	return nil
}

func getGroup(ctx context.Context, u *uow.UnitOfWork, id string) (model.Group, error) {
	if id == "" {
		return model.Group{}, outcome.Invalid("group id is required")
	}
	group, err := u.Groups.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.Group{}, outcome.NotFound("group %s not found", id)
	}
	return group, err
}
