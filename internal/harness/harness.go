package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/roach88/keeper/internal/access"
	"github.com/roach88/keeper/internal/directory"
	"github.com/roach88/keeper/internal/documents"
	"github.com/roach88/keeper/internal/grants"
	"github.com/roach88/keeper/internal/model"
	"github.com/roach88/keeper/internal/outcome"
	"github.com/roach88/keeper/internal/store"
	"github.com/roach88/keeper/internal/testutil"
	"github.com/roach88/keeper/internal/uow"
)

// Harness drives one scenario against a private database.
type Harness struct {
	directory *directory.Service
	grants    *grants.Service
	documents *documents.Service
	access    *access.Service
	logger    *slog.Logger

	users   map[string]string
	groups  map[string]string
	docs    map[string]string
	permits map[PermitFixture]string
}

// Run executes a scenario and returns the result. Harness logs are
// discarded; use RunWithLogger to see them.
//
// Each scenario runs in a fresh in-memory database with sequential ids and
// a stepping clock. An error is returned only when the fixtures cannot be
// built; check mismatches are reported through Result.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, nil)
}

// RunWithLogger is Run with setup, revocation and mismatch events written
// to logger. A nil logger discards them.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	st, err := store.Open(store.DefaultOptions(store.MemoryPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ids := testutil.NewSequentialIDs("rec")
	clock := testutil.NewStepClock()
	uows := uow.NewFactory(st.DB(), uow.DefaultConfig())

	h := &Harness{
		directory: directory.NewService(uows, ids, clock),
		grants:    grants.NewService(uows, ids),
		documents: documents.NewService(uows, ids, clock),
		access:    access.NewService(uows),
		logger:    logger.With("scenario", scenario.Name),
		users:     map[string]string{},
		groups:    map[string]string{},
		docs:      map[string]string{},
		permits:   map[PermitFixture]string{},
	}

	ctx := context.Background()
	if err := h.setup(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.revoke(ctx, scenario.Revoke); err != nil {
		return nil, fmt.Errorf("failed to execute revoke: %w", err)
	}

	result := NewResult()
	for i, check := range scenario.Expect {
		obs, err := h.observe(ctx, check)
		if err != nil {
			return nil, fmt.Errorf("expect[%d]: %w", i, err)
		}
		result.Observations = append(result.Observations, obs)
		for _, mismatch := range compare(check, obs) {
			h.logger.Warn("check failed",
				"user", mismatch.User,
				"check", mismatch.Type,
				"document", mismatch.Document,
				"expected", mismatch.Expected,
				"actual", mismatch.Actual,
			)
			result.AddError(mismatch.Error())
		}
	}
	return result, nil
}

// setup creates users, groups with their members, documents and permits in
// that order.
func (h *Harness) setup(ctx context.Context, s *Scenario) error {
	for _, u := range s.Users {
		role, err := model.ParseRole(u.Role)
		if err != nil {
			return err
		}
		user, err := h.directory.CreateUser(ctx, directory.NewUser{
			Name:     u.Name,
			Email:    u.Name + "@example.com",
			Password: "scenario",
			Role:     role,
		})
		if err != nil {
			return fmt.Errorf("user %s: %w", u.Name, err)
		}
		h.users[u.Name] = user.ID
	}

	for _, g := range s.Groups {
		group, err := h.directory.CreateGroup(ctx, directory.NewGroup{Name: g.Name})
		if err != nil {
			return fmt.Errorf("group %s: %w", g.Name, err)
		}
		h.groups[g.Name] = group.ID
		for _, member := range g.Members {
			if _, err := h.grants.CreateMembership(ctx, group.ID, h.users[member]); err != nil {
				return fmt.Errorf("group %s member %s: %w", g.Name, member, err)
			}
		}
	}

	for _, d := range s.Documents {
		content := d.Content
		if content == "" {
			content = "content of " + d.Filename
		}
		doc, err := h.documents.Create(ctx, documents.NewDocument{
			Filename:    d.Filename,
			ContentType: d.ContentType,
			PostedBy:    h.users[d.PostedBy],
			Data:        []byte(content),
		})
		if err != nil {
			return fmt.Errorf("document %s: %w", d.Filename, err)
		}
		h.docs[d.Filename] = doc.ID
	}

	for _, p := range s.Permits {
		permit, err := h.grants.CreatePermit(ctx, grants.NewPermit{
			KeeperID: h.docs[p.Document],
			UserID:   h.users[p.User],
			GroupID:  h.groups[p.Group],
		})
		if err != nil {
			return fmt.Errorf("permit on %s: %w", p.Document, err)
		}
		h.permits[p] = permit.ID
	}

	h.logger.Info("scenario setup complete",
		"users", len(h.users),
		"groups", len(h.groups),
		"documents", len(h.docs),
		"permits", len(h.permits),
	)
	return nil
}

func (h *Harness) revoke(ctx context.Context, steps []RevokeStep) error {
	for i, step := range steps {
		if m := step.Membership; m != nil {
			if err := h.grants.DeleteMembership(ctx, h.groups[m.Group], h.users[m.User]); err != nil {
				return fmt.Errorf("step %d: membership %s/%s: %w", i, m.Group, m.User, err)
			}
			h.logger.Info("membership revoked", "group", m.Group, "user", m.User)
			continue
		}
		id, ok := h.permits[*step.Permit]
		if !ok {
			return fmt.Errorf("step %d: no permit on %s was created for that target", i, step.Permit.Document)
		}
		if err := h.grants.DeletePermit(ctx, id); err != nil {
			return fmt.Errorf("step %d: permit %s: %w", i, id, err)
		}
		delete(h.permits, *step.Permit)
		h.logger.Info("permit revoked", "document", step.Permit.Document, "permit_id", id)
	}
	return nil
}

// observe runs the queries one check asks for, as the check's user.
func (h *Harness) observe(ctx context.Context, check Check) (Observation, error) {
	userID := h.users[check.User]
	obs := Observation{User: check.User}

	if check.Visible != nil {
		visible, err := h.access.ListVisible(ctx, userID)
		if err != nil {
			return obs, fmt.Errorf("list visible for %s: %w", check.User, err)
		}
		obs.Visible = make([]string, 0, len(visible))
		for _, k := range visible {
			obs.Visible = append(obs.Visible, k.Filename)
		}
	}

	for _, name := range sortedKeys(check.CanRead) {
		ok, err := h.access.CanRead(ctx, userID, h.docs[name])
		if err != nil {
			return obs, fmt.Errorf("can read %s for %s: %w", name, check.User, err)
		}
		obs.CanRead = append(obs.CanRead, Verdict{Document: name, Readable: ok})
	}

	for _, name := range sortedKeys(check.Fetch) {
		result := FetchOK
		_, err := h.documents.Get(ctx, userID, h.docs[name])
		switch {
		case err == nil:
		case outcome.IsRequestFailure(err):
			result = string(outcome.CodeOf(err))
		default:
			return obs, fmt.Errorf("fetch %s for %s: %w", name, check.User, err)
		}
		obs.Fetch = append(obs.Fetch, FetchOutcome{Document: name, Outcome: result})
	}
	return obs, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
