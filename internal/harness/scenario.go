package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/keeper/internal/model"
)

// Scenario defines an access-control scenario: fixtures, optional
// revocations, and the checks to run afterwards.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	Users     []UserFixture     `yaml:"users"`
	Groups    []GroupFixture    `yaml:"groups,omitempty"`
	Documents []DocumentFixture `yaml:"documents"`
	Permits   []PermitFixture   `yaml:"permits,omitempty"`

	// Revoke runs after all fixtures are created.
	Revoke []RevokeStep `yaml:"revoke,omitempty"`

	// Expect holds the checks, evaluated in order.
	Expect []Check `yaml:"expect"`
}

// UserFixture creates one user. Role defaults to basic.
type UserFixture struct {
	Name string `yaml:"name"`
	Role string `yaml:"role,omitempty"`
}

// GroupFixture creates one group and its memberships.
type GroupFixture struct {
	Name    string   `yaml:"name"`
	Members []string `yaml:"members,omitempty"`
}

// DocumentFixture creates one document.
type DocumentFixture struct {
	Filename    string `yaml:"filename"`
	PostedBy    string `yaml:"posted_by"`
	Content     string `yaml:"content"`
	ContentType string `yaml:"content_type,omitempty"`
}

// PermitFixture grants access on Document to User, Group, or both.
type PermitFixture struct {
	Document string `yaml:"document"`
	User     string `yaml:"user,omitempty"`
	Group    string `yaml:"group,omitempty"`
}

// MembershipRef names one membership.
type MembershipRef struct {
	Group string `yaml:"group"`
	User  string `yaml:"user"`
}

// RevokeStep removes exactly one membership or one permit.
type RevokeStep struct {
	Membership *MembershipRef `yaml:"membership,omitempty"`
	Permit     *PermitFixture `yaml:"permit,omitempty"`
}

// Check describes what one user should observe.
type Check struct {
	User string `yaml:"user"`

	// Visible is the expected ListVisible result as filenames. Nil skips
	// the check; an empty list expects nothing visible.
	Visible []string `yaml:"visible"`

	CanRead map[string]bool   `yaml:"can_read,omitempty"`
	Fetch   map[string]string `yaml:"fetch,omitempty"`
}

// FetchOK is the fetch outcome for a successful read.
const FetchOK = "ok"

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or refers to undefined names.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "permit:" vs "permits:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks required fields and that every name used is
// defined by a fixture.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Users) == 0 {
		return fmt.Errorf("users list is required and must be non-empty")
	}
	if len(s.Expect) == 0 {
		return fmt.Errorf("expect list is required and must be non-empty")
	}

	users := map[string]bool{}
	for i, u := range s.Users {
		if u.Name == "" {
			return fmt.Errorf("users[%d]: name is required", i)
		}
		if users[u.Name] {
			return fmt.Errorf("users[%d]: duplicate user %q", i, u.Name)
		}
		if _, err := model.ParseRole(u.Role); err != nil {
			return fmt.Errorf("users[%d]: %w", i, err)
		}
		users[u.Name] = true
	}

	groups := map[string]bool{}
	for i, g := range s.Groups {
		if g.Name == "" {
			return fmt.Errorf("groups[%d]: name is required", i)
		}
		groups[g.Name] = true
		for _, m := range g.Members {
			if !users[m] {
				return fmt.Errorf("groups[%d]: unknown member %q", i, m)
			}
		}
	}

	docs := map[string]bool{}
	for i, d := range s.Documents {
		if d.Filename == "" {
			return fmt.Errorf("documents[%d]: filename is required", i)
		}
		if !users[d.PostedBy] {
			return fmt.Errorf("documents[%d]: unknown poster %q", i, d.PostedBy)
		}
		docs[d.Filename] = true
	}

	checkPermit := func(where string, p PermitFixture) error {
		if !docs[p.Document] {
			return fmt.Errorf("%s: unknown document %q", where, p.Document)
		}
		if p.User == "" && p.Group == "" {
			return fmt.Errorf("%s: user or group is required", where)
		}
		if p.User != "" && !users[p.User] {
			return fmt.Errorf("%s: unknown user %q", where, p.User)
		}
		if p.Group != "" && !groups[p.Group] {
			return fmt.Errorf("%s: unknown group %q", where, p.Group)
		}
		return nil
	}
	for i, p := range s.Permits {
		if err := checkPermit(fmt.Sprintf("permits[%d]", i), p); err != nil {
			return err
		}
	}

	for i, r := range s.Revoke {
		where := fmt.Sprintf("revoke[%d]", i)
		switch {
		case (r.Membership == nil) == (r.Permit == nil):
			return fmt.Errorf("%s: exactly one of membership or permit is required", where)
		case r.Membership != nil:
			if !groups[r.Membership.Group] || !users[r.Membership.User] {
				return fmt.Errorf("%s: unknown membership %s/%s", where, r.Membership.Group, r.Membership.User)
			}
		default:
			if err := checkPermit(where, *r.Permit); err != nil {
				return err
			}
		}
	}

	for i, c := range s.Expect {
		if !users[c.User] {
			return fmt.Errorf("expect[%d]: unknown user %q", i, c.User)
		}
		for _, name := range c.Visible {
			if !docs[name] {
				return fmt.Errorf("expect[%d].visible: unknown document %q", i, name)
			}
		}
		for name := range c.CanRead {
			if !docs[name] {
				return fmt.Errorf("expect[%d].can_read: unknown document %q", i, name)
			}
		}
		for name := range c.Fetch {
			if !docs[name] {
				return fmt.Errorf("expect[%d].fetch: unknown document %q", i, name)
			}
		}
	}
	return nil
}
