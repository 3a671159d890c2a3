package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: "One user reads one document"
users:
  - name: alice
documents:
  - filename: a.txt
    posted_by: alice
permits:
  - document: a.txt
    user: alice
expect:
  - user: alice
    visible: [a.txt]
`

func TestLoadScenario_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario), 0644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "minimal", scenario.Name)
	assert.Equal(t, "One user reads one document", scenario.Description)
	require.Len(t, scenario.Users, 1)
	assert.Empty(t, scenario.Users[0].Role)
	require.Len(t, scenario.Permits, 1)
	assert.Equal(t, PermitFixture{Document: "a.txt", User: "alice"}, scenario.Permits[0])
	require.Len(t, scenario.Expect, 1)
	assert.Equal(t, []string{"a.txt"}, scenario.Expect[0].Visible)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_EmptyVisibleIsACheck(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: nothing
description: "Nothing is visible"
users:
  - name: alice
documents:
  - filename: a.txt
    posted_by: alice
expect:
  - user: alice
    visible: []
  - user: alice
    can_read: { a.txt: false }
`))
	require.NoError(t, err)

	assert.NotNil(t, scenario.Expect[0].Visible)
	assert.Empty(t, scenario.Expect[0].Visible)
	assert.Nil(t, scenario.Expect[1].Visible)
}

func TestParseScenario_RejectsUnknownFields(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: "permit instead of permits"
users:
  - name: alice
permit:
  - document: a.txt
expect:
  - user: alice
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: `
description: "x"
users: [{name: alice}]
expect: [{user: alice}]
`,
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: `
name: x
users: [{name: alice}]
expect: [{user: alice}]
`,
			want: "description is required",
		},
		{
			name: "no users",
			yaml: `
name: x
description: "x"
expect: [{user: alice}]
`,
			want: "users list is required",
		},
		{
			name: "no checks",
			yaml: `
name: x
description: "x"
users: [{name: alice}]
`,
			want: "expect list is required",
		},
		{
			name: "unknown role",
			yaml: `
name: x
description: "x"
users: [{name: alice, role: owner}]
expect: [{user: alice}]
`,
			want: `unknown role "owner"`,
		},
		{
			name: "duplicate user",
			yaml: `
name: x
description: "x"
users: [{name: alice}, {name: alice}]
expect: [{user: alice}]
`,
			want: `duplicate user "alice"`,
		},
		{
			name: "unknown member",
			yaml: `
name: x
description: "x"
users: [{name: alice}]
groups: [{name: ops, members: [bob]}]
expect: [{user: alice}]
`,
			want: `unknown member "bob"`,
		},
		{
			name: "unknown poster",
			yaml: `
name: x
description: "x"
users: [{name: alice}]
documents: [{filename: a.txt, posted_by: bob}]
expect: [{user: alice}]
`,
			want: `unknown poster "bob"`,
		},
		{
			name: "permit without target",
			yaml: `
name: x
description: "x"
users: [{name: alice}]
documents: [{filename: a.txt, posted_by: alice}]
permits: [{document: a.txt}]
expect: [{user: alice}]
`,
			want: "user or group is required",
		},
		{
			name: "permit on unknown group",
			yaml: `
name: x
description: "x"
users: [{name: alice}]
documents: [{filename: a.txt, posted_by: alice}]
permits: [{document: a.txt, group: ops}]
expect: [{user: alice}]
`,
			want: `unknown group "ops"`,
		},
		{
			name: "revoke with both kinds",
			yaml: `
name: x
description: "x"
users: [{name: alice}]
groups: [{name: ops, members: [alice]}]
documents: [{filename: a.txt, posted_by: alice}]
revoke:
  - membership: {group: ops, user: alice}
    permit: {document: a.txt, user: alice}
expect: [{user: alice}]
`,
			want: "exactly one of membership or permit",
		},
		{
			name: "check on unknown document",
			yaml: `
name: x
description: "x"
users: [{name: alice}]
expect:
  - user: alice
    fetch: {b.txt: ok}
`,
			want: `unknown document "b.txt"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
