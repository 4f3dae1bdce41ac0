package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registryDoc = `
kits:
  default:
    format: markdown
    path: ./kits/default
systems:
  - name: Core Platform
    slug: core
    kit: default
    artifacts: [design, ops]
    children:
      - name: Public API
        slug: api
        codebase: [internal/api]
  - name: Payments
    slug: payments
`

func TestParse(t *testing.T) {
	reg, err := Parse([]byte(registryDoc))
	require.NoError(t, err)

	require.Len(t, reg.Systems, 2)
	require.Contains(t, reg.Kits, "default")
	assert.Equal(t, "markdown", reg.Kits["default"].Format)

	core := reg.Systems[0]
	assert.Equal(t, "core", core.Prefix())
	require.Len(t, core.Children, 1)

	api := core.Children[0]
	assert.Equal(t, "core-api", api.Prefix())
	assert.Same(t, core, api.Parent())
	assert.Nil(t, core.Parent())
}

func TestPrefixes(t *testing.T) {
	reg, err := Parse([]byte(registryDoc))
	require.NoError(t, err)

	assert.Equal(t, []string{"core", "core-api", "payments"}, reg.Prefixes())
}

func TestFindAndIsRegistered(t *testing.T) {
	reg, err := Parse([]byte(registryDoc))
	require.NoError(t, err)

	api := reg.Find("core-api")
	require.NotNil(t, api)
	assert.Equal(t, "Public API", api.Name)

	assert.NotNil(t, reg.Find("Core-API"))
	assert.Nil(t, reg.Find("core-web"))

	assert.True(t, reg.IsRegistered("payments"))
	assert.False(t, reg.IsRegistered("edge"))
}

func TestParseRejects(t *testing.T) {
	tests := map[string]struct {
		doc  string
		want string
	}{
		"malformed yaml": {
			doc:  "systems: [unclosed",
			want: "invalid registry document",
		},
		"kit missing path": {
			doc:  "kits:\n  default:\n    format: markdown\n",
			want: `invalid kit "default"`,
		},
		"system missing slug": {
			doc:  "systems:\n  - name: Core\n",
			want: `invalid system node "Core"`,
		},
		"uppercase slug": {
			doc:  "systems:\n  - name: Core\n    slug: Core\n",
			want: `invalid slug "Core"`,
		},
		"slug with trailing hyphen": {
			doc:  "systems:\n  - name: Core\n    slug: core-\n",
			want: `invalid slug "core-"`,
		},
		"bad child slug": {
			doc:  "systems:\n  - name: Core\n    slug: core\n    children:\n      - name: API\n        slug: _api\n",
			want: `invalid slug "_api"`,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(registryDoc), 0o644))

	reg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, reg.Prefixes(), 3)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read registry")
}

func TestLoadJSONDocument(t *testing.T) {
	// yaml.v3 accepts JSON, so a .json registry needs no separate parser.
	doc := `{"systems": [{"name": "Core", "slug": "core"}]}`
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	reg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"core"}, reg.Prefixes())
}
