package reference

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crudbind/internal/editor"
)

const roles = `
name: UserRoles
items:
  - code: admin
    name: Administrator
    order: 2
  - code: user
    name: User
    order: 1
  - code: legacy
    name: Legacy
    valid_to: "2020-12-31"
`

func TestLoadEnumCatalog(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "roles.yaml"), []byte(roles), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "status.yml"), []byte("items:\n  - code: open\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), []byte("#"), 0o644))

	cat, err := LoadEnumCatalog(dir)
	require.NoError(t, err)
	require.Len(t, cat, 2)

	d, ok := cat.Get("userroles")
	require.True(t, ok)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, []editor.Choice{
		{Label: "User", Value: "user"},
		{Label: "Administrator", Value: "admin"},
	}, d.Choices(now))
	assert.Equal(t, []any{"legacy", "user", "admin"}, d.Codes(time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)))

	s, ok := cat.Get("status")
	require.True(t, ok)
	assert.Equal(t, []editor.Choice{{Label: "open", Value: "open"}}, s.Choices(now))
}

func TestLoadEnumCatalogMissingDir(t *testing.T) {
	cat, err := LoadEnumCatalog(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, cat)
}
