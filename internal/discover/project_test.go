package discover_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pipeshift/internal/discover"
)

func TestProject_IncludeExcludeWithComments(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"tsconfig.json": `{
  // editor settings
  "compilerOptions": {"strict": true,},
  "include": ["src"],
  "exclude": ["src/legacy", "**/*.spec.ts",],
}`,
		"src/app/effects.ts":      "",
		"src/app/effects.spec.ts": "",
		"src/legacy/old.ts":       "",
		"tools/build.ts":          "",
	})

	got, err := newFinder(t).Project(context.Background(), filepath.Join(root, "tsconfig.json"))
	require.NoError(t, err)

	assert.Equal(t, []string{"src/app/effects.ts"}, rel(t, root, got))
}

func TestProject_FilesOnly(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"tsconfig.json": `{"files": ["main.ts", "polyfills.ts"]}`,
		"main.ts":       "",
		"polyfills.ts":  "",
		"other.ts":      "",
	})

	got, err := newFinder(t).Project(context.Background(), filepath.Join(root, "tsconfig.json"))
	require.NoError(t, err)

	assert.Equal(t, []string{"main.ts", "polyfills.ts"}, rel(t, root, got))
}

func TestProject_DefaultsSkipNodeModules(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"tsconfig.json":         `{}`,
		"index.ts":              "",
		"node_modules/lib/x.ts": "",
	})

	got, err := newFinder(t).Project(context.Background(), filepath.Join(root, "tsconfig.json"))
	require.NoError(t, err)

	assert.Equal(t, []string{"index.ts"}, rel(t, root, got))
}

func TestLoadProject_Invalid(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{"tsconfig.json": `{"include": [`})

	_, err := discover.LoadProject(filepath.Join(root, "tsconfig.json"))
	require.ErrorIs(t, err, discover.ErrProject)

	_, err = discover.LoadProject(filepath.Join(root, "missing.json"))
	require.ErrorIs(t, err, discover.ErrProject)
}
