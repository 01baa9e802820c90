package discover_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pipeshift/internal/discover"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
}

func newFinder(t *testing.T, exclude ...string) *discover.Finder {
	t.Helper()

	f, err := discover.New(discover.Options{
		Extensions: []string{".ts", ".tsx"},
		Exclude:    exclude,
	})
	require.NoError(t, err)

	return f
}

func rel(t *testing.T, root string, paths []string) []string {
	t.Helper()

	out := make([]string, 0, len(paths))

	for _, p := range paths {
		r, err := filepath.Rel(root, p)
		require.NoError(t, err)

		out = append(out, filepath.ToSlash(r))
	}

	return out
}

func TestPaths_WalksAndFilters(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/app.ts":                 "",
		"src/view.tsx":               "",
		"src/types.d.ts":             "",
		"src/readme.md":              "",
		"src/gen/skip.ts":            "",
		"node_modules/rxjs/index.ts": "",
		".cache/x.ts":                "",
	})

	got, err := newFinder(t, "src/gen/**").Paths(context.Background(), []string{root})
	require.NoError(t, err)

	assert.Equal(t, []string{"src/app.ts", "src/view.tsx"}, rel(t, root, got))
}

func TestPaths_ExplicitFileAndDedup(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.ts": "", "b.js": ""})

	a := filepath.Join(root, "a.ts")

	got, err := newFinder(t).Paths(context.Background(), []string{a, root, filepath.Join(root, "b.js")})
	require.NoError(t, err)
	assert.Equal(t, []string{a}, got)
}

func TestPaths_NoInputs(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{"main.go": ""})

	_, err := newFinder(t).Paths(context.Background(), []string{root})
	require.ErrorIs(t, err, discover.ErrNoInputs)
}

func TestPaths_MissingPath(t *testing.T) {
	t.Parallel()

	_, err := newFinder(t).Paths(context.Background(), []string{filepath.Join(t.TempDir(), "nope")})
	require.Error(t, err)
}

func TestNew_BadPattern(t *testing.T) {
	t.Parallel()

	_, err := discover.New(discover.Options{Exclude: []string{"[unclosed"}})
	require.ErrorIs(t, err, discover.ErrBadPattern)
}

func TestPaths_Cancelled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.ts": ""})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newFinder(t).Paths(ctx, []string{root})
	require.ErrorIs(t, err, context.Canceled)
}
