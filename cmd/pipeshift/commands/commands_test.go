package commands_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/pipeshift/cmd/pipeshift/commands"
	"github.com/Sumatoshi-tech/pipeshift/pkg/migrate"
	"github.com/Sumatoshi-tech/pipeshift/pkg/rules"
)

const effectsSource = `import { Actions, Effect } from '@ngrx/effects';
import { map } from 'rxjs/operators';

export class BookEffects {
  @Effect()
  load$ = this.actions$.ofType('LOAD').pipe(map(() => done()));

  constructor(private actions$: Actions) {}
}
`

const effectsFixed = `import { Actions, Effect, ofType } from '@ngrx/effects';
import { map } from 'rxjs/operators';

export class BookEffects {
  @Effect()
  load$ = this.actions$.pipe(ofType('LOAD'), map(() => done()));

  constructor(private actions$: Actions) {}
}
`

const cleanSource = "export const answer = 42;\n"

type fixture struct {
	dir    string
	config string
}

func newFixture(t *testing.T, files map[string]string) fixture {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	cfg := filepath.Join(t.TempDir(), "pipeshift.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("workers: 2\nlogging:\n  level: error\n"), 0o644))

	return fixture{dir: dir, config: cfg}
}

func execute(t *testing.T, fx fixture, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	root := commands.NewRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append(args, "--config", fx.config, "--no-color"))

	err := root.Execute()

	return stdout.String(), stderr.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	t.Parallel()

	root := commands.NewRootCommand()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}

	assert.ElementsMatch(t, []string{"migrate", "check", "rules", "tree", "lsp", "mcp"}, names)
	assert.True(t, root.SilenceUsage)
	assert.NotNil(t, root.PersistentFlags().Lookup("max-passes"))
}

func TestMigrate_RewritesFiles(t *testing.T) {
	fx := newFixture(t, map[string]string{
		"src/books.effects.ts": effectsSource,
		"src/clean.ts":         cleanSource,
		"node_modules/x/a.ts":  effectsSource,
	})

	out, _, err := execute(t, fx, "migrate", fx.dir)
	require.NoError(t, err)

	assert.Contains(t, out, "Running the automatic migrations")
	assert.Contains(t, out, "Found and fixed the following deprecations:")
	assert.Contains(t, out, "WARNING: ")
	assert.Contains(t, out, "1 of 2 files changed")

	got, err := os.ReadFile(filepath.Join(fx.dir, "src/books.effects.ts"))
	require.NoError(t, err)
	assert.Equal(t, effectsFixed, string(got))

	vendored, err := os.ReadFile(filepath.Join(fx.dir, "node_modules/x/a.ts"))
	require.NoError(t, err)
	assert.Equal(t, effectsSource, string(vendored))
}

func TestMigrate_DryRunDiff(t *testing.T) {
	fx := newFixture(t, map[string]string{"books.effects.ts": effectsSource})

	out, _, err := execute(t, fx, "migrate", "--dry-run", "--diff", "--quiet", fx.dir)
	require.NoError(t, err)

	assert.Contains(t, out, "+++ b/")
	assert.Contains(t, out, "+  load$ = this.actions$.pipe(ofType('LOAD'), map(() => done()));")
	assert.NotContains(t, out, "Running the automatic migrations")

	got, err := os.ReadFile(filepath.Join(fx.dir, "books.effects.ts"))
	require.NoError(t, err)
	assert.Equal(t, effectsSource, string(got))
}

func TestMigrate_NothingToDo(t *testing.T) {
	fx := newFixture(t, map[string]string{"clean.ts": cleanSource})

	out, _, err := execute(t, fx, "migrate", fx.dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Cannot find any possible migrations")
}

func TestMigrate_Project(t *testing.T) {
	fx := newFixture(t, map[string]string{
		"tsconfig.json": `{
  // only the app
  "include": ["app"],
}`,
		"app/books.effects.ts":   effectsSource,
		"other/books.effects.ts": effectsSource,
	})

	_, _, err := execute(t, fx, "migrate", "-p", filepath.Join(fx.dir, "tsconfig.json"))
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(fx.dir, "app/books.effects.ts"))
	require.NoError(t, err)
	assert.Equal(t, effectsFixed, string(got))

	untouched, err := os.ReadFile(filepath.Join(fx.dir, "other/books.effects.ts"))
	require.NoError(t, err)
	assert.Equal(t, effectsSource, string(untouched))
}

func TestMigrate_NotConverged(t *testing.T) {
	fx := newFixture(t, map[string]string{
		"chain.ts": "const s$: Observable<number> = source;\ns$.pipe(a).pipe(b).pipe(c).pipe(d);\n",
	})

	_, _, err := execute(t, fx, "migrate", "--max-passes", "1", "--quiet", fx.dir)
	require.ErrorIs(t, err, migrate.ErrNotConverged)
}

func TestMigrate_UnknownRule(t *testing.T) {
	fx := newFixture(t, map[string]string{"clean.ts": cleanSource})

	_, _, err := execute(t, fx, "migrate", "--rules", "nope", fx.dir)
	require.ErrorIs(t, err, rules.ErrUnknownRule)
}

func TestCheck_PendingMigrations(t *testing.T) {
	fx := newFixture(t, map[string]string{"books.effects.ts": effectsSource})

	out, _, err := execute(t, fx, "check", fx.dir)
	require.ErrorIs(t, err, commands.ErrPendingMigrations)
	assert.Contains(t, out, "books.effects.ts:6:")

	got, err := os.ReadFile(filepath.Join(fx.dir, "books.effects.ts"))
	require.NoError(t, err)
	assert.Equal(t, effectsSource, string(got))
}

func TestCheck_Clean(t *testing.T) {
	fx := newFixture(t, map[string]string{"clean.ts": cleanSource})

	_, _, err := execute(t, fx, "check", fx.dir)
	require.NoError(t, err)
}

func TestCheck_JSON(t *testing.T) {
	fx := newFixture(t, map[string]string{"books.effects.ts": effectsSource})

	out, _, err := execute(t, fx, "check", "--format", "json", fx.dir)
	require.ErrorIs(t, err, commands.ErrPendingMigrations)

	var report struct {
		Files []struct {
			Path     string           `json:"path"`
			Findings []map[string]any `json:"findings"`
		} `json:"files"`
		DryRun bool `json:"dry_run"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Files, 1)
	assert.True(t, report.DryRun)
	assert.Len(t, report.Files[0].Findings, 3)
}

func TestCheck_BadFormat(t *testing.T) {
	fx := newFixture(t, map[string]string{"clean.ts": cleanSource})

	_, _, err := execute(t, fx, "check", "--format", "xml", fx.dir)
	require.ErrorIs(t, err, migrate.ErrUnknownFormat)
}

func TestRules_ListsBuiltins(t *testing.T) {
	fx := newFixture(t, nil)

	out, _, err := execute(t, fx, "rules", "--rules", rules.ChainedPipesName)
	require.NoError(t, err)

	for _, name := range rules.Default(rules.Options{}).Names() {
		assert.Contains(t, out, name)
	}

	assert.Contains(t, out, "yes")
	assert.Contains(t, out, "no")
}

func TestTree_YAML(t *testing.T) {
	fx := newFixture(t, map[string]string{"clean.ts": cleanSource})

	out, _, err := execute(t, fx, "tree", filepath.Join(fx.dir, "clean.ts"))
	require.NoError(t, err)

	var dump map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &dump))
	assert.Equal(t, "program", dump["type"])
	assert.Contains(t, out, "answer")
}

func TestTree_Unsupported(t *testing.T) {
	fx := newFixture(t, map[string]string{"notes.md": "# hi\n"})

	_, _, err := execute(t, fx, "tree", filepath.Join(fx.dir, "notes.md"))
	require.ErrorIs(t, err, commands.ErrUnsupportedFile)
}
