package rules_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pipeshift/pkg/pipeable"
	"github.com/Sumatoshi-tech/pipeshift/pkg/rules"
	"github.com/Sumatoshi-tech/pipeshift/pkg/tsast"
	"github.com/Sumatoshi-tech/pipeshift/pkg/typecheck"
)

func analyze(t *testing.T, rule rules.Rule, src string) (*tsast.Tree, []pipeable.Violation) {
	t.Helper()

	tree, err := tsast.NewParser().ParseFile(context.Background(), "books.effects.ts", []byte(src))
	require.NoError(t, err)
	require.False(t, tree.HasErrors())

	return tree, rule.Analyze(tree, typecheck.NewResolver(tree, typecheck.DefaultOptions()))
}

func fix(t *testing.T, rule rules.Rule, src string) string {
	t.Helper()

	tree, violations := analyze(t, rule, src)
	kept, _ := pipeable.SelectCompatible(violations)

	out, err := pipeable.Apply(tree.Source, pipeable.Edits(kept))
	require.NoError(t, err)

	return string(out)
}

const effectsSource = `import { Actions, Effect } from '@ngrx/effects';
import { map } from 'rxjs/operators';

export class BookEffects {
  @Effect()
  load$ = this.actions$.ofType('LOAD').pipe(map(() => done()));

  constructor(private actions$: Actions) {}
}
`

func TestEffectsOperators(t *testing.T) {
	t.Parallel()

	rule := rules.NewEffectsOperators(rules.Options{})

	_, violations := analyze(t, rule, effectsSource)
	require.Len(t, violations, 2)

	assert.Equal(t, rules.EffectsOperatorsName, violations[0].Rule)
	assert.Equal(t, "use ngrx effects pipeable operators.", violations[0].Message)
	assert.Equal(t, "should import ofType from @ngrx/effects", violations[1].Message)

	want := `import { Actions, Effect, ofType } from '@ngrx/effects';
import { map } from 'rxjs/operators';

export class BookEffects {
  @Effect()
  load$ = this.actions$.pipe(ofType('LOAD')).pipe(map(() => done()));

  constructor(private actions$: Actions) {}
}
`
	assert.Equal(t, want, fix(t, rule, effectsSource))

	_, again := analyze(t, rule, want)
	assert.Empty(t, again)
}

func TestChainedPipes_AfterEffects(t *testing.T) {
	t.Parallel()

	src := fix(t, rules.NewEffectsOperators(rules.Options{}), effectsSource)
	merged := fix(t, rules.NewChainedPipes(rules.Options{}), src)

	assert.Contains(t, merged, "load$ = this.actions$.pipe(ofType('LOAD'), map(() => done()));")

	_, again := analyze(t, rules.NewChainedPipes(rules.Options{}), merged)
	assert.Empty(t, again)
}

func TestStoreOperators(t *testing.T) {
	t.Parallel()

	src := `import { Store } from '@ngrx/store';

export class BooksPage {
  books$ = this.store.select(getBooks);
  count$ = this.store.select('books', 'count');
  titles = this.names.select(x => x);

  constructor(private store: Store<State>, private names: string[]) {}
}
`
	want := `import { Store, select } from '@ngrx/store';

export class BooksPage {
  books$ = this.store.pipe(select(getBooks));
  count$ = this.store.pipe(select('books', 'count'));
  titles = this.names.select(x => x);

  constructor(private store: Store<State>, private names: string[]) {}
}
`

	rule := rules.NewStoreOperators(rules.Options{})

	_, violations := analyze(t, rule, src)
	assert.Len(t, violations, 3)
	assert.Equal(t, want, fix(t, rule, src))
}

func TestOperatorRule_NoImportWhenModuleAbsent(t *testing.T) {
	t.Parallel()

	src := "class A {\n  x$ = this.store.select(s => s.x);\n  constructor(private store: Store<S>) {}\n}\n"

	_, violations := analyze(t, rules.NewStoreOperators(rules.Options{}), src)
	require.Len(t, violations, 1)
	assert.Equal(t, "use ngrx store pipeable operators.", violations[0].Message)
}

func TestStoreOperators_UnrelatedStoreTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
	}{
		{
			name: "local class",
			src:  "class Store { select(k: string): string { return k; } }\nconst store: Store = new Store();\nconst v = store.select('a');\n",
		},
		{
			name: "other library",
			src:  "import { Store } from 'vuex';\nconst store: Store<S> = make();\nstore.select('a');\n",
		},
		{
			name: "local subclass of other library",
			src:  "import { Store } from 'vuex';\nclass AppStore extends Store<S> {}\nconst store = new AppStore();\nstore.select('a');\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rule := rules.NewStoreOperators(rules.Options{})

			_, violations := analyze(t, rule, tt.src)
			assert.Empty(t, violations)
			assert.Equal(t, tt.src, fix(t, rule, tt.src))
		})
	}
}

func TestStoreOperators_AliasedImport(t *testing.T) {
	t.Parallel()

	src := "import { Store as NgStore } from '@ngrx/store';\n\nclass P {\n  x$ = this.store.select(s => s.x);\n  constructor(private store: NgStore<S>) {}\n}\n"
	want := "import { Store as NgStore, select } from '@ngrx/store';\n\nclass P {\n  x$ = this.store.pipe(select(s => s.x));\n  constructor(private store: NgStore<S>) {}\n}\n"

	rule := rules.NewStoreOperators(rules.Options{})

	_, violations := analyze(t, rule, src)
	assert.Len(t, violations, 2)
	assert.Equal(t, want, fix(t, rule, src))
}

func TestOperatorRule_NothingToDo(t *testing.T) {
	t.Parallel()

	src := "import { Store } from '@ngrx/store';\nconst xs = [1];\nxs.map(x => x);\n"

	_, violations := analyze(t, rules.NewStoreOperators(rules.Options{}), src)
	assert.Empty(t, violations)
}

func TestChainedPipes(t *testing.T) {
	t.Parallel()

	const decl = "const s$: Observable<number> = source;\n"

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"adjacent", "s$.pipe(a).pipe(b);\n", "s$.pipe(a, b);\n"},
		{"trailing_comma", "s$.pipe(a,).pipe(b);\n", "s$.pipe(a, b);\n"},
		{"one_pair_per_pass", "s$.pipe(a).pipe(b).pipe(c);\n", "s$.pipe(a, b).pipe(c);\n"},
		{"separated", "s$.pipe(a).map(f).pipe(b);\n", "s$.pipe(a).map(f).pipe(b);\n"},
		{"single", "s$.pipe(a);\n", "s$.pipe(a);\n"},
		{"static_reference", "Observable.pipe(a).pipe(b);\n", "Observable.pipe(a).pipe(b);\n"},
	}

	rule := rules.NewChainedPipes(rules.Options{})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, decl+tt.want, fix(t, rule, decl+tt.input))
		})
	}
}

func TestChainedPipes_ConvergesOverPasses(t *testing.T) {
	t.Parallel()

	src := "const s$: Observable<number> = source;\ns$.pipe(a).pipe(b).pipe(c).pipe(d);\n"
	rule := rules.NewChainedPipes(rules.Options{})

	passes := 0

	for ; passes < 10; passes++ {
		_, violations := analyze(t, rule, src)
		if len(violations) == 0 {
			break
		}

		src = fix(t, rule, src)
	}

	assert.Equal(t, 3, passes)
	assert.Equal(t, "const s$: Observable<number> = source;\ns$.pipe(a, b, c, d);\n", src)
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg := rules.Default(rules.Options{})

	assert.Equal(t, []string{
		rules.EffectsOperatorsName,
		rules.StoreOperatorsName,
		rules.ChainedPipesName,
	}, reg.Names())

	selected, err := reg.Select([]string{rules.ChainedPipesName, rules.EffectsOperatorsName})
	require.NoError(t, err)
	require.Len(t, selected, 2)
	assert.Equal(t, rules.EffectsOperatorsName, selected[0].Metadata().Name)
	assert.Equal(t, rules.ChainedPipesName, selected[1].Metadata().Name)

	all, err := reg.Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = reg.Select([]string{"nope"})
	require.ErrorIs(t, err, rules.ErrUnknownRule)

	_, err = reg.Get("nope")
	require.ErrorIs(t, err, rules.ErrUnknownRule)

	rule, err := reg.Get(rules.StoreOperatorsName)
	require.NoError(t, err)
	assert.Equal(t, "@ngrx/store", rule.Metadata().Module)
}
