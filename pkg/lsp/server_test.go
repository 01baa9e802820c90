package lsp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/Sumatoshi-tech/pipeshift/pkg/migrate"
	"github.com/Sumatoshi-tech/pipeshift/pkg/rules"
	"github.com/Sumatoshi-tech/pipeshift/pkg/typecheck"
)

const testURI = "file:///app/books.effects.ts"

const effectsSource = `import { Actions, Effect } from '@ngrx/effects';

export class BookEffects {
  @Effect()
  load$ = this.actions$.ofType('LOAD');

  constructor(private actions$: Actions) {}
}
`

const effectsFixed = `import { Actions, Effect, ofType } from '@ngrx/effects';

export class BookEffects {
  @Effect()
  load$ = this.actions$.pipe(ofType('LOAD'));

  constructor(private actions$: Actions) {}
}
`

func newTestServer(t *testing.T) *Server {
	t.Helper()

	runner, err := migrate.New(migrate.Options{
		Rules:       rules.Default(rules.Options{}).All(),
		TypeOptions: typecheck.DefaultOptions(),
		Workers:     1,
	})
	require.NoError(t, err)

	return NewServer(Options{Runner: runner, Version: "test"})
}

type notification struct {
	method string
	params any
}

func recorder() (*glsp.Context, *[]notification) {
	var sent []notification

	ctx := &glsp.Context{Notify: func(method string, params any) {
		sent = append(sent, notification{method: method, params: params})
	}}

	return ctx, &sent
}

func TestDocumentStore(t *testing.T) {
	t.Parallel()

	store := NewDocumentStore()

	store.Set(testURI, "a")
	store.Set(testURI, "b")

	got, ok := store.Get(testURI)
	require.True(t, ok)
	assert.Equal(t, "b", got)

	store.Delete(testURI)

	_, ok = store.Get(testURI)
	assert.False(t, ok)
}

func TestFileName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/app/books.effects.ts", fileName(testURI))
	assert.Equal(t, "/tmp/a b.ts", fileName("file:///tmp/a%20b.ts"))
	assert.Equal(t, "plain.ts", fileName("plain.ts"))
}

func TestLineIndex(t *testing.T) {
	t.Parallel()

	text := "ab\n\U0001F600x\né"
	li := newLineIndex(text)

	assert.Equal(t, protocol.Position{Line: 0, Character: 2}, li.position(2))
	assert.Equal(t, protocol.Position{Line: 1, Character: 0}, li.position(3))
	// The emoji is four bytes and two UTF-16 units.
	assert.Equal(t, protocol.Position{Line: 1, Character: 2}, li.position(7))
	assert.Equal(t, protocol.Position{Line: 2, Character: 1}, li.position(len(text)))

	assert.Equal(t, 7, li.offset(protocol.Position{Line: 1, Character: 2}))
	assert.Equal(t, 8, li.offset(protocol.Position{Line: 1, Character: 99}))
	assert.Equal(t, len(text), li.offset(protocol.Position{Line: 9, Character: 0}))
}

func TestDiagnostics(t *testing.T) {
	t.Parallel()

	diags := newTestServer(t).Diagnostics(context.Background(), testURI, effectsSource)
	require.Len(t, diags, 2)

	conv := diags[0]
	assert.Equal(t, "use ngrx effects pipeable operators.", conv.Message)
	assert.Equal(t, protocol.UInteger(4), conv.Range.Start.Line)
	assert.Equal(t, rules.EffectsOperatorsName, conv.Code.Value)
	require.NotNil(t, conv.Severity)
	assert.Equal(t, protocol.DiagnosticSeverityWarning, *conv.Severity)

	assert.Equal(t, "should import ofType from @ngrx/effects", diags[1].Message)
	assert.Equal(t, protocol.UInteger(0), diags[1].Range.Start.Line)
}

func TestDiagnostics_UnsupportedDocument(t *testing.T) {
	t.Parallel()

	diags := newTestServer(t).Diagnostics(context.Background(), "file:///README.md", "# hi")
	assert.Empty(t, diags)
}

func TestCodeActions(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	rng := protocol.Range{
		Start: protocol.Position{Line: 4, Character: 0},
		End:   protocol.Position{Line: 4, Character: 40},
	}

	actions, err := srv.CodeActions(context.Background(), testURI, effectsSource, rng)
	require.NoError(t, err)
	require.Len(t, actions, 2)

	quick := actions[0]
	assert.Equal(t, "Fix: use ngrx effects pipeable operators.", quick.Title)
	require.NotNil(t, quick.Kind)
	assert.Equal(t, protocol.CodeActionKindQuickFix, *quick.Kind)
	require.NotNil(t, quick.Edit)
	assert.NotEmpty(t, quick.Edit.Changes[testURI])

	fixAll := actions[1]
	assert.Equal(t, fixAllTitle, fixAll.Title)
	edits := fixAll.Edit.Changes[testURI]
	require.Len(t, edits, 1)
	assert.Equal(t, effectsFixed, edits[0].NewText)
	assert.Equal(t, protocol.Position{Line: 0, Character: 0}, edits[0].Range.Start)
}

func TestCodeActions_CleanDocument(t *testing.T) {
	t.Parallel()

	actions, err := newTestServer(t).CodeActions(context.Background(), testURI, effectsFixed, protocol.Range{})
	require.NoError(t, err)
	assert.Empty(t, actions)
}

func TestCodeActions_UnsupportedDocument(t *testing.T) {
	t.Parallel()

	actions, err := newTestServer(t).CodeActions(context.Background(), "file:///README.md", "# hi", protocol.Range{})
	require.NoError(t, err)
	assert.Empty(t, actions)
}

func TestCodeAction_FailureReachesClient(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	actions, err := srv.CodeActions(ctx, testURI, effectsSource, protocol.Range{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, actions)

	srv.store.Set(testURI, effectsSource)

	glspCtx, _ := recorder()
	result, err := srv.codeAction(glspCtx, &protocol.CodeActionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result)
}

func TestDocumentLifecycle(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	ctx, sent := recorder()

	require.NoError(t, srv.didOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: testURI, Text: effectsSource},
	}))

	require.Len(t, *sent, 1)
	first, ok := (*sent)[0].params.(*protocol.PublishDiagnosticsParams)
	require.True(t, ok)
	assert.Len(t, first.Diagnostics, 2)

	require.NoError(t, srv.didChange(ctx, &protocol.DidChangeTextDocumentParams{
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: effectsFixed}},
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: testURI},
		},
	}))

	require.Len(t, *sent, 2)
	second, ok := (*sent)[1].params.(*protocol.PublishDiagnosticsParams)
	require.True(t, ok)
	assert.Empty(t, second.Diagnostics)

	text, ok := srv.store.Get(testURI)
	require.True(t, ok)
	assert.Equal(t, effectsFixed, text)

	require.NoError(t, srv.didClose(ctx, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	}))

	_, ok = srv.store.Get(testURI)
	assert.False(t, ok)
	assert.Equal(t, string(protocol.ServerTextDocumentPublishDiagnostics), (*sent)[2].method)
}

func TestInitialize(t *testing.T) {
	t.Parallel()

	res, err := newTestServer(t).initialize(nil, &protocol.InitializeParams{})
	require.NoError(t, err)

	result, ok := res.(protocol.InitializeResult)
	require.True(t, ok)

	sync, ok := result.Capabilities.TextDocumentSync.(*protocol.TextDocumentSyncOptions)
	require.True(t, ok)
	require.NotNil(t, sync.Change)
	assert.Equal(t, protocol.TextDocumentSyncKindFull, *sync.Change)
	assert.Equal(t, "pipeshift", result.ServerInfo.Name)
}
