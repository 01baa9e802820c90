// Package lsp serves pipeshift findings to editors over the Language Server
// Protocol: warnings as diagnostics, fixes as quick-fix code actions.
package lsp

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/pipeshift/pkg/migrate"
	"github.com/Sumatoshi-tech/pipeshift/pkg/observability"
	"github.com/Sumatoshi-tech/pipeshift/pkg/pipeable"
	"github.com/Sumatoshi-tech/pipeshift/pkg/tsast"
)

const (
	serverName       = "pipeshift"
	diagnosticSource = "pipeshift"
	fixAllTitle      = "Fix all pipeable operator migrations"
)

// Options configures a Server.
type Options struct {
	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.REDMetrics
	Runner  *migrate.Runner
	Version string
}

// Server implements the pipeshift language server.
type Server struct {
	store   *DocumentStore
	runner  *migrate.Runner
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.REDMetrics
	version string
	handler protocol.Handler
}

// NewServer creates a server with the default handlers.
func NewServer(opts Options) *Server {
	srv := &Server{
		store:   NewDocumentStore(),
		runner:  opts.Runner,
		logger:  opts.Logger,
		tracer:  opts.Tracer,
		metrics: opts.Metrics,
		version: opts.Version,
	}

	if srv.logger == nil {
		srv.logger = slog.Default()
	}

	if srv.tracer == nil {
		srv.tracer = nooptrace.NewTracerProvider().Tracer(serverName)
	}

	srv.handler = protocol.Handler{
		Initialize:             srv.initialize,
		Initialized:            srv.initialized,
		Shutdown:               srv.shutdown,
		SetTrace:               srv.setTrace,
		TextDocumentDidOpen:    srv.didOpen,
		TextDocumentDidChange:  srv.didChange,
		TextDocumentDidSave:    srv.didSave,
		TextDocumentDidClose:   srv.didClose,
		TextDocumentCodeAction: srv.codeAction,
	}

	return srv
}

// Run serves on stdio until the client disconnects.
func (srv *Server) Run() error {
	return server.NewServer(&srv.handler, serverName, false).RunStdio()
}

func (srv *Server) initialize(_ *glsp.Context, _ *protocol.InitializeParams) (any, error) {
	capabilities := srv.handler.CreateServerCapabilities()

	if sync, ok := capabilities.TextDocumentSync.(*protocol.TextDocumentSyncOptions); ok {
		full := protocol.TextDocumentSyncKindFull
		sync.Change = &full
	}

	capabilities.CodeActionProvider = protocol.CodeActionOptions{
		CodeActionKinds: []protocol.CodeActionKind{protocol.CodeActionKindQuickFix, protocol.CodeActionKindSource},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &srv.version,
		},
	}, nil
}

func (srv *Server) initialized(_ *glsp.Context, _ *protocol.InitializedParams) error {
	return nil
}

func (srv *Server) shutdown(_ *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)

	return nil
}

func (srv *Server) setTrace(_ *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)

	return nil
}

func (srv *Server) didOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI

	srv.store.Set(uri, params.TextDocument.Text)
	srv.publishDiagnostics(ctx, uri)

	return nil
}

// didChange expects full-document sync; the last change carries the text.
func (srv *Server) didChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	for i := len(params.ContentChanges) - 1; i >= 0; i-- {
		if change, ok := params.ContentChanges[i].(protocol.TextDocumentContentChangeEventWhole); ok {
			srv.store.Set(uri, change.Text)
			srv.publishDiagnostics(ctx, uri)

			return nil
		}
	}

	return nil
}

func (srv *Server) didSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	uri := params.TextDocument.URI

	if params.Text != nil {
		srv.store.Set(uri, *params.Text)
	}

	if _, ok := srv.store.Get(uri); ok {
		srv.publishDiagnostics(ctx, uri)
	}

	return nil
}

func (srv *Server) didClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	srv.store.Delete(uri)

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})

	return nil
}

func (srv *Server) codeAction(_ *glsp.Context, params *protocol.CodeActionParams) (any, error) {
	text, ok := srv.store.Get(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	return srv.CodeActions(context.Background(), params.TextDocument.URI, text, params.Range)
}

func (srv *Server) publishDiagnostics(ctx *glsp.Context, uri string) {
	text, ok := srv.store.Get(uri)
	if !ok {
		return
	}

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: srv.Diagnostics(context.Background(), uri, text),
	})
}

// Diagnostics analyzes text and reports one warning per violation.
func (srv *Server) Diagnostics(ctx context.Context, uri, text string) []protocol.Diagnostic {
	out := []protocol.Diagnostic{}

	// Diagnostics are pushed as a notification, which has no error reply;
	// observe has already logged and traced any failure.
	_ = srv.observe(ctx, "lsp.diagnostics", uri, func(ctx context.Context) error {
		_, violations, err := srv.runner.Analyze(ctx, fileName(uri), []byte(text))
		if errors.Is(err, tsast.ErrUnsupportedFile) {
			return nil
		}

		if err != nil {
			return err
		}

		li := newLineIndex(text)
		for _, v := range violations {
			out = append(out, diagnostic(li, v))
		}

		return nil
	})

	return out
}

// CodeActions offers a quick fix for every violation overlapping rng and a
// fix-all action that converges the whole document. Documents in other
// languages get no actions and no error.
func (srv *Server) CodeActions(ctx context.Context, uri, text string, rng protocol.Range) ([]protocol.CodeAction, error) {
	var out []protocol.CodeAction

	err := srv.observe(ctx, "lsp.code_action", uri, func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := fileName(uri)

		_, violations, err := srv.runner.Analyze(ctx, name, []byte(text))
		if errors.Is(err, tsast.ErrUnsupportedFile) {
			return nil
		}

		if err != nil || len(violations) == 0 {
			return err
		}

		li := newLineIndex(text)
		from, to := li.offset(rng.Start), li.offset(rng.End)

		for _, v := range violations {
			if v.Start > to || v.End < from {
				continue
			}

			out = append(out, quickFix(li, uri, v))
		}

		res, err := srv.runner.FixSource(ctx, name, []byte(text))
		if err != nil && !errors.Is(err, migrate.ErrNotConverged) {
			return err
		}

		if res.Changed() {
			kind := protocol.CodeActionKindSource + ".fixAll." + serverName
			out = append(out, protocol.CodeAction{
				Title: fixAllTitle,
				Kind:  &kind,
				Edit: &protocol.WorkspaceEdit{Changes: map[protocol.DocumentUri][]protocol.TextEdit{
					uri: {{Range: li.rangeOf(0, len(text)), NewText: string(res.Fixed)}},
				}},
			})
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func diagnostic(li *lineIndex, v pipeable.Violation) protocol.Diagnostic {
	severity := protocol.DiagnosticSeverityWarning
	source := diagnosticSource

	return protocol.Diagnostic{
		Range:    li.rangeOf(v.Start, v.End),
		Severity: &severity,
		Code:     &protocol.IntegerOrString{Value: v.Rule},
		Source:   &source,
		Message:  v.Message,
	}
}

func quickFix(li *lineIndex, uri string, v pipeable.Violation) protocol.CodeAction {
	kind := protocol.CodeActionKindQuickFix
	preferred := true

	edits := make([]protocol.TextEdit, 0, len(v.Edits))
	for _, e := range v.Edits {
		edits = append(edits, protocol.TextEdit{Range: li.rangeOf(e.Start, e.End), NewText: e.Text})
	}

	return protocol.CodeAction{
		Title:       "Fix: " + v.Message,
		Kind:        &kind,
		Diagnostics: []protocol.Diagnostic{diagnostic(li, v)},
		IsPreferred: &preferred,
		Edit:        &protocol.WorkspaceEdit{Changes: map[protocol.DocumentUri][]protocol.TextEdit{uri: edits}},
	}
}

// observe wraps a request in a span, RED metrics and a debug log line.
func (srv *Server) observe(ctx context.Context, op, uri string, fn func(context.Context) error) error {
	ctx, span := srv.tracer.Start(ctx, "pipeshift."+op, trace.WithAttributes(attribute.String("uri", uri)))
	defer span.End()

	started := time.Now()
	err := fn(ctx)
	status := observability.StatusOK

	if err != nil {
		status = observability.StatusError

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		srv.logger.DebugContext(ctx, "request failed", "op", op, "uri", uri, "error", err)
	}

	srv.metrics.RecordRequest(ctx, op, status, time.Since(started))

	return err
}
