// Package migrate runs the rules over a set of files until no violations
// remain. Each pass analyzes the files that changed in the previous pass in
// parallel; within a file the rules run in registry order and the source is
// re-parsed after every rule that produced edits.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/pipeshift/pkg/observability"
	"github.com/Sumatoshi-tech/pipeshift/pkg/rules"
	"github.com/Sumatoshi-tech/pipeshift/pkg/tsast"
	"github.com/Sumatoshi-tech/pipeshift/pkg/typecheck"
)

// Sentinel errors.
var (
	ErrNoRules      = errors.New("no rules selected")
	ErrNotConverged = errors.New("violations remain after the maximum number of passes")
)

// DefaultMaxPasses bounds the fixed-point loop when Options.MaxPasses is unset.
const DefaultMaxPasses = 10

// Options configures a Runner.
type Options struct {
	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.MigrationMetrics

	Rules       []rules.Rule
	TypeOptions typecheck.Options

	MaxPasses int
	// Workers bounds the files analyzed concurrently. Zero means NumCPU.
	Workers int
	// DryRun computes every fix without writing files.
	DryRun bool
}

// Runner drives the fixed-point loop.
type Runner struct {
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.MigrationMetrics
	parser  *tsast.Parser

	rules    []rules.Rule
	typeOpts typecheck.Options

	maxPasses int
	workers   int
	dryRun    bool
}

// New validates opts and returns a Runner.
func New(opts Options) (*Runner, error) {
	if len(opts.Rules) == 0 {
		return nil, ErrNoRules
	}

	r := &Runner{
		logger:    opts.Logger,
		tracer:    opts.Tracer,
		metrics:   opts.Metrics,
		parser:    tsast.NewParser(),
		rules:     opts.Rules,
		typeOpts:  opts.TypeOptions,
		maxPasses: opts.MaxPasses,
		workers:   opts.Workers,
		dryRun:    opts.DryRun,
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	if r.tracer == nil {
		r.tracer = nooptrace.NewTracerProvider().Tracer("pipeshift")
	}

	if r.maxPasses <= 0 {
		r.maxPasses = DefaultMaxPasses
	}

	if r.workers <= 0 {
		r.workers = runtime.NumCPU()
	}

	return r, nil
}

// Run reads files, converges them and, unless DryRun is set, writes every
// changed file back. When the pass cap is reached the changes made so far
// are still written and the report is returned with ErrNotConverged.
func (r *Runner) Run(ctx context.Context, files []string) (*Report, error) {
	ctx, span := r.tracer.Start(ctx, "pipeshift.migrate.run",
		trace.WithAttributes(attribute.Int("files", len(files)), attribute.Bool("dry_run", r.dryRun)))
	defer span.End()

	states, err := r.load(ctx, files)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")

		return nil, err
	}

	report, convErr := r.converge(ctx, states)
	if convErr != nil && !errors.Is(convErr, ErrNotConverged) {
		span.RecordError(convErr)
		span.SetStatus(codes.Error, "migration failed")

		return nil, convErr
	}

	if !r.dryRun {
		if err := r.write(ctx, report); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "write failed")

			return nil, err
		}
	}

	span.SetAttributes(attribute.Int("passes", report.Passes), attribute.Int("findings", len(report.Findings())))

	return report, convErr
}

// FixSource converges one in-memory source. Nothing is read or written.
func (r *Runner) FixSource(ctx context.Context, name string, src []byte) (FileResult, error) {
	report, err := r.converge(ctx, []*fileState{newFileState(name, src, 0)})
	if report == nil {
		return FileResult{}, err
	}

	return report.Files[0], err
}

func (r *Runner) load(ctx context.Context, files []string) ([]*fileState, error) {
	states := make([]*fileState, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("stat %s: %w", path, err)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			states[i] = newFileState(path, data, info.Mode().Perm())

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return states, nil
}

func (r *Runner) converge(ctx context.Context, states []*fileState) (*Report, error) {
	started := time.Now()
	report := &Report{DryRun: r.dryRun}

	for pass := 1; pass <= r.maxPasses; pass++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		found, err := r.runPass(ctx, states, pass)
		if err != nil {
			return nil, err
		}

		report.Passes = pass

		if found == 0 {
			report.Converged = true

			break
		}
	}

	report.Duration = time.Since(started)

	for _, st := range states {
		res := st.result()
		report.Files = append(report.Files, res)
		r.metrics.RecordFile(ctx, res.Status())
	}

	if !report.Converged {
		r.logger.Warn("pass limit reached", "passes", report.Passes)

		return report, fmt.Errorf("%w (%d)", ErrNotConverged, r.maxPasses)
	}

	return report, nil
}

// runPass analyzes every dirty file once and returns the number of
// violations found.
func (r *Runner) runPass(ctx context.Context, states []*fileState, pass int) (int, error) {
	ctx, span := r.tracer.Start(ctx, "pipeshift.migrate.pass", trace.WithAttributes(attribute.Int("pass", pass)))
	defer span.End()

	started := time.Now()

	var active []*fileState

	for _, st := range states {
		if st.dirty {
			active = append(active, st)
		}
	}

	counts := make([]int, len(active))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, st := range active {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			n, err := r.fixFile(gctx, st, pass)
			counts[i] = n

			return err
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)

		return 0, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	duration := time.Since(started)
	r.metrics.RecordPass(ctx, duration)
	r.logger.Debug("pass complete", "pass", pass, "files", len(active), "violations", total, "duration", duration)
	span.SetAttributes(attribute.Int("files", len(active)), attribute.Int("violations", total))

	return total, nil
}
