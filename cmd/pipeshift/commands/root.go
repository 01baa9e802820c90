// Package commands implements CLI command handlers for pipeshift.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pipeshift/internal/discover"
	"github.com/Sumatoshi-tech/pipeshift/pkg/config"
	"github.com/Sumatoshi-tech/pipeshift/pkg/migrate"
	"github.com/Sumatoshi-tech/pipeshift/pkg/observability"
	"github.com/Sumatoshi-tech/pipeshift/pkg/rules"
	"github.com/Sumatoshi-tech/pipeshift/pkg/version"
)

// ErrPendingMigrations is returned by check when fixes are available. The
// binary maps it to exit status 2.
var ErrPendingMigrations = errors.New("pending migrations")

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	rules      []string
	workers    int
	maxPasses  int
	logJSON    bool
	noColor    bool
	quiet      bool
}

// NewRootCommand builds the pipeshift command tree without the version
// command, which main adds.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "pipeshift",
		Short: "Migrate RxJS and NgRx operator chains to pipeable operators",
		Long: `pipeshift rewrites instance-style operator chains in TypeScript sources into
pipeable form and merges chained pipe calls, repeating until no migration is
left.

Commands:
  migrate   Rewrite files in place
  check     Report pending migrations without writing
  rules     List the available rules
  tree      Print the syntax tree of a file
  lsp       Start the language server
  mcp       Start the MCP server`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default is .pipeshift.yaml in . or $HOME)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	pf.BoolVar(&flags.logJSON, "log-json", false, "emit JSON logs")
	pf.StringSliceVarP(&flags.rules, "rules", "r", nil, "rules to run (default: config or all)")
	pf.IntVarP(&flags.workers, "workers", "w", 0, "files analyzed concurrently (default: config or NumCPU)")
	pf.IntVar(&flags.maxPasses, "max-passes", 0, "pass limit of the fixed-point loop (default: config)")
	pf.BoolVar(&flags.noColor, "no-color", false, "disable colored output")
	pf.BoolVarP(&flags.quiet, "quiet", "q", false, "suppress banners")

	rootCmd.AddCommand(NewMigrateCommand(flags))
	rootCmd.AddCommand(NewCheckCommand(flags))
	rootCmd.AddCommand(NewRulesCommand(flags))
	rootCmd.AddCommand(NewTreeCommand())
	rootCmd.AddCommand(NewLSPCommand(flags))
	rootCmd.AddCommand(NewMCPCommand(flags))

	return rootCmd
}

// session bundles what a command needs after configuration is loaded.
type session struct {
	cfg       *config.Config
	providers observability.Providers
	registry  *rules.Registry
	selected  []rules.Rule
}

func openSession(flags *globalFlags, mode observability.AppMode, logOut io.Writer) (*session, error) {
	cfg, err := config.LoadConfig(flags.configPath)
	if err != nil {
		return nil, err
	}

	if flags.workers > 0 {
		cfg.Workers = flags.workers
	}

	if flags.maxPasses > 0 {
		cfg.Passes.Max = flags.maxPasses
	}

	if len(flags.rules) > 0 {
		cfg.Rules.Enabled = flags.rules
	}

	levelName := cfg.Logging.Level
	if flags.logLevel != "" {
		levelName = flags.logLevel
	}

	level, err := observability.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = mode
	obsCfg.LogLevel = level
	obsCfg.LogJSON = flags.logJSON || cfg.Logging.Format == "json"
	obsCfg.LogWriter = logOut
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.PrometheusTextfile = cfg.Telemetry.PrometheusTextfile

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, err
	}

	registry := rules.Default(rules.Options{Logger: providers.Logger, StreamTypes: cfg.Types.Stream})

	selected, err := registry.Select(cfg.Rules.Enabled)
	if err != nil {
		return nil, errors.Join(err, providers.Shutdown(context.Background()))
	}

	if flags.noColor {
		color.NoColor = true
	}

	return &session{cfg: cfg, providers: providers, registry: registry, selected: selected}, nil
}

func (s *session) close() {
	if err := s.providers.Shutdown(context.Background()); err != nil {
		s.providers.Logger.Warn("observability shutdown failed", "error", err)
	}
}

func (s *session) runner(dryRun bool) (*migrate.Runner, error) {
	metrics, err := observability.NewMigrationMetrics(s.providers.Meter)
	if err != nil {
		return nil, err
	}

	return migrate.New(migrate.Options{
		Logger:      s.providers.Logger,
		Tracer:      s.providers.Tracer,
		Metrics:     metrics,
		Rules:       s.selected,
		TypeOptions: s.cfg.TypeOptions(),
		MaxPasses:   s.cfg.Passes.Max,
		Workers:     s.cfg.Workers,
		DryRun:      dryRun,
	})
}

// inputs resolves the files of a run from a project file or paths. With
// neither, the working directory is walked.
func (s *session) inputs(ctx context.Context, project string, paths []string) ([]string, error) {
	finder, err := discover.New(discover.Options{
		Logger:     s.providers.Logger,
		Extensions: s.cfg.Files.Extensions,
		Exclude:    s.cfg.Files.Exclude,
	})
	if err != nil {
		return nil, err
	}

	if project != "" {
		files, err := finder.Project(ctx, project)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", project, err)
		}

		if len(paths) == 0 {
			return files, nil
		}

		more, err := finder.Paths(ctx, paths)
		if err != nil {
			return nil, err
		}

		return append(files, more...), nil
	}

	if len(paths) == 0 {
		paths = []string{"."}
	}

	return finder.Paths(ctx, paths)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}
