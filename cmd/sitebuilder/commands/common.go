package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/history"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/notify"
)

// StateDir holds the build report and, by default, the history database.
const StateDir = ".sitebuilder"

// Global carries shared state into every command.
type Global struct {
	Logger *slog.Logger
	Out    io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Source    string           `short:"s" help:"Site root directory" default:"."`
	Config    string           `short:"c" help:"Configuration file path (default: <source>/site.yaml)"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogLevel  string           `name:"log-level" help:"Log level (debug|info|warn|error)" env:"SITEBUILDER_LOG_LEVEL"`
	LogFormat string           `name:"log-format" help:"Log format (text|json)" enum:"text,json" default:"text"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Init    InitCmd    `cmd:"" help:"Create a new site with configuration, source roots and the default theme"`
	Build   BuildCmd   `cmd:"" help:"Build the site into the build directory"`
	Run     RunCmd     `cmd:"" help:"Build, serve and rebuild the site on change"`
	Deploy  DeployCmd  `cmd:"" help:"Run the configured deploy command on the build directory"`
	Publish PublishCmd `cmd:"" help:"Commit the build directory to a git branch and push it"`
	Clean   CleanCmd   `cmd:"" help:"Remove the build directory"`
	Page    PageCmd    `cmd:"" help:"Create a new page source"`
	Post    PostCmd    `cmd:"" help:"Create a new post source"`
	History HistoryCmd `cmd:"" help:"List recent builds"`
	About   VersionCmd `cmd:"" name:"version" help:"Print version information"`

	logger *slog.Logger
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	c.logger = NewLogger(os.Stderr, c.LogFormat, ParseLogLevel(c.Verbose, c.LogLevel))
	slog.SetDefault(c.logger)
	return nil
}

// Logger returns the configured logger, discarding output before AfterApply.
func (c *CLI) Logger() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// ParseLogLevel resolves the level: an explicit level wins, then --verbose, then info.
func ParseLogLevel(verbose bool, level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// NewLogger builds a text or JSON logger writing to w.
func NewLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ConfigPath returns the configuration file for the selected site root.
func (c *CLI) ConfigPath() string {
	if c.Config != "" {
		return c.Config
	}
	source := c.Source
	if source == "" {
		source = "."
	}
	return filepath.Join(source, config.DefaultFile)
}

// LoadConfig loads and validates the site configuration.
func (c *CLI) LoadConfig() (*config.Config, error) {
	return config.Load(c.ConfigPath())
}

func (g *Global) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

func (g *Global) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(g.out(), format, args...)
}

// site bundles the collaborators a build-running command needs.
type site struct {
	cfg      *config.Config
	builder  *build.Builder
	registry *prom.Registry
	closers  []func() error
}

func (s *site) Close(logger *slog.Logger) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logger.Warn("Close failed", logfields.Error(err))
		}
	}
}

// openSite wires the builder for cfg with history, notifications and, when
// withMetrics is set and metrics are enabled, a Prometheus registry.
func openSite(g *Global, cfg *config.Config, withMetrics bool) (*site, error) {
	s := &site{cfg: cfg}
	opts := build.Options{
		Logger:    g.Logger,
		ReportDir: filepath.Join(cfg.Root, StateDir),
	}

	if cfg.History.Enabled {
		store, err := history.NewSQLiteStore(cfg.Resolve(cfg.History.Path), cfg.History.Keep)
		if err != nil {
			return nil, err
		}
		opts.History = store
		s.closers = append(s.closers, store.Close)
	}

	publisher, err := notify.New(cfg.Notify, g.Logger)
	if err != nil {
		g.Logger.Warn("Notifications disabled", logfields.Error(err))
		publisher = notify.Noop{}
	}
	opts.Notifier = publisher
	s.closers = append(s.closers, publisher.Close)

	if withMetrics && cfg.Metrics.Enabled {
		s.registry = metrics.NewRegistry()
		opts.Recorder = metrics.NewPrometheusRecorder(s.registry)
	}

	s.builder = build.New(cfg, opts)
	return s, nil
}

// notifier opens the configured publisher for deploy events.
func notifier(g *Global, cfg *config.Config) notify.Publisher {
	publisher, err := notify.New(cfg.Notify, g.Logger)
	if err != nil {
		g.Logger.Warn("Notifications disabled", logfields.Error(err))
		return notify.Noop{}
	}
	return publisher
}

// runBuild runs one build and prints its summary. A failed or canceled build
// is returned as a classified error.
func runBuild(ctx context.Context, g *Global, s *site) (*build.Report, error) {
	report, err := s.builder.Build(ctx)
	if report != nil {
		g.printf("%s\n", report.Summary())
		for _, issue := range report.Issues {
			g.printf("  %s [%s] %s\n", issue.Severity, issue.Stage, issue.Message)
		}
	}
	if err != nil {
		if errors.IsClassified(err) {
			return report, err
		}
		return report, errors.WrapError(err, errors.CategoryBuild, "build failed").Fatal().Build()
	}
	if report.Outcome == build.OutcomeFailed || report.Outcome == build.OutcomeCanceled {
		return report, errors.BuildError("build " + string(report.Outcome)).
			WithContext("errors", len(report.Errors)).Build()
	}
	return report, nil
}
