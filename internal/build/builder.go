// Package build runs the site build: a fixed sequence of stages over a shared
// source index, each writing into the build directory.
//
// Stages report per-item problems as warnings and keep going; setup problems
// are fatal and abort the run. Every build yields a Report.
package build

import (
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitebuilder/internal/command"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/history"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/markdown"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/notify"
	"git.home.luguber.info/inful/sitebuilder/internal/source"
	"git.home.luguber.info/inful/sitebuilder/internal/version"
)

// Options wires optional collaborators into a Builder. Zero values get defaults.
type Options struct {
	Logger   *slog.Logger
	Recorder metrics.Recorder
	Commands CommandRunner
	Markdown *markdown.Converter
	History  history.Store
	Notifier notify.Publisher
	// Pipeline overrides the default stage sequence.
	Pipeline *Pipeline
	// ReportDir receives build-report.json; empty disables persisting.
	ReportDir string
}

// Builder runs builds for one site configuration.
type Builder struct {
	cfg  *config.Config
	opts Options
}

// New creates a Builder.
func New(cfg *config.Config, opts Options) *Builder {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Commands == nil {
		opts.Commands = command.NewRunner(opts.Logger)
	}
	if opts.Markdown == nil {
		opts.Markdown = markdown.New(markdown.Options{})
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Noop{}
	}
	if opts.Pipeline == nil {
		opts.Pipeline = DefaultPipeline()
	}
	return &Builder{cfg: cfg, opts: opts}
}

// Build indexes the sources and runs every stage. The report is returned
// even when the build fails.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	report := newReport(uuid.NewString(), version.Version)
	logger := b.opts.Logger.With(logfields.BuildID(report.ID))
	logger.Info("Build started", logfields.Path(b.cfg.Root))

	idx, err := source.Build(ctx, source.OptionsFromConfig(b.cfg, logger))
	if err != nil {
		report.Errors = append(report.Errors, err)
		report.AddIssue("index", SeverityError, err.Error())
		b.finish(ctx, logger, report, nil)
		return report, err
	}
	b.countIndex(report, idx)

	opts := b.opts
	opts.Logger = logger
	st := newState(b.cfg, idx, opts, report)
	runErr := RunStages(ctx, st, b.opts.Pipeline.Build())
	if runErr == nil {
		b.checkLinks(st)
	}
	b.finish(ctx, logger, report, idx)
	return report, runErr
}

func (b *Builder) countIndex(report *Report, idx *source.Index) {
	report.Assets = len(idx.Assets())
	report.Pages = len(idx.Pages())
	report.Posts = len(idx.Posts())
	report.Images = idx.Images().Len()
	for _, issue := range idx.Issues() {
		report.Warnings = append(report.Warnings, issue)
		report.AddIssue("index", SeverityWarning, issue.Error())
	}
	b.opts.Recorder.SetIndexedFiles(source.RoleAsset.String(), report.Assets)
	b.opts.Recorder.SetIndexedFiles(source.RolePage.String(), report.Pages)
	b.opts.Recorder.SetIndexedFiles(source.RolePost.String(), report.Posts)
}

// finish derives the outcome and hands the report to metrics, history and notifications.
func (b *Builder) finish(ctx context.Context, logger *slog.Logger, report *Report, idx *source.Index) {
	// History and notifications still go out for canceled builds.
	ctx = context.WithoutCancel(ctx)

	var pages map[string]string
	if idx != nil && b.opts.History != nil {
		pages = fingerprints(idx)
		change, err := b.opts.History.Diff(ctx, pages)
		if err != nil {
			logger.Warn("History unavailable", logfields.Error(err))
		} else {
			report.ChangedPages = change.Count()
			logger.Info("Pages changed since previous build",
				logfields.Count(change.Count()),
				"added", len(change.Added),
				"modified", len(change.Modified),
				"removed", len(change.Removed))
		}
	}

	report.Finish()
	report.DeriveOutcome()
	b.opts.Recorder.ObserveBuildDuration(report.End.Sub(report.Start))
	b.opts.Recorder.IncBuildOutcome(metrics.BuildOutcomeLabel(report.Outcome))

	if b.opts.ReportDir != "" {
		if err := report.Persist(b.opts.ReportDir); err != nil {
			logger.Warn("Build report not written", logfields.Path(b.opts.ReportDir), logfields.Error(err))
		}
	}

	if b.opts.History != nil {
		stages := make(map[string]string, len(report.StageResults))
		for k, v := range report.StageResults {
			stages[string(k)] = string(v)
		}
		err := b.opts.History.Record(ctx, history.Build{
			ID:       report.ID,
			Start:    report.Start,
			End:      report.End,
			Outcome:  string(report.Outcome),
			Summary:  report.Summary(),
			Warnings: len(report.Warnings),
			Errors:   len(report.Errors),
			Stages:   stages,
			Pages:    pages,
		})
		if err != nil {
			logger.Warn("Build history not recorded", logfields.Error(err))
		}
	}

	err := b.opts.Notifier.Publish(ctx, notify.Event{
		Kind:    notify.KindBuild,
		Site:    b.cfg.Site.Title,
		BuildID: report.ID,
		Outcome: string(report.Outcome),
		Summary: report.Summary(),
		Time:    report.End,
	})
	if err != nil {
		logger.Warn("Build notification not sent", logfields.Error(err))
	}

	level := slog.LevelInfo
	switch report.Outcome {
	case OutcomeFailed, OutcomeCanceled:
		level = slog.LevelError
	case OutcomeWarning:
		level = slog.LevelWarn
	case OutcomeSuccess:
	}
	logger.Log(ctx, level, "Build finished",
		logfields.Outcome(string(report.Outcome)),
		logfields.Duration(report.End.Sub(report.Start)),
		"summary", report.Summary())
}

// fingerprints maps every page and post to its content fingerprint.
func fingerprints(idx *source.Index) map[string]string {
	out := make(map[string]string, len(idx.Pages())+len(idx.Posts()))
	for _, f := range idx.Files() {
		if f.Role.IsContent() {
			out[f.RelPath] = f.Fingerprint()
		}
	}
	return out
}

// checkLinks reports site-relative links whose target was not generated.
func (b *Builder) checkLinks(st *State) {
	for _, f := range st.Index.Files() {
		if !f.Role.IsContent() || !f.Processed() {
			continue
		}
		r, err := st.convert(f)
		if err != nil {
			continue
		}
		for _, l := range r.Links {
			if !l.IsSiteRelative() || outputExists(st, l.Path()) {
				continue
			}
			st.Logger.Warn("Broken internal link",
				logfields.Path(f.RelPath),
				logfields.URL(l.Destination))
			st.Report.AddIssue(contentStage(f.Role), SeverityWarning,
				"broken link "+l.Destination+" in "+f.RelPath)
		}
	}
}

func contentStage(r source.Role) StageName {
	switch r {
	case source.RolePost:
		return StagePosts
	case source.RolePage, source.RoleAsset:
	}
	return StagePages
}

func outputExists(st *State, urlPath string) bool {
	p := strings.TrimPrefix(path.Clean(urlPath), "/")
	if strings.HasSuffix(urlPath, "/") || p == "" || p == "." {
		p = path.Join(p, "index.html")
	}
	_, err := os.Stat(filepath.Join(st.Paths.Build, filepath.FromSlash(p)))
	return err == nil
}
