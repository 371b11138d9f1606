// Package deploy ships a built site, either through the configured deploy
// command or by publishing the build directory to a git branch.
//
// Both paths are critical: any failure is fatal. Each run emits a deploy or
// publish notification regardless of outcome.
package deploy

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/command"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/git"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/notify"
	"git.home.luguber.info/inful/sitebuilder/internal/retry"
)

// CommandRunner runs an external command.
type CommandRunner interface {
	Run(ctx context.Context, spec command.Spec) error
}

// GitPublisher pushes a directory to a git branch.
type GitPublisher interface {
	Publish(ctx context.Context, opts git.PublishOptions) (git.PublishResult, error)
}

// Options wires the collaborators of a Deployer. Zero values get defaults.
type Options struct {
	Logger   *slog.Logger
	Commands CommandRunner
	Git      GitPublisher
	Notifier notify.Publisher
	Now      func() time.Time
}

// Deployer runs deploy and publish for one site.
type Deployer struct {
	cfg  *config.Config
	opts Options
}

// New creates a Deployer for cfg.
func New(cfg *config.Config, opts Options) *Deployer {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Commands == nil {
		opts.Commands = command.NewRunner(opts.Logger)
	}
	if opts.Git == nil {
		opts.Git = git.NewClient("", opts.Logger)
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Noop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Deployer{cfg: cfg, opts: opts}
}

// Deploy runs deploy.command with {source} set to the build directory.
func (d *Deployer) Deploy(ctx context.Context) error {
	tmpl := strings.TrimSpace(d.cfg.Deploy.Command)
	if tmpl == "" {
		return errors.ConfigError("no deploy command configured").
			WithContext("key", "deploy.command").Build()
	}
	build, err := d.buildDir()
	if err != nil {
		return err
	}

	logger := d.opts.Logger.With(logfields.Command(tmpl))
	logger.Info("Deploying site", logfields.Path(build))
	start := d.opts.Now()
	err = d.opts.Commands.Run(ctx, command.Spec{
		Template: tmpl,
		Source:   build,
		Dest:     build,
		Dir:      d.cfg.Root,
		Critical: true,
	})
	d.notify(ctx, notify.KindDeploy, err, map[string]string{"command": tmpl})
	if err != nil {
		return err
	}
	logger.Info("Deploy finished", logfields.Duration(d.opts.Now().Sub(start)))
	return nil
}

// Publish commits the build directory to the configured git branch and pushes it.
func (d *Deployer) Publish(ctx context.Context) (git.PublishResult, error) {
	gc := d.cfg.Deploy.Git
	if strings.TrimSpace(gc.Remote) == "" {
		return git.PublishResult{}, errors.ConfigError("no publish remote configured").
			WithContext("key", "deploy.git.remote").Build()
	}
	build, err := d.buildDir()
	if err != nil {
		return git.PublishResult{}, err
	}
	auth, err := git.Auth(gc)
	if err != nil {
		return git.PublishResult{}, err
	}

	remote := d.remote()
	res, err := d.opts.Git.Publish(ctx, git.PublishOptions{
		Source:      build,
		Remote:      remote,
		Branch:      gc.Branch,
		Auth:        auth,
		AuthorName:  gc.AuthorName,
		AuthorEmail: gc.AuthorEmail,
		Message:     gc.Message,
		Retry:       retry.FromGit(gc),
		Now:         d.opts.Now,
	})
	fields := map[string]string{"remote": remote, "branch": gc.Branch}
	if res.Commit != "" {
		fields["commit"] = res.Commit
	}
	d.notify(ctx, notify.KindPublish, err, fields)
	if err != nil {
		return git.PublishResult{}, errors.WrapError(err, errors.CategoryDeploy, "publish failed").
			Fatal().WithContext("url", remote).Build()
	}
	return res, nil
}

// remote resolves a relative filesystem remote against the site root.
// URLs and scp-style addresses are returned unchanged.
func (d *Deployer) remote() string {
	r := strings.TrimSpace(d.cfg.Deploy.Git.Remote)
	if strings.Contains(r, "://") || strings.Contains(r, "@") {
		return r
	}
	return d.cfg.Resolve(r)
}

func (d *Deployer) buildDir() (string, error) {
	build := d.cfg.Paths().Build
	info, err := os.Stat(build)
	if err != nil || !info.IsDir() {
		return "", errors.DeployError("build directory does not exist, run build first").
			WithContext("path", build).Build()
	}
	return build, nil
}

func (d *Deployer) notify(ctx context.Context, kind string, runErr error, fields map[string]string) {
	outcome := "success"
	if runErr != nil {
		outcome = "failed"
		fields["error"] = runErr.Error()
	}
	err := d.opts.Notifier.Publish(context.WithoutCancel(ctx), notify.Event{
		Kind:    kind,
		Site:    d.cfg.Site.Title,
		Outcome: outcome,
		Time:    d.opts.Now(),
		Fields:  fields,
	})
	if err != nil {
		d.opts.Logger.Warn("Deploy notification not sent", slog.String("kind", kind), logfields.Error(err))
	}
}
