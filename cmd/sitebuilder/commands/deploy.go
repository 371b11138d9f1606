package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/deploy"
)

// DeployCmd implements the 'deploy' command.
type DeployCmd struct {
	Build bool `help:"Build the site before deploying"`
}

func (d *DeployCmd) Run(g *Global, root *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := prepareDeploy(ctx, g, root, d.Build)
	if err != nil {
		return err
	}
	n := notifier(g, cfg)
	defer func() { _ = n.Close() }()

	if err := deploy.New(cfg, deploy.Options{Logger: g.Logger, Notifier: n}).Deploy(ctx); err != nil {
		return err
	}
	g.printf("Deployed %s\n", cfg.Paths().Build)
	return nil
}

// PublishCmd implements the 'publish' command.
type PublishCmd struct {
	Build bool `help:"Build the site before publishing"`
}

func (p *PublishCmd) Run(g *Global, root *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := prepareDeploy(ctx, g, root, p.Build)
	if err != nil {
		return err
	}
	n := notifier(g, cfg)
	defer func() { _ = n.Close() }()

	res, err := deploy.New(cfg, deploy.Options{Logger: g.Logger, Notifier: n}).Publish(ctx)
	if err != nil {
		return err
	}
	if !res.Changed {
		g.printf("Nothing to publish, %s is up to date\n", cfg.Deploy.Git.Branch)
		return nil
	}
	g.printf("Published %s to %s\n", res.Commit[:min(8, len(res.Commit))], cfg.Deploy.Git.Branch)
	return nil
}

// prepareDeploy loads the configuration and optionally builds first.
func prepareDeploy(ctx context.Context, g *Global, root *CLI, buildFirst bool) (*config.Config, error) {
	cfg, err := root.LoadConfig()
	if err != nil {
		return nil, err
	}
	if !buildFirst {
		return cfg, nil
	}
	s, err := openSite(g, cfg, false)
	if err != nil {
		return nil, err
	}
	defer s.Close(g.Logger)
	if _, err := runBuild(ctx, g, s); err != nil {
		return nil, err
	}
	return cfg, nil
}
