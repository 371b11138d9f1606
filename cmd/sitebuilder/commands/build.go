package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Strict bool `help:"Exit non-zero when the build finishes with warnings"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	s, err := openSite(g, cfg, false)
	if err != nil {
		return err
	}
	defer s.Close(g.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := runBuild(ctx, g, s)
	if err != nil {
		return err
	}
	if b.Strict && report.Outcome == build.OutcomeWarning {
		return errors.BuildError("build finished with warnings").
			WithContext("warnings", len(report.Warnings)).Build()
	}
	return nil
}
