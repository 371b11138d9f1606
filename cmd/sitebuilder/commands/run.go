package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/preview"
)

// RunCmd implements the 'run' command.
type RunCmd struct {
	Port      int  `short:"p" help:"Override serve.port"`
	NoBrowser bool `name:"no-browser" help:"Do not open a browser"`
}

func (r *RunCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	if r.Port > 0 {
		cfg.Serve.Port = r.Port
	}
	if r.NoBrowser {
		cfg.Serve.OpenBrowser = false
	}

	s, err := openSite(g, cfg, true)
	if err != nil {
		return err
	}
	defer s.Close(g.Logger)

	var metricsHandler http.Handler
	if s.registry != nil {
		metricsHandler = metrics.HTTPHandler(s.registry)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return preview.New(cfg, s.builder, preview.Options{
		Logger:  g.Logger,
		Metrics: metricsHandler,
	}).Run(ctx)
}
