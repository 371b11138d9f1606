package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int  `short:"n" help:"Number of builds to show (0 for all)" default:"10"`
	JSON  bool `help:"Print JSON instead of a table"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return errors.ConfigError("build history is disabled").WithContext("key", "history.enabled").Build()
	}
	store, err := history.NewSQLiteStore(cfg.Resolve(cfg.History.Path), cfg.History.Keep)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	builds, err := store.List(context.Background(), h.Limit)
	if err != nil {
		return err
	}

	if h.JSON {
		enc := json.NewEncoder(g.out())
		enc.SetIndent("", "  ")
		return enc.Encode(builds)
	}
	if len(builds) == 0 {
		g.printf("No builds recorded\n")
		return nil
	}
	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSTARTED\tDURATION\tOUTCOME\tWARNINGS\tERRORS\tSTAGES")
	for _, b := range builds {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			b.ID[:min(8, len(b.ID))],
			b.Start.Local().Format(time.DateTime),
			b.Duration().Truncate(time.Millisecond),
			b.Outcome, b.Warnings, b.Errors, len(b.Stages))
	}
	return tw.Flush()
}
