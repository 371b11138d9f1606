package commands

import (
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// CleanCmd implements the 'clean' command.
type CleanCmd struct {
	All bool `help:"Also remove the build report and history database"`
}

func (c *CleanCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	targets := []string{cfg.Paths().Build}
	if c.All {
		targets = append(targets, filepath.Join(cfg.Root, StateDir), cfg.Resolve(cfg.History.Path))
	}
	for _, dir := range targets {
		if filepath.Clean(dir) == filepath.Clean(cfg.Root) {
			return errors.ConfigError("refusing to remove the site root").WithContext("path", dir).Build()
		}
		if err := os.RemoveAll(dir); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "remove directory").
				Fatal().WithContext("path", dir).Build()
		}
		g.Logger.Info("Removed", "path", dir)
	}
	g.printf("Cleaned %s\n", cfg.Paths().Build)
	return nil
}
