package commands

import (
	"git.home.luguber.info/inful/sitebuilder/internal/scaffold"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite an existing configuration and theme"`
	Git   bool `help:"Initialize a git repository in the site root"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	g.printf("Initializing site in %s\n", root.Source)
	res, err := scaffold.InitSite(root.Source, scaffold.InitOptions{Force: i.Force, Git: i.Git, Logger: g.Logger})
	if err != nil {
		g.printf("Initialization failed\n")
		return err
	}
	g.printf("Wrote %s and %d templates\n", res.Config, len(res.Templates))
	if res.Repo {
		g.printf("Initialized git repository\n")
	}
	g.printf("initialized successfully\n")
	return nil
}
