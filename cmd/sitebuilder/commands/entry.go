package commands

import (
	"git.home.luguber.info/inful/sitebuilder/internal/scaffold"
)

// PageCmd implements the 'page' command.
type PageCmd struct {
	Name     string   `arg:"" help:"Page name; the file name is its slug"`
	Title    string   `help:"Title (default: derived from name)"`
	Tags     []string `help:"Tags"`
	Template string   `help:"Template override"`
}

func (p *PageCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	path, err := scaffold.NewPage(cfg, p.Name, scaffold.EntryOptions{Title: p.Title, Tags: p.Tags, Template: p.Template})
	if err != nil {
		return err
	}
	g.printf("Created %s\n", path)
	return nil
}

// PostCmd implements the 'post' command.
type PostCmd struct {
	Name     string   `arg:"" help:"Post name; the file name is its slug"`
	Title    string   `help:"Title (default: derived from name)"`
	Tags     []string `help:"Tags (default: default_tags)"`
	Template string   `help:"Template override"`
}

func (p *PostCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	tags := p.Tags
	if len(tags) == 0 {
		tags = cfg.DefaultTags
	}
	path, err := scaffold.NewPost(cfg, p.Name, scaffold.EntryOptions{Title: p.Title, Tags: tags, Template: p.Template})
	if err != nil {
		return err
	}
	g.printf("Created %s\n", path)
	return nil
}
