package scaffold

import (
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/git"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/templates"
)

// InitOptions controls site initialization.
type InitOptions struct {
	// Force overwrites an existing configuration and theme templates.
	Force bool
	// Git initializes a repository in the site root.
	Git    bool
	Logger *slog.Logger
}

// InitResult lists what InitSite created.
type InitResult struct {
	Config    string
	Templates []string
	Samples   []string
	Repo      bool
}

const gitignore = "build/\n.sitebuilder/\n.env.local\n"

const samplePage = `title: About

This site was created by sitebuilder. Edit pages/about.md or add posts with
` + "`sitebuilder post my-first-post`" + `.
`

// InitSite writes site.yaml, the source roots, the default theme and a sample
// page into root. Existing sample files are left alone.
func InitSite(root string, opts InitOptions) (InitResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var res InitResult

	if err := os.MkdirAll(root, 0o755); err != nil {
		return res, errors.WrapError(err, errors.CategoryFileSystem, "create site root").
			Fatal().WithContext("path", root).Build()
	}

	res.Config = filepath.Join(root, config.DefaultFile)
	if err := config.Init(res.Config, opts.Force); err != nil {
		return res, err
	}
	logger.Info("Wrote configuration", logfields.Path(res.Config))

	cfg, err := config.Load(res.Config)
	if err != nil {
		return res, err
	}
	paths := cfg.Paths()
	for _, dir := range []string{paths.Pages, paths.Posts, paths.Assets} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return res, errors.WrapError(err, errors.CategoryFileSystem, "create source root").
				Fatal().WithContext("path", dir).Build()
		}
	}

	res.Templates, err = templates.WriteDefaultTheme(paths.Templates, opts.Force)
	if err != nil {
		return res, err
	}
	logger.Info("Wrote default theme", logfields.Path(paths.Templates), logfields.Count(len(res.Templates)))

	if sample, err := WriteNewFile(paths.Pages, "about.md", samplePage); err == nil {
		res.Samples = append(res.Samples, sample)
	} else if !errors.HasCategory(err, errors.CategoryValidation) {
		return res, err
	}

	if _, err := WriteNewFile(root, ".gitignore", gitignore); err != nil && !errors.HasCategory(err, errors.CategoryValidation) {
		return res, err
	}

	if opts.Git {
		res.Repo, err = git.NewClient("", logger).InitRepository(root)
		if err != nil {
			return res, err
		}
	}
	return res, nil
}
