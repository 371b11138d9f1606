package build

import (
	"context"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/templates"
)

func stagePrepareOutput(_ context.Context, st *State) error {
	dir := st.Paths.Build
	if dir == "" || filepath.Clean(dir) == filepath.Clean(st.Paths.Root) {
		return NewFatalStageError(StagePrepareOutput,
			errors.ConfigError("refusing to clear the build directory").WithContext("path", dir).Build())
	}
	if err := os.RemoveAll(dir); err != nil {
		return NewFatalStageError(StagePrepareOutput, fsError(err, "clear build directory", dir))
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return NewFatalStageError(StagePrepareOutput, fsError(err, "create build directory", dir))
	}
	return nil
}

func stageLoadTemplates(_ context.Context, st *State) error {
	r, err := templates.Load(st.Paths.Templates, st.helpers)
	if err != nil {
		return NewFatalStageError(StageLoadTemplates, err)
	}
	st.Templates = r

	content := len(st.Index.Pages()) + len(st.Index.Posts())
	if content > 0 && !r.Has(st.Config.DefaultTemplate) {
		return NewFatalStageError(StageLoadTemplates,
			errors.WrapError(templates.ErrTemplateNotFound, errors.CategoryTemplate, "default template missing").
				Fatal().
				WithContext("template", st.Config.DefaultTemplate).
				WithContext("path", st.Paths.Templates).
				Build())
	}
	st.Logger.Debug("Templates loaded",
		logfields.Path(st.Paths.Templates),
		logfields.Count(len(r.Names())))
	return nil
}
