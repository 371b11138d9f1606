package build

import (
	"context"
	stderrors "errors"
	"os"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/source"
)

func stagePages(ctx context.Context, st *State) error {
	return renderContent(ctx, st, StagePages, st.Index.Pages())
}

func stagePosts(ctx context.Context, st *State) error {
	err := renderContent(ctx, st, StagePosts, st.Index.Posts())
	if !st.Config.LatestPostAtRoot {
		return err
	}
	var se *StageError
	if stderrors.As(err, &se) && se.Kind != StageErrorWarning {
		return err
	}
	var sk skipped
	if stderrors.As(err, &sk) {
		return err
	}
	if lerr := copyLatestToRoot(st); lerr != nil {
		st.Logger.Warn("Root index not written",
			logfields.Dest(st.Config.RootIndex),
			logfields.Error(lerr))
		if se != nil {
			se.Err = stderrors.Join(se.Err, lerr)
			return se
		}
		return NewWarnStageError(StagePosts, lerr)
	}
	return err
}

func renderContent(ctx context.Context, st *State, stage StageName, files []*source.File) error {
	if len(files) == 0 {
		return skip("no " + string(stage))
	}
	ie := &itemErrors{stage: stage}
	written := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return NewCanceledStageError(stage, err)
		}
		if err := renderOne(st, stage, f); err != nil {
			st.Logger.Warn("Item failed",
				logfields.Step(string(stage)),
				logfields.Path(f.RelPath),
				logfields.Error(err))
			ie.add(err)
			continue
		}
		written++
	}
	st.items(stage, written, len(ie.errs))
	return ie.result()
}

func renderOne(st *State, stage StageName, f *source.File) error {
	tpl := f.FrontMatter().Template
	if tpl == "" {
		tpl = st.Config.DefaultTemplate
	}

	rendered, err := st.convert(f)
	if err != nil {
		return errors.WrapError(err, errors.CategoryContent, "convert markdown").
			WithContext("path", f.RelPath).Build()
	}

	data := PageContext{Site: st.siteData(), Page: st.pageData(f, rendered)}
	if st.Templates.References(tpl, ".Index") {
		data.Index = st.tableOfContents()
	}

	out, err := st.Templates.Render(tpl, data)
	if err != nil {
		return err
	}

	dest := f.DestPath()
	if prev := st.claim(dest, f); prev != nil && prev != f {
		st.Logger.Warn("Output overwritten",
			logfields.Step(string(stage)),
			logfields.Dest(dest),
			logfields.Path(f.RelPath),
			"previous", prev.RelPath)
	}
	if err := writeOutput(st.out(dest), out); err != nil {
		return err
	}
	if !f.MarkProcessed(string(stage)) {
		st.Logger.Debug("File already processed", logfields.Path(f.RelPath))
	}
	return nil
}

// copyLatestToRoot duplicates the newest post's output as the root index.
func copyLatestToRoot(st *State) error {
	latest := st.Index.Latest()
	if latest == nil {
		return nil
	}
	if !latest.Processed() {
		return errors.ContentError("latest post was not rendered").
			WithContext("path", latest.RelPath).Build()
	}
	root := st.Config.RootIndex
	for _, p := range st.Index.Query(source.ByRole(source.RolePage), source.ByDestPath(root)) {
		st.Logger.Warn("Latest post replaces page at root index",
			logfields.Dest(root),
			logfields.Path(p.RelPath))
	}

	src := st.out(latest.DestPath())
	// #nosec G304 -- path is inside the build directory
	data, err := os.ReadFile(src)
	if err != nil {
		return fsError(err, "read latest post output", src)
	}
	if err := writeOutput(st.out(root), data); err != nil {
		return err
	}
	st.claim(root, latest)
	st.Logger.Debug("Latest post copied to root index",
		logfields.Path(latest.RelPath),
		logfields.Dest(root),
		"bytes", len(data))
	return nil
}
