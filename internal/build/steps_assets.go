package build

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/sitebuilder/internal/command"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/source"
)

func stageCSS(ctx context.Context, st *State) error {
	return processAssets(ctx, st, StageCSS, ".css", st.Config.MinCSS, st.Config.CSSCommand)
}

func stageJS(ctx context.Context, st *State) error {
	return processAssets(ctx, st, StageJS, ".js", st.Config.MinJS, st.Config.JSCommand)
}

// stageLess only compiles. Without a compiler, .less sources are copied
// verbatim under their own name by the static stage.
func stageLess(ctx context.Context, st *State) error {
	if !st.Config.MinLess {
		return skip("less compilation disabled")
	}
	return processAssets(ctx, st, StageLess, ".less", true, st.Config.LessCommand)
}

func processAssets(ctx context.Context, st *State, stage StageName, ext string, useCommand bool, tmpl string) error {
	files := st.Index.Query(
		source.ByRole(source.RoleAsset),
		source.ByExt(ext),
		source.Processed(false),
	)
	if len(files) == 0 {
		return skip("no " + ext + " assets")
	}
	return forEachFile(ctx, st, stage, files, func(ctx context.Context, f *source.File) error {
		return processAsset(ctx, st, stage, f, useCommand, tmpl)
	})
}

func processAsset(ctx context.Context, st *State, stage StageName, f *source.File, useCommand bool, tmpl string) error {
	dest := st.out(f.DestPath())
	if !useCommand {
		if err := copyFile(f.Path, dest, f.ModTime()); err != nil {
			return err
		}
		markProcessed(st, stage, f, f.DestPath())
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return fsError(err, "create output directory", dest)
	}
	start := time.Now()
	err := st.Commands.Run(ctx, command.Spec{
		Template: tmpl,
		Source:   f.Path,
		Dest:     dest,
		Dir:      st.Paths.Root,
	})
	st.commandDone(time.Since(start), err)
	if err != nil {
		st.Logger.Info("Falling back to verbatim copy",
			logfields.Step(string(stage)),
			logfields.Path(f.RelPath))
		return err
	}
	if err := stamp(dest, f.ModTime()); err != nil {
		return err
	}
	markProcessed(st, stage, f, f.DestPath())
	return nil
}

// stageStatic copies every asset no earlier stage claimed.
func stageStatic(ctx context.Context, st *State) error {
	files := st.Index.Query(source.ByRole(source.RoleAsset), source.Processed(false))
	if len(files) == 0 {
		return skip("no unprocessed assets")
	}
	return forEachFile(ctx, st, StageStatic, files, func(_ context.Context, f *source.File) error {
		if err := copyFile(f.Path, st.out(f.RelPath), f.ModTime()); err != nil {
			return err
		}
		markProcessed(st, StageStatic, f, f.RelPath)
		return nil
	})
}

func markProcessed(st *State, stage StageName, f *source.File, dest string) {
	if !f.MarkProcessed(string(stage)) {
		st.Logger.Warn("File already processed",
			logfields.Step(string(stage)),
			logfields.Path(f.RelPath),
			slog.String("by", f.ProcessedBy()))
	}
	st.claim(dest, f)
}

// forEachFile runs fn over files with at most Config.Workers in flight.
// Item failures are collected into a warning; cancellation stops the stage.
func forEachFile(ctx context.Context, st *State, stage StageName, files []*source.File, fn func(context.Context, *source.File) error) error {
	var (
		mu      sync.Mutex
		written int
		ie      = &itemErrors{stage: stage}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, st.Config.Workers))
	for _, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			err := fn(gctx, f)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				st.Logger.Warn("Item failed",
					logfields.Step(string(stage)),
					logfields.Path(f.RelPath),
					logfields.Error(err))
				ie.add(err)
				return nil
			}
			written++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return NewCanceledStageError(stage, err)
	}
	st.items(stage, written, len(ie.errs))
	return ie.result()
}
