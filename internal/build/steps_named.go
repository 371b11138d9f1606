package build

import (
	"context"
	"os"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/source"
)

// namedFileStage renders name at the site root. An asset of that name at the
// top of the assets root is used as the template source, else a template of
// that name. Failures are warnings; a failed asset is left to the static stage.
func namedFileStage(stage StageName, name string) Stage {
	return func(_ context.Context, st *State) error {
		data := NamedContext{Site: st.siteData()}

		for _, f := range st.Index.Query(
			source.ByRole(source.RoleAsset),
			source.ByBasename(name),
			source.Processed(false),
		) {
			if f.RelPath != name {
				continue
			}
			// #nosec G304 -- path comes from the walked assets root
			src, err := os.ReadFile(f.Path)
			if err != nil {
				return failNamed(st, stage, name, fsError(err, "read named file", f.Path))
			}
			out, err := st.Templates.RenderString(name, string(src), data)
			if err != nil {
				return failNamed(st, stage, name, err)
			}
			if err := writeOutput(st.out(name), out); err != nil {
				return failNamed(st, stage, name, err)
			}
			markProcessed(st, stage, f, name)
			st.items(stage, 1, 0)
			return nil
		}

		if !st.Templates.Has(name) {
			return skip("no " + name + " asset or template")
		}
		out, err := st.Templates.Render(name, data)
		if err != nil {
			return failNamed(st, stage, name, err)
		}
		if err := writeOutput(st.out(name), out); err != nil {
			return failNamed(st, stage, name, err)
		}
		st.claim(name, nil)
		st.items(stage, 1, 0)
		return nil
	}
}

func failNamed(st *State, stage StageName, name string, err error) error {
	st.Logger.Warn("Named file not rendered",
		logfields.Step(string(stage)),
		logfields.Dest(name),
		logfields.Error(err))
	st.items(stage, 0, 1)
	return NewWarnStageError(stage, err)
}
