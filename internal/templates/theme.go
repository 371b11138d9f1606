package templates

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

//go:embed theme
var themeFS embed.FS

// DefaultTheme returns the embedded default templates rooted at the theme directory.
func DefaultTheme() fs.FS {
	sub, err := fs.Sub(themeFS, "theme")
	if err != nil {
		panic(err)
	}
	return sub
}

// WriteDefaultTheme copies the embedded templates into dir. Existing files are
// kept unless overwrite is set. It returns the names written.
func WriteDefaultTheme(dir string, overwrite bool) ([]string, error) {
	theme := DefaultTheme()
	var written []string
	err := fs.WalkDir(theme, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		dest := filepath.Join(dir, filepath.FromSlash(p))
		if _, statErr := os.Stat(dest); statErr == nil && !overwrite {
			return nil
		}
		data, err := fs.ReadFile(theme, p)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return err
		}
		written = append(written, path.Clean(p))
		return nil
	})
	if err != nil {
		return written, errors.WrapError(err, errors.CategoryFileSystem, "write default theme").
			Fatal().WithContext("path", dir).Build()
	}
	return written, nil
}
