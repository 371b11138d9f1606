package build

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// writeOutput writes data to dst, creating parent directories.
func writeOutput(dst string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return fsError(err, "create output directory", dst)
	}
	// #nosec G306 -- generated site files are meant to be world readable
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fsError(err, "write output", dst)
	}
	return nil
}

// copyFile copies src to dst and stamps dst with mtime.
func copyFile(src, dst string, mtime time.Time) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return fsError(err, "create output directory", dst)
	}
	// #nosec G304 -- src comes from the walked source roots
	in, err := os.Open(src)
	if err != nil {
		return fsError(err, "open source", src)
	}
	defer func() { _ = in.Close() }()

	// #nosec G304 -- dst is inside the build directory
	out, err := os.Create(dst)
	if err != nil {
		return fsError(err, "create output", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fsError(err, "copy", dst)
	}
	if err := out.Close(); err != nil {
		return fsError(err, "close output", dst)
	}
	return stamp(dst, mtime)
}

// stamp propagates a source modification time onto an output file.
func stamp(dst string, mtime time.Time) error {
	if mtime.IsZero() {
		return nil
	}
	if err := os.Chtimes(dst, mtime, mtime); err != nil {
		return fsError(err, "set modification time", dst)
	}
	return nil
}

func fsError(err error, msg, path string) error {
	return errors.WrapError(err, errors.CategoryFileSystem, msg).
		WithContext("path", path).Build()
}
