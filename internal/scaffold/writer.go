package scaffold

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// WriteNewFile writes content to relativePath under dir and returns the full path.
//
// The output path must stay inside dir, parent directories are created, and an
// existing file is never overwritten.
func WriteNewFile(dir, relativePath, content string) (string, error) {
	if dir == "" {
		return "", errors.ValidationError("target directory is required").Build()
	}
	if relativePath == "" {
		return "", errors.ValidationError("output path is required").Build()
	}

	cleanRel := filepath.Clean(relativePath)
	if filepath.IsAbs(cleanRel) || strings.HasPrefix(cleanRel, "..") {
		return "", errors.ValidationError("output path must be relative").
			WithContext("path", relativePath).Build()
	}

	fullPath := filepath.Join(dir, cleanRel)
	rel, err := filepath.Rel(dir, fullPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", errors.ValidationError("output path escapes target directory").
			WithContext("path", relativePath).Build()
	}

	if err = os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "create output directory").
			WithContext("path", fullPath).Build()
	}

	// #nosec G304 -- fullPath is validated to stay under dir.
	file, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if stderrors.Is(err, os.ErrExist) {
			return "", errors.WrapError(err, errors.CategoryValidation, "file already exists").
				UserAction().WithContext("path", fullPath).Build()
		}
		return "", errors.WrapError(err, errors.CategoryFileSystem, "create output file").
			WithContext("path", fullPath).Build()
	}
	defer func() {
		_ = file.Close()
	}()

	if _, err := file.WriteString(content); err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "write output file").
			WithContext("path", fullPath).Build()
	}

	return fullPath, nil
}
