package source

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// imageName matches the numeric-id naming convention, e.g. 12-sunset.jpg.
var imageName = regexp.MustCompile(`(?i)^(\d+)[-_].+\.(png|jpe?g|gif|webp|svg)$`)

// Image is a registered image from the images root.
type Image struct {
	ID int
	// Path is absolute.
	Path string
	// DestPath is slash-separated and relative to the build root.
	DestPath string
}

// URL returns the site-absolute URL of the copied image.
func (i *Image) URL() string { return "/" + i.DestPath }

// ImageRegistry holds images by numeric id.
type ImageRegistry struct {
	byID map[int]*Image
}

// Get returns the image with id.
func (r *ImageRegistry) Get(id int) (*Image, bool) {
	if r == nil {
		return nil, false
	}
	img, ok := r.byID[id]
	return img, ok
}

// All returns every image ordered by id.
func (r *ImageRegistry) All() []*Image {
	if r == nil {
		return nil
	}
	out := make([]*Image, 0, len(r.byID))
	for _, img := range r.byID {
		out = append(out, img)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered images.
func (r *ImageRegistry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byID)
}

// scanImages registers every conventionally named file under root. Duplicate ids
// keep the first file in walk order; the later one is reported as an item error.
func scanImages(root, dest string, logger *slog.Logger) (*ImageRegistry, []error, error) {
	reg := &ImageRegistry{byID: make(map[int]*Image)}
	var issues []error

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		m := imageName.FindStringSubmatch(d.Name())
		if m == nil {
			logger.Debug("Ignoring file without image id", logfields.Path(p))
			return nil
		}
		id, convErr := strconv.Atoi(m[1])
		if convErr != nil {
			return nil
		}
		if existing, dup := reg.byID[id]; dup {
			issue := errors.WrapError(fmt.Errorf("%w: %d", ErrDuplicateImageID, id), errors.CategoryContent, "duplicate image id").
				WithContext("path", p).
				WithContext("existing", existing.Path).Build()
			logger.Error("Skipping image", logfields.Path(p), logfields.Error(issue))
			issues = append(issues, issue)
			return nil
		}
		reg.byID[id] = &Image{ID: id, Path: p, DestPath: path.Join(dest, d.Name())}
		return nil
	})
	if err != nil {
		return nil, issues, fmt.Errorf("%w: %s: %w", ErrRootWalkFailed, root, err)
	}
	return reg, issues, nil
}
