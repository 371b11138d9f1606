package source

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Options configures Build.
type Options struct {
	Paths           config.Paths
	ExcludePrefixes []string
	TimeFormats     []string
	PostLocation    string
	DefaultTags     []string
	ImagesDest      string
	Logger          *slog.Logger
}

// OptionsFromConfig derives index options from a loaded configuration.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	return Options{
		Paths:           cfg.Paths(),
		ExcludePrefixes: cfg.ExcludePrefixes,
		TimeFormats:     cfg.TimeFormats,
		PostLocation:    cfg.PostLocation,
		DefaultTags:     cfg.DefaultTags,
		ImagesDest:      cfg.ImagesDest,
		Logger:          logger,
	}
}

// Index holds every discovered file of one build. It is immutable after Build
// apart from the per-file processed flags.
type Index struct {
	files  []*File
	assets []*File
	pages  []*File
	posts  []*File
	tags   TagIndex
	images *ImageRegistry
	issues []error
}

// Build walks the asset, page and post roots once and derives the tag index,
// the post sequence and the image registry. Missing roots are skipped.
func Build(ctx context.Context, opts Options) (*Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := opts.Paths.Validate(); err != nil {
		return nil, err
	}

	fopts := &fileOptions{
		timeFormats:  opts.TimeFormats,
		postLocation: opts.PostLocation,
		defaultTags:  opts.DefaultTags,
		logger:       logger,
	}
	idx := &Index{}

	for _, root := range opts.Paths.SourceRoots() {
		files, err := walkRoot(ctx, root, opts, fopts, logger)
		if err != nil {
			return nil, err
		}
		idx.files = append(idx.files, files...)
	}

	for _, f := range idx.files {
		switch f.Role {
		case RoleAsset:
			idx.assets = append(idx.assets, f)
		case RolePage, RolePost:
			if _, err := f.Document(); err != nil {
				logger.Error("Skipping unreadable source", logfields.Path(f.Path), logfields.Error(err))
				idx.issues = append(idx.issues, err)
				continue
			}
			if f.Role == RolePage {
				idx.pages = append(idx.pages, f)
			} else {
				idx.posts = append(idx.posts, f)
			}
		}
	}
	if len(idx.issues) > 0 {
		idx.files = slicesWithout(idx.files, idx.assets, idx.pages, idx.posts)
	}

	linkPosts(idx.posts)
	idx.tags = buildTagIndex(append(append([]*File(nil), idx.pages...), idx.posts...))

	if opts.Paths.Images != "" {
		if info, err := os.Stat(opts.Paths.Images); err == nil && info.IsDir() {
			reg, issues, err := scanImages(opts.Paths.Images, opts.ImagesDest, logger)
			if err != nil {
				return nil, errors.WrapError(err, errors.CategoryFileSystem, "scan images").
					Fatal().WithContext("path", opts.Paths.Images).Build()
			}
			idx.images = reg
			idx.issues = append(idx.issues, issues...)
		} else {
			logger.Debug("Images root not found", logfields.Path(opts.Paths.Images))
		}
	}

	logger.Info("Site index built",
		slog.Int("assets", len(idx.assets)),
		slog.Int("pages", len(idx.pages)),
		slog.Int("posts", len(idx.posts)),
		slog.Int("tags", len(idx.tags)),
		slog.Int("images", idx.images.Len()))
	return idx, nil
}

func walkRoot(ctx context.Context, root string, opts Options, fopts *fileOptions, logger *slog.Logger) ([]*File, error) {
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		logger.Debug("Source root not found", logfields.Path(root))
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "stat source root").
			Fatal().WithContext("path", root).Build()
	}
	if !info.IsDir() {
		return nil, errors.ConfigError("source root is not a directory").WithContext("path", root).Build()
	}

	var files []*File
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if p != root && excluded(d.Name(), opts.ExcludePrefixes) {
				return filepath.SkipDir
			}
			return nil
		}
		fi, err := os.Stat(p)
		if err != nil {
			return err
		}
		if !fi.Mode().IsRegular() {
			return nil
		}

		role, err := Classify(opts.Paths, p)
		if err != nil {
			return err
		}
		f, err := newFile(root, p, fi, role, fopts)
		if err != nil {
			return err
		}
		files = append(files, f)
		logger.Debug("Discovered file", logfields.Path(f.RelPath), logfields.Role(role.String()))
		return nil
	})
	if err != nil {
		if errors.IsClassified(err) || stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, errors.WrapError(fmt.Errorf("%w: %w", ErrRootWalkFailed, err), errors.CategoryFileSystem, "walk source root").
			Fatal().WithContext("path", root).Build()
	}
	return files, nil
}

func excluded(name string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// linkPosts sorts posts by creation time and links neighbours. Ties keep path order.
func linkPosts(posts []*File) {
	sort.SliceStable(posts, func(i, j int) bool {
		ci, cj := posts[i].Created(), posts[j].Created()
		if ci.Equal(cj) {
			return posts[i].RelPath < posts[j].RelPath
		}
		return ci.Before(cj)
	})
	for i, p := range posts {
		p.Prev, p.Next = nil, nil
		if i > 0 {
			p.Prev = posts[i-1]
		}
		if i < len(posts)-1 {
			p.Next = posts[i+1]
		}
	}
}

// slicesWithout keeps only files present in one of the kept partitions, preserving order.
func slicesWithout(all []*File, kept ...[]*File) []*File {
	keep := make(map[*File]bool)
	for _, part := range kept {
		for _, f := range part {
			keep[f] = true
		}
	}
	out := all[:0]
	for _, f := range all {
		if keep[f] {
			out = append(out, f)
		}
	}
	return out
}

// Query returns files matching every predicate, in discovery order.
func (idx *Index) Query(preds ...Predicate) []*File {
	var out []*File
	for _, f := range idx.files {
		if matchAll(f, preds) {
			out = append(out, f)
		}
	}
	return out
}

// Files returns every file in discovery order.
func (idx *Index) Files() []*File { return idx.files }

// Assets returns asset files in discovery order.
func (idx *Index) Assets() []*File { return idx.assets }

// Pages returns page files in discovery order.
func (idx *Index) Pages() []*File { return idx.pages }

// Posts returns posts in created order.
func (idx *Index) Posts() []*File { return idx.posts }

// Latest returns the chronologically last post, or nil.
func (idx *Index) Latest() *File {
	if len(idx.posts) == 0 {
		return nil
	}
	return idx.posts[len(idx.posts)-1]
}

// Tags returns the tag index.
func (idx *Index) Tags() TagIndex { return idx.tags }

// Images returns the image registry, or nil when no images root exists.
func (idx *Index) Images() *ImageRegistry { return idx.images }

// Issues returns the item-level problems found while building the index.
func (idx *Index) Issues() []error { return idx.issues }
