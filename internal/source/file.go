package source

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/djherbis/times"
	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// destExt maps source extensions to output extensions. Others pass through.
var destExt = map[string]string{
	".md":       ".html",
	".markdown": ".html",
	".less":     ".css",
}

// fileOptions is shared by every File of one index.
type fileOptions struct {
	timeFormats  []string
	postLocation string
	defaultTags  []string
	logger       *slog.Logger
}

// File is one discovered source file.
type File struct {
	// Path is absolute.
	Path string
	// RelPath is slash-separated and relative to the file's root.
	RelPath string
	Role    Role
	// Ext is the lowercased extension including the dot.
	Ext string

	created  time.Time
	modified time.Time

	processed   atomic.Bool
	processedBy atomic.Pointer[string]

	opts *fileOptions

	docOnce sync.Once
	doc     *Document
	docErr  error

	// Prev and Next link posts in created order; nil at the boundaries and for non-posts.
	Prev *File
	Next *File
}

// Document is the parsed payload of a page or post.
type Document struct {
	FrontMatter FrontMatter
	// Header is the raw header text as it appeared in the file.
	Header string
	Body   string

	created time.Time
	updated time.Time
}

// Classify returns the role of the root containing path.
func Classify(paths config.Paths, p string) (Role, error) {
	switch {
	case config.Contains(paths.Assets, p):
		return RoleAsset, nil
	case config.Contains(paths.Pages, p):
		return RolePage, nil
	case config.Contains(paths.Posts, p):
		return RolePost, nil
	}
	return 0, errors.WrapError(ErrOutsideRoots, errors.CategoryConfig, "cannot classify file").
		Fatal().WithContext("path", p).Build()
}

// newFile stats p and records its filesystem times. root is the directory p was found under.
func newFile(root, p string, info os.FileInfo, role Role, opts *fileOptions) (*File, error) {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return nil, err
	}
	f := &File{
		Path:     p,
		RelPath:  filepath.ToSlash(rel),
		Role:     role,
		Ext:      strings.ToLower(filepath.Ext(p)),
		modified: info.ModTime(),
		opts:     opts,
	}
	f.created = creationTime(info)
	return f, nil
}

// creationTime prefers the birth time, then the change time, then the modification time.
func creationTime(info os.FileInfo) time.Time {
	ts := times.Get(info)
	switch {
	case ts.HasBirthTime():
		return ts.BirthTime()
	case ts.HasChangeTime():
		return ts.ChangeTime()
	default:
		return ts.ModTime()
	}
}

// Name returns the basename without extension.
func (f *File) Name() string {
	base := path.Base(f.RelPath)
	return strings.TrimSuffix(base, path.Ext(base))
}

// Base returns the basename with extension.
func (f *File) Base() string { return path.Base(f.RelPath) }

// ModTime returns the filesystem modification time.
func (f *File) ModTime() time.Time { return f.modified }

// Processed reports whether a step has emitted output for the file.
func (f *File) Processed() bool { return f.processed.Load() }

// ProcessedBy returns the step that marked the file, or "".
func (f *File) ProcessedBy() string {
	if s := f.processedBy.Load(); s != nil {
		return *s
	}
	return ""
}

// MarkProcessed sets the processed flag. It returns false if another step already did.
func (f *File) MarkProcessed(step string) bool {
	if !f.processed.CompareAndSwap(false, true) {
		return false
	}
	f.processedBy.Store(&step)
	return true
}

// Document reads and parses the file once. Assets have no document.
func (f *File) Document() (*Document, error) {
	if !f.Role.IsContent() {
		return nil, errors.InternalError("document requested for asset").WithContext("path", f.Path).Build()
	}
	f.docOnce.Do(f.loadDocument)
	return f.doc, f.docErr
}

func (f *File) loadDocument() {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		f.docErr = errors.WrapError(fmt.Errorf("%w: %w", ErrFileReadFailed, err), errors.CategoryContent, "read source").
			WithContext("path", f.Path).Build()
		return
	}
	fm, header, body := splitHeader(string(data))
	doc := &Document{FrontMatter: fm, Header: header, Body: body}

	if fm.Created != "" {
		doc.created = f.parseTime("created", fm.Created)
	}
	if fm.Updated != "" {
		doc.updated = f.parseTime("updated", fm.Updated)
	}
	f.doc = doc
}

// parseTime logs and returns the zero time when value matches no layout.
func (f *File) parseTime(key, value string) time.Time {
	t, err := ParseTime(value, f.opts.timeFormats)
	if err != nil {
		f.opts.logger.Warn("Invalid timestamp, using filesystem time",
			logfields.Path(f.Path),
			slog.String("key", key),
			slog.String("value", value),
			logfields.Error(err))
		return time.Time{}
	}
	return t
}

// ParseTime tries each layout in order; the first success wins.
// Layouts without a zone are interpreted in local time.
func ParseTime(value string, layouts []string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, value)
}

// FrontMatter returns the parsed header, empty for assets or unreadable files.
func (f *File) FrontMatter() FrontMatter {
	if !f.Role.IsContent() {
		return FrontMatter{}
	}
	doc, err := f.Document()
	if err != nil {
		return FrontMatter{}
	}
	return doc.FrontMatter
}

// Body returns the raw body text.
func (f *File) Body() string {
	if !f.Role.IsContent() {
		return ""
	}
	doc, err := f.Document()
	if err != nil {
		return ""
	}
	return doc.Body
}

// Title returns the explicit title, else the first level-1 heading, else "".
func (f *File) Title() string {
	if !f.Role.IsContent() {
		return ""
	}
	doc, err := f.Document()
	if err != nil {
		return ""
	}
	if doc.FrontMatter.Title != "" {
		return doc.FrontMatter.Title
	}
	return firstHeading(doc.Body)
}

func firstHeading(body string) string {
	for line := range strings.Lines(body) {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

// Created returns the front-matter created time when valid, else the filesystem creation time.
func (f *File) Created() time.Time {
	if f.Role.IsContent() {
		if doc, err := f.Document(); err == nil && !doc.created.IsZero() {
			return doc.created
		}
	}
	return f.created
}

// Updated returns the front-matter updated time when valid, else the modification time.
func (f *File) Updated() time.Time {
	if f.Role.IsContent() {
		if doc, err := f.Document(); err == nil && !doc.updated.IsZero() {
			return doc.updated
		}
	}
	return f.modified
}

// Tags returns the file's tags, or the default tags when the header has no tags key.
func (f *File) Tags() []string {
	if !f.Role.IsContent() {
		return nil
	}
	fm := f.FrontMatter()
	if fm.HasTags {
		return fm.Tags
	}
	return f.opts.defaultTags
}

// DestPath returns the slash-separated output path relative to the build root.
func (f *File) DestPath() string {
	ext := path.Ext(f.RelPath)
	out := ext
	if mapped, ok := destExt[strings.ToLower(ext)]; ok {
		out = mapped
	}
	if f.Role == RolePost && f.opts.postLocation != "" {
		return expandPostLocation(f.opts.postLocation, f.Created(), f.Name()) + out
	}
	return strings.TrimSuffix(f.RelPath, ext) + out
}

func expandPostLocation(pattern string, created time.Time, name string) string {
	r := strings.NewReplacer(
		"{year}", created.Format("2006"),
		"{month}", created.Format("01"),
		"{day}", created.Format("02"),
		"{name}", name,
	)
	return strings.TrimPrefix(path.Clean(r.Replace(pattern)), "/")
}

// URL returns the site-absolute URL of the output.
func (f *File) URL() string {
	return "/" + f.DestPath()
}

// Fingerprint returns a content fingerprint of header and body.
func (f *File) Fingerprint() string {
	if !f.Role.IsContent() {
		return ""
	}
	doc, err := f.Document()
	if err != nil {
		return ""
	}
	return mdfp.CalculateFingerprintFromParts(doc.Header, doc.Body)
}

// PrevURL, PrevTitle, NextURL and NextTitle are empty at the sequence boundaries.
func (f *File) PrevURL() string {
	if f.Prev == nil {
		return ""
	}
	return f.Prev.URL()
}

func (f *File) PrevTitle() string {
	if f.Prev == nil {
		return ""
	}
	return f.Prev.Title()
}

func (f *File) NextURL() string {
	if f.Next == nil {
		return ""
	}
	return f.Next.URL()
}

func (f *File) NextTitle() string {
	if f.Next == nil {
		return ""
	}
	return f.Next.Title()
}
