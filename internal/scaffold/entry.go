package scaffold

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// EntryOptions customizes a new page or post.
type EntryOptions struct {
	Title    string
	Tags     []string
	Template string
	Now      time.Time
}

// NewPage creates a page source named after name in the pages root.
func NewPage(cfg *config.Config, name string, opts EntryOptions) (string, error) {
	return newEntry(cfg.Paths().Pages, name, cfg.TimeFormats, opts)
}

// NewPost creates a post source named after name in the posts root.
func NewPost(cfg *config.Config, name string, opts EntryOptions) (string, error) {
	return newEntry(cfg.Paths().Posts, name, cfg.TimeFormats, opts)
}

func newEntry(dir, name string, layouts []string, opts EntryOptions) (string, error) {
	slug := Slug(name)
	if slug == "" {
		return "", errors.ValidationError("name must contain letters or digits").
			WithContext("name", name).Build()
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Title == "" {
		opts.Title = TitleFromName(name)
	}
	return WriteNewFile(dir, slug+".md", Header(opts, layouts)+"\n# "+opts.Title+"\n\n")
}

// Header renders the front-matter block of a new entry. The created stamp uses
// the first configured time layout.
func Header(opts EntryOptions, layouts []string) string {
	layout := "2006-01-02 15:04"
	if len(layouts) > 0 {
		layout = layouts[0]
	}
	created := opts.Now.Format(layout)

	var b strings.Builder
	b.WriteString("title: " + opts.Title + "\n")
	b.WriteString("created: " + created + "\n")
	b.WriteString("uid: " + uuid.NewString() + "\n")
	if len(opts.Tags) > 0 {
		b.WriteString("tags: " + strings.Join(opts.Tags, ", ") + "\n")
	}
	if opts.Template != "" {
		b.WriteString("template: " + opts.Template + "\n")
	}
	return b.String()
}

// TitleFromName turns "my-first_post" into "My First Post".
func TitleFromName(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_' || unicode.IsSpace(r)
	})
	return cases.Title(language.English).String(strings.Join(words, " "))
}

// Slug lowercases name, strips accents and joins alphanumeric runs with dashes.
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range norm.NFD.String(name) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(unicode.ToLower(r))
		default:
			dash = true
		}
	}
	return b.String()
}
