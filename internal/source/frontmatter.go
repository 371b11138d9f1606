package source

import (
	"regexp"
	"strings"
	"unicode"

	"git.home.luguber.info/inful/sitebuilder/internal/util/sets"
)

// headerLine matches `key: value` and `key=value` header lines.
var headerLine = regexp.MustCompile(`^\s*([A-Za-z0-9_][A-Za-z0-9_.-]*)\s*[:=]\s*(.*?)\s*$`)

// FrontMatter is the typed header of a page or post.
type FrontMatter struct {
	Title    string
	Template string
	Author   string
	// Created and Updated hold the raw values; File parses them.
	Created string
	Updated string
	Tags    []string
	HasTags bool
	// Extra holds unrecognized keys, passed to templates verbatim.
	Extra map[string]string
	// Keys lists every header key in first-seen order.
	Keys []string
}

// Get returns the raw value for any key, recognized or not.
func (fm FrontMatter) Get(key string) (string, bool) {
	switch strings.ToLower(key) {
	case "title":
		return fm.Title, fm.has("title")
	case "template":
		return fm.Template, fm.has("template")
	case "author":
		return fm.Author, fm.has("author")
	case "created":
		return fm.Created, fm.has("created")
	case "updated":
		return fm.Updated, fm.has("updated")
	case "tags":
		return strings.Join(fm.Tags, ", "), fm.HasTags
	}
	v, ok := fm.Extra[key]
	return v, ok
}

// Len returns the number of distinct header keys.
func (fm FrontMatter) Len() int { return len(fm.Keys) }

func (fm FrontMatter) has(key string) bool {
	for _, k := range fm.Keys {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}

func (fm *FrontMatter) set(key, value string) {
	if !fm.has(key) {
		fm.Keys = append(fm.Keys, key)
	}
	switch strings.ToLower(key) {
	case "title":
		fm.Title = value
	case "template":
		fm.Template = value
	case "author":
		fm.Author = value
	case "created":
		fm.Created = value
	case "updated":
		fm.Updated = value
	case "tags":
		fm.Tags = SplitTags(value)
		fm.HasTags = true
	default:
		if fm.Extra == nil {
			fm.Extra = make(map[string]string)
		}
		fm.Extra[key] = value
	}
}

// ParseFrontMatter splits text into its header and body. Header lines are read
// from the top until the first line that is not `key: value` or `key=value`;
// that line and everything after it is the body.
func ParseFrontMatter(text string) (FrontMatter, string) {
	fm, _, body := splitHeader(text)
	return fm, body
}

func splitHeader(text string) (FrontMatter, string, string) {
	var fm FrontMatter
	rest := text
	for rest != "" {
		line, tail, found := strings.Cut(rest, "\n")
		m := headerLine.FindStringSubmatch(line)
		if m == nil {
			break
		}
		fm.set(m[1], m[2])
		if !found {
			rest = ""
			break
		}
		rest = tail
	}
	return fm, text[:len(text)-len(rest)], rest
}

// SplitTags splits on commas and whitespace, drops empties and repeats.
// Case is preserved, so "Go" and "go" are different tags.
func SplitTags(value string) []string {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	return sets.Unique(fields)
}
