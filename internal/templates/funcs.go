package templates

import (
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/sitebuilder/internal/markdown"
)

// Helpers carries the site values template functions need.
type Helpers struct {
	SiteURL string
	// Image resolves a numeric image id to its URL.
	Image func(id int) (string, bool)
}

// FuncMap returns the functions shared by HTML and text templates.
func (h Helpers) FuncMap() map[string]any {
	return map[string]any{
		"image": func(id int) (string, error) {
			if h.Image != nil {
				if u, ok := h.Image(id); ok {
					return u, nil
				}
			}
			return "", fmt.Errorf("unknown image id %d", id)
		},
		"absURL": h.AbsURL,
		"date": func(layout string, t time.Time) string {
			return t.Format(layout)
		},
		"rfc3339": func(t time.Time) string {
			return t.UTC().Format(time.RFC3339)
		},
		"join": func(sep string, items []string) string {
			return strings.Join(items, sep)
		},
		"xml": func(v any) string {
			return html.EscapeString(fmt.Sprint(v))
		},
		"excerpt": func(n int, v any) string {
			return markdown.Excerpt(fmt.Sprint(v), n)
		},
		"title": func(s string) string {
			return cases.Title(language.Und).String(s)
		},
		"anchor": func(s string) string {
			return url.PathEscape(strings.ToLower(s))
		},
	}
}

// AbsURL joins p onto the site URL.
func (h Helpers) AbsURL(p string) string {
	if strings.Contains(p, "://") {
		return p
	}
	base := strings.TrimRight(h.SiteURL, "/")
	return base + "/" + strings.TrimLeft(p, "/")
}
