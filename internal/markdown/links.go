package markdown

import "strings"

type LinkKind string

const (
	LinkKindInline LinkKind = "inline"
	LinkKindImage  LinkKind = "image"
	LinkKindAuto   LinkKind = "auto"
)

// Link is a link-like construct found in a body.
type Link struct {
	Kind        LinkKind
	Destination string
}

// IsSiteRelative reports whether the destination is a path on the same site.
func (l Link) IsSiteRelative() bool {
	return strings.HasPrefix(l.Destination, "/") && !strings.HasPrefix(l.Destination, "//")
}

// Path returns the destination without query or fragment.
func (l Link) Path() string {
	p := l.Destination
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return p
}
