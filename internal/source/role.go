package source

import "fmt"

// Role is the closed set of source kinds. Steps switch on it exhaustively.
type Role int

const (
	RoleAsset Role = iota
	RolePage
	RolePost
)

func (r Role) String() string {
	switch r {
	case RoleAsset:
		return "asset"
	case RolePage:
		return "page"
	case RolePost:
		return "post"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// IsContent reports whether files of this role carry front matter and a body.
func (r Role) IsContent() bool {
	return r == RolePage || r == RolePost
}
