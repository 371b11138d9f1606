package source

import "strings"

// Predicate selects files in Index.Query.
type Predicate func(*File) bool

// ByRole matches files of the given role.
func ByRole(r Role) Predicate {
	return func(f *File) bool { return f.Role == r }
}

// ByExt matches any of the given extensions, case-insensitively. Include the dot.
func ByExt(exts ...string) Predicate {
	return func(f *File) bool {
		for _, e := range exts {
			if strings.EqualFold(f.Ext, e) {
				return true
			}
		}
		return false
	}
}

// ByBasename matches any of the given basenames, including extension.
func ByBasename(names ...string) Predicate {
	return func(f *File) bool {
		base := f.Base()
		for _, n := range names {
			if base == n {
				return true
			}
		}
		return false
	}
}

// Processed matches on the processed flag.
func Processed(want bool) Predicate {
	return func(f *File) bool { return f.Processed() == want }
}

// ByDestPath matches files whose output path equals dest.
func ByDestPath(dest string) Predicate {
	dest = strings.TrimPrefix(dest, "/")
	return func(f *File) bool { return f.DestPath() == dest }
}

// Not negates p.
func Not(p Predicate) Predicate {
	return func(f *File) bool { return !p(f) }
}

func matchAll(f *File, preds []Predicate) bool {
	for _, p := range preds {
		if !p(f) {
			return false
		}
	}
	return true
}
