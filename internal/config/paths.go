package config

import "path/filepath"

// Paths holds the absolute directories of every configured root.
type Paths struct {
	Root      string
	Build     string
	Pages     string
	Posts     string
	Assets    string
	Templates string
	// Images is empty when no images root is configured.
	Images string
}

// Paths resolves the configured directories against the site root.
func (c *Config) Paths() Paths {
	return Paths{
		Root:      c.Root,
		Build:     c.Resolve(c.BuildPath),
		Pages:     c.Resolve(c.PagesPath),
		Posts:     c.Resolve(c.PostsPath),
		Assets:    c.Resolve(c.AssetsPath),
		Templates: c.Resolve(c.TplPath),
		Images:    c.Resolve(c.ImagesPath),
	}
}

// Resolve makes p absolute relative to the site root. Empty stays empty.
func (c *Config) Resolve(p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.Root, p)
}

// SourceRoots returns the content roots in walk order.
func (p Paths) SourceRoots() []string {
	return []string{p.Assets, p.Pages, p.Posts}
}

// Contains reports whether path is root or lies below it.
func Contains(root, path string) bool {
	return root != "" && within(filepath.Clean(root), filepath.Clean(path))
}
