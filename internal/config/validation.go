package config

import (
	"path/filepath"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

var placeholderPattern = regexp.MustCompile(`\{([^{}]*)\}`)

var postPlaceholders = map[string]bool{"year": true, "month": true, "day": true, "name": true}

// Validate checks the configuration for missing keys and conflicting roots.
// Every failure is a fatal configuration error.
func (c *Config) Validate() error {
	required := []struct{ key, value string }{
		{"build_path", c.BuildPath},
		{"pages_path", c.PagesPath},
		{"posts_path", c.PostsPath},
		{"assets_path", c.AssetsPath},
		{"tpl_path", c.TplPath},
		{"default_template", c.DefaultTemplate},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return errors.ConfigError("missing configuration key").WithContext("key", r.key).Build()
		}
	}

	commands := []struct {
		key     string
		enabled bool
		command string
	}{
		{"js_command", c.MinJS, c.JSCommand},
		{"css_command", c.MinCSS, c.CSSCommand},
		{"less_command", c.MinLess, c.LessCommand},
	}
	for _, cmd := range commands {
		if cmd.enabled && strings.TrimSpace(cmd.command) == "" {
			return errors.ConfigError("command enabled without a command template").
				WithContext("key", cmd.key).Build()
		}
	}

	if c.PostLocation != "" {
		for _, m := range placeholderPattern.FindAllStringSubmatch(c.PostLocation, -1) {
			if !postPlaceholders[m[1]] {
				return errors.ConfigError("unknown post_location placeholder").
					WithContext("key", "post_location").
					WithContext("placeholder", m[0]).Build()
			}
		}
	}

	if c.FeedSize < 0 {
		return errors.ConfigError("feed_size must not be negative").WithContext("key", "feed_size").Build()
	}
	if c.Serve.Port < 0 || c.Serve.Port > 65535 {
		return errors.ConfigError("serve.port out of range").WithContext("key", "serve.port").Build()
	}
	if c.Deploy.Git.MaxRetries < 0 {
		return errors.ConfigError("deploy.git.max_retries must not be negative").
			WithContext("key", "deploy.git.max_retries").Build()
	}
	if !c.Deploy.Git.RetryBackoff.Valid() {
		return errors.ConfigError("unknown retry backoff mode").
			WithContext("key", "deploy.git.retry_backoff").
			WithContext("value", string(c.Deploy.Git.RetryBackoff)).Build()
	}
	if _, err := c.RebuildEvery(); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "invalid serve.rebuild_interval").
			Fatal().WithContext("key", "serve.rebuild_interval").Build()
	}

	return c.Paths().Validate()
}

// Validate rejects source roots that contain one another and a build
// directory that overlaps any root, since the build directory is wiped first.
func (p Paths) Validate() error {
	sources := []struct{ key, path string }{
		{"assets_path", p.Assets},
		{"pages_path", p.Pages},
		{"posts_path", p.Posts},
	}
	for i := range sources {
		for j := i + 1; j < len(sources); j++ {
			if overlaps(sources[i].path, sources[j].path) {
				return errors.ConfigError("source roots overlap").
					WithContext("roots", sources[i].key+","+sources[j].key).
					WithContext("path", sources[i].path).Build()
			}
		}
	}

	others := append(sources,
		struct{ key, path string }{"tpl_path", p.Templates},
		struct{ key, path string }{"images_path", p.Images},
	)
	for _, o := range others {
		if o.path == "" {
			continue
		}
		if overlaps(p.Build, o.path) {
			return errors.ConfigError("build_path overlaps a source root").
				WithContext("roots", "build_path,"+o.key).
				WithContext("path", p.Build).Build()
		}
	}
	return nil
}

// overlaps reports whether a and b are the same directory or one contains the other.
func overlaps(a, b string) bool {
	a, b = canonical(a), canonical(b)
	return within(a, b) || within(b, a)
}

// within reports whether child is parent or lies below it.
func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// canonical resolves symlinks when the path exists so aliased roots are detected.
func canonical(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	return filepath.Clean(p)
}
