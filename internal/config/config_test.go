package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_AppliesDefaultsAndRoot(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "site:\n  title: Blog\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, dir, cfg.Root)
	require.Equal(t, "Blog", cfg.Site.Title)
	require.Equal(t, "default.html", cfg.DefaultTemplate)
	require.Equal(t, []string{"_", "."}, cfg.ExcludePrefixes)
	require.Equal(t, 20, cfg.FeedSize)

	p := cfg.Paths()
	require.Equal(t, filepath.Join(dir, "build"), p.Build)
	require.Equal(t, filepath.Join(dir, "pages"), p.Pages)
	require.Equal(t, filepath.Join(dir, "posts"), p.Posts)
	require.Equal(t, filepath.Join(dir, "assets"), p.Assets)
	require.Equal(t, filepath.Join(dir, "templates"), p.Templates)
	require.Empty(t, p.Images)
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SITEBUILDER_TEST_TITLE", "From Env")
	path := writeConfig(t, dir, "site:\n  title: ${SITEBUILDER_TEST_TITLE}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "From Env", cfg.Site.Title)
}

func TestLoad_DotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("SITEBUILDER_TEST_URL=https://dotenv.example\nSITEBUILDER_TEST_AUTHOR=dotenv\n"), 0o600))
	t.Setenv("SITEBUILDER_TEST_AUTHOR", "process")
	path := writeConfig(t, dir, "site:\n  url: ${SITEBUILDER_TEST_URL}\n  author: ${SITEBUILDER_TEST_AUTHOR}\n")
	t.Cleanup(func() { _ = os.Unsetenv("SITEBUILDER_TEST_URL") })

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://dotenv.example", cfg.Site.URL)
	require.Equal(t, "process", cfg.Site.Author)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))
	require.True(t, errors.IsFatal(err))
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "build_path: [unterminated\n")
	_, err := Load(path)
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"nested assets in pages", func(c *Config) { c.AssetsPath = "pages/static" }, true},
		{"same pages and posts", func(c *Config) { c.PostsPath = "./pages" }, true},
		{"build inside pages", func(c *Config) { c.BuildPath = "pages/out" }, true},
		{"build contains templates", func(c *Config) { c.TplPath = "build/tpl" }, true},
		{"sibling prefix is not nested", func(c *Config) { c.PostsPath = "pages-old" }, false},
		{"min_css without command", func(c *Config) { c.MinCSS = true }, true},
		{"min_css with command", func(c *Config) { c.MinCSS = true; c.CSSCommand = "csso {source} -o {dest}" }, false},
		{"known placeholders", func(c *Config) { c.PostLocation = "{year}/{month}/{day}/{name}" }, false},
		{"unknown placeholder", func(c *Config) { c.PostLocation = "{year}/{slug}" }, true},
		{"negative feed size", func(c *Config) { c.FeedSize = -1 }, true},
		{"bad rebuild interval", func(c *Config) { c.Serve.RebuildInterval = "soon" }, true},
		{"empty default template", func(c *Config) { c.DefaultTemplate = " " }, true},
		{"negative push retries", func(c *Config) { c.Deploy.Git.MaxRetries = -1 }, true},
		{"unknown backoff", func(c *Config) { c.Deploy.Git.RetryBackoff = "random" }, true},
		{"backoff ignores case", func(c *Config) { c.Deploy.Git.RetryBackoff = "Exponential" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Root = t.TempDir()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				require.True(t, errors.HasCategory(err, errors.CategoryConfig))
				require.True(t, errors.IsFatal(err))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestResolve(t *testing.T) {
	cfg := &Config{Root: "/srv/site"}
	require.Equal(t, "/srv/site/pages", cfg.Resolve("pages"))
	require.Equal(t, "/abs/dir", cfg.Resolve("/abs/dir/"))
	require.Empty(t, cfg.Resolve(""))
}

func TestRebuildEvery(t *testing.T) {
	cfg := Default()
	d, err := cfg.RebuildEvery()
	require.NoError(t, err)
	require.Zero(t, d)

	cfg.Serve.RebuildInterval = "90s"
	d, err = cfg.RebuildEvery()
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, d)
	require.Equal(t, time.Second, cfg.BrowserWait())
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)

	require.NoError(t, Init(path, false))
	err := Init(path, false)
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryValidation))
	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "My Site", cfg.Site.Title)
	require.Equal(t, "{year}/{month}/{name}", cfg.PostLocation)
	require.True(t, cfg.LatestPostAtRoot)
}

func TestGitRetryDelays(t *testing.T) {
	cfg := Default()
	initial, maxDelay := cfg.Deploy.Git.RetryDelays()
	require.Equal(t, time.Second, initial)
	require.Equal(t, 30*time.Second, maxDelay)
	require.Equal(t, RetryBackoffLinear, cfg.Deploy.Git.RetryBackoff)

	cfg.Deploy.Git.RetryDelay = "later"
	initial, _ = cfg.Deploy.Git.RetryDelays()
	require.Zero(t, initial)
}
