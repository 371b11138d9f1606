package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// DefaultFile is the configuration file looked up in the site root.
const DefaultFile = "site.yaml"

// Config represents the site configuration.
type Config struct {
	// Root is the directory holding the configuration file. Relative paths resolve against it.
	Root string `yaml:"-"`

	BuildPath  string `yaml:"build_path"`
	PagesPath  string `yaml:"pages_path"`
	PostsPath  string `yaml:"posts_path"`
	AssetsPath string `yaml:"assets_path"`
	TplPath    string `yaml:"tpl_path"`
	ImagesPath string `yaml:"images_path"`
	ImagesDest string `yaml:"images_dest"`

	MinJS       bool   `yaml:"min_js"`
	JSCommand   string `yaml:"js_command,omitempty"`
	MinCSS      bool   `yaml:"min_css"`
	CSSCommand  string `yaml:"css_command,omitempty"`
	MinLess     bool   `yaml:"min_less"`
	LessCommand string `yaml:"less_command,omitempty"`

	PostLocation     string   `yaml:"post_location,omitempty"`
	TimeFormats      []string `yaml:"time_formats"`
	DefaultTags      []string `yaml:"default_tags,omitempty"`
	DefaultTemplate  string   `yaml:"default_template"`
	ExcludePrefixes  []string `yaml:"exclude_prefixes"`
	LatestPostAtRoot bool     `yaml:"latest_post_at_root"`
	RootIndex        string   `yaml:"root_index"`

	ArchivePath string `yaml:"archive_path"`
	TagsPath    string `yaml:"tags_path"`
	AtomPath    string `yaml:"atom_path"`
	SitemapPath string `yaml:"sitemap_path"`
	FeedSize    int    `yaml:"feed_size"`

	// Workers bounds concurrent items within a single asset step.
	Workers int `yaml:"workers"`

	Site    SiteConfig    `yaml:"site"`
	Deploy  DeployConfig  `yaml:"deploy,omitempty"`
	Serve   ServeConfig   `yaml:"serve"`
	Metrics MetricsConfig `yaml:"metrics"`
	History HistoryConfig `yaml:"history"`
	Notify  NotifyConfig  `yaml:"notify,omitempty"`
}

// SiteConfig holds the variables shared by every rendered template.
type SiteConfig struct {
	Title       string            `yaml:"title"`
	URL         string            `yaml:"url"`
	Author      string            `yaml:"author,omitempty"`
	Description string            `yaml:"description,omitempty"`
	Language    string            `yaml:"language,omitempty"`
	Vars        map[string]string `yaml:"vars,omitempty"`
}

// DeployConfig configures the deploy and publish commands.
type DeployConfig struct {
	// Command is run by `deploy` with {source} set to the build directory.
	Command string    `yaml:"command,omitempty"`
	Git     GitConfig `yaml:"git,omitempty"`
}

// GitConfig configures `publish`, which commits the build directory to a git remote.
type GitConfig struct {
	Remote      string `yaml:"remote,omitempty"`
	Branch      string `yaml:"branch,omitempty"`
	Token       string `yaml:"token,omitempty"`
	KeyPath     string `yaml:"key_path,omitempty"`
	AuthorName  string `yaml:"author_name,omitempty"`
	AuthorEmail string `yaml:"author_email,omitempty"`
	Message     string `yaml:"message,omitempty"`

	// MaxRetries is the number of push retries after the first failure.
	MaxRetries    int              `yaml:"max_retries,omitempty"`
	RetryBackoff  RetryBackoffMode `yaml:"retry_backoff,omitempty"`
	RetryDelay    string           `yaml:"retry_delay,omitempty"`
	RetryMaxDelay string           `yaml:"retry_max_delay,omitempty"`
}

// ServeConfig configures the `run` preview server.
type ServeConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	OpenBrowser     bool   `yaml:"open_browser"`
	BrowserDelay    string `yaml:"browser_delay,omitempty"`
	RebuildInterval string `yaml:"rebuild_interval,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint exposed by `run`.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// HistoryConfig configures the sqlite build history store.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
	Keep    int    `yaml:"keep,omitempty"`
}

// NotifyConfig configures NATS build notifications. An empty URL disables them.
type NotifyConfig struct {
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// Load reads, expands, defaults and validates the configuration at path.
// A .env file next to the configuration is loaded first; existing variables win.
func Load(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "resolve config path").
			Fatal().WithContext("path", path).Build()
	}
	root := filepath.Dir(abs)

	if err := loadEnvFile(root); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError("configuration file not found").
				WithContext("path", abs).Build()
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "read configuration").
			Fatal().WithContext("path", abs).Build()
	}

	cfg, err := Parse([]byte(os.ExpandEnv(string(data))))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "parse configuration").
			Fatal().WithContext("path", abs).Build()
	}
	cfg.Root = root

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML and applies defaults. It does not validate.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// RebuildEvery returns the periodic rebuild interval for `run`, zero when disabled.
func (c *Config) RebuildEvery() (time.Duration, error) {
	if c.Serve.RebuildInterval == "" {
		return 0, nil
	}
	return time.ParseDuration(c.Serve.RebuildInterval)
}

// BrowserWait returns the delay before opening a browser in `run`.
func (c *Config) BrowserWait() time.Duration {
	d, err := time.ParseDuration(c.Serve.BrowserDelay)
	if err != nil || d < 0 {
		return time.Second
	}
	return d
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ValidationError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).Build()
	}

	example := Default()
	example.Site = SiteConfig{
		Title:       "My Site",
		URL:         "https://example.com",
		Author:      "Jane Doe",
		Description: "Notes and articles",
		Language:    "en",
	}
	example.PostLocation = "{year}/{month}/{name}"
	example.LatestPostAtRoot = true

	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write configuration").
			Fatal().WithContext("path", configPath).Build()
	}
	return nil
}
