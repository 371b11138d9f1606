package config

import "time"

// Default time layouts accepted for `created` and `updated` front matter.
var defaultTimeFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
	"02.01.2006",
}

// Default returns a configuration with every default applied and Root unset.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields. Explicit values are left alone.
func (c *Config) ApplyDefaults() {
	setString(&c.BuildPath, "build")
	setString(&c.PagesPath, "pages")
	setString(&c.PostsPath, "posts")
	setString(&c.AssetsPath, "assets")
	setString(&c.TplPath, "templates")
	setString(&c.ImagesDest, "images")
	setString(&c.DefaultTemplate, "default.html")
	setString(&c.RootIndex, "index.html")
	setString(&c.ArchivePath, "archive.html")
	setString(&c.TagsPath, "tags.html")
	setString(&c.AtomPath, "atom.xml")
	setString(&c.SitemapPath, "sitemap.xml")

	if len(c.TimeFormats) == 0 {
		c.TimeFormats = append([]string(nil), defaultTimeFormats...)
	}
	if c.ExcludePrefixes == nil {
		c.ExcludePrefixes = []string{"_", "."}
	}
	if c.FeedSize == 0 {
		c.FeedSize = 20
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}

	setString(&c.Site.Title, "Untitled")
	setString(&c.Deploy.Git.Branch, "main")
	setString(&c.Deploy.Git.AuthorName, "sitebuilder")
	setString(&c.Deploy.Git.AuthorEmail, "sitebuilder@localhost")
	setString(&c.Deploy.Git.Message, "Publish site")
	if c.Deploy.Git.RetryBackoff == "" {
		c.Deploy.Git.RetryBackoff = RetryBackoffLinear
	}
	setString(&c.Deploy.Git.RetryDelay, "1s")
	setString(&c.Deploy.Git.RetryMaxDelay, "30s")

	setString(&c.Serve.Host, "127.0.0.1")
	if c.Serve.Port == 0 {
		c.Serve.Port = 8000
	}
	setString(&c.Serve.BrowserDelay, "1s")

	setString(&c.Metrics.Path, "/metrics")
	setString(&c.History.Path, ".sitebuilder/history.db")
	if c.History.Keep == 0 {
		c.History.Keep = 50
	}
	setString(&c.Notify.Subject, "sitebuilder.events")
}

func setString(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
