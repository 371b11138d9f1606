package scaffold

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/source"
)

func TestWriteNewFile(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteNewFile(dir, "notes/first.md", "hello")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "notes", "first.md"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))

	_, err = WriteNewFile(dir, "notes/first.md", "again")
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryValidation))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data), "existing file must not be overwritten")

	for _, bad := range []string{"", "../escape.md", "/abs.md"} {
		_, err = WriteNewFile(dir, bad, "x")
		require.Error(t, err, bad)
	}
}

func TestSlugAndTitle(t *testing.T) {
	tests := []struct {
		name, slug, title string
	}{
		{"my-first_post", "my-first-post", "My First Post"},
		{"Crème Brûlée", "creme-brulee", "Crème Brûlée"},
		{"  Go 1.24 release  ", "go-1-24-release", "Go 1.24 Release"},
		{"!!!", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.slug, Slug(tt.name))
			require.Equal(t, tt.title, TitleFromName(strings.Trim(tt.name, "!")))
		})
	}
}

func TestNewPostHeaderParses(t *testing.T) {
	cfg := config.Default()
	cfg.Root = t.TempDir()
	now := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

	path, err := NewPost(cfg, "hello world", EntryOptions{Tags: []string{"go", "web"}, Template: "post.html", Now: now})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(cfg.Root, "posts", "hello-world.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	fm, body := source.ParseFrontMatter(string(data))
	require.Equal(t, "Hello World", fm.Title)
	require.Equal(t, "post.html", fm.Template)
	require.Equal(t, []string{"go", "web"}, fm.Tags)
	require.Contains(t, body, "# Hello World")

	created, err := source.ParseTime(fm.Created, cfg.TimeFormats)
	require.NoError(t, err)
	require.Equal(t, now.Format(cfg.TimeFormats[0]), created.Format(cfg.TimeFormats[0]))
	require.Len(t, fm.Extra["uid"], 36)

	_, err = NewPost(cfg, "hello world", EntryOptions{Now: now})
	require.Error(t, err)
}

func TestNewPageRejectsEmptyName(t *testing.T) {
	cfg := config.Default()
	cfg.Root = t.TempDir()
	_, err := NewPage(cfg, "---", EntryOptions{})
	require.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestInitSite(t *testing.T) {
	root := filepath.Join(t.TempDir(), "site")

	res, err := InitSite(root, InitOptions{Git: true})
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(root, config.DefaultFile))
	require.DirExists(t, filepath.Join(root, "posts"))
	require.DirExists(t, filepath.Join(root, "assets"))
	require.FileExists(t, filepath.Join(root, "templates", "default.html"))
	require.FileExists(t, filepath.Join(root, "pages", "about.md"))
	require.FileExists(t, filepath.Join(root, ".gitignore"))
	require.DirExists(t, filepath.Join(root, ".git"))
	require.True(t, res.Repo)
	require.Contains(t, res.Templates, "default.html")

	cfg, err := config.Load(res.Config)
	require.NoError(t, err)
	require.Equal(t, root, cfg.Root)

	_, err = InitSite(root, InitOptions{})
	require.Error(t, err, "existing configuration needs --force")

	res, err = InitSite(root, InitOptions{Force: true, Git: true})
	require.NoError(t, err)
	require.False(t, res.Repo)
	require.Empty(t, res.Samples)
}
