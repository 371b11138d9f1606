package build

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/command"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/history"
	"git.home.luguber.info/inful/sitebuilder/internal/source"
	"git.home.luguber.info/inful/sitebuilder/internal/templates"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSite(t *testing.T) (string, *config.Config) {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Root = root
	return root, cfg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// outputFiles lists every file under dir as slash paths.
func outputFiles(t *testing.T, dir string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		out = append(out, filepath.ToSlash(rel))
		return err
	})
	require.NoError(t, err)
	sort.Strings(out)
	return out
}

// fakeRunner stands in for minifier and compiler commands. It prefixes the
// output with a marker and fails for sources named in fail.
type fakeRunner struct {
	mu    sync.Mutex
	calls []command.Spec
	fail  map[string]bool
}

func (r *fakeRunner) Run(_ context.Context, spec command.Spec) error {
	r.mu.Lock()
	r.calls = append(r.calls, spec)
	r.mu.Unlock()
	if r.fail[filepath.Base(spec.Source)] {
		return errors.CommandError("external command failed").WithContext("path", spec.Source).Build()
	}
	data, err := os.ReadFile(spec.Source)
	if err != nil {
		return err
	}
	return os.WriteFile(spec.Dest, append([]byte("/*min*/"), data...), 0o600)
}

func (r *fakeRunner) sources() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, filepath.Base(c.Source))
	}
	sort.Strings(out)
	return out
}

// runPipeline indexes cfg and runs the default stages, returning the state for inspection.
func runPipeline(t *testing.T, cfg *config.Config, opts Options) (*State, error) {
	t.Helper()
	opts.Logger = quietLogger()
	b := New(cfg, opts)
	idx, err := source.Build(t.Context(), source.OptionsFromConfig(cfg, b.opts.Logger))
	require.NoError(t, err)
	st := newState(cfg, idx, b.opts, newReport("test", "dev"))
	err = RunStages(t.Context(), st, b.opts.Pipeline.Build())
	st.Report.Finish()
	st.Report.DeriveOutcome()
	return st, err
}

func TestBuildSinglePage(t *testing.T) {
	root, cfg := newSite(t)
	writeFile(t, filepath.Join(root, "pages", "hello.md"), "title: Hi\n\n# Hi\n\nBody text.")
	writeFile(t, filepath.Join(root, "templates", "default.html"), "<title>{{.Page.Title}}</title>\n{{.Page.Content}}")

	report, err := New(cfg, Options{Logger: quietLogger()}).Build(t.Context())
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, report.Outcome)

	out := readFile(t, filepath.Join(root, "build", "hello.html"))
	require.Contains(t, out, "<title>Hi</title>")
	require.Contains(t, out, "<p>Body text.</p>")

	require.Equal(t, []string{"hello.html"}, outputFiles(t, filepath.Join(root, "build")))
	require.Equal(t, StageResultSkipped, report.StageResults[StageArchive])
	require.Equal(t, StageResultSuccess, report.StageResults[StagePages])
	require.Equal(t, 1, report.Written(StagePages))
}

func TestAssetsProcessedExactlyOnce(t *testing.T) {
	root, cfg := newSite(t)
	cfg.MinCSS = true
	cfg.CSSCommand = "minify {source} {dest}"
	cfg.MinLess = true
	cfg.LessCommand = "lessc {source} {dest}"
	cfg.Workers = 2

	assets := filepath.Join(root, "assets")
	writeFile(t, filepath.Join(assets, "style.css"), "body{}")
	writeFile(t, filepath.Join(assets, "broken.css"), "p{}")
	writeFile(t, filepath.Join(assets, "app.js"), "let a")
	writeFile(t, filepath.Join(assets, "theme.less"), "@c: red;")
	writeFile(t, filepath.Join(assets, "img", "logo.png"), "png")
	writeFile(t, filepath.Join(assets, "robots.txt"), "Sitemap: {{.Site.SitemapURL}}\n")
	stampTime := time.Date(2020, 3, 4, 5, 6, 7, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(assets, "img", "logo.png"), stampTime, stampTime))

	runner := &fakeRunner{fail: map[string]bool{"broken.css": true}}
	st, err := runPipeline(t, cfg, Options{Commands: runner})
	require.NoError(t, err)

	want := map[string]string{
		"style.css":    "css",
		"broken.css":   "static",
		"app.js":       "js",
		"theme.less":   "less",
		"img/logo.png": "static",
		"robots.txt":   "robots",
	}
	for _, f := range st.Index.Assets() {
		require.True(t, f.Processed(), f.RelPath)
		require.Equal(t, want[f.RelPath], f.ProcessedBy(), f.RelPath)
	}

	// Each command-eligible file ran once; the static copy never touched minified output.
	require.Equal(t, []string{"broken.css", "style.css", "theme.less"}, runner.sources())
	build := filepath.Join(root, "build")
	require.Equal(t, "/*min*/body{}", readFile(t, filepath.Join(build, "style.css")))
	require.Equal(t, "p{}", readFile(t, filepath.Join(build, "broken.css")))
	require.Equal(t, "let a", readFile(t, filepath.Join(build, "app.js")))
	require.Equal(t, "/*min*/@c: red;", readFile(t, filepath.Join(build, "theme.css")))
	require.NoFileExists(t, filepath.Join(build, "theme.less"))
	require.Equal(t, "Sitemap: /sitemap.xml\n", readFile(t, filepath.Join(build, "robots.txt")))

	info, err := os.Stat(filepath.Join(build, "img", "logo.png"))
	require.NoError(t, err)
	require.True(t, info.ModTime().Equal(stampTime))

	require.Equal(t, StageResultWarning, st.Report.StageResults[StageCSS])
	require.Equal(t, ItemCount{Written: 1, Failed: 1}, st.Report.Items[StageCSS])
	require.Equal(t, ItemCount{Written: 2}, st.Report.Items[StageStatic])
	require.Equal(t, OutcomeWarning, st.Report.Outcome)
}

func TestLessCopiedVerbatimWhenCompilerDisabled(t *testing.T) {
	root, cfg := newSite(t)
	writeFile(t, filepath.Join(root, "assets", "theme.less"), "@c: red;")

	runner := &fakeRunner{}
	st, err := runPipeline(t, cfg, Options{Commands: runner})
	require.NoError(t, err)
	require.Empty(t, runner.sources())
	require.Equal(t, StageResultSkipped, st.Report.StageResults[StageLess])
	require.Equal(t, "@c: red;", readFile(t, filepath.Join(root, "build", "theme.less")))
}

func TestLatestPostAtRoot(t *testing.T) {
	root, cfg := newSite(t)
	cfg.LatestPostAtRoot = true
	writeFile(t, filepath.Join(root, "posts", "b.md"), "title: Second\ncreated: 2024-02-01 10:00\n\nsecond post")
	writeFile(t, filepath.Join(root, "posts", "a.md"), "title: First\ncreated: 2024-01-01 10:00\n\nfirst post")
	writeFile(t, filepath.Join(root, "templates", "default.html"),
		"{{.Page.Title}}|{{.Page.Content}}|{{with .Page.Prev}}{{.URL}}{{end}}|{{with .Page.Next}}{{.URL}}{{end}}")

	report, err := New(cfg, Options{Logger: quietLogger()}).Build(t.Context())
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, report.Outcome)

	build := filepath.Join(root, "build")
	later := readFile(t, filepath.Join(build, "b.html"))
	require.Equal(t, later, readFile(t, filepath.Join(build, "index.html")))
	require.Contains(t, later, "Second|")
	require.Contains(t, later, "|/a.html|")
	require.Contains(t, readFile(t, filepath.Join(build, "a.html")), "|/b.html")
}

func TestLatestPostReplacesRootPage(t *testing.T) {
	root, cfg := newSite(t)
	cfg.LatestPostAtRoot = true
	writeFile(t, filepath.Join(root, "pages", "index.md"), "title: Home\n\nhome")
	writeFile(t, filepath.Join(root, "posts", "only.md"), "title: Only\n\npost")
	writeFile(t, filepath.Join(root, "templates", "default.html"), "{{.Page.Title}}")

	_, err := New(cfg, Options{Logger: quietLogger()}).Build(t.Context())
	require.NoError(t, err)
	require.Equal(t, "Only", readFile(t, filepath.Join(root, "build", "index.html")))
}

func TestMissingDefaultTemplateIsFatal(t *testing.T) {
	root, cfg := newSite(t)
	writeFile(t, filepath.Join(root, "pages", "hello.md"), "hello")

	report, err := New(cfg, Options{Logger: quietLogger()}).Build(t.Context())
	require.Error(t, err)
	require.ErrorIs(t, err, templates.ErrTemplateNotFound)

	var se *StageError
	require.True(t, stderrors.As(err, &se))
	require.Equal(t, StageErrorFatal, se.Kind)
	require.Equal(t, StageLoadTemplates, se.Stage)

	require.Equal(t, OutcomeFailed, report.Outcome)
	_, ranPages := report.StageResults[StagePages]
	require.False(t, ranPages)
}

func TestMissingTemplateOverrideIsItemWarning(t *testing.T) {
	root, cfg := newSite(t)
	writeFile(t, filepath.Join(root, "pages", "a.md"), "template: nope.html\n\nA")
	writeFile(t, filepath.Join(root, "pages", "b.md"), "B")
	writeFile(t, filepath.Join(root, "templates", "default.html"), "{{.Page.Content}}")

	report, err := New(cfg, Options{Logger: quietLogger()}).Build(t.Context())
	require.NoError(t, err)
	require.Equal(t, OutcomeWarning, report.Outcome)
	require.Equal(t, StageResultWarning, report.StageResults[StagePages])
	require.Equal(t, ItemCount{Written: 1, Failed: 1}, report.Items[StagePages])

	build := filepath.Join(root, "build")
	require.NoFileExists(t, filepath.Join(build, "a.html"))
	require.FileExists(t, filepath.Join(build, "b.html"))

	require.Len(t, report.Warnings, 1)
	require.ErrorIs(t, report.Warnings[0], templates.ErrTemplateNotFound)
}

func TestOverlappingRootsFailBeforeAnyStage(t *testing.T) {
	root, cfg := newSite(t)
	cfg.AssetsPath = "pages/static"
	writeFile(t, filepath.Join(root, "pages", "static", "a.css"), "a")

	report, err := New(cfg, Options{Logger: quietLogger()}).Build(t.Context())
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))
	require.Empty(t, report.StageResults)
	require.NoDirExists(t, filepath.Join(root, "build"))
}

func TestDefaultThemeAggregates(t *testing.T) {
	root, cfg := newSite(t)
	cfg.Site.URL = "https://example.org"
	_, err := templates.WriteDefaultTheme(filepath.Join(root, "templates"), false)
	require.NoError(t, err)

	writeFile(t, filepath.Join(root, "pages", "index.md"), "title: Home\ntemplate: index.html\n\nWelcome")
	writeFile(t, filepath.Join(root, "pages", "about.md"), "title: About\ntags: me\n\nSee [home](/index.html) and [gone](/missing.html).")
	writeFile(t, filepath.Join(root, "posts", "one.md"), "title: One\ncreated: 2023-05-01\ntags: go, web\n\nFirst **post**.")
	writeFile(t, filepath.Join(root, "posts", "two.md"), "title: Two\ncreated: 2024-06-01\ntags: go\n\nSecond post.")

	report, err := New(cfg, Options{Logger: quietLogger()}).Build(t.Context())
	require.NoError(t, err)

	build := filepath.Join(root, "build")
	index := readFile(t, filepath.Join(build, "index.html"))
	require.Contains(t, index, `<a href="/two.html">Two</a>`)
	require.Contains(t, index, `<a href="/about.html">About</a>`)

	archive := readFile(t, filepath.Join(build, "archive.html"))
	require.Less(t, strings.Index(archive, "2024"), strings.Index(archive, "2023"))

	tags := readFile(t, filepath.Join(build, "tags.html"))
	require.Contains(t, tags, `id="go"`)
	require.Contains(t, tags, "(2)")

	atom := readFile(t, filepath.Join(build, "atom.xml"))
	require.Contains(t, atom, "urn:uuid:")
	require.Contains(t, atom, "https://example.org/two.html")
	require.Contains(t, atom, "<summary>First post.</summary>")

	sitemap := readFile(t, filepath.Join(build, "sitemap.xml"))
	require.Contains(t, sitemap, "<loc>https://example.org/about.html</loc>")

	require.FileExists(t, filepath.Join(build, "robots.txt"))
	require.FileExists(t, filepath.Join(build, "humans.txt"))

	var broken []string
	for _, is := range report.Issues {
		if strings.HasPrefix(is.Message, "broken link") {
			broken = append(broken, is.Message)
		}
	}
	require.Equal(t, []string{"broken link /missing.html in about.md"}, broken)
}

func TestEntryIDStable(t *testing.T) {
	a := entryID("https://example.org/a.html")
	require.Equal(t, a, entryID("https://example.org/a.html"))
	require.NotEqual(t, a, entryID("https://example.org/b.html"))
	require.True(t, strings.HasPrefix(a, "urn:uuid:"))
}

func TestReportPersistedAndHistoryRecorded(t *testing.T) {
	root, cfg := newSite(t)
	page := filepath.Join(root, "pages", "hello.md")
	writeFile(t, page, "hello")
	writeFile(t, filepath.Join(root, "templates", "default.html"), "{{.Page.Content}}")

	store, err := history.NewSQLiteStore(":memory:", 0)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	reportDir := filepath.Join(root, ".sitebuilder")
	b := New(cfg, Options{Logger: quietLogger(), History: store, ReportDir: reportDir})

	first, err := b.Build(t.Context())
	require.NoError(t, err)
	require.Equal(t, 1, first.ChangedPages)

	second, err := b.Build(t.Context())
	require.NoError(t, err)
	require.Equal(t, 0, second.ChangedPages)

	writeFile(t, page, "hello again")
	third, err := b.Build(t.Context())
	require.NoError(t, err)
	require.Equal(t, 1, third.ChangedPages)

	builds, err := store.List(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, builds, 3)
	require.Equal(t, third.ID, builds[0].ID)
	require.Equal(t, "success", builds[0].Stages[string(StagePages)])

	var persisted SerializableReport
	require.NoError(t, json.Unmarshal([]byte(readFile(t, filepath.Join(reportDir, ReportFile))), &persisted))
	require.Equal(t, third.ID, persisted.ID)
	require.Equal(t, "success", persisted.Outcome)
}

func TestTableOfContentsThroughPartial(t *testing.T) {
	root, cfg := newSite(t)
	writeFile(t, filepath.Join(root, "pages", "hello.md"), "title: Hello\n\nhi")
	writeFile(t, filepath.Join(root, "pages", "other.md"), "title: Other\n\nthere")
	writeFile(t, filepath.Join(root, "templates", "default.html"), `{{.Page.Title}}{{template "partials/toc.html" .}}`)
	writeFile(t, filepath.Join(root, "templates", "partials", "toc.html"), `<ul>{{range .Index.Pages}}<li>{{.Title}}</li>{{end}}</ul>`)

	report, err := New(cfg, Options{Logger: quietLogger()}).Build(t.Context())
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, report.Outcome)

	out := readFile(t, filepath.Join(root, "build", "hello.html"))
	require.Contains(t, out, "<li>Hello</li>")
	require.Contains(t, out, "<li>Other</li>")
}

func TestDotfileAssetsCopied(t *testing.T) {
	root, cfg := newSite(t)
	writeFile(t, filepath.Join(root, "assets", ".htaccess"), "Options -Indexes")
	writeFile(t, filepath.Join(root, "assets", ".well-known", "security.txt"), "Contact: mailto:a@example.com")

	report, err := New(cfg, Options{Logger: quietLogger()}).Build(t.Context())
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, report.Outcome)
	require.Equal(t, "Options -Indexes", readFile(t, filepath.Join(root, "build", ".htaccess")))
	// Hidden directories stay excluded by exclude_prefixes.
	require.NoFileExists(t, filepath.Join(root, "build", ".well-known", "security.txt"))
}

func TestNamedFileFailureDoesNotAbort(t *testing.T) {
	root, cfg := newSite(t)
	raw := "User-agent: *\nDisallow: {{.Nope"
	writeFile(t, filepath.Join(root, "assets", "robots.txt"), raw)
	writeFile(t, filepath.Join(root, "assets", "site.css"), "body{}")
	writeFile(t, filepath.Join(root, "pages", "hello.md"), "title: Hello\n\nhi")
	writeFile(t, filepath.Join(root, "templates", "default.html"), "{{.Page.Title}}")

	report, err := New(cfg, Options{Logger: quietLogger()}).Build(t.Context())
	require.NoError(t, err)
	require.Equal(t, OutcomeWarning, report.Outcome)
	require.Equal(t, StageResultWarning, report.StageResults[StageRobots])
	require.Equal(t, StageResultSkipped, report.StageResults[StageHumans])
	require.Equal(t, StageResultSuccess, report.StageResults[StageStatic])
	require.Equal(t, StageResultSuccess, report.StageResults[StagePages])
	require.Zero(t, report.Written(StageRobots))

	build := filepath.Join(root, "build")
	// The unrendered asset is published verbatim by the static stage.
	require.Equal(t, raw, readFile(t, filepath.Join(build, "robots.txt")))
	require.Equal(t, "body{}", readFile(t, filepath.Join(build, "site.css")))
	require.Equal(t, "Hello", readFile(t, filepath.Join(build, "hello.html")))
}

func TestSitemapListsRootOnce(t *testing.T) {
	root, cfg := newSite(t)
	cfg.Site.URL = "https://example.org"
	cfg.LatestPostAtRoot = true
	writeFile(t, filepath.Join(root, "pages", "index.md"), "title: Home\n\nhome")
	writeFile(t, filepath.Join(root, "pages", "about.md"), "title: About\n\nabout")
	writeFile(t, filepath.Join(root, "posts", "only.md"), "title: Only\n\npost")
	writeFile(t, filepath.Join(root, "templates", "default.html"), "{{.Page.Title}}")
	writeFile(t, filepath.Join(root, "templates", "sitemap.xml"), "{{range .URLs}}{{.Loc}}\n{{end}}")

	_, err := New(cfg, Options{Logger: quietLogger()}).Build(t.Context())
	require.NoError(t, err)

	locs := strings.Fields(readFile(t, filepath.Join(root, "build", "sitemap.xml")))
	require.ElementsMatch(t, []string{
		"https://example.org/",
		"https://example.org/about.html",
		"https://example.org/only.html",
	}, locs)
}
