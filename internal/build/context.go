package build

import (
	"html/template"
	"sort"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/markdown"
	"git.home.luguber.info/inful/sitebuilder/internal/source"
)

// SiteData is exposed to every template as .Site.
type SiteData struct {
	Title       string
	URL         string
	Author      string
	Description string
	Language    string
	Vars        map[string]string
	BuildTime   time.Time
	BuildID     string
	FeedURL     string
	ArchiveURL  string
	TagsURL     string
	SitemapURL  string
}

// Link is a titled reference to another page.
type Link struct {
	Title string
	URL   string
}

// PageData is exposed to page and post templates as .Page.
type PageData struct {
	Title       string
	Content     template.HTML
	URL         string
	Path        string
	Role        string
	Author      string
	Created     time.Time
	Updated     time.Time
	Tags        []string
	Headings    []markdown.Heading
	Extra       map[string]string
	Fingerprint string
	Prev        *Link
	Next        *Link
}

// Entry is a listing item in indexes, archives, tag pages and feeds.
type Entry struct {
	Title   string
	URL     string
	AbsURL  string
	ID      string
	Author  string
	Created time.Time
	Updated time.Time
	Tags    []string
	Summary string
}

// IndexData is the table of contents offered to templates that use .Index.
type IndexData struct {
	Pages []Entry
	// Posts are newest first.
	Posts []Entry
	Tags  []source.TagCount
}

// PageContext is the data passed to page and post templates.
type PageContext struct {
	Site  SiteData
	Page  PageData
	Index *IndexData
}

// YearGroup groups archive posts by year.
type YearGroup struct {
	Year  int
	Posts []Entry
}

// ArchiveContext is the data passed to archive.html.
type ArchiveContext struct {
	Site  SiteData
	Posts []Entry
	Years []YearGroup
}

// TagGroup lists the entries carrying one tag.
type TagGroup struct {
	Name    string
	Count   int
	Entries []Entry
}

// TagsContext is the data passed to tags.html.
type TagsContext struct {
	Site SiteData
	Tags []TagGroup
}

// FeedContext is the data passed to atom.xml.
type FeedContext struct {
	Site    SiteData
	ID      string
	Updated time.Time
	Entries []Entry
}

// SitemapURL is one sitemap location.
type SitemapURL struct {
	Loc     string
	LastMod time.Time
}

// SitemapContext is the data passed to sitemap.xml.
type SitemapContext struct {
	Site SiteData
	URLs []SitemapURL
}

// NamedContext is the minimal data passed to robots.txt and humans.txt.
type NamedContext struct {
	Site SiteData
}

func (st *State) siteData() SiteData {
	s := st.Config.Site
	return SiteData{
		Title:       s.Title,
		URL:         s.URL,
		Author:      s.Author,
		Description: s.Description,
		Language:    s.Language,
		Vars:        s.Vars,
		BuildTime:   st.Report.Start,
		BuildID:     st.Report.ID,
		FeedURL:     "/" + st.Config.AtomPath,
		ArchiveURL:  "/" + st.Config.ArchivePath,
		TagsURL:     "/" + st.Config.TagsPath,
		SitemapURL:  "/" + st.Config.SitemapPath,
	}
}

func linkTo(f *source.File) *Link {
	if f == nil {
		return nil
	}
	return &Link{Title: displayTitle(f), URL: f.URL()}
}

func displayTitle(f *source.File) string {
	if t := f.Title(); t != "" {
		return t
	}
	return f.Name()
}

func (st *State) pageData(f *source.File, r *markdown.Rendered) PageData {
	fm := f.FrontMatter()
	author := fm.Author
	if author == "" {
		author = st.Config.Site.Author
	}
	// #nosec G203 -- content is the markdown converter's output
	return PageData{
		Title:       f.Title(),
		Content:     template.HTML(r.HTML),
		URL:         f.URL(),
		Path:        f.RelPath,
		Role:        f.Role.String(),
		Author:      author,
		Created:     f.Created(),
		Updated:     f.Updated(),
		Tags:        f.Tags(),
		Headings:    r.Headings,
		Extra:       fm.Extra,
		Fingerprint: f.Fingerprint(),
		Prev:        linkTo(f.Prev),
		Next:        linkTo(f.Next),
	}
}

func (st *State) entry(f *source.File) Entry {
	author := f.FrontMatter().Author
	if author == "" {
		author = st.Config.Site.Author
	}
	return Entry{
		Title:   displayTitle(f),
		URL:     f.URL(),
		AbsURL:  st.helpers.AbsURL(f.URL()),
		Author:  author,
		Created: f.Created(),
		Updated: f.Updated(),
		Tags:    f.Tags(),
	}
}

// newestFirst returns entries for posts in reverse chronological order.
func (st *State) newestFirst(posts []*source.File) []Entry {
	out := make([]Entry, 0, len(posts))
	for i := len(posts) - 1; i >= 0; i-- {
		out = append(out, st.entry(posts[i]))
	}
	return out
}

func (st *State) indexData() *IndexData {
	pages := make([]Entry, 0, len(st.Index.Pages()))
	for _, p := range st.Index.Pages() {
		pages = append(pages, st.entry(p))
	}
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Title < pages[j].Title })
	return &IndexData{
		Pages: pages,
		Posts: st.newestFirst(st.Index.Posts()),
		Tags:  st.Index.Tags().Sorted(),
	}
}

func groupByYear(entries []Entry) []YearGroup {
	var out []YearGroup
	for _, e := range entries {
		y := e.Created.Year()
		if n := len(out); n == 0 || out[n-1].Year != y {
			out = append(out, YearGroup{Year: y})
		}
		out[len(out)-1].Posts = append(out[len(out)-1].Posts, e)
	}
	return out
}
