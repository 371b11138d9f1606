package build

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/markdown"
	"git.home.luguber.info/inful/sitebuilder/internal/source"
)

const (
	archiveTemplate = "archive.html"
	tagsTemplate    = "tags.html"
	atomTemplate    = "atom.xml"
	sitemapTemplate = "sitemap.xml"

	summaryLength = 280
)

// renderAggregate writes one aggregate page. An absent template skips the stage.
func renderAggregate(st *State, stage StageName, tpl, dest string, data func() any) error {
	if !st.Templates.Has(tpl) {
		return skip(tpl + " not found")
	}
	out, err := st.Templates.Render(tpl, data())
	if err == nil {
		err = writeOutput(st.out(dest), out)
	}
	if err != nil {
		st.Logger.Warn("Aggregate not written",
			logfields.Step(string(stage)),
			logfields.Template(tpl),
			logfields.Error(err))
		st.items(stage, 0, 1)
		return NewWarnStageError(stage, err)
	}
	st.claim(dest, nil)
	st.items(stage, 1, 0)
	return nil
}

func stageArchive(_ context.Context, st *State) error {
	return renderAggregate(st, StageArchive, archiveTemplate, st.Config.ArchivePath, func() any {
		posts := st.newestFirst(st.Index.Posts())
		return ArchiveContext{Site: st.siteData(), Posts: posts, Years: groupByYear(posts)}
	})
}

func stageTags(_ context.Context, st *State) error {
	return renderAggregate(st, StageTags, tagsTemplate, st.Config.TagsPath, func() any {
		return TagsContext{Site: st.siteData(), Tags: st.tagGroups()}
	})
}

// tagGroups lists each tag with its pages and posts, newest first.
func (st *State) tagGroups() []TagGroup {
	content := make([]*source.File, 0, len(st.Index.Pages())+len(st.Index.Posts()))
	content = append(content, st.Index.Pages()...)
	content = append(content, st.Index.Posts()...)
	sort.SliceStable(content, func(i, j int) bool {
		return content[i].Created().After(content[j].Created())
	})

	sorted := st.Index.Tags().Sorted()
	groups := make([]TagGroup, 0, len(sorted))
	pos := make(map[string]int, len(sorted))
	for i, tc := range sorted {
		groups = append(groups, TagGroup{Name: tc.Name, Count: tc.Count})
		pos[tc.Name] = i
	}
	for _, f := range content {
		for _, tag := range f.Tags() {
			if i, ok := pos[tag]; ok {
				groups[i].Entries = append(groups[i].Entries, st.entry(f))
			}
		}
	}
	for _, g := range groups {
		st.Logger.Debug("Tag collected", logfields.Tag(g.Name), logfields.Count(len(g.Entries)))
	}
	return groups
}

func stageAtom(_ context.Context, st *State) error {
	return renderAggregate(st, StageAtom, atomTemplate, st.Config.AtomPath, func() any {
		return st.feed()
	})
}

func (st *State) feed() FeedContext {
	posts := st.Index.Posts()
	entries := make([]Entry, 0, min(len(posts), st.Config.FeedSize))
	var updated time.Time
	for i := len(posts) - 1; i >= 0 && len(entries) < st.Config.FeedSize; i-- {
		f := posts[i]
		e := st.entry(f)
		e.ID = entryID(e.AbsURL)
		if r, err := st.convert(f); err == nil {
			e.Summary = markdown.Excerpt(r.HTML, summaryLength)
		}
		if e.Updated.After(updated) {
			updated = e.Updated
		}
		entries = append(entries, e)
	}
	if updated.IsZero() {
		updated = st.Report.Start
	}
	return FeedContext{
		Site:    st.siteData(),
		ID:      entryID(st.helpers.AbsURL("/")),
		Updated: updated,
		Entries: entries,
	}
}

// entryID derives a stable atom id from an absolute URL.
func entryID(absURL string) string {
	return "urn:uuid:" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(absURL)).String()
}

func stageSitemap(_ context.Context, st *State) error {
	return renderAggregate(st, StageSitemap, sitemapTemplate, st.Config.SitemapPath, func() any {
		var urls []SitemapURL
		rootListed := false
		if st.Config.LatestPostAtRoot {
			if latest := st.Index.Latest(); latest != nil && latest.Processed() {
				urls = append(urls, SitemapURL{Loc: st.helpers.AbsURL("/"), LastMod: latest.Updated()})
				rootListed = true
			}
		}
		for _, f := range st.Index.Query(source.Processed(true)) {
			if !f.Role.IsContent() {
				continue
			}
			// The root index output belongs to the latest post.
			if rootListed && f.DestPath() == st.Config.RootIndex {
				continue
			}
			urls = append(urls, SitemapURL{Loc: st.helpers.AbsURL(f.URL()), LastMod: f.Updated()})
		}
		return SitemapContext{Site: st.siteData(), URLs: urls}
	})
}
