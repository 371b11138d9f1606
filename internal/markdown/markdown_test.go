package markdown

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	c := New(Options{})
	out, err := c.Convert([]byte("# Hi\n\nBody text with a [link](/about.html#team) and <span>raw</span>.\n\n## Part Two\n\n![cat](/images/1-cat.jpg)\n"))
	require.NoError(t, err)

	require.Contains(t, out.HTML, `<h1 id="hi">Hi</h1>`)
	require.Contains(t, out.HTML, "Body text")
	require.Contains(t, out.HTML, "<span>raw</span>")
	require.Equal(t, []Heading{
		{Level: 1, ID: "hi", Title: "Hi"},
		{Level: 2, ID: "part-two", Title: "Part Two"},
	}, out.Headings)

	require.Len(t, out.Links, 2)
	require.Equal(t, LinkKindInline, out.Links[0].Kind)
	require.Equal(t, "/about.html", out.Links[0].Path())
	require.True(t, out.Links[0].IsSiteRelative())
	require.Equal(t, LinkKindImage, out.Links[1].Kind)
}

func TestConvert_GFMAndHighlighting(t *testing.T) {
	c := New(Options{Style: "monokai"})
	out, err := c.Convert([]byte("| a | b |\n|---|---|\n| 1 | 2 |\n\n```go\nfunc main() {}\n```\n\n~~gone~~ https://example.com\n"))
	require.NoError(t, err)
	require.Contains(t, out.HTML, "<table>")
	require.Contains(t, out.HTML, "<del>gone</del>")
	require.Contains(t, out.HTML, "<pre")
	require.Len(t, out.Links, 1)
	require.Equal(t, LinkKindAuto, out.Links[0].Kind)
	require.False(t, out.Links[0].IsSiteRelative())
}

func TestConvert_Concurrent(t *testing.T) {
	c := New(Options{})
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := c.Convert([]byte("# Title\n\ntext"))
			if assert.NoError(t, err) {
				assert.Len(t, out.Headings, 1)
			}
		}()
	}
	wg.Wait()
}

func TestExcerpt(t *testing.T) {
	html := "<h1>Title</h1><script>var x = 1;</script><p>The quick  brown\nfox jumps.</p>"
	require.Equal(t, "Title The quick brown fox jumps.", Excerpt(html, 100))
	require.Equal(t, "Title The…", Excerpt(html, 12))
	require.Equal(t, "Tit", Excerpt(html, 3))
	require.Empty(t, Excerpt(html, 0))
	require.Equal(t, "First post.", Excerpt("<p>First <strong>post</strong>.</p>", 100))
	require.Equal(t, "one two", Excerpt("<ul><li>one</li><li>two</li></ul>", 100))
}
