package source

import "sort"

// TagIndex maps a tag to the number of pages and posts declaring it.
type TagIndex map[string]int

// TagCount is one TagIndex entry.
type TagCount struct {
	Name  string
	Count int
}

// buildTagIndex counts each file at most once per tag.
func buildTagIndex(files []*File) TagIndex {
	idx := make(TagIndex)
	for _, f := range files {
		for _, tag := range f.Tags() {
			idx[tag]++
		}
	}
	return idx
}

// Sorted returns the entries ordered by name.
func (t TagIndex) Sorted() []TagCount {
	out := make([]TagCount, 0, len(t))
	for name, count := range t {
		out = append(out, TagCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
