// Package markdown converts page and post bodies to HTML.
package markdown

import (
	"bytes"
	"fmt"

	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// Options controls the converter.
type Options struct {
	// Style is the chroma style used for fenced code blocks.
	Style     string
	HardWraps bool
}

// Heading is one entry of a table of contents.
type Heading struct {
	Level int
	ID    string
	Title string
}

// Rendered is the result of converting one body.
type Rendered struct {
	HTML     string
	Headings []Heading
	Links    []Link
}

// Converter renders markdown with GFM, highlighting and heading ids.
// It is safe for concurrent use.
type Converter struct {
	md goldmark.Markdown
}

// New creates a converter.
func New(opts Options) *Converter {
	style := opts.Style
	if style == "" {
		style = "github"
	}
	ro := []renderer.Option{html.WithUnsafe()}
	if opts.HardWraps {
		ro = append(ro, html.WithHardWraps())
	}
	return &Converter{md: goldmark.New(
		goldmark.WithExtensions(extension.GFM, highlighting.NewHighlighting(highlighting.WithStyle(style))),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(ro...),
	)}
}

// Convert parses body once, collecting headings and links, then renders it.
func (c *Converter) Convert(body []byte) (*Rendered, error) {
	ctx := parser.NewContext()
	doc := c.md.Parser().Parse(text.NewReader(body), parser.WithContext(ctx))

	out := &Rendered{}
	_ = gmast.Walk(doc, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.Heading:
			h := Heading{Level: node.Level, Title: string(node.Text(body))}
			if id, ok := node.AttributeString("id"); ok {
				if b, ok := id.([]byte); ok {
					h.ID = string(b)
				}
			}
			out.Headings = append(out.Headings, h)
		case *gmast.AutoLink:
			out.Links = append(out.Links, Link{Kind: LinkKindAuto, Destination: string(node.URL(body))})
		case *gmast.Image:
			out.Links = append(out.Links, Link{Kind: LinkKindImage, Destination: string(node.Destination)})
		case *gmast.Link:
			out.Links = append(out.Links, Link{Kind: LinkKindInline, Destination: string(node.Destination)})
		}
		return gmast.WalkContinue, nil
	})

	var buf bytes.Buffer
	if err := c.md.Renderer().Render(&buf, body, doc); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	out.HTML = buf.String()
	return out, nil
}
