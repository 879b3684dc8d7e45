// Package render turns raw biography markdown into the documents shown to
// readers: sanitized HTML for browsers and normalized markdown for terminals.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Document is the rendered form of a saved biography. It never carries the
// raw source text.
type Document struct {
	HTML     string `json:"html"`
	Markdown string `json:"markdown"`
}

// IsZero reports whether the document has no content.
func (d Document) IsZero() bool {
	return d.HTML == "" && d.Markdown == ""
}

// Renderer compiles biography markdown. A Renderer is safe for concurrent use.
type Renderer struct {
	md        goldmark.Markdown
	policy    *bluemonday.Policy
	converter *converter.Converter
}

// New returns a Renderer using GitHub-flavoured markdown and the UGC
// sanitization policy. Raw HTML is passed through goldmark and left to the
// policy to filter.
func New() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps(), html.WithUnsafe()),
		),
		policy: bluemonday.UGCPolicy().RequireNoFollowOnLinks(true),
		converter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
	}
}

// Render compiles src. The markdown field is derived from the sanitized HTML,
// so terminal output shows exactly what survived sanitization.
func (r *Renderer) Render(src string) (Document, error) {
	if strings.TrimSpace(src) == "" {
		return Document{}, nil
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return Document{}, fmt.Errorf("compiling markdown: %w", err)
	}
	safe := r.policy.SanitizeBytes(buf.Bytes())

	md, err := r.converter.ConvertString(string(safe))
	if err != nil {
		return Document{}, fmt.Errorf("normalizing markdown: %w", err)
	}

	return Document{
		HTML:     strings.TrimSpace(string(safe)),
		Markdown: strings.TrimSpace(md),
	}, nil
}
