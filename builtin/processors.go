// CLAUDE:SUMMARY Stock post-processors: markdown conversion, HTML sanitizing, whitespace normalization, HTML stripping, metadata stamping.
// Package builtin provides stock plugin implementations for the
// extraction pipeline. Nothing here is registered implicitly; callers
// pick what they need and register it under the name and stage they
// want.
package builtin

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/hazyhaar/extpipe/pipeline"
)

// Markdownify converts HTML extraction results to Markdown. Non-HTML
// results pass through untouched.
type Markdownify struct {
	conv *converter.Converter
}

// NewMarkdownify creates a Markdownify with commonmark and table support.
func NewMarkdownify() *Markdownify {
	return &Markdownify{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

func (m *Markdownify) Process(_ context.Context, res *pipeline.Result, _ map[string]any) (*pipeline.Result, error) {
	if !isHTML(res.MimeType) {
		return res, nil
	}
	md, err := m.conv.ConvertString(res.Content)
	if err != nil {
		return nil, fmt.Errorf("markdown conversion: %w", err)
	}
	out := *res
	out.Content = md
	out.MimeType = "text/markdown"
	return &out, nil
}

// Sanitize strips dangerous markup from HTML results using the
// bluemonday UGC policy. Non-HTML results pass through untouched.
type Sanitize struct {
	policy *bluemonday.Policy
}

func NewSanitize() *Sanitize {
	return &Sanitize{policy: bluemonday.UGCPolicy()}
}

func (s *Sanitize) Process(_ context.Context, res *pipeline.Result, _ map[string]any) (*pipeline.Result, error) {
	if !isHTML(res.MimeType) {
		return res, nil
	}
	out := *res
	out.Content = s.policy.Sanitize(res.Content)
	return &out, nil
}

// NormalizeWhitespace collapses runs of spaces and tabs and limits blank
// lines to one, preserving paragraph structure.
type NormalizeWhitespace struct{}

func (NormalizeWhitespace) Process(_ context.Context, res *pipeline.Result, _ map[string]any) (*pipeline.Result, error) {
	out := *res
	out.Content = normalizeWhitespace(res.Content)
	return &out, nil
}

func normalizeWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	var sb strings.Builder
	blankRun := 0
	for _, line := range lines {
		collapsed := collapseSpaces(line)
		if collapsed == "" {
			blankRun++
			if blankRun > 1 {
				continue
			}
		} else {
			blankRun = 0
		}
		sb.WriteString(collapsed)
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

func collapseSpaces(line string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range line {
		if unicode.IsSpace(r) {
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		sb.WriteRune(r)
		prevSpace = false
	}
	return strings.TrimRight(sb.String(), " ")
}

// StripHTML replaces HTML content with its visible text. It is the
// low-fidelity fallback when Markdownify is not wanted.
type StripHTML struct{}

func (StripHTML) Process(_ context.Context, res *pipeline.Result, _ map[string]any) (*pipeline.Result, error) {
	if !isHTML(res.MimeType) {
		return res, nil
	}
	doc, err := html.Parse(strings.NewReader(res.Content))
	if err != nil {
		return nil, fmt.Errorf("html parse: %w", err)
	}
	out := *res
	out.Content = collectText(doc)
	out.MimeType = "text/plain"
	return &out, nil
}

// collectText walks the node tree collecting text, skipping script and
// style subtrees.
func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// StampMetadata merges fixed key/value pairs into result metadata.
// Existing keys are not overwritten.
type StampMetadata struct {
	Values map[string]any
}

func (s *StampMetadata) Process(_ context.Context, res *pipeline.Result, _ map[string]any) (*pipeline.Result, error) {
	out := *res
	out.Metadata = make(map[string]any, len(res.Metadata)+len(s.Values))
	for k, v := range s.Values {
		out.Metadata[k] = v
	}
	for k, v := range res.Metadata {
		out.Metadata[k] = v
	}
	return &out, nil
}

func isHTML(mimeType string) bool {
	mt := strings.ToLower(mimeType)
	return strings.HasPrefix(mt, "text/html") || strings.HasPrefix(mt, "application/xhtml")
}

var _ pipeline.PostProcessor = (*Markdownify)(nil)
var _ pipeline.PostProcessor = (*Sanitize)(nil)
var _ pipeline.PostProcessor = NormalizeWhitespace{}
var _ pipeline.PostProcessor = StripHTML{}
var _ pipeline.PostProcessor = (*StampMetadata)(nil)
