package format

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"
)

// Multiline splits text on sep and joins the escaped parts with <br>.
// Example: Multiline("Ginza Stella 2F, Tokyo", ", ") renders two lines.
func Multiline(text, sep string) template.HTML {
	if sep == "" {
		sep = "\n"
	}
	parts := strings.Split(text, sep)
	for i, p := range parts {
		parts[i] = template.HTMLEscapeString(p)
	}
	return template.HTML(strings.Join(parts, "<br>"))
}

// WithSeparator breaks the line after every sep while keeping sep itself.
// Example: WithSeparator("銀座の夜、米と汁を嗜む。", "、") => "銀座の夜、<br>米と汁を嗜む。"
func WithSeparator(text, sep string) template.HTML {
	if sep == "" {
		return template.HTML(template.HTMLEscapeString(text))
	}
	parts := strings.Split(text, sep)
	for i, p := range parts {
		parts[i] = template.HTMLEscapeString(p)
	}
	return template.HTML(strings.Join(parts, template.HTMLEscapeString(sep)+"<br>"))
}

// SplitHours splits "open hours / closed days" into its two halves. Text
// without the separator is returned whole as main.
func SplitHours(text string) (main, closed string) {
	main, closed, _ = strings.Cut(text, " / ")
	return strings.TrimSpace(main), strings.TrimSpace(closed)
}

// Renderer turns short copy (slide bodies, descriptions) into sanitized HTML.
// Newlines become <br>; a small markdown subset (emphasis, links) is honoured.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewRenderer builds a Renderer with hard line wraps and a restrictive policy.
func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
		),
	)
	policy := bluemonday.NewPolicy()
	policy.AllowElements("p", "br", "em", "strong", "span")
	policy.AllowStandardURLs()
	policy.AllowAttrs("href").OnElements("a")
	policy.RequireNoFollowOnLinks(true)
	return &Renderer{md: md, policy: policy}
}

// Render converts text to HTML. On conversion failure the escaped text is
// returned with newlines as <br>.
func (r *Renderer) Render(text string) template.HTML {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(text), &buf); err != nil {
		return Multiline(text, "\n")
	}
	return template.HTML(strings.TrimSpace(r.policy.Sanitize(buf.String())))
}
