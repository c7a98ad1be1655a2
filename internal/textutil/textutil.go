// Package textutil cleans user-supplied text and renders recipe
// instructions from markdown.
package textutil

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	md = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
		),
	)
	strict = bluemonday.StrictPolicy()
	ugc    = bluemonday.UGCPolicy()
)

func init() {
	ugc.AddTargetBlankToFullyQualifiedLinks(true)
	ugc.RequireNoReferrerOnLinks(true)
}

// Clean strips all markup from post and comment text. The result is
// HTML-escaped and trimmed.
func Clean(s string) string {
	return strings.TrimSpace(strict.Sanitize(s))
}

// RenderMarkdown turns recipe instructions into sanitized HTML.
func RenderMarkdown(source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return string(ugc.SanitizeBytes(buf.Bytes())), nil
}
