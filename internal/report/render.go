// Package report post-processes analysis reports for the UI: markdown is
// rendered to HTML and PDF payloads are validated before they are cached.
package report

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Strikethrough),
)

// RenderHTML converts a markdown report to HTML for the report viewer.
func RenderHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}
