package mailer

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// md renders markdown with raw HTML disabled (goldmark's default).
var md = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// RenderMarkdown converts a markdown body to HTML.
func RenderMarkdown(source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// Layout wraps rendered HTML in the portal's email shell.
func Layout(title, body string) string {
	return `<!DOCTYPE html><html><head><meta charset="utf-8"><title>` + escape(title) + `</title></head>` +
		`<body style="font-family:Arial,sans-serif;line-height:1.5;color:#222;max-width:600px;margin:auto">` +
		body +
		`<hr><p style="font-size:12px;color:#888">SevaHub volunteering portal</p></body></html>`
}
