package digest

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		highlighting.NewHighlighting(
			highlighting.WithStyle("github"),
		),
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
)

// RenderHTML converts digest markdown into HTML for the digest page.
// The output is escaped by goldmark, not trusted raw.
func RenderHTML(bodyMD string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(bodyMD), &buf); err != nil {
		return "", fmt.Errorf("converting digest markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}
