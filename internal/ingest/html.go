package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// ExtractHTML pulls the readable text out of an HTML page. It tries
// go-readability's main-content extraction first and falls back to a
// plain goquery body dump when readability finds nothing, which
// happens on table-heavy government pages.
func ExtractHTML(raw []byte) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(raw), nil)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return squeezeWhitespace(article.TextContent), nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	text := doc.Find("body").Text()
	if strings.TrimSpace(text) == "" {
		text = doc.Text()
	}
	return squeezeWhitespace(text), nil
}

// squeezeWhitespace collapses runs of blank lines and trims each line,
// goquery's Text() keeps all the markup whitespace.
func squeezeWhitespace(text string) string {
	var b strings.Builder
	blank := true
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			blank = true
			continue
		}
		if !blank && b.Len() > 0 {
			b.WriteString("\n")
		} else if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(line)
		blank = false
	}
	return b.String()
}
