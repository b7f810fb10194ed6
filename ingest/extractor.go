package ingest

import (
	"bytes"
	"html"
	"net/url"
	"regexp"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// ContentType identifies the format of a source document.
type ContentType string

const (
	TypePlainText ContentType = "text/plain"
	TypeMarkdown  ContentType = "text/markdown"
	TypeHTML      ContentType = "text/html"
	TypePDF       ContentType = "application/pdf"
)

// ContentTypeFromExtension maps a file extension, with or without the
// leading dot, to a content type. Unknown extensions are treated as
// plain text.
func ContentTypeFromExtension(ext string) ContentType {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "md", "markdown":
		return TypeMarkdown
	case "html", "htm", "xhtml":
		return TypeHTML
	case "pdf":
		return TypePDF
	default:
		return TypePlainText
	}
}

// Extractor turns raw file bytes into plain text.
type Extractor interface {
	Extract(content []byte) (string, error)
}

// PlainTextExtractor passes content through as UTF-8 text, dropping
// any invalid byte sequences.
type PlainTextExtractor struct{}

var _ Extractor = PlainTextExtractor{}

func (PlainTextExtractor) Extract(content []byte) (string, error) {
	return strings.ToValidUTF8(string(content), ""), nil
}

// HTMLExtractor extracts readable text from HTML. Pages go through
// readability first so navigation and boilerplate are dropped; when
// no article content is found it falls back to stripping tags.
type HTMLExtractor struct{}

var _ Extractor = HTMLExtractor{}

func (HTMLExtractor) Extract(content []byte) (string, error) {
	u, _ := url.Parse("file:///document.html")
	article, err := readability.FromReader(bytes.NewReader(content), u)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return article.TextContent, nil
	}
	return stripTags(string(content)), nil
}

var (
	scriptBlocks = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>`)
	htmlComments = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockTags    = regexp.MustCompile(`(?i)</?(p|div|br|h[1-6]|li|ul|ol|tr|table|blockquote|section|article|header|footer|pre)[^>]*>`)
	htmlTags     = regexp.MustCompile(`(?s)<[^>]+>`)
)

// stripTags is the fallback for pages readability cannot parse. Block
// level tags become newlines so document structure survives.
func stripTags(s string) string {
	s = scriptBlocks.ReplaceAllString(s, "")
	s = htmlComments.ReplaceAllString(s, "")
	s = blockTags.ReplaceAllString(s, "\n")
	s = htmlTags.ReplaceAllString(s, " ")
	return collapseWhitespace(html.UnescapeString(s))
}

// collapseWhitespace squeezes runs of spaces within each line while
// keeping blank lines, so paragraph breaks stay visible to the
// chunker.
func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.Join(lines, "\n")
}
