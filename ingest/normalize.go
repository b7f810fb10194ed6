package ingest

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// Control characters except tab, newline, and carriage return,
	// plus the C1 range.
	controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f-\x9f]`)
	spaceRuns    = regexp.MustCompile(` +`)
	newlineRuns  = regexp.MustCompile(`\n{3,}`)
)

// Normalize cleans extracted text before chunking: NFKC Unicode
// normalization, newline unification, control character removal, and
// whitespace collapsing. Paragraph breaks survive as exactly one
// blank line.
func Normalize(text string) string {
	text = norm.NFKC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = controlChars.ReplaceAllString(text, "")
	text = spaceRuns.ReplaceAllString(text, " ")
	text = newlineRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
