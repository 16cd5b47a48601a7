package extraction

import (
	"regexp"
	"strings"
)

var (
	reLineBreak = regexp.MustCompile(`\r\n?`)
	reControl   = regexp.MustCompile(`[\x00-\x09\x0B-\x1F\x7F]`)
	reHSpace    = regexp.MustCompile(`[ \p{Zs}]+`)
	reLineEdge  = regexp.MustCompile(`(?m)^ | $`)
	reBlankRun  = regexp.MustCompile(`\n{3,}`)
)

// Normalize canonicalizes raw OCR text before any pattern matching.
// Line breaks become LF, control characters become spaces, horizontal
// whitespace collapses to one space and 3+ newlines collapse to a blank line.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reLineBreak.ReplaceAllString(s, "\n")
	s = reControl.ReplaceAllString(s, " ")
	s = reHSpace.ReplaceAllString(s, " ")
	s = reLineEdge.ReplaceAllString(s, "")
	s = reBlankRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
