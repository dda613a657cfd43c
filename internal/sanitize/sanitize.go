// Package sanitize cleans free-form strings received from MCP clients
// before they reach the store, the audit log, or archive headers.
package sanitize

import (
	"regexp"
	"strings"
)

// MaxIDLength is the longest batch ID accepted.
const MaxIDLength = 64

// MaxNoteLength is the longest archive note kept.
const MaxNoteLength = 200

var (
	// reTag matches XML/HTML tags and processing instructions.
	reTag = regexp.MustCompile(`<[/?!]?[a-zA-Z][a-zA-Z0-9]*(?:\s+[^>]*)?/?>|<\?[^?]*\?>`)

	reSpace   = regexp.MustCompile(`\s+`)
	reHyphens = regexp.MustCompile(`-{2,}`)
)

// BatchID keeps only [a-zA-Z0-9-], collapses repeated hyphens and trims
// the result to MaxIDLength. Batch IDs generated by the runner pass through
// unchanged.
func BatchID(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	s := reHyphens.ReplaceAllString(b.String(), "-")
	if len(s) > MaxIDLength {
		s = s[:MaxIDLength]
	}
	return s
}

// Note turns client text into a single line safe for an archive header.
// Control characters and markup tags are removed, whitespace runs collapse
// to one space, and the result is truncated to MaxNoteLength bytes.
func Note(input string) string {
	if input == "" {
		return ""
	}
	s := stripControlChars(input)
	s = reTag.ReplaceAllString(s, "")
	s = strings.TrimSpace(reSpace.ReplaceAllString(s, " "))
	if len(s) > MaxNoteLength {
		s = strings.ToValidUTF8(s[:MaxNoteLength], "") + "..."
	}
	return s
}

// stripControlChars drops ASCII control characters other than tab and newline.
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 && r != '\n' && r != '\t' || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
