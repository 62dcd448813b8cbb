// Package sanitize cleans caller-supplied text before it is interpolated into
// a narrative prompt or echoed back over a transport. Scenario descriptions
// lose control characters, markup and heading markers so they cannot pose as
// prompt structure; identifiers are reduced to a safe character set.
package sanitize

import (
	"regexp"
	"strings"
)

// MaxDescriptionLength is the maximum allowed length for a scenario description.
const MaxDescriptionLength = 2000

// MaxIdentifierLength is the maximum allowed length for request identifiers.
const MaxIdentifierLength = 64

var (
	// reMarkupTag matches XML/HTML tags, with or without attributes, and
	// processing instructions like <?xml ...?>.
	reMarkupTag = regexp.MustCompile(`<[/?!]?[a-zA-Z][a-zA-Z0-9]*(?:\s+[^>]*)?/?>|<\?[^?]*\?>`)

	reHeading        = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	reRule           = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	reFence          = regexp.MustCompile("```+")
	reBlankRun       = regexp.MustCompile(`\n{3,}`)
	reRepeatedDashes = regexp.MustCompile(`-{2,}`)
)

// Description cleans a free-text scenario description or event name for use
// inside a prompt. Steps, in order:
//  1. Drop ASCII control characters other than \n and \t
//  2. Drop markup tags
//  3. Turn markdown headings into list markers
//  4. Drop horizontal rules
//  5. Collapse code fences to a single backtick
//  6. Collapse runs of blank lines
//  7. Trim, then truncate to MaxDescriptionLength
func Description(input string) string {
	if input == "" {
		return ""
	}

	s := stripControlChars(input)
	s = reMarkupTag.ReplaceAllString(s, "")
	s = reHeading.ReplaceAllString(s, "- ")
	s = reRule.ReplaceAllString(s, "")
	s = reFence.ReplaceAllString(s, "`")
	s = reBlankRun.ReplaceAllString(s, "\n\n")
	s = strings.TrimSpace(s)

	if len(s) > MaxDescriptionLength {
		s = s[:MaxDescriptionLength] + "..."
	}
	return s
}

// Identifier keeps only [a-zA-Z0-9._-] from input, collapses repeated
// hyphens and truncates to MaxIdentifierLength.
func Identifier(input string) string {
	if input == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
		}
	}
	s := reRepeatedDashes.ReplaceAllString(b.String(), "-")

	if len(s) > MaxIdentifierLength {
		s = s[:MaxIdentifierLength]
	}
	return s
}

func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
