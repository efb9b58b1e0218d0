package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// importPrefix is prepended to file names by a popular web download tool.
const importPrefix = "y2mate.com - "

var (
	lineBreaks = strings.NewReplacer("\r\n", "", "\r", "", "\n", "")

	// resolutionSuffix matches markers such as "_1080p", "_720pFHR" or
	// "_1440p60 (1)" through to the end of the string.
	resolutionSuffix = regexp.MustCompile(`(?i)_\d+p.*$`)

	// nonWordRune matches anything that is not a Unicode letter, number,
	// underscore or space.
	nonWordRune = regexp.MustCompile(`[^\p{L}\p{N}_\s\p{Zs}]+`)
)

// CleanTitle strips volatile decorations from a title or file stem while
// keeping its case and punctuation: line breaks, the import-tool prefix and
// a trailing resolution marker. It is idempotent.
func CleanTitle(raw string) string {
	s := stripPrefix(strings.TrimSpace(lineBreaks.Replace(raw)))
	s = resolutionSuffix.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ComparisonKey produces the key used to compare local file names with
// remote titles during bootstrap: CleanTitle plus lowercasing and removal of
// everything except letters, numbers, underscores and whitespace. It is
// idempotent.
func ComparisonKey(raw string) string {
	s := norm.NFC.String(raw)
	s = stripPrefix(strings.TrimSpace(lineBreaks.Replace(s)))
	s = strings.ToLower(s)
	s = nonWordRune.ReplaceAllString(s, "")
	s = resolutionSuffix.ReplaceAllString(s, "")
	return norm.NFC.String(strings.TrimSpace(s))
}

func stripPrefix(s string) string {
	for strings.HasPrefix(s, importPrefix) {
		s = strings.TrimSpace(strings.TrimPrefix(s, importPrefix))
	}
	return s
}
