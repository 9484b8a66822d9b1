package pubmed

import (
	"strings"
	"unicode/utf8"
)

// EscapedUnderscore replaces literal underscores so downstream n-gram
// tokenizers can use "_" as their word joiner.
const EscapedUnderscore = "%5f"

// Sanitize drops whitespace-separated tokens longer than maxLen characters,
// joins the rest with single spaces and escapes underscores.
func Sanitize(text string, maxLen int) string {
	tokens := strings.Fields(text)
	kept := tokens[:0]
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) <= maxLen {
			kept = append(kept, tok)
		}
	}
	return strings.ReplaceAll(strings.Join(kept, " "), "_", EscapedUnderscore)
}
