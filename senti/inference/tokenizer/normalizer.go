package tokenizer

import "strings"

// punctuation holds the only characters stripped before splitting
var punctuation = strings.NewReplacer(".", "", ",", "", "?", "", "!", "")

// isSpace matches the ECMAScript whitespace and line terminator set, which
// differs from unicode.IsSpace on U+0085 and U+FEFF.
func isSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', '\u00a0', '\u1680',
		'\u2028', '\u2029', '\u202f', '\u205f', '\u3000', '\ufeff':
		return true
	}
	return r >= '\u2000' && r <= '\u200a'
}

// Normalize lowercases text, strips . , ? and !, trims it and splits it on
// whitespace runs.
//
// Input that is empty after cleaning yields a single empty token, the same
// result splitting an empty string produces. Callers reject blank input
// before reaching this point.
func Normalize(text string) []string {
	cleaned := strings.TrimFunc(punctuation.Replace(strings.ToLower(text)), isSpace)
	if cleaned == "" {
		return []string{""}
	}
	return strings.FieldsFunc(cleaned, isSpace)
}

// IsBlank reports whether text is empty once the same whitespace is trimmed
func IsBlank(text string) bool {
	return strings.TrimFunc(text, isSpace) == ""
}
