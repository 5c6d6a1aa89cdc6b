// Package language normalizes the language tags that arrive in book
// metadata and translation requests, which mix cases and separators freely
// ("EN_us", "zh-Hans", " ja ").
package language

import "strings"

func isTagSeparator(r rune) bool {
	return r == '-' || r == '_'
}

func isAlphaLower(value string) bool {
	for _, r := range value {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// NormalizeTag lowercases a tag and joins its subtags with "-". Blank input
// or subtags with non-letter characters normalize to the empty string.
func NormalizeTag(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	subtags := strings.FieldsFunc(lowered, isTagSeparator)
	if len(subtags) == 0 {
		return ""
	}

	for _, subtag := range subtags {
		if !isAlphaLower(subtag) {
			return ""
		}
	}
	return strings.Join(subtags, "-")
}

// NormalizeCode reduces a tag to its primary subtag: "en" from "en-US".
func NormalizeCode(raw string) string {
	tag := NormalizeTag(raw)
	if tag == "" {
		return ""
	}
	if dash := strings.IndexByte(tag, '-'); dash >= 0 {
		return tag[:dash]
	}
	return tag
}
