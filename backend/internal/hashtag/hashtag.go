// Package hashtag extracts interest names from post content.
package hashtag

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxLength is the longest tag kept, in characters. It matches the size of
// the relational tag column.
const MaxLength = 100

var pattern = regexp.MustCompile(`#([\p{L}\p{M}\p{N}_]+)`)

// Extract returns the lower-cased hashtags in content, de-duplicated in
// first-occurrence order. "#Go and #go" yields ["go"]. Letters and digits of
// any script count; tags longer than MaxLength are dropped.
func Extract(content string) []string {
	matches := pattern.FindAllStringSubmatch(content, -1)
	tags := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		tag := strings.ToLower(m[1])
		if utf8.RuneCountInString(tag) > MaxLength {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// Normalize turns a user-supplied interest name into its stored form
func Normalize(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "#"))
}
