package export

import (
	"strings"
	"unicode"
)

// SanitizeName strips control characters and anything outside a
// conservative allow-list so titles and clip names cannot break the
// line-oriented EDL format or a Content-Disposition header.
func SanitizeName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if isAllowedNameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if maxLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxLen {
			cleaned = string(runes[:maxLen])
		}
	}
	return cleaned
}

func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case ' ', '-', '_', '.', ',', '(', ')':
		return true
	default:
		return false
	}
}

// Filename derives a download filename for a cut list from its title.
func Filename(title string) string {
	name := SanitizeName(title, 64)
	if name == "" {
		name = "timeline"
	}
	return name + ".edl"
}
