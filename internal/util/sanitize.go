package util

import (
	"fmt"
	"strings"
	"unicode"

	"go-plan-portal/pkg/apierror"
)

// CleanDisplayName strips control and invisible characters from a
// user-supplied name, collapses runs of whitespace and enforces a rune limit.
func CleanDisplayName(name string, maxRunes int) (string, error) {
	if strings.Contains(name, "\x00") {
		return "", apierror.BadRequest("name contains null bytes", "name")
	}

	builder := strings.Builder{}
	builder.Grow(len(name))

	for _, char := range name {
		if isInvisibleUnicode(char) {
			continue
		}
		if unicode.IsControl(char) {
			char = ' '
		}
		builder.WriteRune(char)
	}

	cleaned := strings.Join(strings.Fields(builder.String()), " ")
	if cleaned == "" {
		return "", apierror.BadRequest("name is required", "name")
	}

	if maxRunes > 0 && len([]rune(cleaned)) > maxRunes {
		return "", apierror.BadRequest("name is too long", fmt.Sprintf("at most %d characters", maxRunes))
	}

	return cleaned, nil
}

// isInvisibleUnicode reports zero-width and other format characters.
func isInvisibleUnicode(r rune) bool {
	switch r {
	case '\u200B', '\u200C', '\u200D', '\u200E', '\u200F', '\u2060', '\uFEFF':
		return true
	}

	return unicode.Is(unicode.Cf, r)
}
