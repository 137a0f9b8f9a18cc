package views

import (
	"strings"
	"unicode/utf8"
)

// sanitize drops codepoints that tcell renders with the wrong width: skin tone
// modifiers, zero width joiners and variation selectors. A thumbs up with a
// skin tone becomes a plain two-cell thumbs up.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !unstableWidth(r) {
			b.WriteRune(r)
		}
		i += size
	}
	return b.String()
}

func unstableWidth(r rune) bool {
	switch {
	case r >= 0x1F3FB && r <= 0x1F3FF:
		return true
	case r == 0x200D:
		return true
	case r >= 0xFE00 && r <= 0xFE0F:
		return true
	case r >= 0xE0100 && r <= 0xE01EF:
		return true
	default:
		return false
	}
}
