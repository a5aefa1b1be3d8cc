package parser

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
)

// Normalize decodes \uXXXX escapes into the characters they name. UTF-16
// surrogate pairs are joined. Escaped backslashes, lone surrogates and the
// backslash escape itself (\) are left as written, so the output never
// contains an escape that a second pass would decode: Normalize is idempotent.
func Normalize(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			i++
			continue
		}
		if i+1 < len(s) && s[i+1] == '\\' {
			b.WriteString(`\\`)
			i += 2
			continue
		}

		r, ok := hexEscape(s, i)
		if !ok {
			b.WriteByte('\\')
			i++
			continue
		}

		switch {
		case r == '\\':
			b.WriteString(s[i : i+6])
			i += 6
		case utf16.IsSurrogate(r):
			low, ok := hexEscape(s, i+6)
			if ok {
				if dec := utf16.DecodeRune(r, low); dec != unicode.ReplacementChar {
					b.WriteRune(dec)
					i += 12
					continue
				}
			}
			b.WriteString(s[i : i+6])
			i += 6
		default:
			b.WriteRune(r)
			i += 6
		}
	}
	return b.String()
}

// hexEscape reads a \uXXXX escape starting at s[i].
func hexEscape(s string, i int) (rune, bool) {
	if i+6 > len(s) || s[i] != '\\' || s[i+1] != 'u' {
		return 0, false
	}
	v, err := strconv.ParseUint(s[i+2:i+6], 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(v), true
}
