package sources

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
)

// UnescapeEmbeddedJSON converts script text that embeds JSON as an escaped
// string literal (`{\"title\":\"...\"}`) back into raw JSON. This is the
// most fragile, site-specific piece of text processing in the pipeline, so
// it lives in one leaf function with its own tests.
func UnescapeEmbeddedJSON(s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); {
		ch := s[i]
		if ch != '\\' {
			b.WriteByte(ch)
			i++
			continue
		}
		if i+1 >= len(s) {
			return "", fmt.Errorf("dangling backslash at offset %d", i)
		}
		switch esc := s[i+1]; esc {
		case '"', '\\', '/':
			b.WriteByte(esc)
			i += 2
		case 'n':
			b.WriteByte('\n')
			i += 2
		case 't':
			b.WriteByte('\t')
			i += 2
		case 'r':
			b.WriteByte('\r')
			i += 2
		case 'b':
			b.WriteByte('\b')
			i += 2
		case 'f':
			b.WriteByte('\f')
			i += 2
		case 'u':
			r, n, err := decodeUnicodeEscape(s[i:])
			if err != nil {
				return "", fmt.Errorf("offset %d: %w", i, err)
			}
			b.WriteRune(r)
			i += n
		default:
			return "", fmt.Errorf("unknown escape \\%c at offset %d", esc, i)
		}
	}
	return b.String(), nil
}

// decodeUnicodeEscape decodes \uXXXX at the start of s, pairing surrogates
// when a second \uXXXX follows. Returns the rune and bytes consumed.
func decodeUnicodeEscape(s string) (rune, int, error) {
	if len(s) < 6 {
		return 0, 0, fmt.Errorf("truncated \\u escape")
	}
	hi, err := strconv.ParseUint(s[2:6], 16, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("bad \\u escape %q", s[:6])
	}
	r := rune(hi)
	if !utf16.IsSurrogate(r) {
		return r, 6, nil
	}
	if len(s) >= 12 && s[6] == '\\' && s[7] == 'u' {
		lo, err := strconv.ParseUint(s[8:12], 16, 32)
		if err == nil {
			if combined := utf16.DecodeRune(r, rune(lo)); combined != 0xFFFD {
				return combined, 12, nil
			}
		}
	}
	// Unpaired surrogate: emit the replacement char rather than fail the
	// whole payload.
	return 0xFFFD, 6, nil
}

// ExtractJSONArray finds `marker` in raw JSON text and returns the balanced
// array that follows it (e.g. marker `"results":` for `"results":[...]`).
// String contents are skipped so brackets inside values don't confuse the
// scan.
func ExtractJSONArray(s, marker string) (string, bool) {
	idx := strings.Index(s, marker)
	if idx < 0 {
		return "", false
	}
	rest := s[idx+len(marker):]

	start := strings.IndexByte(rest, '[')
	if start < 0 {
		return "", false
	}
	// Only whitespace may sit between the marker and the bracket.
	if strings.TrimSpace(rest[:start]) != "" {
		return "", false
	}

	depth := 0
	inString := false
	for i := start; i < len(rest); i++ {
		ch := rest[i]
		if inString {
			switch ch {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return rest[start : i+1], true
			}
		}
	}
	return "", false
}
