package pagedjson

import "go.llib.dev/pagekit/pkg/errorkit"

// errShortBuffer signals that the current byte window ended before a complete
// token could be scanned, and the attempt should be retried once more bytes arrived.
const errShortBuffer errorkit.Error = "pagedjson: short buffer"

func skipSpace(win []byte, pos int) int {
	for pos < len(win) {
		switch win[pos] {
		case ' ', '\t', '\n', '\r':
			pos++
		default:
			return pos
		}
	}
	return pos
}

// scanValue scans one complete JSON value starting at pos and returns the position past it.
//
// The scan is purely structural, it only guarantees that the value is complete,
// full validity is the deserializer's concern.
// When final is false and the window ends mid-value, errShortBuffer is returned
// so the caller can retry the very same scan once more bytes are available.
func scanValue(win []byte, pos int, final bool) (int, error) {
	pos = skipSpace(win, pos)
	if pos >= len(win) {
		if final {
			return 0, ErrMalformed.F("unexpected end of input, expected a value")
		}
		return 0, errShortBuffer
	}
	switch c := win[pos]; {
	case c == '"':
		return scanString(win, pos, final)
	case c == '{' || c == '[':
		return scanContainer(win, pos, final)
	case c == 't':
		return scanLiteral(win, pos, "true", final)
	case c == 'f':
		return scanLiteral(win, pos, "false", final)
	case c == 'n':
		return scanLiteral(win, pos, "null", final)
	case c == '-' || ('0' <= c && c <= '9'):
		return scanNumber(win, pos, final)
	default:
		return 0, ErrMalformed.F("unexpected character %q", c)
	}
}

func scanString(win []byte, pos int, final bool) (int, error) {
	var escaped bool
	for i := pos + 1; i < len(win); i++ {
		if escaped {
			escaped = false
			continue
		}
		switch win[i] {
		case '\\':
			escaped = true
		case '"':
			return i + 1, nil
		}
	}
	if final {
		return 0, ErrMalformed.F("unterminated string")
	}
	return 0, errShortBuffer
}

func scanContainer(win []byte, pos int, final bool) (int, error) {
	var (
		depth    int
		inString bool
		escaped  bool
	)
	for i := pos; i < len(win); i++ {
		c := win[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i + 1, nil
			}
		}
	}
	if final {
		return 0, ErrMalformed.F("unterminated %q", win[pos])
	}
	return 0, errShortBuffer
}

func scanLiteral(win []byte, pos int, lit string, final bool) (int, error) {
	if len(win)-pos < len(lit) {
		if hasPrefix(win[pos:], lit) {
			if final {
				return 0, ErrMalformed.F("unterminated literal")
			}
			return 0, errShortBuffer
		}
		if !final {
			return 0, errShortBuffer
		}
		return 0, ErrMalformed.F("unexpected literal")
	}
	for i := 0; i < len(lit); i++ {
		if win[pos+i] != lit[i] {
			return 0, ErrMalformed.F("expected %q literal", lit)
		}
	}
	return pos + len(lit), nil
}

func hasPrefix(win []byte, lit string) bool {
	for i := 0; i < len(win) && i < len(lit); i++ {
		if win[i] != lit[i] {
			return false
		}
	}
	return true
}

func scanNumber(win []byte, pos int, final bool) (int, error) {
	i := pos
	for ; i < len(win); i++ {
		switch c := win[i]; {
		case '0' <= c && c <= '9':
		case c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E':
		default:
			return i, nil
		}
	}
	// a number can only be known complete when a non-number character
	// or the definite end of the input follows it
	if final {
		return i, nil
	}
	return 0, errShortBuffer
}
