package gridobject

import "strings"

// scanner walks a JavaScript source fragment while keeping track of string literals and
// comments so structural characters inside them are never mistaken for syntax.
type scanner struct {
	src string
	pos int
}

// skipNonCode advances past a string literal or comment starting at pos, it reports
// whether anything was skipped.
func (s *scanner) skipNonCode() bool {
	c := s.src[s.pos]
	switch {
	case c == '"' || c == '\'' || c == '`':
		s.pos++
		for s.pos < len(s.src) {
			switch s.src[s.pos] {
			case '\\':
				s.pos += 2
				continue
			case c:
				s.pos++
				return true
			}
			s.pos++
		}
		// an escape as the final byte can step past the end
		s.pos = min(s.pos, len(s.src))
		return true
	case strings.HasPrefix(s.src[s.pos:], "//"):
		end := strings.IndexByte(s.src[s.pos:], '\n')
		if end < 0 {
			s.pos = len(s.src)
		} else {
			s.pos += end + 1
		}
		return true
	case strings.HasPrefix(s.src[s.pos:], "/*"):
		end := strings.Index(s.src[s.pos+2:], "*/")
		if end < 0 {
			s.pos = len(s.src)
		} else {
			s.pos += end + 4
		}
		return true
	}
	return false
}

func isOpen(c byte) bool {
	return c == '(' || c == '{' || c == '['
}

func isClose(c byte) bool {
	return c == ')' || c == '}' || c == ']'
}

// topLevelComma returns the index of the first comma at nesting depth zero at or after pos,
// or -1 when the enclosing expression closes first.
func topLevelComma(src string, pos int) int {
	s := scanner{src: src, pos: pos}
	depth := 0
	for s.pos < len(s.src) {
		if s.skipNonCode() {
			continue
		}
		c := s.src[s.pos]
		switch {
		case isOpen(c):
			depth++
		case isClose(c):
			if depth == 0 {
				return -1
			}
			depth--
		case c == ',' && depth == 0:
			return s.pos
		}
		s.pos++
	}
	return -1
}

// balancedEnd returns the index just past the bracket that closes the one at start,
// or -1 when the source ends first.
func balancedEnd(src string, start int) int {
	s := scanner{src: src, pos: start}
	depth := 0
	for s.pos < len(s.src) {
		if s.skipNonCode() {
			continue
		}
		c := s.src[s.pos]
		switch {
		case isOpen(c):
			depth++
		case isClose(c):
			depth--
			if depth == 0 {
				return s.pos + 1
			}
		}
		s.pos++
	}
	return -1
}

// normalizeLiteral prepares a JS object literal for the json5 parser. It removes every comma
// that is directly followed (ignoring whitespace) by a closing brace or bracket and rewrites
// `\xHH` escapes inside quoted strings as `\u00HH`. Commas inside strings and comments are
// left untouched.
func normalizeLiteral(src string) string {
	var out strings.Builder
	out.Grow(len(src))

	s := scanner{src: src}
	for s.pos < len(s.src) {
		start := s.pos
		if s.skipNonCode() {
			segment := s.src[start:s.pos]
			if segment[0] == '"' || segment[0] == '\'' {
				segment = rewriteHexEscapes(segment)
			}
			out.WriteString(segment)
			continue
		}
		c := s.src[s.pos]
		if c == ',' {
			next := s.pos + 1
			for next < len(s.src) && isSpace(s.src[next]) {
				next++
			}
			if next < len(s.src) && (s.src[next] == '}' || s.src[next] == ']') {
				s.pos++
				continue
			}
		}
		out.WriteByte(c)
		s.pos++
	}
	return out.String()
}

// rewriteHexEscapes turns every `\xHH` escape of a string literal into `\u00HH`, which json5
// understands. Other escapes (including an escaped backslash before an `x`) are copied as is.
func rewriteHexEscapes(literal string) string {
	if !strings.Contains(literal, `\x`) {
		return literal
	}
	var out strings.Builder
	out.Grow(len(literal) + 8)
	for i := 0; i < len(literal); i++ {
		c := literal[i]
		if c != '\\' || i+1 >= len(literal) {
			out.WriteByte(c)
			continue
		}
		if literal[i+1] == 'x' && i+3 < len(literal) && isHex(literal[i+2]) && isHex(literal[i+3]) {
			out.WriteString(`\u00`)
			out.WriteString(literal[i+2 : i+4])
			i += 3
			continue
		}
		out.WriteByte(c)
		out.WriteByte(literal[i+1])
		i++
	}
	return out.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}
