package zenmill

import (
	"strings"
	"unicode/utf8"
)

const whitespace = " \t\r\n"

// lineSeparator and paragraphSeparator, together with LF/CR/CRLF, are every
// line-break sequence the grammar counts for diagnostics.
const (
	lineSeparator      rune = 0x2028
	paragraphSeparator rune = 0x2029
)

// scanner walks a template's source text, tracking byte offset plus 1-based
// line/column (in runes) as it goes, the way the teacher's chtmlParser tracks
// position incrementally rather than recomputing it from scratch on error.
type scanner struct {
	src  string
	pos  int // byte offset
	line int
	col  int
}

func newScanner(src string) *scanner {
	return &scanner{src: src, pos: 0, line: 1, col: 1}
}

func (s *scanner) eof() bool {
	return s.pos >= len(s.src)
}

func (s *scanner) position() Position {
	return Position{Offset: s.pos, Line: s.line, Column: s.col}
}

// rest returns the unconsumed tail of the source, for prefix checks.
func (s *scanner) rest() string {
	return s.src[s.pos:]
}

func (s *scanner) hasPrefix(p string) bool {
	return strings.HasPrefix(s.rest(), p)
}

// peekRune returns the next rune and its byte width without consuming it.
func (s *scanner) peekRune() (rune, int) {
	if s.eof() {
		return utf8.RuneError, 0
	}
	r, w := utf8.DecodeRuneInString(s.rest())
	return r, w
}

// next consumes and returns the next rune, updating line/col.
func (s *scanner) next() rune {
	r, w := s.peekRune()
	if w == 0 {
		return utf8.RuneError
	}
	s.pos += w
	switch r {
	case '\n':
		s.line++
		s.col = 1
	case '\r':
		// Treat CRLF as a single line break: only advance the line counter here
		// if the next byte is not '\n' (that case is handled when '\n' is
		// consumed on the following call to next).
		if !s.hasPrefix("\n") {
			s.line++
			s.col = 1
		}
	case lineSeparator, paragraphSeparator:
		s.line++
		s.col = 1
	default:
		s.col++
	}
	return r
}

// skipRunes advances n runes, discarding them.
func (s *scanner) skipRunes(n int) {
	for i := 0; i < n; i++ {
		if s.eof() {
			return
		}
		s.next()
	}
}

// consumeLiteral consumes the given literal if it is present at the current
// position, returning true on success. It does not partially consume.
func (s *scanner) consumeLiteral(lit string) bool {
	if !s.hasPrefix(lit) {
		return false
	}
	for range lit {
		// lit is ASCII in every call site, so byte-stepping with next() is safe
		// and keeps line/col bookkeeping centralized in next().
		s.next()
	}
	return true
}

func (s *scanner) skipWS() {
	for {
		r, w := s.peekRune()
		if w == 0 || strings.IndexRune(whitespace, r) < 0 {
			return
		}
		s.next()
	}
}

func isWS(r rune) bool {
	return strings.IndexRune(whitespace, r) >= 0
}

func isNameStart(r rune) bool {
	return r >= 'a' && r <= 'z'
}

func isNameChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
}

// scanName consumes a NAME token ([a-z][A-Za-z0-9_]*), returning "" if the
// current position is not a valid name start.
func (s *scanner) scanName() string {
	r, w := s.peekRune()
	if w == 0 || !isNameStart(r) {
		return ""
	}
	start := s.pos
	s.next()
	for {
		r, w := s.peekRune()
		if w == 0 || !isNameChar(r) {
			break
		}
		s.next()
	}
	return s.src[start:s.pos]
}
