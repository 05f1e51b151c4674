// Package scanner tokenizes lox source text for the compiler to consume. It
// is a hand-written scanner in the style of the reference compiler's own
// scanner: a small amount of mutable state advanced one byte at a time, with
// no dependency on the standard library's text/scanner machinery.
package scanner

import (
	"github.com/mna/lox/token"
)

// Scanner tokenizes a single source file. The zero value is not usable;
// call Init first.
type Scanner struct {
	src  string
	start int // start offset of the token currently being scanned
	cur   int // offset of the next unread byte
	line  int
}

// Init prepares s to scan source. Init may be called again to reuse s for a
// new source string.
func (s *Scanner) Init(source string) {
	s.src = source
	s.start = 0
	s.cur = 0
	s.line = 1
}

// Scan returns the next token in the source. At end of input it returns an
// EOF token forever after.
func (s *Scanner) Scan() token.Token {
	s.skipIgnored()
	s.start = s.cur

	if s.atEnd() {
		return s.make(token.EOF)
	}

	c := s.advance()
	switch {
	case isAlpha(c):
		return s.identifier()
	case isDigit(c):
		return s.number()
	}

	switch c {
	case '(':
		return s.make(token.LPAREN)
	case ')':
		return s.make(token.RPAREN)
	case '{':
		return s.make(token.LBRACE)
	case '}':
		return s.make(token.RBRACE)
	case ';':
		return s.make(token.SEMICOLON)
	case ',':
		return s.make(token.COMMA)
	case '.':
		return s.make(token.DOT)
	case '-':
		return s.make(token.MINUS)
	case '+':
		return s.make(token.PLUS)
	case '/':
		return s.make(token.SLASH)
	case '*':
		return s.make(token.STAR)
	case '!':
		return s.make(s.twoCharOr('=', token.BANG_EQ, token.BANG))
	case '=':
		return s.make(s.twoCharOr('=', token.EQ_EQ, token.EQ))
	case '<':
		return s.make(s.twoCharOr('=', token.LT_EQ, token.LT))
	case '>':
		return s.make(s.twoCharOr('=', token.GT_EQ, token.GT))
	case '"':
		return s.string()
	}

	return s.errorf("Unexpected character.")
}

func (s *Scanner) atEnd() bool { return s.cur >= len(s.src) }

func (s *Scanner) advance() byte {
	c := s.src[s.cur]
	s.cur++
	return c
}

func (s *Scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.src[s.cur]
}

func (s *Scanner) peekNext() byte {
	if s.cur+1 >= len(s.src) {
		return 0
	}
	return s.src[s.cur+1]
}

func (s *Scanner) match(want byte) bool {
	if s.atEnd() || s.src[s.cur] != want {
		return false
	}
	s.cur++
	return true
}

func (s *Scanner) twoCharOr(second byte, two, one token.Type) token.Type {
	if s.match(second) {
		return two
	}
	return one
}

func (s *Scanner) skipIgnored() {
	for {
		switch s.peek() {
		case ' ', '\r', '\t':
			s.cur++
		case '\n':
			s.line++
			s.cur++
		case '/':
			if s.peekNext() == '/' {
				for s.peek() != '\n' && !s.atEnd() {
					s.cur++
				}
			} else {
				return
			}
		default:
			return
		}
	}
}

func (s *Scanner) string() token.Token {
	for s.peek() != '"' && !s.atEnd() {
		if s.peek() == '\n' {
			s.line++
		}
		s.cur++
	}
	if s.atEnd() {
		return s.errorf("Unterminated string.")
	}
	s.cur++ // closing quote
	return s.make(token.STRING)
}

func (s *Scanner) number() token.Token {
	for isDigit(s.peek()) {
		s.cur++
	}
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.cur++ // consume '.'
		for isDigit(s.peek()) {
			s.cur++
		}
	}
	return s.make(token.NUMBER)
}

func (s *Scanner) identifier() token.Token {
	for isAlpha(s.peek()) || isDigit(s.peek()) {
		s.cur++
	}
	lexeme := s.src[s.start:s.cur]
	if kw, ok := token.Keywords[lexeme]; ok {
		return s.make(kw)
	}
	return s.make(token.IDENT)
}

func (s *Scanner) make(t token.Type) token.Token {
	return token.Token{Type: t, Lexeme: s.src[s.start:s.cur], Line: s.line}
}

func (s *Scanner) errorf(msg string) token.Token {
	return token.Token{Type: token.ILLEGAL, Lexeme: msg, Line: s.line}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
