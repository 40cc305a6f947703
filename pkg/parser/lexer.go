package parser

import (
	"strings"
	"unicode"

	"github.com/leapstack-labs/leapq/pkg/token"
)

// Lexer tokenizes pipeline-language input.
//
// Newlines are significant at the top level (they separate pipeline steps)
// but not inside parentheses, braces, or brackets; the lexer tracks nesting
// depth and suppresses NEWLINE tokens while inside a group.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)
	depth   int  // bracket nesting depth

	err *Error // first lexical error, if any
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// Err returns the first lexical error encountered, if any.
func (l *Lexer) Err() *Error {
	return l.err
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// currentPos returns the current position.
func (l *Lexer) currentPos() token.Position {
	return token.Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() token.Token {
	l.skipSpaceAndComments()

	pos := l.currentPos()

	var tok token.Token
	tok.Pos = pos

	switch l.ch {
	case 0:
		tok.Type = token.EOF
		tok.Literal = ""
		return tok
	case '\n':
		l.readChar()
		if l.depth > 0 {
			return l.NextToken()
		}
		// Collapse runs of blank lines into one NEWLINE.
		for {
			l.skipSpaceAndComments()
			if l.ch != '\n' {
				break
			}
			l.readChar()
		}
		return token.Token{Type: token.NEWLINE, Literal: "\n", Pos: pos}
	case '+':
		tok = l.newToken(token.PLUS, "+")
	case '-':
		if l.peekChar() == '>' {
			l.readChar()
			tok = token.Token{Type: token.ARROW, Literal: "->", Pos: pos}
		} else {
			tok = l.newToken(token.MINUS, "-")
		}
	case '*':
		tok = l.newToken(token.STAR, "*")
	case '/':
		tok = l.newToken(token.SLASH, "/")
	case '%':
		tok = l.newToken(token.PERCENT, "%")
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.EQ, Literal: "==", Pos: pos}
		} else {
			tok = l.newToken(token.ASSIGN, "=")
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.NE, Literal: "!=", Pos: pos}
		} else {
			tok = l.newToken(token.NOT, "!")
		}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.LE, Literal: "<=", Pos: pos}
		} else {
			tok = l.newToken(token.LT, "<")
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.GE, Literal: ">=", Pos: pos}
		} else {
			tok = l.newToken(token.GT, ">")
		}
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			tok = token.Token{Type: token.AND, Literal: "&&", Pos: pos}
		} else {
			tok = l.illegal(pos, "unexpected character '&'")
		}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			tok = token.Token{Type: token.OR, Literal: "||", Pos: pos}
		} else {
			tok = l.newToken(token.PIPE, "|")
		}
	case '.':
		if l.peekChar() == '.' {
			l.readChar()
			tok = token.Token{Type: token.RANGE, Literal: "..", Pos: pos}
		} else {
			tok = l.newToken(token.DOT, ".")
		}
	case ':':
		tok = l.newToken(token.COLON, ":")
	case ',':
		tok = l.newToken(token.COMMA, ",")
	case '(':
		l.depth++
		tok = l.newToken(token.LPAREN, "(")
	case ')':
		l.closeGroup()
		tok = l.newToken(token.RPAREN, ")")
	case '{':
		l.depth++
		tok = l.newToken(token.LBRACE, "{")
	case '}':
		l.closeGroup()
		tok = l.newToken(token.RBRACE, "}")
	case '[':
		l.depth++
		tok = l.newToken(token.LBRACKET, "[")
	case ']':
		l.closeGroup()
		tok = l.newToken(token.RBRACKET, "]")
	case '\'', '"':
		lit, ok := l.readString(l.ch)
		if !ok {
			l.setErr(pos, ErrUnterminatedString, "unterminated string literal")
			return token.Token{Type: token.ILLEGAL, Literal: lit, Pos: pos}
		}
		return token.Token{Type: token.STRING, Literal: lit, Pos: pos}
	case '@':
		return token.Token{Type: token.DATE, Literal: l.readDate(), Pos: pos}
	default:
		switch {
		case isLetter(l.ch) || l.ch == '_':
			lit := l.readIdentifier()
			return token.Token{Type: token.LookupIdent(lit), Literal: lit, Pos: pos}
		case isDigit(l.ch):
			return token.Token{Type: token.NUMBER, Literal: l.readNumber(), Pos: pos}
		default:
			tok = l.illegal(pos, "unexpected character "+string(rune(l.ch)))
		}
	}

	l.readChar()
	return tok
}

func (l *Lexer) closeGroup() {
	if l.depth > 0 {
		l.depth--
	}
}

// newToken creates a new single-character token.
func (l *Lexer) newToken(t token.Type, literal string) token.Token {
	return token.Token{Type: t, Literal: literal, Pos: l.currentPos()}
}

func (l *Lexer) illegal(pos token.Position, msg string) token.Token {
	l.setErr(pos, ErrUnexpectedChar, msg)
	return token.Token{Type: token.ILLEGAL, Literal: msg, Pos: pos}
}

func (l *Lexer) setErr(pos token.Position, kind ErrorKind, msg string) {
	if l.err == nil {
		l.err = &Error{Kind: kind, Pos: pos, Message: msg}
	}
}

// skipSpaceAndComments skips horizontal whitespace and # comments.
// Newlines are left for NextToken to handle.
func (l *Lexer) skipSpaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
			l.readChar()
		}
		if l.ch == '#' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		break
	}
}

// readString reads a quoted string literal. Doubled quotes escape the quote
// character: 'it''s' -> it's.
func (l *Lexer) readString(quote byte) (string, bool) {
	l.readChar() // skip opening quote

	var result strings.Builder
	for l.ch != 0 && l.ch != '\n' {
		if l.ch == quote {
			if l.peekChar() == quote {
				result.WriteByte(quote)
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing quote
			return result.String(), true
		}
		result.WriteByte(l.ch)
		l.readChar()
	}
	return result.String(), false
}

// readDate reads an @-prefixed date literal (@2024-01-31, @2024-01-31T10:00).
func (l *Lexer) readDate() string {
	l.readChar() // skip '@'
	start := l.pos
	for isDigit(l.ch) || l.ch == '-' || l.ch == ':' || l.ch == 'T' || l.ch == '.' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readIdentifier reads an unquoted identifier.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
// A trailing '..' is left alone so ranges like 1..10 tokenize correctly.
func (l *Lexer) readNumber() string {
	start := l.pos

	for isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
	}

	if l.ch == 'e' || l.ch == 'E' {
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return strings.ReplaceAll(l.input[start:l.pos], "_", "")
}

// isLetter returns true if ch is a letter.
func isLetter(ch byte) bool {
	return unicode.IsLetter(rune(ch))
}

// isDigit returns true if ch is a digit.
func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
