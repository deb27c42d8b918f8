// Package lexer tokenizes source text into the token.Token stream
// spec.md §6 specifies as the parser's external input: identifiers,
// keywords, INT/FLOAT/STRING literals, operators and delimiters, plus the
// explicit structural Indent/Dedent/NewLine tokens this grammar's
// indentation-sensitive blocks need. The character-scanning machinery
// (readChar/peekChar, byte-at-a-time switch in next, readIdentifier,
// readNumber, readString) is estevaofon-noxy's internal/lexer shape; the
// indent-stack algorithm that turns leading whitespace into Indent/Dedent
// tokens is new, since noxy's grammar is brace/keyword-delimited and never
// needs one.
package lexer

import (
	"langvm/internal/token"
)

type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           byte
	line         int
	column       int

	// pending holds tokens already produced but not yet returned — an
	// indent/dedent run can synthesize more than one token before the
	// next real token is known.
	pending []token.Token

	// indentStack is the stack of open indentation widths; it always
	// starts at [0].
	indentStack []int

	// atLineStart is true when the next token to produce should first
	// go through indentation accounting.
	atLineStart bool

	// emittedAnyToken tracks whether we've produced a real token yet, so
	// reaching end of input before any token doesn't synthesize a
	// terminating NEWLINE (see handleEOFInLexOne).
	emittedAnyToken bool

	done bool
}

func New(input string) *Lexer {
	l := &Lexer{
		input:       input,
		line:        1,
		indentStack: []int{0},
		atLineStart: true,
	}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// NextToken returns the next token in the stream, synthesizing
// Indent/Dedent/NewLine tokens as the indent-stack algorithm requires.
func (l *Lexer) NextToken() token.Token {
	if len(l.pending) > 0 {
		tok := l.pending[0]
		l.pending = l.pending[1:]
		return tok
	}
	if l.done {
		return l.eofToken()
	}

	if l.atLineStart {
		l.handleIndentation()
		if len(l.pending) > 0 {
			tok := l.pending[0]
			l.pending = l.pending[1:]
			return tok
		}
	}

	return l.lexOne()
}

// handleIndentation consumes blank/comment-only lines, measures the
// indentation of the next real line, and enqueues the Indent/Dedent
// tokens implied by comparing it against indentStack's top.
func (l *Lexer) handleIndentation() {
	for {
		width := 0
		for l.ch == ' ' || l.ch == '\t' {
			if l.ch == '\t' {
				width += 8 - (width % 8)
			} else {
				width++
			}
			l.readChar()
		}

		if l.ch == '#' {
			l.skipComment()
		}

		if l.ch == '\n' {
			// Blank (or comment-only) line: no Indent/Dedent/NewLine.
			l.line++
			l.column = 0
			l.readChar()
			continue
		}

		if l.ch == 0 {
			l.flushDedentsTo(0)
			l.pending = append(l.pending, l.eofToken())
			l.done = true
			l.atLineStart = false
			return
		}

		top := l.indentStack[len(l.indentStack)-1]
		switch {
		case width > top:
			l.indentStack = append(l.indentStack, width)
			l.pending = append(l.pending, token.Token{Type: token.INDENT, Line: l.line, Column: 1})
		case width < top:
			l.flushDedentsTo(width)
		}
		l.atLineStart = false
		return
	}
}

func (l *Lexer) flushDedentsTo(width int) {
	for len(l.indentStack) > 1 && l.indentStack[len(l.indentStack)-1] > width {
		l.indentStack = l.indentStack[:len(l.indentStack)-1]
		l.pending = append(l.pending, token.Token{Type: token.DEDENT, Line: l.line, Column: 1})
	}
}

func (l *Lexer) eofToken() token.Token {
	return token.Token{Type: token.EOF, Line: l.line, Column: l.column}
}

func (l *Lexer) skipComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

// lexOne scans exactly one non-structural token, handling whitespace,
// backslash-newline continuation and the NEWLINE-at-end-of-logical-line
// case before dispatching on l.ch.
func (l *Lexer) lexOne() token.Token {
	for {
		l.skipSpacesAndTabs()
		if l.ch == '\\' && l.peekChar() == '\n' {
			l.readChar() // consume backslash
			l.readChar() // consume newline
			l.line++
			l.column = 0
			continue
		}
		if l.ch == '#' {
			l.skipComment()
			continue
		}
		break
	}

	startLine, startColumn := l.line, l.column

	if l.ch == '\n' {
		l.line++
		l.column = 0
		l.readChar()
		l.atLineStart = true
		l.emittedAnyToken = true
		return token.Token{Type: token.NEWLINE, Literal: "\n", Line: startLine, Column: startColumn}
	}

	if l.ch == 0 {
		l.atLineStart = true
		return l.handleEOFInLexOne(startLine, startColumn)
	}

	var tok token.Token
	switch l.ch {
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.EQ, Literal: "=="}
		} else {
			tok = newToken(token.ASSIGN, l.ch)
		}
	case '+':
		tok = newToken(token.PLUS, l.ch)
	case '-':
		tok = newToken(token.MINUS, l.ch)
	case '*':
		tok = newToken(token.STAR, l.ch)
	case '/':
		tok = newToken(token.SLASH, l.ch)
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.LTE, Literal: "<="}
		} else {
			tok = newToken(token.LT, l.ch)
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.GTE, Literal: ">="}
		} else {
			tok = newToken(token.GT, l.ch)
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.NEQ, Literal: "!="}
		} else {
			tok = newToken(token.ILLEGAL, l.ch)
		}
	case '(':
		tok = newToken(token.LPAREN, l.ch)
	case ')':
		tok = newToken(token.RPAREN, l.ch)
	case ':':
		tok = newToken(token.COLON, l.ch)
	case ',':
		tok = newToken(token.COMMA, l.ch)
	case '"':
		lit, ok := l.readString('"')
		if !ok {
			tok = token.Token{Type: token.ILLEGAL, Literal: "unterminated string"}
		} else {
			tok = token.Token{Type: token.STRING, Literal: lit}
		}
	case '\'':
		lit, ok := l.readString('\'')
		if !ok {
			tok = token.Token{Type: token.ILLEGAL, Literal: "unterminated string"}
		} else {
			tok = token.Token{Type: token.STRING, Literal: lit}
		}
	default:
		if isLetter(l.ch) {
			lit := l.readIdentifier()
			tok = token.Token{Type: token.LookupIdent(lit), Literal: lit, Line: startLine, Column: startColumn}
			l.emittedAnyToken = true
			return tok
		}
		if isDigit(l.ch) {
			typ, lit := l.readNumber()
			tok = token.Token{Type: typ, Literal: lit, Line: startLine, Column: startColumn}
			l.emittedAnyToken = true
			return tok
		}
		tok = newToken(token.ILLEGAL, l.ch)
	}

	tok.Line, tok.Column = startLine, startColumn
	l.readChar()
	l.emittedAnyToken = true
	return tok
}

// handleEOFInLexOne synthesizes a final NEWLINE before EOF if the source
// didn't end with one, so the parser always sees a terminated last
// statement; otherwise enqueues trailing Dedents and returns EOF.
func (l *Lexer) handleEOFInLexOne(line, column int) token.Token {
	l.flushDedentsTo(0)
	l.pending = append(l.pending, l.eofToken())
	l.done = true
	if !l.emittedAnyToken {
		// Nothing to terminate.
		tok := l.pending[0]
		l.pending = l.pending[1:]
		return tok
	}
	return token.Token{Type: token.NEWLINE, Literal: "\n", Line: line, Column: column}
}

func (l *Lexer) skipSpacesAndTabs() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
		l.readChar()
	}
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readNumber() (token.Type, string) {
	position := l.position
	isFloat := false
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if isFloat {
		return token.FLOAT, l.input[position:l.position]
	}
	return token.INT, l.input[position:l.position]
}

func (l *Lexer) readString(quote byte) (string, bool) {
	l.readChar() // skip opening quote
	var out []byte
	for {
		if l.ch == 0 || l.ch == '\n' {
			return string(out), false
		}
		if l.ch == quote {
			break
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case '"':
				out = append(out, '"')
			case '\'':
				out = append(out, '\'')
			case '\\':
				out = append(out, '\\')
			default:
				out = append(out, '\\', l.ch)
			}
		} else {
			out = append(out, l.ch)
		}
		l.readChar()
	}
	l.readChar() // skip closing quote
	return string(out), true
}

func newToken(tokenType token.Type, ch byte) token.Token {
	return token.Token{Type: tokenType, Literal: string(ch)}
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
