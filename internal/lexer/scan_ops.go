package lexer

import (
	"fmt"

	"escript/internal/diag"
	"escript/internal/token"
)

// scanOperator reads the longest run of operator characters, then gives
// characters back from the right until the remainder is a known operator.
func (lx *Lexer) scanOperator() token.Token {
	start := lx.cursor.Mark()
	for !lx.cursor.EOF() && isOpByte(lx.cursor.Peek()) {
		// "//" starts a comment even inside an operator run
		if b0, b1, ok := lx.cursor.Peek2(); ok && b0 == '/' && b1 == '/' && lx.cursor.Off > uint32(start) {
			break
		}
		lx.cursor.Bump()
	}
	for lx.cursor.Off > uint32(start) {
		sp := lx.cursor.SpanFrom(start)
		text := string(lx.file.Content[sp.Start:sp.End])
		if k, ok := token.LookupOperator(text); ok {
			return lx.make(k, sp, text)
		}
		lx.cursor.Off--
	}
	// unreachable for single operator bytes, all of which are operators
	lx.cursor.Bump()
	sp := lx.cursor.SpanFrom(start)
	return lx.make(token.Invalid, sp, string(lx.file.Content[sp.Start:sp.End]))
}

// scanStructure reads one punctuation byte, or reports an unknown character.
func (lx *Lexer) scanStructure() token.Token {
	start := lx.cursor.Mark()
	var kind token.Kind
	switch lx.cursor.Peek() {
	case '(':
		kind = token.LParen
	case ')':
		kind = token.RParen
	case '[':
		kind = token.LBracket
	case ']':
		kind = token.RBracket
	case '{':
		kind = token.LBrace
	case '}':
		kind = token.RBrace
	case ';':
		kind = token.Semicolon
	case ',':
		kind = token.Comma
	default:
		_, sz := lx.peekRune()
		lx.cursor.Advance(max(sz, 1))
		sp := lx.cursor.SpanFrom(start)
		text := string(lx.file.Content[sp.Start:sp.End])
		lx.errLex(diag.LexUnknownChar, sp, fmt.Sprintf("unknown character %q", text))
		return lx.make(token.Invalid, sp, text)
	}
	lx.cursor.Bump()
	sp := lx.cursor.SpanFrom(start)
	return lx.make(kind, sp, string(lx.file.Content[sp.Start:sp.End]))
}
