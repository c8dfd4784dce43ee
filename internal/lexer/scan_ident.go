package lexer

import (
	"unicode/utf8"

	"escript/internal/diag"
	"escript/internal/token"
)

// scanIdentOrKeyword reads a maximal identifier run and classifies it as a
// keyword, a true/false/nil literal or an identifier.
func (lx *Lexer) scanIdentOrKeyword() token.Token {
	start := lx.cursor.Mark()
	for {
		b := lx.cursor.Peek()
		if b < utf8.RuneSelf {
			if lx.cursor.EOF() || !isIdentContinueByte(b) {
				break
			}
			lx.cursor.Bump()
			continue
		}
		r, sz := lx.peekRune()
		if !isIdentContinueRune(r) {
			break
		}
		lx.cursor.Advance(sz)
	}
	sp := lx.cursor.SpanFrom(start)
	text := string(lx.file.Content[sp.Start:sp.End])
	if k, ok := token.LookupKeyword(text); ok {
		return lx.make(k, sp, text)
	}
	return lx.make(token.Ident, sp, text)
}

// scanNumber reads a run of decimal digits.
func (lx *Lexer) scanNumber() token.Token {
	start := lx.cursor.Mark()
	for isDec(lx.cursor.Peek()) {
		lx.cursor.Bump()
	}
	if b := lx.cursor.Peek(); isIdentStartByte(b) {
		for isIdentContinueByte(lx.cursor.Peek()) {
			lx.cursor.Bump()
		}
		sp := lx.cursor.SpanFrom(start)
		text := string(lx.file.Content[sp.Start:sp.End])
		lx.errLex(diag.LexBadNumber, sp, "malformed number "+text)
		return lx.make(token.Invalid, sp, text)
	}
	sp := lx.cursor.SpanFrom(start)
	return lx.make(token.IntLit, sp, string(lx.file.Content[sp.Start:sp.End]))
}
