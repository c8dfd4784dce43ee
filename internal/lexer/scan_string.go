package lexer

import (
	"escript/internal/diag"
	"escript/internal/token"
)

// scanString reads a '...' or "..." literal. There are no escapes; the token
// text excludes the quotes. A literal may span lines and is an Invalid token
// only when the input ends before the closing quote.
func (lx *Lexer) scanString() token.Token {
	start := lx.cursor.Mark()
	quote := lx.cursor.Bump()
	body := lx.cursor.Off
	newlines, lastLineStart := uint32(0), uint32(0)
	for !lx.cursor.EOF() {
		b := lx.cursor.Bump()
		if b == quote {
			text := string(lx.file.Content[body : lx.cursor.Off-1])
			tok := lx.make(token.StringLit, lx.cursor.SpanFrom(start), text)
			lx.skipLines(newlines, lastLineStart)
			return tok
		}
		if b == '\n' {
			newlines++
			lastLineStart = lx.cursor.Off
		}
	}
	sp := lx.cursor.SpanFrom(start)
	lx.errLex(diag.LexUnterminatedString, sp, "unterminated string literal")
	tok := lx.make(token.Invalid, sp, string(lx.file.Content[sp.Start:sp.End]))
	lx.skipLines(newlines, lastLineStart)
	return tok
}

// skipLines accounts for n line breaks consumed inside a token. The indent of
// the line the token started on stays in effect.
func (lx *Lexer) skipLines(n, lineStart uint32) {
	if n == 0 {
		return
	}
	lx.line += n
	lx.lineStart = lineStart
}
