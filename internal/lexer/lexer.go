// Package lexer turns escript source into a token stream with significant
// newlines. Every token records the indent (leading spaces) of its line; a
// Newline token records the indent of the line it ends.
package lexer

import (
	"escript/internal/source"
	"escript/internal/token"
)

// Lexer produces the tokens of one source file on demand.
type Lexer struct {
	file   *source.File
	cursor Cursor
	opts   Options
	look   *token.Token

	line      uint32
	lineStart uint32
	indent    uint32
	bol       bool // at the beginning of a line, indent not yet measured
}

// New creates a lexer positioned at the start of file.
func New(file *source.File, opts Options) *Lexer {
	return &Lexer{
		file:   file,
		cursor: NewCursor(file),
		opts:   opts,
		line:   1,
		bol:    true,
	}
}

// All lexes the whole file. The result always ends with EOF.
func All(file *source.File, opts Options) []token.Token {
	lx := New(file, opts)
	out := make([]token.Token, 0, len(file.Content)/3+1)
	for {
		tok := lx.Next()
		out = append(out, tok)
		if tok.Kind == token.EOF {
			return out
		}
	}
}

// Next returns the next token. After EOF it keeps returning EOF.
func (lx *Lexer) Next() token.Token {
	if lx.look != nil {
		tok := *lx.look
		lx.look = nil
		return tok
	}
	if lx.bol {
		lx.measureIndent()
	}
	lx.skipBlanksAndComments()

	if lx.cursor.EOF() {
		return lx.make(token.EOF, lx.emptySpan(), "")
	}

	ch := lx.cursor.Peek()
	switch {
	case ch == '\n':
		start := lx.cursor.Mark()
		lx.cursor.Bump()
		tok := lx.make(token.Newline, lx.cursor.SpanFrom(start), "\n")
		lx.line++
		lx.lineStart = lx.cursor.Off
		lx.bol = true
		return tok
	case isIdentStartByte(ch):
		return lx.scanIdentOrKeyword()
	case ch >= 0x80:
		if r, _ := lx.peekRune(); isIdentStartRune(r) {
			return lx.scanIdentOrKeyword()
		}
		return lx.scanStructure()
	case isDec(ch):
		return lx.scanNumber()
	case ch == '"' || ch == '\'':
		return lx.scanString()
	case isOpByte(ch):
		return lx.scanOperator()
	default:
		return lx.scanStructure()
	}
}

// Peek returns the next token without consuming it.
func (lx *Lexer) Peek() token.Token {
	t := lx.Next()
	lx.look = &t
	return t
}

// measureIndent counts the leading spaces of the current line.
func (lx *Lexer) measureIndent() {
	lx.bol = false
	n := uint32(0)
	for lx.cursor.Peek() == ' ' {
		lx.cursor.Bump()
		n++
	}
	lx.indent = n
}

func (lx *Lexer) skipBlanksAndComments() {
	for !lx.cursor.EOF() {
		switch b := lx.cursor.Peek(); b {
		case ' ', '\t', '\r', '\v', '\f':
			lx.cursor.Bump()
		case '/':
			b0, b1, ok := lx.cursor.Peek2()
			if !ok || b0 != '/' || b1 != '/' {
				return
			}
			for !lx.cursor.EOF() && lx.cursor.Peek() != '\n' {
				lx.cursor.Bump()
			}
		default:
			return
		}
	}
}

func (lx *Lexer) make(k token.Kind, sp source.Span, text string) token.Token {
	return token.Token{
		Kind:   k,
		Span:   sp,
		Text:   text,
		Line:   lx.line,
		Col:    sp.Start - lx.lineStart + 1,
		Indent: lx.indent,
	}
}

func (lx *Lexer) emptySpan() source.Span {
	return source.Span{File: lx.file.ID, Start: lx.cursor.Off, End: lx.cursor.Off}
}
