package compiler

import (
	"fmt"

	"escript/internal/diag"
	"escript/internal/source"
	"escript/internal/token"
)

func (c *compiler) cur() token.Token { return c.toks[c.pos] }

// peek returns the token after the current one.
func (c *compiler) peek() token.Token {
	if c.pos+1 < len(c.toks) {
		return c.toks[c.pos+1]
	}
	return c.toks[len(c.toks)-1]
}

// prev returns the token before the current one, or an EOF token at the start.
func (c *compiler) prev() token.Token {
	if c.pos > 0 {
		return c.toks[c.pos-1]
	}
	return token.Token{Kind: token.EOF}
}

func (c *compiler) at(k token.Kind) bool { return c.cur().Kind == k }

// advance moves past the current token. EOF is never consumed.
func (c *compiler) advance() token.Token {
	tok := c.cur()
	if tok.Kind != token.EOF {
		c.pos++
	}
	return tok
}

// expect consumes a token of kind k or reports code at the current token.
func (c *compiler) expect(k token.Kind, code diag.Code, msg string) (token.Token, bool) {
	if c.at(k) {
		return c.advance(), true
	}
	c.errorf(code, c.cur(), "%s, found %s", msg, describe(c.cur()))
	return c.cur(), false
}

// errorf reports an error at tok. Once a statement has failed, further errors
// are counted only when the statement is restarted.
func (c *compiler) errorf(code diag.Code, tok token.Token, format string, args ...any) {
	if c.panicked {
		return
	}
	c.panicked = true
	c.errors++
	c.report(code, tok.Span, fmt.Sprintf(format, args...))
}

func (c *compiler) report(code diag.Code, sp source.Span, msg string) {
	if c.opts.Reporter == nil {
		return
	}
	if c.opts.MaxErrors > 0 && c.reported >= c.opts.MaxErrors {
		return
	}
	c.reported++
	c.opts.Reporter.Report(code, diag.SevError, sp, msg, nil)
}

func describe(tok token.Token) string {
	switch tok.Kind {
	case token.EOF:
		return "end of file"
	case token.Newline:
		return "end of line"
	case token.StringLit:
		return fmt.Sprintf("string %q", tok.Text)
	}
	if tok.Text != "" {
		return fmt.Sprintf("'%s'", tok.Text)
	}
	return tok.Kind.String()
}

// skipLine moves to the Newline or EOF that ends the current line.
func (c *compiler) skipLine() {
	for !c.at(token.Newline) && !c.at(token.EOF) {
		c.advance()
	}
}

// skipStatement drops the current line together with any lines indented
// deeper than it, so that an unsupported construct takes its body with it.
func (c *compiler) skipStatement() {
	indent := c.cur().Indent
	c.skipLine()
	for c.at(token.Newline) {
		next := c.pos + 1
		for next < len(c.toks) && c.toks[next].Kind == token.Newline {
			next++
		}
		if next >= len(c.toks) || c.toks[next].Kind == token.EOF || c.toks[next].Indent <= indent {
			return
		}
		c.pos = next
		c.skipLine()
	}
}

// endStatement checks what follows a simple statement. A ';' is consumed and
// may be followed by another statement on the same line.
func (c *compiler) endStatement() {
	switch c.cur().Kind {
	case token.Semicolon:
		c.advance()
	case token.Newline, token.EOF, token.KwElse:
	default:
		c.errorf(diag.SynExpectNewline, c.cur(), "expected end of statement, found %s", describe(c.cur()))
		c.skipLine()
	}
}
