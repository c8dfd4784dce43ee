package compiler

import (
	"errors"

	"escript/internal/bytecode"
	"escript/internal/diag"
	"escript/internal/token"
	"escript/internal/vm"
)

// declareFunctions registers every top-level function before any body is
// compiled, so calls may refer to functions declared later in the source.
func (c *compiler) declareFunctions() {
	for i := 0; i < len(c.toks); i++ {
		tok := c.toks[i]
		if tok.Kind != token.KwFunc {
			continue
		}
		if i > 0 && c.toks[i-1].Kind != token.Newline && c.toks[i-1].Kind != token.Semicolon {
			continue
		}
		if i+1 >= len(c.toks) || c.toks[i+1].Kind != token.Ident {
			continue
		}
		name := c.toks[i+1]
		params := 0
		if i+2 < len(c.toks) && c.toks[i+2].Kind == token.LParen {
			for j := i + 3; j < len(c.toks); j++ {
				k := c.toks[j].Kind
				if k == token.RParen || k == token.Newline || k == token.EOF {
					break
				}
				if k == token.Ident {
					params++
				}
			}
		}

		info := funcInfo{index: -1, params: params, returns: -1}
		idx, err := c.st.DeclareFunction(vm.Function{
			Name:   name.Text,
			Params: params,
			Chunk:  c.st.NextChunk(),
		})
		if errors.Is(err, vm.ErrDuplicateFunction) {
			c.errors++
			c.report(diag.SynDuplicateFunc, name.Span, "function '"+name.Text+"' is already declared")
		} else {
			info.index = idx
		}
		c.decls[i] = len(c.funcs)
		c.funcs = append(c.funcs, info)
	}
}

// funcDecl compiles 'func name(a, var b) body'.
func (c *compiler) funcDecl() {
	funcTok := c.advance()
	slot, declared := c.decls[c.pos-1]
	name, ok := c.expect(token.Ident, diag.SynExpectIdentifier, "expected function name")
	if ok && !declared {
		c.errorf(diag.SynExpectFunc, funcTok, "function declarations must start a line")
	}
	if !ok || !declared {
		c.skipStatement()
		return
	}
	info := &c.funcs[slot]

	c.locals = c.locals[:0]
	c.indents = append(c.indents[:0], int(funcTok.Indent))
	if _, ok := c.expect(token.LParen, diag.SynUnexpectedToken, "expected '(' after function name"); !ok {
		c.skipStatement()
		return
	}
	if !c.at(token.RParen) {
		for {
			if c.at(token.KwVar) {
				c.advance()
			}
			param, ok := c.expect(token.Ident, diag.SynExpectIdentifier, "expected parameter name")
			if !ok {
				break
			}
			c.declareLocal(param)
			if !c.at(token.Comma) {
				break
			}
			c.advance()
		}
	}
	if _, ok := c.expect(token.RParen, diag.SynExpectRParen, "expected ')' after parameters"); !ok {
		c.skipStatement()
		return
	}

	c.fn = info
	info.offset = len(c.code)
	c.target = -1
	c.beginStatement()
	c.block()
	c.implicitReturn(name)
	info.size = len(c.code) - info.offset
	c.fn = nil
	c.locals = c.locals[:0]
}

// implicitReturn appends RET 0 unless every path through the body already
// returns. A function that returns values must not run off its end.
func (c *compiler) implicitReturn(name token.Token) {
	if c.returned {
		return
	}
	if c.fn.returns > 0 {
		c.panicked = false
		c.errorf(diag.SynReturnCount, name, "function '%s' is missing a return at the end", name.Text)
		return
	}
	c.emit(bytecode.EncodeX(bytecode.OpRet, 0))
}
