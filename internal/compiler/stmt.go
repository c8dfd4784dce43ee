package compiler

import (
	"fortio.org/safecast"

	"escript/internal/bytecode"
	"escript/internal/diag"
	"escript/internal/token"
)

// singleLine marks a block that ends with its line.
const singleLine = -1

// beginStatement resets the per-statement state.
func (c *compiler) beginStatement() {
	c.panicked = false
	c.operands = c.operands[:0]
	c.nextReg = len(c.locals)
	c.stmtStart = len(c.code)
	c.returned = false
}

func (c *compiler) statement() {
	c.beginStatement()
	start := c.pos

	tok := c.cur()
	switch tok.Kind {
	case token.KwBlock:
		c.advance()
		c.block()
		return
	case token.KwIf:
		c.ifStmt()
		return
	case token.KwVar:
		c.varDecl()
	case token.KwReturn:
		c.returnStmt()
	case token.Ident:
		if c.peek().Kind == token.LParen {
			c.expression(precOr)
			c.pop()
		} else {
			c.assignment()
		}
	case token.KwFor, token.KwSwitch, token.KwBreak, token.KwContinue:
		c.errorf(diag.SynUnsupported, tok, "'%s' statements are not yet supported", tok.Text)
		c.skipStatement()
		return
	case token.KwFunc:
		c.errorf(diag.SynUnsupported, tok, "nested functions are not supported")
		c.skipStatement()
		return
	case token.Semicolon:
		c.advance()
		return
	default:
		c.errorf(diag.SynUnexpectedToken, tok, "expected statement, found %s", describe(tok))
		c.skipLine()
		return
	}
	if c.pos == start && !c.cur().EndsStatement() {
		c.advance()
	}
	c.endStatement()
}

// parentIndent is the indent of the innermost multi-line block.
func (c *compiler) parentIndent() int {
	for i := len(c.indents) - 1; i >= 0; i-- {
		if c.indents[i] != singleLine {
			return c.indents[i]
		}
	}
	return -1
}

// block compiles a block body. A body starting on the next line runs while
// lines keep its indent; otherwise it runs to the end of the current line.
// Locals declared inside are dropped at the end.
func (c *compiler) block() {
	c.returned = false
	if c.at(token.Semicolon) {
		c.advance()
		return
	}
	indent := singleLine
	if c.at(token.Newline) {
		for c.at(token.Newline) {
			c.advance()
		}
		indent = int(c.cur().Indent)
		if c.at(token.EOF) || indent <= c.parentIndent() {
			c.errorf(diag.SynBadIndent, c.cur(), "block must be indented deeper than its parent")
			return
		}
	}

	c.indents = append(c.indents, indent)
	scope := len(c.locals)
	for {
		tok := c.cur()
		if tok.Kind == token.EOF {
			break
		}
		if indent == singleLine {
			if tok.Kind == token.Newline || tok.Kind == token.KwElse {
				break
			}
		} else {
			if tok.Kind == token.Newline {
				c.advance()
				continue
			}
			if int(tok.Indent) < indent {
				break
			}
			if int(tok.Indent) > indent {
				c.panicked = false
				c.errorf(diag.SynBadIndent, tok, "unexpected indent")
				c.skipStatement()
				continue
			}
		}
		c.statement()
	}
	c.locals = c.locals[:scope]
	c.indents = c.indents[:len(c.indents)-1]
}

// declareLocal binds name to the next register of the current function.
func (c *compiler) declareLocal(name token.Token) (uint32, bool) {
	if r, ok := c.local(name.Text); ok {
		c.errorf(diag.SynRedeclared, name, "variable '%s' redeclared", name.Text)
		return c.regNum(r), false
	}
	if len(c.locals) > bytecode.MaxA {
		c.errorf(diag.SynTooManyRegisters, name, "too many local variables")
		return bytecode.MaxA, false
	}
	c.locals = append(c.locals, name.Text)
	return c.regNum(len(c.locals) - 1), true
}

// varDecl compiles 'var a, b [= values]'. Locals without a value start as 0.
func (c *compiler) varDecl() {
	c.advance()
	var targets []uint32
	var fresh []uint32
	for {
		name, ok := c.expect(token.Ident, diag.SynExpectIdentifier, "expected variable name")
		if !ok {
			c.skipLine()
			return
		}
		r, isNew := c.declareLocal(name)
		targets = append(targets, r)
		if isNew {
			fresh = append(fresh, r)
		}
		if !c.at(token.Comma) {
			break
		}
		c.advance()
	}
	c.nextReg = len(c.locals)

	if c.at(token.Assign) {
		c.assign(targets)
		return
	}
	for _, r := range fresh {
		c.emit(bytecode.EncodeAY(bytecode.OpMovi, r, 0))
	}
}

// assignment compiles 'a, b = values' and 'a op= value'.
func (c *compiler) assignment() {
	var targets []uint32
	for {
		name, ok := c.expect(token.Ident, diag.SynExpectIdentifier, "expected variable name")
		if !ok {
			c.skipLine()
			return
		}
		r, found := c.local(name.Text)
		if !found {
			c.errorf(diag.SynUndefinedName, name, "variable '%s' is not defined", name.Text)
			r = 0
		}
		targets = append(targets, c.regNum(r))
		if !c.at(token.Comma) {
			break
		}
		c.advance()
	}

	tok := c.cur()
	if !tok.Kind.IsAssign() {
		c.errorf(diag.SynUnexpectedToken, tok, "expected '=' in assignment, found %s", describe(tok))
		c.skipLine()
		return
	}
	if op, ok := tok.Kind.CompoundOp(); ok {
		c.advance()
		if len(targets) != 1 {
			c.errorf(diag.SynArity, tok, "'%s' takes exactly one target", tok.Text)
		}
		c.compound(targets[0], op)
		return
	}
	c.assign(targets)
}

// assign compiles '= values' into targets. One value is broadcast to every
// target; otherwise the counts must match. With several values all of them
// are computed before any target is written.
func (c *compiler) assign(targets []uint32) {
	eq := c.advance()
	if len(targets) == 1 {
		c.expression(precOr)
		value := c.pop()
		if c.at(token.Comma) {
			c.errorf(diag.SynArity, eq, "assignment has too many expressions")
			return
		}
		c.store(targets[0], value)
		return
	}

	values := c.valueList()
	switch {
	case len(values) == 1:
		for _, t := range targets {
			c.emit(bytecode.EncodeAY(bytecode.OpMov, t, values[0]))
		}
	case len(values) > len(targets):
		c.errorf(diag.SynArity, eq, "assignment has too many expressions")
	case len(values) < len(targets):
		c.errorf(diag.SynArity, eq, "assignment has too few expressions")
	default:
		for i, t := range targets {
			c.emit(bytecode.EncodeAY(bytecode.OpMov, t, values[i]))
		}
	}
}

// valueList compiles comma-separated expressions into increasing temporaries.
func (c *compiler) valueList() []uint32 {
	var values []uint32
	for {
		c.expression(precOr)
		values = append(values, c.toTemp(c.pop()))
		if !c.at(token.Comma) {
			return values
		}
		c.advance()
	}
}

// compound compiles 'target op= value' as 'target = target op value'.
func (c *compiler) compound(target uint32, k token.Kind) {
	c.expression(precOr)
	rh := c.rk(c.pop())
	op, _, _ := binaryOp(k)
	c.emit(bytecode.EncodeABC(op, target, bytecode.Reg(target), rh))
}

// returnStmt stores the values into registers 0..n-1 and emits RET n.
func (c *compiler) returnStmt() {
	tok := c.advance()
	var values []uint32
	if !c.cur().EndsStatement() && !c.at(token.KwElse) {
		values = c.valueList()
	}
	for i, v := range values {
		c.store(c.regNum(i), v)
	}
	n, err := safecast.Conv[uint32](len(values))
	if err != nil {
		c.errorf(diag.SynReturnCount, tok, "too many return values")
		return
	}
	c.emit(bytecode.EncodeX(bytecode.OpRet, n))
	c.returned = true

	if c.fn == nil {
		return
	}
	switch {
	case c.fn.returns < 0:
		c.fn.returns = len(values)
	case c.fn.returns != len(values):
		c.errorf(diag.SynReturnCount, tok, "function returns %d values here but %d before", len(values), c.fn.returns)
	}
}

// ifStmt compiles 'if cond body [else body | else if ...]'. A false
// condition skips the body with JMP 0; a taken body jumps over the else part
// with JMP 2.
func (c *compiler) ifStmt() {
	ifTok := c.advance()
	c.expression(precOr)
	cond := c.pop()
	if bytecode.IsConst(cond) || !c.lastWrites(bytecode.Index(cond)) {
		r := c.alloc()
		c.emit(bytecode.EncodeAY(bytecode.OpMov, r, cond))
	}
	skipBody := c.emit(0)

	c.beginStatement()
	c.block()
	bodyReturned := c.returned

	if !c.elseFollows(ifTok) {
		c.jumpHere(skipBody, 0)
		c.returned = false
		return
	}
	skipElse := c.emit(0)
	c.jumpHere(skipBody, 0)
	c.advance() // else
	c.beginStatement()
	if c.at(token.KwIf) {
		c.ifStmt()
	} else {
		c.block()
	}
	c.jumpHere(skipElse, 2)
	c.returned = bodyReturned && c.returned
}

// elseFollows reports whether an 'else' on the if's line or indent comes
// next, and moves to it.
func (c *compiler) elseFollows(ifTok token.Token) bool {
	next := c.pos
	for next < len(c.toks) && c.toks[next].Kind == token.Newline {
		next++
	}
	if next >= len(c.toks) {
		return false
	}
	tok := c.toks[next]
	if tok.Kind != token.KwElse || tok.Indent != ifTok.Indent {
		return false
	}
	c.pos = next
	return true
}
