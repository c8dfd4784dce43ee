package compiler

import (
	"strconv"

	"fortio.org/safecast"

	"escript/internal/bytecode"
	"escript/internal/diag"
	"escript/internal/token"
)

// expression compiles operators of precedence lowest and above and leaves
// one operand on the operand stack.
func (c *compiler) expression(lowest prec) {
	c.prefix()
	for {
		p := binaryPrec(c.cur().Kind)
		if p == precNone || p < lowest {
			return
		}
		c.binary(p)
	}
}

func (c *compiler) prefix() {
	tok := c.cur()
	switch {
	case tok.IsLiteral():
		c.literal(false)
	case tok.Kind == token.Minus && c.peek().Kind == token.IntLit:
		c.literal(true)
	case tok.IsOperator():
		c.unary()
	case tok.Kind == token.LParen:
		c.grouping()
	case tok.Kind == token.Ident:
		if c.peek().Kind == token.LParen {
			c.call()
		} else {
			c.variable()
		}
	default:
		c.errorf(diag.SynExpectExpression, tok, "expected expression, found %s", describe(tok))
		c.push(bytecode.Reg(0))
		if !tok.EndsStatement() {
			c.advance()
		}
	}
}

// loose reports whether the tokens first..last stand alone, with no operator
// directly before or after them. A loose operand is loaded into a register;
// one next to an operator is used in place.
func (c *compiler) loose(first, last int) bool {
	if first > 0 && c.toks[first-1].IsOperator() {
		return false
	}
	if last+1 < len(c.toks) && c.toks[last+1].IsOperator() {
		return false
	}
	return true
}

// literal compiles a literal, optionally preceded by a '-' sign.
func (c *compiler) literal(negative bool) {
	first := c.pos
	if negative {
		c.advance()
	}
	tok := c.advance()
	loose := c.loose(first, c.pos-1)

	var k int
	switch tok.Kind {
	case token.IntLit:
		text := tok.Text
		if negative {
			text = "-" + text
		}
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			c.errorf(diag.SynBadLiteral, tok, "integer literal %s does not fit in 64 bits", text)
			c.push(bytecode.Reg(0))
			return
		}
		if iv, err := safecast.Conv[int32](v); loose && err == nil && iv >= bytecode.MinSY && iv <= bytecode.MaxSY {
			r := c.alloc()
			c.emit(bytecode.EncodeAY(bytecode.OpMovi, r, bytecode.SignedBits(bytecode.SizeY, iv)))
			c.push(bytecode.Reg(r))
			return
		}
		k = c.st.AddInt(v)
	case token.StringLit:
		k = c.st.AddString(tok.Text)
	case token.TrueLit:
		k = c.st.AddBool(true)
	case token.FalseLit:
		k = c.st.AddBool(false)
	default:
		k = c.st.AddNil()
	}

	operand := c.konst(k)
	if loose {
		r := c.alloc()
		c.emit(bytecode.EncodeAY(bytecode.OpMov, r, operand))
		operand = bytecode.Reg(r)
	}
	c.push(operand)
}

func (c *compiler) unary() {
	opTok := c.advance()
	op, ok := unaryOp(opTok.Kind)
	if !ok {
		c.errorf(diag.SynExpectExpression, opTok, "expected unary operator, found %s", describe(opTok))
	}
	c.expression(precUnary + 1)
	operand := c.pop()
	if !ok {
		c.push(operand)
		return
	}

	var dest uint32
	if c.isTemp(operand) {
		dest = bytecode.Index(operand)
	} else {
		dest = c.alloc()
	}
	c.nextReg = int(dest) + 1
	c.emit(bytecode.EncodeAY(op, dest, operand))
	c.push(bytecode.Reg(dest))
}

func (c *compiler) grouping() {
	c.advance()
	c.expression(precAssignment)
	c.expect(token.RParen, diag.SynExpectRParen, "expected ')'")
}

func (c *compiler) binary(p prec) {
	opTok := c.advance()
	lh := c.pop()
	c.expression(p + 1)
	rh := c.pop()

	op, swap, ok := binaryOp(opTok.Kind)
	if !ok {
		c.errorf(diag.SynUnsupported, opTok, "'%s' is not yet supported", opTok.Text)
		c.push(lh)
		return
	}
	if swap {
		lh, rh = rh, lh
	}
	lh, rh = c.rk(lh), c.rk(rh)

	var dest uint32
	switch {
	case c.isTemp(lh):
		dest = bytecode.Index(lh)
	case c.isTemp(rh):
		dest = bytecode.Index(rh)
	default:
		dest = c.alloc()
	}
	c.nextReg = int(dest) + 1
	c.emit(bytecode.EncodeABC(op, dest, lh, rh))
	c.push(bytecode.Reg(dest))
}

// local returns the register of a local variable.
func (c *compiler) local(name string) (int, bool) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i] == name {
			return i, true
		}
	}
	return -1, false
}

// variable compiles a bare name: a local, or a function used as a value.
func (c *compiler) variable() {
	tok := c.advance()
	var operand uint32
	if r, ok := c.local(tok.Text); ok {
		operand = bytecode.Reg(c.regNum(r))
	} else if fn, ok := c.st.FunctionIndex(tok.Text); ok {
		operand = c.konst(c.st.AddFunc(fn))
	} else {
		c.errorf(diag.SynUndefinedName, tok, "variable '%s' is not defined", tok.Text)
		c.push(bytecode.Reg(0))
		return
	}
	if c.loose(c.pos-1, c.pos-1) {
		r := c.alloc()
		c.emit(bytecode.EncodeAY(bytecode.OpMov, r, operand))
		operand = bytecode.Reg(r)
	}
	c.push(operand)
}

// call compiles name(args...). Argument i is placed in register base+i and
// the callee leaves its first result in base.
func (c *compiler) call() {
	name := c.advance()
	c.advance() // (

	base := c.nextReg
	n := 0
	if !c.at(token.RParen) {
		for {
			c.nextReg = base + n
			c.expression(precOr)
			c.store(c.regNum(base+n), c.pop())
			n++
			c.nextReg = base + n
			if !c.at(token.Comma) {
				break
			}
			c.advance()
		}
	}
	c.expect(token.RParen, diag.SynExpectRParen, "expected ')' after arguments")

	baseReg := c.regNum(base)
	c.nextReg = base + 1
	c.push(bytecode.Reg(baseReg))

	if _, isLocal := c.local(name.Text); isLocal {
		c.errorf(diag.SynNotCallable, name, "'%s' is a variable, not a function", name.Text)
		return
	}
	fn, ok := c.st.FunctionIndex(name.Text)
	if !ok {
		c.errorf(diag.SynUndefinedName, name, "function '%s' is not defined", name.Text)
		return
	}
	if params := c.st.Function(fn).Params; params != n {
		c.errorf(diag.SynArgCount, name, "'%s' takes %d arguments, got %d", name.Text, params, n)
		return
	}
	idx, err := safecast.Conv[uint32](fn)
	if err != nil || idx > bytecode.MaxY {
		c.errorf(diag.SynUnsupported, name, "function index %d does not fit a call", fn)
		return
	}
	c.emit(bytecode.EncodeAY(bytecode.OpCall, baseReg, idx))
}
