package asm

import (
	"strconv"
	"strings"

	"fortio.org/safecast"

	"escript/internal/bytecode"
	"escript/internal/diag"
)

// prefixed splits "r12" or "K3" into its lower-case prefix and index.
func prefixed(s string) (byte, uint64, bool) {
	if len(s) < 2 {
		return 0, 0, false
	}
	p := s[0] | 0x20
	if p != 'r' && p != 'k' {
		return 0, 0, false
	}
	n, err := strconv.ParseUint(s[1:], 10, 32)
	if err != nil {
		return 0, 0, false
	}
	return p, n, true
}

func kindName(k bytecode.ArgKind) string {
	switch k {
	case bytecode.ArgR:
		return "register"
	case bytecode.ArgOR:
		return "optional register"
	case bytecode.ArgK:
		return "constant"
	case bytecode.ArgRK:
		return "register or constant"
	case bytecode.ArgI:
		return "immediate"
	case bytecode.ArgSI:
		return "signed immediate"
	}
	return "unknown"
}

// operand encodes field f of the instruction at pos as kind, for a field of size bits.
func (a *assembler) operand(pos int, op bytecode.Opcode, kind bytecode.ArgKind, size uint, f field) (uint32, bool) {
	limit := uint64(1)<<size - 1
	switch kind {
	case bytecode.ArgR:
		if p, n, ok := prefixed(f.text); ok && p == 'r' {
			return a.fit(f, n, limit, "register")
		}
	case bytecode.ArgOR:
		if f.text == "0" {
			return 0, true
		}
		if p, n, ok := prefixed(f.text); ok && p == 'r' {
			return a.fit(f, n+1, limit, "register")
		}
	case bytecode.ArgK:
		if p, _, ok := prefixed(f.text); !ok || p == 'k' {
			k, ok := a.constant(f)
			if !ok {
				return 0, false
			}
			return a.fit(f, uint64(k), limit, "constant index")
		}
	case bytecode.ArgRK:
		if p, n, ok := prefixed(f.text); ok && p == 'r' {
			v, ok := a.fit(f, n, limit>>1, "register")
			return bytecode.Reg(v), ok
		}
		k, ok := a.constant(f)
		if !ok {
			return 0, false
		}
		v, ok := a.fit(f, uint64(k), limit>>1, "constant index")
		return bytecode.Const(v), ok
	case bytecode.ArgI:
		if n, err := strconv.ParseUint(f.text, 10, 64); err == nil {
			return a.fit(f, n, limit, "immediate")
		}
		if op == bytecode.OpCall && validLabel(f.text) {
			l := a.lookup(f)
			if l == nil {
				return 0, false
			}
			if l.fn < 0 {
				a.errorf(diag.AsmBadLabel, a.span(f), "cannot call local label %q", f.text)
				return 0, false
			}
			return a.fit(f, uint64(l.fn), limit, "function index")
		}
	case bytecode.ArgSI:
		if n, err := strconv.ParseInt(f.text, 10, 64); err == nil {
			return a.signed(f, n, size)
		}
		if validLabel(f.text) {
			l := a.lookup(f)
			if l == nil {
				return 0, false
			}
			return a.signed(f, int64(l.pos-(pos+1)), size)
		}
	}
	a.errorf(diag.AsmBadOperand, a.span(f), "invalid %s operand '%s'", kindName(kind), f.text)
	return 0, false
}

// constant resolves a K operand to a pool index, interning literals.
func (a *assembler) constant(f field) (int, bool) {
	text := f.text
	if p, n, ok := prefixed(text); ok {
		if p != 'k' {
			a.errorf(diag.AsmBadOperand, a.span(f), "expected a constant, found register '%s'", text)
			return 0, false
		}
		if n >= uint64(a.st.NumConsts()) {
			a.errorf(diag.AsmOperandRange, a.span(f), "constant %s is not in the pool (%d entries)", text, a.st.NumConsts())
			return 0, false
		}
		return int(n), true
	}
	if strings.HasPrefix(text, `"`) {
		s, err := strconv.Unquote(text)
		if err != nil {
			a.errorf(diag.AsmBadOperand, a.span(f), "malformed string %s", text)
			return 0, false
		}
		return a.st.AddString(s), true
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return a.st.AddInt(i), true
	}
	if l, ok := a.labels[text]; ok {
		if l.fn < 0 {
			a.errorf(diag.AsmBadLabel, a.span(f), "local label %q is not a function", text)
			return 0, false
		}
		return a.st.AddFunc(l.fn), true
	}
	switch text {
	case "true", "false":
		return a.st.AddBool(text == "true"), true
	case "nil":
		return a.st.AddNil(), true
	}
	if fl, err := strconv.ParseFloat(text, 64); err == nil {
		return a.st.AddFloat(fl), true
	}
	if validLabel(text) {
		a.errorf(diag.AsmUndefinedLabel, a.span(f), "undefined label %q", text)
		return 0, false
	}
	a.errorf(diag.AsmBadOperand, a.span(f), "invalid constant '%s'", text)
	return 0, false
}

func (a *assembler) lookup(f field) *label {
	l, ok := a.labels[f.text]
	if !ok {
		a.errorf(diag.AsmUndefinedLabel, a.span(f), "undefined label %q", f.text)
		return nil
	}
	return l
}

func (a *assembler) fit(f field, n, limit uint64, what string) (uint32, bool) {
	if n > limit {
		a.errorf(diag.AsmOperandRange, a.span(f), "%s %d out of range (max %d)", what, n, limit)
		return 0, false
	}
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		a.errorf(diag.AsmOperandRange, a.span(f), "%s %d out of range", what, n)
		return 0, false
	}
	return v, true
}

func (a *assembler) signed(f field, n int64, size uint) (uint32, bool) {
	lo, hi := -(int64(1) << (size - 1)), int64(1)<<(size-1)-1
	if n < lo || n > hi {
		a.errorf(diag.AsmOperandRange, a.span(f), "offset %d out of range [%d, %d]", n, lo, hi)
		return 0, false
	}
	v, err := safecast.Conv[int32](n)
	if err != nil {
		a.errorf(diag.AsmOperandRange, a.span(f), "offset %d out of range", n)
		return 0, false
	}
	return bytecode.SignedBits(size, v), true
}
