package vm

import (
	"math"

	"escript/internal/bytecode"
	"escript/internal/value"
)

// slot converts register r of frame into a stack index.
func (st *State) slot(frame *Frame, r uint32) int {
	i := frame.Base + int(r)
	if i >= len(st.stack) {
		panic(st.eb.stackOverflow(i, len(st.stack)))
	}
	return i
}

// dst returns register r for writing and records it as the last result.
func (st *State) dst(frame *Frame, r uint32) *value.Value {
	i := st.slot(frame, r)
	if i >= st.top {
		st.top = i + 1
	}
	st.last = i
	return &st.stack[i]
}

// rk resolves an RK operand through the dispatch table.
func (st *State) rk(frame *Frame, operand uint32) *value.Value {
	tab := st.dispatch[operand&1]
	idx := int(bytecode.Index(operand))
	if idx >= len(tab) {
		if bytecode.IsConst(operand) {
			panic(st.eb.badConstant(idx, len(tab)))
		}
		panic(st.eb.stackOverflow(frame.Base+idx, len(st.stack)))
	}
	return &tab[idx]
}

func set(dst *value.Value, v value.Value) {
	value.Destroy(dst)
	*dst = v
}

func (st *State) exec(frame *Frame, ins bytecode.Instruction) {
	op := ins.Op()
	switch op {
	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod:
		r := st.arith(op, st.rk(frame, ins.B()), st.rk(frame, ins.C()))
		set(st.dst(frame, ins.A()), r)

	case bytecode.OpBand, bytecode.OpBor, bytecode.OpBxor:
		r := st.bitwise(op, st.rk(frame, ins.B()), st.rk(frame, ins.C()))
		set(st.dst(frame, ins.A()), r)

	case bytecode.OpLand, bytecode.OpLor:
		r := st.logical(op, st.rk(frame, ins.B()), st.rk(frame, ins.C()))
		set(st.dst(frame, ins.A()), r)

	case bytecode.OpEq, bytecode.OpNe, bytecode.OpLt, bytecode.OpLe:
		r := st.compare(op, st.rk(frame, ins.B()), st.rk(frame, ins.C()))
		set(st.dst(frame, ins.A()), r)

	case bytecode.OpNeg, bytecode.OpLnot, bytecode.OpBnot:
		r := st.unary(op, st.rk(frame, ins.Y()))
		set(st.dst(frame, ins.A()), r)

	case bytecode.OpMov:
		src := st.rk(frame, ins.Y())
		value.Copy(st.dst(frame, ins.A()), src)

	case bytecode.OpMovi:
		set(st.dst(frame, ins.A()), value.Int(int64(ins.SY())))

	case bytecode.OpJmp:
		a := ins.A()
		if a >= 2 || st.lastPayload() == uint64(a) {
			frame.IP += int(ins.SY())
		}

	case bytecode.OpCall:
		st.call(frame, ins.A(), int(ins.Y()))

	case bytecode.OpRet:
		st.ret(frame, int(ins.X()))

	default:
		panic(st.eb.unknownOpcode(uint8(op)))
	}
}

func (st *State) lastPayload() uint64 {
	if st.last < 0 || st.last >= len(st.stack) {
		return 0
	}
	return st.stack[st.last].Bits()
}

func (st *State) call(frame *Frame, a uint32, fnIdx int) {
	if fnIdx >= len(st.funcs) {
		panic(st.eb.badFunction(fnIdx))
	}
	fn := st.funcs[fnIdx]
	if fn.Chunk >= len(st.chunks) || st.chunks[fn.Chunk] == nil {
		panic(st.eb.badFunction(fnIdx))
	}
	base := frame.Base + int(a)
	if base >= len(st.stack) {
		panic(st.eb.stackOverflow(base, len(st.stack)))
	}
	if len(st.frames) >= st.maxFrames {
		panic(st.eb.frameOverflow(st.maxFrames))
	}
	st.frames = append(st.frames, Frame{
		Func: fn,
		Base: base,
		Code: st.chunks[fn.Chunk].Code,
		IP:   fn.Offset,
		End:  fn.Offset + fn.Size,
	})
	st.dispatch[0] = st.stack[base:]
}

func (st *State) ret(frame *Frame, x int) {
	if frame.Func != nil && x != frame.Func.Returns {
		panic(st.eb.returnMismatch(frame.Func.Name, x, frame.Func.Returns))
	}
	base := frame.Base
	st.top = min(base+x, len(st.stack))
	st.last = base
	st.frames = st.frames[:len(st.frames)-1]
	if len(st.frames) == 0 {
		st.dispatch[0] = st.stack
		return
	}
	st.dispatch[0] = st.stack[st.frames[len(st.frames)-1].Base:]
}

func (st *State) arith(op bytecode.Opcode, b, c *value.Value) value.Value {
	switch {
	case b.Tid() == value.TInt && c.Tid() == value.TInt:
		x, y := b.AsInt(), c.AsInt()
		switch op {
		case bytecode.OpAdd:
			return value.Int(x + y)
		case bytecode.OpSub:
			return value.Int(x - y)
		case bytecode.OpMul:
			return value.Int(x * y)
		case bytecode.OpDiv:
			if y == 0 {
				panic(st.eb.divideByZero(op.String()))
			}
			return value.Int(x / y)
		default:
			if y == 0 {
				panic(st.eb.divideByZero(op.String()))
			}
			return value.Int(x % y)
		}
	case b.Tid() == value.TFloat && c.Tid() == value.TFloat:
		x, y := b.AsFloat(), c.AsFloat()
		switch op {
		case bytecode.OpAdd:
			return value.Float(x + y)
		case bytecode.OpSub:
			return value.Float(x - y)
		case bytecode.OpMul:
			return value.Float(x * y)
		case bytecode.OpDiv:
			return value.Float(x / y)
		default:
			return value.Float(math.Mod(x, y))
		}
	}
	panic(st.eb.typeMismatch(op.String(), b.Tid().String(), c.Tid().String()))
}

func (st *State) bitwise(op bytecode.Opcode, b, c *value.Value) value.Value {
	if b.Tid() != value.TInt || c.Tid() != value.TInt {
		panic(st.eb.typeMismatch(op.String(), b.Tid().String(), c.Tid().String()))
	}
	x, y := b.AsInt(), c.AsInt()
	switch op {
	case bytecode.OpBand:
		return value.Int(x & y)
	case bytecode.OpBor:
		return value.Int(x | y)
	default:
		return value.Int(x ^ y)
	}
}

func (st *State) logical(op bytecode.Opcode, b, c *value.Value) value.Value {
	if b.Tid() != value.TBool || c.Tid() != value.TBool {
		panic(st.eb.typeMismatch(op.String(), b.Tid().String(), c.Tid().String()))
	}
	if op == bytecode.OpLand {
		return value.Bool(b.AsBool() && c.AsBool())
	}
	return value.Bool(b.AsBool() || c.AsBool())
}

func (st *State) compare(op bytecode.Opcode, b, c *value.Value) value.Value {
	if b.Tid() != c.Tid() {
		panic(st.eb.typeMismatch(op.String(), b.Tid().String(), c.Tid().String()))
	}
	switch op {
	case bytecode.OpEq:
		return value.Bool(value.Equal(*b, *c))
	case bytecode.OpNe:
		return value.Bool(!value.Equal(*b, *c))
	}
	var less, equal bool
	switch b.Tid() {
	case value.TInt:
		less, equal = b.AsInt() < c.AsInt(), b.AsInt() == c.AsInt()
	case value.TFloat:
		less, equal = b.AsFloat() < c.AsFloat(), b.AsFloat() == c.AsFloat()
	default:
		panic(st.eb.typeMismatch(op.String(), b.Tid().String(), c.Tid().String()))
	}
	if op == bytecode.OpLt {
		return value.Bool(less)
	}
	return value.Bool(less || equal)
}

func (st *State) unary(op bytecode.Opcode, v *value.Value) value.Value {
	switch {
	case op == bytecode.OpNeg && v.Tid() == value.TInt:
		return value.Int(-v.AsInt())
	case op == bytecode.OpNeg && v.Tid() == value.TFloat:
		return value.Float(-v.AsFloat())
	case op == bytecode.OpLnot && v.Tid() == value.TBool:
		return value.Bool(!v.AsBool())
	case op == bytecode.OpBnot && v.Tid() == value.TInt:
		return value.Int(^v.AsInt())
	}
	panic(st.eb.typeMismatch1(op.String(), v.Tid().String()))
}
