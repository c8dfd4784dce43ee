package compiler

import (
	"fortio.org/safecast"

	"escript/internal/bytecode"
	"escript/internal/diag"
)

// maxConst is the largest constant index an AY operand can address.
const maxConst = bytecode.MaxY >> 1

func (c *compiler) emit(ins bytecode.Instruction) int {
	c.code = append(c.code, ins)
	return len(c.code) - 1
}

func (c *compiler) push(operand uint32) { c.operands = append(c.operands, operand) }

// pop returns the top operand. An empty stack only happens after an error
// has been reported, so it yields register 0.
func (c *compiler) pop() uint32 {
	n := len(c.operands)
	if n == 0 {
		return bytecode.Reg(0)
	}
	op := c.operands[n-1]
	c.operands = c.operands[:n-1]
	return op
}

// regNum narrows a register number to the A field.
func (c *compiler) regNum(r int) uint32 {
	n, err := safecast.Conv[uint8](r)
	if err != nil {
		c.errorf(diag.SynTooManyRegisters, c.cur(), "expression needs more than %d registers", bytecode.MaxA+1)
		return bytecode.MaxA
	}
	return uint32(n)
}

// alloc reserves the next free register.
func (c *compiler) alloc() uint32 {
	r := c.regNum(c.nextReg)
	c.nextReg++
	return r
}

// isTemp reports whether operand is a register above the locals.
func (c *compiler) isTemp(operand uint32) bool {
	return !bytecode.IsConst(operand) && int(bytecode.Index(operand)) >= len(c.locals)
}

// konst converts a pool index into a constant operand.
func (c *compiler) konst(k int) uint32 {
	if k > maxConst {
		c.errorf(diag.SynTooManyConsts, c.cur(), "constant pool exceeds %d entries", maxConst+1)
		return bytecode.Const(0)
	}
	idx, err := safecast.Conv[uint32](k)
	if err != nil {
		c.errorf(diag.SynTooManyConsts, c.cur(), "constant index %d out of range", k)
		return bytecode.Const(0)
	}
	return bytecode.Const(idx)
}

// lastWrites reports whether the latest instruction of the current statement
// computed register r and can be retargeted.
func (c *compiler) lastWrites(r uint32) bool {
	n := len(c.code)
	if n == 0 || n-1 < c.stmtStart || n-1 < c.target {
		return false
	}
	ins := c.code[n-1]
	switch ins.Op() {
	case bytecode.OpJmp, bytecode.OpCall, bytecode.OpRet:
		return false
	}
	return ins.A() == r
}

// store moves operand into register dst, retargeting the instruction that
// produced a temporary instead of emitting a MOV when possible.
func (c *compiler) store(dst, operand uint32) {
	if !bytecode.IsConst(operand) && bytecode.Index(operand) == dst {
		return
	}
	if c.isTemp(operand) && c.lastWrites(bytecode.Index(operand)) {
		c.code[len(c.code)-1] = c.code[len(c.code)-1].WithA(dst)
		return
	}
	c.emit(bytecode.EncodeAY(bytecode.OpMov, dst, operand))
}

// toTemp makes sure operand lives in a temporary register.
func (c *compiler) toTemp(operand uint32) uint32 {
	if c.isTemp(operand) {
		return operand
	}
	r := c.alloc()
	c.emit(bytecode.EncodeAY(bytecode.OpMov, r, operand))
	return bytecode.Reg(r)
}

// rk makes operand fit a 9-bit B or C field. Large constant indices are
// loaded into a fresh register first.
func (c *compiler) rk(operand uint32) uint32 {
	if bytecode.IsConst(operand) && bytecode.Index(operand) > bytecode.MaxRK {
		r := c.alloc()
		c.emit(bytecode.EncodeAY(bytecode.OpMov, r, operand))
		return bytecode.Reg(r)
	}
	return operand
}

// jumpHere patches the placeholder at pos into a jump to the next
// instruction to be emitted.
func (c *compiler) jumpHere(pos int, cond uint32) {
	delta := len(c.code) - pos - 1
	d, err := safecast.Conv[int32](delta)
	if err != nil || d > bytecode.MaxSY {
		c.errorf(diag.SynJumpTooFar, c.cur(), "jump over %d instructions does not fit", delta)
		return
	}
	c.code[pos] = bytecode.EncodeAY(bytecode.OpJmp, cond, bytecode.SignedBits(bytecode.SizeY, d))
	c.target = len(c.code)
}
