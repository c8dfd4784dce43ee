// Package bytecode defines the packed 32-bit instruction format.
//
// Layout, most significant bits first:
//
//	ABC: | O:6 | A:8 | B:9 | C:9 |
//	AY:  | O:6 | A:8 |    Y:18   |
//	X:   | O:6 |       X:26      |
//
// The opcode table decides which layout applies and how each field is read.
package bytecode

import (
	"fmt"
)

// Field widths and bit offsets.
const (
	SizeO = 6
	SizeA = 8
	SizeB = 9
	SizeC = 9
	SizeX = 26
	SizeY = 18

	PosC = 0
	PosB = PosC + SizeC
	PosA = PosB + SizeB
	PosO = PosA + SizeA
	PosX = 0
	PosY = 0
)

// Maximum raw field values.
const (
	MaxA = 1<<SizeA - 1
	MaxB = 1<<SizeB - 1
	MaxC = 1<<SizeC - 1
	MaxX = 1<<SizeX - 1
	MaxY = 1<<SizeY - 1

	// MaxSY and MinSY bound a signed Y immediate.
	MaxSY = 1<<(SizeY-1) - 1
	MinSY = -(1 << (SizeY - 1))
	MaxSX = 1<<(SizeX-1) - 1
	MinSX = -(1 << (SizeX - 1))

	// MaxRK is the largest register or constant index an RK field in B or C can carry.
	MaxRK = MaxB >> 1
)

// Instruction is one packed instruction word.
type Instruction uint32

func mask(bits uint) uint32 { return 1<<bits - 1 }

func field(i Instruction, pos, size uint) uint32 {
	return (uint32(i) >> pos) & mask(size)
}

// SignExtend interprets the low bits of v as a two's-complement number.
func SignExtend(bits uint, v uint32) int32 {
	sign := uint32(1) << (bits - 1)
	v &= mask(bits)
	return int32(v^sign) - int32(sign)
}

// EncodeABC packs an ABC instruction. Fields are truncated to their widths.
func EncodeABC(op Opcode, a, b, c uint32) Instruction {
	return Instruction(uint32(op)&mask(SizeO)<<PosO |
		a&mask(SizeA)<<PosA |
		b&mask(SizeB)<<PosB |
		c&mask(SizeC)<<PosC)
}

// EncodeAY packs an AY instruction. Signed Y values are passed as their two's-complement bits.
func EncodeAY(op Opcode, a, y uint32) Instruction {
	return Instruction(uint32(op)&mask(SizeO)<<PosO |
		a&mask(SizeA)<<PosA |
		y&mask(SizeY)<<PosY)
}

// EncodeX packs an X instruction.
func EncodeX(op Opcode, x uint32) Instruction {
	return Instruction(uint32(op)&mask(SizeO)<<PosO | x&mask(SizeX)<<PosX)
}

func (i Instruction) Op() Opcode { return Opcode(field(i, PosO, SizeO)) }
func (i Instruction) A() uint32  { return field(i, PosA, SizeA) }
func (i Instruction) B() uint32  { return field(i, PosB, SizeB) }
func (i Instruction) C() uint32  { return field(i, PosC, SizeC) }
func (i Instruction) X() uint32  { return field(i, PosX, SizeX) }
func (i Instruction) Y() uint32  { return field(i, PosY, SizeY) }

// SX is X sign-extended.
func (i Instruction) SX() int32 { return SignExtend(SizeX, i.X()) }

// SY is Y sign-extended.
func (i Instruction) SY() int32 { return SignExtend(SizeY, i.Y()) }

// WithA replaces the A field.
func (i Instruction) WithA(a uint32) Instruction {
	return Instruction(uint32(i)&^(mask(SizeA)<<PosA) | (a&mask(SizeA))<<PosA)
}

// WithY replaces the Y field.
func (i Instruction) WithY(y uint32) Instruction {
	return Instruction(uint32(i)&^(mask(SizeY)<<PosY) | (y&mask(SizeY))<<PosY)
}

// Fields holds raw (unsigned, unshifted) operand bits.
type Fields struct {
	A, B, C, X, Y uint32
}

// Decode splits an instruction into its opcode and the fields its signature uses.
// Unknown opcodes decode every layout's fields as ABC.
func Decode(i Instruction) (Opcode, Fields) {
	op := i.Op()
	info, ok := op.Info()
	if !ok {
		return op, Fields{A: i.A(), B: i.B(), C: i.C()}
	}
	switch info.Sig {
	case SigAY:
		return op, Fields{A: i.A(), Y: i.Y()}
	case SigX:
		return op, Fields{X: i.X()}
	default:
		return op, Fields{A: i.A(), B: i.B(), C: i.C()}
	}
}

// Encode packs op with f, rejecting fields that do not fit their widths.
func Encode(op Opcode, f Fields) (Instruction, error) {
	info, ok := op.Info()
	if !ok {
		return 0, fmt.Errorf("bytecode: unknown opcode %d", op)
	}
	check := func(name string, v, limit uint32) error {
		if v > limit {
			return fmt.Errorf("bytecode: %s field %s=%d exceeds %d", info.Name, name, v, limit)
		}
		return nil
	}
	switch info.Sig {
	case SigABC:
		if err := check("A", f.A, MaxA); err != nil {
			return 0, err
		}
		if err := check("B", f.B, MaxB); err != nil {
			return 0, err
		}
		if err := check("C", f.C, MaxC); err != nil {
			return 0, err
		}
		return EncodeABC(op, f.A, f.B, f.C), nil
	case SigAY:
		if err := check("A", f.A, MaxA); err != nil {
			return 0, err
		}
		if err := check("Y", f.Y, MaxY); err != nil {
			return 0, err
		}
		return EncodeAY(op, f.A, f.Y), nil
	default:
		if err := check("X", f.X, MaxX); err != nil {
			return 0, err
		}
		return EncodeX(op, f.X), nil
	}
}

// RK operand helpers. A register operand is r<<1, a constant operand k<<1|1.

// Reg returns the RK operand for register r.
func Reg(r uint32) uint32 { return r << 1 }

// Const returns the RK operand for constant k.
func Const(k uint32) uint32 { return k<<1 | 1 }

// IsConst reports whether an RK operand addresses the constant pool.
func IsConst(rk uint32) bool { return rk&1 == 1 }

// Index strips the RK tag bit.
func Index(rk uint32) uint32 { return rk >> 1 }

// SignedBits returns the two's-complement bits of v truncated to width bits.
func SignedBits(width uint, v int32) uint32 { return uint32(v) & mask(width) }
