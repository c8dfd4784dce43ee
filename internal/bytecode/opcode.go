package bytecode

import (
	"fmt"
	"strings"
)

// Opcode selects the operation and, through its OpInfo, the field layout.
type Opcode uint8

const (
	OpAdd Opcode = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpBand
	OpBor
	OpBxor
	OpBnot
	OpLand
	OpLor
	OpLnot
	OpEq
	OpNe
	OpLt
	OpLe
	OpMov
	OpMovi
	OpJmp
	OpCall
	OpRet
	OpNeg

	opCount
)

// OpInvalid is returned by Lookup for unknown mnemonics.
const OpInvalid Opcode = 1<<SizeO - 1

// Signature is the field layout of an instruction.
type Signature uint8

const (
	SigABC Signature = iota + 1 // A:8 B:9 C:9
	SigAY                       // A:8 Y:18
	SigX                        // X:26
)

func (s Signature) String() string {
	switch s {
	case SigABC:
		return "ABC"
	case SigAY:
		return "AY"
	case SigX:
		return "X"
	default:
		return "?"
	}
}

// ArgKind is how an operand field is interpreted.
type ArgKind uint8

const (
	ArgNone ArgKind = iota
	ArgR            // register
	ArgOR           // optional register: 0 = none, otherwise register+1
	ArgK            // constant pool index
	ArgRK           // register or constant, low bit set for constants
	ArgI            // unsigned immediate
	ArgSI           // signed immediate
)

func (k ArgKind) String() string {
	switch k {
	case ArgNone:
		return "-"
	case ArgR:
		return "R"
	case ArgOR:
		return "OR"
	case ArgK:
		return "K"
	case ArgRK:
		return "RK"
	case ArgI:
		return "I"
	case ArgSI:
		return "SI"
	default:
		return "?"
	}
}

// OpInfo describes one opcode: its mnemonic, layout and per-field operand kinds.
type OpInfo struct {
	Name string
	Sig  Signature
	A    ArgKind
	B    ArgKind
	C    ArgKind
	X    ArgKind
	Y    ArgKind
}

func abc(name string, a, b, c ArgKind) OpInfo {
	return OpInfo{Name: name, Sig: SigABC, A: a, B: b, C: c}
}

func ay(name string, a, y ArgKind) OpInfo {
	return OpInfo{Name: name, Sig: SigAY, A: a, Y: y}
}

func x(name string, k ArgKind) OpInfo {
	return OpInfo{Name: name, Sig: SigX, X: k}
}

var opTable = [opCount]OpInfo{
	OpAdd:  abc("add", ArgR, ArgRK, ArgRK),
	OpSub:  abc("sub", ArgR, ArgRK, ArgRK),
	OpMul:  abc("mul", ArgR, ArgRK, ArgRK),
	OpDiv:  abc("div", ArgR, ArgRK, ArgRK),
	OpMod:  abc("mod", ArgR, ArgRK, ArgRK),
	OpBand: abc("band", ArgR, ArgRK, ArgRK),
	OpBor:  abc("bor", ArgR, ArgRK, ArgRK),
	OpBxor: abc("bxor", ArgR, ArgRK, ArgRK),
	OpBnot: ay("bnot", ArgR, ArgRK),
	OpLand: abc("land", ArgR, ArgRK, ArgRK),
	OpLor:  abc("lor", ArgR, ArgRK, ArgRK),
	OpLnot: ay("lnot", ArgR, ArgRK),
	OpEq:   abc("eq", ArgR, ArgRK, ArgRK),
	OpNe:   abc("ne", ArgR, ArgRK, ArgRK),
	OpLt:   abc("lt", ArgR, ArgRK, ArgRK),
	OpLe:   abc("le", ArgR, ArgRK, ArgRK),
	OpMov:  ay("mov", ArgR, ArgRK),
	OpMovi: ay("movi", ArgR, ArgSI),
	OpJmp:  ay("jmp", ArgI, ArgSI),
	OpCall: ay("call", ArgR, ArgI),
	OpRet:  x("ret", ArgI),
	OpNeg:  ay("neg", ArgR, ArgRK),
}

var byName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opTable))
	for op, info := range opTable {
		m[info.Name] = Opcode(op)
	}
	return m
}()

// Count is the number of defined opcodes.
func Count() int { return int(opCount) }

// Valid reports whether op is a defined opcode.
func (op Opcode) Valid() bool { return op < opCount }

// Info returns the descriptor for op.
func (op Opcode) Info() (OpInfo, bool) {
	if !op.Valid() {
		return OpInfo{}, false
	}
	return opTable[op], true
}

// String returns the mnemonic.
func (op Opcode) String() string {
	if !op.Valid() {
		return fmt.Sprintf("op(%d)", uint8(op))
	}
	return opTable[op].Name
}

// Lookup resolves a case-insensitive mnemonic.
func Lookup(name string) (Opcode, bool) {
	op, ok := byName[strings.ToLower(name)]
	if !ok {
		return OpInvalid, false
	}
	return op, true
}

// Kinds lists the operand kinds of op in encoding order (A B C, A Y, or X).
func (info OpInfo) Kinds() []ArgKind {
	switch info.Sig {
	case SigABC:
		return []ArgKind{info.A, info.B, info.C}
	case SigAY:
		return []ArgKind{info.A, info.Y}
	case SigX:
		return []ArgKind{info.X}
	}
	return nil
}
