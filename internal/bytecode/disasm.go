package bytecode

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Operands returns the raw field values of i in the order of its signature.
func Operands(i Instruction) []uint32 {
	op, f := Decode(i)
	info, ok := op.Info()
	if !ok {
		return []uint32{f.A, f.B, f.C}
	}
	switch info.Sig {
	case SigAY:
		return []uint32{f.A, f.Y}
	case SigX:
		return []uint32{f.X}
	default:
		return []uint32{f.A, f.B, f.C}
	}
}

// FormatOperand renders one raw field according to its kind.
func FormatOperand(kind ArgKind, width uint, v uint32) string {
	switch kind {
	case ArgR:
		return "r" + strconv.FormatUint(uint64(v), 10)
	case ArgK:
		return "k" + strconv.FormatUint(uint64(v), 10)
	case ArgOR:
		if v == 0 {
			return "0"
		}
		return "r" + strconv.FormatUint(uint64(v-1), 10)
	case ArgRK:
		if IsConst(v) {
			return "k" + strconv.FormatUint(uint64(Index(v)), 10)
		}
		return "r" + strconv.FormatUint(uint64(Index(v)), 10)
	case ArgSI:
		return strconv.FormatInt(int64(SignExtend(width, v)), 10)
	default:
		return strconv.FormatUint(uint64(v), 10)
	}
}

func widths(sig Signature) []uint {
	switch sig {
	case SigAY:
		return []uint{SizeA, SizeY}
	case SigX:
		return []uint{SizeX}
	default:
		return []uint{SizeA, SizeB, SizeC}
	}
}

// Disassemble renders i as "mnemonic operand, operand...".
func Disassemble(i Instruction) string {
	op := i.Op()
	info, ok := op.Info()
	if !ok {
		return fmt.Sprintf("%-6s 0x%08x", "???", uint32(i))
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-6s", info.Name)
	kinds := info.Kinds()
	ws := widths(info.Sig)
	for n, v := range Operands(i) {
		if n == 0 {
			sb.WriteByte(' ')
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(FormatOperand(kinds[n], ws[n], v))
	}
	return sb.String()
}

// JumpTarget returns the absolute target of a JMP at pos.
func JumpTarget(i Instruction, pos int) (int, bool) {
	if i.Op() != OpJmp {
		return 0, false
	}
	return pos + 1 + int(i.SY()), true
}

// DisassembleChunk writes a listing of code, one instruction per line.
// labels maps instruction offsets to names printed before that offset;
// jump targets with a label are annotated.
func DisassembleChunk(w io.Writer, code []Instruction, labels map[int]string) error {
	for pos, ins := range code {
		if name, ok := labels[pos]; ok {
			if _, err := fmt.Fprintf(w, "%s:\n", name); err != nil {
				return err
			}
		}
		line := Disassemble(ins)
		if target, ok := JumpTarget(ins, pos); ok {
			if name, ok := labels[target]; ok {
				line += " ; -> " + name
			}
		}
		if _, err := fmt.Fprintf(w, "%6d  %s\n", pos, line); err != nil {
			return err
		}
	}
	return nil
}
