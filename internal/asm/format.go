package asm

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"escript/internal/bytecode"
	"escript/internal/value"
	"escript/internal/vm"
)

// Format writes chunk as assembly text that Assemble accepts. Functions
// become exported labels, jump targets become ".L<pos>" labels, and pool
// constants are written as literals where they have one.
func Format(w io.Writer, st *vm.State, chunk int) error {
	chunks := st.Chunks()
	if chunk < 0 || chunk >= len(chunks) || chunks[chunk] == nil {
		return fmt.Errorf("asm: no chunk %d", chunk)
	}
	code := chunks[chunk].Code

	f := &formatter{st: st, names: make(map[int]string), entries: make(map[int][]string), jumps: make(map[int]string)}
	for idx, fn := range st.Functions() {
		if fn.Chunk != chunk {
			continue
		}
		f.names[idx] = fn.Name
		f.entries[fn.Offset] = append(f.entries[fn.Offset], fn.Name)
	}
	for pos, ins := range code {
		if target, ok := bytecode.JumpTarget(ins, pos); ok && target >= 0 && target <= len(code) {
			f.jumps[target] = ".L" + strconv.Itoa(target)
		}
	}

	bw := bufio.NewWriter(w)
	for pos := 0; pos <= len(code); pos++ {
		names := f.entries[pos]
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(bw, "%s:\n", name)
		}
		if l, ok := f.jumps[pos]; ok {
			fmt.Fprintf(bw, "%s:\n", l)
		}
		if pos < len(code) {
			fmt.Fprintf(bw, "    %s\n", f.instruction(pos, code[pos]))
		}
	}
	return bw.Flush()
}

type formatter struct {
	st      *vm.State
	names   map[int]string   // function index -> name, for functions in the chunk
	entries map[int][]string // offset -> function names
	jumps   map[int]string   // jump target -> local label
}

func (f *formatter) instruction(pos int, ins bytecode.Instruction) string {
	op := ins.Op()
	info, ok := op.Info()
	if !ok {
		return bytecode.Disassemble(ins)
	}
	kinds := info.Kinds()
	sizes := fieldSizes(info.Sig)
	ops := bytecode.Operands(ins)
	parts := make([]string, len(ops))
	for n, v := range ops {
		parts[n] = bytecode.FormatOperand(kinds[n], sizes[n], v)
		switch {
		case kinds[n] == bytecode.ArgRK && bytecode.IsConst(v):
			if lit, ok := f.literal(int(bytecode.Index(v))); ok {
				parts[n] = lit
			}
		case kinds[n] == bytecode.ArgK:
			if lit, ok := f.literal(int(v)); ok {
				parts[n] = lit
			}
		case op == bytecode.OpJmp && kinds[n] == bytecode.ArgSI:
			target, _ := bytecode.JumpTarget(ins, pos)
			if l, ok := f.jumps[target]; ok {
				parts[n] = l
			}
		case op == bytecode.OpCall && kinds[n] == bytecode.ArgI:
			if name, ok := f.names[int(v)]; ok {
				parts[n] = name
			}
		}
	}
	return fmt.Sprintf("%-6s %s", info.Name, strings.Join(parts, ", "))
}

// literal renders pool entry k so that Assemble interns an equal constant.
func (f *formatter) literal(k int) (string, bool) {
	if k < 0 || k >= f.st.NumConsts() {
		return "", false
	}
	v := f.st.Const(k)
	switch v.Tid() {
	case value.TNil:
		return "nil", true
	case value.TBool:
		return strconv.FormatBool(v.AsBool()), true
	case value.TInt:
		return strconv.FormatInt(v.AsInt(), 10), true
	case value.TFloat:
		return formatFloat(v.AsFloat()), true
	case value.TString:
		s, _ := v.AsString()
		return strconv.Quote(s.String()), true
	case value.TFuncPtr:
		fn, _ := v.AsFunc()
		if name, ok := f.names[fn.Index]; ok {
			return name, true
		}
	}
	return "", false
}

// formatFloat keeps a decimal point or exponent so the text does not read back as an int.
func formatFloat(x float64) string {
	s := strconv.FormatFloat(x, 'g', -1, 64)
	if !math.IsInf(x, 0) && !math.IsNaN(x) && !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
