package vm

import (
	"fmt"
	"io"

	"escript/internal/bytecode"
	"escript/internal/value"
)

// Tracer outputs execution traces for debugging.
type Tracer struct {
	w io.Writer
}

// NewTracer creates a new tracer that writes to w.
func NewTracer(w io.Writer) *Tracer {
	return &Tracer{w: w}
}

// TraceInstr traces execution of an instruction.
// Format: [depth=N] <func>+<ip> <disassembly>
func (t *Tracer) TraceInstr(depth int, frame *Frame, ip int, ins bytecode.Instruction) {
	if t == nil || t.w == nil {
		return
	}
	fmt.Fprintf(t.w, "[depth=%d] %s+%d %s\n", depth, frame.Name(), ip, bytecode.Disassemble(ins))
}

// TraceWrite records the stack slot an instruction wrote.
func (t *Tracer) TraceWrite(slot int, v value.Value) {
	if t == nil || t.w == nil {
		return
	}
	fmt.Fprintf(t.w, "    write s%d = %s\n", slot, v)
}
