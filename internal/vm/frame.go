package vm

import (
	"escript/internal/bytecode"
)

// Function is a callable unit inside a chunk. Offset and Size are in
// instructions, relative to the start of the chunk.
type Function struct {
	Name    string
	Params  int
	Returns int
	Chunk   int
	Offset  int
	Size    int
}

// Chunk is the code produced by one compile or assemble call.
type Chunk struct {
	Code []bytecode.Instruction
}

// Frame is one activation record. Base indexes the shared value stack: the
// callee's register r is stack[Base+r], which aliases the caller's argument
// registers. IP is the next instruction to execute; End bounds the function.
type Frame struct {
	Func *Function // nil for the ExecuteBytecode frame
	Base int
	Code []bytecode.Instruction
	IP   int
	End  int
}

const execFrameName = "<exec>"

// Name returns the function name, or "<exec>" for raw bytecode.
func (f *Frame) Name() string {
	if f.Func == nil {
		return execFrameName
	}
	return f.Func.Name
}

func (f *Frame) start() int {
	if f.Func == nil {
		return 0
	}
	return f.Func.Offset
}
