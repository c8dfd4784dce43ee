// Package vm executes escript bytecode on a register-window machine.
//
// All frames share one value stack. A frame's register r lives at
// stack[Base+r]; CALL A places the callee's base at the caller's register A,
// so arguments are passed without copying and results come back in place.
// RK operands are resolved through a two-entry dispatch table: the current
// register window and the constant pool.
package vm

import (
	"fmt"

	"escript/internal/bytecode"
	"escript/internal/value"
)

// Call runs the named function from a clean frame stack with base 0 and
// returns its declared return count. The results are in Results(n).
func (st *State) Call(name string) (int, error) {
	idx, ok := st.FunctionIndex(name)
	if !ok {
		return -1, fmt.Errorf("%w: %s", ErrNoFunction, name)
	}
	return st.CallIndex(idx)
}

// CallArgs stores args into registers 0..n-1 and calls the named function.
func (st *State) CallArgs(name string, args ...value.Value) (int, error) {
	idx, ok := st.FunctionIndex(name)
	if !ok {
		return -1, fmt.Errorf("%w: %s", ErrNoFunction, name)
	}
	fn := st.funcs[idx]
	if len(args) != fn.Params {
		return -1, fmt.Errorf("%w: %s takes %d, got %d", ErrArgCount, name, fn.Params, len(args))
	}
	if len(args) > len(st.stack) {
		return -1, st.eb.stackOverflow(len(args)-1, len(st.stack))
	}
	for i := range args {
		value.Copy(&st.stack[i], &args[i])
	}
	st.top = max(st.top, len(args))
	return st.CallIndex(idx)
}

// CallIndex runs function idx. See Call.
func (st *State) CallIndex(idx int) (int, error) {
	if idx < 0 || idx >= len(st.funcs) {
		return -1, fmt.Errorf("%w: #%d", ErrNoFunction, idx)
	}
	fn := st.funcs[idx]
	if fn.Chunk >= len(st.chunks) || st.chunks[fn.Chunk] == nil {
		return -1, fmt.Errorf("%w: %s has no code", ErrNoFunction, fn.Name)
	}
	st.Reset()
	code := st.chunks[fn.Chunk].Code
	st.frames = append(st.frames, Frame{
		Func: fn,
		Base: 0,
		Code: code,
		IP:   fn.Offset,
		End:  fn.Offset + fn.Size,
	})
	st.dispatch[0] = st.stack
	if err := st.Run(); err != nil {
		return fn.Returns, err
	}
	return fn.Returns, nil
}

// ExecuteBytecode runs raw code in a synthetic outermost frame with base 0.
// The frame has no declared return count, and running off the end of code
// halts normally.
func (st *State) ExecuteBytecode(code []bytecode.Instruction) error {
	st.Reset()
	st.frames = append(st.frames, Frame{Code: code, End: len(code)})
	st.dispatch[0] = st.stack
	if err := st.Run(); err != nil {
		return err
	}
	return nil
}

// Reset drops every frame. Stack contents are kept.
func (st *State) Reset() {
	st.frames = st.frames[:0]
	st.last = -1
	st.dispatch[0] = st.stack
}

// Halted reports whether no frame is active.
func (st *State) Halted() bool { return len(st.frames) == 0 }

// Run steps until the outermost frame returns or a fault occurs.
func (st *State) Run() error {
	for len(st.frames) > 0 {
		if vmErr := st.Step(); vmErr != nil {
			return vmErr
		}
	}
	return nil
}

// Step executes exactly one instruction.
func (st *State) Step() (vmErr *VMError) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(*VMError); ok {
				vmErr = e
				return
			}
			panic(r)
		}
	}()

	if len(st.frames) == 0 {
		return nil
	}
	frame := &st.frames[len(st.frames)-1]
	if frame.IP < frame.start() {
		return st.eb.codeOverrun(frame.Name())
	}
	if frame.IP >= frame.End || frame.IP >= len(frame.Code) {
		if frame.Func == nil {
			st.frames = st.frames[:0]
			return nil
		}
		return st.eb.codeOverrun(frame.Name())
	}
	ins := frame.Code[frame.IP]
	frame.IP++
	if st.trace != nil {
		st.trace.TraceInstr(len(st.frames), frame, frame.IP-1, ins)
	}
	st.exec(frame, ins)
	if st.trace != nil && writesRegister(ins.Op()) {
		st.trace.TraceWrite(st.last, st.stack[st.last])
	}
	return nil
}

func writesRegister(op bytecode.Opcode) bool {
	switch op {
	case bytecode.OpJmp, bytecode.OpCall, bytecode.OpRet:
		return false
	}
	return op.Valid()
}
