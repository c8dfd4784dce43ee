package vm

import (
	"fmt"
	"strings"
)

// PanicCode identifies the type of VM panic.
type PanicCode int

// Stable panic codes - do not change values.
const (
	PanicTypeMismatch   PanicCode = 1001 // VM1001: operand tags do not fit the operation
	PanicDivideByZero   PanicCode = 1002 // VM1002: integer division or modulo by zero
	PanicReturnMismatch PanicCode = 1003 // VM1003: RET count differs from the declared count
	PanicFrameOverflow  PanicCode = 1004 // VM1004: call depth exceeds MaxFrames
	PanicStackOverflow  PanicCode = 1005 // VM1005: register beyond the value stack
	PanicUnknownOpcode  PanicCode = 1006 // VM1006: opcode outside the table
	PanicCodeOverrun    PanicCode = 1007 // VM1007: ran off the end of a function
	PanicBadFunction    PanicCode = 1008 // VM1008: CALL to a missing function
	PanicBadConstant    PanicCode = 1009 // VM1009: constant index outside the pool
)

// String returns the code as "VM1001" format.
func (c PanicCode) String() string {
	return fmt.Sprintf("VM%d", c)
}

// BacktraceFrame represents one frame in the panic backtrace.
type BacktraceFrame struct {
	FuncName string
	IP       int
}

// VMError represents a runtime fault. The frame stack is left as it was when
// the fault happened.
type VMError struct {
	Code      PanicCode
	Message   string
	Func      string
	IP        int              // offset of the faulting instruction in its chunk
	Backtrace []BacktraceFrame // top to bottom
}

// Error implements the error interface.
func (p *VMError) Error() string {
	return fmt.Sprintf("panic %s: %s", p.Code, p.Message)
}

// Format renders the fault with its location and backtrace.
func (p *VMError) Format() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "panic %s: %s\n", p.Code, p.Message)
	fmt.Fprintf(&sb, "at %s+%d\n", p.Func, p.IP)
	if len(p.Backtrace) > 0 {
		sb.WriteString("backtrace:\n")
		for i, frame := range p.Backtrace {
			fmt.Fprintf(&sb, "  %d: %s+%d\n", i, frame.FuncName, frame.IP)
		}
	}
	return sb.String()
}

// errorBuilder helps construct VMError values.
type errorBuilder struct {
	st *State
}

func (eb *errorBuilder) makeError(code PanicCode, msg string) *VMError {
	e := &VMError{Code: code, Message: msg, IP: -1}
	frames := eb.st.frames
	if n := len(frames); n > 0 {
		top := &frames[n-1]
		e.Func = top.Name()
		e.IP = top.IP - 1
	}
	e.Backtrace = make([]BacktraceFrame, len(frames))
	for i := len(frames) - 1; i >= 0; i-- {
		f := &frames[i]
		// callers have already advanced past their CALL
		e.Backtrace[len(frames)-1-i] = BacktraceFrame{FuncName: f.Name(), IP: f.IP - 1}
	}
	return e
}

func (eb *errorBuilder) typeMismatch(op string, b, c string) *VMError {
	return eb.makeError(PanicTypeMismatch, fmt.Sprintf("%s: mismatched operands %s and %s", op, b, c))
}

func (eb *errorBuilder) typeMismatch1(op string, got string) *VMError {
	return eb.makeError(PanicTypeMismatch, fmt.Sprintf("%s: unsupported operand %s", op, got))
}

func (eb *errorBuilder) divideByZero(op string) *VMError {
	return eb.makeError(PanicDivideByZero, op+": integer division by zero")
}

func (eb *errorBuilder) returnMismatch(fn string, got, want int) *VMError {
	return eb.makeError(PanicReturnMismatch, fmt.Sprintf("%s returns %d values, RET gave %d", fn, want, got))
}

func (eb *errorBuilder) frameOverflow(limit int) *VMError {
	return eb.makeError(PanicFrameOverflow, fmt.Sprintf("call depth exceeds %d frames", limit))
}

func (eb *errorBuilder) stackOverflow(slot, size int) *VMError {
	return eb.makeError(PanicStackOverflow, fmt.Sprintf("register slot %d outside stack of %d", slot, size))
}

func (eb *errorBuilder) unknownOpcode(op uint8) *VMError {
	return eb.makeError(PanicUnknownOpcode, fmt.Sprintf("unknown opcode %d", op))
}

func (eb *errorBuilder) codeOverrun(fn string) *VMError {
	return eb.makeError(PanicCodeOverrun, fmt.Sprintf("%s: execution ran past the end of the function", fn))
}

func (eb *errorBuilder) badFunction(index int) *VMError {
	return eb.makeError(PanicBadFunction, fmt.Sprintf("call to unknown function #%d", index))
}

func (eb *errorBuilder) badConstant(index, size int) *VMError {
	return eb.makeError(PanicBadConstant, fmt.Sprintf("constant k%d outside pool of %d", index, size))
}
