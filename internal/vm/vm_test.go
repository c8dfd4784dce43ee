package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"escript/internal/bytecode"
	"escript/internal/value"
)

func movi(r uint32, v int32) bytecode.Instruction {
	return bytecode.EncodeAY(bytecode.OpMovi, r, bytecode.SignedBits(bytecode.SizeY, v))
}

func abc(op bytecode.Opcode, a, b, c uint32) bytecode.Instruction {
	return bytecode.EncodeABC(op, a, b, c)
}

func reg(r uint32) uint32               { return bytecode.Reg(r) }
func konst(k int) uint32                { return bytecode.Const(uint32(k)) }
func ret(n uint32) bytecode.Instruction { return bytecode.EncodeX(bytecode.OpRet, n) }

// declare adds code as its own chunk and registers one function spanning it.
func declare(t *testing.T, st *State, name string, params, returns int, code ...bytecode.Instruction) int {
	t.Helper()
	chunk := st.AddChunk(code)
	idx, err := st.DeclareFunction(Function{
		Name: name, Params: params, Returns: returns,
		Chunk: chunk, Offset: 0, Size: len(code),
	})
	if err != nil {
		t.Fatalf("DeclareFunction(%s): %v", name, err)
	}
	return idx
}

func wantPanic(t *testing.T, err error, code PanicCode) *VMError {
	t.Helper()
	var vmErr *VMError
	if !errors.As(err, &vmErr) {
		t.Fatalf("expected VM panic %s, got %v", code, err)
	}
	if vmErr.Code != code {
		t.Fatalf("panic code = %s, want %s (%s)", vmErr.Code, code, vmErr.Message)
	}
	return vmErr
}

func TestExecuteArithmetic(t *testing.T) {
	st := New(Options{})
	defer st.Close()
	k := st.AddInt(1000)
	err := st.ExecuteBytecode([]bytecode.Instruction{
		movi(0, 6),
		movi(1, 7),
		abc(bytecode.OpMul, 2, reg(0), reg(1)),
		abc(bytecode.OpAdd, 3, reg(2), konst(k)),
		abc(bytecode.OpSub, 4, reg(0), reg(1)),
		abc(bytecode.OpMod, 5, konst(k), reg(1)),
		bytecode.EncodeAY(bytecode.OpNeg, 6, reg(4)),
	})
	if err != nil {
		t.Fatalf("ExecuteBytecode: %v", err)
	}
	if !st.Halted() {
		t.Fatalf("state not halted after running off the end")
	}
	want := []int64{6, 7, 42, 1042, -1, 1000 % 7, 1}
	for i, w := range want {
		if got := st.Stack()[i]; got.Tid() != value.TInt || got.AsInt() != w {
			t.Errorf("r%d = %s, want %d", i, got, w)
		}
	}
	if st.Top() != len(want) {
		t.Errorf("Top = %d, want %d", st.Top(), len(want))
	}
}

func TestFloatAndComparison(t *testing.T) {
	st := New(Options{})
	defer st.Close()
	a, b := st.AddFloat(1.5), st.AddFloat(2.25)
	err := st.ExecuteBytecode([]bytecode.Instruction{
		abc(bytecode.OpAdd, 0, konst(a), konst(b)),
		abc(bytecode.OpLt, 1, konst(a), konst(b)),
		abc(bytecode.OpLe, 2, konst(b), konst(a)),
		abc(bytecode.OpEq, 3, konst(a), konst(a)),
		bytecode.EncodeAY(bytecode.OpLnot, 4, reg(2)),
	})
	if err != nil {
		t.Fatalf("ExecuteBytecode: %v", err)
	}
	s := st.Stack()
	if s[0].AsFloat() != 3.75 {
		t.Errorf("r0 = %s", s[0])
	}
	for i, w := range []bool{true, false, true, true} {
		if v := s[i+1]; v.Tid() != value.TBool || v.AsBool() != w {
			t.Errorf("r%d = %s, want %v", i+1, v, w)
		}
	}
}

func TestJumpUsesLastResult(t *testing.T) {
	st := New(Options{})
	defer st.Close()
	err := st.ExecuteBytecode([]bytecode.Instruction{
		movi(0, 1),
		movi(1, 2),
		abc(bytecode.OpLt, 2, reg(0), reg(1)),
		bytecode.EncodeAY(bytecode.OpJmp, 1, 1), // taken: last result is true
		movi(3, 100),
		abc(bytecode.OpEq, 4, reg(0), reg(1)),
		bytecode.EncodeAY(bytecode.OpJmp, 1, 1), // not taken
		movi(5, 7),
	})
	if err != nil {
		t.Fatalf("ExecuteBytecode: %v", err)
	}
	s := st.Stack()
	if !s[3].IsNil() {
		t.Errorf("r3 = %s, jump was not taken", s[3])
	}
	if s[5].AsInt() != 7 {
		t.Errorf("r5 = %s, jump was taken", s[5])
	}
}

func TestJumpWithoutResultSeesZero(t *testing.T) {
	st := New(Options{})
	defer st.Close()
	err := st.ExecuteBytecode([]bytecode.Instruction{
		bytecode.EncodeAY(bytecode.OpJmp, 0, 1),
		movi(0, 9),
	})
	if err != nil {
		t.Fatalf("ExecuteBytecode: %v", err)
	}
	if st.Top() != 0 {
		t.Fatalf("MOVI ran, top = %d", st.Top())
	}
}

func TestCallArgs(t *testing.T) {
	st := New(Options{})
	defer st.Close()
	k := st.AddInt(1)
	declare(t, st, "inc", 1, 1,
		abc(bytecode.OpAdd, 0, reg(0), konst(k)),
		ret(1),
	)
	n, err := st.CallArgs("inc", value.Int(41))
	if err != nil {
		t.Fatalf("CallArgs: %v", err)
	}
	if n != 1 || st.Results(n)[0].AsInt() != 42 {
		t.Fatalf("inc(41) = %v (n=%d)", st.Results(n), n)
	}
	if _, err := st.CallArgs("inc"); !errors.Is(err, ErrArgCount) {
		t.Fatalf("CallArgs with no args: %v", err)
	}
}

func TestNestedCallWindows(t *testing.T) {
	st := New(Options{})
	defer st.Close()
	double := declare(t, st, "double", 1, 1,
		abc(bytecode.OpAdd, 0, reg(0), reg(0)),
		ret(1),
	)
	declare(t, st, "main", 0, 1,
		movi(0, 1),
		movi(1, 5),
		bytecode.EncodeAY(bytecode.OpCall, 1, uint32(double)),
		abc(bytecode.OpAdd, 0, reg(0), reg(1)),
		ret(1),
	)
	n, err := st.Call("main")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got := st.Results(n)[0].AsInt(); got != 11 {
		t.Fatalf("main() = %d, want 11", got)
	}
	if st.Depth() != 0 {
		t.Fatalf("frames left after return: %d", st.Depth())
	}
}

func TestCallUnknownName(t *testing.T) {
	st := New(Options{})
	defer st.Close()
	n, err := st.Call("missing")
	if n != -1 || !errors.Is(err, ErrNoFunction) {
		t.Fatalf("Call(missing) = %d, %v", n, err)
	}
}

func TestReturnMismatchKeepsFrames(t *testing.T) {
	st := New(Options{})
	defer st.Close()
	declare(t, st, "f", 0, 1, ret(0))
	_, err := st.Call("f")
	vmErr := wantPanic(t, err, PanicReturnMismatch)
	if st.Depth() != 1 {
		t.Fatalf("depth = %d, want the faulting frame kept", st.Depth())
	}
	if vmErr.Func != "f" || vmErr.IP != 0 {
		t.Fatalf("fault at %s+%d", vmErr.Func, vmErr.IP)
	}
}

func TestRuntimePanics(t *testing.T) {
	tests := []struct {
		name string
		code func(st *State) []bytecode.Instruction
		want PanicCode
	}{
		{"int plus bool", func(st *State) []bytecode.Instruction {
			k := st.AddBool(true)
			return []bytecode.Instruction{movi(0, 1), abc(bytecode.OpAdd, 1, reg(0), konst(k))}
		}, PanicTypeMismatch},
		{"eq across types", func(st *State) []bytecode.Instruction {
			k := st.AddFloat(1)
			return []bytecode.Instruction{movi(0, 1), abc(bytecode.OpEq, 1, reg(0), konst(k))}
		}, PanicTypeMismatch},
		{"land on ints", func(st *State) []bytecode.Instruction {
			return []bytecode.Instruction{movi(0, 1), abc(bytecode.OpLand, 1, reg(0), reg(0))}
		}, PanicTypeMismatch},
		{"divide by zero", func(st *State) []bytecode.Instruction {
			return []bytecode.Instruction{movi(0, 1), movi(1, 0), abc(bytecode.OpDiv, 2, reg(0), reg(1))}
		}, PanicDivideByZero},
		{"modulo by zero", func(st *State) []bytecode.Instruction {
			return []bytecode.Instruction{movi(0, 1), movi(1, 0), abc(bytecode.OpMod, 2, reg(0), reg(1))}
		}, PanicDivideByZero},
		{"bad constant", func(st *State) []bytecode.Instruction {
			return []bytecode.Instruction{bytecode.EncodeAY(bytecode.OpMov, 0, konst(99))}
		}, PanicBadConstant},
		{"register past stack", func(st *State) []bytecode.Instruction {
			return []bytecode.Instruction{movi(200, 1)}
		}, PanicStackOverflow},
		{"bad function", func(st *State) []bytecode.Instruction {
			return []bytecode.Instruction{bytecode.EncodeAY(bytecode.OpCall, 0, 5)}
		}, PanicBadFunction},
		{"unknown opcode", func(st *State) []bytecode.Instruction {
			return []bytecode.Instruction{bytecode.EncodeX(bytecode.Opcode(40), 0)}
		}, PanicUnknownOpcode},
		{"jump before start", func(st *State) []bytecode.Instruction {
			return []bytecode.Instruction{bytecode.EncodeAY(bytecode.OpJmp, 2, bytecode.SignedBits(bytecode.SizeY, -5))}
		}, PanicCodeOverrun},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := New(Options{StackSize: 16})
			defer st.Close()
			wantPanic(t, st.ExecuteBytecode(tt.code(st)), tt.want)
		})
	}
}

func TestFrameOverflow(t *testing.T) {
	st := New(Options{MaxFrames: 8})
	defer st.Close()
	declare(t, st, "loop", 0, 0,
		bytecode.EncodeAY(bytecode.OpCall, 0, 0),
		ret(0),
	)
	_, err := st.Call("loop")
	vmErr := wantPanic(t, err, PanicFrameOverflow)
	if len(vmErr.Backtrace) != 8 {
		t.Fatalf("backtrace has %d frames, want 8", len(vmErr.Backtrace))
	}
}

func TestFunctionOverrun(t *testing.T) {
	st := New(Options{})
	defer st.Close()
	declare(t, st, "f", 0, 0, movi(0, 1))
	_, err := st.Call("f")
	wantPanic(t, err, PanicCodeOverrun)
}

func TestConstantDedup(t *testing.T) {
	st := New(Options{})
	defer st.Close()
	i1, i2 := st.AddInt(7), st.AddInt(7)
	f := st.AddFloat(7)
	s1, s2 := st.AddString("hi"), st.AddString("hi")
	n1, n2 := st.AddNil(), st.AddNil()
	if i1 != i2 || s1 != s2 || n1 != n2 {
		t.Fatalf("duplicates got new slots: %d/%d %d/%d %d/%d", i1, i2, s1, s2, n1, n2)
	}
	if f == i1 {
		t.Fatalf("float 7 shares the slot of int 7")
	}
	if st.NumConsts() != 4 {
		t.Fatalf("NumConsts = %d, want 4", st.NumConsts())
	}
}

func TestRollbackErasesConstants(t *testing.T) {
	st := New(Options{})
	defer st.Close()
	st.AddInt(1)
	cp := st.Mark()
	st.AddString("tmp")
	st.AddNil()
	declare(t, st, "f", 0, 0, ret(0))
	st.Rollback(cp)
	if st.NumConsts() != 1 || st.NumFunctions() != 0 || len(st.Chunks()) != 0 {
		t.Fatalf("rollback left consts=%d funcs=%d chunks=%d", st.NumConsts(), st.NumFunctions(), len(st.Chunks()))
	}
	if _, ok := st.FunctionIndex("f"); ok {
		t.Fatalf("function name survived rollback")
	}
	if k := st.AddString("tmp"); k != 1 {
		t.Fatalf("re-added string got slot %d, want 1", k)
	}
	if k := st.AddNil(); k != 2 {
		t.Fatalf("re-added nil got slot %d, want 2", k)
	}
}

func TestMovCopiesStringConstant(t *testing.T) {
	st := New(Options{})
	defer st.Close()
	k := st.AddString("abc")
	err := st.ExecuteBytecode([]bytecode.Instruction{
		bytecode.EncodeAY(bytecode.OpMov, 0, konst(k)),
		bytecode.EncodeAY(bytecode.OpMov, 1, reg(0)),
	})
	if err != nil {
		t.Fatalf("ExecuteBytecode: %v", err)
	}
	pool := st.Const(k)
	r0 := st.Stack()[0]
	if r0.Object() == pool.Object() {
		t.Fatalf("MOV from the pool aliased the constant")
	}
	if !value.Equal(r0, pool) || value.Refs(r0) != 1 {
		t.Fatalf("r0 = %s refs %d", r0, value.Refs(r0))
	}
}

func TestFunctionIndexAfterDeclare(t *testing.T) {
	st := New(Options{})
	defer st.Close()
	names := []string{"main", "helper", "fib"}
	for i, name := range names {
		if got := declare(t, st, name, 0, 0, ret(0)); got != i {
			t.Fatalf("declare(%s) = %d, want %d", name, got, i)
		}
	}
	for i, name := range names {
		idx, ok := st.FunctionIndex(name)
		if !ok || idx != i {
			t.Fatalf("FunctionIndex(%s) = %d, %v; want %d", name, idx, ok, i)
		}
	}
	st.fnIndex.Range(func(key, _ *value.Value) bool {
		if key.String() == "" || value.Refs(*key) != 1 {
			t.Errorf("stored key %q has refs %d", key.String(), value.Refs(*key))
		}
		return true
	})
	if _, err := st.Call("helper"); err != nil {
		t.Fatalf("Call(helper): %v", err)
	}
}

func TestDuplicateFunction(t *testing.T) {
	st := New(Options{})
	defer st.Close()
	declare(t, st, "f", 0, 0, ret(0))
	if _, err := st.DeclareFunction(Function{Name: "f"}); !errors.Is(err, ErrDuplicateFunction) {
		t.Fatalf("DeclareFunction twice: %v", err)
	}
}

func TestTracer(t *testing.T) {
	var buf bytes.Buffer
	st := New(Options{Tracer: NewTracer(&buf)})
	defer st.Close()
	if err := st.ExecuteBytecode([]bytecode.Instruction{movi(0, 3)}); err != nil {
		t.Fatalf("ExecuteBytecode: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"[depth=1] <exec>+0 movi   r0, 3", "write s0 = 3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("trace missing %q:\n%s", want, out)
		}
	}
}
