package asm_test

import (
	"bytes"
	"strings"
	"testing"

	"escript/internal/asm"
	"escript/internal/compiler"
	"escript/internal/diag"
	"escript/internal/source"
	"escript/internal/value"
	"escript/internal/vm"
)

func assemble(t *testing.T, st *vm.State, src string) (asm.Result, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.esasm", []byte(src))
	bag := diag.NewBag(0)
	res := asm.Assemble(st, fs.Get(id), asm.Options{Reporter: diag.BagReporter{Bag: bag}})
	return res, bag
}

func mustAssemble(t *testing.T, st *vm.State, src string) asm.Result {
	t.Helper()
	res, bag := assemble(t, st, src)
	if !res.OK() {
		var msgs []string
		for _, d := range bag.Items() {
			msgs = append(msgs, d.Code.ID()+" "+d.Message)
		}
		t.Fatalf("assemble failed with %d errors:\n%s", res.Errors, strings.Join(msgs, "\n"))
	}
	return res
}

func call(t *testing.T, st *vm.State, name string) []value.Value {
	t.Helper()
	n, err := st.Call(name)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return st.Results(n)
}

func TestLoop(t *testing.T) {
	st := vm.New(vm.Options{})
	defer st.Close()
	res := mustAssemble(t, st, `
; sum 5 + 4 + ... + 1
main:
    movi r0, 0
    movi r1, 5
.loop:
    add  r0, r0, r1
    sub  r1, r1, 1
    lt   r2, 0, r1
    jmp  1, .loop
    ret  1
`)
	if len(res.Functions) != 1 {
		t.Fatalf("exported %d functions, want 1", len(res.Functions))
	}
	f := st.Function(res.Functions[0])
	if f.Name != "main" || f.Offset != 0 || f.Size != 7 || f.Returns != 1 {
		t.Fatalf("main = %+v", *f)
	}
	got := call(t, st, "main")
	if len(got) != 1 || got[0].AsInt() != 15 {
		t.Fatalf("main = %v, want 15", got)
	}
}

func TestCallByLabel(t *testing.T) {
	st := vm.New(vm.Options{})
	defer st.Close()
	mustAssemble(t, st, `
main:
    movi r1, 20
    movi r2, 22
    call r1, add2
    mov  r0, r1
    mov  r3, add2
    ret  1
add2:
    add  r0, r0, r1
    ret  1
`)
	got := call(t, st, "main")
	if got[0].AsInt() != 42 {
		t.Fatalf("main = %v, want 42", got[0])
	}
	idx, ok := st.FunctionIndex("add2")
	if !ok {
		t.Fatalf("add2 not exported")
	}
	if f := st.Function(idx); f.Offset != 6 || f.Size != 2 || f.Returns != 1 {
		t.Fatalf("add2 = %+v", *f)
	}
	found := false
	for k := 0; k < st.NumConsts(); k++ {
		if fn, ok := st.Const(k).AsFunc(); ok && fn.Index == idx {
			found = true
		}
	}
	if !found {
		t.Fatalf("no function-pointer constant for add2")
	}
}

func TestLiteralOperands(t *testing.T) {
	st := vm.New(vm.Options{})
	defer st.Close()
	mustAssemble(t, st, `
main:
    mov  r0, "hi, there" ; commas inside strings are kept
    mov  r1, 2.5
    mov  r2, true
    add  r3, 40, 2
    ret  4
`)
	got := call(t, st, "main")
	if s, ok := got[0].AsString(); !ok || s.String() != "hi, there" {
		t.Fatalf("r0 = %v", got[0])
	}
	if got[1].Tid() != value.TFloat || got[1].AsFloat() != 2.5 {
		t.Fatalf("r1 = %v", got[1])
	}
	if got[2].Tid() != value.TBool || !got[2].AsBool() {
		t.Fatalf("r2 = %v", got[2])
	}
	if got[3].AsInt() != 42 {
		t.Fatalf("r3 = %v", got[3])
	}
}

func TestCaseInsensitiveMnemonics(t *testing.T) {
	st := vm.New(vm.Options{})
	defer st.Close()
	mustAssemble(t, st, "Entry: MOVI R0, 7\n  Ret 1\n")
	if got := call(t, st, "Entry"); got[0].AsInt() != 7 {
		t.Fatalf("Entry = %v, want 7", got[0])
	}
	if _, ok := st.FunctionIndex("entry"); ok {
		t.Fatalf("labels must keep their case")
	}
}

func TestFunctionBounds(t *testing.T) {
	st := vm.New(vm.Options{})
	defer st.Close()
	mustAssemble(t, st, `
first:
    movi r0, 1
.inner:
    ret  1
second:
    movi r0, 2
    movi r1, 3
    ret  2
empty:
`)
	tests := []struct {
		name                  string
		offset, size, returns int
	}{
		{"first", 0, 2, 1},
		{"second", 2, 3, 2},
		{"empty", 5, 0, 0},
	}
	for _, tt := range tests {
		idx, ok := st.FunctionIndex(tt.name)
		if !ok {
			t.Fatalf("%s not exported", tt.name)
		}
		f := st.Function(idx)
		if f.Offset != tt.offset || f.Size != tt.size || f.Returns != tt.returns {
			t.Errorf("%s = %+v", tt.name, *f)
		}
	}
	if _, ok := st.FunctionIndex(".inner"); ok {
		t.Fatalf("local label was exported")
	}
}

func TestAssembleErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code diag.Code
	}{
		{"unknown mnemonic", "main:\n  nop\n  ret 0\n", diag.AsmUnknownMnemonic},
		{"duplicate label", "main:\n  ret 0\nmain:\n  ret 0\n", diag.AsmDuplicateLabel},
		{"undefined label", "main:\n  jmp 2, .nowhere\n  ret 0\n", diag.AsmUndefinedLabel},
		{"undefined constant label", "main:\n  mov r0, nowhere\n  ret 0\n", diag.AsmUndefinedLabel},
		{"bad register", "main:\n  movi x0, 1\n  ret 0\n", diag.AsmBadOperand},
		{"negative immediate", "main:\n  ret -1\n", diag.AsmBadOperand},
		{"register as immediate", "main:\n  jmp r1, 2\n  ret 0\n", diag.AsmBadOperand},
		{"too few operands", "main:\n  add r0, r1\n  ret 0\n", diag.AsmOperandCount},
		{"too many operands", "main:\n  ret 0 1\n", diag.AsmOperandCount},
		{"register range", "main:\n  movi r256, 1\n  ret 0\n", diag.AsmOperandRange},
		{"rk range", "main:\n  add r0, r300, r1\n  ret 0\n", diag.AsmOperandRange},
		{"immediate range", "main:\n  movi r0, 200000\n  ret 0\n", diag.AsmOperandRange},
		{"missing pool entry", "main:\n  mov r0, k99\n  ret 0\n", diag.AsmOperandRange},
		{"bad label", "1abc:\n  ret 0\n", diag.AsmBadLabel},
		{"register label", "r1:\n  ret 0\n", diag.AsmBadLabel},
		{"call local label", "main:\n  call r0, .x\n.x:\n  ret 0\n", diag.AsmBadLabel},
		{"malformed string", "main:\n  mov r0, \"abc\n  ret 0\n", diag.AsmBadOperand},
		{"late error drops constants", "main:\n  mov r0, 12345\n  mov r1, 2.5\n  mov r2, bogus!\n  ret 0\n", diag.AsmBadOperand},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := vm.New(vm.Options{})
			defer st.Close()
			res, bag := assemble(t, st, tt.src)
			if res.OK() || res.Chunk != -1 {
				t.Fatalf("assembled without errors: %+v", res)
			}
			found := false
			for _, d := range bag.Items() {
				if d.Code == tt.code {
					found = true
				}
			}
			if !found {
				var codes []string
				for _, d := range bag.Items() {
					codes = append(codes, d.Code.ID()+" "+d.Message)
				}
				t.Fatalf("want %s, got %v", tt.code.ID(), codes)
			}
			if st.NumFunctions() != 0 || st.NumConsts() != 0 || len(st.Chunks()) != 0 {
				t.Fatalf("state not rolled back: %d funcs, %d consts, %d chunks",
					st.NumFunctions(), st.NumConsts(), len(st.Chunks()))
			}
		})
	}
}

func TestDiagnosticSpans(t *testing.T) {
	st := vm.New(vm.Options{})
	defer st.Close()
	_, bag := assemble(t, st, "main:\n  nop\nmain:\n  ret 0\n")
	items := bag.Items()
	if len(items) != 2 {
		t.Fatalf("got %d diagnostics, want 2", len(items))
	}
	for _, d := range items {
		switch d.Code {
		case diag.AsmUnknownMnemonic:
			if d.Primary.Start != 8 || d.Primary.End != 11 {
				t.Errorf("nop span = %+v", d.Primary)
			}
		case diag.AsmDuplicateLabel:
			if len(d.Notes) != 1 || d.Notes[0].Span.Start != 0 {
				t.Errorf("duplicate label notes = %+v", d.Notes)
			}
		default:
			t.Errorf("unexpected %s %s", d.Code.ID(), d.Message)
		}
	}
}

func TestDuplicateFunctionAcrossCalls(t *testing.T) {
	st := vm.New(vm.Options{})
	defer st.Close()
	mustAssemble(t, st, "main:\n  ret 0\n")
	res, bag := assemble(t, st, "helper:\n  ret 0\nmain:\n  ret 0\n")
	if res.OK() {
		t.Fatalf("second main accepted")
	}
	if bag.Len() == 0 || bag.Items()[0].Code != diag.AsmDuplicateLabel {
		t.Fatalf("diagnostics = %+v", bag.Items())
	}
	if st.NumFunctions() != 1 || len(st.Chunks()) != 1 {
		t.Fatalf("failed call left %d funcs, %d chunks", st.NumFunctions(), len(st.Chunks()))
	}
	if _, ok := st.FunctionIndex("helper"); ok {
		t.Fatalf("helper survived the rollback")
	}
}

func TestFormatLabels(t *testing.T) {
	st := vm.New(vm.Options{})
	defer st.Close()
	res := mustAssemble(t, st, `
main:
    movi r0, 0
    movi r1, 5
.loop:
    add  r0, r0, r1
    sub  r1, r1, 1
    lt   r2, 0, r1
    jmp  1, .loop
    ret  1
`)
	var buf bytes.Buffer
	if err := asm.Format(&buf, st, res.Chunk); err != nil {
		t.Fatalf("Format: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"main:\n", ".L2:\n", "jmp    1, .L2", "sub    r1, r1, 1", "lt     r2, 0, r1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("listing missing %q:\n%s", want, out)
		}
	}
	if err := asm.Format(&buf, st, 7); err == nil {
		t.Fatalf("Format accepted a missing chunk")
	}
}

func TestCompiledCodeRoundTrip(t *testing.T) {
	src := `func fib(n)
  if n < 2
    return n
  return fib(n - 1) + fib(n - 2)

func main()
  var s = "abc"
  var f = 15 * 20
  var big = 1000000
  if s == "abc"
    return fib(10) + big
  else
    return 0
`
	st1 := vm.New(vm.Options{})
	defer st1.Close()
	fs := source.NewFileSet()
	id := fs.AddVirtual("rt.es", []byte(src))
	cres := compiler.CompileFile(st1, fs.Get(id), compiler.Options{})
	if !cres.OK() {
		t.Fatalf("compile failed with %d errors", cres.Errors)
	}
	var first bytes.Buffer
	if err := asm.Format(&first, st1, cres.Chunk); err != nil {
		t.Fatalf("Format: %v", err)
	}

	st2 := vm.New(vm.Options{})
	defer st2.Close()
	ares := mustAssemble(t, st2, first.String())
	var second bytes.Buffer
	if err := asm.Format(&second, st2, ares.Chunk); err != nil {
		t.Fatalf("Format: %v", err)
	}
	if first.String() != second.String() {
		t.Fatalf("listings differ:\n%s\n----\n%s", first.String(), second.String())
	}

	want := call(t, st1, "main")[0].AsInt()
	if got := call(t, st2, "main")[0].AsInt(); got != want || got != 1000055 {
		t.Fatalf("main = %d (compiled %d), want 1000055", got, want)
	}
	code1 := st1.Chunks()[cres.Chunk].Code
	code2 := st2.Chunks()[ares.Chunk].Code
	if len(code1) != len(code2) {
		t.Fatalf("instruction counts differ: %d vs %d", len(code1), len(code2))
	}
	for i := range code1 {
		if code1[i].Op() != code2[i].Op() || code1[i].A() != code2[i].A() {
			t.Fatalf("instruction %d: %08x vs %08x", i, uint32(code1[i]), uint32(code2[i]))
		}
	}
}
