// Package asm assembles escript assembly text into a vm.State chunk.
//
// The format is line oriented:
//
//	main:            ; a label not starting with '.' exports a function
//	    movi r0, 3
//	.loop:
//	    sub  r0, r0, 1
//	    jmp  1, .loop
//	    ret  0
//
// Mnemonics and the r/k operand prefixes are case-insensitive; labels are not.
// Operands are separated by whitespace or commas.
package asm

import (
	"fmt"
	"strings"
	"unicode"

	"escript/internal/bytecode"
	"escript/internal/diag"
	"escript/internal/source"
	"escript/internal/vm"
)

type Options struct {
	Reporter  diag.Reporter // may be nil
	MaxErrors int           // stop reporting after this many errors; 0 = no limit
}

// Result describes one Assemble call.
type Result struct {
	Errors    int
	Chunk     int   // index of the committed chunk, -1 on failure
	Functions []int // indices of the exported labels' functions
}

// OK reports whether the call committed a chunk.
func (r Result) OK() bool { return r.Errors == 0 }

type label struct {
	name string
	pos  int // instruction index the label precedes
	span source.Span
	fn   int // function index for exported labels, -1 otherwise
}

// stmt is an instruction line accepted by the first pass.
type stmt struct {
	op       bytecode.Opcode
	mnemonic field
	operands []field
}

type assembler struct {
	st   *vm.State
	file source.FileID
	opts Options

	labels map[string]*label
	order  []*label // definition order
	stmts  []stmt
	code   []bytecode.Instruction

	errors   int
	reported int
}

// Assemble assembles file into st. On success exactly one chunk is added,
// along with one function per exported label. On failure st is rolled back.
func Assemble(st *vm.State, file *source.File, opts Options) Result {
	a := &assembler{
		st:     st,
		file:   file.ID,
		opts:   opts,
		labels: make(map[string]*label),
	}
	cp := st.Mark()
	a.scan(splitLines(file.Content))
	if a.errors == 0 {
		a.declare()
	}
	if a.errors == 0 {
		a.encode()
	}
	if a.errors == 0 && len(a.code) != len(a.stmts) {
		a.errorf(diag.AsmCountMismatch, source.Span{File: a.file},
			"second pass produced %d instructions, first pass counted %d", len(a.code), len(a.stmts))
	}
	if a.errors > 0 {
		st.Rollback(cp)
		return Result{Errors: a.errors, Chunk: -1}
	}

	chunk := st.AddChunk(a.code)
	res := Result{Chunk: chunk}
	for _, l := range a.order {
		if l.fn < 0 {
			continue
		}
		f := st.Function(l.fn)
		f.Chunk = chunk
		f.Returns = a.returnsFrom(l.pos, f.Offset+f.Size)
		res.Functions = append(res.Functions, l.fn)
	}
	return res
}

func (a *assembler) span(f field) source.Span {
	return source.Span{File: a.file, Start: f.start, End: f.end}
}

func (a *assembler) errorf(code diag.Code, sp source.Span, format string, args ...any) {
	a.errors++
	if a.opts.Reporter == nil {
		return
	}
	if a.opts.MaxErrors > 0 && a.reported >= a.opts.MaxErrors {
		return
	}
	a.reported++
	a.opts.Reporter.Report(code, diag.SevError, sp, fmt.Sprintf(format, args...), nil)
}

// scan is the first pass: it registers labels and collects instruction lines.
func (a *assembler) scan(lines []line) {
	for _, ln := range lines {
		fs := ln.fields
		if strings.HasSuffix(fs[0].text, ":") {
			a.define(fs[0])
			fs = fs[1:]
		}
		if len(fs) == 0 {
			continue
		}
		op, ok := bytecode.Lookup(fs[0].text)
		if !ok {
			a.errorf(diag.AsmUnknownMnemonic, a.span(fs[0]), "unknown instruction '%s'", fs[0].text)
			continue
		}
		info, _ := op.Info()
		if want := len(info.Kinds()); len(fs)-1 != want {
			sp := a.span(fs[0])
			if len(fs) > 1 {
				sp.End = fs[len(fs)-1].end
			}
			a.errorf(diag.AsmOperandCount, sp, "%s takes %d operand%s, found %d", info.Name, want, plural(want), len(fs)-1)
		}
		a.stmts = append(a.stmts, stmt{op: op, mnemonic: fs[0], operands: fs[1:]})
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func (a *assembler) define(f field) {
	name := strings.TrimSuffix(f.text, ":")
	sp := a.span(f)
	if !validLabel(name) {
		a.errorf(diag.AsmBadLabel, sp, "invalid label name %q", name)
		return
	}
	if _, _, ok := prefixed(name); ok {
		a.errorf(diag.AsmBadLabel, sp, "label %q looks like an operand", name)
		return
	}
	if prev, ok := a.labels[name]; ok {
		if a.opts.Reporter != nil && (a.opts.MaxErrors == 0 || a.reported < a.opts.MaxErrors) {
			a.reported++
			diag.ReportError(a.opts.Reporter, diag.AsmDuplicateLabel, sp, fmt.Sprintf("duplicate label %q", name)).
				WithNote(prev.span, "first defined here").
				Emit()
		}
		a.errors++
		return
	}
	l := &label{name: name, pos: len(a.stmts), span: sp, fn: -1}
	a.labels[name] = l
	a.order = append(a.order, l)
}

func validLabel(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r == '.' || unicode.IsLetter(r):
		case unicode.IsDigit(r) && i > 0:
		default:
			return false
		}
	}
	return true
}

func exported(name string) bool { return !strings.HasPrefix(name, ".") }

// declare registers a function for every exported label. A function spans
// up to the next exported label or the end of the chunk.
func (a *assembler) declare() {
	chunk := a.st.NextChunk()
	var exports []*label
	for _, l := range a.order {
		if exported(l.name) {
			exports = append(exports, l)
		}
	}
	for n, l := range exports {
		end := len(a.stmts)
		if n+1 < len(exports) {
			end = exports[n+1].pos
		}
		idx, err := a.st.DeclareFunction(vm.Function{
			Name:   l.name,
			Chunk:  chunk,
			Offset: l.pos,
			Size:   end - l.pos,
		})
		if err != nil {
			a.errorf(diag.AsmDuplicateLabel, l.span, "function %q is already declared", l.name)
			continue
		}
		l.fn = idx
	}
}

// returnsFrom is the X operand of the first ret in code[from:end], or 0.
func (a *assembler) returnsFrom(from, end int) int {
	for pos := from; pos < end && pos < len(a.code); pos++ {
		if ins := a.code[pos]; ins.Op() == bytecode.OpRet {
			return int(ins.X())
		}
	}
	return 0
}

// encode is the second pass.
func (a *assembler) encode() {
	a.code = make([]bytecode.Instruction, 0, len(a.stmts))
	for pos, s := range a.stmts {
		ins, ok := a.instruction(pos, s)
		if !ok {
			continue
		}
		a.code = append(a.code, ins)
	}
}

func (a *assembler) instruction(pos int, s stmt) (bytecode.Instruction, bool) {
	info, _ := s.op.Info()
	kinds := info.Kinds()
	sizes := fieldSizes(info.Sig)
	vals := make([]uint32, len(kinds))
	ok := true
	for n, kind := range kinds {
		v, good := a.operand(pos, s.op, kind, sizes[n], s.operands[n])
		vals[n] = v
		ok = ok && good
	}
	if !ok {
		return 0, false
	}
	var f bytecode.Fields
	switch info.Sig {
	case bytecode.SigAY:
		f = bytecode.Fields{A: vals[0], Y: vals[1]}
	case bytecode.SigX:
		f = bytecode.Fields{X: vals[0]}
	default:
		f = bytecode.Fields{A: vals[0], B: vals[1], C: vals[2]}
	}
	ins, err := bytecode.Encode(s.op, f)
	if err != nil {
		a.errorf(diag.AsmOperandRange, a.span(s.mnemonic), "%v", err)
		return 0, false
	}
	return ins, true
}

func fieldSizes(sig bytecode.Signature) []uint {
	switch sig {
	case bytecode.SigAY:
		return []uint{bytecode.SizeA, bytecode.SizeY}
	case bytecode.SigX:
		return []uint{bytecode.SizeX}
	default:
		return []uint{bytecode.SizeA, bytecode.SizeB, bytecode.SizeC}
	}
}
