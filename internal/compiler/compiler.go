// Package compiler translates escript tokens into bytecode for a vm.State.
//
// Expressions are compiled by precedence climbing straight into register
// code; there is no syntax tree. Each statement starts allocating temporaries
// right above its function's locals, and binary and unary operators write into
// one of their temporary operands whenever they can.
package compiler

import (
	"escript/internal/bytecode"
	"escript/internal/diag"
	"escript/internal/lexer"
	"escript/internal/source"
	"escript/internal/token"
	"escript/internal/vm"
)

type Options struct {
	Reporter  diag.Reporter // may be nil
	MaxErrors int           // stop reporting after this many errors; 0 = no limit
}

// Result describes one Compile call.
type Result struct {
	Errors    int   // static errors, including invalid tokens
	Chunk     int   // index of the committed chunk, -1 on failure
	Functions []int // indices of the functions this call declared
}

// OK reports whether the compile committed a chunk.
func (r Result) OK() bool { return r.Errors == 0 }

// funcInfo tracks a function declared by the running compile.
type funcInfo struct {
	index   int // in the State's function table, -1 when the declaration failed
	params  int
	returns int // -1 until the first return statement
	offset  int
	size    int
}

type compiler struct {
	st   *vm.State
	opts Options
	toks []token.Token
	pos  int

	code []bytecode.Instruction

	operands  []uint32 // RK-style descriptors: reg<<1 or k<<1|1
	nextReg   int
	locals    []string
	indents   []int // block indents; singleLine marks a one-line block
	stmtStart int   // first instruction of the current statement
	target    int   // latest forward-jump destination, -1 when none
	returned  bool  // every path through the last statement returns

	decls map[int]int // token position of a 'func' keyword -> entry in funcs
	funcs []funcInfo
	fn    *funcInfo // function being compiled

	errors   int
	reported int
	panicked bool
}

// Compile compiles toks into st. On success it appends exactly one chunk and
// the functions declared in toks. On failure every function and constant the
// call added is dropped and st is left as it was.
//
// Invalid tokens count as errors; the lexer has already reported them.
func Compile(st *vm.State, toks []token.Token, opts Options) Result {
	c := &compiler{
		st:     st,
		opts:   opts,
		target: -1,
		decls:  make(map[int]int),
	}
	c.toks = make([]token.Token, 0, len(toks)+1)
	for _, tok := range toks {
		if tok.Kind == token.Invalid {
			c.errors++
			continue
		}
		c.toks = append(c.toks, tok)
	}
	if n := len(c.toks); n == 0 || c.toks[n-1].Kind != token.EOF {
		eof := token.Token{Kind: token.EOF}
		if n > 0 {
			last := c.toks[n-1]
			eof.Span = last.Span
			eof.Span.Start = last.Span.End
			eof.Line = last.Line
		}
		c.toks = append(c.toks, eof)
	}

	cp := st.Mark()
	c.declareFunctions()
	c.declarations()

	if c.errors > 0 {
		st.Rollback(cp)
		return Result{Errors: c.errors, Chunk: -1}
	}

	chunk := st.AddChunk(c.code)
	res := Result{Chunk: chunk, Functions: make([]int, 0, len(c.funcs))}
	for _, info := range c.funcs {
		f := st.Function(info.index)
		f.Chunk = chunk
		f.Offset = info.offset
		f.Size = info.size
		f.Returns = max(info.returns, 0)
		res.Functions = append(res.Functions, info.index)
	}
	return res
}

// CompileFile lexes file and compiles it. Lexical errors go to the same
// reporter and fail the compile.
func CompileFile(st *vm.State, file *source.File, opts Options) Result {
	toks := lexer.All(file, lexer.Options{Reporter: opts.Reporter})
	return Compile(st, toks, opts)
}

// declarations is the top-level loop. Only function declarations are accepted.
func (c *compiler) declarations() {
	for !c.at(token.EOF) {
		if c.at(token.Newline) || c.at(token.Semicolon) {
			c.advance()
			continue
		}
		c.panicked = false
		start := c.pos
		switch c.cur().Kind {
		case token.KwFunc:
			c.funcDecl()
		case token.KwVar:
			c.errorf(diag.SynUnsupported, c.cur(), "globals are not yet supported")
			c.skipStatement()
		case token.KwConst:
			c.errorf(diag.SynUnsupported, c.cur(), "consts are not yet supported")
			c.skipStatement()
		case token.KwStruct:
			c.errorf(diag.SynUnsupported, c.cur(), "structs are not yet supported")
			c.skipStatement()
		default:
			c.errorf(diag.SynExpectFunc, c.cur(), "expected function declaration, found %s", describe(c.cur()))
			c.skipStatement()
		}
		if c.pos == start {
			c.advance()
		}
	}
}
