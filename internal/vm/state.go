package vm

import (
	"errors"
	"fmt"

	"escript/internal/bytecode"
	"escript/internal/hashmap"
	"escript/internal/value"
)

const (
	DefaultStackSize = 128
	DefaultMaxFrames = 64
)

var (
	// ErrNoFunction is returned by Call when the name is not registered.
	ErrNoFunction = errors.New("vm: no such function")
	// ErrDuplicateFunction is returned by DeclareFunction for a taken name.
	ErrDuplicateFunction = errors.New("vm: function already declared")
	// ErrArgCount is returned by CallArgs when the argument count is wrong.
	ErrArgCount = errors.New("vm: wrong number of arguments")
)

// Options configures a State.
type Options struct {
	StackSize int     // value stack slots; DefaultStackSize when 0
	MaxFrames int     // call depth limit; DefaultMaxFrames when 0
	Tracer    *Tracer // per-instruction trace, may be nil
}

// State owns everything the frontends produce and the VM executes: the value
// stack, the constant pool, the chunks and the function table. A State is not
// safe for concurrent use.
type State struct {
	stack    []value.Value
	top      int
	dispatch [2][]value.Value // [0] current register window, [1] constant pool
	last     int              // stack slot read by JMP, -1 when nothing was written

	consts []value.Value
	kindex *hashmap.Map // constant -> pool index
	nilk   int          // pool index of nil, which the map cannot key on

	frames    []Frame
	maxFrames int

	chunks  []*Chunk
	funcs   []*Function
	fnIndex *hashmap.Map // name -> function index

	trace *Tracer
	eb    *errorBuilder
}

// New creates a State.
func New(opts Options) *State {
	if opts.StackSize <= 0 {
		opts.StackSize = DefaultStackSize
	}
	if opts.MaxFrames <= 0 {
		opts.MaxFrames = DefaultMaxFrames
	}
	st := &State{
		stack:     make([]value.Value, opts.StackSize),
		last:      -1,
		nilk:      -1,
		kindex:    hashmap.New(),
		frames:    make([]Frame, 0, opts.MaxFrames),
		maxFrames: opts.MaxFrames,
		fnIndex:   hashmap.New(),
		trace:     opts.Tracer,
	}
	st.eb = &errorBuilder{st: st}
	st.dispatch[0] = st.stack
	return st
}

// SetTracer replaces the execution tracer; nil disables tracing.
func (st *State) SetTracer(t *Tracer) { st.trace = t }

// Close releases every value the State owns.
func (st *State) Close() {
	for i := range st.stack {
		value.Destroy(&st.stack[i])
	}
	for i := range st.consts {
		value.Destroy(&st.consts[i])
	}
	st.consts = nil
	st.nilk = -1
	st.kindex.Destroy()
	st.fnIndex.Destroy()
	st.frames = st.frames[:0]
	st.chunks = nil
	st.funcs = nil
	st.top = 0
}

// ---- constant pool ----

func (st *State) addConst(k value.Value) int {
	if k.IsNil() && st.nilk >= 0 {
		return st.nilk
	}
	if slot, ok := st.kindex.Get(k); ok {
		idx := int(slot.AsInt())
		value.Destroy(&k)
		return idx
	}
	idx := len(st.consts)
	st.consts = append(st.consts, value.Value{})
	value.Copy(&st.consts[idx], &k)
	// pool entries are shared so that MOV from a constant deep-copies
	value.Retain(st.consts[idx])
	if k.IsNil() {
		st.nilk = idx
	} else {
		st.kindex.Set(st.consts[idx], value.Int(int64(idx)))
	}
	st.dispatch[1] = st.consts
	return idx
}

// AddInt interns an int constant and returns its pool index.
func (st *State) AddInt(i int64) int { return st.addConst(value.Int(i)) }

// AddFloat interns a float constant.
func (st *State) AddFloat(f float64) int { return st.addConst(value.Float(f)) }

// AddBool interns a bool constant.
func (st *State) AddBool(b bool) int { return st.addConst(value.Bool(b)) }

// AddNil interns the nil constant.
func (st *State) AddNil() int { return st.addConst(value.Nil()) }

// AddString interns a string constant by content.
func (st *State) AddString(s string) int { return st.addConst(value.NewString(s)) }

// AddFunc interns a function-pointer constant for function index fn.
func (st *State) AddFunc(fn int) int {
	name := ""
	if fn >= 0 && fn < len(st.funcs) {
		name = st.funcs[fn].Name
	}
	return st.addConst(value.NewFunc(fn, name))
}

// Const returns pool entry k.
func (st *State) Const(k int) value.Value { return st.consts[k] }

// NumConsts is the size of the constant pool.
func (st *State) NumConsts() int { return len(st.consts) }

// ---- functions and chunks ----

// DeclareFunction registers f under its name and returns its index.
func (st *State) DeclareFunction(f Function) (int, error) {
	key := value.NewString(f.Name)
	if _, ok := st.fnIndex.Get(key); ok {
		value.Destroy(&key)
		return -1, fmt.Errorf("%w: %s", ErrDuplicateFunction, f.Name)
	}
	idx := len(st.funcs)
	fn := f
	st.funcs = append(st.funcs, &fn)
	// the unshared key moves into the index
	st.fnIndex.Set(key, value.Int(int64(idx)))
	return idx, nil
}

// FunctionIndex looks up a function by name.
func (st *State) FunctionIndex(name string) (int, bool) {
	key := value.NewString(name)
	defer value.Destroy(&key)
	slot, ok := st.fnIndex.Get(key)
	if !ok {
		return -1, false
	}
	return int(slot.AsInt()), true
}

// Function returns function idx. The pointer stays valid for the State's lifetime.
func (st *State) Function(idx int) *Function { return st.funcs[idx] }

// Functions returns the function table in declaration order.
func (st *State) Functions() []*Function { return st.funcs }

// NumFunctions is the number of declared functions.
func (st *State) NumFunctions() int { return len(st.funcs) }

// NextChunk is the index the next AddChunk will return.
func (st *State) NextChunk() int { return len(st.chunks) }

// AddChunk takes ownership of code and returns the chunk index.
func (st *State) AddChunk(code []bytecode.Instruction) int {
	st.chunks = append(st.chunks, &Chunk{Code: code})
	return len(st.chunks) - 1
}

// Chunks returns every committed chunk.
func (st *State) Chunks() []*Chunk { return st.chunks }

// ---- checkpoints ----

// Checkpoint records the table sizes before a frontend run.
type Checkpoint struct {
	funcs  int
	consts int
	chunks int
}

// Mark returns a checkpoint for Rollback.
func (st *State) Mark() Checkpoint {
	return Checkpoint{funcs: len(st.funcs), consts: len(st.consts), chunks: len(st.chunks)}
}

// Rollback drops every function, constant and chunk added after cp.
func (st *State) Rollback(cp Checkpoint) {
	for i := len(st.funcs) - 1; i >= cp.funcs; i-- {
		key := value.NewString(st.funcs[i].Name)
		st.fnIndex.Erase(key)
		value.Destroy(&key)
		st.funcs[i] = nil
	}
	st.funcs = st.funcs[:cp.funcs]
	for i := len(st.consts) - 1; i >= cp.consts; i-- {
		st.kindex.Erase(st.consts[i])
		value.Destroy(&st.consts[i])
	}
	st.consts = st.consts[:cp.consts]
	if st.nilk >= cp.consts {
		st.nilk = -1
	}
	st.dispatch[1] = st.consts
	for i := cp.chunks; i < len(st.chunks); i++ {
		st.chunks[i] = nil
	}
	st.chunks = st.chunks[:cp.chunks]
}

// ---- stack inspection ----

// Top is one past the highest stack slot written.
func (st *State) Top() int { return st.top }

// Stack returns the live part of the value stack. The slice aliases the State.
func (st *State) Stack() []value.Value { return st.stack[:st.top] }

// Results returns the first n stack slots, where Call leaves its return values.
func (st *State) Results(n int) []value.Value {
	n = max(0, min(n, len(st.stack)))
	return st.stack[:n]
}

// Frames returns the current call frames, outermost first.
func (st *State) Frames() []Frame { return st.frames }

// Depth is the number of active frames.
func (st *State) Depth() int { return len(st.frames) }
