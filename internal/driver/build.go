package driver

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"escript/internal/asm"
	"escript/internal/compiler"
	"escript/internal/diag"
	"escript/internal/image"
	"escript/internal/observ"
	"escript/internal/project"
	"escript/internal/source"
	"escript/internal/trace"
	"escript/internal/value"
	"escript/internal/vm"
)

// Request describes one build.
type Request struct {
	Paths          []string // compiled or assembled in this order
	BaseDir        string   // for relative paths in diagnostics; optional
	Jobs           int      // parallel loading and lexing; GOMAXPROCS when 0
	MaxDiagnostics int      // per file; 0 = no limit
	VM             vm.Options
	Cache          *DiskCache // optional
	Timer          *observ.Timer
	Observer       PhaseObserver
}

// Result is the outcome of Build. State is nil when the build failed.
type Result struct {
	FileSet *source.FileSet
	State   *vm.State
	Units   []*Unit
	Bag     *diag.Bag // every unit's diagnostics in file order, then cache warnings
	Key     project.Digest
	Cached  bool
}

// OK reports whether the build produced a State.
func (r *Result) OK() bool { return r.State != nil }

// Build loads every file of req, lexes scripts in parallel and then compiles
// or assembles the units one by one, in order, into a single vm.State. Later
// units may call functions declared by earlier ones. When req.Cache holds an
// image for the same inputs, compilation is skipped.
//
// Diagnostics never cause an error return; errors are reserved for
// cancellation.
func Build(ctx context.Context, req Request) (*Result, error) {
	tracer := trace.FromContext(ctx)
	parent := trace.SpanFromContext(ctx)
	timer := req.Timer
	obs := req.Observer

	fs := source.NewFileSet()
	if req.BaseDir != "" {
		fs = source.NewFileSetWithBase(req.BaseDir)
	}
	res := &Result{FileSet: fs, Bag: diag.NewBag(0)}

	span := trace.Begin(tracer, trace.ScopePass, PhaseLoad, parent).WithExtra("files", strconv.Itoa(len(req.Paths)))
	phase := timer.Begin(PhaseLoad)
	obs.emit(PhaseLoad, "", PhaseStart, 0)
	started := time.Now()
	units, err := LoadUnits(ctx, fs, req.Paths, req.Jobs, req.MaxDiagnostics)
	timer.End(phase, fmt.Sprintf("%d files", len(req.Paths)))
	span.End("")
	elapsed := time.Since(started)
	if err != nil {
		return nil, err
	}
	res.Units = units
	loadFailed := false
	for _, u := range units {
		if u.File == nil {
			loadFailed = true
			obs.emit(PhaseLoad, u.Path, PhaseFailed, 0)
		}
	}
	obs.emit(PhaseLoad, "", PhaseEnd, elapsed)

	res.Key = BuildKey(units)
	cacheBag := diag.NewBag(0)
	if !loadFailed && req.Cache != nil {
		if st, ok := restoreCached(req, res.Key, cacheBag); ok {
			for _, u := range units {
				obs.emit(PhaseCache, u.Path, PhaseCached, 0)
			}
			trace.Point(tracer, trace.ScopePass, PhaseCache, "hit "+res.Key.String()[:12], parent)
			res.State = st
			res.Cached = true
			res.Bag.Merge(cacheBag)
			return res, nil
		}
	}

	span = trace.Begin(tracer, trace.ScopePass, PhaseLex, parent)
	phase = timer.Begin(PhaseLex)
	obs.emit(PhaseLex, "", PhaseStart, 0)
	started = time.Now()
	err = LexUnits(ctx, units, req.Jobs)
	timer.End(phase, "")
	span.End("")
	elapsed = time.Since(started)
	if err != nil {
		return nil, err
	}
	obs.emit(PhaseLex, "", PhaseEnd, elapsed)

	st := vm.New(req.VM)
	failed := loadFailed
	span = trace.Begin(tracer, trace.ScopePass, PhaseCompile, parent)
	for _, u := range units {
		if err := ctx.Err(); err != nil {
			span.End("canceled")
			st.Close()
			return nil, err
		}
		if u.File == nil {
			continue
		}
		if !buildUnit(st, u, req, tracer, span.ID()) {
			failed = true
		}
	}
	span.End("")

	for _, u := range units {
		res.Bag.Merge(u.Bag)
	}
	if failed {
		st.Close()
		res.Bag.Merge(cacheBag)
		return res, nil
	}

	if req.Cache != nil {
		storeCached(req, res.Key, units, st, cacheBag)
	}
	res.Bag.Merge(cacheBag)
	res.State = st
	return res, nil
}

// buildUnit compiles or assembles one unit into st.
func buildUnit(st *vm.State, u *Unit, req Request, tracer trace.Tracer, parent uint64) bool {
	name := PhaseCompile
	if u.Kind == KindAssembly {
		name = PhaseAssemble
	}
	span := trace.Begin(tracer, trace.ScopeUnit, u.Path, parent)
	phase := req.Timer.Begin(name + " " + u.Path)
	req.Observer.emit(name, u.Path, PhaseStart, 0)
	started := time.Now()

	reporter := diag.NewDedupReporter(diag.BagReporter{Bag: u.Bag})
	var errs, funcs int
	switch u.Kind {
	case KindScript:
		r := compiler.Compile(st, u.Tokens, compiler.Options{Reporter: reporter, MaxErrors: req.MaxDiagnostics})
		errs, funcs = r.Errors, len(r.Functions)
	case KindAssembly:
		r := asm.Assemble(st, u.File, asm.Options{Reporter: reporter, MaxErrors: req.MaxDiagnostics})
		errs, funcs = r.Errors, len(r.Functions)
	default:
		diag.ReportError(reporter, diag.ProjUnknownExt, source.Span{File: u.File.ID},
			fmt.Sprintf("%s: expected %s or %s", u.Path, project.ExtScript, project.ExtAssembly)).Emit()
		errs = 1
	}

	note := fmt.Sprintf("%d functions", funcs)
	if errs > 0 {
		note = fmt.Sprintf("%d errors", errs)
	}
	req.Timer.End(phase, note)
	span.WithExtra("kind", u.Kind.String()).End(note)
	status := PhaseEnd
	if errs > 0 {
		status = PhaseFailed
	}
	req.Observer.emit(name, u.Path, status, time.Since(started))
	return errs == 0
}

func restoreCached(req Request, key project.Digest, bag *diag.Bag) (*vm.State, bool) {
	payload, ok, err := req.Cache.Get(key)
	if err != nil {
		bag.Add(diag.New(diag.SevWarning, diag.IOCacheError, source.NoSpan, "reading build cache: "+err.Error()))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	st := vm.New(req.VM)
	if err := payload.Image.Restore(st); err != nil {
		st.Close()
		bag.Add(diag.New(diag.SevWarning, diag.IOCacheError, source.NoSpan, "ignoring cached image: "+err.Error()))
		return nil, false
	}
	return st, true
}

func storeCached(req Request, key project.Digest, units []*Unit, st *vm.State, bag *diag.Bag) {
	img, err := image.Capture(st)
	if err == nil {
		payload := &DiskPayload{Image: img}
		for _, u := range units {
			payload.FilePaths = append(payload.FilePaths, u.Path)
			payload.FileHashes = append(payload.FileHashes, project.Digest(u.File.Hash))
		}
		err = req.Cache.Put(key, payload)
	}
	if err != nil {
		bag.Add(diag.New(diag.SevWarning, diag.IOCacheError, source.NoSpan, "writing build cache: "+err.Error()))
	}
}

// Execute calls entry with args in st. The returned values live on the VM
// stack and stay valid until the next call on st.
func Execute(ctx context.Context, st *vm.State, entry string, obs PhaseObserver, args ...value.Value) ([]value.Value, error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeFunc, entry, trace.SpanFromContext(ctx))
	obs.emit(PhaseExecute, entry, PhaseStart, 0)
	started := time.Now()

	n, err := st.CallArgs(entry, args...)
	if err != nil {
		span.End(err.Error())
		obs.emit(PhaseExecute, entry, PhaseFailed, time.Since(started))
		return nil, err
	}
	span.WithExtra("results", strconv.Itoa(n)).End("")
	obs.emit(PhaseExecute, entry, PhaseEnd, time.Since(started))
	return st.Results(n), nil
}
