package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"escript/internal/driver"
	"escript/internal/observ"
	"escript/internal/vm"
)

// ErrDiagnostics is returned when a build reported errors. The diagnostics
// are in CompileResult.Build.Bag.
var ErrDiagnostics = errors.New("diagnostics reported errors")

// CompileRequest configures the shared compilation pipeline.
type CompileRequest struct {
	Files          []string // compiled in this order
	BaseDir        string   // progress and diagnostics show paths relative to it
	Jobs           int
	MaxDiagnostics int
	VM             vm.Options
	Cache          *driver.DiskCache
	Timer          *observ.Timer
	Progress       ProgressSink
}

// CompileResult captures compilation artefacts and stage timings.
type CompileResult struct {
	Build   *driver.Result
	Timings Timings
}

// Compile loads, lexes and compiles every file of req into one vm.State,
// reporting per-file progress to req.Progress.
func Compile(ctx context.Context, req *CompileRequest) (CompileResult, error) {
	var result CompileResult
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return result, fmt.Errorf("missing compile request")
	}
	if len(req.Files) == 0 {
		return result, fmt.Errorf("no source files")
	}

	obs := newPhaseObserver(req.Progress, req.Files, req.BaseDir, &result.Timings)
	obs.queued()

	res, err := driver.Build(ctx, driver.Request{
		Paths:          req.Files,
		BaseDir:        req.BaseDir,
		Jobs:           req.Jobs,
		MaxDiagnostics: req.MaxDiagnostics,
		VM:             req.VM,
		Cache:          req.Cache,
		Timer:          req.Timer,
		Observer:       obs.OnPhase,
	})
	if err != nil {
		obs.all(StageCompile, StatusError, err)
		return result, err
	}
	result.Build = res
	if !res.OK() {
		return result, ErrDiagnostics
	}
	return result, nil
}

// phaseObserver turns driver phase events into progress events keyed by
// display path.
type phaseObserver struct {
	sink    ProgressSink
	files   []string // driver paths, in build order
	display map[string]string
	failed  map[string]bool
	timings *Timings
}

func newPhaseObserver(sink ProgressSink, files []string, baseDir string, timings *Timings) *phaseObserver {
	p := &phaseObserver{
		sink:    sink,
		files:   files,
		display: make(map[string]string, len(files)),
		failed:  make(map[string]bool),
		timings: timings,
	}
	for _, f := range files {
		p.display[f] = DisplayPath(f, baseDir)
	}
	return p
}

// DisplayPath is path relative to baseDir when it lies below it, with
// forward slashes.
func DisplayPath(path, baseDir string) string {
	p := filepath.Clean(path)
	if base := strings.TrimSpace(baseDir); base != "" {
		absBase, errBase := filepath.Abs(base)
		absPath, errPath := filepath.Abs(p)
		if errBase == nil && errPath == nil {
			if rel, err := filepath.Rel(absBase, absPath); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
				p = rel
			}
		}
	}
	return filepath.ToSlash(p)
}

func (p *phaseObserver) emit(file string, stage Stage, status Status, err error, ev driver.PhaseEvent) {
	if p.sink == nil {
		return
	}
	p.sink.OnEvent(Event{File: p.display[file], Stage: stage, Status: status, Err: err, Elapsed: ev.Elapsed})
}

func (p *phaseObserver) queued() {
	for _, f := range p.files {
		p.emit(f, StageLoad, StatusQueued, nil, driver.PhaseEvent{})
	}
}

func (p *phaseObserver) all(stage Stage, status Status, err error) {
	if p.sink == nil {
		return
	}
	for _, f := range p.files {
		if !p.failed[f] {
			p.emit(f, stage, status, err, driver.PhaseEvent{})
		}
	}
}

// OnPhase updates progress from a driver phase event.
func (p *phaseObserver) OnPhase(ev driver.PhaseEvent) {
	stage := stageFor(ev.Name)
	switch ev.Status {
	case driver.PhaseStart:
		if ev.File == "" {
			p.all(stage, StatusWorking, nil)
		} else {
			p.emit(ev.File, stage, StatusWorking, nil, ev)
		}
	case driver.PhaseEnd:
		p.timings.Add(stage, ev.Elapsed)
		if ev.File == "" {
			p.all(stage, StatusDone, nil)
		} else {
			p.emit(ev.File, stage, StatusDone, nil, ev)
		}
	case driver.PhaseFailed:
		if ev.File == "" {
			p.all(stage, StatusError, nil)
			return
		}
		p.failed[ev.File] = true
		p.emit(ev.File, stage, StatusError, fmt.Errorf("%s failed", stage), ev)
	case driver.PhaseCached:
		p.emit(ev.File, StageCompile, StatusCached, nil, ev)
	}
}

func stageFor(name string) Stage {
	switch name {
	case driver.PhaseLoad:
		return StageLoad
	case driver.PhaseLex:
		return StageLex
	case driver.PhaseAssemble:
		return StageAssemble
	case driver.PhaseExecute:
		return StageRun
	}
	return StageCompile
}
