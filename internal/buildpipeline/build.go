// Package buildpipeline runs the driver for the CLI and reports per-file
// progress and stage timings along the way.
package buildpipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"escript/internal/image"
	"escript/internal/project"
	"escript/internal/vm"
)

// BuildRequest configures image output for a compilation.
type BuildRequest struct {
	CompileRequest
	OutputPath string // DefaultOutput(Files) when empty
}

// BuildResult captures build artefacts and timings.
type BuildResult struct {
	OutputPath string
	Compile    CompileResult
	Timings    Timings
}

// DefaultOutput names the image after the last input file, which by
// convention holds the entry function.
func DefaultOutput(files []string) string {
	if len(files) == 0 {
		return "a" + project.ExtImage
	}
	last := files[len(files)-1]
	return strings.TrimSuffix(last, filepath.Ext(last)) + project.ExtImage
}

// Build compiles req and writes the resulting State as a bytecode image.
func Build(ctx context.Context, req *BuildRequest) (BuildResult, error) {
	var result BuildResult
	if req == nil {
		return result, fmt.Errorf("missing build request")
	}
	result.OutputPath = req.OutputPath
	if result.OutputPath == "" {
		result.OutputPath = DefaultOutput(req.Files)
	}

	comp, err := Compile(ctx, &req.CompileRequest)
	result.Compile = comp
	result.Timings = comp.Timings
	if err != nil {
		return result, err
	}
	st := comp.Build.State
	defer st.Close()

	display := DisplayPath(result.OutputPath, req.BaseDir)
	emit(req.Progress, Event{File: display, Stage: StageImage, Status: StatusWorking})
	start := time.Now()
	if err := image.WriteFile(result.OutputPath, st); err != nil {
		err = fmt.Errorf("writing %s: %w", result.OutputPath, err)
		emit(req.Progress, Event{File: display, Stage: StageImage, Status: StatusError, Err: err})
		return result, err
	}
	elapsed := time.Since(start)
	result.Timings.Set(StageImage, elapsed)
	emit(req.Progress, Event{File: display, Stage: StageImage, Status: StatusDone, Elapsed: elapsed})
	return result, nil
}

// LoadImage reads the image at path into a fresh State.
func LoadImage(path string, opts vm.Options, sink ProgressSink) (*vm.State, error) {
	emit(sink, Event{File: path, Stage: StageImage, Status: StatusWorking})
	start := time.Now()
	st := vm.New(opts)
	if err := image.ReadFile(path, st); err != nil {
		st.Close()
		emit(sink, Event{File: path, Stage: StageImage, Status: StatusError, Err: err})
		return nil, err
	}
	emit(sink, Event{File: path, Stage: StageImage, Status: StatusDone, Elapsed: time.Since(start)})
	return st, nil
}

func emit(sink ProgressSink, ev Event) {
	if sink != nil {
		sink.OnEvent(ev)
	}
}
