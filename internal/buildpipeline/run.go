package buildpipeline

import (
	"context"
	"fmt"
	"time"

	"escript/internal/driver"
	"escript/internal/value"
	"escript/internal/vm"
)

// ValidateEntry checks that st declares entry and that it can be called
// without arguments.
func ValidateEntry(st *vm.State, entry string) error {
	idx, ok := st.FunctionIndex(entry)
	if !ok {
		return fmt.Errorf("entry function %q not found", entry)
	}
	if p := st.Function(idx).Params; p != 0 {
		return fmt.Errorf("entry function %q takes %d parameters, want 0", entry, p)
	}
	return nil
}

// RunResult holds the rendered results of an entry call.
type RunResult struct {
	Values  []string
	Elapsed time.Duration
}

// Run validates and calls entry in st.
func Run(ctx context.Context, st *vm.State, entry string, sink ProgressSink) (RunResult, error) {
	var result RunResult
	if err := ValidateEntry(st, entry); err != nil {
		emit(sink, Event{Stage: StageRun, Status: StatusError, Err: err})
		return result, err
	}
	emit(sink, Event{Stage: StageRun, Status: StatusWorking})
	start := time.Now()
	values, err := driver.Execute(ctx, st, entry, nil)
	result.Elapsed = time.Since(start)
	if err != nil {
		emit(sink, Event{Stage: StageRun, Status: StatusError, Err: err, Elapsed: result.Elapsed})
		return result, err
	}
	result.Values = render(values)
	emit(sink, Event{Stage: StageRun, Status: StatusDone, Elapsed: result.Elapsed})
	return result, nil
}

func render(values []value.Value) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.String()
	}
	return out
}
