package buildpipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"escript/internal/vm"
)

type recorder struct{ events []Event }

func (r *recorder) OnEvent(ev Event) { r.events = append(r.events, ev) }

// last returns the final status per file for stage.
func (r *recorder) last(stage Stage) map[string]Status {
	out := map[string]Status{}
	for _, ev := range r.events {
		if ev.Stage == stage && ev.File != "" {
			out[ev.File] = ev.Status
		}
	}
	return out
}

func writeProject(t *testing.T, files map[string]string) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"lib.es", "asm.esasm", "main.es"} {
		content, ok := files[name]
		if !ok {
			continue
		}
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	return dir, paths
}

var good = map[string]string{
	"lib.es":    "func double(x)\n  return x * 2\n",
	"asm.esasm": "one:\n    movi r0, 1\n    ret  1\n",
	"main.es":   "func main()\n  return double(20) + one() + one()\n",
}

func TestCompileProgress(t *testing.T) {
	dir, paths := writeProject(t, good)
	rec := &recorder{}
	res, err := Compile(context.Background(), &CompileRequest{Files: paths, BaseDir: dir, Progress: rec})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	defer res.Build.State.Close()

	want := map[string]Status{"lib.es": StatusDone, "main.es": StatusDone}
	if got := rec.last(StageCompile); !reflect.DeepEqual(got, want) {
		t.Fatalf("compile statuses = %v, want %v", got, want)
	}
	if got := rec.last(StageAssemble); got["asm.esasm"] != StatusDone {
		t.Fatalf("assemble statuses = %v", got)
	}
	if got := rec.last(StageLoad); len(got) != 3 {
		t.Fatalf("load statuses = %v", got)
	}
	if rec.events[0].Status != StatusQueued {
		t.Fatalf("first event = %+v, want queued", rec.events[0])
	}
	if !res.Timings.Has(StageLoad) || !res.Timings.Has(StageCompile) {
		t.Fatalf("missing timings: %+v", res.Timings)
	}

	run, err := Run(context.Background(), res.Build.State, "main", rec)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(run.Values, []string{"42"}) {
		t.Fatalf("main = %v, want [42]", run.Values)
	}
}

func TestCompileErrors(t *testing.T) {
	files := map[string]string{
		"lib.es":  "func double(x)\n  return x * 2\n",
		"main.es": "func main()\n  return double()\n",
	}
	dir, paths := writeProject(t, files)
	rec := &recorder{}
	res, err := Compile(context.Background(), &CompileRequest{Files: paths, BaseDir: dir, Progress: rec})
	if !errors.Is(err, ErrDiagnostics) {
		t.Fatalf("Compile = %v, want ErrDiagnostics", err)
	}
	if res.Build == nil || res.Build.Bag.Len() == 0 {
		t.Fatalf("no diagnostics")
	}
	got := rec.last(StageCompile)
	if got["lib.es"] != StatusDone || got["main.es"] != StatusError {
		t.Fatalf("compile statuses = %v", got)
	}
}

func TestBuildAndLoadImage(t *testing.T) {
	dir, paths := writeProject(t, good)
	out := filepath.Join(dir, "bin", "prog.esi")
	rec := &recorder{}
	res, err := Build(context.Background(), &BuildRequest{
		CompileRequest: CompileRequest{Files: paths, BaseDir: dir, Progress: rec},
		OutputPath:     out,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.OutputPath != out || !res.Timings.Has(StageImage) {
		t.Fatalf("result = %+v", res)
	}
	if got := rec.last(StageImage); got["bin/prog.esi"] != StatusDone {
		t.Fatalf("image statuses = %v", got)
	}

	st, err := LoadImage(out, vm.Options{}, nil)
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	defer st.Close()
	run, err := Run(context.Background(), st, "main", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(run.Values, []string{"42"}) {
		t.Fatalf("main = %v, want [42]", run.Values)
	}

	if _, err := LoadImage(filepath.Join(dir, "missing.esi"), vm.Options{}, nil); err == nil {
		t.Fatalf("LoadImage of a missing file succeeded")
	}
}

func TestValidateEntry(t *testing.T) {
	dir, paths := writeProject(t, good)
	res, err := Compile(context.Background(), &CompileRequest{Files: paths, BaseDir: dir})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	st := res.Build.State
	defer st.Close()
	if err := ValidateEntry(st, "main"); err != nil {
		t.Fatalf("main: %v", err)
	}
	if err := ValidateEntry(st, "double"); err == nil {
		t.Fatalf("entry with parameters accepted")
	}
	rec := &recorder{}
	if _, err := Run(context.Background(), st, "start", rec); err == nil {
		t.Fatalf("missing entry accepted")
	}
	if n := len(rec.events); n != 1 || rec.events[0].Status != StatusError {
		t.Fatalf("events = %+v", rec.events)
	}
}

func TestDefaultOutput(t *testing.T) {
	tests := []struct {
		files []string
		want  string
	}{
		{nil, "a.esi"},
		{[]string{"lib.es", "src/main.es"}, "src/main.esi"},
		{[]string{"prog.esasm"}, "prog.esi"},
	}
	for _, tt := range tests {
		if got := DefaultOutput(tt.files); got != tt.want {
			t.Errorf("DefaultOutput(%v) = %q, want %q", tt.files, got, tt.want)
		}
	}
}

func TestDisplayPath(t *testing.T) {
	base := t.TempDir()
	if got := DisplayPath(filepath.Join(base, "a", "b.es"), base); got != "a/b.es" {
		t.Fatalf("DisplayPath = %q", got)
	}
	outside := filepath.Join(filepath.Dir(base), "x.es")
	if got := DisplayPath(outside, base); got != filepath.ToSlash(outside) {
		t.Fatalf("DisplayPath outside base = %q", got)
	}
}

func TestTimingsSum(t *testing.T) {
	var tm Timings
	tm.Add(StageCompile, 2)
	tm.Add(StageCompile, 3)
	tm.Set(StageLoad, 4)
	if got := tm.Sum(StageCompile, StageLoad, StageRun); got != 9 {
		t.Fatalf("Sum = %v, want 9", got)
	}
	if tm.Has(StageRun) {
		t.Fatalf("Has(run) without a duration")
	}
}
