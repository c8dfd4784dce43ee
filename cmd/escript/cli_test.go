package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// execute runs the CLI with args and returns its stdout. Flags are reset
// first because the command tree is shared between tests.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	stopSession(rootCmd)
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func sampleProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"lib.es":      "func add(a, b)\n  return a + b\n",
		"main.es":     "func main()\n  return add(seven(), 35), \"ok\"\n",
		"seven.esasm": "seven:\n    movi r0, 7\n    ret 1\n",
	})
	return dir
}

func TestRunFiles(t *testing.T) {
	dir := sampleProject(t)
	out, err := execute(t, "run", "--ui", "off",
		filepath.Join(dir, "lib.es"), filepath.Join(dir, "seven.esasm"), filepath.Join(dir, "main.es"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "42\nok\n" {
		t.Fatalf("output = %q", out)
	}
}

func TestRunEntryFlag(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"m.es": "func main()\n  return 1\n\nfunc other()\n  return 2\n"})
	out, err := execute(t, "run", "--ui", "off", "--entry", "other", filepath.Join(dir, "m.es"))
	if err != nil || out != "2\n" {
		t.Fatalf("run --entry other = %q, %v", out, err)
	}
	_, err = execute(t, "run", "--ui", "off", "--entry", "missing", filepath.Join(dir, "m.es"))
	if err == nil || !strings.Contains(err.Error(), "missing") {
		t.Fatalf("missing entry error = %v", err)
	}
}

func TestRunExitStatus(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"bad.es": "func main()\n  return nope\n",
		"div.es": "func main()\n  var z = 0\n  return 1 / z\n",
	})
	tests := []struct {
		name string
		file string
	}{
		{"compile error", "bad.es"},
		{"runtime fault", "div.es"},
	}
	for _, tt := range tests {
		_, err := execute(t, "run", "--ui", "off", "--no-cache", filepath.Join(dir, tt.file))
		var exit exitError
		if !errors.As(err, &exit) || exit.code != 1 {
			t.Errorf("%s: err = %v, want exit status 1", tt.name, err)
		}
	}
}

func TestBuildAndExec(t *testing.T) {
	dir := sampleProject(t)
	image := filepath.Join(dir, "prog.esi")
	out, err := execute(t, "build", "--ui", "off", "-o", image,
		filepath.Join(dir, "lib.es"), filepath.Join(dir, "seven.esasm"), filepath.Join(dir, "main.es"))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.HasPrefix(out, "built ") {
		t.Fatalf("build output = %q", out)
	}
	out, err = execute(t, "exec", image)
	if err != nil || out != "42\nok\n" {
		t.Fatalf("exec = %q, %v", out, err)
	}
}

func TestInitThenRun(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "demo")
	out, err := execute(t, "init", dir)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(out, "escript.toml") || !strings.Contains(out, "main.es") {
		t.Fatalf("init output = %q", out)
	}
	if _, err := execute(t, "init", dir); err == nil {
		t.Fatalf("second init succeeded")
	}
	out, err = execute(t, "run", "--ui", "off", dir)
	if err != nil || out != "42\n" {
		t.Fatalf("run = %q, %v", out, err)
	}
}

func TestDisasm(t *testing.T) {
	dir := sampleProject(t)
	out, err := execute(t, "disasm", filepath.Join(dir, "lib.es"), filepath.Join(dir, "seven.esasm"))
	if err != nil {
		t.Fatalf("disasm: %v", err)
	}
	for _, want := range []string{"; chunk 0 ", "lib.es\n", "add:", "; chunk 1 ", "seven.esasm\n", "seven:"} {
		if !strings.Contains(out, want) {
			t.Errorf("listing misses %q:\n%s", want, out)
		}
	}
}

func TestTokenizeJSON(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"t.es": "func f()\n"})
	out, err := execute(t, "tokenize", "--format", "json", filepath.Join(dir, "t.es"))
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	var toks []struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal([]byte(out), &toks); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(toks) == 0 || toks[0].Kind != "func" || toks[len(toks)-1].Kind != "EOF" {
		t.Fatalf("tokens = %+v", toks)
	}
}

func TestVersionJSON(t *testing.T) {
	out, err := execute(t, "version", "--format", "json", "--hash")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var payload versionPayload
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if payload.Tool != "escript" || payload.Version == "" || payload.GitCommit == "" {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestResolveInputs(t *testing.T) {
	dir := sampleProject(t)
	in, err := resolveInputs([]string{dir})
	if err != nil {
		t.Fatalf("resolveInputs(dir): %v", err)
	}
	if len(in.Files) != 3 || filepath.Base(in.Files[0]) != "lib.es" || in.Entry != "main" {
		t.Fatalf("dir inputs = %+v", in)
	}

	writeFiles(t, dir, map[string]string{"escript.toml": `[package]
name = "demo"
[run]
files = ["seven.esasm"]
entry = "seven"
[vm]
max_frames = 8
`})
	in, err = resolveInputs([]string{dir})
	if err != nil {
		t.Fatalf("resolveInputs(manifest dir): %v", err)
	}
	if len(in.Files) != 1 || in.Entry != "seven" || in.VM.MaxFrames != 8 || in.name() != "demo" {
		t.Fatalf("manifest inputs = %+v", in)
	}

	if _, err := resolveInputs([]string{filepath.Join(dir, "notes.txt")}); err == nil {
		t.Fatalf("accepted a .txt input")
	}
	t.Chdir(t.TempDir())
	if _, err := resolveInputs(nil); err == nil || !strings.Contains(err.Error(), "escript init") {
		t.Fatalf("no-manifest error = %v", err)
	}
}

func TestModes(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want uiMode
		ok   bool
	}{
		{"", uiModeAuto, true},
		{"ON", uiModeOn, true},
		{"off", uiModeOff, true},
		{"maybe", "", false},
	} {
		got, err := readUIMode(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("readUIMode(%q) = %q, %v", tt.in, got, err)
		}
	}
	if got, err := readColorMode("always"); err != nil || got != colorOn {
		t.Errorf("readColorMode(always) = %q, %v", got, err)
	}
	if shouldUseTUI(uiModeOff, 5) || !shouldUseTUI(uiModeOn, 1) {
		t.Errorf("explicit ui modes ignored")
	}
	if shouldUseTUI(uiModeAuto, 1) {
		t.Errorf("auto mode shows progress for a single file")
	}
}
