package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDecode(t *testing.T) {
	cfg, err := Decode([]byte(`
[package]
name = "demo"

[run]
files = ["lib.esasm", "main.es"]
entry = "start"

[vm]
stack_size = 256
`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cfg.Package.Name != "demo" || cfg.EntryPoint() != "start" || cfg.VM.StackSize != 256 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if got := strings.Join(cfg.Sources(), ","); got != "lib.esasm,main.es" {
		t.Fatalf("Sources = %s", got)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name, src, want string
	}{
		{"syntax", "[package\n", "invalid TOML"},
		{"no name", "[run]\nmain = \"main.es\"\n", "[package].name"},
		{"no run", "[package]\nname = \"x\"\n", "[run].main"},
		{"both", "[package]\nname = \"x\"\n[run]\nmain = \"a.es\"\nfiles = [\"b.es\"]\n", "mutually exclusive"},
		{"extension", "[package]\nname = \"x\"\n[run]\nmain = \"a.txt\"\n", "expected a .es"},
		{"unknown key", "[package]\nname = \"x\"\nversion = 2\n[run]\nmain = \"a.es\"\n", "unknown key"},
		{"negative", "[package]\nname = \"x\"\n[run]\nmain = \"a.es\"\n[vm]\nmax_frames = -1\n", "negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.src))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	data, err := Encode(Default("demo"))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ManifestName), data, 0o600); err != nil {
		t.Fatal(err)
	}
	deep := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(deep, 0o755); err != nil {
		t.Fatal(err)
	}
	m, ok, err := Load(deep)
	if err != nil || !ok {
		t.Fatalf("Load = %v, %v", ok, err)
	}
	if m.Config.Package.Name != "demo" || m.Config.EntryPoint() != DefaultEntry {
		t.Fatalf("manifest = %+v", m.Config)
	}
	if got := m.SourcePaths(); len(got) != 1 || got[0] != filepath.Join(m.Root, "main.es") {
		t.Fatalf("SourcePaths = %v", got)
	}

	if _, ok, err := Find(t.TempDir()); ok || err != nil {
		t.Fatalf("Find in an empty tree = %v, %v", ok, err)
	}
}

func TestCombine(t *testing.T) {
	a := Digest{1}
	b := Digest{2}
	if Combine(a, b) == Combine(b, a) {
		t.Fatalf("Combine ignores order")
	}
	if Combine(a, b) != Combine(a, b) || Combine(a).IsZero() {
		t.Fatalf("Combine is not deterministic")
	}
	if len(a.String()) != 64 {
		t.Fatalf("hex form %q", a.String())
	}
}
