// Package project finds and decodes escript.toml manifests.
package project

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ManifestName is the file that marks a project root.
const ManifestName = "escript.toml"

// Source file extensions understood by the driver.
const (
	ExtScript   = ".es"
	ExtAssembly = ".esasm"
	ExtImage    = ".esi"
)

// Config is the decoded manifest.
type Config struct {
	Package PackageConfig `toml:"package"`
	Run     RunConfig     `toml:"run"`
	VM      VMConfig      `toml:"vm"`
}

type PackageConfig struct {
	Name string `toml:"name"`
}

// RunConfig selects what `escript run` loads. Main and Files are mutually
// exclusive; Files are compiled in order into one State.
type RunConfig struct {
	Main  string   `toml:"main,omitempty"`
	Files []string `toml:"files,omitempty"`
	Entry string   `toml:"entry,omitempty"`
}

type VMConfig struct {
	StackSize int `toml:"stack_size,omitempty"`
	MaxFrames int `toml:"max_frames,omitempty"`
}

// Manifest is a decoded escript.toml and where it was found.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// DefaultEntry is the function run when [run].entry is unset.
const DefaultEntry = "main"

// Find walks up from startDir looking for escript.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("resolve %q: %w", startDir, err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		_, err := os.Stat(candidate)
		switch {
		case err == nil:
			return candidate, true, nil
		case !errors.Is(err, os.ErrNotExist):
			return "", false, fmt.Errorf("stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// Load finds and decodes the manifest above startDir. ok is false when
// there is none.
func Load(startDir string) (*Manifest, bool, error) {
	path, ok, err := Find(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{Path: path, Root: filepath.Dir(path), Config: cfg}, true, nil
}

// LoadFile decodes and validates the manifest at path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Decode(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses and validates manifest text.
func Decode(data []byte) (Config, error) {
	var cfg Config
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("invalid TOML: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("unknown key %s", undecoded[0])
	}
	if !meta.IsDefined("package", "name") || strings.TrimSpace(cfg.Package.Name) == "" {
		return Config{}, errors.New("missing [package].name")
	}
	mainFile := strings.TrimSpace(cfg.Run.Main)
	switch {
	case mainFile == "" && len(cfg.Run.Files) == 0:
		return Config{}, errors.New("missing [run].main or [run].files")
	case mainFile != "" && len(cfg.Run.Files) > 0:
		return Config{}, errors.New("[run].main and [run].files are mutually exclusive")
	}
	for _, f := range cfg.Sources() {
		if err := checkExt(f); err != nil {
			return Config{}, err
		}
	}
	if cfg.VM.StackSize < 0 || cfg.VM.MaxFrames < 0 {
		return Config{}, errors.New("[vm] sizes must not be negative")
	}
	return cfg, nil
}

func checkExt(file string) error {
	switch filepath.Ext(file) {
	case ExtScript, ExtAssembly:
		return nil
	}
	return fmt.Errorf("%s: expected a %s or %s file", file, ExtScript, ExtAssembly)
}

// Sources lists the files to load, manifest-relative, in order.
func (c Config) Sources() []string {
	if m := strings.TrimSpace(c.Run.Main); m != "" {
		return []string{m}
	}
	return c.Run.Files
}

// EntryPoint is [run].entry or DefaultEntry.
func (c Config) EntryPoint() string {
	if e := strings.TrimSpace(c.Run.Entry); e != "" {
		return e
	}
	return DefaultEntry
}

// SourcePaths resolves Sources against the manifest directory.
func (m *Manifest) SourcePaths() []string {
	srcs := m.Config.Sources()
	out := make([]string, len(srcs))
	for i, s := range srcs {
		out[i] = filepath.Join(m.Root, filepath.FromSlash(s))
	}
	return out
}

// Default is the manifest written by `escript init`.
func Default(name string) Config {
	return Config{
		Package: PackageConfig{Name: name},
		Run:     RunConfig{Main: "main" + ExtScript, Entry: DefaultEntry},
	}
}

// Encode renders cfg as TOML.
func Encode(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# escript project manifest\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return buf.Bytes(), nil
}
