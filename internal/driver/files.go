package driver

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"escript/internal/project"
)

// Kind says how a source file is turned into bytecode.
type Kind uint8

const (
	KindUnknown  Kind = iota
	KindScript        // .es, compiled
	KindAssembly      // .esasm, assembled
)

func (k Kind) String() string {
	switch k {
	case KindScript:
		return "script"
	case KindAssembly:
		return "assembly"
	}
	return "unknown"
}

// KindOf classifies path by extension.
func KindOf(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case project.ExtScript:
		return KindScript
	case project.ExtAssembly:
		return KindAssembly
	}
	return KindUnknown
}

// ListSources returns every .es and .esasm file under dir, sorted so that
// builds are deterministic.
func ListSources(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if KindOf(path) != KindUnknown {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
