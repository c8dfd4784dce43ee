package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"escript/internal/driver"
	"escript/internal/project"
	"escript/internal/vm"
)

const noManifestMessage = "no input files and no " + project.ManifestName + " found; pass files or run `escript init`"

// inputs is what a command builds: the files in compile order, the
// directory paths are shown relative to, and the manifest settings.
type inputs struct {
	Files    []string
	BaseDir  string
	Entry    string
	VM       vm.Options
	Manifest *project.Manifest
}

// resolveInputs maps command arguments to source files:
//
//	(none)      the manifest above the working directory
//	dir         dir/escript.toml if present, otherwise every source below dir
//	files...    the files, in the given order
func resolveInputs(args []string) (inputs, error) {
	if len(args) == 0 {
		m, ok, err := project.Load(".")
		if err != nil {
			return inputs{}, err
		}
		if !ok {
			return inputs{}, errors.New(noManifestMessage)
		}
		return fromManifest(m), nil
	}

	if len(args) == 1 {
		info, err := os.Stat(args[0])
		if err == nil && info.IsDir() {
			return fromDir(args[0])
		}
	}
	for _, a := range args {
		if driver.KindOf(a) == driver.KindUnknown {
			return inputs{}, fmt.Errorf("%s: expected a %s or %s file", a, project.ExtScript, project.ExtAssembly)
		}
	}
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return inputs{Files: args, BaseDir: wd, Entry: project.DefaultEntry}, nil
}

func fromDir(dir string) (inputs, error) {
	path := filepath.Join(dir, project.ManifestName)
	if _, err := os.Stat(path); err == nil {
		cfg, err := project.LoadFile(path)
		if err != nil {
			return inputs{}, err
		}
		root, err := filepath.Abs(dir)
		if err != nil {
			root = dir
		}
		return fromManifest(&project.Manifest{Path: path, Root: root, Config: cfg}), nil
	}
	files, err := driver.ListSources(dir)
	if err != nil {
		return inputs{}, err
	}
	if len(files) == 0 {
		return inputs{}, fmt.Errorf("%s: no %s or %s files", dir, project.ExtScript, project.ExtAssembly)
	}
	return inputs{Files: files, BaseDir: dir, Entry: project.DefaultEntry}, nil
}

func fromManifest(m *project.Manifest) inputs {
	return inputs{
		Files:    m.SourcePaths(),
		BaseDir:  m.Root,
		Entry:    m.Config.EntryPoint(),
		VM:       vm.Options{StackSize: m.Config.VM.StackSize, MaxFrames: m.Config.VM.MaxFrames},
		Manifest: m,
	}
}

// name is the project name, or the base name of the last file.
func (in inputs) name() string {
	if in.Manifest != nil {
		return in.Manifest.Config.Package.Name
	}
	if len(in.Files) == 0 {
		return ""
	}
	last := filepath.Base(in.Files[len(in.Files)-1])
	return last[:len(last)-len(filepath.Ext(last))]
}
