package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"escript/internal/buildpipeline"
	"escript/internal/diag"
	"escript/internal/diagfmt"
	"escript/internal/driver"
	"escript/internal/source"
	"escript/internal/trace"
	"escript/internal/vm"
)

// addBuildFlags registers the flags shared by run and build.
func addBuildFlags(cmd *cobra.Command) {
	cmd.Flags().String("ui", "auto", "progress view (auto|on|off)")
	cmd.Flags().Bool("no-cache", false, "do not read or write the image cache")
}

// compileRequest turns flags and inputs into a pipeline request.
func compileRequest(cmd *cobra.Command, in inputs, opts vm.Options) (buildpipeline.CompileRequest, error) {
	flags := cmd.Root().PersistentFlags()
	jobs, _ := flags.GetInt("jobs")
	maxDiagnostics, err := flags.GetInt("max-diagnostics")
	if err != nil {
		return buildpipeline.CompileRequest{}, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	req := buildpipeline.CompileRequest{
		Files:          in.Files,
		BaseDir:        in.BaseDir,
		Jobs:           jobs,
		MaxDiagnostics: maxDiagnostics,
		VM:             opts,
		Timer:          current.timer,
	}
	noCache, _ := cmd.Flags().GetBool("no-cache")
	if !noCache {
		cache, err := driver.OpenDiskCache("escript")
		if err != nil {
			warnf(cmd, "build cache disabled: %v", err)
		} else {
			req.Cache = cache
		}
	}
	return req, nil
}

// finishCompile prints the diagnostics of a finished compilation and maps
// a failed build to exit status 1.
func finishCompile(cmd *cobra.Command, res buildpipeline.CompileResult, err error) error {
	if res.Build != nil {
		if printErr := printDiagnostics(cmd, res.Build.Bag, res.Build.FileSet); printErr != nil {
			return printErr
		}
	}
	if errors.Is(err, buildpipeline.ErrDiagnostics) {
		dumpTraceRing(cmd)
		return exitError{code: 1}
	}
	return err
}

// printDiagnostics writes bag to stderr in the --diagnostics-format.
func printDiagnostics(cmd *cobra.Command, bag *diag.Bag, fs *source.FileSet) error {
	if bag == nil || bag.Len() == 0 {
		return nil
	}
	flags := cmd.Root().PersistentFlags()
	format, _ := flags.GetString("diagnostics-format")
	quiet, _ := flags.GetBool("quiet")
	bag.Sort()
	switch format {
	case "json":
		return diagfmt.JSON(os.Stderr, bag, fs, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         diagfmt.PathModeRelative,
			IncludeNotes:     true,
		})
	case "short":
		if out := diag.FormatShort(bag.Items(), fs, true); out != "" {
			fmt.Fprintln(os.Stderr, out)
		}
		return nil
	case "pretty", "":
		if quiet && !bag.HasErrors() {
			return nil
		}
		diagfmt.Pretty(os.Stderr, bag, fs, diagfmt.PrettyOpts{
			Color:     useColor(cmd, os.Stderr),
			Context:   1,
			PathMode:  diagfmt.PathModeRelative,
			ShowNotes: true,
		})
		return nil
	}
	return fmt.Errorf("unknown diagnostics format %q (expected pretty|short|json)", format)
}

// reportRuntimeError prints a VM fault with its backtrace. Other errors are
// returned unchanged.
func reportRuntimeError(cmd *cobra.Command, err error) error {
	var fault *vm.VMError
	if !errors.As(err, &fault) {
		return err
	}
	fmt.Fprint(os.Stderr, fault.Format())
	dumpTraceRing(cmd)
	return exitError{code: 1}
}

// dumpTraceRing writes the in-memory trace to stderr after a failure.
func dumpTraceRing(cmd *cobra.Command) {
	ring, ok := trace.Ring(trace.FromContext(cmd.Context()))
	if !ok {
		return
	}
	fmt.Fprintln(os.Stderr, "trace:")
	if err := ring.Dump(os.Stderr, trace.FormatText); err != nil {
		fmt.Fprintf(os.Stderr, "trace: dump error: %v\n", err)
	}
}

func warnf(cmd *cobra.Command, format string, args ...any) {
	if quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet"); quiet {
		return
	}
	fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
}

// vmOptions adds the --exec-trace tracer to the manifest VM settings.
func vmOptions(cmd *cobra.Command, base vm.Options) vm.Options {
	if on, _ := cmd.Flags().GetBool("exec-trace"); on {
		base.Tracer = vm.NewTracer(os.Stderr)
	}
	return base
}

func displayFiles(in inputs) []string {
	out := make([]string, len(in.Files))
	for i, f := range in.Files {
		out[i] = buildpipeline.DisplayPath(f, in.BaseDir)
	}
	return out
}
