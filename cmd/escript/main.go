// Package main implements the escript CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"escript/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "escript",
	Short:         "escript compiler, assembler and VM",
	Long:          `escript compiles scripts and assembly into register-machine bytecode and runs it`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return startSession(cmd)
	},
}

func init() {
	rootCmd.Version = version.String()

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(disasmCmd)
	rootCmd.AddCommand(tokenizeCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(versionCmd)

	flags := rootCmd.PersistentFlags()
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.Bool("quiet", false, "suppress non-essential output")
	flags.Bool("timings", false, "show timing information")
	flags.Int("max-diagnostics", 100, "maximum number of diagnostics to show")
	flags.String("diagnostics-format", "pretty", "diagnostics output format (pretty|short|json)")
	flags.IntP("jobs", "j", 0, "parallel file loading and lexing (0 = GOMAXPROCS)")

	flags.String("trace", "", "trace output path (- for stderr)")
	flags.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	flags.String("trace-mode", "stream", "trace mode (stream|ring|both)")
	flags.Int("trace-ring-size", 0, "ring buffer capacity for --trace-mode=ring|both")
	flags.Duration("trace-heartbeat", 0, "emit a heartbeat event at this interval")

	flags.String("cpu-profile", "", "write a CPU profile to this file")
	flags.String("mem-profile", "", "write a heap profile to this file")
	flags.String("runtime-trace", "", "write a Go runtime trace to this file")
}

// main runs the root command. Errors that carry an exit code (failed
// builds, runtime faults) have already been reported and only set the
// status.
func main() {
	err := rootCmd.Execute()
	stopSession(rootCmd)
	if err == nil {
		return
	}
	var exit exitError
	if errors.As(err, &exit) {
		os.Exit(exit.code)
	}
	fmt.Fprintf(os.Stderr, "escript: %v\n", err)
	os.Exit(1)
}

// exitError ends the process with code after its cause was already printed.
type exitError struct {
	code int
}

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }
