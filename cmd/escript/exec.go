package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"escript/internal/buildpipeline"
	"escript/internal/project"
	"escript/internal/vm"
)

var execCmd = &cobra.Command{
	Use:   "exec [flags] image" + project.ExtImage,
	Short: "Run a bytecode image written by escript build",
	Args:  cobra.ExactArgs(1),
	RunE:  runImage,
}

func init() {
	execCmd.Flags().String("entry", project.DefaultEntry, "function to call")
	execCmd.Flags().Int("stack-size", 0, "value stack slots (0 = default)")
	execCmd.Flags().Int("max-frames", 0, "call depth limit (0 = default)")
	execCmd.Flags().Bool("exec-trace", false, "trace every executed instruction to stderr")
}

func runImage(cmd *cobra.Command, args []string) error {
	entry, _ := cmd.Flags().GetString("entry")
	stackSize, _ := cmd.Flags().GetInt("stack-size")
	maxFrames, _ := cmd.Flags().GetInt("max-frames")
	if stackSize < 0 || maxFrames < 0 {
		return fmt.Errorf("--stack-size and --max-frames must not be negative")
	}

	start := time.Now()
	st, err := buildpipeline.LoadImage(args[0], vmOptions(cmd, vm.Options{StackSize: stackSize, MaxFrames: maxFrames}), nil)
	if err != nil {
		return fmt.Errorf("loading %s: %w", args[0], err)
	}
	defer st.Close()
	var timings buildpipeline.Timings
	timings.Set(buildpipeline.StageImage, time.Since(start))

	out, err := buildpipeline.Run(cmd.Context(), st, entry, nil)
	timings.Set(buildpipeline.StageRun, out.Elapsed)
	if err != nil {
		return reportRuntimeError(cmd, err)
	}
	for _, v := range out.Values {
		fmt.Fprintln(cmd.OutOrStdout(), v)
	}
	printTimings(cmd, os.Stderr, timings)
	return nil
}
