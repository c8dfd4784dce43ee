package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"escript/internal/buildpipeline"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] [dir | files...]",
	Short: "Compile and run an escript program",
	Long: `Compile the given .es and .esasm files into one program and call its entry
function. Without arguments the files come from escript.toml. Each result is
printed on its own line.`,
	RunE: runExecution,
}

func init() {
	addBuildFlags(runCmd)
	runCmd.Flags().String("entry", "", "function to call (default from the manifest, or main)")
	runCmd.Flags().Bool("exec-trace", false, "trace every executed instruction to stderr")
}

func runExecution(cmd *cobra.Command, args []string) error {
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	in, err := resolveInputs(args)
	if err != nil {
		return err
	}
	entry := in.Entry
	if e, _ := cmd.Flags().GetString("entry"); e != "" {
		entry = e
	}

	req, err := compileRequest(cmd, in, vmOptions(cmd, in.VM))
	if err != nil {
		return err
	}
	var res buildpipeline.CompileResult
	if shouldUseTUI(mode, len(in.Files)) {
		res, err = runCompileWithUI(cmd.Context(), "escript run", displayFiles(in), &req)
	} else {
		res, err = buildpipeline.Compile(cmd.Context(), &req)
	}
	if err := finishCompile(cmd, res, err); err != nil {
		return err
	}
	st := res.Build.State
	defer st.Close()

	out, err := buildpipeline.Run(cmd.Context(), st, entry, nil)
	res.Timings.Set(buildpipeline.StageRun, out.Elapsed)
	if err != nil {
		return reportRuntimeError(cmd, err)
	}
	for _, v := range out.Values {
		fmt.Fprintln(cmd.OutOrStdout(), v)
	}
	printTimings(cmd, os.Stderr, res.Timings)
	return nil
}
