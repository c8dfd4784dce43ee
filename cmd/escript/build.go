package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"escript/internal/buildpipeline"
	"escript/internal/project"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [dir | files...]",
	Short: "Compile an escript program into a bytecode image",
	Long: `Compile the given .es and .esasm files, or the files listed in escript.toml,
and write the resulting program as a .esi image that escript exec can run.`,
	RunE: buildExecution,
}

func init() {
	addBuildFlags(buildCmd)
	buildCmd.Flags().StringP("output", "o", "", "image path (default: named after the project or the last file)")
}

func buildExecution(cmd *cobra.Command, args []string) error {
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
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if output == "" && in.Manifest != nil {
		output = filepath.Join(in.Manifest.Root, in.name()+project.ExtImage)
	}

	compileReq, err := compileRequest(cmd, in, in.VM)
	if err != nil {
		return err
	}
	req := buildpipeline.BuildRequest{CompileRequest: compileReq, OutputPath: output}

	var res buildpipeline.BuildResult
	if shouldUseTUI(mode, len(in.Files)) {
		res, err = runBuildWithUI(cmd.Context(), "escript build", displayFiles(in), &req)
	} else {
		res, err = buildpipeline.Build(cmd.Context(), &req)
	}
	if err := finishCompile(cmd, res.Compile, err); err != nil {
		return err
	}
	printTimings(cmd, os.Stderr, res.Timings)
	if quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet"); !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "built %s\n", buildpipeline.DisplayPath(res.OutputPath, in.BaseDir))
	}
	return nil
}
