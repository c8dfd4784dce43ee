package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"escript/internal/asm"
	"escript/internal/buildpipeline"
	"escript/internal/project"
	"escript/internal/vm"
)

var disasmCmd = &cobra.Command{
	Use:   "disasm [flags] [dir | files... | image" + project.ExtImage + "]",
	Short: "Print the assembly listing of a program",
	Long: `Compile the inputs (or load an image) and print every chunk as assembly
source. The listing of a chunk assembles back to the same instructions.`,
	RunE: runDisasm,
}

func init() {
	disasmCmd.Flags().Bool("no-cache", false, "do not read or write the image cache")
}

func runDisasm(cmd *cobra.Command, args []string) error {
	if len(args) == 1 && strings.EqualFold(filepath.Ext(args[0]), project.ExtImage) {
		st, err := buildpipeline.LoadImage(args[0], vm.Options{}, nil)
		if err != nil {
			return fmt.Errorf("loading %s: %w", args[0], err)
		}
		defer st.Close()
		return writeListing(cmd.OutOrStdout(), st, nil)
	}

	in, err := resolveInputs(args)
	if err != nil {
		return err
	}
	req, err := compileRequest(cmd, in, in.VM)
	if err != nil {
		return err
	}
	res, err := buildpipeline.Compile(cmd.Context(), &req)
	if err := finishCompile(cmd, res, err); err != nil {
		return err
	}
	defer res.Build.State.Close()
	return writeListing(cmd.OutOrStdout(), res.Build.State, displayFiles(in))
}

// writeListing formats every chunk of st. names labels the chunks when
// there is one per input file.
func writeListing(w io.Writer, st *vm.State, names []string) error {
	chunks := st.Chunks()
	for i := range chunks {
		if i > 0 {
			fmt.Fprintln(w)
		}
		header := fmt.Sprintf("; chunk %d", i)
		if len(names) == len(chunks) {
			header += " " + names[i]
		}
		fmt.Fprintln(w, header)
		if err := asm.Format(w, st, i); err != nil {
			return err
		}
	}
	return nil
}
