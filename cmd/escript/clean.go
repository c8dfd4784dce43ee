package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"escript/internal/driver"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove cached bytecode images",
	Args:  cobra.NoArgs,
	RunE:  runClean,
}

func runClean(cmd *cobra.Command, _ []string) error {
	cache, err := driver.OpenDiskCache("escript")
	if err != nil {
		return fmt.Errorf("open build cache: %w", err)
	}
	if err := cache.DropAll(); err != nil {
		return fmt.Errorf("clear build cache: %w", err)
	}
	if quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet"); !quiet {
		fmt.Fprintln(cmd.OutOrStdout(), "build cache cleared")
	}
	return nil
}
