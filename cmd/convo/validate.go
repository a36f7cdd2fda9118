package main

import (
	"fmt"

	"github.com/aretw0/convo/pkg/adapters/fs"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Check the scripts for errors",
	Long: `Parses every script and reports unknown threads, invalid patterns, malformed
actions and references to scripts that do not exist.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := cfg.ScriptsDir
		if len(args) > 0 {
			dir = args[0]
		}

		loader, err := fs.NewLoader(dir, fs.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		out := cmd.OutOrStdout()
		for _, id := range loader.Scripts() {
			fmt.Fprintf(out, "  %s\n", id)
		}
		fmt.Fprintf(out, "%d scripts are valid.\n", len(loader.Scripts()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
