package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/convo/internal/cli"
	"github.com/aretw0/convo/internal/presentation/graph"
	"github.com/aretw0/convo/pkg/adapters/fs"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <script>",
	Short: "Export a script as a Mermaid flowchart",
	Long: `Prints a Mermaid diagram (graph TD) of the script's threads, branches and
references to other scripts. With --session, the threads the session visited
and the line it waits on are highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loader, err := fs.NewLoader(cfg.ScriptsDir, fs.WithLogger(logger))
		if err != nil {
			return err
		}
		s, err := loader.Script(args[0])
		if err != nil {
			return err
		}

		var overlay *graph.Overlay
		if sessionID, _ := cmd.Flags().GetString("session"); sessionID != "" {
			h, err := cli.OpenStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer h.Close()

			state, err := h.Store.Load(cmd.Context(), sessionID)
			if err != nil {
				return err
			}
			if overlay = graph.OverlayFor(state, s.ID()); overlay == nil {
				return errors.New("session is not running " + s.ID())
			}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(s, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("session", "", "Highlight the position of this session")
}
