package main

import (
	"os"

	"github.com/aretw0/convo/internal/cli"
	"github.com/aretw0/convo/internal/presentation/tui"
	"github.com/aretw0/convo/pkg/runner"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat <script>",
	Short: "Chat with a script in the terminal",
	Long: `Runs a script interactively. Leaving with exit or Ctrl+C keeps the session
stored; run chat again with the same --session to resume it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		jsonMode, _ := cmd.Flags().GetBool("json")
		cancelOnExit, _ := cmd.Flags().GetBool("cancel-on-exit")

		stack, err := cli.Build(cmd.Context(), cfg, logger, nil)
		if err != nil {
			return err
		}
		defer stack.Close()

		opts := []runner.Option{
			runner.WithLogger(logger),
			runner.WithCancelOnExit(cancelOnExit),
		}
		if sessionID != "" {
			opts = append(opts, runner.WithSessionID(sessionID))
		}
		if jsonMode {
			opts = append(opts, runner.WithInputHandler(runner.NewJSONHandler(os.Stdin, os.Stdout)))
		} else {
			tui.PrintBanner(os.Stdout, args[0])
			if r := tui.NewRenderer(); r != nil {
				opts = append(opts, runner.WithRenderer(r))
			}
		}

		return runner.NewRunner(stack.Bot, args[0], opts...).Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("session", "", "Session ID to start or resume")
	chatCmd.Flags().Bool("json", false, "Read replies and write messages as JSON lines")
	chatCmd.Flags().Bool("cancel-on-exit", false, "Cancel the dialog when leaving instead of keeping it")
}
