package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/convo/internal/cli"
	"github.com/aretw0/convo/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Serves the dialogs as MCP tools so AI agents can hold conversations,
inspect sessions and draw script graphs.

Supported Transports:
- stdio (default): JSON-RPC on standard input/output. Logs go to stderr.
- sse: Server-Sent Events over HTTP on --addr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("addr")
		defaultScript, _ := cmd.Flags().GetString("script")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		stack, err := cli.Build(ctx, cfg, logger, nil)
		if err != nil {
			return err
		}
		defer stack.Close()

		srv := mcp.NewServer(stack.Bot, version,
			mcp.WithLogger(logger),
			mcp.WithDefaultScript(defaultScript),
		)

		switch transport {
		case "stdio":
			logger.Info("mcp server started (stdio)", "scripts_dir", cfg.ScriptsDir, "store", cfg.Store)
			return srv.ServeStdio(ctx, os.Stdin, os.Stdout)
		case "sse":
			err := srv.ServeSSE(ctx, addr)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		default:
			return fmt.Errorf("unknown transport %q (supported: stdio, sse)", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("addr", ":8081", "Listen address (only for SSE)")
	mcpCmd.Flags().String("script", "", "Script started by handle_turn calls that name none")
}
