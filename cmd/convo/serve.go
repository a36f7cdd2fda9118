package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/convo/internal/cli"
	convohttp "github.com/aretw0/convo/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP webhook server",
	Long: `Serves the dialogs over a JSON API with Prometheus metrics on /metrics.
Scripts are reloaded when their files change, and dialogs idle for longer than
--idle-timeout end with outcome "timeout".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("addr") {
			cfg.Addr, _ = cmd.Flags().GetString("addr")
		}
		if cmd.Flags().Changed("idle-timeout") {
			cfg.IdleTimeout, _ = cmd.Flags().GetDuration("idle-timeout")
		}
		defaultScript, _ := cmd.Flags().GetString("script")
		cors, _ := cmd.Flags().GetBool("cors")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		streams := convohttp.NewStreamManager(logger)
		stack, err := cli.Build(ctx, cfg, logger, streams)
		if err != nil {
			return err
		}
		defer stack.Close()

		reloads, err := stack.Loader.Watch(ctx)
		if err != nil {
			return err
		}
		go func() {
			for range reloads {
				logger.Info("scripts reloaded", "scripts", stack.Loader.Scripts())
			}
		}()

		if cfg.IdleTimeout > 0 {
			go expireIdle(ctx, stack, cfg.IdleTimeout)
		}

		srv := &http.Server{
			Addr: cfg.Addr,
			Handler: convohttp.NewHandler(stack.Bot,
				convohttp.WithLogger(logger),
				convohttp.WithStreams(streams),
				convohttp.WithMetrics(stack.Registry),
				convohttp.WithDefaultScript(defaultScript),
				convohttp.WithCORS(cors),
			),
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("server listening", "addr", srv.Addr, "scripts_dir", cfg.ScriptsDir, "store", cfg.Store)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			return err
		case <-ctx.Done():
			logger.Info("shutting down")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown did not complete", "error", err)
			if err := srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		}
		return nil
	},
}

// expireIdle sweeps for idle dialogs at a fraction of the timeout until ctx is done.
func expireIdle(ctx context.Context, stack *cli.Stack, idle time.Duration) {
	interval := max(idle/4, time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := stack.Bot.ExpireIdle(ctx, idle)
			if err != nil {
				logger.Warn("idle expiry failed", "error", err)
			}
			if len(expired) > 0 {
				logger.Info("expired idle sessions", "count", len(expired))
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (CONVO_ADDR)")
	serveCmd.Flags().Duration("idle-timeout", 0, "End dialogs idle for this long (CONVO_IDLE_TIMEOUT)")
	serveCmd.Flags().String("script", "", "Script started for turns that name none")
	serveCmd.Flags().Bool("cors", false, "Allow cross-origin requests")
}
