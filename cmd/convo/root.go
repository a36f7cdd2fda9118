package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/convo/internal/config"
	"github.com/aretw0/convo/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "convo",
	Short:         "convo runs scripted conversations",
	Long:          `convo loads dialog scripts from YAML files and runs them in the terminal or behind an HTTP webhook.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		loaded, err := config.Load(envFile)
		if err != nil {
			return err
		}
		applyFlags(cmd, loaded)
		if err := loaded.Validate(); err != nil {
			return err
		}

		level, err := logging.ParseLevel(loaded.LogLevel)
		if err != nil {
			return err
		}
		cfg = loaded
		logger = logging.NewWithWriter(os.Stderr, level, logging.Format(loaded.LogFormat))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("env-file", ".env", "Optional dotenv file")
	flags.StringP("scripts", "s", "", "Directory containing the YAML scripts (CONVO_SCRIPTS_DIR)")
	flags.String("store", "", "Session store: memory, file or redis (CONVO_STORE)")
	flags.String("sessions-dir", "", "Directory of the file store (CONVO_SESSIONS_DIR)")
	flags.String("redis-url", "", "Redis URL of the redis store (CONVO_REDIS_URL)")
	flags.String("log-level", "", "debug, info, warn or error (CONVO_LOG_LEVEL)")
	flags.String("log-format", "", "text or json (CONVO_LOG_FORMAT)")
}

// applyFlags overrides the environment with the flags set on the command line.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	set := func(name string, dst *string) {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
	set("scripts", &c.ScriptsDir)
	set("store", &c.Store)
	set("sessions-dir", &c.SessionsDir)
	set("redis-url", &c.RedisURL)
	set("log-level", &c.LogLevel)
	set("log-format", &c.LogFormat)
}
