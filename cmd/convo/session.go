package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/convo/internal/cli"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage stored sessions",
	Long:  `List, inspect, and remove the sessions kept by the configured store.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := cli.OpenStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer h.Close()

		sessions, err := h.Store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(sessions) == 0 {
			fmt.Fprintln(out, "No sessions found.")
			return nil
		}
		for _, id := range sessions {
			state, err := h.Store.Load(cmd.Context(), id)
			if err != nil {
				fmt.Fprintf(out, "%s\t(unreadable: %v)\n", id, err)
				continue
			}
			active := state.Active()
			fmt.Fprintf(out, "%s\t%s\t%s#%s\t%s\n", id, state.Status, active.ScriptID, active.Thread,
				state.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Print the stored state of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := cli.OpenStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer h.Close()

		state, err := h.Store.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load session %q: %w", args[0], err)
		}
		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove sessions",
	Args: func(cmd *cobra.Command, args []string) error {
		if all, _ := cmd.Flags().GetBool("all"); all {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := cli.OpenStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer h.Close()

		if all, _ := cmd.Flags().GetBool("all"); all {
			if args, err = h.Store.List(cmd.Context()); err != nil {
				return err
			}
		}

		var errs []error
		for _, id := range args {
			if err := h.Store.Delete(cmd.Context(), id); err != nil {
				errs = append(errs, fmt.Errorf("remove %q: %w", id, err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed session '%s'\n", id)
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd, sessionInspectCmd, sessionRmCmd)
	sessionRmCmd.Flags().Bool("all", false, "Remove every stored session")
}
