package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// starterScripts is the sample project written by convo init.
var starterScripts = map[string]string{
	"welcome.yaml": `id: welcome
threads:
  default:
    - say: ["Hi there!", "Hello!"]
    - ask: "What is your name?"
      key: name
    - ask: "Nice to meet you, {{vars.name}}. Want to leave some contact info? [yes] [no]"
      key: wants_contact
      options:
        - pattern: "yes"
          child: contact
          key: contact
        - pattern: "no"
          action: bye
        - default: true
          action: repeat
    - say: "We'll reach you at {{vars.contact.email}}."
  bye:
    - say: "Bye, {{vars.name}}!"
`,
	"contact.yaml": `id: contact
threads:
  default:
    - ask: "Your email?"
      key: email
`,
}

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a starter scripts directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := cfg.ScriptsDir
		if len(args) > 0 {
			dir = args[0]
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for name, content := range starterScripts {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				fmt.Fprintf(out, "skipped %s (exists)\n", path)
				continue
			}
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(out, "created %s\n", path)
		}
		fmt.Fprintf(out, "\nTry it: convo chat welcome --scripts %s\n", dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
