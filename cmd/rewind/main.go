package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rewindhq/rewind/internal/update"
)

var rootCmd = &cobra.Command{
	Use:   "rewind",
	Short: "Rewind - browser automation replay",
	Long:  `Rewind turns browser interaction recordings into repeatable automation tasks: import a recording once, then replay it on demand or on a daily schedule.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Skip the update notice for commands that report version state
		// themselves or take over the terminal.
		skipCommands := map[string]bool{
			"version": true,
			"daemon":  true,
			"tui":     true,
			"help":    true,
		}
		if skipCommands[cmd.Name()] {
			return
		}

		if notice := update.Notice(); notice != "" {
			fmt.Fprintln(os.Stderr, notice)
		}
	},
	// No RunE - defaults to showing help when no subcommand is provided
}

var (
	apiAddr string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "http://127.0.0.1:7473", "API server address")

	// Add subcommands
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(tuiCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
