package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rewindhq/rewind/internal/browser"
	"github.com/rewindhq/rewind/internal/config"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that Rewind can find a browser and reach the daemon",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ok := true

	installs := browser.Detect()
	if len(installs) == 0 {
		fmt.Println("✗ No Chromium-family browser found")
		fmt.Println("  Install Google Chrome or Chromium, or set browser_path in the config.")
		ok = false
	} else {
		for i, inst := range installs {
			marker := " "
			if i == 0 {
				marker = "✓" // the one replay will use
			}
			if inst.Version != "" {
				fmt.Printf("%s %s (%s) — %s\n", marker, inst.Name, inst.Version, inst.Path)
			} else {
				fmt.Printf("%s %s — %s\n", marker, inst.Name, inst.Path)
			}
		}
	}

	if _, err := apiGet("/health"); err != nil {
		fmt.Printf("✗ Daemon not reachable at %s\n", apiAddr)
		fmt.Println("  Start it with: rewind daemon")
		ok = false
	} else {
		fmt.Printf("✓ Daemon reachable at %s\n", apiAddr)
	}

	cfgPath := defaultConfigPath()
	if _, err := os.Stat(cfgPath); err == nil {
		if _, err := config.Load(cfgPath); err != nil {
			fmt.Printf("✗ Config at %s does not parse: %v\n", cfgPath, err)
			ok = false
		} else {
			fmt.Printf("✓ Config loaded from %s\n", cfgPath)
		}
	} else {
		fmt.Printf("  No config file at %s (defaults apply)\n", cfgPath)
	}

	if !ok {
		return fmt.Errorf("some checks failed")
	}
	return nil
}
