package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/rewindhq/rewind/internal/update"
)

var versionCheck bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the Rewind version",
	RunE:  runVersion,
}

func init() {
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "check GitHub for a newer release")
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	fmt.Printf("Rewind version %s\n", update.Version)
	fmt.Printf("  OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go version: %s\n", runtime.Version())

	if !versionCheck {
		return nil
	}

	checker, err := update.NewChecker()
	if err != nil {
		return err
	}
	latest, url, err := checker.Check()
	if err != nil {
		return fmt.Errorf("update check failed: %w", err)
	}
	if latest == "" {
		fmt.Println("You are on the latest version.")
		return nil
	}
	fmt.Printf("A newer version is available: %s\n  %s\n", latest, url)
	return nil
}
