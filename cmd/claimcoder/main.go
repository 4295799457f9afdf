package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "claimcoder",
		Short:         "Claim coding decision engine",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(evaluateCmd())
	rootCmd.AddCommand(refdataCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
