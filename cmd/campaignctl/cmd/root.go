// Package cmd implements the campaignctl CLI: running campaigns from the
// terminal and managing the retrieval index without the HTTP server.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"campaignforge/internal/config"
	"campaignforge/internal/logger"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "campaignctl",
	Short: "Build and run marketing campaigns from the command line",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		logger.Setup(cfg.LogLevel)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
