package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bazaargate",
	Short: "Quota-gated query API over stored bazaar snapshots",
	Long: `bazaargate serves the latest and historical bazaar snapshots per product
over HTTP. Field queries are gated by API keys with a per-window quota that
is reset on a fixed schedule.

Quick start:
  bazaargate keys create   # Issue an API key
  bazaargate serve         # Start the API server

Management:
  bazaargate keys          # Manage API keys
  bazaargate get           # Query a running server
  bazaargate validate      # Validate configuration`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "bazaargate.yaml", "config file path")
}
