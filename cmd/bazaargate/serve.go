package main

import (
	"fmt"

	"github.com/artpar/bazaargate/bootstrap"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bazaar API server",
	Long: `Start the bazaargate API server.

The server will:
  - Load configuration from bazaargate.yaml (or --config)
  - Or load configuration from BAZAARGATE_* environment variables
  - Connect to the database and apply migrations
  - Reset every key's usage counter on quota.reset_interval
  - Serve /api/skyblock/bazaar/... until SIGINT or SIGTERM

A config file is watched for changes and re-read on SIGHUP. Endpoint
gating, query.max_history_limit and logging.level apply without restart.

Environment variables:
  BAZAARGATE_DATABASE_DRIVER   - sqlite or postgres (default: sqlite)
  BAZAARGATE_DATABASE_DSN      - Database path or URL (default: bazaargate.db)
  BAZAARGATE_SERVER_PORT       - Server port (default: 8080)
  BAZAARGATE_LOG_LEVEL         - Log level: debug, info, warn, error

Examples:
  bazaargate serve
  bazaargate serve --config /etc/bazaargate/config.yaml
  BAZAARGATE_DATABASE_DRIVER=postgres BAZAARGATE_DATABASE_DSN=postgres://... bazaargate serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := bootstrap.New(bootstrap.Options{
		ConfigPath: cfgFile,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
