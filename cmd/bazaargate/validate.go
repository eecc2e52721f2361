package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/artpar/bazaargate/bootstrap"
	"github.com/artpar/bazaargate/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before deployment",
	Long: `Validate the bazaargate configuration.

Checks:
  - YAML syntax is valid (when a config file exists)
  - BAZAARGATE_* overrides and defaults produce a valid config
  - Database is reachable and migrated (optional)

Examples:
  bazaargate validate
  bazaargate validate --check-database
  bazaargate validate --config /etc/bazaargate/config.yaml`,
	RunE: runValidate,
}

var (
	validateCheckDatabase bool
)

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckDatabase, "check-database", false, "check that the database is reachable")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if _, err := os.Stat(cfgFile); err == nil {
		fmt.Fprintf(out, "Validating %s...\n\n", cfgFile)
		fmt.Fprintf(out, "  %s Config file exists\n", checkMark)
	} else {
		fmt.Fprintf(out, "Validating environment configuration...\n\n")
		fmt.Fprintf(out, "  %s No config file at %s, using BAZAARGATE_* variables\n", checkMark, cfgFile)
	}

	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		fmt.Fprintf(out, "  %s Config valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Fprintf(out, "  %s Config valid\n", checkMark)

	// Show config summary
	policies := cfg.Policies()
	fmt.Fprintf(out, "  %s Listen: %s\n", checkMark, cfg.Addr())
	fmt.Fprintf(out, "  %s Database: %s\n", checkMark, cfg.Database.Driver)
	fmt.Fprintf(out, "  %s Quota reset every %s\n", checkMark, cfg.Quota.ResetInterval)
	fmt.Fprintf(out, "  %s Snapshot endpoint requires key: %t\n", checkMark, policies.Snapshot.RequireKey)
	fmt.Fprintf(out, "  %s Field endpoints require key: %t / %t\n", checkMark, policies.Field.RequireKey, policies.History.RequireKey)
	if cfg.Query.MaxHistoryLimit > 0 {
		fmt.Fprintf(out, "  %s History limit clamped to %d\n", checkMark, cfg.Query.MaxHistoryLimit)
	}

	// Optional: check database
	if validateCheckDatabase {
		if err := checkDatabase(cfg); err != nil {
			fmt.Fprintf(out, "  %s Database reachable\n", crossMark)
			fmt.Fprintf(out, "      Error: %v\n", err)
		} else {
			fmt.Fprintf(out, "  %s Database reachable\n", checkMark)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration is valid.")
	return nil
}

func checkDatabase(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stores, err := bootstrap.OpenStores(ctx, cfg, zerolog.New(io.Discard))
	if err != nil {
		return err
	}
	defer stores.Close()
	return stores.DB.Ping(ctx)
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
