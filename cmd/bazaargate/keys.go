package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/artpar/bazaargate/app"
	"github.com/artpar/bazaargate/bootstrap"
	"github.com/artpar/bazaargate/config"
	"github.com/artpar/bazaargate/domain/key"
	"github.com/artpar/bazaargate/domain/quota"
	"github.com/artpar/bazaargate/ports"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys",
	Long: `Manage bazaargate API keys.

Each key may spend up to 500 queries per reset window. Disabled keys are
still recognized but every gated query is refused.

Examples:
  bazaargate keys create
  bazaargate keys create --key=my-chosen-key
  bazaargate keys show bz_0123...
  bazaargate keys disable bz_0123...
  bazaargate keys reset`,
}

var keysCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new API key",
	Args:  cobra.NoArgs,
	RunE:  runKeysCreate,
}

var keysShowCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Show usage of an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysShow,
}

var keysEnableCmd = &cobra.Command{
	Use:   "enable <key>",
	Short: "Enable an API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setKeyEnabled(cmd, args[0], true)
	},
}

var keysDisableCmd = &cobra.Command{
	Use:   "disable <key>",
	Short: "Disable an API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setKeyEnabled(cmd, args[0], false)
	},
}

var keysResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Zero the usage counter of every key now",
	Args:  cobra.NoArgs,
	RunE:  runKeysReset,
}

var (
	keyValue  string
	keyPrefix string
)

func init() {
	rootCmd.AddCommand(keysCmd)

	keysCmd.AddCommand(keysCreateCmd)
	keysCmd.AddCommand(keysShowCmd)
	keysCmd.AddCommand(keysEnableCmd)
	keysCmd.AddCommand(keysDisableCmd)
	keysCmd.AddCommand(keysResetCmd)

	keysCreateCmd.Flags().StringVar(&keyValue, "key", "", "use this key instead of generating one")
	keysCreateCmd.Flags().StringVar(&keyPrefix, "prefix", key.DefaultPrefix, "prefix for generated keys")
}

// openStores loads configuration the same way serve does and opens the database.
func openStores(ctx context.Context) (*bootstrap.Stores, error) {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return bootstrap.OpenStores(ctx, cfg, zerolog.New(io.Discard))
}

func runKeysCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	stores, err := openStores(ctx)
	if err != nil {
		return err
	}
	defer stores.Close()

	rec := key.Generate(keyPrefix, time.Now())
	if keyValue != "" {
		rec.Key = keyValue
	}

	if err := stores.Keys.Create(ctx, rec); err != nil {
		return fmt.Errorf("failed to create key: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Created API key\n", checkMark)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "API Key:")
	fmt.Fprintf(out, "  %s\n", rec.Key)
	return nil
}

func runKeysShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	stores, err := openStores(ctx)
	if err != nil {
		return err
	}
	defer stores.Close()

	rec, err := stores.Keys.Get(ctx, args[0])
	if errors.Is(err, ports.ErrNotFound) {
		return fmt.Errorf("key not found: %s", key.Mask(args[0]))
	}
	if err != nil {
		return fmt.Errorf("failed to get key: %w", err)
	}

	status := "enabled"
	if !rec.Enabled {
		status = "disabled"
	}
	lastUsed := "never"
	if rec.LastUsedAt != nil {
		lastUsed = rec.LastUsedAt.Format(time.RFC3339)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "KEY\t%s\n", key.Mask(rec.Key))
	fmt.Fprintf(w, "STATUS\t%s\n", status)
	fmt.Fprintf(w, "USAGE\t%d / %d\n", rec.UsageCount, quota.Ceiling)
	fmt.Fprintf(w, "REMAINING\t%d\n", quota.Remaining(rec, quota.Ceiling))
	fmt.Fprintf(w, "LIFETIME\t%d\n", rec.LifetimeCount)
	fmt.Fprintf(w, "CREATED\t%s\n", rec.CreatedAt.Format("2006-01-02"))
	fmt.Fprintf(w, "LAST USED\t%s\n", lastUsed)
	return w.Flush()
}

func setKeyEnabled(cmd *cobra.Command, apiKey string, enabled bool) error {
	ctx := context.Background()
	stores, err := openStores(ctx)
	if err != nil {
		return err
	}
	defer stores.Close()

	err = stores.Keys.SetEnabled(ctx, apiKey, enabled)
	if errors.Is(err, ports.ErrNotFound) {
		return fmt.Errorf("key not found: %s", key.Mask(apiKey))
	}
	if err != nil {
		return fmt.Errorf("failed to update key: %w", err)
	}

	verb := "Enabled"
	if !enabled {
		verb = "Disabled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s key: %s\n", checkMark, verb, key.Mask(apiKey))
	return nil
}

func runKeysReset(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stores, err := openStores(ctx)
	if err != nil {
		return err
	}
	defer stores.Close()

	scheduler := app.NewResetScheduler(app.ResetDeps{
		Keys:   stores.Keys,
		Logger: zerolog.New(io.Discard),
	}, 0)

	zeroed, err := scheduler.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Reset usage of %d key(s)\n", checkMark, zeroed)
	return nil
}
