package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/artpar/bazaargate/adapters/remote"
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <product-id> [field] [limit]",
	Short: "Query a running bazaargate server",
	Long: `Query the bazaar endpoints of a running server and print the JSON result.

With only a product id the latest full snapshot is printed. With a field
the latest value is printed, and with a limit the most recent values,
newest first. Each field query spends one unit of the key's quota.

Examples:
  bazaargate get SULPHUR
  bazaargate get SULPHUR sellPrice --key=$BAZAARGATE_KEY
  bazaargate get SULPHUR sellPrice 20 --url=https://bazaar.example.com`,
	Args: cobra.RangeArgs(1, 3),
	RunE: runGet,
}

var (
	getURL     string
	getKey     string
	getTimeout time.Duration
	getRetries int
)

func init() {
	rootCmd.AddCommand(getCmd)

	getCmd.Flags().StringVar(&getURL, "url", "http://localhost:8080", "server base URL")
	getCmd.Flags().StringVar(&getKey, "key", os.Getenv("BAZAARGATE_KEY"), "API key (default $BAZAARGATE_KEY)")
	getCmd.Flags().DurationVar(&getTimeout, "timeout", 10*time.Second, "request timeout")
	getCmd.Flags().IntVar(&getRetries, "retries", 2, "retries on connection errors (an HTTP response is never retried)")
}

func runGet(cmd *cobra.Command, args []string) error {
	client := remote.NewClient(remote.ClientConfig{
		BaseURL:    getURL,
		APIKey:     getKey,
		Timeout:    getTimeout,
		RetryCount: getRetries,
	})

	ctx, cancel := context.WithTimeout(context.Background(), getTimeout*time.Duration(getRetries+1))
	defer cancel()

	var (
		result any
		err    error
	)
	switch len(args) {
	case 1:
		result, err = client.Snapshot(ctx, args[0])
	case 2:
		result, err = client.Field(ctx, args[0], args[1])
	case 3:
		limit, convErr := strconv.Atoi(args[2])
		if convErr != nil || limit < 0 {
			return fmt.Errorf("limit must be a non-negative integer, got %q", args[2])
		}
		result, err = client.History(ctx, args[0], args[1], limit)
	}
	if remote.IsLimitExceeded(err) {
		return fmt.Errorf("quota spent for this key; it resets on the server's schedule")
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
