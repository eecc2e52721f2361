package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/artpar/bazaargate/domain/product"
	"github.com/spf13/cobra"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Manage stored bazaar snapshots",
}

var snapshotsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import snapshots from a JSON stream",
	Long: `Import bazaar snapshots into the configured database.

The input is a stream of snapshot objects, one after another (JSON lines
work), in the same shape the snapshot endpoint returns:

  {"product_id":"SULPHUR","timestamp":1700000000,"quick_status":{"sellPrice":4.2}}

Use "-" to read from stdin. The import stops at the first invalid record;
records before it stay stored.

Examples:
  bazaargate snapshots import seed.jsonl
  cat dump.jsonl | bazaargate snapshots import -`,
	Args: cobra.ExactArgs(1),
	RunE: runSnapshotsImport,
}

func init() {
	rootCmd.AddCommand(snapshotsCmd)
	snapshotsCmd.AddCommand(snapshotsImportCmd)
}

func runSnapshotsImport(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	ctx := context.Background()
	stores, err := openStores(ctx)
	if err != nil {
		return err
	}
	defer stores.Close()

	dec := json.NewDecoder(in)
	imported := 0
	for {
		var snap product.Snapshot
		err := dec.Decode(&snap)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("record %d: %w", imported+1, err)
		}
		if !product.ValidProductID(snap.ProductID) {
			return fmt.Errorf("record %d: invalid product id %q", imported+1, snap.ProductID)
		}
		if err := stores.Snapshots.Insert(ctx, snap); err != nil {
			return fmt.Errorf("record %d: %w", imported+1, err)
		}
		imported++
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Imported %d snapshot(s)\n", checkMark, imported)
	return nil
}
