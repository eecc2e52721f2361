// Package e2e provides end-to-end tests for the complete bazaargate query flow.
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/artpar/bazaargate/adapters/remote"
	"github.com/artpar/bazaargate/bootstrap"
	"github.com/artpar/bazaargate/domain/key"
	"github.com/artpar/bazaargate/domain/product"
	"github.com/artpar/bazaargate/domain/quota"
)

// TestE2E_FieldQueryFlow tests the complete gated query flow:
// 1. Start bazaargate on a real listener
// 2. Seed snapshots and an API key
// 3. Query the latest value, the history and the full snapshot
// 4. Verify usage accounting
func TestE2E_FieldQueryFlow(t *testing.T) {
	app, _, cleanup := setupTestApp(t, "")
	defer cleanup()

	seedSnapshots(t, app, "SULPHUR", 5)
	apiKey := createKey(t, app, 0)

	serverAddr := startServer(t, app)
	client := remote.NewClient(remote.ClientConfig{BaseURL: "http://" + serverAddr, APIKey: apiKey})
	ctx := context.Background()

	value, err := client.Field(ctx, "SULPHUR", product.FieldSellPrice)
	if err != nil {
		t.Fatalf("field: %v", err)
	}
	if string(value) != "5.5" {
		t.Errorf("sellPrice = %s, want 5.5", value)
	}

	values, err := client.History(ctx, "SULPHUR", product.FieldSellPrice, 3)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(values) != 3 || string(values[0]) != "5.5" || string(values[2]) != "3.5" {
		t.Errorf("history = %s, want [5.5 4.5 3.5]", values)
	}

	snap, err := client.Snapshot(ctx, "SULPHUR")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.ProductID != "SULPHUR" || snap.Timestamp != 5 {
		t.Errorf("snapshot = %+v, want SULPHUR at 5", snap)
	}

	// Two gated queries; the open snapshot endpoint is free
	rec, err := app.Stores.Keys.Get(ctx, apiKey)
	if err != nil {
		t.Fatalf("get key: %v", err)
	}
	if rec.UsageCount != 2 || rec.LifetimeCount != 2 {
		t.Errorf("usage = %d lifetime = %d, want 2 and 2", rec.UsageCount, rec.LifetimeCount)
	}
	if rec.LastUsedAt == nil {
		t.Error("LastUsedAt not recorded")
	}
}

// TestE2E_QuotaExhaustionAndReset spends a key to the ceiling, verifies
// refusal, then runs a reset sweep and verifies the key works again.
func TestE2E_QuotaExhaustionAndReset(t *testing.T) {
	app, _, cleanup := setupTestApp(t, "")
	defer cleanup()

	seedSnapshots(t, app, "SULPHUR", 1)
	apiKey := createKey(t, app, quota.Ceiling-1)

	serverAddr := startServer(t, app)
	client := remote.NewClient(remote.ClientConfig{BaseURL: "http://" + serverAddr, APIKey: apiKey})
	ctx := context.Background()

	if _, err := client.Field(ctx, "SULPHUR", product.FieldSellPrice); err != nil {
		t.Fatalf("last allowed query: %v", err)
	}

	_, err := client.Field(ctx, "SULPHUR", product.FieldSellPrice)
	if !remote.IsLimitExceeded(err) {
		t.Fatalf("err = %v, want limit exceeded", err)
	}

	zeroed, err := app.Resets.RunOnce(ctx)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if zeroed != 1 {
		t.Errorf("zeroed = %d, want 1", zeroed)
	}

	if _, err := client.Field(ctx, "SULPHUR", product.FieldSellPrice); err != nil {
		t.Errorf("query after reset: %v", err)
	}

	rec, _ := app.Stores.Keys.Get(ctx, apiKey)
	if rec.UsageCount != 1 || rec.LifetimeCount != quota.Ceiling+1 {
		t.Errorf("usage = %d lifetime = %d, want 1 and %d", rec.UsageCount, rec.LifetimeCount, quota.Ceiling+1)
	}
}

// TestE2E_ConcurrentQuota fires more concurrent requests than the key has
// remaining and checks that exactly the remaining amount succeeds.
func TestE2E_ConcurrentQuota(t *testing.T) {
	app, _, cleanup := setupTestApp(t, "")
	defer cleanup()

	seedSnapshots(t, app, "SULPHUR", 1)
	apiKey := createKey(t, app, quota.Ceiling-20)

	serverAddr := startServer(t, app)
	url := fmt.Sprintf("http://%s/api/skyblock/bazaar/SULPHUR/sellPrice?key=%s", serverAddr, apiKey)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		statuses = map[int]int{}
	)
	client := &http.Client{Timeout: 10 * time.Second}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := client.Get(url)
			if err != nil {
				t.Errorf("request failed: %v", err)
				return
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()

			mu.Lock()
			statuses[resp.StatusCode]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if statuses[200] != 20 || statuses[429] != 30 {
		t.Errorf("statuses = %v, want 20x200 and 30x429", statuses)
	}

	rec, _ := app.Stores.Keys.Get(context.Background(), apiKey)
	if rec.UsageCount != quota.Ceiling {
		t.Errorf("usage = %d, want %d", rec.UsageCount, quota.Ceiling)
	}
}

// TestE2E_HotReload gates the snapshot endpoint by rewriting the config file.
func TestE2E_HotReload(t *testing.T) {
	app, configPath, cleanup := setupTestApp(t, "")
	defer cleanup()

	seedSnapshots(t, app, "SULPHUR", 1)
	serverAddr := startServer(t, app)
	snapshotURL := "http://" + serverAddr + "/api/skyblock/bazaar/SULPHUR"

	if status := getStatus(t, snapshotURL); status != 200 {
		t.Fatalf("open snapshot status = %d, want 200", status)
	}

	dbPath := filepath.Join(filepath.Dir(configPath), "test.db")
	if err := os.WriteFile(configPath, []byte(testConfig(dbPath, "endpoints:\n  snapshot:\n    require_key: true\n")), 0644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if getStatus(t, snapshotURL) == 404 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("snapshot endpoint was not gated after config change")
}

// TestE2E_UnknownRoutes checks the catch-all response over a real connection.
func TestE2E_UnknownRoutes(t *testing.T) {
	app, _, cleanup := setupTestApp(t, "")
	defer cleanup()

	serverAddr := startServer(t, app)

	for _, path := range []string{"/", "/api", "/api/skyblock/auctions", "/api/skyblock/bazaar/A/b/1/2"} {
		resp, err := http.Get("http://" + serverAddr + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()

		if resp.StatusCode != 404 || body["error"] != "Page not found" {
			t.Errorf("GET %s = %d %v, want 404 Page not found", path, resp.StatusCode, body)
		}
	}
}

// Helpers

func testConfig(dbPath, extra string) string {
	return fmt.Sprintf(`
database:
  driver: sqlite
  dsn: "%s"

server:
  host: "127.0.0.1"

logging:
  level: error
  format: json
%s`, dbPath, extra)
}

func setupTestApp(t *testing.T, extra string) (*bootstrap.App, string, func()) {
	t.Helper()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	dbPath := filepath.Join(dir, "test.db")

	if err := os.WriteFile(configPath, []byte(testConfig(dbPath, extra)), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	app, err := bootstrap.New(bootstrap.Options{ConfigPath: configPath, LogOutput: io.Discard})
	if err != nil {
		t.Fatalf("create app: %v", err)
	}

	return app, configPath, func() { app.Shutdown() }
}

func seedSnapshots(t *testing.T, app *bootstrap.App, productID string, n int) {
	t.Helper()
	ctx := context.Background()
	for ts := 1; ts <= n; ts++ {
		snap := product.Snapshot{ProductID: productID, Timestamp: int64(ts)}.
			WithField(product.FieldSellPrice, float64(ts)+0.5).
			WithField(product.FieldBuyVolume, ts*1000)
		if err := app.Stores.Snapshots.Insert(ctx, snap); err != nil {
			t.Fatalf("insert snapshot: %v", err)
		}
	}
}

func createKey(t *testing.T, app *bootstrap.App, usage int64) string {
	t.Helper()
	rec := key.Generate(key.DefaultPrefix, time.Now()).WithUsage(usage, usage)
	if err := app.Stores.Keys.Create(context.Background(), rec); err != nil {
		t.Fatalf("create key: %v", err)
	}
	return rec.Key
}

func getStatus(t *testing.T, url string) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode
}

func startServer(t *testing.T, app *bootstrap.App) string {
	t.Helper()

	// Find free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := listener.Addr().String()

	go func() {
		if err := app.HTTPServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			t.Logf("server stopped: %v", err)
		}
	}()

	waitForServer(t, addr)
	return addr
}

func waitForServer(t *testing.T, addr string) {
	t.Helper()
	client := &http.Client{Timeout: 100 * time.Millisecond}

	for i := 0; i < 50; i++ {
		resp, err := client.Get("http://" + addr + "/health")
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(20 * time.Millisecond)
	}

	t.Fatalf("server at %s did not become ready", addr)
}
