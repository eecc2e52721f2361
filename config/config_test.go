package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/artpar/bazaargate/config"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: 5s

database:
  driver: "sqlite"
  dsn: ":memory:"

quota:
  reset_interval: 2m

endpoints:
  snapshot:
    require_key: true
  history:
    require_key: false

query:
  max_history_limit: 250

logging:
  level: "debug"
  format: "console"

metrics:
  enabled: true
`

	cfg := writeAndLoad(t, content)

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Host = %s, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.Server.ReadTimeout)
	}
	if cfg.Addr() != "127.0.0.1:9090" {
		t.Errorf("Addr() = %s, want 127.0.0.1:9090", cfg.Addr())
	}
	if cfg.Database.DSN != ":memory:" {
		t.Errorf("Database.DSN = %s, want :memory:", cfg.Database.DSN)
	}
	if cfg.Quota.ResetInterval != 2*time.Minute {
		t.Errorf("Quota.ResetInterval = %v, want 2m", cfg.Quota.ResetInterval)
	}
	if cfg.Query.MaxHistoryLimit != 250 {
		t.Errorf("Query.MaxHistoryLimit = %d, want 250", cfg.Query.MaxHistoryLimit)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %s, want console", cfg.Logging.Format)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true")
	}

	p := cfg.Policies()
	if !p.Snapshot.RequireKey {
		t.Error("Snapshot.RequireKey = false, want true")
	}
	if !p.Field.RequireKey {
		t.Error("Field.RequireKey = false, want true (default)")
	}
	if p.History.RequireKey {
		t.Error("History.RequireKey = true, want false")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := writeAndLoad(t, "")

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("default Host = %s, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.WriteTimeout != 60*time.Second {
		t.Errorf("default WriteTimeout = %v, want 60s", cfg.Server.WriteTimeout)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("default Database.Driver = %s, want sqlite", cfg.Database.Driver)
	}
	if cfg.Database.DSN != "bazaargate.db" {
		t.Errorf("default Database.DSN = %s, want bazaargate.db", cfg.Database.DSN)
	}
	if cfg.Quota.ResetInterval != 10*time.Minute {
		t.Errorf("default Quota.ResetInterval = %v, want 10m", cfg.Quota.ResetInterval)
	}
	if cfg.Query.MaxHistoryLimit != 0 {
		t.Errorf("default Query.MaxHistoryLimit = %d, want 0", cfg.Query.MaxHistoryLimit)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default Logging.Level = %s, want info", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("default Logging.Format = %s, want json", cfg.Logging.Format)
	}

	p := cfg.Policies()
	if p.Snapshot.RequireKey || !p.Field.RequireKey || !p.History.RequireKey {
		t.Errorf("default policies = %+v, want open snapshot and gated fields", p)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_BAZAAR_DB", "/var/lib/bazaar.db")

	cfg := writeAndLoad(t, `
database:
  dsn: "${TEST_BAZAAR_DB}"
`)

	if cfg.Database.DSN != "/var/lib/bazaar.db" {
		t.Errorf("Database.DSN = %s, want /var/lib/bazaar.db", cfg.Database.DSN)
	}
}

func TestLoad_Postgres(t *testing.T) {
	cfg := writeAndLoad(t, `
database:
  driver: "postgres"
  postgres:
    host: "db.internal"
    port: 5432
    user: "bazaar"
    password: "p@ss"
    name: "bazaar"
    max_conns: 8
`)

	if cfg.Database.DSN != "" {
		t.Errorf("Database.DSN = %s, want empty for postgres", cfg.Database.DSN)
	}

	pg := cfg.PostgresConfig()
	if pg.Host != "db.internal" || pg.Port != 5432 || pg.MaxConns != 8 {
		t.Errorf("PostgresConfig() = %+v", pg)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown driver",
			content: "database:\n  driver: mysql\n",
			wantErr: "database.driver",
		},
		{
			name:    "postgres without connection",
			content: "database:\n  driver: postgres\n",
			wantErr: "database.dsn or database.postgres.host",
		},
		{
			name:    "negative history limit",
			content: "query:\n  max_history_limit: -5\n",
			wantErr: "query.max_history_limit",
		},
		{
			name:    "sub-second reset interval",
			content: "quota:\n  reset_interval: 10ms\n",
			wantErr: "quota.reset_interval",
		},
		{
			name:    "bad port",
			content: "server:\n  port: 70000\n",
			wantErr: "server.port",
		},
		{
			name:    "bad log level",
			content: "logging:\n  level: verbose\n",
			wantErr: "logging.level",
		},
		{
			name:    "bad log format",
			content: "logging:\n  format: xml\n",
			wantErr: "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := writeAndLoadErr(t, tt.content)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BAZAARGATE_SERVER_PORT", "9999")
	t.Setenv("BAZAARGATE_DATABASE_DSN", "/tmp/env-test.db")
	t.Setenv("BAZAARGATE_QUOTA_RESET_INTERVAL", "30s")
	t.Setenv("BAZAARGATE_SNAPSHOT_REQUIRE_KEY", "yes")
	t.Setenv("BAZAARGATE_QUERY_MAX_HISTORY_LIMIT", "40")
	t.Setenv("BAZAARGATE_LOG_LEVEL", "debug")
	t.Setenv("BAZAARGATE_METRICS_ENABLED", "true")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv error: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Database.DSN != "/tmp/env-test.db" {
		t.Errorf("Database.DSN = %s, want /tmp/env-test.db", cfg.Database.DSN)
	}
	if cfg.Quota.ResetInterval != 30*time.Second {
		t.Errorf("Quota.ResetInterval = %v, want 30s", cfg.Quota.ResetInterval)
	}
	if !cfg.Policies().Snapshot.RequireKey {
		t.Error("Snapshot.RequireKey = false, want true")
	}
	if cfg.Query.MaxHistoryLimit != 40 {
		t.Errorf("Query.MaxHistoryLimit = %d, want 40", cfg.Query.MaxHistoryLimit)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("BAZAARGATE_SERVER_PORT", "7777")
	t.Setenv("BAZAARGATE_LOG_LEVEL", "error")

	cfg := writeAndLoad(t, `
server:
  port: 8080
logging:
  level: "info"
`)

	if cfg.Server.Port != 7777 {
		t.Errorf("Server.Port = %d, want 7777 (env override)", cfg.Server.Port)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level = %s, want error (env override)", cfg.Logging.Level)
	}
}

func TestEnvOverrides_InvalidValuesIgnored(t *testing.T) {
	t.Setenv("BAZAARGATE_SERVER_PORT", "not-a-number")
	t.Setenv("BAZAARGATE_QUOTA_RESET_INTERVAL", "soon")
	t.Setenv("BAZAARGATE_QUERY_MAX_HISTORY_LIMIT", "many")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Quota.ResetInterval != 10*time.Minute {
		t.Errorf("Quota.ResetInterval = %v, want default 10m", cfg.Quota.ResetInterval)
	}
	if cfg.Query.MaxHistoryLimit != 0 {
		t.Errorf("Query.MaxHistoryLimit = %d, want 0", cfg.Query.MaxHistoryLimit)
	}
}

func TestLoadWithFallback(t *testing.T) {
	t.Run("file exists", func(t *testing.T) {
		path := writeConfig(t, "server:\n  port: 6060\n")
		cfg, err := config.LoadWithFallback(path)
		if err != nil {
			t.Fatalf("LoadWithFallback error: %v", err)
		}
		if cfg.Server.Port != 6060 {
			t.Errorf("Server.Port = %d, want 6060", cfg.Server.Port)
		}
	})

	t.Run("missing file uses env", func(t *testing.T) {
		t.Setenv("BAZAARGATE_SERVER_PORT", "5050")
		cfg, err := config.LoadWithFallback(filepath.Join(t.TempDir(), "absent.yaml"))
		if err != nil {
			t.Fatalf("LoadWithFallback error: %v", err)
		}
		if cfg.Server.Port != 5050 {
			t.Errorf("Server.Port = %d, want 5050", cfg.Server.Port)
		}
	})

	t.Run("empty path", func(t *testing.T) {
		if _, err := config.LoadWithFallback(""); err != nil {
			t.Fatalf("LoadWithFallback error: %v", err)
		}
	})
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := writeAndLoadErr(t, "server: [unclosed")
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := config.Load("/nonexistent/bazaargate.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

// Helpers

func writeAndLoad(t *testing.T, content string) *config.Config {
	t.Helper()
	cfg, err := writeAndLoadErr(t, content)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return cfg
}

func writeAndLoadErr(t *testing.T, content string) (*config.Config, error) {
	t.Helper()
	return config.Load(writeConfig(t, content))
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
