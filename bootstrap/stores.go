package bootstrap

import (
	"context"
	"fmt"

	"github.com/artpar/bazaargate/adapters/clock"
	"github.com/artpar/bazaargate/adapters/postgres"
	"github.com/artpar/bazaargate/adapters/sqlite"
	"github.com/artpar/bazaargate/config"
	"github.com/artpar/bazaargate/domain/product"
	"github.com/artpar/bazaargate/ports"
	"github.com/rs/zerolog"
)

// SnapshotWriter stores snapshots. The query path never writes; `snapshots import` does.
type SnapshotWriter interface {
	ports.SnapshotStore
	Insert(ctx context.Context, snap product.Snapshot) error
}

// Stores bundles the store handles selected by database.driver.
type Stores struct {
	Driver    string
	Snapshots SnapshotWriter
	Keys      ports.KeyLedger
	DB        ports.Pinger

	close func() error
}

// Close releases the underlying database connection.
func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStores connects to the configured database, runs migrations and
// constructs the snapshot store and key ledger on top of it.
func OpenStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Stores, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		return openSQLite(ctx, cfg, logger)
	case "postgres":
		return openPostgres(ctx, cfg, logger)
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
}

func openSQLite(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Stores, error) {
	db, err := sqlite.Open(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info().Str("driver", "sqlite").Str("dsn", cfg.Database.DSN).Msg("database initialized")

	return &Stores{
		Driver:    "sqlite",
		Snapshots: sqlite.NewSnapshotStore(db),
		Keys:      sqlite.NewKeyStore(db).WithClock(clock.Real{}),
		DB:        db,
		close:     db.Close,
	}, nil
}

func openPostgres(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Stores, error) {
	db, err := postgres.Connect(ctx, cfg.PostgresConfig())
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info().
		Str("driver", "postgres").
		Str("host", cfg.Database.Postgres.Host).
		Str("name", cfg.Database.Postgres.Name).
		Msg("database initialized")

	return &Stores{
		Driver:    "postgres",
		Snapshots: postgres.NewSnapshotStore(db),
		Keys:      postgres.NewKeyStore(db).WithClock(clock.Real{}),
		DB:        db,
		close:     db.Close,
	}, nil
}
