package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/artpar/bazaargate/domain/product"
	"github.com/artpar/bazaargate/ports"
)

// historyPrealloc bounds the initial result capacity; limit may be as large as 2^31-1.
const historyPrealloc = 64

// SnapshotStore implements ports.SnapshotStore using SQLite.
type SnapshotStore struct {
	db *DB
}

// NewSnapshotStore creates a new SQLite snapshot store.
func NewSnapshotStore(db *DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Latest returns the newest snapshot for a product.
func (s *SnapshotStore) Latest(ctx context.Context, productID string) (product.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT product_id, timestamp, quick_status
		FROM bazaar_snapshots
		WHERE product_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`, productID)

	var snap product.Snapshot
	var quickStatus string
	err := row.Scan(&snap.ProductID, &snap.Timestamp, &quickStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return product.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return product.Snapshot{}, fmt.Errorf("query latest snapshot: %w", err)
	}

	if err := decodeQuickStatus(quickStatus, &snap); err != nil {
		return product.Snapshot{}, err
	}
	return snap, nil
}

// History returns up to limit snapshots for a product, newest first.
func (s *SnapshotStore) History(ctx context.Context, productID string, limit int) ([]product.Snapshot, error) {
	if limit <= 0 {
		return []product.Snapshot{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, timestamp, quick_status
		FROM bazaar_snapshots
		WHERE product_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshot history: %w", err)
	}
	defer rows.Close()

	snaps := make([]product.Snapshot, 0, min(limit, historyPrealloc))
	for rows.Next() {
		var snap product.Snapshot
		var quickStatus string
		if err := rows.Scan(&snap.ProductID, &snap.Timestamp, &quickStatus); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		if err := decodeQuickStatus(quickStatus, &snap); err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snaps, nil
}

// Insert stores a snapshot. Ingestion is owned by an external pipeline;
// this exists for fixtures and local seeding.
func (s *SnapshotStore) Insert(ctx context.Context, snap product.Snapshot) error {
	qs := snap.QuickStatus
	if qs == nil {
		qs = product.QuickStatus{}
	}
	data, err := json.Marshal(qs)
	if err != nil {
		return fmt.Errorf("encode quick status: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bazaar_snapshots (product_id, timestamp, quick_status)
		VALUES (?, ?, ?)
	`, snap.ProductID, snap.Timestamp, string(data))
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func decodeQuickStatus(raw string, snap *product.Snapshot) error {
	if raw == "" {
		snap.QuickStatus = product.QuickStatus{}
		return nil
	}
	if err := json.Unmarshal([]byte(raw), &snap.QuickStatus); err != nil {
		return fmt.Errorf("decode quick status for %s@%d: %w", snap.ProductID, snap.Timestamp, err)
	}
	return nil
}

// Ensure interface compliance.
var _ ports.SnapshotStore = (*SnapshotStore)(nil)
