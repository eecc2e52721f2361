package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/artpar/bazaargate/domain/product"
	"github.com/artpar/bazaargate/ports"
)

type storedSnapshot struct {
	seq  uint64
	snap product.Snapshot
}

// SnapshotStore is an in-memory implementation of ports.SnapshotStore.
// Snapshots are kept per product, sorted newest first.
type SnapshotStore struct {
	mu       sync.RWMutex
	products map[string][]storedSnapshot
	seq      uint64
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		products: make(map[string][]storedSnapshot),
	}
}

// Insert stores a snapshot.
func (s *SnapshotStore) Insert(ctx context.Context, snap product.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	list := append(s.products[snap.ProductID], storedSnapshot{seq: s.seq, snap: snap})
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].snap.Timestamp != list[j].snap.Timestamp {
			return list[i].snap.Timestamp > list[j].snap.Timestamp
		}
		return list[i].seq > list[j].seq
	})
	s.products[snap.ProductID] = list
	return nil
}

// Latest returns the newest snapshot for a product.
func (s *SnapshotStore) Latest(ctx context.Context, productID string) (product.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.products[productID]
	if len(list) == 0 {
		return product.Snapshot{}, ports.ErrNotFound
	}
	return list[0].snap, nil
}

// History returns up to limit snapshots for a product, newest first.
func (s *SnapshotStore) History(ctx context.Context, productID string, limit int) ([]product.Snapshot, error) {
	if limit <= 0 {
		return []product.Snapshot{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.products[productID]
	if limit > len(list) {
		limit = len(list)
	}
	out := make([]product.Snapshot, limit)
	for i := 0; i < limit; i++ {
		out[i] = list[i].snap
	}
	return out, nil
}

// Ensure interface compliance.
var _ ports.SnapshotStore = (*SnapshotStore)(nil)
