package store

import (
	"context"
	"sort"
	"sync"

	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/registry"
)

// MemoryContractStore implements ContractStore in process memory. Snapshots
// are immutable values, so it stores them as-is; useful for tests and
// single-run tooling.
type MemoryContractStore struct {
	mu        sync.RWMutex
	snapshots map[string]*registry.Snapshot
}

// NewMemoryContractStore creates an empty in-memory store.
func NewMemoryContractStore() *MemoryContractStore {
	return &MemoryContractStore{snapshots: make(map[string]*registry.Snapshot)}
}

// SaveSnapshot stores the snapshot, replacing any previous state of the same
// contract.
func (s *MemoryContractStore) SaveSnapshot(_ context.Context, snap *registry.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.ContractID] = snap
	return nil
}

// LoadSnapshot returns the stored snapshot for a contract.
func (s *MemoryContractStore) LoadSnapshot(_ context.Context, contractID string) (*registry.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[contractID]
	if !ok {
		return nil, ErrNotFound
	}
	return snap, nil
}

// ListContracts returns the stored contract IDs in sorted order.
func (s *MemoryContractStore) ListContracts(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.snapshots))
	for id := range s.snapshots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryContractStore) Close() error {
	return nil
}
