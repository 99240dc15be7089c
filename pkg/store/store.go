// Package store persists contract snapshots. The registry and resolver stay
// storage-free; a ContractStore is the host-side collaborator that saves and
// reloads their state between runs.
package store

import (
	"context"
	"errors"

	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/registry"
)

// ErrNotFound is returned when a contract has never been saved.
var ErrNotFound = errors.New("store: contract not found")

// ContractStore persists and reloads contract snapshots.
type ContractStore interface {
	// SaveSnapshot replaces the stored state of the snapshot's contract.
	SaveSnapshot(ctx context.Context, snap *registry.Snapshot) error

	// LoadSnapshot returns the stored snapshot for a contract, with its
	// lookup indexes rebuilt. Returns ErrNotFound for unknown contracts.
	LoadSnapshot(ctx context.Context, contractID string) (*registry.Snapshot, error)

	// ListContracts returns the stored contract IDs in sorted order.
	ListContracts(ctx context.Context) ([]string, error)

	// Close releases the underlying resources.
	Close() error
}
