package storage

import (
	"github.com/cuemby/cspublish/pkg/types"
)

// Store defines the interface for local cspublish state.
// It is implemented by BoltDB-backed storage.
type Store interface {
	// Publish runs
	SaveRun(run *types.RunRecord) error
	GetRun(id string) (*types.RunRecord, error)
	ListRuns(limit int) ([]*types.RunRecord, error)

	// Storage accounts (access keys are never persisted)
	SaveStorageAccount(account *types.StorageAccount) error
	ListStorageAccounts(subscriptionID string) ([]*types.StorageAccount, error)
	DeleteStorageAccount(subscriptionID, name string) error

	// Lifecycle
	Close() error
}
