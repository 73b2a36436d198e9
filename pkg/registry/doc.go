// Package registry holds the storage accounts known for one subscription.
//
// A StorageRegistry is owned by the CLI session that creates it and is handed
// to the orchestrator and the storage listing by reference. When backed by a
// storage.Store the accounts survive between runs, without their access keys.
package registry
