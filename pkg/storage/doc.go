/*
Package storage provides BoltDB-backed persistence for cspublish local state.

Two kinds of data survive between CLI invocations: the history of publish runs
and the storage accounts last seen for each subscription. Both are stored as
JSON values in their own bucket of a single bbolt file.

# Architecture

	┌──────────────────── BOLTDB STORAGE ─────────────────────┐
	│                                                          │
	│  ┌────────────────────────────────────────────┐         │
	│  │            BoltStore                        │         │
	│  │  - File: <stateDir>/cspublish.db            │         │
	│  │  - Transactions: ACID with fsync            │         │
	│  └──────────────────┬─────────────────────────┘         │
	│                     │                                    │
	│  ┌──────────────────▼─────────────────────────┐         │
	│  │              Bucket Structure                │         │
	│  │  runs              (run uuid)               │         │
	│  │  storage_accounts  (<subscription>/<name>)  │         │
	│  └────────────────────────────────────────────┘         │
	└──────────────────────────────────────────────────────────┘

# Runs

A RunRecord is written when a run starts and rewritten on every phase
transition, so an interrupted run still shows the phase it reached. ListRuns
sorts by start time, newest first.

# Storage Accounts

Storage account keys are rotated on the cloud side and grant full access to the
account, so SaveStorageAccount strips PrimaryKey and SecondaryKey before writing.
Keys are fetched again from the management API whenever an upload needs them.

Account names are matched case-insensitively; the key is the subscription id
followed by the lower-cased name, which lets ListStorageAccounts use a prefix scan.

# Usage

	store, err := storage.NewBoltStore(stateDir)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(10)

# Concurrency

bbolt allows one writer and many readers per file and holds an exclusive file
lock while open, so two cspublish processes cannot share a state directory at
the same time. The second one blocks in NewBoltStore.
*/
package storage
