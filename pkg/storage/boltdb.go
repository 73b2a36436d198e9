package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cuemby/cspublish/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketRuns            = []byte("runs")
	bucketStorageAccounts = []byte("storage_accounts")
)

// DBFileName is the database file created inside the state directory
const DBFileName = "cspublish.db"

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, DBFileName)

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketRuns, bucketStorageAccounts} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Run operations
func (s *BoltStore) SaveRun(run *types.RunRecord) error {
	if run.ID == "" {
		return fmt.Errorf("run record has no id")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRuns)
		data, err := json.Marshal(run)
		if err != nil {
			return err
		}
		return b.Put([]byte(run.ID), data)
	})
}

func (s *BoltStore) GetRun(id string) (*types.RunRecord, error) {
	var run types.RunRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRuns)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("run %s: %w", id, types.ErrNotFound)
		}
		return json.Unmarshal(data, &run)
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns runs newest first. A limit of zero or less returns all runs.
func (s *BoltStore) ListRuns(limit int) ([]*types.RunRecord, error) {
	var runs []*types.RunRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRuns)
		return b.ForEach(func(k, v []byte) error {
			var run types.RunRecord
			if err := json.Unmarshal(v, &run); err != nil {
				return err
			}
			runs = append(runs, &run)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Storage account operations
func (s *BoltStore) SaveStorageAccount(account *types.StorageAccount) error {
	record := *account
	record.PrimaryKey = ""
	record.SecondaryKey = ""

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketStorageAccounts)
		data, err := json.Marshal(&record)
		if err != nil {
			return err
		}
		return b.Put(accountKey(record.SubscriptionID, record.Name), data)
	})
}

func (s *BoltStore) ListStorageAccounts(subscriptionID string) ([]*types.StorageAccount, error) {
	var accounts []*types.StorageAccount
	prefix := []byte(subscriptionID + "/")

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketStorageAccounts).Cursor()
		for k, v := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, v = c.Next() {
			var account types.StorageAccount
			if err := json.Unmarshal(v, &account); err != nil {
				return err
			}
			accounts = append(accounts, &account)
		}
		return nil
	})
	return accounts, err
}

func (s *BoltStore) DeleteStorageAccount(subscriptionID, name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketStorageAccounts)
		return b.Delete(accountKey(subscriptionID, name))
	})
}

// Storage account names are case-insensitive on the cloud side
func accountKey(subscriptionID, name string) []byte {
	return []byte(subscriptionID + "/" + strings.ToLower(name))
}
