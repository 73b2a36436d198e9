package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cuemby/cspublish/pkg/log"
	"github.com/cuemby/cspublish/pkg/storage"
	"github.com/cuemby/cspublish/pkg/types"
)

// StorageRegistry tracks the storage accounts of one subscription for the
// lifetime of a CLI session. It is constructed once and passed to the
// components that need it.
type StorageRegistry struct {
	mu             sync.RWMutex
	subscriptionID string
	accounts       map[string]types.StorageAccount
	store          storage.Store
}

// New creates an empty registry. store may be nil, in which case nothing is persisted.
func New(subscriptionID string, store storage.Store) *StorageRegistry {
	return &StorageRegistry{
		subscriptionID: subscriptionID,
		accounts:       make(map[string]types.StorageAccount),
		store:          store,
	}
}

// SubscriptionID returns the subscription this registry belongs to
func (r *StorageRegistry) SubscriptionID() string {
	return r.subscriptionID
}

// Load fills the registry from the persisted accounts of the subscription.
// Loaded accounts carry no keys.
func (r *StorageRegistry) Load() error {
	if r.store == nil {
		return nil
	}

	accounts, err := r.store.ListStorageAccounts(r.subscriptionID)
	if err != nil {
		return fmt.Errorf("failed to load storage accounts: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range accounts {
		r.accounts[strings.ToLower(a.Name)] = *a
	}
	return nil
}

// Find looks an account up by name, case-insensitively
func (r *StorageRegistry) Find(name string) (types.StorageAccount, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[strings.ToLower(name)]
	return a, ok
}

// Put adds or replaces a single account
func (r *StorageRegistry) Put(account types.StorageAccount) error {
	account.SubscriptionID = r.subscriptionID

	r.mu.Lock()
	r.accounts[strings.ToLower(account.Name)] = account
	r.mu.Unlock()

	if r.store == nil {
		return nil
	}
	if err := r.store.SaveStorageAccount(&account); err != nil {
		return fmt.Errorf("failed to persist storage account %s: %w", account.Name, err)
	}
	return nil
}

// Replace swaps the whole content for a fresh listing. Persisted accounts
// missing from the listing are removed.
func (r *StorageRegistry) Replace(accounts []types.StorageAccount) error {
	fresh := make(map[string]types.StorageAccount, len(accounts))
	for _, a := range accounts {
		a.SubscriptionID = r.subscriptionID
		fresh[strings.ToLower(a.Name)] = a
	}

	r.mu.Lock()
	stale := make([]string, 0)
	for key, a := range r.accounts {
		if _, ok := fresh[key]; !ok {
			stale = append(stale, a.Name)
		}
	}
	r.accounts = fresh
	r.mu.Unlock()

	if r.store == nil {
		return nil
	}

	logger := log.WithComponent("registry")
	for _, name := range stale {
		if err := r.store.DeleteStorageAccount(r.subscriptionID, name); err != nil {
			return fmt.Errorf("failed to forget storage account %s: %w", name, err)
		}
		logger.Debug().Str("storage_account", name).Msg("Storage account no longer listed")
	}
	for _, a := range fresh {
		if err := r.store.SaveStorageAccount(&a); err != nil {
			return fmt.Errorf("failed to persist storage account %s: %w", a.Name, err)
		}
	}
	return nil
}

// List returns all accounts sorted by name
func (r *StorageRegistry) List() []types.StorageAccount {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.StorageAccount, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}
