package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/cuemby/cspublish/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndGetRun(t *testing.T) {
	store := newTestStore(t)

	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	run := &types.RunRecord{
		ID:           "run-1",
		CloudService: "svc1",
		Slot:         types.SlotStaging,
		Phase:        "uploading",
		Status:       types.RunStatusRunning,
		StartedAt:    started,
	}
	require.NoError(t, store.SaveRun(run))

	run.Phase = "succeeded"
	run.Status = types.RunStatusSucceeded
	run.URL = "http://svc1.cloudapp.net/"
	require.NoError(t, store.SaveRun(run))

	got, err := store.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, types.RunStatusSucceeded, got.Status)
	assert.Equal(t, "http://svc1.cloudapp.net/", got.URL)
	assert.True(t, started.Equal(got.StartedAt))
}

func TestGetRunNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRun("missing")
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestSaveRunRequiresID(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.SaveRun(&types.RunRecord{}))
}

func TestListRunsNewestFirst(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.SaveRun(&types.RunRecord{
			ID:        id,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, err := store.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "a", runs[2].ID)

	runs, err = store.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[1].ID)
}

func TestStorageAccountKeysNotPersisted(t *testing.T) {
	store := newTestStore(t)

	account := &types.StorageAccount{
		Name:           "Store1",
		SubscriptionID: "sub-1",
		BlobEndpoint:   "https://store1.blob.core.windows.net/",
		PrimaryKey:     "secret",
		SecondaryKey:   "secret2",
	}
	require.NoError(t, store.SaveStorageAccount(account))
	assert.Equal(t, "secret", account.PrimaryKey, "caller's value must not be modified")

	accounts, err := store.ListStorageAccounts("sub-1")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Store1", accounts[0].Name)
	assert.Empty(t, accounts[0].PrimaryKey)
	assert.Empty(t, accounts[0].SecondaryKey)
}

func TestStorageAccountsScopedBySubscription(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveStorageAccount(&types.StorageAccount{Name: "a", SubscriptionID: "sub-1"}))
	require.NoError(t, store.SaveStorageAccount(&types.StorageAccount{Name: "b", SubscriptionID: "sub-1"}))
	require.NoError(t, store.SaveStorageAccount(&types.StorageAccount{Name: "c", SubscriptionID: "sub-2"}))

	accounts, err := store.ListStorageAccounts("sub-1")
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	require.NoError(t, store.DeleteStorageAccount("sub-1", "A"))
	accounts, err = store.ListStorageAccounts("sub-1")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "b", accounts[0].Name)
}
