package cloud

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/cspublish/pkg/log"
	"github.com/cuemby/cspublish/pkg/types"
	"golang.org/x/sync/errgroup"
)

const (
	// ListingConcurrency bounds the detail fetches in flight
	ListingConcurrency = 8

	// ListingCallTimeout bounds each detail fetch
	ListingCallTimeout = 60 * time.Second
)

// StorageAccountLister is what ListStorageAccounts needs from the management API
type StorageAccountLister interface {
	ListStorageAccountNames(ctx context.Context) ([]string, error)
	GetStorageAccount(ctx context.Context, name string) (*types.StorageAccount, error)
}

// ListStorageAccounts fetches the details of every storage account of the
// subscription concurrently. The first failure or timeout cancels the rest and
// fails the whole listing; partial results are never returned.
func ListStorageAccounts(ctx context.Context, m StorageAccountLister, subscriptionID string, callTimeout time.Duration) ([]types.StorageAccount, error) {
	if callTimeout <= 0 {
		callTimeout = ListingCallTimeout
	}
	logger := log.WithComponent("cloud")

	names, err := m.ListStorageAccountNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list storage accounts: %w", err)
	}

	accounts := make([]types.StorageAccount, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ListingConcurrency)

	for i, name := range names {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, callTimeout)
			defer cancel()

			account, err := m.GetStorageAccount(callCtx, name)
			if err != nil {
				if callCtx.Err() == context.DeadlineExceeded && gctx.Err() == nil {
					return fmt.Errorf("timed out after %s fetching storage account %s: %w", callTimeout, name, err)
				}
				return fmt.Errorf("failed to fetch storage account %s: %w", name, err)
			}

			account.SubscriptionID = subscriptionID
			account.UpdatedAt = time.Now()
			accounts[i] = *account
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Debug().Int("count", len(accounts)).Msg("Storage accounts listed")
	return accounts, nil
}
