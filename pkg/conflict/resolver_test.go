package conflict

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/cuemby/cspublish/pkg/cloud"
	"github.com/cuemby/cspublish/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCloud struct {
	service *types.CloudService
	deleted []string
	listErr error
}

func (f *fakeCloud) GetCloudService(ctx context.Context, name string) (*types.CloudService, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.service, nil
}

func (f *fakeCloud) DeleteDeployment(ctx context.Context, service, name string) (string, error) {
	f.deleted = append(f.deleted, name)
	return "req-delete", nil
}

func conflictErr() error {
	return &cloud.ServiceError{StatusCode: http.StatusConflict, Code: "ConflictError"}
}

// creates replays results in order
func creates(results ...error) (CreateFunc, *int) {
	calls := 0
	return func(ctx context.Context) (string, error) {
		err := results[calls]
		calls++
		if err != nil {
			return "", err
		}
		return "req-42", nil
	}, &calls
}

func svc1() *types.CloudService {
	return &types.CloudService{
		Name: "svc1",
		Deployments: []types.Deployment{
			{Name: "svc1-prod", Slot: types.SlotProduction},
			{Name: "svc1-staging-old", Slot: types.SlotStaging},
		},
	}
}

func TestConflictDeletesAndRetriesOnce(t *testing.T) {
	fake := &fakeCloud{service: svc1()}
	var retried []string
	r := &Resolver{Lister: fake, Deleter: fake, OnRetry: func(name string) { retried = append(retried, name) }}
	create, calls := creates(conflictErr(), nil)

	id, err := r.CreateWithConflictHandling(context.Background(), "svc1", types.SlotStaging, create, true)
	require.NoError(t, err)
	assert.Equal(t, "req-42", id)
	assert.Equal(t, 2, *calls)
	assert.Equal(t, []string{"svc1-staging-old"}, fake.deleted)
	assert.Equal(t, []string{"svc1-staging-old"}, retried)
}

func TestSecondConflictPropagatesUnmodified(t *testing.T) {
	fake := &fakeCloud{service: svc1()}
	r := &Resolver{Lister: fake, Deleter: fake}
	second := conflictErr()
	create, calls := creates(conflictErr(), second)

	_, err := r.CreateWithConflictHandling(context.Background(), "svc1", types.SlotStaging, create, true)
	assert.Same(t, second, err)
	assert.Equal(t, 2, *calls)
	assert.Len(t, fake.deleted, 1)
}

func TestConflictWithoutOverwrite(t *testing.T) {
	fake := &fakeCloud{service: svc1()}
	r := &Resolver{Lister: fake, Deleter: fake}
	create, calls := creates(conflictErr())

	_, err := r.CreateWithConflictHandling(context.Background(), "svc1", types.SlotProduction, create, false)

	var cerr *types.DeploymentConflictError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, types.SlotProduction, cerr.Slot)
	assert.Equal(t, 1, *calls)
	assert.Empty(t, fake.deleted)
}

func TestOtherErrorsAreNotRetried(t *testing.T) {
	fake := &fakeCloud{service: svc1()}
	r := &Resolver{Lister: fake, Deleter: fake}

	for _, failure := range []error{
		&cloud.ServiceError{StatusCode: http.StatusBadRequest},
		&types.ConnectivityError{Err: errors.New("dial")},
	} {
		create, calls := creates(failure)
		_, err := r.CreateWithConflictHandling(context.Background(), "svc1", types.SlotStaging, create, true)
		assert.Same(t, failure, err)
		assert.Equal(t, 1, *calls)
	}
	assert.Empty(t, fake.deleted)
}

func TestConflictWithEmptySlotStillRetriesOnce(t *testing.T) {
	fake := &fakeCloud{service: &types.CloudService{Name: "svc1"}}
	r := &Resolver{Lister: fake, Deleter: fake}
	create, calls := creates(conflictErr(), nil)

	_, err := r.CreateWithConflictHandling(context.Background(), "svc1", types.SlotStaging, create, true)
	require.NoError(t, err)
	assert.Equal(t, 2, *calls)
	assert.Empty(t, fake.deleted)
}

func TestConflictListFailure(t *testing.T) {
	boom := errors.New("boom")
	fake := &fakeCloud{listErr: boom}
	r := &Resolver{Lister: fake, Deleter: fake}
	create, calls := creates(conflictErr())

	_, err := r.CreateWithConflictHandling(context.Background(), "svc1", types.SlotStaging, create, true)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, *calls)
}
