package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cuemby/cspublish/pkg/metrics"
	"github.com/cuemby/cspublish/pkg/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPoller() *Poller {
	return &Poller{Interval: time.Millisecond, RoleInterval: time.Millisecond}
}

// sequence returns a query that replays ops and counts calls
func sequence(ops ...*types.AsyncOperation) (QueryFunc, *int) {
	calls := 0
	return func(ctx context.Context) (*types.AsyncOperation, error) {
		i := calls
		if i >= len(ops) {
			i = len(ops) - 1
		}
		calls++
		return ops[i], nil
	}, &calls
}

func TestPollUntilTerminalSucceeds(t *testing.T) {
	query, calls := sequence(
		&types.AsyncOperation{RequestID: "req-42", Status: types.OperationInProgress},
		&types.AsyncOperation{RequestID: "req-42", Status: types.OperationInProgress},
		&types.AsyncOperation{RequestID: "req-42", Status: types.OperationSucceeded},
	)

	before := testutil.ToFloat64(metrics.PollAttemptsTotal.WithLabelValues(metrics.PollKindOperation))

	op, err := fastPoller().PollUntilTerminal(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, types.OperationSucceeded, op.Status)
	assert.Equal(t, 3, *calls)

	after := testutil.ToFloat64(metrics.PollAttemptsTotal.WithLabelValues(metrics.PollKindOperation))
	assert.Equal(t, float64(3), after-before)
}

func TestPollUntilTerminalFirstQueryIsImmediate(t *testing.T) {
	query, calls := sequence(&types.AsyncOperation{Status: types.OperationSucceeded})

	p := &Poller{Interval: time.Hour}
	_, err := p.PollUntilTerminal(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, 1, *calls)
}

func TestPollUntilTerminalFailsOnErrorPayload(t *testing.T) {
	query, calls := sequence(
		&types.AsyncOperation{RequestID: "r", Status: types.OperationInProgress},
		&types.AsyncOperation{RequestID: "r", Status: types.OperationInProgress, ErrorCode: "BadRequest", ErrorMessage: "bad package"},
		&types.AsyncOperation{RequestID: "r", Status: types.OperationSucceeded},
	)

	_, err := fastPoller().PollUntilTerminal(context.Background(), query)

	var ferr *types.OperationFailedError
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, "bad package", ferr.Message)
	assert.Equal(t, 2, *calls, "must stop on the call carrying the error")
}

func TestPollUntilTerminalFailedStatusWithoutPayload(t *testing.T) {
	query, _ := sequence(&types.AsyncOperation{Status: types.OperationFailed})

	op, err := fastPoller().PollUntilTerminal(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, types.OperationFailed, op.Status)
}

func TestPollUntilTerminalQueryErrorUnchanged(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	query := func(ctx context.Context) (*types.AsyncOperation, error) {
		calls++
		return nil, boom
	}

	_, err := fastPoller().PollUntilTerminal(context.Background(), query)
	assert.Equal(t, boom, err)
	assert.Equal(t, 1, calls)
}

func TestPollUntilTerminalCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	query := func(ctx context.Context) (*types.AsyncOperation, error) {
		return &types.AsyncOperation{Status: types.OperationInProgress}, nil
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	p := &Poller{Interval: time.Hour}
	start := time.Now()
	_, err := p.PollUntilTerminal(ctx, query)

	assert.ErrorIs(t, err, types.ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestPollUntilTerminalTimeout(t *testing.T) {
	query := func(ctx context.Context) (*types.AsyncOperation, error) {
		return &types.AsyncOperation{Status: types.OperationInProgress}, nil
	}

	p := &Poller{Interval: time.Millisecond, Timeout: 30 * time.Millisecond}
	_, err := p.PollUntilTerminal(context.Background(), query)

	assert.ErrorIs(t, err, types.ErrCancelled)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type recordingIndicator struct {
	starts  int
	stops   int
	updates int
}

func (r *recordingIndicator) Start(string)  { r.starts++ }
func (r *recordingIndicator) Update(string) { r.updates++ }
func (r *recordingIndicator) Stop()         { r.stops++ }

func snapshots(deps ...*types.Deployment) (DeploymentFunc, *int) {
	calls := 0
	return func(ctx context.Context) (*types.Deployment, error) {
		i := calls
		if i >= len(deps) {
			i = len(deps) - 1
		}
		calls++
		return deps[i], nil
	}, &calls
}

func instances(statuses ...types.InstanceStatus) *types.Deployment {
	d := &types.Deployment{Name: "d", Status: "Running"}
	for i, s := range statuses {
		d.RoleInstances = append(d.RoleInstances, types.RoleInstance{
			RoleName:       "WorkerRole1",
			InstanceName:   "WorkerRole1_IN_" + string(rune('0'+i)),
			InstanceStatus: s,
		})
	}
	return d
}

func TestWaitForRoleInstancesReady(t *testing.T) {
	get, calls := snapshots(
		instances(types.InstanceInitializing, types.InstanceBusy),
		instances(types.InstanceBusy, types.InstanceBusy),
		instances(types.InstanceReadyRole, types.InstanceBusy),
	)
	ind := &recordingIndicator{}

	d, err := fastPoller().WaitForRoleInstancesReady(context.Background(), get, ind)
	require.NoError(t, err)
	assert.Equal(t, "d", d.Name)
	assert.Equal(t, 3, *calls)
	assert.Equal(t, 1, ind.starts)
	assert.Equal(t, 1, ind.stops)
}

func TestWaitForRoleInstancesUnhealthy(t *testing.T) {
	for _, status := range []types.InstanceStatus{
		types.InstanceCyclingRole,
		types.InstanceFailedStartingVM,
		types.InstanceUnresponsiveRole,
	} {
		t.Run(string(status), func(t *testing.T) {
			get, _ := snapshots(
				instances(types.InstanceBusy),
				instances(types.InstanceBusy, status),
			)
			ind := &recordingIndicator{}

			_, err := fastPoller().WaitForRoleInstancesReady(context.Background(), get, ind)

			var uerr *types.DeploymentUnhealthyError
			require.True(t, errors.As(err, &uerr))
			assert.Equal(t, status, uerr.Status)
			assert.Equal(t, 1, ind.stops)
		})
	}
}

func TestWaitForRoleInstancesNoInstances(t *testing.T) {
	get, calls := snapshots(instances(), instances(types.InstanceReadyRole))
	ind := &recordingIndicator{}

	d, err := fastPoller().WaitForRoleInstancesReady(context.Background(), get, ind)

	var uerr *types.DeploymentUnhealthyError
	require.True(t, errors.As(err, &uerr))
	assert.Empty(t, uerr.Status)
	assert.Contains(t, err.Error(), "no role instances reported")
	assert.Equal(t, "d", d.Name)
	assert.Equal(t, 1, *calls)
	assert.Equal(t, 1, ind.stops)
}

func TestWaitForRoleInstancesFirstSettledDecides(t *testing.T) {
	// The ready instance comes first, so the cycling one is never waited for
	get, _ := snapshots(instances(types.InstanceReadyRole, types.InstanceCyclingRole))

	_, err := fastPoller().WaitForRoleInstancesReady(context.Background(), get, &recordingIndicator{})
	assert.NoError(t, err)
}

func TestWaitForRoleInstancesSleepsFirst(t *testing.T) {
	called := false
	get := func(ctx context.Context) (*types.Deployment, error) {
		called = true
		return instances(types.InstanceReadyRole), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	p := &Poller{RoleInterval: time.Hour}
	ind := &recordingIndicator{}
	_, err := p.WaitForRoleInstancesReady(ctx, get, ind)

	assert.ErrorIs(t, err, types.ErrCancelled)
	assert.False(t, called)
	assert.Equal(t, 1, ind.stops)
}

func TestWaitForRoleInstancesQueryError(t *testing.T) {
	boom := errors.New("boom")
	get := func(ctx context.Context) (*types.Deployment, error) { return nil, boom }
	ind := &recordingIndicator{}

	_, err := fastPoller().WaitForRoleInstancesReady(context.Background(), get, ind)
	assert.Equal(t, boom, err)
	assert.Equal(t, 1, ind.stops)
}
