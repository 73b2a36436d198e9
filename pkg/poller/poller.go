package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/cspublish/pkg/log"
	"github.com/cuemby/cspublish/pkg/metrics"
	"github.com/cuemby/cspublish/pkg/progress"
	"github.com/cuemby/cspublish/pkg/types"
)

const (
	// DefaultInterval is the pause between operation status queries
	DefaultInterval = 5 * time.Second

	// DefaultRoleInterval is the pause between deployment snapshots while
	// waiting for role instances
	DefaultRoleInterval = 20 * time.Second
)

// QueryFunc fetches the current state of an asynchronous operation
type QueryFunc func(ctx context.Context) (*types.AsyncOperation, error)

// DeploymentFunc fetches the current deployment snapshot
type DeploymentFunc func(ctx context.Context) (*types.Deployment, error)

// Poller waits for cloud-side work to finish. The zero value uses the default
// intervals and no timeout.
type Poller struct {
	Interval     time.Duration
	RoleInterval time.Duration
	// Timeout bounds each wait; zero means only ctx bounds it
	Timeout time.Duration
}

// New creates a poller with the default intervals
func New() *Poller {
	return &Poller{
		Interval:     DefaultInterval,
		RoleInterval: DefaultRoleInterval,
	}
}

func (p *Poller) interval() time.Duration {
	if p.Interval > 0 {
		return p.Interval
	}
	return DefaultInterval
}

func (p *Poller) roleInterval() time.Duration {
	if p.RoleInterval > 0 {
		return p.RoleInterval
	}
	return DefaultRoleInterval
}

func (p *Poller) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.Timeout > 0 {
		return context.WithTimeout(ctx, p.Timeout)
	}
	return context.WithCancel(ctx)
}

func cancelled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", types.ErrCancelled, ctx.Err())
}

// PollUntilTerminal queries immediately, then every Interval, until the
// operation leaves InProgress. A result carrying an error payload fails at
// once with OperationFailedError. Query errors are returned unchanged and
// never retried.
func (p *Poller) PollUntilTerminal(ctx context.Context, query QueryFunc) (*types.AsyncOperation, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	logger := log.WithComponent("poller")

	ticker := time.NewTicker(p.interval())
	defer ticker.Stop()

	for {
		metrics.PollAttemptsTotal.WithLabelValues(metrics.PollKindOperation).Inc()

		op, err := query(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, cancelled(ctx)
			}
			return nil, err
		}

		logger.Debug().
			Str("request_id", op.RequestID).
			Str("status", string(op.Status)).
			Msg("Operation status")

		if op.HasError() {
			return op, &types.OperationFailedError{
				RequestID: op.RequestID,
				Code:      op.ErrorCode,
				Message:   op.ErrorMessage,
			}
		}
		if op.Terminal() {
			return op, nil
		}

		select {
		case <-ctx.Done():
			return nil, cancelled(ctx)
		case <-ticker.C:
		}
	}
}

// WaitForRoleInstancesReady waits RoleInterval, fetches a snapshot, and
// repeats until some instance reports a settled status. Instances are checked
// in list order and the first settled one decides the outcome: ReadyRole
// succeeds, anything else fails with DeploymentUnhealthyError. Other instances
// are not waited for. A snapshot without role instances fails at once with
// a DeploymentUnhealthyError carrying an empty status.
//
// ind is started before the first wait and stopped exactly once on every
// return path.
func (p *Poller) WaitForRoleInstancesReady(ctx context.Context, get DeploymentFunc, ind progress.Indicator) (*types.Deployment, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	stop := progress.Scoped(ind, "Waiting for role instances to become ready")
	defer stop()

	logger := log.WithComponent("poller")

	ticker := time.NewTicker(p.roleInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, cancelled(ctx)
		case <-ticker.C:
		}

		metrics.PollAttemptsTotal.WithLabelValues(metrics.PollKindRole).Inc()

		deployment, err := get(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, cancelled(ctx)
			}
			return nil, err
		}

		if len(deployment.RoleInstances) == 0 {
			stop()
			return deployment, &types.DeploymentUnhealthyError{}
		}

		for _, ri := range deployment.RoleInstances {
			logger.Debug().
				Str("instance", ri.InstanceName).
				Str("status", string(ri.InstanceStatus)).
				Msg("Role instance status")

			if !ri.InstanceStatus.Settled() {
				continue
			}

			stop()
			if ri.InstanceStatus != types.InstanceReadyRole {
				return deployment, &types.DeploymentUnhealthyError{Status: ri.InstanceStatus}
			}
			return deployment, nil
		}

		ind.Update(fmt.Sprintf("Waiting for role instances to become ready, deployment %s", deployment.Status))
	}
}
