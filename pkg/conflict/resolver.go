package conflict

import (
	"context"
	"fmt"

	"github.com/cuemby/cspublish/pkg/cloud"
	"github.com/cuemby/cspublish/pkg/log"
	"github.com/cuemby/cspublish/pkg/metrics"
	"github.com/cuemby/cspublish/pkg/types"
)

// ServiceLister resolves the deployments of a cloud service
type ServiceLister interface {
	GetCloudService(ctx context.Context, name string) (*types.CloudService, error)
}

// DeploymentDeleter deletes a deployment by name
type DeploymentDeleter interface {
	DeleteDeployment(ctx context.Context, service, deploymentName string) (string, error)
}

// CreateFunc issues a create-deployment call and returns its request id
type CreateFunc func(ctx context.Context) (string, error)

// Resolver heals the one failure publishing recovers from on its own: a slot
// already occupied by another deployment
type Resolver struct {
	Lister  ServiceLister
	Deleter DeploymentDeleter

	// OnRetry, if set, is called with the deleted deployment name (empty when
	// the slot turned out to be empty) before create is retried
	OnRetry func(deploymentName string)
}

// CreateWithConflictHandling calls create. On a 409 with allowOverwrite set,
// the deployment occupying slot is deleted without waiting for the delete to
// finish and create is retried exactly once; whatever the retry returns is
// final. On a 409 with allowOverwrite unset it fails with
// DeploymentConflictError. Other errors are returned unchanged.
func (r *Resolver) CreateWithConflictHandling(ctx context.Context, service string, slot types.DeploymentSlot, create CreateFunc, allowOverwrite bool) (string, error) {
	requestID, err := create(ctx)
	if err == nil || !cloud.IsConflict(err) {
		return requestID, err
	}

	logger := log.WithComponent("conflict").With().
		Str("cloud_service", service).
		Str("slot", string(slot)).
		Logger()

	if !allowOverwrite {
		logger.Warn().Msg("Slot is occupied and overwrite is disabled")
		return "", &types.DeploymentConflictError{Slot: slot}
	}

	svc, lerr := r.Lister.GetCloudService(ctx, service)
	if lerr != nil {
		return "", fmt.Errorf("failed to list deployments of %s: %w", service, lerr)
	}

	name := ""
	if existing, ok := svc.DeploymentFor(slot); ok {
		name = existing.Name
		logger.Info().Str("deployment", name).Msg("Deleting existing deployment")
		if _, derr := r.Deleter.DeleteDeployment(ctx, service, name); derr != nil {
			return "", fmt.Errorf("failed to delete deployment %s: %w", name, derr)
		}
	} else {
		logger.Warn().Msg("Create reported a conflict but no deployment occupies the slot")
	}

	metrics.ConflictRetriesTotal.Inc()
	if r.OnRetry != nil {
		r.OnRetry(name)
	}

	return create(ctx)
}
