package deploy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cuemby/cspublish/pkg/cloud"
	"github.com/cuemby/cspublish/pkg/conflict"
	"github.com/cuemby/cspublish/pkg/events"
	"github.com/cuemby/cspublish/pkg/log"
	"github.com/cuemby/cspublish/pkg/metrics"
	"github.com/cuemby/cspublish/pkg/poller"
	"github.com/cuemby/cspublish/pkg/prereq"
	"github.com/cuemby/cspublish/pkg/progress"
	"github.com/cuemby/cspublish/pkg/project"
	"github.com/cuemby/cspublish/pkg/registry"
	"github.com/cuemby/cspublish/pkg/storage"
	"github.com/cuemby/cspublish/pkg/types"
	"github.com/cuemby/cspublish/pkg/upload"
)

const (
	// deploymentNameLayout is appended to service and slot to name a deployment
	deploymentNameLayout = "20060102150405"

	cleanupTimeout = 2 * time.Minute
)

// BlobStoreFactory opens the blob store of a storage account
type BlobStoreFactory func(account types.StorageAccount) (cloud.BlobStore, error)

// Waiter waits for asynchronous operations and role instances
type Waiter interface {
	PollUntilTerminal(ctx context.Context, query poller.QueryFunc) (*types.AsyncOperation, error)
	WaitForRoleInstancesReady(ctx context.Context, get poller.DeploymentFunc, ind progress.Indicator) (*types.Deployment, error)
}

// Config holds the collaborators of a Deployer. Cloud and Blobs are required.
type Config struct {
	Cloud    cloud.Management
	Blobs    BlobStoreFactory
	Waiter   Waiter
	Events   *events.Broker
	Store    storage.Store
	Registry *registry.StorageRegistry
	Progress progress.Factory
	Now      func() time.Time

	// Sample is the bundled certificate roles may reference; defaults to
	// prereq.DefaultSample
	Sample prereq.SampleCertificate
}

// Deployer publishes packages to cloud services
type Deployer struct {
	cloud    cloud.Management
	blobs    BlobStoreFactory
	waiter   Waiter
	broker   *events.Broker
	store    storage.Store
	registry *registry.StorageRegistry
	progress progress.Factory
	now      func() time.Time
	sample   prereq.SampleCertificate
}

// NewDeployer creates a new deployer
func NewDeployer(cfg Config) *Deployer {
	d := &Deployer{
		cloud:    cfg.Cloud,
		blobs:    cfg.Blobs,
		waiter:   cfg.Waiter,
		broker:   cfg.Events,
		store:    cfg.Store,
		registry: cfg.Registry,
		progress: cfg.Progress,
		now:      cfg.Now,
		sample:   cfg.Sample,
	}
	if d.waiter == nil {
		d.waiter = poller.New()
	}
	if d.progress == nil {
		d.progress = progress.Nop{}
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.sample.Thumbprint == "" {
		d.sample = prereq.DefaultSample
	}
	return d
}

// Result describes a successful publish
type Result struct {
	RunID          string
	CloudService   string
	Slot           types.DeploymentSlot
	DeploymentName string
	RequestID      string
	Status         string
	URL            string
}

// DeploymentName is <service><Slot><yyyyMMddHHmmss>
func DeploymentName(service string, slot types.DeploymentSlot, at time.Time) string {
	return service + string(slot) + at.Format(deploymentNameLayout)
}

// SiteURL appends the web application name, when there is one, to the
// deployment URL as a path segment
func SiteURL(deploymentURL, appName string) string {
	if appName == "" {
		return deploymentURL
	}
	if !strings.HasSuffix(deploymentURL, "/") {
		deploymentURL += "/"
	}
	return deploymentURL + appName + "/"
}

// Run drives one publish through
// validating → ensuring-infrastructure → checking-prerequisites → uploading →
// creating-deployment → awaiting-operation → awaiting-role-health.
// Any failure stops the run and is returned as a types.PhaseError naming the
// phase it happened in. Infrastructure created before a failure is kept.
func (d *Deployer) Run(ctx context.Context, req types.DeploymentRequest) (*Result, error) {
	service, slot := req.CloudServiceName(), req.Slot()
	r := newRun(types.RunActionDeploy, service, slot, d.broker, d.store, d.now)
	r.record.StorageAccount = req.StorageAccountName()
	result := &Result{RunID: r.id, CloudService: service, Slot: slot}

	// Validating
	r.enter(PhaseValidating)
	inputs, err := d.validate(ctx, req)
	if err != nil {
		return nil, r.fail(err)
	}
	r.logger.Info().
		Strs("roles", inputs.roles.RoleNames()).
		Str("application", inputs.appName).
		Msg("Project validated")

	// Ensuring infrastructure
	r.enter(PhaseEnsuringInfrastructure)
	account, err := d.ensureInfrastructure(ctx, r, req)
	if err != nil {
		return nil, r.fail(err)
	}

	// Checking prerequisites
	r.enter(PhaseCheckingPrerequisites)
	checker := &prereq.Checker{Certificates: d.cloud, Operations: d.cloud, Poller: d.waiter, Sample: d.sample}
	uploaded, err := checker.EnsureCertificatePrerequisite(ctx, service, inputs.roles, req.SamplePfxPath())
	if err != nil {
		return nil, r.fail(err)
	}
	if uploaded {
		r.publish(events.EventCertificateUploaded, "sample certificate uploaded", map[string]string{
			"thumbprint": d.sample.Thumbprint,
		})
	}

	// Uploading
	r.enter(PhaseUploading)
	blobs, err := d.blobs(*account)
	if err != nil {
		return nil, r.fail(err)
	}
	uploader := &upload.Uploader{Blobs: blobs, Progress: d.progress}
	staged, err := uploader.Upload(ctx, *account, service, slot, req.PackagePath())
	if err != nil {
		return nil, r.fail(err)
	}
	r.publish(events.EventPackageUploaded, staged.URL, map[string]string{"blob": staged.Blob})

	// Creating deployment
	r.enter(PhaseCreatingDeployment)
	params := types.CreateDeploymentParams{
		Name:            DeploymentName(service, slot, d.now()),
		PackageURL:      staged.URL,
		Label:           service,
		Configuration:   inputs.configuration,
		StartDeployment: true,
	}
	result.DeploymentName = params.Name
	r.record.DeploymentName = params.Name

	resolver := &conflict.Resolver{
		Lister:  d.cloud,
		Deleter: d.cloud,
		OnRetry: func(name string) {
			r.publish(events.EventConflictRetry, "slot occupied, retrying after delete", map[string]string{"deleted": name})
		},
	}
	requestID, err := resolver.CreateWithConflictHandling(ctx, service, slot, func(ctx context.Context) (string, error) {
		return d.cloud.CreateDeployment(ctx, service, slot, params)
	}, req.Overwrite())
	d.cleanup(ctx, r, staged)
	if err != nil {
		return nil, r.fail(err)
	}
	result.RequestID = requestID

	// Awaiting operation
	r.enter(PhaseAwaitingOperation)
	if err := d.awaitOperation(ctx, r, requestID); err != nil {
		return nil, r.fail(err)
	}

	// Awaiting role health
	r.enter(PhaseAwaitingRoleHealth)
	deployment, err := d.waiter.WaitForRoleInstancesReady(ctx, func(ctx context.Context) (*types.Deployment, error) {
		return d.cloud.GetDeployment(ctx, service, slot)
	}, d.progress.NewIndicator())
	if err != nil {
		return nil, r.fail(err)
	}

	result.Status = deployment.Status
	result.URL = SiteURL(deployment.URL, inputs.appName)
	r.succeed(result.URL)
	return result, nil
}

type validated struct {
	appName       string
	roles         *project.ServiceConfiguration
	configuration []byte
}

// validate checks everything local first, so a bad project makes no network
// call, then pings the management API
func (d *Deployer) validate(ctx context.Context, req types.DeploymentRequest) (*validated, error) {
	if req.ProjectDir() == "" || req.CloudServiceName() == "" {
		return nil, &types.ValidationError{Field: "request", Reason: "is not a validated deployment request"}
	}

	descriptor, err := project.LoadPackageDescriptor(req.ProjectDir())
	if err != nil {
		return nil, &types.ValidationError{Field: "packageDescriptor", Reason: err.Error()}
	}
	if descriptor.PackageType() == types.PackageTypeLocal {
		return nil, types.ErrInvalidPackageType
	}

	configuration, err := os.ReadFile(req.ServiceConfigPath())
	if err != nil {
		return nil, &types.ValidationError{Field: "serviceConfigPath", Reason: err.Error()}
	}

	// Roles and their certificates come from the project-level configuration;
	// fall back to the packaged copy when the project has none
	roles, err := project.LoadServiceConfiguration(req.ProjectServiceConfigPath())
	if errors.Is(err, os.ErrNotExist) {
		roles, err = project.ParseServiceConfiguration(configuration)
	}
	if err != nil {
		return nil, &types.ValidationError{Field: "serviceConfiguration", Reason: err.Error()}
	}

	if _, err := d.cloud.ListLocations(ctx); err != nil {
		var aerr *types.AuthenticationError
		var cerr *types.ConnectivityError
		if errors.As(err, &aerr) || errors.As(err, &cerr) {
			return nil, err
		}
		return nil, &types.ConnectivityError{Err: err}
	}

	return &validated{
		appName:       descriptor.FirstApplicationName(),
		roles:         roles,
		configuration: configuration,
	}, nil
}

// ensureInfrastructure creates the cloud service and storage account when
// missing and returns the account with its keys
func (d *Deployer) ensureInfrastructure(ctx context.Context, r *run, req types.DeploymentRequest) (*types.StorageAccount, error) {
	service, accountName := req.CloudServiceName(), req.StorageAccountName()

	created, err := d.cloud.CreateCloudServiceIfNotExists(ctx, service, req.Region())
	if err != nil {
		return nil, fmt.Errorf("failed to ensure cloud service %s: %w", service, err)
	}
	r.logger.Info().Bool("created", created).Msg("Cloud service ready")

	requestID, err := d.cloud.CreateStorageAccountIfNotExists(ctx, accountName, req.Region())
	if err != nil {
		return nil, fmt.Errorf("failed to ensure storage account %s: %w", accountName, err)
	}
	if requestID != "" {
		r.logger.Info().Str("request_id", requestID).Msg("Waiting for storage account creation")
		if err := d.awaitOperation(ctx, r, requestID); err != nil {
			return nil, fmt.Errorf("storage account %s was not created: %w", accountName, err)
		}
	}

	account, err := d.cloud.GetStorageAccount(ctx, accountName)
	if err != nil {
		return nil, fmt.Errorf("failed to get storage account %s: %w", accountName, err)
	}
	if d.registry != nil {
		if err := d.registry.Put(*account); err != nil {
			r.warn(err.Error())
		}
	}
	return account, nil
}

// awaitOperation polls requestID and turns a Failed status without an error
// payload into an OperationFailedError too
func (d *Deployer) awaitOperation(ctx context.Context, r *run, requestID string) error {
	logger := log.WithRequestID(requestID).With().Str("run_id", r.id).Logger()
	logger.Debug().Str("phase", string(r.phase)).Msg("Waiting for operation")

	op, err := d.waiter.PollUntilTerminal(ctx, func(ctx context.Context) (*types.AsyncOperation, error) {
		op, err := d.cloud.GetOperationStatus(ctx, requestID)
		if err == nil {
			logger.Debug().Str("status", string(op.Status)).Msg("Operation status")
			r.publish(events.EventOperationPolled, string(op.Status), map[string]string{"request_id": requestID})
		}
		return op, err
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Operation did not succeed")
		return err
	}
	if op.Status != types.OperationSucceeded {
		return &types.OperationFailedError{
			RequestID: requestID,
			Message:   fmt.Sprintf("operation ended with status %s (HTTP %d)", op.Status, op.HTTPStatusCode),
		}
	}
	return nil
}

// cleanup deletes the staged package. The deployment already references it,
// so a failure is only reported.
func (d *Deployer) cleanup(ctx context.Context, r *run, staged *upload.Staged) {
	cctx, cancel := detached(ctx, cleanupTimeout)
	defer cancel()

	if err := staged.Cleanup(cctx); err != nil {
		metrics.BlobCleanupFailuresTotal.Inc()
		r.warn(fmt.Sprintf("failed to delete staged package %s/%s: %v", staged.Container, staged.Blob, err))
		return
	}
	r.logger.Debug().Str("blob", staged.Blob).Msg("Staged package deleted")
}

// Undeploy deletes the deployment occupying slot and waits for the delete to
// finish. An empty slot is reported with types.ErrNotFound.
func (d *Deployer) Undeploy(ctx context.Context, service string, slot types.DeploymentSlot) (*Result, error) {
	r := newRun(types.RunActionUndeploy, service, slot, d.broker, d.store, d.now)
	result := &Result{RunID: r.id, CloudService: service, Slot: slot}

	r.enter(PhaseDeletingDeployment)
	svc, err := d.cloud.GetCloudService(ctx, service)
	if err != nil {
		return nil, r.fail(fmt.Errorf("failed to get cloud service %s: %w", service, err))
	}
	existing, ok := svc.DeploymentFor(slot)
	if !ok {
		return nil, r.fail(fmt.Errorf("no deployment in the %s slot of %s: %w", slot, service, types.ErrNotFound))
	}
	result.DeploymentName = existing.Name
	r.record.DeploymentName = existing.Name

	requestID, err := d.cloud.DeleteDeployment(ctx, service, existing.Name)
	if err != nil {
		return nil, r.fail(err)
	}
	result.RequestID = requestID

	r.enter(PhaseAwaitingOperation)
	if requestID != "" {
		if err := d.awaitOperation(ctx, r, requestID); err != nil {
			return nil, r.fail(err)
		}
	}

	result.Status = "Deleted"
	r.succeed(existing.URL)
	return result, nil
}
