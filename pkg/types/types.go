package types

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DeploymentSlot is one of the two fixed deployment targets of a cloud service
type DeploymentSlot string

const (
	SlotStaging    DeploymentSlot = "Staging"
	SlotProduction DeploymentSlot = "Production"
)

// ParseSlot parses a slot name case-insensitively
func ParseSlot(s string) (DeploymentSlot, error) {
	switch {
	case strings.EqualFold(s, string(SlotStaging)):
		return SlotStaging, nil
	case strings.EqualFold(s, string(SlotProduction)):
		return SlotProduction, nil
	default:
		return "", &ValidationError{Field: "deploymentSlot", Reason: fmt.Sprintf("invalid deployment slot name %q", s)}
	}
}

// PackageType tells whether a project is packaged for the emulator or the cloud
type PackageType string

const (
	PackageTypeLocal PackageType = "local"
	PackageTypeCloud PackageType = "cloud"
)

// Project layout constants
const (
	PackageDescriptorFile = "package.xml"
	DeployFolder          = "deploy"
	PackageFileName       = "WindowsAzurePackage.cspkg"
	ServiceConfigFileName = "ServiceConfiguration.cscfg"
	CertFolder            = "cert"
	SamplePfxFileName     = "SampleRemoteAccessPrivate.pfx"
)

// DeploymentRequest holds the validated inputs of one publish run.
// Fields are unexported so a request cannot change once orchestration begins.
type DeploymentRequest struct {
	projectDir          string
	publishSettingsPath string
	subscriptionID      string
	cloudServiceName    string
	region              string
	storageAccountName  string
	slot                DeploymentSlot
	overwrite           bool
	packagePath         string
	serviceConfigPath   string
}

// RequestOptions are the raw, untrimmed inputs used to build a DeploymentRequest
type RequestOptions struct {
	ProjectDir          string
	PublishSettingsPath string
	SubscriptionID      string
	CloudServiceName    string
	Region              string
	StorageAccountName  string
	DeploymentSlot      string // default: Staging
	Overwrite           string // default: "true"
}

// NewDeploymentRequest validates opts and returns an immutable request.
// No network call is made here.
func NewDeploymentRequest(opts RequestOptions) (DeploymentRequest, error) {
	req := DeploymentRequest{
		projectDir:          strings.TrimSpace(opts.ProjectDir),
		publishSettingsPath: strings.TrimSpace(opts.PublishSettingsPath),
		subscriptionID:      strings.TrimSpace(opts.SubscriptionID),
		cloudServiceName:    strings.TrimSpace(opts.CloudServiceName),
		region:              strings.TrimSpace(opts.Region),
		storageAccountName:  strings.TrimSpace(opts.StorageAccountName),
	}

	if req.projectDir == "" {
		return DeploymentRequest{}, &ValidationError{Field: "projectDir", Reason: "is empty"}
	}
	if req.publishSettingsPath == "" {
		return DeploymentRequest{}, &ValidationError{Field: "publishSettingsPath", Reason: "is empty"}
	}
	if req.cloudServiceName == "" {
		return DeploymentRequest{}, &ValidationError{Field: "cloudServiceName", Reason: "is empty"}
	}
	if req.storageAccountName == "" {
		return DeploymentRequest{}, &ValidationError{Field: "storageAccountName", Reason: "is empty"}
	}

	slotName := strings.TrimSpace(opts.DeploymentSlot)
	if slotName == "" {
		slotName = string(SlotStaging)
	}
	slot, err := ParseSlot(slotName)
	if err != nil {
		return DeploymentRequest{}, err
	}
	req.slot = slot

	overwrite := strings.TrimSpace(opts.Overwrite)
	req.overwrite = overwrite == "" || strings.EqualFold(overwrite, "true")

	if err := requireDir(req.projectDir, "projectDir"); err != nil {
		return DeploymentRequest{}, err
	}
	if err := requireFile(req.publishSettingsPath, "publishSettingsPath"); err != nil {
		return DeploymentRequest{}, err
	}

	req.packagePath = filepath.Join(req.projectDir, DeployFolder, PackageFileName)
	req.serviceConfigPath = filepath.Join(req.projectDir, DeployFolder, ServiceConfigFileName)
	if err := requireFile(req.packagePath, "packagePath"); err != nil {
		return DeploymentRequest{}, err
	}
	if err := requireFile(req.serviceConfigPath, "serviceConfigPath"); err != nil {
		return DeploymentRequest{}, err
	}

	return req, nil
}

func requireFile(path, field string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("%s is not valid or points to a file that does not exist", path)}
	}
	if info.IsDir() {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("%s is a directory", path)}
	}
	return nil
}

func requireDir(path, field string) error {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("%s is not an existing directory", path)}
	}
	return nil
}

func (r DeploymentRequest) ProjectDir() string          { return r.projectDir }
func (r DeploymentRequest) PublishSettingsPath() string { return r.publishSettingsPath }
func (r DeploymentRequest) SubscriptionID() string      { return r.subscriptionID }
func (r DeploymentRequest) CloudServiceName() string    { return r.cloudServiceName }
func (r DeploymentRequest) Region() string              { return r.region }
func (r DeploymentRequest) StorageAccountName() string  { return r.storageAccountName }
func (r DeploymentRequest) Slot() DeploymentSlot        { return r.slot }
func (r DeploymentRequest) Overwrite() bool             { return r.overwrite }
func (r DeploymentRequest) PackagePath() string         { return r.packagePath }
func (r DeploymentRequest) ServiceConfigPath() string   { return r.serviceConfigPath }

// ProjectServiceConfigPath is the project-level configuration that lists roles
// and their certificates. The copy under deploy/ is the one sent to the cloud.
func (r DeploymentRequest) ProjectServiceConfigPath() string {
	return filepath.Join(r.projectDir, ServiceConfigFileName)
}

// SamplePfxPath is where the project template keeps the sample certificate
func (r DeploymentRequest) SamplePfxPath() string {
	return filepath.Join(r.projectDir, CertFolder, SamplePfxFileName)
}

// WithSubscriptionID returns a copy of the request bound to a subscription.
// Used when the subscription is resolved from the publish settings file.
func (r DeploymentRequest) WithSubscriptionID(id string) DeploymentRequest {
	r.subscriptionID = strings.TrimSpace(id)
	return r
}

// OperationStatus is the state of an asynchronous cloud operation
type OperationStatus string

const (
	OperationInProgress OperationStatus = "InProgress"
	OperationSucceeded  OperationStatus = "Succeeded"
	OperationFailed     OperationStatus = "Failed"
)

// AsyncOperation is a snapshot of a long-running cloud-side action
type AsyncOperation struct {
	RequestID      string
	Status         OperationStatus
	HTTPStatusCode int
	ErrorCode      string
	ErrorMessage   string
}

// Terminal reports whether the operation has finished
func (o *AsyncOperation) Terminal() bool {
	return o.Status != OperationInProgress
}

// HasError reports whether the operation carries an error payload
func (o *AsyncOperation) HasError() bool {
	return o.ErrorCode != "" || o.ErrorMessage != ""
}

// InstanceStatus is the health reported for a single role instance
type InstanceStatus string

const (
	InstanceUnknown            InstanceStatus = "Unknown"
	InstanceCreatingVM         InstanceStatus = "CreatingVM"
	InstanceStartingVM         InstanceStatus = "StartingVM"
	InstanceCreatingRole       InstanceStatus = "CreatingRole"
	InstanceStartingRole       InstanceStatus = "StartingRole"
	InstanceInitializing       InstanceStatus = "Initializing"
	InstanceBusy               InstanceStatus = "Busy"
	InstanceBusyRole           InstanceStatus = "BusyRole"
	InstanceReadyRole          InstanceStatus = "ReadyRole"
	InstanceStoppingRole       InstanceStatus = "StoppingRole"
	InstanceStoppedVM          InstanceStatus = "StoppedVM"
	InstanceRestartingRole     InstanceStatus = "RestartingRole"
	InstanceCyclingRole        InstanceStatus = "CyclingRole"
	InstanceFailedStartingRole InstanceStatus = "FailedStartingRole"
	InstanceFailedStartingVM   InstanceStatus = "FailedStartingVM"
	InstanceUnresponsiveRole   InstanceStatus = "UnresponsiveRole"
)

// Settled reports whether polling can stop on this status.
// Only ReadyRole is a success; the other settled statuses are failures.
func (s InstanceStatus) Settled() bool {
	switch s {
	case InstanceReadyRole, InstanceCyclingRole, InstanceFailedStartingVM, InstanceUnresponsiveRole:
		return true
	}
	return false
}

// RoleInstance is one running unit of a role
type RoleInstance struct {
	RoleName       string
	InstanceName   string
	InstanceStatus InstanceStatus
}

// Deployment is a snapshot of a cloud service deployment
type Deployment struct {
	Name          string
	Slot          DeploymentSlot
	Status        string
	URL           string
	Label         string
	RoleInstances []RoleInstance
}

// CloudService is a hosted service together with its current deployments
type CloudService struct {
	Name        string
	URL         string
	Location    string
	Deployments []Deployment
}

// DeploymentFor returns the deployment occupying slot, if any
func (c *CloudService) DeploymentFor(slot DeploymentSlot) (Deployment, bool) {
	for _, d := range c.Deployments {
		if strings.EqualFold(string(d.Slot), string(slot)) {
			return d, true
		}
	}
	return Deployment{}, false
}

// Certificate is a service certificate already uploaded to a cloud service
type Certificate struct {
	Thumbprint          string
	ThumbprintAlgorithm string
	URL                 string
}

// StorageAccount is a storage service with the details needed to stage blobs
type StorageAccount struct {
	Name           string
	Location       string
	Status         string
	BlobEndpoint   string
	PrimaryKey     string
	SecondaryKey   string
	SubscriptionID string
	UpdatedAt      time.Time
}

// Location is a region that can host cloud services and storage
type Location struct {
	Name        string
	DisplayName string
}

// CreateDeploymentParams is the payload of a create-deployment call
type CreateDeploymentParams struct {
	Name            string
	PackageURL      string
	Label           string
	Configuration   []byte
	StartDeployment bool
}

// RunStatus is the outcome of a publish run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run actions
const (
	RunActionDeploy   = "deploy"
	RunActionUndeploy = "undeploy"
)

// RunRecord is the persisted history entry of one publish run
type RunRecord struct {
	ID             string
	Action         string
	CloudService   string
	Slot           DeploymentSlot
	StorageAccount string
	DeploymentName string
	Phase          string
	Status         RunStatus
	URL            string
	Error          string
	StartedAt      time.Time
	FinishedAt     time.Time
}
