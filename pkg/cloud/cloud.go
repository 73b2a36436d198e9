package cloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/cuemby/cspublish/pkg/types"
)

// Management is the subset of the classic service management API that
// publishing needs. Mutating calls that complete asynchronously return the
// request id to poll with GetOperationStatus.
type Management interface {
	CertificateManager
	DeploymentManager

	// ListLocations doubles as the connectivity ping
	ListLocations(ctx context.Context) ([]types.Location, error)

	GetCloudService(ctx context.Context, name string) (*types.CloudService, error)
	// CreateCloudServiceIfNotExists reports whether the service was created
	CreateCloudServiceIfNotExists(ctx context.Context, name, location string) (bool, error)

	ListStorageAccountNames(ctx context.Context) ([]string, error)
	// GetStorageAccount returns properties and access keys
	GetStorageAccount(ctx context.Context, name string) (*types.StorageAccount, error)
	// CreateStorageAccountIfNotExists returns the request id of the create
	// operation, or "" when the account already exists
	CreateStorageAccountIfNotExists(ctx context.Context, name, location string) (string, error)

	GetOperationStatus(ctx context.Context, requestID string) (*types.AsyncOperation, error)
}

// CertificateManager manages service certificates of a cloud service
type CertificateManager interface {
	ListCertificates(ctx context.Context, service string) ([]types.Certificate, error)
	// UploadCertificate uploads a PFX and returns the request id
	UploadCertificate(ctx context.Context, service string, pfx []byte, password string) (string, error)
}

// DeploymentManager creates, inspects and deletes deployments
type DeploymentManager interface {
	// CreateDeployment returns the request id of the create operation
	CreateDeployment(ctx context.Context, service string, slot types.DeploymentSlot, params types.CreateDeploymentParams) (string, error)
	// DeleteDeployment returns the request id of the delete operation
	DeleteDeployment(ctx context.Context, service, deploymentName string) (string, error)
	GetDeployment(ctx context.Context, service string, slot types.DeploymentSlot) (*types.Deployment, error)
}

// BlobStore is the blob container API used to stage packages
type BlobStore interface {
	CreateContainerIfNotExists(ctx context.Context, container string) error
	PutBlob(ctx context.Context, container, blob string, body io.Reader) error
	DeleteBlob(ctx context.Context, container, blob string) error
}

// ServiceError is a non-success response of the management API
type ServiceError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *ServiceError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("management API returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("management API returned %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

// Is makes a 404 match types.ErrNotFound
func (e *ServiceError) Is(target error) bool {
	return target == types.ErrNotFound && e.StatusCode == http.StatusNotFound
}

// IsConflict reports whether err is a 409 from the management API
func IsConflict(err error) bool {
	var serr *ServiceError
	return errors.As(err, &serr) && serr.StatusCode == http.StatusConflict
}
