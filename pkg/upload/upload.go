package upload

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cuemby/cspublish/pkg/cloud"
	"github.com/cuemby/cspublish/pkg/log"
	"github.com/cuemby/cspublish/pkg/progress"
	"github.com/cuemby/cspublish/pkg/types"
)

// ContainerName is the fixed container packages are staged in
const ContainerName = "antdeploy"

// BlobName is the staged package name for a service and slot. Repeated
// deployments to the same slot overwrite the same blob.
func BlobName(service string, slot types.DeploymentSlot) string {
	return fmt.Sprintf("%s_%s.cspkg", service, slot)
}

// BlobURL joins a blob endpoint, a container and a blob name
func BlobURL(endpoint, container, blob string) string {
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	return endpoint + strings.ToLower(container) + "/" + blob
}

// Staged is a package waiting in blob storage for a deployment to pick it up
type Staged struct {
	URL       string
	Container string
	Blob      string

	blobs cloud.BlobStore
}

// Cleanup deletes exactly the staged blob. The caller decides whether a
// failure matters; once a deployment is created it does not.
func (s *Staged) Cleanup(ctx context.Context) error {
	return s.blobs.DeleteBlob(ctx, s.Container, s.Blob)
}

// Uploader stages packages in a storage account
type Uploader struct {
	Blobs    cloud.BlobStore
	Progress progress.Factory
}

// Upload ensures the staging container exists and uploads localPath into it
func (u *Uploader) Upload(ctx context.Context, account types.StorageAccount, service string, slot types.DeploymentSlot, localPath string) (*Staged, error) {
	if account.BlobEndpoint == "" {
		return nil, fmt.Errorf("storage account %s has no blob endpoint", account.Name)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open package: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat package: %w", err)
	}

	if err := u.Blobs.CreateContainerIfNotExists(ctx, ContainerName); err != nil {
		return nil, err
	}

	staged := &Staged{
		Container: ContainerName,
		Blob:      BlobName(service, slot),
		blobs:     u.Blobs,
	}
	staged.URL = BlobURL(account.BlobEndpoint, staged.Container, staged.Blob)

	logger := log.WithComponent("upload")
	logger.Info().
		Str("blob", staged.Blob).
		Int64("bytes", info.Size()).
		Msg("Uploading package")

	factory := u.Progress
	if factory == nil {
		factory = progress.Nop{}
	}
	transfer := factory.NewTransfer(info.Size())
	err = u.Blobs.PutBlob(ctx, staged.Container, staged.Blob, transfer.Wrap(f))
	transfer.Finish()
	if err != nil {
		return nil, err
	}

	return staged, nil
}
