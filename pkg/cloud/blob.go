package cloud

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/cuemby/cspublish/pkg/types"
)

// AzureBlobStore stages packages in a storage account using shared key auth
type AzureBlobStore struct {
	client *azblob.Client
}

// NewAzureBlobStore creates a blob store for account. The account must carry
// its blob endpoint and primary key.
func NewAzureBlobStore(account types.StorageAccount) (*AzureBlobStore, error) {
	if account.BlobEndpoint == "" {
		return nil, fmt.Errorf("storage account %s has no blob endpoint", account.Name)
	}
	if account.PrimaryKey == "" {
		return nil, fmt.Errorf("storage account %s has no access key", account.Name)
	}

	cred, err := azblob.NewSharedKeyCredential(account.Name, account.PrimaryKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared key credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(account.BlobEndpoint, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return &AzureBlobStore{client: client}, nil
}

func (s *AzureBlobStore) CreateContainerIfNotExists(ctx context.Context, container string) error {
	_, err := s.client.CreateContainer(ctx, container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("failed to create container %s: %w", container, err)
	}
	return nil
}

// PutBlob uploads body as a block blob, replacing any existing blob
func (s *AzureBlobStore) PutBlob(ctx context.Context, container, blob string, body io.Reader) error {
	if _, err := s.client.UploadStream(ctx, container, blob, body, nil); err != nil {
		return fmt.Errorf("failed to upload blob %s/%s: %w", container, blob, err)
	}
	return nil
}

func (s *AzureBlobStore) DeleteBlob(ctx context.Context, container, blob string) error {
	if _, err := s.client.DeleteBlob(ctx, container, blob, nil); err != nil {
		return fmt.Errorf("failed to delete blob %s/%s: %w", container, blob, err)
	}
	return nil
}
