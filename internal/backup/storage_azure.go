package backup

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/Azure/azure-storage-blob-go/azblob"
)

// AzureBlobStore implements BlobStore for Azure Blob Storage
type AzureBlobStore struct {
	serviceURL azblob.ServiceURL
	container  string
	prefix     string
}

// NewAzureBlobStore creates a new AzureBlobStore instance
func NewAzureBlobStore(config *AzureConfig) (*AzureBlobStore, error) {
	if config == nil {
		return nil, NewValidationError("Azure storage configuration is required", nil)
	}
	if config.AccountName == "" || config.AccountKey == "" || config.ContainerName == "" {
		return nil, NewValidationError("Azure account name, account key and container are required", nil)
	}

	credential, err := azblob.NewSharedKeyCredential(config.AccountName, config.AccountKey)
	if err != nil {
		return nil, NewStorageError("failed to create Azure credentials", err)
	}

	pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})

	serviceURL, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net", config.AccountName))
	if err != nil {
		return nil, NewStorageError("failed to parse Azure service URL", err)
	}

	return &AzureBlobStore{
		serviceURL: azblob.NewServiceURL(*serviceURL, pipeline),
		container:  config.ContainerName,
		prefix:     "backups/",
	}, nil
}

// Upload writes a snapshot document to Azure Blob Storage
func (a *AzureBlobStore) Upload(ctx context.Context, key string, data []byte) error {
	if err := validateBlobKey(key); err != nil {
		return err
	}

	containerURL := a.serviceURL.NewContainerURL(a.container)
	blobURL := containerURL.NewBlockBlobURL(a.prefix + key)

	_, err := azblob.UploadBufferToBlockBlob(ctx, data, blobURL, azblob.UploadToBlockBlobOptions{
		BlockSize:   4 * 1024 * 1024,
		Parallelism: 16,
		BlobHTTPHeaders: azblob.BlobHTTPHeaders{
			ContentType: "application/json",
		},
	})
	if err != nil {
		return NewStorageError(fmt.Sprintf("failed to upload blob %s to Azure", key), err)
	}

	return nil
}

// Download reads a snapshot document from Azure Blob Storage
func (a *AzureBlobStore) Download(ctx context.Context, key string) ([]byte, error) {
	if err := validateBlobKey(key); err != nil {
		return nil, err
	}

	containerURL := a.serviceURL.NewContainerURL(a.container)
	blobURL := containerURL.NewBlockBlobURL(a.prefix + key)

	response, err := blobURL.Download(ctx, 0, azblob.CountToEnd, azblob.BlobAccessConditions{}, false, azblob.ClientProvidedKeyOptions{})
	if err != nil {
		if storageErr, ok := err.(azblob.StorageError); ok && storageErr.ServiceCode() == azblob.ServiceCodeBlobNotFound {
			return nil, NewNotFoundError(fmt.Sprintf("blob %s not found", key), err)
		}
		return nil, NewStorageError(fmt.Sprintf("failed to download blob %s from Azure", key), err)
	}

	bodyStream := response.Body(azblob.RetryReaderOptions{MaxRetryRequests: 20})
	defer bodyStream.Close()

	data, err := io.ReadAll(bodyStream)
	if err != nil {
		return nil, NewStorageError(fmt.Sprintf("failed to read blob %s", key), err)
	}

	return data, nil
}

// Remove deletes snapshot documents from Azure Blob Storage
func (a *AzureBlobStore) Remove(ctx context.Context, keys ...string) error {
	containerURL := a.serviceURL.NewContainerURL(a.container)
	for _, key := range keys {
		if err := validateBlobKey(key); err != nil {
			return err
		}
		blobURL := containerURL.NewBlockBlobURL(a.prefix + key)
		_, err := blobURL.Delete(ctx, azblob.DeleteSnapshotsOptionInclude, azblob.BlobAccessConditions{})
		if err != nil {
			if storageErr, ok := err.(azblob.StorageError); ok && storageErr.ServiceCode() == azblob.ServiceCodeBlobNotFound {
				continue
			}
			return NewStorageError(fmt.Sprintf("failed to delete blob %s from Azure", key), err)
		}
	}
	return nil
}

// Provider returns the provider name.
func (a *AzureBlobStore) Provider() string {
	return "azure"
}

// HealthCheck verifies that the container is accessible.
func (a *AzureBlobStore) HealthCheck(ctx context.Context) error {
	containerURL := a.serviceURL.NewContainerURL(a.container)
	_, err := containerURL.GetProperties(ctx, azblob.LeaseAccessConditions{})
	if err != nil {
		return NewStorageError("Azure health check failed: container not accessible", err)
	}
	return nil
}
