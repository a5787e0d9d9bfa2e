package backup

import (
	"context"
	"fmt"
)

// BlobStoreFactory creates blob stores based on configuration
type BlobStoreFactory struct{}

// NewBlobStoreFactory creates a new blob store factory
func NewBlobStoreFactory() *BlobStoreFactory {
	return &BlobStoreFactory{}
}

// CreateBlobStore creates a blob store based on the storage configuration
func (f *BlobStoreFactory) CreateBlobStore(ctx context.Context, config StorageConfig) (BlobStore, error) {
	if err := config.Validate(); err != nil {
		return nil, NewValidationError("invalid storage configuration", err)
	}

	switch config.Provider {
	case StorageProviderLocal:
		return NewLocalBlobStore(config.Local)

	case StorageProviderS3:
		return NewS3BlobStore(config.S3)

	case StorageProviderAzure:
		return NewAzureBlobStore(config.Azure)

	case StorageProviderGCS:
		return NewGCSBlobStore(ctx, config.GCS)

	default:
		return nil, NewValidationError(fmt.Sprintf("unsupported storage provider: %s", config.Provider), nil)
	}
}

// SupportedProviders returns the storage provider types the factory can build
func (f *BlobStoreFactory) SupportedProviders() []StorageProviderType {
	return []StorageProviderType{
		StorageProviderLocal,
		StorageProviderS3,
		StorageProviderAzure,
		StorageProviderGCS,
	}
}
