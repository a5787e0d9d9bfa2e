package backup

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSBlobStore implements BlobStore for Google Cloud Storage
type GCSBlobStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSBlobStore creates a new GCSBlobStore instance
func NewGCSBlobStore(ctx context.Context, config *GCSConfig) (*GCSBlobStore, error) {
	if config == nil {
		return nil, NewValidationError("GCS storage configuration is required", nil)
	}
	if config.Bucket == "" {
		return nil, NewValidationError("GCS bucket is required", nil)
	}

	var client *storage.Client
	var err error

	if config.CredentialsPath != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(config.CredentialsPath))
	} else {
		// Use default credentials (environment or metadata server)
		client, err = storage.NewClient(ctx)
	}
	if err != nil {
		return nil, NewStorageError("failed to create GCS client", err)
	}

	return &GCSBlobStore{
		client: client,
		bucket: config.Bucket,
		prefix: "backups/",
	}, nil
}

// Upload writes a snapshot document to Google Cloud Storage
func (g *GCSBlobStore) Upload(ctx context.Context, key string, data []byte) error {
	if err := validateBlobKey(key); err != nil {
		return err
	}

	object := g.client.Bucket(g.bucket).Object(g.prefix + key)
	writer := object.NewWriter(ctx)
	writer.ContentType = "application/json"

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return NewStorageError(fmt.Sprintf("failed to write blob %s to GCS", key), err)
	}
	if err := writer.Close(); err != nil {
		return NewStorageError(fmt.Sprintf("failed to upload blob %s to GCS", key), err)
	}

	return nil
}

// Download reads a snapshot document from Google Cloud Storage
func (g *GCSBlobStore) Download(ctx context.Context, key string) ([]byte, error) {
	if err := validateBlobKey(key); err != nil {
		return nil, err
	}

	object := g.client.Bucket(g.bucket).Object(g.prefix + key)
	reader, err := object.NewReader(ctx)
	if err != nil {
		if err == storage.ErrObjectNotExist {
			return nil, NewNotFoundError(fmt.Sprintf("blob %s not found", key), err)
		}
		return nil, NewStorageError(fmt.Sprintf("failed to download blob %s from GCS", key), err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, NewStorageError(fmt.Sprintf("failed to read blob %s", key), err)
	}

	return data, nil
}

// Remove deletes snapshot documents from Google Cloud Storage
func (g *GCSBlobStore) Remove(ctx context.Context, keys ...string) error {
	bucket := g.client.Bucket(g.bucket)
	for _, key := range keys {
		if err := validateBlobKey(key); err != nil {
			return err
		}
		if err := bucket.Object(g.prefix + key).Delete(ctx); err != nil {
			if err == storage.ErrObjectNotExist {
				continue
			}
			return NewStorageError(fmt.Sprintf("failed to delete blob %s from GCS", key), err)
		}
	}
	return nil
}

// Provider returns the provider name.
func (g *GCSBlobStore) Provider() string {
	return "gcs"
}

// HealthCheck verifies that the bucket is accessible.
func (g *GCSBlobStore) HealthCheck(ctx context.Context) error {
	bucket := g.client.Bucket(g.bucket)
	if _, err := bucket.Attrs(ctx); err != nil {
		return NewStorageError("GCS health check failed: bucket not accessible", err)
	}

	it := bucket.Objects(ctx, &storage.Query{Prefix: g.prefix})
	if _, err := it.Next(); err != nil && err != iterator.Done {
		return NewStorageError("GCS health check failed: cannot list objects", err)
	}

	return nil
}

// Close closes the underlying GCS client.
func (g *GCSBlobStore) Close() error {
	return g.client.Close()
}
