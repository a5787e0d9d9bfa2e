package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalBlobStore implements BlobStore on the local file system. Intended for
// development and air-gapped deployments.
type LocalBlobStore struct {
	basePath string
}

// NewLocalBlobStore creates a new LocalBlobStore instance
func NewLocalBlobStore(config *LocalConfig) (*LocalBlobStore, error) {
	if config == nil {
		return nil, NewValidationError("local storage configuration is required", nil)
	}
	if config.BasePath == "" {
		return nil, NewValidationError("base path is required for local storage", nil)
	}

	if err := os.MkdirAll(config.BasePath, 0755); err != nil {
		return nil, NewStorageError("failed to create local storage directory", err)
	}

	return &LocalBlobStore{
		basePath: config.BasePath,
	}, nil
}

// Upload writes a snapshot document to the base directory.
func (l *LocalBlobStore) Upload(ctx context.Context, key string, data []byte) error {
	if err := validateBlobKey(key); err != nil {
		return err
	}

	path := filepath.Join(l.basePath, key)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return NewStorageError(fmt.Sprintf("failed to write blob %s", key), err)
	}

	return nil
}

// Download reads a snapshot document from the base directory.
func (l *LocalBlobStore) Download(ctx context.Context, key string) ([]byte, error) {
	if err := validateBlobKey(key); err != nil {
		return nil, err
	}

	path := filepath.Join(l.basePath, key)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewNotFoundError(fmt.Sprintf("blob %s not found", key), err)
		}
		return nil, NewStorageError(fmt.Sprintf("failed to read blob %s", key), err)
	}

	return data, nil
}

// Remove deletes snapshot documents. Missing blobs are not an error; retention
// must be able to finish cleaning up a partially deleted snapshot.
func (l *LocalBlobStore) Remove(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := validateBlobKey(key); err != nil {
			return err
		}

		path := filepath.Join(l.basePath, key)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return NewStorageError(fmt.Sprintf("failed to remove blob %s", key), err)
		}
	}

	return nil
}

// Provider returns the provider name.
func (l *LocalBlobStore) Provider() string {
	return "local"
}

// BasePath returns the storage directory.
func (l *LocalBlobStore) BasePath() string {
	return l.basePath
}

// validateBlobKey rejects keys that would escape the storage namespace.
func validateBlobKey(key string) error {
	if key == "" {
		return NewValidationError("blob key cannot be empty", nil)
	}
	if strings.Contains(key, "..") || strings.ContainsAny(key, "/\\") {
		return NewValidationError(fmt.Sprintf("unsafe blob key: %s", key), nil)
	}
	return nil
}
