package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3BlobStore implements BlobStore for Amazon S3 storage
type S3BlobStore struct {
	client *s3.S3
	bucket string
	prefix string
}

// NewS3BlobStore creates a new S3BlobStore instance
func NewS3BlobStore(config *S3Config) (*S3BlobStore, error) {
	if config == nil {
		return nil, NewValidationError("S3 storage configuration is required", nil)
	}
	if config.Bucket == "" || config.Region == "" {
		return nil, NewValidationError("S3 bucket and region are required", nil)
	}

	awsConfig := &aws.Config{
		Region: aws.String(config.Region),
	}
	if config.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"", // token
		)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, NewStorageError("failed to create AWS session", err)
	}

	return &S3BlobStore{
		client: s3.New(sess),
		bucket: config.Bucket,
		prefix: "backups/",
	}, nil
}

// Upload writes a snapshot document to S3
func (s *S3BlobStore) Upload(ctx context.Context, key string, data []byte) error {
	if err := validateBlobKey(key); err != nil {
		return err
	}

	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.prefix + key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return NewStorageError(fmt.Sprintf("failed to upload blob %s to S3", key), err)
	}

	return nil
}

// Download reads a snapshot document from S3
func (s *S3BlobStore) Download(ctx context.Context, key string) ([]byte, error) {
	if err := validateBlobKey(key); err != nil {
		return nil, err
	}

	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + key),
	})
	if err != nil {
		return nil, NewStorageError(fmt.Sprintf("failed to download blob %s from S3", key), err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, NewStorageError(fmt.Sprintf("failed to read blob %s", key), err)
	}

	return data, nil
}

// Remove deletes snapshot documents from S3
func (s *S3BlobStore) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	objects := make([]*s3.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		if err := validateBlobKey(key); err != nil {
			return err
		}
		objects = append(objects, &s3.ObjectIdentifier{
			Key: aws.String(s.prefix + key),
		})
	}

	_, err := s.client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &s3.Delete{
			Objects: objects,
		},
	})
	if err != nil {
		return NewStorageError("failed to delete blobs from S3", err)
	}

	return nil
}

// Provider returns the provider name.
func (s *S3BlobStore) Provider() string {
	return "s3"
}

// HealthCheck verifies that the bucket is accessible.
func (s *S3BlobStore) HealthCheck(ctx context.Context) error {
	_, err := s.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return NewStorageError("S3 health check failed: bucket not accessible", err)
	}
	return nil
}
