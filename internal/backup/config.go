package backup

import (
	"fmt"
	"os"
	"strconv"
)

// DefaultKeepCount is the retention window applied when none is configured.
const DefaultKeepCount = 30

// StorageProviderType identifies a blob storage backend.
type StorageProviderType string

const (
	StorageProviderLocal StorageProviderType = "LOCAL"
	StorageProviderS3    StorageProviderType = "S3"
	StorageProviderAzure StorageProviderType = "AZURE"
	StorageProviderGCS   StorageProviderType = "GCS"
)

func isValidStorageProviderType(provider StorageProviderType) bool {
	switch provider {
	case StorageProviderLocal, StorageProviderS3, StorageProviderAzure, StorageProviderGCS:
		return true
	default:
		return false
	}
}

// StorageConfig defines storage provider configuration
type StorageConfig struct {
	Provider StorageProviderType `yaml:"provider"`
	Local    *LocalConfig        `yaml:"local,omitempty"`
	S3       *S3Config           `yaml:"s3,omitempty"`
	Azure    *AzureConfig        `yaml:"azure,omitempty"`
	GCS      *GCSConfig          `yaml:"gcs,omitempty"`
}

// LocalConfig for local file system storage
type LocalConfig struct {
	BasePath string `yaml:"base_path"`
}

// S3Config for Amazon S3 storage
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// AzureConfig for Azure Blob Storage
type AzureConfig struct {
	AccountName   string `yaml:"account_name"`
	AccountKey    string `yaml:"account_key"`
	ContainerName string `yaml:"container_name"`
}

// GCSConfig for Google Cloud Storage
type GCSConfig struct {
	Bucket          string `yaml:"bucket"`
	CredentialsPath string `yaml:"credentials_path"`
	ProjectID       string `yaml:"project_id"`
}

// RetentionConfig controls the keep-most-recent-N retention window.
type RetentionConfig struct {
	KeepCount int `yaml:"keep_count"`
}

// CompressionConfig controls snapshot document compression.
type CompressionConfig struct {
	Algorithm CompressionType `yaml:"algorithm"`
	Level     int             `yaml:"level"`
}

// SystemConfig is the full configuration of the backup subsystem.
type SystemConfig struct {
	Storage     StorageConfig     `yaml:"storage"`
	Retention   RetentionConfig   `yaml:"retention"`
	Compression CompressionConfig `yaml:"compression"`
	Encryption  EncryptionConfig  `yaml:"encryption"`
}

// SetDefaults fills unset fields with their defaults.
func (c *SystemConfig) SetDefaults() {
	if c.Storage.Provider == "" {
		c.Storage.Provider = StorageProviderLocal
	}
	if c.Storage.Provider == StorageProviderLocal && c.Storage.Local == nil {
		c.Storage.Local = &LocalConfig{BasePath: "./backups"}
	}
	if c.Retention.KeepCount == 0 {
		c.Retention.KeepCount = DefaultKeepCount
	}
	if c.Compression.Algorithm == "" {
		c.Compression.Algorithm = CompressionTypeNone
	}
}

// LoadFromEnvironment overrides configuration from environment variables.
func (c *SystemConfig) LoadFromEnvironment() {
	if v := os.Getenv("BACKUP_STORAGE_PROVIDER"); v != "" {
		c.Storage.Provider = StorageProviderType(v)
	}
	if v := os.Getenv("BACKUP_LOCAL_PATH"); v != "" {
		if c.Storage.Local == nil {
			c.Storage.Local = &LocalConfig{}
		}
		c.Storage.Local.BasePath = v
	}
	if v := os.Getenv("BACKUP_S3_BUCKET"); v != "" {
		if c.Storage.S3 == nil {
			c.Storage.S3 = &S3Config{}
		}
		c.Storage.S3.Bucket = v
	}
	if v := os.Getenv("BACKUP_S3_REGION"); v != "" && c.Storage.S3 != nil {
		c.Storage.S3.Region = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" && c.Storage.S3 != nil {
		c.Storage.S3.AccessKey = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" && c.Storage.S3 != nil {
		c.Storage.S3.SecretKey = v
	}
	if v := os.Getenv("BACKUP_RETENTION_KEEP"); v != "" {
		if keep, err := strconv.Atoi(v); err == nil && keep > 0 {
			c.Retention.KeepCount = keep
		}
	}
	if v := os.Getenv("BACKUP_COMPRESSION"); v != "" {
		c.Compression.Algorithm = CompressionType(v)
	}
	if v := os.Getenv("BACKUP_ENCRYPTION_PASSPHRASE"); v != "" {
		c.Encryption.Enabled = true
		c.Encryption.Passphrase = v
	}
	if v := os.Getenv("BACKUP_ENCRYPTION_SALT"); v != "" {
		c.Encryption.Salt = v
	}
}

// Validate validates the SystemConfig struct
func (c *SystemConfig) Validate() error {
	var errs ValidationErrors

	if err := c.Storage.Validate(); err != nil {
		if validationErrs, ok := err.(ValidationErrors); ok {
			errs = append(errs, validationErrs...)
		} else {
			errs.Add("storage", err.Error(), nil)
		}
	}

	if c.Retention.KeepCount < 1 {
		errs.Add("retention.keep_count", "keep count must be at least 1", c.Retention.KeepCount)
	}

	if !isValidCompressionType(c.Compression.Algorithm) {
		errs.Add("compression.algorithm", "invalid compression algorithm", c.Compression.Algorithm)
	} else if c.Compression.Level != 0 {
		// Level 0 means the codec's default.
		switch c.Compression.Algorithm {
		case CompressionTypeGzip:
			if c.Compression.Level < 1 || c.Compression.Level > 9 {
				errs.Add("compression.level", "gzip compression level must be between 1 and 9", c.Compression.Level)
			}
		case CompressionTypeLZ4:
			if c.Compression.Level < 1 || c.Compression.Level > 9 {
				errs.Add("compression.level", "lz4 compression level must be between 1 and 9", c.Compression.Level)
			}
		case CompressionTypeZstd:
			if c.Compression.Level < 1 || c.Compression.Level > 22 {
				errs.Add("compression.level", "zstd compression level must be between 1 and 22", c.Compression.Level)
			}
		case CompressionTypeNone:
			errs.Add("compression.level", "compression level requires a compression algorithm", c.Compression.Level)
		}
	}

	if err := c.Encryption.Validate(); err != nil {
		if validationErrs, ok := err.(ValidationErrors); ok {
			errs = append(errs, validationErrs...)
		} else {
			errs.Add("encryption", err.Error(), nil)
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Validate validates the StorageConfig struct
func (sc *StorageConfig) Validate() error {
	var errs ValidationErrors

	if !isValidStorageProviderType(sc.Provider) {
		errs.Add("provider", "invalid storage provider type", sc.Provider)
		return errs
	}

	switch sc.Provider {
	case StorageProviderLocal:
		if sc.Local == nil {
			errs.Add("local", "local storage configuration is required", nil)
		} else if sc.Local.BasePath == "" {
			errs.Add("local.base_path", "base path is required for local storage", nil)
		}
	case StorageProviderS3:
		if sc.S3 == nil {
			errs.Add("s3", "S3 storage configuration is required", nil)
		} else {
			if sc.S3.Bucket == "" {
				errs.Add("s3.bucket", "S3 bucket name is required", nil)
			}
			if sc.S3.Region == "" {
				errs.Add("s3.region", "S3 region is required", nil)
			}
		}
	case StorageProviderAzure:
		if sc.Azure == nil {
			errs.Add("azure", "Azure storage configuration is required", nil)
		} else {
			if sc.Azure.AccountName == "" {
				errs.Add("azure.account_name", "Azure account name is required", nil)
			}
			if sc.Azure.AccountKey == "" {
				errs.Add("azure.account_key", "Azure account key is required", nil)
			}
			if sc.Azure.ContainerName == "" {
				errs.Add("azure.container_name", "Azure container name is required", nil)
			}
		}
	case StorageProviderGCS:
		if sc.GCS == nil {
			errs.Add("gcs", "GCS storage configuration is required", nil)
		} else if sc.GCS.Bucket == "" {
			errs.Add("gcs.bucket", "GCS bucket name is required", nil)
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Describe returns a short human-readable summary of the storage target.
func (sc *StorageConfig) Describe() string {
	switch sc.Provider {
	case StorageProviderS3:
		if sc.S3 != nil {
			return fmt.Sprintf("s3://%s", sc.S3.Bucket)
		}
	case StorageProviderGCS:
		if sc.GCS != nil {
			return fmt.Sprintf("gs://%s", sc.GCS.Bucket)
		}
	case StorageProviderAzure:
		if sc.Azure != nil {
			return fmt.Sprintf("azure://%s", sc.Azure.ContainerName)
		}
	case StorageProviderLocal:
		if sc.Local != nil {
			return sc.Local.BasePath
		}
	}
	return string(sc.Provider)
}
