package backup

import (
	"context"
)

// BlobStore abstracts durable key-addressed storage for serialized snapshot
// documents. Implementations live in this package (local, S3, GCS, Azure).
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte) error
	Download(ctx context.Context, key string) ([]byte, error)
	Remove(ctx context.Context, keys ...string) error

	// Provider returns a short provider name for diagnostics ("local", "s3", ...).
	Provider() string
}

// TenantStore abstracts tenant-filtered access to the business tables. All three
// operations are scoped to a single organization; implementations must never
// touch rows belonging to another tenant.
type TenantStore interface {
	SelectRows(ctx context.Context, table TableName, organizationID string) ([]Row, error)
	DeleteRows(ctx context.Context, table TableName, organizationID string) error
	InsertRows(ctx context.Context, table TableName, rows []Row) error
}

// TableReplacer is an optional upgrade to TenantStore. When a store implements
// it, the restore engine replaces a table's tenant rows in a single transaction
// instead of issuing separate delete and insert calls.
type TableReplacer interface {
	ReplaceRows(ctx context.Context, table TableName, organizationID string, rows []Row) error
}

// MetadataStore owns SnapshotRecord and ScheduleConfig persistence.
type MetadataStore interface {
	InsertSnapshotRecord(ctx context.Context, record *SnapshotRecord) error
	UpdateSnapshotRecord(ctx context.Context, record *SnapshotRecord) error
	GetSnapshotRecord(ctx context.Context, id, organizationID string) (*SnapshotRecord, error)

	// ListSnapshotRecords returns a tenant's records ordered by creation time
	// descending, optionally filtered by status and limited in count.
	ListSnapshotRecords(ctx context.Context, organizationID string, filter RecordFilter) ([]*SnapshotRecord, error)
	DeleteSnapshotRecord(ctx context.Context, id, organizationID string) error

	UpsertScheduleConfig(ctx context.Context, config *ScheduleConfig) error
	GetScheduleConfig(ctx context.Context, organizationID string) (*ScheduleConfig, error)
}
