package backup

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testService(t *testing.T, blobs BlobStore, tenants TenantStore, meta MetadataStore) *Service {
	t.Helper()

	config := &SystemConfig{
		Compression: CompressionConfig{Algorithm: CompressionTypeNone},
	}
	service, err := NewService(config, blobs, tenants, meta, nil)
	require.NoError(t, err)
	return service
}

func TestNewService_RequiresConfig(t *testing.T) {
	_, err := NewService(nil, newMemBlobStore(), newMemTenantStore(), newMemMetadataStore(), nil)

	require.Error(t, err)
	var backupErr *BackupError
	require.ErrorAs(t, err, &backupErr)
	assert.Equal(t, BackupErrorTypeConfiguration, backupErr.Type)
}

func TestNewService_RejectsInvalidConfig(t *testing.T) {
	config := &SystemConfig{
		Storage: StorageConfig{Provider: StorageProviderS3},
	}

	_, err := NewService(config, newMemBlobStore(), newMemTenantStore(), newMemMetadataStore(), nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid backup system configuration")
}

func TestService_BackupRestoreRoundTrip(t *testing.T) {
	blobs := newMemBlobStore()
	meta := newMemMetadataStore()
	store := newMemTenantStore()

	for i := 0; i < 12; i++ {
		store.seed("org-1", TableCustomers, append(store.rows("org-1", TableCustomers), Row{
			"id":              fmt.Sprintf("c-%d", i),
			"organization_id": "org-1",
			"name":            fmt.Sprintf("Customer %d", i),
		}))
	}
	store.seed("org-1", TableWorkOrders, []Row{
		{"id": "wo-1", "organization_id": "org-1", "status": "open"},
	})

	service := testService(t, blobs, store, meta)

	record, err := service.CreateBackup(context.Background(), "org-1")
	require.NoError(t, err)
	require.Equal(t, SnapshotStatusCompleted, record.Status)
	assert.Equal(t, 13, record.RecordCount)

	// Mutate the live data, then restore the snapshot over it.
	store.seed("org-1", TableCustomers, []Row{
		{"id": "c-x", "organization_id": "org-1", "name": "Added After Backup"},
	})

	result, err := service.RestoreBackup(context.Background(), record.ID, "org-1")
	require.NoError(t, err)
	assert.Contains(t, result.RestoredTables, TableCustomers)
	assert.Contains(t, result.RestoredTables, TableWorkOrders)

	customers := store.rows("org-1", TableCustomers)
	assert.Len(t, customers, 12)
}

func TestService_CreateBackup_TenantIsolation(t *testing.T) {
	blobs := newMemBlobStore()
	meta := newMemMetadataStore()
	store := newMemTenantStore()
	store.seed("org-1", TableCustomers, []Row{{"id": "c-1", "organization_id": "org-1"}})
	store.seed("org-2", TableCustomers, []Row{{"id": "c-2", "organization_id": "org-2"}})

	service := testService(t, blobs, store, meta)

	record, err := service.CreateBackup(context.Background(), "org-1")
	require.NoError(t, err)

	// org-2 cannot see or restore org-1's snapshot.
	_, err = service.RestoreBackup(context.Background(), record.ID, "org-2")
	require.Error(t, err)
	var backupErr *BackupError
	require.ErrorAs(t, err, &backupErr)
	assert.Equal(t, BackupErrorTypeNotFound, backupErr.Type)

	records, err := service.ListBackups(context.Background(), "org-2", 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestService_ListBackups(t *testing.T) {
	blobs := newMemBlobStore()
	meta := newMemMetadataStore()
	seedRecords(t, meta, blobs, "org-1", 5, SnapshotStatusCompleted)

	service := testService(t, blobs, newMemTenantStore(), meta)

	all, err := service.ListBackups(context.Background(), "org-1", 0)
	require.NoError(t, err)
	require.Len(t, all, 5)

	// Newest first.
	for i := 1; i < len(all); i++ {
		assert.True(t, all[i-1].CreatedAt.After(all[i].CreatedAt))
	}

	limited, err := service.ListBackups(context.Background(), "org-1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	_, err = service.ListBackups(context.Background(), "", 0)
	require.Error(t, err)
}

func TestService_BackupStats(t *testing.T) {
	blobs := newMemBlobStore()
	meta := newMemMetadataStore()
	seedRecords(t, meta, blobs, "org-1", 3, SnapshotStatusCompleted)

	require.NoError(t, meta.InsertSnapshotRecord(context.Background(), &SnapshotRecord{
		ID:             "failed-1",
		Filename:       "backup-failed.json",
		OrganizationID: "org-1",
		Status:         SnapshotStatusFailed,
		CreatedAt:      time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
	}))

	service := testService(t, blobs, newMemTenantStore(), meta)

	stats, err := service.BackupStats(context.Background(), "org-1")
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Total)
	assert.InDelta(t, 0.75, stats.SuccessRate, 0.001)
	assert.Greater(t, stats.TotalSize, int64(0))
	require.NotNil(t, stats.LastBackup)

	// LastBackup tracks the newest completed snapshot, not the failed one.
	records, err := meta.ListSnapshotRecords(context.Background(), "org-1", RecordFilter{})
	require.NoError(t, err)
	var newestCompleted time.Time
	for _, r := range records {
		if r.Status == SnapshotStatusCompleted && r.CreatedAt.After(newestCompleted) {
			newestCompleted = r.CreatedAt
		}
	}
	assert.True(t, stats.LastBackup.Equal(newestCompleted))
}

func TestService_BackupStats_Empty(t *testing.T) {
	service := testService(t, newMemBlobStore(), newMemTenantStore(), newMemMetadataStore())

	stats, err := service.BackupStats(context.Background(), "org-1")
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Total)
	assert.Zero(t, stats.SuccessRate)
	assert.Nil(t, stats.LastBackup)
}

func TestService_VerifyIntegrity(t *testing.T) {
	blobs := newMemBlobStore()
	meta := newMemMetadataStore()
	store := newMemTenantStore()
	store.seed("org-1", TableCustomers, []Row{{"id": "c-1", "organization_id": "org-1"}})

	service := testService(t, blobs, store, meta)

	record, err := service.CreateBackup(context.Background(), "org-1")
	require.NoError(t, err)

	result, err := service.VerifyIntegrity(context.Background(), "org-1")
	require.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.Equal(t, 1, result.Verified)

	single, err := service.VerifySnapshot(context.Background(), record.ID, "org-1")
	require.NoError(t, err)
	assert.True(t, single.IsValid)
}

func TestService_RunScheduledBackup_Idempotent(t *testing.T) {
	blobs := newMemBlobStore()
	meta := newMemMetadataStore()
	store := newMemTenantStore()
	store.seed("org-1", TableCustomers, []Row{{"id": "c-1", "organization_id": "org-1"}})

	service := testService(t, blobs, store, meta)

	first, err := service.RunScheduledBackup(context.Background(), "org-1")
	require.NoError(t, err)

	second, err := service.RunScheduledBackup(context.Background(), "org-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, blobs.count())
}

func TestService_ScheduleBackups(t *testing.T) {
	meta := newMemMetadataStore()
	service := testService(t, newMemBlobStore(), newMemTenantStore(), meta)

	result, err := service.ScheduleBackups(context.Background(), ScheduleConfig{
		OrganizationID: "org-1",
		TimeOfDay:      "02:00",
		Timezone:       "UTC",
		Enabled:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, "daily at 02:00 UTC", result.Schedule)

	saved, err := meta.GetScheduleConfig(context.Background(), "org-1")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.True(t, saved.Enabled)
}

func TestService_ConcurrentBackupsDifferentTenants(t *testing.T) {
	blobs := newMemBlobStore()
	meta := newMemMetadataStore()
	store := newMemTenantStore()

	orgs := []string{"org-1", "org-2", "org-3", "org-4"}
	for _, org := range orgs {
		store.seed(org, TableCustomers, []Row{{"id": "c-" + org, "organization_id": org}})
	}

	service := testService(t, blobs, store, meta)

	done := make(chan error, len(orgs))
	for _, org := range orgs {
		go func(org string) {
			_, err := service.CreateBackup(context.Background(), org)
			done <- err
		}(org)
	}
	for range orgs {
		require.NoError(t, <-done)
	}

	for _, org := range orgs {
		records, err := service.ListBackups(context.Background(), org, 0)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	}
}
