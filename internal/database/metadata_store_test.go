package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-backup-sync/internal/backup"
)

func testRecord() *backup.SnapshotRecord {
	created := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	return &backup.SnapshotRecord{
		ID:             "1717405200000",
		Filename:       "backup-2024-06-03T09-00-00-000Z.json",
		OrganizationID: "org-1",
		Tables:         backup.ConfiguredTables(),
		RecordCount:    42,
		Status:         backup.SnapshotStatusCompleted,
		Size:           1024,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
}

func recordRows(t *testing.T, records ...*backup.SnapshotRecord) *sqlmock.Rows {
	t.Helper()

	rows := sqlmock.NewRows([]string{
		"id", "organization_id", "filename", "size", "tables",
		"record_count", "status", "error", "created_at", "updated_at",
	})
	for _, r := range records {
		tables, err := json.Marshal(r.Tables)
		require.NoError(t, err)
		rows.AddRow(r.ID, r.OrganizationID, r.Filename, r.Size, string(tables),
			r.RecordCount, string(r.Status), r.Error, r.CreatedAt, r.UpdatedAt)
	}
	return rows
}

func TestMetadataStore_EnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS backup_snapshots").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS backup_schedules").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewMetadataStore(db, nil)

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMetadataStore_InsertSnapshotRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	record := testRecord()

	mock.ExpectExec("INSERT INTO backup_snapshots").
		WithArgs(record.ID, record.OrganizationID, record.Filename, record.Size,
			sqlmock.AnyArg(), record.RecordCount, string(record.Status), record.Error,
			record.CreatedAt, record.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewMetadataStore(db, nil)

	require.NoError(t, store.InsertSnapshotRecord(context.Background(), record))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMetadataStore_InsertSnapshotRecord_RejectsInvalid(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	record := testRecord()
	record.OrganizationID = ""

	store := NewMetadataStore(db, nil)

	require.Error(t, store.InsertSnapshotRecord(context.Background(), record))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMetadataStore_UpdateSnapshotRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	record := testRecord()

	mock.ExpectExec("UPDATE backup_snapshots").
		WithArgs(record.Filename, record.Size, record.RecordCount, string(record.Status),
			record.Error, record.UpdatedAt, record.ID, record.OrganizationID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewMetadataStore(db, nil)

	require.NoError(t, store.UpdateSnapshotRecord(context.Background(), record))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMetadataStore_UpdateSnapshotRecord_MissingRowIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE backup_snapshots").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewMetadataStore(db, nil)

	err = store.UpdateSnapshotRecord(context.Background(), testRecord())

	require.Error(t, err)
	var backupErr *backup.BackupError
	require.ErrorAs(t, err, &backupErr)
	assert.Equal(t, backup.BackupErrorTypeNotFound, backupErr.Type)
}

func TestMetadataStore_GetSnapshotRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	record := testRecord()

	mock.ExpectQuery("SELECT (.+) FROM backup_snapshots").
		WithArgs(record.ID, record.OrganizationID).
		WillReturnRows(recordRows(t, record))

	store := NewMetadataStore(db, nil)

	loaded, err := store.GetSnapshotRecord(context.Background(), record.ID, record.OrganizationID)
	require.NoError(t, err)

	assert.Equal(t, record.ID, loaded.ID)
	assert.Equal(t, record.Status, loaded.Status)
	assert.Equal(t, backup.ConfiguredTables(), loaded.Tables)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMetadataStore_GetSnapshotRecord_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM backup_snapshots").
		WithArgs("missing", "org-1").
		WillReturnError(sql.ErrNoRows)

	store := NewMetadataStore(db, nil)

	_, err = store.GetSnapshotRecord(context.Background(), "missing", "org-1")

	require.Error(t, err)
	var backupErr *backup.BackupError
	require.ErrorAs(t, err, &backupErr)
	assert.Equal(t, backup.BackupErrorTypeNotFound, backupErr.Type)
}

func TestMetadataStore_ListSnapshotRecords(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	first := testRecord()
	second := testRecord()
	second.ID = "1717491600000"
	second.CreatedAt = first.CreatedAt.AddDate(0, 0, 1)

	mock.ExpectQuery("SELECT (.+) FROM backup_snapshots WHERE organization_id = \\? ORDER BY created_at DESC").
		WithArgs("org-1").
		WillReturnRows(recordRows(t, second, first))

	store := NewMetadataStore(db, nil)

	records, err := store.ListSnapshotRecords(context.Background(), "org-1", backup.RecordFilter{})
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, second.ID, records[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMetadataStore_ListSnapshotRecords_StatusAndLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	completed := backup.SnapshotStatusCompleted

	mock.ExpectQuery("SELECT (.+) FROM backup_snapshots WHERE organization_id = \\? AND status = \\? ORDER BY created_at DESC LIMIT \\?").
		WithArgs("org-1", string(completed), 5).
		WillReturnRows(recordRows(t, testRecord()))

	store := NewMetadataStore(db, nil)

	records, err := store.ListSnapshotRecords(context.Background(), "org-1", backup.RecordFilter{
		Status: &completed,
		Limit:  5,
	})
	require.NoError(t, err)

	assert.Len(t, records, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMetadataStore_DeleteSnapshotRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM backup_snapshots").
		WithArgs("1717405200000", "org-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewMetadataStore(db, nil)

	require.NoError(t, store.DeleteSnapshotRecord(context.Background(), "1717405200000", "org-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMetadataStore_DeleteSnapshotRecord_Missing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM backup_snapshots").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewMetadataStore(db, nil)

	err = store.DeleteSnapshotRecord(context.Background(), "missing", "org-1")

	require.Error(t, err)
	var backupErr *backup.BackupError
	require.ErrorAs(t, err, &backupErr)
	assert.Equal(t, backup.BackupErrorTypeNotFound, backupErr.Type)
}

func TestMetadataStore_UpsertScheduleConfig(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	next := time.Date(2024, 6, 4, 2, 0, 0, 0, time.UTC)
	config := &backup.ScheduleConfig{
		OrganizationID: "org-1",
		Frequency:      "daily",
		TimeOfDay:      "02:00",
		Timezone:       "UTC",
		Enabled:        true,
		NextRun:        &next,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	mock.ExpectExec("INSERT INTO backup_schedules").
		WithArgs("org-1", "daily", "02:00", "UTC", true, nil, next, true, now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewMetadataStore(db, nil)

	require.NoError(t, store.UpsertScheduleConfig(context.Background(), config))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMetadataStore_UpsertScheduleConfig_RejectsInvalid(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewMetadataStore(db, nil)

	err = store.UpsertScheduleConfig(context.Background(), &backup.ScheduleConfig{
		OrganizationID: "org-1",
		Frequency:      "weekly",
		TimeOfDay:      "02:00",
		Timezone:       "UTC",
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMetadataStore_GetScheduleConfig(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	lastRun := now.Add(-24 * time.Hour)

	rows := sqlmock.NewRows([]string{
		"organization_id", "frequency", "time_of_day", "timezone",
		"enabled", "last_run", "next_run", "is_active", "created_at", "updated_at",
	}).AddRow("org-1", "daily", "02:00", "UTC", true, lastRun, nil, true, now, now)

	mock.ExpectQuery("SELECT (.+) FROM backup_schedules").
		WithArgs("org-1").
		WillReturnRows(rows)

	store := NewMetadataStore(db, nil)

	config, err := store.GetScheduleConfig(context.Background(), "org-1")
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, "daily", config.Frequency)
	require.NotNil(t, config.LastRun)
	assert.True(t, config.LastRun.Equal(lastRun))
	assert.Nil(t, config.NextRun)
}

func TestMetadataStore_GetScheduleConfig_MissingIsNil(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM backup_schedules").
		WithArgs("org-1").
		WillReturnError(sql.ErrNoRows)

	store := NewMetadataStore(db, nil)

	config, err := store.GetScheduleConfig(context.Background(), "org-1")

	require.NoError(t, err)
	assert.Nil(t, config)
}
