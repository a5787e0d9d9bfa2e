package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"tenant-backup-sync/internal/backup"
	"tenant-backup-sync/internal/errors"
	"tenant-backup-sync/internal/logging"
)

// MetadataStore persists snapshot records and schedule configurations in MySQL.
// It implements backup.MetadataStore.
type MetadataStore struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewMetadataStore creates a metadata store over an open database handle
func NewMetadataStore(db *sql.DB, logger *logging.Logger) *MetadataStore {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &MetadataStore{db: db, logger: logger}
}

// EnsureSchema creates the metadata tables when they do not exist yet
func (ms *MetadataStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS backup_snapshots (
			id VARCHAR(64) NOT NULL,
			organization_id VARCHAR(64) NOT NULL,
			filename VARCHAR(255) NOT NULL,
			size BIGINT NOT NULL DEFAULT 0,
			tables TEXT NOT NULL,
			record_count INT NOT NULL DEFAULT 0,
			status VARCHAR(32) NOT NULL,
			error TEXT,
			created_at DATETIME(3) NOT NULL,
			updated_at DATETIME(3) NOT NULL,
			PRIMARY KEY (id, organization_id),
			KEY idx_snapshots_org_created (organization_id, created_at)
		)`,
		`CREATE TABLE IF NOT EXISTS backup_schedules (
			organization_id VARCHAR(64) NOT NULL,
			frequency VARCHAR(32) NOT NULL,
			time_of_day VARCHAR(8) NOT NULL,
			timezone VARCHAR(64) NOT NULL,
			enabled TINYINT(1) NOT NULL DEFAULT 1,
			last_run DATETIME(3) NULL,
			next_run DATETIME(3) NULL,
			is_active TINYINT(1) NOT NULL DEFAULT 1,
			created_at DATETIME(3) NOT NULL,
			updated_at DATETIME(3) NOT NULL,
			PRIMARY KEY (organization_id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := ms.db.ExecContext(ctx, stmt); err != nil {
			return errors.WrapError(err, "failed to create metadata schema")
		}
	}

	return nil
}

// InsertSnapshotRecord persists a new snapshot record
func (ms *MetadataStore) InsertSnapshotRecord(ctx context.Context, record *backup.SnapshotRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	tables, err := json.Marshal(record.Tables)
	if err != nil {
		return errors.WrapError(err, "failed to serialize table list")
	}

	query := `INSERT INTO backup_snapshots
		(id, organization_id, filename, size, tables, record_count, status, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = ms.db.ExecContext(ctx, query,
		record.ID, record.OrganizationID, record.Filename, record.Size,
		string(tables), record.RecordCount, string(record.Status), record.Error,
		record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return errors.WrapError(err, fmt.Sprintf("failed to insert snapshot record %s", record.ID))
	}

	return nil
}

// UpdateSnapshotRecord updates a snapshot record's mutable fields
func (ms *MetadataStore) UpdateSnapshotRecord(ctx context.Context, record *backup.SnapshotRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	query := `UPDATE backup_snapshots
		SET filename = ?, size = ?, record_count = ?, status = ?, error = ?, updated_at = ?
		WHERE id = ? AND organization_id = ?`

	result, err := ms.db.ExecContext(ctx, query,
		record.Filename, record.Size, record.RecordCount, string(record.Status),
		record.Error, record.UpdatedAt, record.ID, record.OrganizationID)
	if err != nil {
		return errors.WrapError(err, fmt.Sprintf("failed to update snapshot record %s", record.ID))
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return backup.NewNotFoundError(fmt.Sprintf("snapshot record %s not found", record.ID), nil)
	}

	return nil
}

// GetSnapshotRecord loads one snapshot record scoped to an organization
func (ms *MetadataStore) GetSnapshotRecord(ctx context.Context, id, organizationID string) (*backup.SnapshotRecord, error) {
	query := `SELECT id, organization_id, filename, size, tables, record_count, status, error, created_at, updated_at
		FROM backup_snapshots
		WHERE id = ? AND organization_id = ?`

	record, err := ms.scanRecord(ms.db.QueryRowContext(ctx, query, id, organizationID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, backup.NewNotFoundError(fmt.Sprintf("snapshot record %s not found", id), nil)
		}
		return nil, errors.WrapError(err, fmt.Sprintf("failed to load snapshot record %s", id))
	}

	return record, nil
}

// ListSnapshotRecords returns a tenant's snapshot records ordered newest first
func (ms *MetadataStore) ListSnapshotRecords(ctx context.Context, organizationID string, filter backup.RecordFilter) ([]*backup.SnapshotRecord, error) {
	query := `SELECT id, organization_id, filename, size, tables, record_count, status, error, created_at, updated_at
		FROM backup_snapshots
		WHERE organization_id = ?`
	args := []interface{}{organizationID}

	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*filter.Status))
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := ms.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.WrapError(err, "failed to list snapshot records")
	}
	defer rows.Close()

	var records []*backup.SnapshotRecord
	for rows.Next() {
		record, err := ms.scanRecord(rows)
		if err != nil {
			return nil, errors.WrapError(err, "failed to scan snapshot record")
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.WrapError(err, "failed to iterate snapshot records")
	}

	return records, nil
}

// DeleteSnapshotRecord removes one snapshot record scoped to an organization
func (ms *MetadataStore) DeleteSnapshotRecord(ctx context.Context, id, organizationID string) error {
	query := `DELETE FROM backup_snapshots WHERE id = ? AND organization_id = ?`

	result, err := ms.db.ExecContext(ctx, query, id, organizationID)
	if err != nil {
		return errors.WrapError(err, fmt.Sprintf("failed to delete snapshot record %s", id))
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return backup.NewNotFoundError(fmt.Sprintf("snapshot record %s not found", id), nil)
	}

	return nil
}

// UpsertScheduleConfig inserts or updates a tenant's schedule configuration
func (ms *MetadataStore) UpsertScheduleConfig(ctx context.Context, config *backup.ScheduleConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}

	query := `INSERT INTO backup_schedules
		(organization_id, frequency, time_of_day, timezone, enabled, last_run, next_run, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			frequency = VALUES(frequency),
			time_of_day = VALUES(time_of_day),
			timezone = VALUES(timezone),
			enabled = VALUES(enabled),
			last_run = VALUES(last_run),
			next_run = VALUES(next_run),
			is_active = VALUES(is_active),
			updated_at = VALUES(updated_at)`

	_, err := ms.db.ExecContext(ctx, query,
		config.OrganizationID, config.Frequency, config.TimeOfDay, config.Timezone,
		config.Enabled, config.LastRun, config.NextRun, config.IsActive,
		config.CreatedAt, config.UpdatedAt)
	if err != nil {
		return errors.WrapError(err, fmt.Sprintf("failed to upsert schedule for organization %s", config.OrganizationID))
	}

	return nil
}

// GetScheduleConfig loads a tenant's schedule configuration. A missing schedule
// is reported as nil without an error.
func (ms *MetadataStore) GetScheduleConfig(ctx context.Context, organizationID string) (*backup.ScheduleConfig, error) {
	query := `SELECT organization_id, frequency, time_of_day, timezone, enabled, last_run, next_run, is_active, created_at, updated_at
		FROM backup_schedules
		WHERE organization_id = ?`

	var config backup.ScheduleConfig
	var lastRun, nextRun sql.NullTime

	err := ms.db.QueryRowContext(ctx, query, organizationID).Scan(
		&config.OrganizationID, &config.Frequency, &config.TimeOfDay, &config.Timezone,
		&config.Enabled, &lastRun, &nextRun, &config.IsActive,
		&config.CreatedAt, &config.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.WrapError(err, fmt.Sprintf("failed to load schedule for organization %s", organizationID))
	}

	if lastRun.Valid {
		t := lastRun.Time
		config.LastRun = &t
	}
	if nextRun.Valid {
		t := nextRun.Time
		config.NextRun = &t
	}

	return &config, nil
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (ms *MetadataStore) scanRecord(scanner rowScanner) (*backup.SnapshotRecord, error) {
	var record backup.SnapshotRecord
	var tables string
	var status string
	var errText sql.NullString
	var createdAt, updatedAt time.Time

	err := scanner.Scan(
		&record.ID, &record.OrganizationID, &record.Filename, &record.Size,
		&tables, &record.RecordCount, &status, &errText,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tables), &record.Tables); err != nil {
		return nil, fmt.Errorf("failed to parse table list: %w", err)
	}

	record.Status = backup.SnapshotStatus(status)
	if errText.Valid {
		record.Error = errText.String
	}
	record.CreatedAt = createdAt
	record.UpdatedAt = updatedAt

	return &record, nil
}
