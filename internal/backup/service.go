package backup

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tenant-backup-sync/internal/logging"
)

// Service is the single entry point for callers of the backup subsystem. It
// wires the exporter, writer, retention manager, restore engine, verifier, and
// schedule coordinator over injected store handles, and serializes mutating
// operations per tenant so a restore can never race a backup for the same
// organization.
type Service struct {
	exporter  *Exporter
	writer    *Writer
	retention *RetentionManager
	restore   *RestoreEngine
	verifier  *IntegrityVerifier
	scheduler *ScheduleCoordinator
	meta      MetadataStore
	logger    *logging.Logger
	now       func() time.Time

	locks sync.Map // organization ID -> *sync.Mutex
}

// NewService creates a fully wired backup service.
func NewService(config *SystemConfig, blobs BlobStore, tenants TenantStore, meta MetadataStore, logger *logging.Logger) (*Service, error) {
	if config == nil {
		return nil, NewConfigurationError("backup system configuration is required", nil)
	}
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, NewConfigurationError("invalid backup system configuration", err)
	}

	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	codec := newDocumentCodec(config.Compression, &config.Encryption)
	retention := NewRetentionManager(blobs, meta, config.Retention.KeepCount, logger)
	exporter := NewExporter(tenants, logger)
	writer := NewWriter(blobs, meta, codec, retention, logger)

	return &Service{
		exporter:  exporter,
		writer:    writer,
		retention: retention,
		restore:   NewRestoreEngine(blobs, meta, tenants, codec, logger),
		verifier:  NewIntegrityVerifier(blobs, meta, codec, logger),
		scheduler: NewScheduleCoordinator(meta, exporter, writer, logger),
		meta:      meta,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// CreateBackup exports and persists a new snapshot for the organization.
func (s *Service) CreateBackup(ctx context.Context, organizationID string) (*SnapshotRecord, error) {
	unlock := s.lockTenant(organizationID)
	defer unlock()

	start := s.now()
	op := s.operationEntry("create_backup", organizationID)

	snapshot, err := s.exporter.Export(ctx, organizationID)
	if err != nil {
		s.logger.LogBackupOperation("create_backup", organizationID, time.Since(start), err)
		return nil, err
	}

	record, err := s.writer.Write(ctx, snapshot)
	s.logger.LogBackupOperation("create_backup", organizationID, time.Since(start), err)
	if err != nil {
		return record, err
	}

	op.WithField("snapshot_id", record.ID).Debug("Backup created")
	return record, nil
}

// RestoreBackup restores the organization's data from the identified snapshot.
func (s *Service) RestoreBackup(ctx context.Context, snapshotID, organizationID string) (*RestoreResult, error) {
	unlock := s.lockTenant(organizationID)
	defer unlock()

	start := s.now()
	result, err := s.restore.Restore(ctx, snapshotID, organizationID)
	s.logger.LogBackupOperation("restore_backup", organizationID, time.Since(start), err)
	return result, err
}

// ScheduleBackups creates or updates the organization's backup schedule.
func (s *Service) ScheduleBackups(ctx context.Context, config ScheduleConfig) (*ScheduleResult, error) {
	return s.scheduler.Configure(ctx, config)
}

// RunScheduledBackup executes the daily backup for the organization, returning
// the existing record unchanged when today's backup already completed.
func (s *Service) RunScheduledBackup(ctx context.Context, organizationID string) (*SnapshotRecord, error) {
	unlock := s.lockTenant(organizationID)
	defer unlock()

	start := s.now()
	record, alreadyRan, err := s.scheduler.RunDaily(ctx, organizationID)
	if !alreadyRan {
		s.logger.LogBackupOperation("scheduled_backup", organizationID, time.Since(start), err)
	}
	return record, err
}

// ListBackups returns the organization's snapshot records, newest first.
// A non-positive limit returns all records.
func (s *Service) ListBackups(ctx context.Context, organizationID string, limit int) ([]*SnapshotRecord, error) {
	if organizationID == "" {
		return nil, NewValidationError("organization ID is required", nil)
	}
	return s.meta.ListSnapshotRecords(ctx, organizationID, RecordFilter{Limit: limit})
}

// BackupStats summarizes the organization's backup history across all statuses.
func (s *Service) BackupStats(ctx context.Context, organizationID string) (*Stats, error) {
	if organizationID == "" {
		return nil, NewValidationError("organization ID is required", nil)
	}

	records, err := s.meta.ListSnapshotRecords(ctx, organizationID, RecordFilter{})
	if err != nil {
		return nil, NewDatabaseError("failed to list snapshots for stats", err)
	}

	stats := &Stats{Total: len(records)}
	if len(records) == 0 {
		return stats, nil
	}

	completed := 0
	for _, record := range records {
		if record.Status != SnapshotStatusCompleted {
			continue
		}
		completed++
		stats.TotalSize += record.Size
		if stats.LastBackup == nil || record.CreatedAt.After(*stats.LastBackup) {
			created := record.CreatedAt
			stats.LastBackup = &created
		}
	}
	stats.SuccessRate = float64(completed) / float64(len(records))

	return stats, nil
}

// VerifyIntegrity checks every completed snapshot of the organization.
func (s *Service) VerifyIntegrity(ctx context.Context, organizationID string) (*VerificationResult, error) {
	return s.verifier.VerifyTenant(ctx, organizationID)
}

// VerifySnapshot checks a single snapshot by identifier.
func (s *Service) VerifySnapshot(ctx context.Context, snapshotID, organizationID string) (*VerificationResult, error) {
	return s.verifier.VerifySnapshot(ctx, snapshotID, organizationID)
}

// RetentionManager exposes the retention manager for operator tooling.
func (s *Service) RetentionManager() *RetentionManager {
	return s.retention
}

// lockTenant serializes mutating operations per organization. Concurrent
// backups and restores for different tenants proceed independently.
func (s *Service) lockTenant(organizationID string) func() {
	actual, _ := s.locks.LoadOrStore(organizationID, &sync.Mutex{})
	mu := actual.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// operationEntry tags one service invocation's log entries with a correlation
// ID so interleaved per-tenant operations stay distinguishable in the log.
func (s *Service) operationEntry(operation, organizationID string) *logrus.Entry {
	return s.logger.WithFields(map[string]interface{}{
		"operation":       operation,
		"organization_id": organizationID,
		"correlation_id":  uuid.New().String(),
	})
}
