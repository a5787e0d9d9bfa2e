package backup

import (
	"context"
	"fmt"

	"tenant-backup-sync/internal/logging"
)

// RetentionManager enforces the keep-most-recent-N window on completed
// snapshots: older snapshots lose their blob first, then their metadata row.
type RetentionManager struct {
	blobs  BlobStore
	meta   MetadataStore
	keep   int
	logger *logging.Logger
}

// NewRetentionManager creates a retention manager keeping the most recent
// keepCount completed snapshots per tenant. A non-positive keepCount falls back
// to the default window.
func NewRetentionManager(blobs BlobStore, meta MetadataStore, keepCount int, logger *logging.Logger) *RetentionManager {
	if keepCount <= 0 {
		keepCount = DefaultKeepCount
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &RetentionManager{
		blobs:  blobs,
		meta:   meta,
		keep:   keepCount,
		logger: logger,
	}
}

// KeepCount returns the configured retention window.
func (rm *RetentionManager) KeepCount() int {
	return rm.keep
}

// Apply deletes every completed snapshot beyond the retention window for the
// organization. Deletions are independent: one snapshot failing to delete is
// reported as an issue and does not block the others.
func (rm *RetentionManager) Apply(ctx context.Context, organizationID string) (*RetentionResult, error) {
	if organizationID == "" {
		return nil, NewValidationError("organization ID is required", nil)
	}

	completed := SnapshotStatusCompleted
	records, err := rm.meta.ListSnapshotRecords(ctx, organizationID, RecordFilter{Status: &completed})
	if err != nil {
		return nil, NewDatabaseError("failed to list snapshots for retention", err)
	}

	result := &RetentionResult{Examined: len(records)}
	if len(records) <= rm.keep {
		return result, nil
	}

	// Records are ordered newest first; everything past the window goes.
	for _, record := range records[rm.keep:] {
		if err := rm.blobs.Remove(ctx, record.Filename); err != nil {
			issue := fmt.Sprintf("failed to remove blob for snapshot %s: %v", record.ID, err)
			result.Issues = append(result.Issues, issue)
			rm.logger.LogStorageOperation(rm.blobs.Provider(), "remove", record.Filename, record.Size, err)
			continue
		}

		if err := rm.meta.DeleteSnapshotRecord(ctx, record.ID, organizationID); err != nil {
			issue := fmt.Sprintf("failed to delete record for snapshot %s: %v", record.ID, err)
			result.Issues = append(result.Issues, issue)
			rm.logger.WithFields(map[string]interface{}{
				"snapshot_id": record.ID,
				"error":       err.Error(),
			}).Warn("Retention could not delete snapshot record")
			continue
		}

		result.Deleted++
		rm.logger.WithFields(map[string]interface{}{
			"organization_id": organizationID,
			"snapshot_id":     record.ID,
			"filename":        record.Filename,
		}).Info("Expired snapshot deleted")
	}

	return result, nil
}
