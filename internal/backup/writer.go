package backup

import (
	"context"
	"time"

	"tenant-backup-sync/internal/logging"
)

// Writer serializes a Snapshot, uploads it via the blob store, and records the
// outcome in the metadata store. A successful write triggers a retention pass.
type Writer struct {
	blobs     BlobStore
	meta      MetadataStore
	codec     *documentCodec
	retention *RetentionManager
	logger    *logging.Logger
	now       func() time.Time
}

// NewWriter creates a new snapshot writer.
func NewWriter(blobs BlobStore, meta MetadataStore, codec *documentCodec, retention *RetentionManager, logger *logging.Logger) *Writer {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &Writer{
		blobs:     blobs,
		meta:      meta,
		codec:     codec,
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

// Write persists the snapshot. The record is inserted as in_progress before the
// upload so a failure anywhere in the sequence stays observable in the metadata
// store: on error the record is finalized as failed with the error text.
func (w *Writer) Write(ctx context.Context, snapshot *Snapshot) (*SnapshotRecord, error) {
	if snapshot == nil {
		return nil, NewValidationError("snapshot cannot be nil", nil)
	}
	if snapshot.OrganizationID == "" {
		return nil, NewValidationError("snapshot is missing its organization ID", nil)
	}

	record := &SnapshotRecord{
		ID:             SnapshotIDFromTime(snapshot.CreatedAt),
		Filename:       SnapshotFilename(snapshot.CreatedAt),
		OrganizationID: snapshot.OrganizationID,
		Tables:         ConfiguredTables(),
		RecordCount:    snapshot.Metadata.TotalRecords,
		Status:         SnapshotStatusInProgress,
		CreatedAt:      snapshot.CreatedAt,
		UpdatedAt:      w.now().UTC(),
	}

	if err := w.meta.InsertSnapshotRecord(ctx, record); err != nil {
		return nil, NewDatabaseError("failed to record snapshot attempt", err)
	}

	payload, ext, err := w.encode(snapshot)
	if err != nil {
		return record, w.fail(ctx, record, err)
	}
	record.Filename += ext
	record.Size = int64(len(payload))

	if err := w.blobs.Upload(ctx, record.Filename, payload); err != nil {
		uploadErr := NewStorageError("failed to upload snapshot", err)
		w.logger.LogStorageOperation(w.blobs.Provider(), "upload", record.Filename, record.Size, err)
		return record, w.fail(ctx, record, uploadErr)
	}
	w.logger.LogStorageOperation(w.blobs.Provider(), "upload", record.Filename, record.Size, nil)

	record.Status = SnapshotStatusCompleted
	record.UpdatedAt = w.now().UTC()
	if err := w.meta.UpdateSnapshotRecord(ctx, record); err != nil {
		return record, NewDatabaseError("failed to finalize snapshot record", err)
	}

	// Housekeeping only: retention problems never fail the write.
	if w.retention != nil {
		if result, err := w.retention.Apply(ctx, snapshot.OrganizationID); err != nil {
			w.logger.WithField("error", err.Error()).Warn("Retention pass failed after backup")
		} else if result.Deleted > 0 {
			w.logger.WithFields(map[string]interface{}{
				"organization_id": snapshot.OrganizationID,
				"deleted":         result.Deleted,
			}).Info("Retention pass removed expired snapshots")
		}
	}

	return record, nil
}

func (w *Writer) encode(snapshot *Snapshot) ([]byte, string, error) {
	data, err := snapshot.ToJSON()
	if err != nil {
		return nil, "", err
	}
	return w.codec.Encode(data)
}

// fail finalizes the record as failed, keeping the original error as the result.
func (w *Writer) fail(ctx context.Context, record *SnapshotRecord, cause error) error {
	record.Status = SnapshotStatusFailed
	record.Error = cause.Error()
	record.UpdatedAt = w.now().UTC()

	if err := w.meta.UpdateSnapshotRecord(ctx, record); err != nil {
		w.logger.WithFields(map[string]interface{}{
			"snapshot_id": record.ID,
			"error":       err.Error(),
		}).Error("Failed to record snapshot failure")
	}

	return cause
}
