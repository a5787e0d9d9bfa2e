package backup

import (
	"context"
	"fmt"
	"time"

	"tenant-backup-sync/internal/logging"
)

// ScheduleCoordinator decides whether a tenant's daily backup has already run
// and computes the next run time. It does not self-schedule; an external
// trigger (cron or operator tooling) invokes RunDaily.
type ScheduleCoordinator struct {
	meta     MetadataStore
	exporter *Exporter
	writer   *Writer
	logger   *logging.Logger
	now      func() time.Time
}

// NewScheduleCoordinator creates a new schedule coordinator.
func NewScheduleCoordinator(meta MetadataStore, exporter *Exporter, writer *Writer, logger *logging.Logger) *ScheduleCoordinator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &ScheduleCoordinator{
		meta:     meta,
		exporter: exporter,
		writer:   writer,
		logger:   logger,
		now:      time.Now,
	}
}

// RunDaily executes the tenant's daily backup exactly once per calendar day in
// the schedule's timezone (UTC when no schedule exists). When a completed
// snapshot already exists for today it is returned unchanged and no new blob is
// created.
func (sc *ScheduleCoordinator) RunDaily(ctx context.Context, organizationID string) (*SnapshotRecord, bool, error) {
	if organizationID == "" {
		return nil, false, NewValidationError("organization ID is required", nil)
	}

	schedule, err := sc.meta.GetScheduleConfig(ctx, organizationID)
	if err != nil {
		// A missing schedule row comes back as (nil, nil); an error here is a
		// real database failure. The run still proceeds with a UTC day boundary.
		sc.logger.WithFields(map[string]interface{}{
			"organization_id": organizationID,
			"error":           err.Error(),
		}).Warn("Failed to load schedule, using UTC day boundary")
		schedule = nil
	}
	loc := schedule.Location()

	if existing, err := sc.todaysRecord(ctx, organizationID, loc); err != nil {
		return nil, false, err
	} else if existing != nil {
		sc.logger.WithFields(map[string]interface{}{
			"organization_id": organizationID,
			"snapshot_id":     existing.ID,
		}).Info("Daily backup already completed, skipping")
		return existing, true, nil
	}

	snapshot, err := sc.exporter.Export(ctx, organizationID)
	if err != nil {
		return nil, false, err
	}

	record, err := sc.writer.Write(ctx, snapshot)
	if err != nil {
		return record, false, err
	}

	if schedule != nil {
		sc.markRun(ctx, schedule)
	}

	return record, false, nil
}

// Configure validates and persists the tenant's schedule, computing the next run
// as tomorrow at the configured time in the configured timezone.
func (sc *ScheduleCoordinator) Configure(ctx context.Context, config ScheduleConfig) (*ScheduleResult, error) {
	if config.Frequency == "" {
		config.Frequency = "daily"
	}
	if config.Timezone == "" {
		config.Timezone = "UTC"
	}
	if config.TimeOfDay == "" {
		config.TimeOfDay = "02:00"
	}

	if err := config.Validate(); err != nil {
		return nil, NewValidationError("invalid schedule configuration", err)
	}

	now := sc.now()
	next := NextRunTime(now, config.TimeOfDay, config.Location())
	config.NextRun = &next
	config.IsActive = config.Enabled
	config.UpdatedAt = now.UTC()
	if config.CreatedAt.IsZero() {
		config.CreatedAt = config.UpdatedAt
	}

	if err := sc.meta.UpsertScheduleConfig(ctx, &config); err != nil {
		return nil, NewDatabaseError("failed to save schedule configuration", err)
	}

	description := fmt.Sprintf("%s at %s %s", config.Frequency, config.TimeOfDay, config.Timezone)
	if !config.Enabled {
		description += " (disabled)"
	}

	sc.logger.WithFields(map[string]interface{}{
		"organization_id": config.OrganizationID,
		"schedule":        description,
		"next_run":        next.Format(time.RFC3339),
	}).Info("Backup schedule saved")

	return &ScheduleResult{
		Message:  "Backup schedule saved",
		Schedule: description,
	}, nil
}

// todaysRecord returns the completed snapshot created today in loc, if any.
func (sc *ScheduleCoordinator) todaysRecord(ctx context.Context, organizationID string, loc *time.Location) (*SnapshotRecord, error) {
	completed := SnapshotStatusCompleted
	records, err := sc.meta.ListSnapshotRecords(ctx, organizationID, RecordFilter{Status: &completed, Limit: 1})
	if err != nil {
		return nil, NewDatabaseError("failed to check for an existing backup today", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	latest := records[0]
	if sameCalendarDay(latest.CreatedAt, sc.now(), loc) {
		return latest, nil
	}
	return nil, nil
}

// markRun advances the schedule's bookkeeping after a successful run. Failures
// here are logged only; the backup itself already succeeded.
func (sc *ScheduleCoordinator) markRun(ctx context.Context, schedule *ScheduleConfig) {
	now := sc.now()
	next := NextRunTime(now, schedule.TimeOfDay, schedule.Location())

	schedule.LastRun = &now
	schedule.NextRun = &next
	schedule.UpdatedAt = now.UTC()

	if err := sc.meta.UpsertScheduleConfig(ctx, schedule); err != nil {
		sc.logger.WithFields(map[string]interface{}{
			"organization_id": schedule.OrganizationID,
			"error":           err.Error(),
		}).Warn("Failed to update schedule after run")
	}
}

// NextRunTime computes tomorrow at the configured clock time in loc.
func NextRunTime(now time.Time, timeOfDay string, loc *time.Location) time.Time {
	clock, err := ParseTimeOfDay(timeOfDay)
	if err != nil {
		clock = [2]int{2, 0}
	}

	local := now.In(loc)
	tomorrow := local.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), clock[0], clock[1], 0, 0, loc)
}

func sameCalendarDay(a, b time.Time, loc *time.Location) bool {
	al, bl := a.In(loc), b.In(loc)
	return al.Year() == bl.Year() && al.YearDay() == bl.YearDay()
}
