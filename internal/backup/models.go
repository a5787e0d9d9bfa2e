package backup

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SnapshotIDFromTime derives a snapshot identifier from its creation timestamp.
func SnapshotIDFromTime(t time.Time) string {
	return strconv.FormatInt(t.UTC().UnixMilli(), 10)
}

// SnapshotFilename builds the blob key for a snapshot created at t. The key is
// the RFC3339 timestamp with colons and dots replaced by dashes so it stays safe
// across all storage backends.
func SnapshotFilename(t time.Time) string {
	stamp := t.UTC().Format("2006-01-02T15:04:05.000Z")
	stamp = strings.ReplaceAll(stamp, ":", "-")
	stamp = strings.ReplaceAll(stamp, ".", "-")
	return fmt.Sprintf("backup-%s.json", stamp)
}

// NewSnapshot creates an empty snapshot shell for an organization.
func NewSnapshot(organizationID string, createdAt time.Time) *Snapshot {
	return &Snapshot{
		OrganizationID: organizationID,
		CreatedAt:      createdAt,
		Tables:         make(map[TableName][]Row),
		Metadata: SnapshotMetadata{
			TableCounts:   make(map[TableName]int),
			FormatVersion: FormatVersion,
		},
	}
}

// ToJSON serializes the Snapshot document.
func (s *Snapshot) ToJSON() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, NewValidationError("failed to marshal snapshot document", err)
	}
	return data, nil
}

// SnapshotFromJSON parses a serialized snapshot document. Structural problems
// surface as corruption errors so callers can distinguish them from I/O failures.
func SnapshotFromJSON(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, NewCorruptionError("failed to parse snapshot document", err)
	}
	return &s, nil
}

// ValidateForRestore checks the pre-mutation restore invariants: a creation
// timestamp must be present, the embedded tenant must match the requesting one,
// and the table mapping must not be empty. Any failure here aborts the restore
// before a single row is touched.
func (s *Snapshot) ValidateForRestore(organizationID string) error {
	if s.CreatedAt.IsZero() {
		return NewValidationError("snapshot is missing its creation timestamp", nil)
	}
	if s.OrganizationID != organizationID {
		return NewValidationError("Backup organization mismatch", nil).
			WithContext("snapshot_organization", s.OrganizationID).
			WithContext("requested_organization", organizationID)
	}
	if len(s.Tables) == 0 {
		return NewValidationError("snapshot contains no table data", nil)
	}
	return nil
}

// Validate validates the SnapshotRecord struct
func (r *SnapshotRecord) Validate() error {
	var errs ValidationErrors

	if r.ID == "" {
		errs.Add("id", "snapshot record ID is required", r.ID)
	}
	if r.Filename == "" {
		errs.Add("filename", "storage filename is required", r.Filename)
	}
	if r.OrganizationID == "" {
		errs.Add("organization_id", "organization ID is required", r.OrganizationID)
	}
	if r.Size < 0 {
		errs.Add("size", "snapshot size cannot be negative", r.Size)
	}
	if r.RecordCount < 0 {
		errs.Add("record_count", "record count cannot be negative", r.RecordCount)
	}
	if r.Status == "" {
		errs.Add("status", "snapshot status is required", r.Status)
	} else if !isValidSnapshotStatus(r.Status) {
		errs.Add("status", "invalid snapshot status", r.Status)
	}
	for _, t := range r.Tables {
		if !IsConfiguredTable(t) {
			errs.Add("tables", "unknown table name", t)
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Validate validates the ScheduleConfig struct
func (c *ScheduleConfig) Validate() error {
	var errs ValidationErrors

	if c.OrganizationID == "" {
		errs.Add("organization_id", "organization ID is required", c.OrganizationID)
	}
	if c.Frequency != "daily" {
		errs.Add("frequency", "only daily schedules are supported", c.Frequency)
	}
	if _, err := ParseTimeOfDay(c.TimeOfDay); err != nil {
		errs.Add("time_of_day", "time of day must be HH:MM", c.TimeOfDay)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs.Add("timezone", "unknown timezone", c.Timezone)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Location resolves the schedule's timezone, falling back to UTC.
func (c *ScheduleConfig) Location() *time.Location {
	if c == nil || c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ParseTimeOfDay parses an "HH:MM" clock time into hour and minute.
func ParseTimeOfDay(value string) ([2]int, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(value, "%d:%d", &hour, &minute); err != nil {
		return [2]int{}, fmt.Errorf("invalid time of day %q: %w", value, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return [2]int{}, fmt.Errorf("time of day %q out of range", value)
	}
	return [2]int{hour, minute}, nil
}
