package backup

import (
	"time"
)

// TableName identifies one of the business tables covered by backup and restore.
type TableName string

const (
	TableCustomers          TableName = "customers"
	TableVehicles           TableName = "vehicles"
	TableQuotations         TableName = "quotations"
	TableWorkOrders         TableName = "work_orders"
	TableInvoices           TableName = "invoices"
	TableProducts           TableName = "products"
	TableInventoryMovements TableName = "inventory_movements"
	TableSuppliers          TableName = "suppliers"
	TablePurchaseOrders     TableName = "purchase_orders"
	TablePurchaseOrderItems TableName = "purchase_order_items"
	TableSystemUsers        TableName = "system_users"
	TableNotifications      TableName = "notifications"
	TableOrganizations      TableName = "organizations"
)

// ConfiguredTables returns the fixed, ordered table set included in every snapshot.
// The order is also the export and restore order.
func ConfiguredTables() []TableName {
	return []TableName{
		TableCustomers,
		TableVehicles,
		TableQuotations,
		TableWorkOrders,
		TableInvoices,
		TableProducts,
		TableInventoryMovements,
		TableSuppliers,
		TablePurchaseOrders,
		TablePurchaseOrderItems,
		TableSystemUsers,
		TableNotifications,
		TableOrganizations,
	}
}

// IsConfiguredTable reports whether name belongs to the configured table set.
func IsConfiguredTable(name TableName) bool {
	for _, t := range ConfiguredTables() {
		if t == name {
			return true
		}
	}
	return false
}

// Row is a single record read from or written to a tenant table.
type Row map[string]interface{}

// FormatVersion is the snapshot document format version written by this build.
const FormatVersion = "1.0"

// Snapshot is the in-memory full export of one tenant's configured tables at a
// point in time. It is transient; only its serialized form is persisted.
type Snapshot struct {
	OrganizationID string              `json:"organization_id"`
	CreatedAt      time.Time           `json:"created_at"`
	Tables         map[TableName][]Row `json:"tables"`
	Metadata       SnapshotMetadata    `json:"metadata"`
}

// SnapshotMetadata carries the record counts and format version of a snapshot.
type SnapshotMetadata struct {
	TotalRecords  int               `json:"total_records"`
	TableCounts   map[TableName]int `json:"table_counts"`
	FormatVersion string            `json:"format_version"`
}

// SnapshotStatus is the lifecycle status of a snapshot record.
type SnapshotStatus string

const (
	SnapshotStatusInProgress SnapshotStatus = "in_progress"
	SnapshotStatusCompleted  SnapshotStatus = "completed"
	SnapshotStatusFailed     SnapshotStatus = "failed"
)

func isValidSnapshotStatus(status SnapshotStatus) bool {
	switch status {
	case SnapshotStatusInProgress, SnapshotStatusCompleted, SnapshotStatusFailed:
		return true
	default:
		return false
	}
}

// SnapshotRecord is the persisted metadata row describing one snapshot's storage
// location, size, and outcome.
type SnapshotRecord struct {
	ID             string         `json:"id"`
	Filename       string         `json:"filename"`
	Size           int64          `json:"size"`
	OrganizationID string         `json:"organization_id"`
	Tables         []TableName    `json:"tables"`
	RecordCount    int            `json:"record_count"`
	Status         SnapshotStatus `json:"status"`
	Error          string         `json:"error,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// ScheduleConfig is the per-tenant backup schedule. One row per organization.
type ScheduleConfig struct {
	OrganizationID string     `json:"organization_id"`
	Frequency      string     `json:"frequency"`
	TimeOfDay      string     `json:"time_of_day"`
	Timezone       string     `json:"timezone"`
	Enabled        bool       `json:"enabled"`
	LastRun        *time.Time `json:"last_run,omitempty"`
	NextRun        *time.Time `json:"next_run,omitempty"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// RecordFilter narrows snapshot record listings.
type RecordFilter struct {
	Status *SnapshotStatus
	Limit  int
}

// RestoreResult reports the outcome of a restore operation.
type RestoreResult struct {
	Message        string      `json:"message"`
	RestoredTables []TableName `json:"restored_tables"`
}

// RetentionResult reports the outcome of a retention pass.
type RetentionResult struct {
	Examined int      `json:"examined"`
	Deleted  int      `json:"deleted"`
	Issues   []string `json:"issues,omitempty"`
}

// VerificationResult reports the outcome of an integrity check.
type VerificationResult struct {
	IsValid   bool      `json:"is_valid"`
	Verified  int       `json:"verified"`
	Total     int       `json:"total"`
	Issues    []string  `json:"issues,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Stats summarizes a tenant's backup history.
type Stats struct {
	Total       int        `json:"total"`
	TotalSize   int64      `json:"total_size"`
	LastBackup  *time.Time `json:"last_backup,omitempty"`
	SuccessRate float64    `json:"success_rate"`
}

// ScheduleResult is returned by schedule configuration calls.
type ScheduleResult struct {
	Message  string `json:"message"`
	Schedule string `json:"schedule"`
}
