package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"tenant-backup-sync/internal/backup"
	"tenant-backup-sync/internal/errors"
	"tenant-backup-sync/internal/logging"
)

// TenantStore provides tenant-filtered access to the business tables over a
// MySQL connection. It implements backup.TenantStore and backup.TableReplacer.
type TenantStore struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewTenantStore creates a tenant store over an open database handle
func NewTenantStore(db *sql.DB, logger *logging.Logger) *TenantStore {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &TenantStore{db: db, logger: logger}
}

// tenantColumn returns the column that scopes a table to an organization. The
// organizations table is keyed by its own id; every other table carries an
// organization_id foreign key.
func tenantColumn(table backup.TableName) string {
	if table == backup.TableOrganizations {
		return "id"
	}
	return "organization_id"
}

// SelectRows reads all of one tenant's rows from a table
func (ts *TenantStore) SelectRows(ctx context.Context, table backup.TableName, organizationID string) ([]backup.Row, error) {
	if !backup.IsConfiguredTable(table) {
		return nil, errors.NewAppError(errors.ErrorTypeValidation,
			fmt.Sprintf("table %s is not part of the configured table set", table), nil)
	}
	if organizationID == "" {
		return nil, errors.NewAppError(errors.ErrorTypeValidation, "organization ID cannot be empty", nil)
	}

	query := fmt.Sprintf("SELECT * FROM `%s` WHERE `%s` = ?", table, tenantColumn(table))

	rows, err := ts.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, errors.WrapError(err, fmt.Sprintf("failed to query table %s", table))
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.WrapError(err, fmt.Sprintf("failed to read columns of table %s", table))
	}

	var result []backup.Row
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, errors.WrapError(err, fmt.Sprintf("failed to scan row from table %s", table))
		}

		row := make(backup.Row, len(columns))
		for i, column := range columns {
			// The MySQL driver returns []byte for text columns; convert so the
			// serialized snapshot carries strings instead of base64 blobs.
			if b, ok := values[i].([]byte); ok {
				row[column] = string(b)
			} else {
				row[column] = values[i]
			}
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.WrapError(err, fmt.Sprintf("failed to iterate rows of table %s", table))
	}

	return result, nil
}

// DeleteRows removes all of one tenant's rows from a table
func (ts *TenantStore) DeleteRows(ctx context.Context, table backup.TableName, organizationID string) error {
	if !backup.IsConfiguredTable(table) {
		return errors.NewAppError(errors.ErrorTypeValidation,
			fmt.Sprintf("table %s is not part of the configured table set", table), nil)
	}
	if organizationID == "" {
		return errors.NewAppError(errors.ErrorTypeValidation, "organization ID cannot be empty", nil)
	}

	query := fmt.Sprintf("DELETE FROM `%s` WHERE `%s` = ?", table, tenantColumn(table))

	result, err := ts.db.ExecContext(ctx, query, organizationID)
	if err != nil {
		return errors.WrapError(err, fmt.Sprintf("failed to delete rows from table %s", table))
	}

	affected, _ := result.RowsAffected()
	ts.logger.LogTableOperation("delete", string(table), int(affected), nil)

	return nil
}

// InsertRows writes rows into a table. The rows are expected to already carry
// their tenant scoping column.
func (ts *TenantStore) InsertRows(ctx context.Context, table backup.TableName, rows []backup.Row) error {
	if !backup.IsConfiguredTable(table) {
		return errors.NewAppError(errors.ErrorTypeValidation,
			fmt.Sprintf("table %s is not part of the configured table set", table), nil)
	}
	if len(rows) == 0 {
		return nil
	}

	return ts.insertRowsExec(ctx, ts.db, table, rows)
}

// ReplaceRows replaces one tenant's rows in a table inside a single transaction.
// Either the table ends up holding exactly the provided rows for the tenant, or
// it is left untouched.
func (ts *TenantStore) ReplaceRows(ctx context.Context, table backup.TableName, organizationID string, rows []backup.Row) error {
	if !backup.IsConfiguredTable(table) {
		return errors.NewAppError(errors.ErrorTypeValidation,
			fmt.Sprintf("table %s is not part of the configured table set", table), nil)
	}
	if organizationID == "" {
		return errors.NewAppError(errors.ErrorTypeValidation, "organization ID cannot be empty", nil)
	}

	tx, err := ts.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapError(err, "failed to begin transaction")
	}

	deleteQuery := fmt.Sprintf("DELETE FROM `%s` WHERE `%s` = ?", table, tenantColumn(table))
	if _, err := tx.ExecContext(ctx, deleteQuery, organizationID); err != nil {
		tx.Rollback()
		return errors.WrapError(err, fmt.Sprintf("failed to delete rows from table %s", table))
	}

	if len(rows) > 0 {
		if err := ts.insertRowsExec(ctx, tx, table, rows); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.WrapError(err, fmt.Sprintf("failed to commit replacement of table %s", table))
	}

	ts.logger.LogTableOperation("replace", string(table), len(rows), nil)
	return nil
}

// execer covers both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (ts *TenantStore) insertRowsExec(ctx context.Context, ex execer, table backup.TableName, rows []backup.Row) error {
	columns := rowColumns(rows[0])
	if len(columns) == 0 {
		return errors.NewAppError(errors.ErrorTypeValidation,
			fmt.Sprintf("rows for table %s have no columns", table), nil)
	}

	quoted := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = "`" + column + "`"
	}
	placeholderRow := "(" + strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",") + ")"

	// Insert in batches to stay under the MySQL placeholder limit.
	const batchSize = 500
	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		placeholders := make([]string, len(batch))
		args := make([]interface{}, 0, len(batch)*len(columns))
		for i, row := range batch {
			placeholders[i] = placeholderRow
			for _, column := range columns {
				args = append(args, row[column])
			}
		}

		query := fmt.Sprintf("INSERT INTO `%s` (%s) VALUES %s",
			table, strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

		if _, err := ex.ExecContext(ctx, query, args...); err != nil {
			return errors.WrapError(err, fmt.Sprintf("failed to insert rows into table %s", table))
		}
	}

	return nil
}

// rowColumns returns a row's column names in stable order
func rowColumns(row backup.Row) []string {
	columns := make([]string, 0, len(row))
	for column := range row {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}
