package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"tenant-backup-sync/internal/backup"

	"github.com/spf13/cobra"
)

var (
	listLimit  int
	listFormat string
)

// backupCmd represents the backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage tenant backups",
	Long: `Create, list, and inspect tenant backups.

Every backup covers one organization's rows across the configured business
tables. The snapshot document is serialized, optionally compressed and
encrypted, and uploaded to the configured storage provider. After a
successful backup the retention window is applied, keeping only the most
recent backups.

Examples:
  # Create a backup
  tenant-backup-sync backup create --org org-42

  # List backups
  tenant-backup-sync backup list --org org-42 --limit 10

  # Show backup statistics
  tenant-backup-sync backup stats --org org-42`,
}

// backupCreateCmd creates a new backup
var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new backup for an organization",
	Long: `Create a new backup of one organization's data.

The export reads each configured table in turn; a table that cannot be read
is recorded with zero rows and the backup continues with the remaining
tables. The resulting snapshot is uploaded and its metadata record is
persisted alongside it.`,
	RunE: runBackupCreate,
}

// backupListCmd lists existing backups
var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List an organization's backups",
	RunE:  runBackupList,
}

// backupStatsCmd summarizes backup history
var backupStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show backup statistics for an organization",
	RunE:  runBackupStats,
}

func init() {
	rootCmd.AddCommand(backupCmd)

	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupStatsCmd)

	backupCmd.PersistentFlags().StringVar(&organizationID, "org", "", "organization ID (required)")
	backupCmd.MarkPersistentFlagRequired("org")

	backupListCmd.Flags().IntVar(&listLimit, "limit", 50, "maximum number of backups to list")
	backupListCmd.Flags().StringVar(&listFormat, "format", "table", "output format (table, json)")
}

// runBackupCreate creates a new backup
func runBackupCreate(cmd *cobra.Command, args []string) error {
	service, cleanup, err := buildService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	printInfo("Creating backup for organization %s...", organizationID)

	record, err := service.CreateBackup(cmd.Context(), organizationID)
	if err != nil {
		return fmt.Errorf("backup creation failed: %w", err)
	}

	printSuccess("Backup created: %s", record.ID)
	printInfo("File: %s", record.Filename)
	printInfo("Size: %s", formatBytes(record.Size))
	printInfo("Records: %d across %d tables", record.RecordCount, len(record.Tables))
	printInfo("Created at: %s", record.CreatedAt.Format(time.RFC3339))

	return nil
}

// runBackupList lists existing backups
func runBackupList(cmd *cobra.Command, args []string) error {
	service, cleanup, err := buildService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	records, err := service.ListBackups(cmd.Context(), organizationID, listLimit)
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	switch listFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(records)
	case "table":
		return displayBackupTable(records)
	default:
		return fmt.Errorf("invalid output format %q, must be one of: table, json", listFormat)
	}
}

// runBackupStats summarizes backup history
func runBackupStats(cmd *cobra.Command, args []string) error {
	service, cleanup, err := buildService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	stats, err := service.BackupStats(cmd.Context(), organizationID)
	if err != nil {
		return fmt.Errorf("failed to compute backup statistics: %w", err)
	}

	printHeader(fmt.Sprintf("Backup statistics for %s", organizationID))
	printInfo("Total backups:  %d", stats.Total)
	printInfo("Total size:     %s", formatBytes(stats.TotalSize))
	printInfo("Success rate:   %.1f%%", stats.SuccessRate*100)
	if stats.LastBackup != nil {
		printInfo("Last backup:    %s", stats.LastBackup.Format(time.RFC3339))
	} else {
		printInfo("Last backup:    never")
	}

	return nil
}

// displayBackupTable renders snapshot records as an aligned text table
func displayBackupTable(records []*backup.SnapshotRecord) error {
	if len(records) == 0 {
		printInfo("No backups found for organization %s", organizationID)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tSTATUS\tSIZE\tRECORDS\tFILE")
	for _, record := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			record.ID,
			record.CreatedAt.Format("2006-01-02 15:04:05"),
			record.Status,
			formatBytes(record.Size),
			record.RecordCount,
			record.Filename)
	}
	return w.Flush()
}
