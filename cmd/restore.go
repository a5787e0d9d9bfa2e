package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var restoreOrg string

// restoreCmd restores an organization's data from a stored backup
var restoreCmd = &cobra.Command{
	Use:   "restore <backup-id>",
	Short: "Restore an organization's data from a backup",
	Long: `Restore an organization's data from a completed backup.

The stored snapshot is downloaded, decoded, and validated before any data is
touched: a snapshot that belongs to a different organization, or one without
usable table data, aborts the restore with no changes. Each table is then
replaced with the snapshot's rows; a table that fails to restore is skipped
and the remaining tables are still processed.

Examples:
  tenant-backup-sync restore 1717405200000 --org org-42`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)

	restoreCmd.Flags().StringVar(&restoreOrg, "org", "", "organization ID (required)")
	restoreCmd.MarkFlagRequired("org")
}

func runRestore(cmd *cobra.Command, args []string) error {
	snapshotID := args[0]

	service, cleanup, err := buildService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	printInfo("Restoring backup %s for organization %s...", snapshotID, restoreOrg)

	result, err := service.RestoreBackup(cmd.Context(), snapshotID, restoreOrg)
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	printSuccess("%s", result.Message)
	for _, table := range result.RestoredTables {
		printInfo("  restored %s", table)
	}

	return nil
}
