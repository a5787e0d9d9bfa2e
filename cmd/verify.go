package cmd

import (
	"fmt"

	"tenant-backup-sync/internal/backup"

	"github.com/spf13/cobra"
)

var verifyOrg string

// verifyCmd checks stored backups against their metadata records
var verifyCmd = &cobra.Command{
	Use:   "verify [backup-id]",
	Short: "Verify stored backups against their metadata",
	Long: `Verify that stored backups are intact and consistent with their
metadata records.

Without an argument every completed backup of the organization is checked:
the stored document must exist, decode, parse, and belong to the expected
organization. With a backup ID only that backup is checked. Verification is
read-only and never modifies records or stored documents.

Examples:
  # Verify all completed backups
  tenant-backup-sync verify --org org-42

  # Verify a single backup
  tenant-backup-sync verify 1717405200000 --org org-42`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyOrg, "org", "", "organization ID (required)")
	verifyCmd.MarkFlagRequired("org")
}

func runVerify(cmd *cobra.Command, args []string) error {
	service, cleanup, err := buildService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	var result *backup.VerificationResult
	if len(args) == 1 {
		result, err = service.VerifySnapshot(cmd.Context(), args[0], verifyOrg)
	} else {
		result, err = service.VerifyIntegrity(cmd.Context(), verifyOrg)
	}
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	if result.IsValid {
		printSuccess("Verified %d of %d backups, no issues found", result.Verified, result.Total)
		return nil
	}

	printWarning("Verified %d of %d backups, %d issue(s) found:", result.Verified, result.Total, len(result.Issues))
	for _, issue := range result.Issues {
		printWarning("  %s", issue)
	}

	return fmt.Errorf("backup verification found %d issue(s)", len(result.Issues))
}
