package cmd

import (
	"fmt"
	"time"

	"tenant-backup-sync/internal/backup"

	"github.com/spf13/cobra"
)

var (
	scheduleOrg      string
	scheduleTime     string
	scheduleTimezone string
	scheduleDisabled bool
)

// scheduleCmd manages per-tenant backup schedules
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage automatic backup schedules",
	Long: `Configure and run per-organization backup schedules.

Each organization has at most one schedule. The daily run is idempotent: if
today's backup already completed in the schedule's timezone, running it again
returns the existing backup instead of creating a new one.

Examples:
  # Configure a daily 02:00 backup in a specific timezone
  tenant-backup-sync schedule set --org org-42 --time 02:00 --timezone America/Mexico_City

  # Execute the scheduled backup (typically from cron)
  tenant-backup-sync schedule run --org org-42`,
}

// scheduleSetCmd creates or updates a schedule
var scheduleSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Create or update an organization's backup schedule",
	RunE:  runScheduleSet,
}

// scheduleRunCmd executes the daily scheduled backup
var scheduleRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduled daily backup for an organization",
	RunE:  runScheduleRun,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.AddCommand(scheduleSetCmd)
	scheduleCmd.AddCommand(scheduleRunCmd)

	scheduleCmd.PersistentFlags().StringVar(&scheduleOrg, "org", "", "organization ID (required)")
	scheduleCmd.MarkPersistentFlagRequired("org")

	scheduleSetCmd.Flags().StringVar(&scheduleTime, "time", "02:00", "time of day for the daily backup (HH:MM)")
	scheduleSetCmd.Flags().StringVar(&scheduleTimezone, "timezone", "UTC", "IANA timezone for the schedule")
	scheduleSetCmd.Flags().BoolVar(&scheduleDisabled, "disabled", false, "create the schedule in a disabled state")
}

func runScheduleSet(cmd *cobra.Command, args []string) error {
	service, cleanup, err := buildService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := service.ScheduleBackups(cmd.Context(), backup.ScheduleConfig{
		OrganizationID: scheduleOrg,
		Frequency:      "daily",
		TimeOfDay:      scheduleTime,
		Timezone:       scheduleTimezone,
		Enabled:        !scheduleDisabled,
		IsActive:       !scheduleDisabled,
	})
	if err != nil {
		return fmt.Errorf("failed to configure schedule: %w", err)
	}

	printSuccess("%s", result.Message)
	printInfo("Schedule: %s", result.Schedule)

	return nil
}

func runScheduleRun(cmd *cobra.Command, args []string) error {
	service, cleanup, err := buildService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	record, err := service.RunScheduledBackup(cmd.Context(), scheduleOrg)
	if err != nil {
		return fmt.Errorf("scheduled backup failed: %w", err)
	}

	printSuccess("Backup %s is current for today", record.ID)
	printInfo("Created at: %s", record.CreatedAt.Format(time.RFC3339))
	printInfo("Size: %s", formatBytes(record.Size))

	return nil
}
