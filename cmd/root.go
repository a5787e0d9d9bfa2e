package cmd

import (
	"fmt"
	"os"
	"time"

	"tenant-backup-sync/internal/backup"
	"tenant-backup-sync/internal/database"
	"tenant-backup-sync/internal/logging"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// CLI flag variables
var (
	// Database connection flags
	dbHost     string
	dbPort     int
	dbUsername string
	dbPassword string
	dbDatabase string

	// Operation flags
	organizationID string
	verbose        bool
	quiet          bool
	timeout        time.Duration
	logFile        string
	promptPass     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tenant-backup-sync",
	Short: "Per-tenant backup and restore for the shop management database",
	Long: `Tenant Backup Sync manages point-in-time backups of a multi-tenant
shop management database. Each backup captures one organization's rows across
the configured business tables, serializes them into a single snapshot
document, and stores it on the configured storage provider (local disk, S3,
Azure Blob Storage, or Google Cloud Storage).

Examples:
  # Create a backup for one organization
  tenant-backup-sync backup create --org org-42

  # List an organization's backups
  tenant-backup-sync backup list --org org-42

  # Restore a backup
  tenant-backup-sync restore 1717405200000 --org org-42

  # Configure and run the daily schedule
  tenant-backup-sync schedule set --org org-42 --time 02:00 --timezone America/Mexico_City
  tenant-backup-sync schedule run --org org-42

  # Verify stored backups against their metadata
  tenant-backup-sync verify --org org-42`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tenant-backup-sync.yaml)")

	// Database connection flags
	rootCmd.PersistentFlags().StringVar(&dbHost, "db-host", "", "tenant database host")
	rootCmd.PersistentFlags().IntVar(&dbPort, "db-port", 3306, "tenant database port")
	rootCmd.PersistentFlags().StringVar(&dbUsername, "db-user", "", "tenant database username")
	rootCmd.PersistentFlags().StringVar(&dbPassword, "db-password", "", "tenant database password")
	rootCmd.PersistentFlags().StringVar(&dbDatabase, "db-name", "", "tenant database name")
	rootCmd.PersistentFlags().BoolVar(&promptPass, "prompt-password", false, "prompt for the database password instead of reading it from flags or config")

	// Operation flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "database operation timeout")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to file instead of stderr")

	// Bind flags to viper
	viper.BindPFlag("database.host", rootCmd.PersistentFlags().Lookup("db-host"))
	viper.BindPFlag("database.port", rootCmd.PersistentFlags().Lookup("db-port"))
	viper.BindPFlag("database.username", rootCmd.PersistentFlags().Lookup("db-user"))
	viper.BindPFlag("database.password", rootCmd.PersistentFlags().Lookup("db-password"))
	viper.BindPFlag("database.database", rootCmd.PersistentFlags().Lookup("db-name"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))

	rootCmd.AddCommand(createVersionCommand())
	rootCmd.AddCommand(createConfigCommand())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".tenant-backup-sync")
	}

	viper.SetEnvPrefix("TENANT_BACKUP")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// validateFlags validates CLI flags and their combinations
func validateFlags() error {
	if verbose && quiet {
		return fmt.Errorf("--verbose and --quiet flags are mutually exclusive")
	}
	if timeout <= 0 {
		return fmt.Errorf("timeout must be greater than 0")
	}
	return nil
}

// buildLogger builds the application logger from CLI flags
func buildLogger() (*logging.Logger, error) {
	level := logging.LogLevelNormal
	if verbose {
		level = logging.LogLevelVerbose
	}
	if quiet {
		level = logging.LogLevelQuiet
	}

	return logging.NewLogger(logging.Config{
		Level:   level,
		LogFile: logFile,
	})
}

// buildDatabaseConfig builds the tenant database configuration from viper state
// and CLI flag overrides
func buildDatabaseConfig() (*database.Config, error) {
	config := &database.Config{
		Host:     viper.GetString("database.host"),
		Port:     viper.GetInt("database.port"),
		Username: viper.GetString("database.username"),
		Password: viper.GetString("database.password"),
		Database: viper.GetString("database.database"),
		Timeout:  timeout,
	}
	config.SetDefaults()

	if dbHost != "" {
		config.Host = dbHost
	}
	if dbUsername != "" {
		config.Username = dbUsername
	}
	if dbPassword != "" {
		config.Password = dbPassword
	}
	if dbDatabase != "" {
		config.Database = dbDatabase
	}

	if promptPass {
		password, err := promptPassword(fmt.Sprintf("Password for %s@%s: ", config.Username, config.Host))
		if err != nil {
			return nil, err
		}
		config.Password = password
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// buildService wires the backup service from configuration: database connection,
// tenant and metadata stores, blob store, and the service facade. The returned
// cleanup function closes the database connection.
func buildService(cmd *cobra.Command) (*backup.Service, func(), error) {
	if err := validateFlags(); err != nil {
		return nil, nil, err
	}

	logger, err := buildLogger()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	systemConfig, err := backup.NewConfigLoader(viper.GetString("backup_config")).LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("backup configuration error: %w", err)
	}

	dbConfig, err := buildDatabaseConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("database configuration error: %w", err)
	}

	dbService := database.NewServiceWithLogger(logger)
	db, err := dbService.Connect(*dbConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	cleanup := func() { dbService.Close(db) }

	metaStore := database.NewMetadataStore(db, logger)
	if err := metaStore.EnsureSchema(cmd.Context()); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to prepare metadata schema: %w", err)
	}

	blobStore, err := backup.NewBlobStoreFactory().CreateBlobStore(cmd.Context(), systemConfig.Storage)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to create storage provider: %w", err)
	}

	service, err := backup.NewService(systemConfig, blobStore, database.NewTenantStore(db, logger), metaStore, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to initialize backup service: %w", err)
	}

	return service, cleanup, nil
}

// Version information (set by main package)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// SetVersionInfo sets the version information from build flags
func SetVersionInfo(v, bt, gc string) {
	version = v
	buildTime = bt
	gitCommit = gc
}

// createVersionCommand creates the version subcommand
func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tenant-backup-sync version %s\n", version)
			fmt.Printf("Built: %s\n", buildTime)
			fmt.Printf("Commit: %s\n", gitCommit)
		},
	}
}

// createConfigCommand creates the config subcommand for generating sample config
func createConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Generate a sample configuration file",
		Long: `Generate a sample configuration file that can be used with the --config flag.

Examples:
  tenant-backup-sync config > .tenant-backup-sync.yaml`,
		Run: func(cmd *cobra.Command, args []string) {
			sampleConfig := `# Tenant Backup Sync Configuration File

# Tenant database connection
database:
  host: localhost          # Database hostname or IP
  port: 3306               # Database port
  username: backup_user    # Database username
  password: ""             # Database password (use env var for security)
  database: shop_mgmt      # Database name

# Path to the backup subsystem configuration (storage, retention,
# compression, encryption). Defaults are used when empty.
backup_config: ""

# Operation settings
verbose: false             # Enable verbose output
quiet: false               # Suppress non-error output
timeout: 30s               # Database operation timeout
log_file: ""               # Optional log file path (empty = stderr)

# Environment variable examples:
# TENANT_BACKUP_DATABASE_PASSWORD=secret
# BACKUP_STORAGE_PROVIDER=S3
# BACKUP_S3_BUCKET=shop-backups
# BACKUP_S3_REGION=us-east-1
# BACKUP_RETENTION_KEEP=30
# BACKUP_COMPRESSION=GZIP
# BACKUP_ENCRYPTION_PASSPHRASE=secret
`
			fmt.Print(sampleConfig)
		},
	}
}
