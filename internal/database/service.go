package database

import (
	"context"
	"database/sql"
	"time"

	"tenant-backup-sync/internal/errors"
	"tenant-backup-sync/internal/logging"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// Service manages connections to the tenant database
type Service struct {
	connectionTimeout time.Duration
	maxRetries        int
	retryDelay        time.Duration
	logger            *logging.Logger
	retryHandler      *errors.RetryHandler
}

// NewService creates a new database service with default settings
func NewService() *Service {
	return &Service{
		connectionTimeout: 30 * time.Second,
		maxRetries:        3,
		retryDelay:        2 * time.Second,
		logger:            logging.NewDefaultLogger(),
		retryHandler:      errors.NewDefaultRetryHandler(),
	}
}

// NewServiceWithLogger creates a new database service with a custom logger
func NewServiceWithLogger(logger *logging.Logger) *Service {
	return &Service{
		connectionTimeout: 30 * time.Second,
		maxRetries:        3,
		retryDelay:        2 * time.Second,
		logger:            logger,
		retryHandler:      errors.NewDefaultRetryHandler(),
	}
}

// Connect establishes a connection to the MySQL database with retry logic
func (s *Service) Connect(config Config) (*sql.DB, error) {
	startTime := time.Now()

	s.logger.WithFields(map[string]interface{}{
		"host":     config.Host,
		"database": config.Database,
		"port":     config.Port,
	}).Info("Attempting database connection")

	ctx, cancel := errors.CreateContextWithTimeout(s.connectionTimeout)
	defer cancel()

	var db *sql.DB
	err := s.retryHandler.Retry(ctx, func() error {
		var connectErr error

		db, connectErr = sql.Open("mysql", config.DSN())
		if connectErr != nil {
			return errors.WrapError(connectErr, "failed to open database connection")
		}

		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if testErr := s.TestConnection(db); testErr != nil {
			db.Close()
			return testErr
		}

		return nil
	})

	duration := time.Since(startTime)

	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"host":        config.Host,
			"database":    config.Database,
			"duration_ms": duration.Milliseconds(),
			"error":       err.Error(),
		}).Error("Database connection failed")
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"host":        config.Host,
		"database":    config.Database,
		"duration_ms": duration.Milliseconds(),
	}).Info("Database connection established")

	return db, nil
}

// TestConnection verifies that the database connection is working
func (s *Service) TestConnection(db *sql.DB) error {
	if db == nil {
		return errors.NewAppError(errors.ErrorTypeValidation, "database connection is nil", nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.connectionTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return errors.WrapError(err, "failed to ping database")
	}

	s.logger.Debug("Database connection test successful")
	return nil
}

// Close gracefully closes the database connection
func (s *Service) Close(db *sql.DB) error {
	if db == nil {
		s.logger.Debug("Database connection is nil, nothing to close")
		return nil
	}

	s.logger.Debug("Closing database connection")
	if err := db.Close(); err != nil {
		s.logger.WithField("error", err.Error()).Error("Failed to close database connection")
		return errors.WrapError(err, "failed to close database connection")
	}

	return nil
}

// GetVersion retrieves the MySQL server version
func (s *Service) GetVersion(db *sql.DB) (string, error) {
	if db == nil {
		return "", errors.NewAppError(errors.ErrorTypeValidation, "database connection is nil", nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.connectionTimeout)
	defer cancel()

	var version string
	if err := db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version); err != nil {
		return "", errors.WrapError(err, "failed to get database version")
	}

	s.logger.WithField("version", version).Debug("Retrieved database version")
	return version, nil
}
