package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService(t *testing.T) {
	service := NewService()

	require.NotNil(t, service)
	assert.Equal(t, 30*time.Second, service.connectionTimeout)
	assert.Equal(t, 3, service.maxRetries)
}

func TestService_TestConnection(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()

	service := NewService()

	require.NoError(t, service.TestConnection(db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_TestConnection_NilDB(t *testing.T) {
	service := NewService()

	require.Error(t, service.TestConnection(nil))
}

func TestService_GetVersion(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT VERSION\\(\\)").
		WillReturnRows(sqlmock.NewRows([]string{"VERSION()"}).AddRow("8.0.36"))

	service := NewService()

	version, err := service.GetVersion(db)
	require.NoError(t, err)
	assert.Equal(t, "8.0.36", version)
}

func TestService_Close(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectClose()

	service := NewService()

	require.NoError(t, service.Close(db))
	assert.NoError(t, service.Close(nil))
}
