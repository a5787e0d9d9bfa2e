package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_SetDefaults(t *testing.T) {
	config := &Config{Host: "localhost", Username: "root", Database: "workshop"}
	config.SetDefaults()

	assert.Equal(t, 3306, config.Port)
	assert.Equal(t, 30*time.Second, config.Timeout)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"valid", Config{Host: "localhost", Port: 3306, Username: "root", Database: "workshop"}, false},
		{"missing host", Config{Port: 3306, Username: "root", Database: "workshop"}, true},
		{"missing username", Config{Host: "localhost", Port: 3306, Database: "workshop"}, true},
		{"missing database", Config{Host: "localhost", Port: 3306, Username: "root"}, true},
		{"port out of range", Config{Host: "localhost", Port: 70000, Username: "root", Database: "workshop"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_DSN(t *testing.T) {
	config := &Config{
		Host:     "db.internal",
		Port:     3307,
		Username: "backup",
		Password: "secret",
		Database: "workshop",
		Timeout:  10 * time.Second,
	}

	assert.Equal(t, "backup:secret@tcp(db.internal:3307)/workshop?timeout=10s&parseTime=true", config.DSN())
}
