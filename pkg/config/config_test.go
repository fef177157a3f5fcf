package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNATsConfig(t *testing.T) {
	config := NATsConfig{
		URL:      "nats://nats.example.com:4222",
		Username: "nats_user",
		Password: "nats_pass",
	}

	assert.Equal(t, "nats://nats.example.com:4222", config.URL)
	assert.Equal(t, "nats_user", config.Username)
	assert.Equal(t, "nats_pass", config.Password)
}

func TestConfig_ApplyDefaults(t *testing.T) {
	config := &Config{}
	applyDefaults(config)

	assert.Equal(t, Development, config.Environment)
	assert.Equal(t, StorageTypeBadger, config.StorageType)
	assert.Equal(t, defaultDBPath, config.DBPath)
	assert.Equal(t, defaultBackupDir, config.BackupDir)
	assert.Equal(t, defaultBackupPeriodSeconds, config.BackupPeriodSeconds)
	assert.Equal(t, defaultRequestSubject, config.RequestSubject)
	assert.Equal(t, defaultSignSessionTimeout, config.SignSessionTimeout)
}

func TestConfig_ApplyDefaults_WithExistingValues(t *testing.T) {
	config := &Config{
		Environment:        "production",
		DBPath:             "/custom/path",
		SignSessionTimeout: 30 * time.Second,
	}
	applyDefaults(config)

	// Should not override existing values
	assert.Equal(t, "production", config.Environment)
	assert.Equal(t, "/custom/path", config.DBPath)
	assert.Equal(t, 30*time.Second, config.SignSessionTimeout)

	// Should apply defaults for empty values
	assert.Equal(t, defaultBackupDir, config.BackupDir)
	assert.Equal(t, defaultRequestSubject, config.RequestSubject)
}

func TestValidateEnvironment(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		wantErr     bool
	}{
		{name: "valid production environment", environment: "production", wantErr: false},
		{name: "valid development environment", environment: "development", wantErr: false},
		{name: "invalid environment", environment: "staging", wantErr: true},
		{name: "empty environment", environment: "", wantErr: true},
		{name: "case sensitive - Production", environment: "Production", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateEnvironment(tt.environment)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateStorageType(t *testing.T) {
	tests := []struct {
		name        string
		storageType string
		wantErr     bool
	}{
		{name: "badger", storageType: "badger", wantErr: false},
		{name: "postgres", storageType: "postgres", wantErr: false},
		{name: "unknown backend", storageType: "redis", wantErr: true},
		{name: "empty", storageType: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateStorageType(tt.storageType)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
