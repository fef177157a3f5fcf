package keystore

import (
	"fmt"
	"path/filepath"

	"github.com/seclave/hsign/pkg/config"
	"github.com/seclave/hsign/pkg/logger"
)

// NewStore opens the configured keystore backend.
func NewStore(deviceName string) Store {
	cfg := config.GetConfig()
	switch cfg.StorageType {
	case config.StorageTypePostgres:
		postgresConfig := PostgresConfig{
			DSN:             cfg.PostgresDSN,
			MaxIdleConns:    cfg.PostgresMaxIdleConns,
			MaxOpenConns:    cfg.PostgresMaxOpenConns,
			ConnMaxLifetime: cfg.PostgresConnMaxLifetime,
		}
		store, err := NewPostgresStore(postgresConfig)
		if err != nil {
			logger.Fatal("Failed to create postgres store", err)
		}
		logger.Info("Connected to postgres store", "device", deviceName)
		return store

	case config.StorageTypeBadger:
		basePath := config.DBPath()
		if basePath == "" {
			basePath = filepath.Join(".", "db")
		}
		dbPath := filepath.Join(basePath, deviceName)

		badgerConfig := BadgerConfig{
			EncryptionKey: []byte(config.KeystorePassword()),
			DBPath:        dbPath,
		}
		badgerStore, err := NewBadgerStore(badgerConfig)
		if err != nil {
			logger.Fatal("Failed to create badger store", err)
		}
		logger.Info("Connected to badger store", "device", deviceName, "path", dbPath)
		return badgerStore

	default:
		logger.Fatal("Unsupported storage type configured", fmt.Errorf("storage type %q is not supported", cfg.StorageType))
		return nil
	}
}
