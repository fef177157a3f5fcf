package keystore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/seclave/hsign/pkg/logger"
)

// PostgresStore is a Store implementation for deployments that keep the
// device state in a managed database instead of a local BadgerDB.
type PostgresStore struct {
	db    *gorm.DB
	sqlDB *sql.DB
}

type PostgresConfig struct {
	DSN             string        `json:"dsn"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	MaxOpenConns    int           `json:"max_open_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
}

type Entry struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     []byte    `gorm:"column:value"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Entry) TableName() string {
	return "keystore_entries"
}

// NewPostgresStore constructs a Postgres-backed Store.
func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres dsn is required")
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("retrieve sql.DB from gorm: %w", err)
	}

	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("auto-migrate keystore_entries: %w", err)
	}

	logger.Info("Connected to PostgreSQL successfully!")

	return &PostgresStore{
		db:    db,
		sqlDB: sqlDB,
	}, nil
}

// Put stores or updates a key/value pair.
func (s *PostgresStore) Put(key string, value []byte) error {
	entry := Entry{
		Key:   key,
		Value: append([]byte(nil), value...),
	}
	return s.db.Clauses(clause.OnConflict{
		UpdateAll: true,
	}).Create(&entry).Error
}

// Get returns the value stored under key.
func (s *PostgresStore) Get(key string) ([]byte, error) {
	var entry Entry
	if err := s.db.First(&entry, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return entry.Value, nil
}

// Delete removes the entry stored under key.
func (s *PostgresStore) Delete(key string) error {
	return s.db.Delete(&Entry{}, "key = ?", key).Error
}

// Keys lists every stored key.
func (s *PostgresStore) Keys() ([]string, error) {
	var keys []string
	if err := s.db.Model(&Entry{}).Pluck("key", &keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.sqlDB.Close()
}
