package keystore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/seclave/hsign/pkg/logger"
)

var ErrEncryptionKeyNotProvided = errors.New("encryption key not provided")

// BadgerStore is a Store implementation backed by an encrypted
// BadgerDB. This is the default backend for the device seed.
type BadgerStore struct {
	DB *badger.DB
}

type BadgerConfig struct {
	EncryptionKey []byte
	DBPath        string
}

// NewBadgerStore opens the BadgerDB at config.DBPath. The encryption
// key is mandatory; seed material never touches disk in the clear.
func NewBadgerStore(config BadgerConfig) (*BadgerStore, error) {
	if len(config.EncryptionKey) == 0 {
		return nil, ErrEncryptionKeyNotProvided
	}

	opts := badger.DefaultOptions(config.DBPath).
		WithCompression(options.ZSTD).
		WithEncryptionKey(config.EncryptionKey).
		WithIndexCacheSize(16 << 20).
		WithBlockCacheSize(32 << 20).
		WithSyncWrites(true).
		WithVerifyValueChecksum(true). // surface value-log corruption on read instead of masking it
		WithCompactL0OnClose(true).
		WithLogger(quietBadgerLogger{})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	logger.Info("Connected to BadgerDB successfully!", "path", config.DBPath)

	return &BadgerStore{DB: db}, nil
}

// Put stores a key-value pair.
func (b *BadgerStore) Put(key string, value []byte) error {
	return b.DB.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// Get retrieves the value associated with a key.
func (b *BadgerStore) Get(key string) ([]byte, error) {
	var result []byte
	err := b.DB.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == nil {
			return item.Value(func(val []byte) error {
				result = append([]byte{}, val...)
				return nil
			})
		}
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}

	return result, err
}

func (b *BadgerStore) Keys() ([]string, error) {
	var keys []string
	err := b.DB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().Key()))
		}
		return nil
	})

	return keys, err
}

// Delete removes a key-value pair.
func (b *BadgerStore) Delete(key string) error {
	return b.DB.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Close closes the BadgerDB.
func (b *BadgerStore) Close() error {
	return b.DB.Close()
}

// quietBadgerLogger routes badger's chatty output to debug level.
type quietBadgerLogger struct{}

func sprintf(format string, args ...any) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}

func (quietBadgerLogger) Errorf(format string, args ...any) {
	logger.Error("badger: internal error", nil, "detail", sprintf(format, args...))
}

func (quietBadgerLogger) Warningf(format string, args ...any) {
	logger.Debug("badger: " + sprintf(format, args...))
}

func (quietBadgerLogger) Infof(format string, args ...any) {
	logger.Debug("badger: " + sprintf(format, args...))
}

func (quietBadgerLogger) Debugf(format string, args ...any) {
	logger.Debug("badger: " + sprintf(format, args...))
}
