package keystore

import "errors"

// ErrKeyNotFound is returned by Store.Get for missing keys, regardless
// of backend.
var ErrKeyNotFound = errors.New("key not found")

// Store is the persistence layer under the keystore. Both backends are
// plain KV stores; values are opaque bytes.
type Store interface {
	Put(key string, value []byte) error
	Get(key string) ([]byte, error)
	Delete(key string) error
	Keys() ([]string, error)
	Close() error
}
