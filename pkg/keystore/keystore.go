package keystore

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/edwards/v2"

	"github.com/seclave/hsign/pkg/security"
)

const (
	seedKey = "device/seed"

	// SeedLen is the length of the device seed in bytes.
	SeedLen = 32

	// MaxKeypathDepth bounds derivation depth; anything deeper is a
	// hostile or corrupted request.
	MaxKeypathDepth = 10
)

var (
	ErrNoSeed         = errors.New("keystore: no seed present")
	ErrInvalidSeed    = errors.New("keystore: invalid seed length")
	ErrInvalidKeypath = errors.New("keystore: invalid keypath")
)

// Keystore derives per-keypath Ed25519 keys from the device seed held
// in the underlying store. Derived secrets are wiped as soon as the
// operation completes.
type Keystore struct {
	store Store
}

func New(store Store) *Keystore {
	return &Keystore{store: store}
}

// HasSeed reports whether a seed is present.
func (k *Keystore) HasSeed() bool {
	_, err := k.store.Get(seedKey)
	return err == nil
}

// SetSeed installs (or replaces) the device seed.
func (k *Keystore) SetSeed(seed []byte) error {
	if len(seed) != SeedLen {
		return ErrInvalidSeed
	}
	return k.store.Put(seedKey, append([]byte(nil), seed...))
}

// Seed returns a copy of the device seed. The caller owns the copy and
// must wipe it.
func (k *Keystore) Seed() ([]byte, error) {
	seed, err := k.store.Get(seedKey)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, ErrNoSeed
		}
		return nil, err
	}
	if len(seed) != SeedLen {
		return nil, ErrInvalidSeed
	}
	return seed, nil
}

func validateKeypath(keypath []uint32) error {
	if len(keypath) == 0 || len(keypath) > MaxKeypathDepth {
		return ErrInvalidKeypath
	}
	return nil
}

// deriveSecret walks the keypath with HMAC-SHA512 steps, yielding a
// 32-byte Ed25519 seed. Deterministic: the same seed and keypath always
// produce the same key.
func deriveSecret(seed []byte, keypath []uint32) []byte {
	node := append([]byte(nil), seed...)
	for _, index := range keypath {
		mac := hmac.New(sha512.New, node)
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], index)
		mac.Write(buf[:])
		next := mac.Sum(nil)
		security.ZeroBytes(node)
		node = next
	}
	secret := append([]byte(nil), node[:SeedLen]...)
	security.ZeroBytes(node)
	return secret
}

// PublicKey derives and returns the 32-byte public key at keypath.
func (k *Keystore) PublicKey(keypath []uint32) ([]byte, error) {
	if err := validateKeypath(keypath); err != nil {
		return nil, err
	}
	seed, err := k.Seed()
	if err != nil {
		return nil, err
	}
	defer security.ZeroBytes(seed)

	secret := deriveSecret(seed, keypath)
	defer security.ZeroBytes(secret)

	priv := ed25519.NewKeyFromSeed(secret)
	defer security.ZeroBytes(priv)

	pub := append([]byte(nil), priv[ed25519.SeedSize:]...)

	// Reject anything that does not parse as a curve point rather than
	// hand a malformed key to the host.
	if _, err := edwards.ParsePubKey(pub); err != nil {
		return nil, fmt.Errorf("keystore: derived key is not a valid curve point: %w", err)
	}
	return pub, nil
}

// SignHash signs hash with the key derived at keypath and returns the
// 64-byte signature.
func (k *Keystore) SignHash(keypath []uint32, hash []byte) ([]byte, error) {
	if err := validateKeypath(keypath); err != nil {
		return nil, err
	}
	if len(hash) == 0 {
		return nil, errors.New("keystore: empty hash")
	}
	seed, err := k.Seed()
	if err != nil {
		return nil, err
	}
	defer security.ZeroBytes(seed)

	secret := deriveSecret(seed, keypath)
	defer security.ZeroBytes(secret)

	priv := ed25519.NewKeyFromSeed(secret)
	defer security.ZeroBytes(priv)

	return ed25519.Sign(priv, hash), nil
}
