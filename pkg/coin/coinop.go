package coin

import (
	"bytes"
	"crypto/sha256"
	"errors"

	"github.com/seclave/hsign/pkg/commander"
	"github.com/seclave/hsign/pkg/keystore"
	"github.com/seclave/hsign/pkg/wire"
)

const scriptKeyPrefix = "scripts/"

// CoinOp handles generic coin operations that belong to neither the
// pubkey nor the signing flow. Script configurations are stored by
// name with a content hash, so a re-registration under the same name
// with different content is rejected as a duplicate.
func (r *Router) CoinOp(req *wire.CoinRequest, result *wire.CoinResponse) commander.ErrorKind {
	switch req.Op {
	case wire.CoinOpRegisterScript:
		return r.registerScript(req, result)
	case wire.CoinOpIsScriptRegistered:
		return r.isScriptRegistered(req, result)
	default:
		return commander.ErrInvalidInput
	}
}

func (r *Router) registerScript(req *wire.CoinRequest, result *wire.CoinResponse) commander.ErrorKind {
	if req.Name == "" || len(req.Script) == 0 {
		return commander.ErrInvalidInput
	}

	key := scriptKeyPrefix + req.Name
	digest := sha256.Sum256(req.Script)

	existing, err := r.store.Get(key)
	switch {
	case err == nil:
		if bytes.Equal(existing, digest[:]) {
			// Same content, idempotent.
			result.Success = true
			result.Registered = true
			return commander.ErrOK
		}
		return commander.ErrDuplicate
	case errors.Is(err, keystore.ErrKeyNotFound):
		// fall through to register
	default:
		return commander.ErrGeneric
	}

	if err := r.store.Put(key, digest[:]); err != nil {
		return commander.ErrGeneric
	}
	result.Success = true
	result.Registered = true
	return commander.ErrOK
}

func (r *Router) isScriptRegistered(req *wire.CoinRequest, result *wire.CoinResponse) commander.ErrorKind {
	if req.Name == "" {
		return commander.ErrInvalidInput
	}

	existing, err := r.store.Get(scriptKeyPrefix + req.Name)
	switch {
	case err == nil:
		if len(req.Script) > 0 {
			digest := sha256.Sum256(req.Script)
			result.Registered = bytes.Equal(existing, digest[:])
		} else {
			result.Registered = true
		}
	case errors.Is(err, keystore.ErrKeyNotFound):
		result.Registered = false
	default:
		return commander.ErrGeneric
	}

	result.Success = true
	return commander.ErrOK
}
