package coin

import (
	"encoding/hex"
	"errors"

	"github.com/seclave/hsign/pkg/commander"
	"github.com/seclave/hsign/pkg/keystore"
	"github.com/seclave/hsign/pkg/wire"
)

// ExportPub derives the public key at the requested keypath. With
// Display set the key is echoed to the device screen so the host
// cannot silently substitute one.
func (r *Router) ExportPub(req *wire.PubRequest, result *wire.PubResponse) commander.ErrorKind {
	pub, err := r.ks.PublicKey(req.Keypath)
	if err != nil {
		switch {
		case errors.Is(err, keystore.ErrInvalidKeypath):
			return commander.ErrInvalidInput
		case errors.Is(err, keystore.ErrNoSeed):
			// Device not initialized yet.
			return commander.ErrInvalidState
		default:
			return commander.ErrGeneric
		}
	}

	result.PubKey = hex.EncodeToString(pub)
	if req.Display {
		r.screen.Notify("pubkey: "+result.PubKey, displayDuration)
	}
	return commander.ErrOK
}
