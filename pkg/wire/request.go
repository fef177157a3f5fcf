package wire

import (
	"github.com/seclave/hsign/pkg/security"
)

// RequestTag identifies the active variant of a Request. It is derived
// from which payload pointer the decoder populated and is never stored
// separately, so it cannot drift from the payload.
type RequestTag uint8

const (
	RequestTagUnknown RequestTag = iota
	RequestTagPub
	RequestTagSignInit
	RequestTagSignInput
	RequestTagSignOutput
	RequestTagCoin
	RequestTagListBackups
	RequestTagRestoreBackup
)

func (t RequestTag) String() string {
	switch t {
	case RequestTagPub:
		return TypePub
	case RequestTagSignInit:
		return TypeSignInit
	case RequestTagSignInput:
		return TypeSignInput
	case RequestTagSignOutput:
		return TypeSignOutput
	case RequestTagCoin:
		return TypeCoin
	case RequestTagListBackups:
		return TypeListBackups
	case RequestTagRestoreBackup:
		return TypeRestoreBackup
	default:
		return "unknown"
	}
}

// PubRequest asks for the public key derived at Keypath. With Display
// set the device additionally shows the key on its screen.
type PubRequest struct {
	Keypath []uint32 `json:"keypath"`
	Display bool     `json:"display"`
}

// SignInitRequest opens a signing session. Inputs and outputs are
// streamed afterwards with SignInputRequest/SignOutputRequest.
type SignInitRequest struct {
	Coin       string   `json:"coin"`
	Version    uint32   `json:"version"`
	NumInputs  uint32   `json:"num_inputs"`
	NumOutputs uint32   `json:"num_outputs"`
	Keypath    []uint32 `json:"keypath"`
	LockTime   uint32   `json:"locktime"`
}

// SignInputRequest streams one transaction input of the open session.
type SignInputRequest struct {
	PrevOutHash  []byte   `json:"prev_out_hash"`
	PrevOutIndex uint32   `json:"prev_out_index"`
	PrevOutValue uint64   `json:"prev_out_value"`
	Sequence     uint32   `json:"sequence"`
	Keypath      []uint32 `json:"keypath"`
}

// SignOutputRequest streams one transaction output; the last output
// finalizes the session.
type SignOutputRequest struct {
	Value   uint64   `json:"value"`
	Payload []byte   `json:"payload"`
	Ours    bool     `json:"ours"`
	Keypath []uint32 `json:"keypath"`
}

// Coin operation names understood by the coin-op handler.
const (
	CoinOpRegisterScript     = "register_script"
	CoinOpIsScriptRegistered = "is_script_registered"
)

// CoinRequest carries a generic coin operation that does not belong to
// the pubkey or signing flows.
type CoinRequest struct {
	Op     string `json:"op"`
	Name   string `json:"name"`
	Script []byte `json:"script"`
}

type ListBackupsRequest struct{}

// RestoreBackupRequest reinstates the seed from the identified backup.
// Timestamp and timezone offset come from the host clock.
type RestoreBackupRequest struct {
	ID             string `json:"id"`
	Timestamp      int64  `json:"timestamp"`
	TimezoneOffset int32  `json:"timezone_offset"`
}

// Request is the union of everything a host can ask the device to do.
// Exactly one field is non-nil after a successful decode; the decoder
// leaves all fields nil for a structurally valid envelope with an
// unrecognized type, which the dispatcher rejects.
type Request struct {
	Pub           *PubRequest
	SignInit      *SignInitRequest
	SignInput     *SignInputRequest
	SignOutput    *SignOutputRequest
	Coin          *CoinRequest
	ListBackups   *ListBackupsRequest
	RestoreBackup *RestoreBackupRequest
}

// Tag reports the active variant.
func (r *Request) Tag() RequestTag {
	switch {
	case r.Pub != nil:
		return RequestTagPub
	case r.SignInit != nil:
		return RequestTagSignInit
	case r.SignInput != nil:
		return RequestTagSignInput
	case r.SignOutput != nil:
		return RequestTagSignOutput
	case r.Coin != nil:
		return RequestTagCoin
	case r.ListBackups != nil:
		return RequestTagListBackups
	case r.RestoreBackup != nil:
		return RequestTagRestoreBackup
	default:
		return RequestTagUnknown
	}
}

// Wipe clears every decoded field, overwriting byte buffers in place so
// key material, keypaths and passphrases do not outlive the call. It is
// idempotent and must run on every exit path, including decode failure.
func (r *Request) Wipe() {
	if r.Pub != nil {
		security.ZeroUint32s(r.Pub.Keypath)
		*r.Pub = PubRequest{}
	}
	if r.SignInit != nil {
		security.ZeroUint32s(r.SignInit.Keypath)
		*r.SignInit = SignInitRequest{}
	}
	if r.SignInput != nil {
		security.ZeroBytes(r.SignInput.PrevOutHash)
		security.ZeroUint32s(r.SignInput.Keypath)
		*r.SignInput = SignInputRequest{}
	}
	if r.SignOutput != nil {
		security.ZeroBytes(r.SignOutput.Payload)
		security.ZeroUint32s(r.SignOutput.Keypath)
		*r.SignOutput = SignOutputRequest{}
	}
	if r.Coin != nil {
		security.ZeroBytes(r.Coin.Script)
		*r.Coin = CoinRequest{}
	}
	if r.RestoreBackup != nil {
		*r.RestoreBackup = RestoreBackupRequest{}
	}
	*r = Request{}
}
