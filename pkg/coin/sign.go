package coin

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"

	"github.com/google/uuid"

	"github.com/seclave/hsign/pkg/commander"
	"github.com/seclave/hsign/pkg/keystore"
	"github.com/seclave/hsign/pkg/logger"
	"github.com/seclave/hsign/pkg/session"
	"github.com/seclave/hsign/pkg/wire"
)

type signState uint8

const (
	signIdle signState = iota
	signInputs
	signOutputs
)

const prevOutHashLen = 32

// signer owns the init/input/output signing protocol. The host opens a
// session with sign-init, then streams every input and every output in
// order; each input is signed as it arrives and the session closes with
// the final output. Any protocol violation aborts the session.
//
// All state the protocol keeps between phases is deep-copied out of the
// request, because the commander wipes request memory after every call.
type signer struct {
	ks       *keystore.Keystore
	sessions *session.Manager

	state      signState
	sessionID  string
	coin       string
	version    uint32
	locktime   uint32
	basePath   []uint32
	numInputs  uint32
	numOutputs uint32
	inputIdx   uint32
	outputIdx  uint32
}

func newSigner(ks *keystore.Keystore, sessions *session.Manager) *signer {
	return &signer{ks: ks, sessions: sessions}
}

// reset abandons the current session, if any.
func (s *signer) reset() {
	if s.sessionID != "" {
		s.sessions.Remove(s.sessionID)
	}
	*s = signer{ks: s.ks, sessions: s.sessions}
}

func (s *signer) handle(req *wire.Request, resp *wire.Response) commander.ErrorKind {
	switch req.Tag() {
	case wire.RequestTagSignInit:
		return s.handleInit(req.SignInit, resp)
	case wire.RequestTagSignInput:
		return s.handleInput(req.SignInput, resp)
	case wire.RequestTagSignOutput:
		return s.handleOutput(req.SignOutput, resp)
	default:
		return commander.ErrInvalidInput
	}
}

func (s *signer) handleInit(req *wire.SignInitRequest, resp *wire.Response) commander.ErrorKind {
	// A fresh init always wins: the host may abandon a session and
	// start over.
	s.reset()

	if _, ok := ParamsFor(req.Coin); !ok {
		return commander.ErrInvalidInput
	}
	if req.NumInputs == 0 || req.NumOutputs == 0 {
		return commander.ErrInvalidInput
	}
	if len(req.Keypath) == 0 || len(req.Keypath) > keystore.MaxKeypathDepth {
		return commander.ErrInvalidInput
	}

	s.sessionID = uuid.NewString()
	s.coin = req.Coin
	s.version = req.Version
	s.locktime = req.LockTime
	s.basePath = append([]uint32(nil), req.Keypath...)
	s.numInputs = req.NumInputs
	s.numOutputs = req.NumOutputs
	s.state = signInputs
	s.sessions.Add(s.sessionID)

	logger.Debug("Signing session initialized",
		"sessionID", s.sessionID,
		"coin", s.coin,
		"numInputs", s.numInputs,
		"numOutputs", s.numOutputs)

	resp.SetSign(&wire.SignNextResponse{Next: wire.SignNextInput, Index: 0})
	return commander.ErrOK
}

func (s *signer) handleInput(req *wire.SignInputRequest, resp *wire.Response) commander.ErrorKind {
	if s.state != signInputs {
		s.reset()
		return commander.ErrInvalidState
	}
	if !s.sessions.Has(s.sessionID) {
		// The host left the session open past its timeout.
		s.reset()
		return commander.ErrInvalidState
	}
	if len(req.PrevOutHash) != prevOutHashLen || req.PrevOutValue == 0 {
		s.reset()
		return commander.ErrInvalidInput
	}
	keypath := req.Keypath
	if len(keypath) == 0 {
		keypath = s.basePath
	}

	sig, err := s.ks.SignHash(keypath, s.inputDigest(req))
	if err != nil {
		s.reset()
		if errors.Is(err, keystore.ErrInvalidKeypath) {
			return commander.ErrInvalidInput
		}
		return commander.ErrGeneric
	}

	s.inputIdx++
	if s.inputIdx < s.numInputs {
		resp.SetSign(&wire.SignNextResponse{Next: wire.SignNextInput, Index: s.inputIdx, Signature: sig})
		return commander.ErrOK
	}

	s.state = signOutputs
	resp.SetSign(&wire.SignNextResponse{Next: wire.SignNextOutput, Index: 0, Signature: sig})
	return commander.ErrOK
}

func (s *signer) handleOutput(req *wire.SignOutputRequest, resp *wire.Response) commander.ErrorKind {
	if s.state != signOutputs {
		s.reset()
		return commander.ErrInvalidState
	}
	if !s.sessions.Has(s.sessionID) {
		s.reset()
		return commander.ErrInvalidState
	}
	if req.Value == 0 {
		s.reset()
		return commander.ErrInvalidInput
	}
	// An external output carries the recipient payload; a change output
	// back to us carries a keypath instead.
	if !req.Ours && len(req.Payload) == 0 {
		s.reset()
		return commander.ErrInvalidInput
	}
	if req.Ours && len(req.Keypath) == 0 {
		s.reset()
		return commander.ErrInvalidInput
	}

	s.outputIdx++
	if s.outputIdx < s.numOutputs {
		resp.SetSign(&wire.SignNextResponse{Next: wire.SignNextOutput, Index: s.outputIdx})
		return commander.ErrOK
	}

	logger.Debug("Signing session finalized", "sessionID", s.sessionID)
	s.reset()
	resp.SetSign(&wire.SignNextResponse{Next: wire.SignNextDone})
	return commander.ErrOK
}

// inputDigest commits to everything that identifies the input plus the
// session-wide transaction fields.
func (s *signer) inputDigest(req *wire.SignInputRequest) []byte {
	h := sha256.New()
	h.Write(req.PrevOutHash)

	var buf [8]byte
	binary.BigEndian.PutUint32(buf[:4], req.PrevOutIndex)
	h.Write(buf[:4])
	binary.BigEndian.PutUint64(buf[:], req.PrevOutValue)
	h.Write(buf[:])
	binary.BigEndian.PutUint32(buf[:4], req.Sequence)
	h.Write(buf[:4])
	binary.BigEndian.PutUint32(buf[:4], s.version)
	h.Write(buf[:4])
	binary.BigEndian.PutUint32(buf[:4], s.locktime)
	h.Write(buf[:4])
	h.Write([]byte(s.coin))

	digest := h.Sum(nil)
	return digest
}
