// Package commander is the command-dispatch boundary of the device: it
// takes a raw frame from the untrusted host, decodes it, routes it to
// exactly one handler and always produces a well-formed response frame.
// Decoded request memory is wiped before the call returns.
package commander

import (
	"fmt"
	"time"

	"github.com/seclave/hsign/pkg/logger"
	"github.com/seclave/hsign/pkg/wire"
)

// CoinHandlers is the coin subsystem seen from the dispatcher. When the
// subsystem is not built in, Enabled reports false and the dispatcher
// resolves every coin-family request to the disabled error without
// calling any of the other methods.
type CoinHandlers interface {
	Enabled() bool
	ExportPub(req *wire.PubRequest, result *wire.PubResponse) ErrorKind
	// Sign owns the init/input/output signing state machine. It sets
	// the response variant itself on success.
	Sign(req *wire.Request, resp *wire.Response) ErrorKind
	CoinOp(req *wire.CoinRequest, result *wire.CoinResponse) ErrorKind
}

// BackupWorkflows lists and restores seed backups.
type BackupWorkflows interface {
	ListBackups(result *wire.ListBackupsResponse) bool
	RestoreBackup(req *wire.RestoreBackupRequest) bool
}

// Screen is the debug sink for diagnostic notifications. Fire and
// forget; the commander never consults a result.
type Screen interface {
	Notify(message string, duration time.Duration)
}

// Commander routes decoded requests to their handlers. It holds no
// per-call state; request and response values live on the call stack
// and are never retained.
type Commander struct {
	codec   wire.Codec
	coin    CoinHandlers
	backups BackupWorkflows
	screen  Screen

	// fallback is the frame returned when even the error response
	// fails to encode at runtime. Pre-encoded through the codec at
	// construction so it is always in the host's wire format.
	fallback []byte
}

func New(codec wire.Codec, coin CoinHandlers, backups BackupWorkflows, screen Screen) *Commander {
	var resp wire.Response
	reportError(&resp, ErrGeneric)
	fallback, err := codec.EncodeResponse(&resp)
	if err != nil {
		// A codec that cannot encode a plain error response is
		// misconfigured; keep a JSON frame as the absolute last resort.
		logger.Error("commander: codec cannot encode the fallback frame", err)
		fallback = []byte(`{"type":"error","body":{"code":103,"message":"generic error"}}`)
	}

	return &Commander{
		codec:    codec,
		coin:     coin,
		backups:  backups,
		screen:   screen,
		fallback: fallback,
	}
}

// reportError forces resp into its error variant for kind, discarding
// whatever a handler wrote before failing. Idempotent; this is the only
// place an error variant is constructed.
func reportError(resp *wire.Response, kind ErrorKind) {
	resp.SetError(CodeFor(kind), MessageFor(kind))
}

func (c *Commander) listBackups(result *wire.ListBackupsResponse) ErrorKind {
	if !c.backups.ListBackups(result) {
		return ErrGeneric
	}
	return ErrOK
}

func (c *Commander) restoreBackup(req *wire.RestoreBackupRequest) ErrorKind {
	if !c.backups.RestoreBackup(req) {
		return ErrGeneric
	}
	return ErrOK
}

// dispatch routes req to exactly one handler and reports the outcome.
// On non-Ok outcomes any response mutation made here is discarded by
// reportError before the response is encoded.
func (c *Commander) dispatch(req *wire.Request, resp *wire.Response) ErrorKind {
	switch req.Tag() {
	case wire.RequestTagPub:
		if !c.coin.Enabled() {
			return ErrDisabled
		}
		return c.coin.ExportPub(req.Pub, resp.SetPub(nil))
	case wire.RequestTagSignInit, wire.RequestTagSignInput, wire.RequestTagSignOutput:
		if !c.coin.Enabled() {
			return ErrDisabled
		}
		return c.coin.Sign(req, resp)
	case wire.RequestTagCoin:
		if !c.coin.Enabled() {
			return ErrDisabled
		}
		return c.coin.CoinOp(req.Coin, resp.SetCoin(nil))
	case wire.RequestTagListBackups:
		return c.listBackups(resp.SetListBackups(nil))
	case wire.RequestTagRestoreBackup:
		// Optimistic: overwritten by reportError if restore fails.
		resp.SetSuccess()
		return c.restoreBackup(req.RestoreBackup)
	default:
		c.screen.Notify("command unknown", time.Second)
		return ErrInvalidInput
	}
}

// runDispatch shields the call from a misbehaving handler: a panic is
// surfaced as a generic error response instead of taking the process
// down.
func (c *Commander) runDispatch(req *wire.Request, resp *wire.Response) (kind ErrorKind) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("commander: handler panicked", fmt.Errorf("%v", r), "request", req.Tag().String())
			kind = ErrGeneric
		}
	}()
	return c.dispatch(req, resp)
}

// Process handles one raw request frame and always returns an encoded
// response: decode, dispatch, wipe the decoded request, then report any
// error over whatever the handler left behind. The wipe runs on every
// path, including decode failure, and strictly before the error
// variant is written.
func (c *Commander) Process(input []byte) []byte {
	var resp wire.Response

	req := new(wire.Request)
	kind := ErrInvalidInput
	if err := c.codec.DecodeRequest(input, req); err == nil {
		kind = c.runDispatch(req, &resp)
	}
	req.Wipe()

	if kind != ErrOK {
		reportError(&resp, kind)
	}

	out, err := c.codec.EncodeResponse(&resp)
	if err != nil {
		// An Ok outcome whose handler failed to populate a variant
		// lands here; downgrade to a generic error frame rather than
		// return nothing.
		reportError(&resp, ErrGeneric)
		out, err = c.codec.EncodeResponse(&resp)
		if err != nil {
			logger.Error("commander: response encode failed", err)
			out = c.fallback
		}
	}
	return out
}
