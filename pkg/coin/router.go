// Package coin implements the coin-family handlers behind the
// commander: public-key export, the multi-phase transaction signing
// sub-dispatcher and generic coin operations. The whole family can be
// compiled out of a deployment; the commander then talks to the
// disabled router instead.
package coin

import (
	"time"

	"github.com/seclave/hsign/pkg/commander"
	"github.com/seclave/hsign/pkg/keystore"
	"github.com/seclave/hsign/pkg/session"
	"github.com/seclave/hsign/pkg/wire"
)

// Router is the enabled coin subsystem.
type Router struct {
	ks     *keystore.Keystore
	store  keystore.Store
	screen commander.Screen
	signer *signer
}

func NewRouter(ks *keystore.Keystore, store keystore.Store, scr commander.Screen, sessions *session.Manager) *Router {
	return &Router{
		ks:     ks,
		store:  store,
		screen: scr,
		signer: newSigner(ks, sessions),
	}
}

func (r *Router) Enabled() bool { return true }

func (r *Router) Sign(req *wire.Request, resp *wire.Response) commander.ErrorKind {
	return r.signer.handle(req, resp)
}

// NewHandlers resolves the coin capability: the real router when the
// subsystem is built in, otherwise a stub that reports disabled. The
// commander's dispatch structure is identical either way.
func NewHandlers(enabled bool, ks *keystore.Keystore, store keystore.Store, scr commander.Screen, sessions *session.Manager) commander.CoinHandlers {
	if !enabled {
		return NewDisabledRouter()
	}
	return NewRouter(ks, store, scr, sessions)
}

// DisabledRouter stands in for the coin subsystem when it is not built
// in. The dispatcher consults Enabled before touching the response, so
// the remaining methods exist only to satisfy the interface.
type DisabledRouter struct{}

func NewDisabledRouter() *DisabledRouter {
	return &DisabledRouter{}
}

func (*DisabledRouter) Enabled() bool { return false }

func (*DisabledRouter) ExportPub(*wire.PubRequest, *wire.PubResponse) commander.ErrorKind {
	return commander.ErrDisabled
}

func (*DisabledRouter) Sign(*wire.Request, *wire.Response) commander.ErrorKind {
	return commander.ErrDisabled
}

func (*DisabledRouter) CoinOp(*wire.CoinRequest, *wire.CoinResponse) commander.ErrorKind {
	return commander.ErrDisabled
}

const displayDuration = 3 * time.Second
