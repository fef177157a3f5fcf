package coin

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seclave/hsign/pkg/commander"
	"github.com/seclave/hsign/pkg/keystore"
	"github.com/seclave/hsign/pkg/session"
	"github.com/seclave/hsign/pkg/wire"
)

type memStore struct {
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Put(key string, value []byte) error {
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memStore) Get(key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, keystore.ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *memStore) Delete(key string) error {
	delete(m.data, key)
	return nil
}

func (m *memStore) Keys() ([]string, error) { return nil, nil }
func (m *memStore) Close() error            { return nil }

type recordingScreen struct {
	messages []string
}

func (r *recordingScreen) Notify(message string, duration time.Duration) {
	r.messages = append(r.messages, message)
}

func newTestRouter(t *testing.T) (*Router, *recordingScreen) {
	t.Helper()
	store := newMemStore()
	ks := keystore.New(store)
	seed := make([]byte, keystore.SeedLen)
	_, err := rand.Read(seed)
	require.NoError(t, err)
	require.NoError(t, ks.SetSeed(seed))

	scr := &recordingScreen{}
	sessions := session.NewManager(time.Minute, 2*time.Minute)
	return NewRouter(ks, store, scr, sessions), scr
}

func TestParamsFor(t *testing.T) {
	p, ok := ParamsFor("btc")
	require.True(t, ok)
	assert.Equal(t, "Bitcoin", p.Name)
	assert.True(t, p.Mainnet)

	_, ok = ParamsFor("doge")
	assert.False(t, ok)
}

func TestExportPub(t *testing.T) {
	r, scr := newTestRouter(t)

	var result wire.PubResponse
	kind := r.ExportPub(&wire.PubRequest{Keypath: []uint32{44, 0, 0}}, &result)

	require.Equal(t, commander.ErrOK, kind)
	pub, err := hex.DecodeString(result.PubKey)
	require.NoError(t, err)
	assert.Len(t, pub, ed25519.PublicKeySize)
	assert.Empty(t, scr.messages)
}

func TestExportPub_Display(t *testing.T) {
	r, scr := newTestRouter(t)

	var result wire.PubResponse
	kind := r.ExportPub(&wire.PubRequest{Keypath: []uint32{44, 0, 0}, Display: true}, &result)

	require.Equal(t, commander.ErrOK, kind)
	require.Len(t, scr.messages, 1)
	assert.Contains(t, scr.messages[0], result.PubKey)
}

func TestExportPub_InvalidKeypath(t *testing.T) {
	r, _ := newTestRouter(t)

	var result wire.PubResponse
	kind := r.ExportPub(&wire.PubRequest{Keypath: nil}, &result)

	assert.Equal(t, commander.ErrInvalidInput, kind)
}

func TestExportPub_Uninitialized(t *testing.T) {
	store := newMemStore()
	ks := keystore.New(store)
	scr := &recordingScreen{}
	r := NewRouter(ks, store, scr, session.NewManager(time.Minute, time.Minute))

	var result wire.PubResponse
	kind := r.ExportPub(&wire.PubRequest{Keypath: []uint32{44}}, &result)

	assert.Equal(t, commander.ErrInvalidState, kind)
}

func signInit(t *testing.T, r *Router, numInputs, numOutputs uint32) *wire.Response {
	t.Helper()
	var resp wire.Response
	kind := r.Sign(&wire.Request{SignInit: &wire.SignInitRequest{
		Coin:       "btc",
		Version:    2,
		NumInputs:  numInputs,
		NumOutputs: numOutputs,
		Keypath:    []uint32{44, 0, 0},
	}}, &resp)
	require.Equal(t, commander.ErrOK, kind)
	return &resp
}

func TestSign_FullFlow(t *testing.T) {
	r, _ := newTestRouter(t)

	resp := signInit(t, r, 2, 2)
	require.Equal(t, wire.ResponseTagSign, resp.Tag())
	assert.Equal(t, wire.SignNextInput, resp.Sign.Next)
	assert.EqualValues(t, 0, resp.Sign.Index)

	input := &wire.SignInputRequest{
		PrevOutHash:  make([]byte, 32),
		PrevOutIndex: 0,
		PrevOutValue: 100_000,
		Sequence:     0xffffffff,
		Keypath:      []uint32{44, 0, 0, 0, 0},
	}

	var resp2 wire.Response
	kind := r.Sign(&wire.Request{SignInput: input}, &resp2)
	require.Equal(t, commander.ErrOK, kind)
	assert.Equal(t, wire.SignNextInput, resp2.Sign.Next)
	assert.EqualValues(t, 1, resp2.Sign.Index)
	assert.Len(t, resp2.Sign.Signature, ed25519.SignatureSize)

	var resp3 wire.Response
	kind = r.Sign(&wire.Request{SignInput: input}, &resp3)
	require.Equal(t, commander.ErrOK, kind)
	assert.Equal(t, wire.SignNextOutput, resp3.Sign.Next)
	assert.EqualValues(t, 0, resp3.Sign.Index)

	var resp4 wire.Response
	kind = r.Sign(&wire.Request{SignOutput: &wire.SignOutputRequest{
		Value:   90_000,
		Payload: []byte{0x76, 0xa9, 0x14},
	}}, &resp4)
	require.Equal(t, commander.ErrOK, kind)
	assert.Equal(t, wire.SignNextOutput, resp4.Sign.Next)
	assert.EqualValues(t, 1, resp4.Sign.Index)

	var resp5 wire.Response
	kind = r.Sign(&wire.Request{SignOutput: &wire.SignOutputRequest{
		Value:   9_000,
		Ours:    true,
		Keypath: []uint32{44, 0, 0, 1, 0},
	}}, &resp5)
	require.Equal(t, commander.ErrOK, kind)
	assert.Equal(t, wire.SignNextDone, resp5.Sign.Next)
}

func TestSign_InputSignatureVerifies(t *testing.T) {
	r, _ := newTestRouter(t)
	signInit(t, r, 1, 1)

	input := &wire.SignInputRequest{
		PrevOutHash:  make([]byte, 32),
		PrevOutValue: 5_000,
		Keypath:      []uint32{44, 0, 0, 0, 7},
	}

	var resp wire.Response
	require.Equal(t, commander.ErrOK, r.Sign(&wire.Request{SignInput: input}, &resp))

	// The session is still open, so the digest recomputes with the same
	// transaction fields.
	digest := r.signer.inputDigest(input)
	pubHex := wire.PubResponse{}
	require.Equal(t, commander.ErrOK, r.ExportPub(&wire.PubRequest{Keypath: []uint32{44, 0, 0, 0, 7}}, &pubHex))
	pub, err := hex.DecodeString(pubHex.PubKey)
	require.NoError(t, err)

	assert.True(t, ed25519.Verify(ed25519.PublicKey(pub), digest, resp.Sign.Signature))
}

func TestSign_InputWithoutInitIsInvalidState(t *testing.T) {
	r, _ := newTestRouter(t)

	var resp wire.Response
	kind := r.Sign(&wire.Request{SignInput: &wire.SignInputRequest{
		PrevOutHash:  make([]byte, 32),
		PrevOutValue: 1,
	}}, &resp)

	assert.Equal(t, commander.ErrInvalidState, kind)
}

func TestSign_OutputBeforeInputsIsInvalidState(t *testing.T) {
	r, _ := newTestRouter(t)
	signInit(t, r, 1, 1)

	var resp wire.Response
	kind := r.Sign(&wire.Request{SignOutput: &wire.SignOutputRequest{Value: 1, Payload: []byte{1}}}, &resp)

	assert.Equal(t, commander.ErrInvalidState, kind)

	// The violation aborted the session; inputs are rejected now too.
	var resp2 wire.Response
	kind = r.Sign(&wire.Request{SignInput: &wire.SignInputRequest{
		PrevOutHash:  make([]byte, 32),
		PrevOutValue: 1,
	}}, &resp2)
	assert.Equal(t, commander.ErrInvalidState, kind)
}

func TestSign_InitValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	cases := map[string]*wire.SignInitRequest{
		"unknown coin": {Coin: "doge", NumInputs: 1, NumOutputs: 1, Keypath: []uint32{44}},
		"zero inputs":  {Coin: "btc", NumInputs: 0, NumOutputs: 1, Keypath: []uint32{44}},
		"zero outputs": {Coin: "btc", NumInputs: 1, NumOutputs: 0, Keypath: []uint32{44}},
		"no keypath":   {Coin: "btc", NumInputs: 1, NumOutputs: 1},
	}

	for name, init := range cases {
		t.Run(name, func(t *testing.T) {
			var resp wire.Response
			assert.Equal(t, commander.ErrInvalidInput, r.Sign(&wire.Request{SignInit: init}, &resp))
		})
	}
}

func TestSign_ReinitResetsSession(t *testing.T) {
	r, _ := newTestRouter(t)
	signInit(t, r, 3, 1)

	// Host abandons the session and starts a smaller one.
	signInit(t, r, 1, 1)

	input := &wire.SignInputRequest{PrevOutHash: make([]byte, 32), PrevOutValue: 1}
	var resp wire.Response
	require.Equal(t, commander.ErrOK, r.Sign(&wire.Request{SignInput: input}, &resp))
	// Single input, so the next phase is outputs.
	assert.Equal(t, wire.SignNextOutput, resp.Sign.Next)
}

func TestSign_BadInput(t *testing.T) {
	r, _ := newTestRouter(t)
	signInit(t, r, 1, 1)

	var resp wire.Response
	kind := r.Sign(&wire.Request{SignInput: &wire.SignInputRequest{
		PrevOutHash:  []byte{1, 2, 3}, // wrong length
		PrevOutValue: 1,
	}}, &resp)

	assert.Equal(t, commander.ErrInvalidInput, kind)
}

func TestCoinOp_RegisterAndLookup(t *testing.T) {
	r, _ := newTestRouter(t)
	script := []byte{0x51, 0x21, 0x03}

	var result wire.CoinResponse
	kind := r.CoinOp(&wire.CoinRequest{Op: wire.CoinOpRegisterScript, Name: "vault", Script: script}, &result)
	require.Equal(t, commander.ErrOK, kind)
	assert.True(t, result.Success)

	var lookup wire.CoinResponse
	kind = r.CoinOp(&wire.CoinRequest{Op: wire.CoinOpIsScriptRegistered, Name: "vault", Script: script}, &lookup)
	require.Equal(t, commander.ErrOK, kind)
	assert.True(t, lookup.Registered)

	var missing wire.CoinResponse
	kind = r.CoinOp(&wire.CoinRequest{Op: wire.CoinOpIsScriptRegistered, Name: "other"}, &missing)
	require.Equal(t, commander.ErrOK, kind)
	assert.False(t, missing.Registered)
}

func TestCoinOp_DuplicateName(t *testing.T) {
	r, _ := newTestRouter(t)

	var result wire.CoinResponse
	require.Equal(t, commander.ErrOK,
		r.CoinOp(&wire.CoinRequest{Op: wire.CoinOpRegisterScript, Name: "vault", Script: []byte{1}}, &result))

	// Same name, different content.
	var dup wire.CoinResponse
	kind := r.CoinOp(&wire.CoinRequest{Op: wire.CoinOpRegisterScript, Name: "vault", Script: []byte{2}}, &dup)
	assert.Equal(t, commander.ErrDuplicate, kind)

	// Same name, same content is idempotent.
	var same wire.CoinResponse
	kind = r.CoinOp(&wire.CoinRequest{Op: wire.CoinOpRegisterScript, Name: "vault", Script: []byte{1}}, &same)
	assert.Equal(t, commander.ErrOK, kind)
}

func TestCoinOp_Validation(t *testing.T) {
	r, _ := newTestRouter(t)

	var result wire.CoinResponse
	assert.Equal(t, commander.ErrInvalidInput,
		r.CoinOp(&wire.CoinRequest{Op: "selfdestruct"}, &result))
	assert.Equal(t, commander.ErrInvalidInput,
		r.CoinOp(&wire.CoinRequest{Op: wire.CoinOpRegisterScript, Name: ""}, &result))
}

func TestNewHandlers_capability(t *testing.T) {
	store := newMemStore()
	ks := keystore.New(store)
	sessions := session.NewManager(time.Minute, time.Minute)

	enabled := NewHandlers(true, ks, store, &recordingScreen{}, sessions)
	assert.True(t, enabled.Enabled())

	disabled := NewHandlers(false, ks, store, &recordingScreen{}, sessions)
	assert.False(t, disabled.Enabled())
	var resp wire.Response
	assert.Equal(t, commander.ErrDisabled, disabled.Sign(&wire.Request{}, &resp))
}
