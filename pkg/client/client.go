package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/seclave/hsign/pkg/wire"
)

const defaultTimeout = 10 * time.Second

// DeviceError is a non-ok answer from the device, carrying the
// catalog code and its canonical message.
type DeviceError struct {
	Code    int32
	Message string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device error %d: %s", e.Code, e.Message)
}

// Options defines configuration options for creating a new Client.
type Options struct {
	// NATS connection
	NatsConn *nats.Conn

	// Subject the device listens on
	Subject string

	// Per-request timeout; zero means the default
	Timeout time.Duration
}

// Client talks to a signing device over NATS request-reply. Every
// command is one request frame answered by exactly one response frame.
type Client struct {
	nc      *nats.Conn
	codec   *wire.JSONCodec
	subject string
	timeout time.Duration
}

func New(opts Options) (*Client, error) {
	if opts.NatsConn == nil {
		return nil, errors.New("client: NATS connection is required")
	}
	if opts.Subject == "" {
		return nil, errors.New("client: subject is required")
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		nc:      opts.NatsConn,
		codec:   wire.NewJSONCodec(),
		subject: opts.Subject,
		timeout: timeout,
	}, nil
}

// Do sends one request and decodes the device's answer. A device-side
// error frame comes back as *DeviceError.
func (c *Client) Do(req *wire.Request) (*wire.Response, error) {
	data, err := c.codec.EncodeRequest(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	msg, err := c.nc.Request(c.subject, data, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("device did not answer: %w", err)
	}

	var resp wire.Response
	if err := c.codec.DecodeResponse(msg.Data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.Error != nil {
		return nil, &DeviceError{Code: resp.Error.Code, Message: resp.Error.Message}
	}
	return &resp, nil
}

// PublicKey asks the device for the public key at keypath.
func (c *Client) PublicKey(keypath []uint32, display bool) (string, error) {
	resp, err := c.Do(&wire.Request{Pub: &wire.PubRequest{Keypath: keypath, Display: display}})
	if err != nil {
		return "", err
	}
	if resp.Pub == nil {
		return "", errors.New("client: unexpected response variant")
	}
	return resp.Pub.PubKey, nil
}

// ListBackups returns the device's backup listing.
func (c *Client) ListBackups() ([]wire.BackupInfo, error) {
	resp, err := c.Do(&wire.Request{ListBackups: &wire.ListBackupsRequest{}})
	if err != nil {
		return nil, err
	}
	if resp.ListBackups == nil {
		return nil, errors.New("client: unexpected response variant")
	}
	return resp.ListBackups.Info, nil
}

// RestoreBackup reinstates the identified backup on the device.
func (c *Client) RestoreBackup(id string) error {
	now := time.Now()
	_, offset := now.Zone()
	_, err := c.Do(&wire.Request{RestoreBackup: &wire.RestoreBackupRequest{
		ID:             id,
		Timestamp:      now.Unix(),
		TimezoneOffset: int32(offset),
	}})
	return err
}

// SignInit opens a signing session on the device.
func (c *Client) SignInit(init *wire.SignInitRequest) (*wire.SignNextResponse, error) {
	return c.signStep(&wire.Request{SignInit: init})
}

// SignInput streams one transaction input; the answer carries its
// signature.
func (c *Client) SignInput(input *wire.SignInputRequest) (*wire.SignNextResponse, error) {
	return c.signStep(&wire.Request{SignInput: input})
}

// SignOutput streams one transaction output.
func (c *Client) SignOutput(output *wire.SignOutputRequest) (*wire.SignNextResponse, error) {
	return c.signStep(&wire.Request{SignOutput: output})
}

func (c *Client) signStep(req *wire.Request) (*wire.SignNextResponse, error) {
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.Sign == nil {
		return nil, errors.New("client: unexpected response variant")
	}
	return resp.Sign, nil
}

// RegisterScript registers a named script on the device.
func (c *Client) RegisterScript(name string, script []byte) error {
	resp, err := c.Do(&wire.Request{Coin: &wire.CoinRequest{
		Op:     wire.CoinOpRegisterScript,
		Name:   name,
		Script: script,
	}})
	if err != nil {
		return err
	}
	if resp.Coin == nil {
		return errors.New("client: unexpected response variant")
	}
	return nil
}

// IsScriptRegistered reports whether the named script content is
// registered on the device.
func (c *Client) IsScriptRegistered(name string, script []byte) (bool, error) {
	resp, err := c.Do(&wire.Request{Coin: &wire.CoinRequest{
		Op:     wire.CoinOpIsScriptRegistered,
		Name:   name,
		Script: script,
	}})
	if err != nil {
		return false, err
	}
	if resp.Coin == nil {
		return false, errors.New("client: unexpected response variant")
	}
	return resp.Coin.Registered, nil
}
