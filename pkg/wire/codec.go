package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Envelope type strings on the wire.
const (
	TypePub           = "pub"
	TypeSignInit      = "sign_init"
	TypeSignInput     = "sign_input"
	TypeSignOutput    = "sign_output"
	TypeCoin          = "coin"
	TypeListBackups   = "list_backups"
	TypeRestoreBackup = "restore_backup"
	TypeSignNext      = "sign_next"
	TypeSuccess       = "success"
	TypeError         = "error"
)

var ErrNoVariant = errors.New("response has no active variant")

// Codec is the boundary between raw transport frames and typed
// requests/responses. The commander core trusts nothing about the frame
// format beyond this interface.
type Codec interface {
	// DecodeRequest parses data into req. A structurally valid frame
	// with an unrecognized type decodes successfully into a request
	// with no active variant.
	DecodeRequest(data []byte, req *Request) error
	// EncodeResponse serializes resp. It fails only if no variant is
	// populated.
	EncodeResponse(resp *Response) ([]byte, error)
}

type envelope struct {
	Type string          `json:"type"`
	Body json.RawMessage `json:"body,omitempty"`
}

// JSONCodec frames requests and responses as {"type": ..., "body": ...}
// JSON envelopes.
type JSONCodec struct{}

func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

func (c *JSONCodec) DecodeRequest(data []byte, req *Request) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode request envelope: %w", err)
	}

	body := env.Body
	if len(body) == 0 {
		body = json.RawMessage("{}")
	}

	// The payload pointer is assigned before the body is parsed so a
	// partially decoded payload is still reachable by Wipe.
	switch env.Type {
	case TypePub:
		req.Pub = &PubRequest{}
		return unmarshalBody(env.Type, body, req.Pub)
	case TypeSignInit:
		req.SignInit = &SignInitRequest{}
		return unmarshalBody(env.Type, body, req.SignInit)
	case TypeSignInput:
		req.SignInput = &SignInputRequest{}
		return unmarshalBody(env.Type, body, req.SignInput)
	case TypeSignOutput:
		req.SignOutput = &SignOutputRequest{}
		return unmarshalBody(env.Type, body, req.SignOutput)
	case TypeCoin:
		req.Coin = &CoinRequest{}
		return unmarshalBody(env.Type, body, req.Coin)
	case TypeListBackups:
		req.ListBackups = &ListBackupsRequest{}
		return unmarshalBody(env.Type, body, req.ListBackups)
	case TypeRestoreBackup:
		req.RestoreBackup = &RestoreBackupRequest{}
		return unmarshalBody(env.Type, body, req.RestoreBackup)
	default:
		// Unknown or absent type: the dispatcher owns this case.
		return nil
	}
}

func unmarshalBody(typ string, body json.RawMessage, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s body: %w", typ, err)
	}
	return nil
}

func (c *JSONCodec) EncodeResponse(resp *Response) ([]byte, error) {
	var (
		typ  string
		body any
	)
	switch resp.Tag() {
	case ResponseTagPub:
		typ, body = TypePub, resp.Pub
	case ResponseTagSign:
		typ, body = TypeSignNext, resp.Sign
	case ResponseTagCoin:
		typ, body = TypeCoin, resp.Coin
	case ResponseTagListBackups:
		typ, body = TypeListBackups, resp.ListBackups
	case ResponseTagSuccess:
		typ, body = TypeSuccess, resp.Success
	case ResponseTagError:
		typ, body = TypeError, resp.Error
	default:
		return nil, ErrNoVariant
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s body: %w", typ, err)
	}
	return json.Marshal(envelope{Type: typ, Body: raw})
}

// EncodeRequest frames a request for sending. Used by the host-side
// client, not by the device core.
func (c *JSONCodec) EncodeRequest(req *Request) ([]byte, error) {
	var (
		typ  string
		body any
	)
	switch req.Tag() {
	case RequestTagPub:
		typ, body = TypePub, req.Pub
	case RequestTagSignInit:
		typ, body = TypeSignInit, req.SignInit
	case RequestTagSignInput:
		typ, body = TypeSignInput, req.SignInput
	case RequestTagSignOutput:
		typ, body = TypeSignOutput, req.SignOutput
	case RequestTagCoin:
		typ, body = TypeCoin, req.Coin
	case RequestTagListBackups:
		typ, body = TypeListBackups, req.ListBackups
	case RequestTagRestoreBackup:
		typ, body = TypeRestoreBackup, req.RestoreBackup
	default:
		return nil, errors.New("request has no active variant")
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s body: %w", typ, err)
	}
	return json.Marshal(envelope{Type: typ, Body: raw})
}

// DecodeResponse parses a response frame. Host-side counterpart of
// EncodeResponse.
func (c *JSONCodec) DecodeResponse(data []byte, resp *Response) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode response envelope: %w", err)
	}

	body := env.Body
	if len(body) == 0 {
		body = json.RawMessage("{}")
	}

	switch env.Type {
	case TypePub:
		resp.Pub = &PubResponse{}
		return unmarshalBody(env.Type, body, resp.Pub)
	case TypeSignNext:
		resp.Sign = &SignNextResponse{}
		return unmarshalBody(env.Type, body, resp.Sign)
	case TypeCoin:
		resp.Coin = &CoinResponse{}
		return unmarshalBody(env.Type, body, resp.Coin)
	case TypeListBackups:
		resp.ListBackups = &ListBackupsResponse{}
		return unmarshalBody(env.Type, body, resp.ListBackups)
	case TypeSuccess:
		resp.Success = &SuccessResponse{}
		return unmarshalBody(env.Type, body, resp.Success)
	case TypeError:
		resp.Error = &ErrorResponse{}
		return unmarshalBody(env.Type, body, resp.Error)
	default:
		return fmt.Errorf("unknown response type %q", env.Type)
	}
}
