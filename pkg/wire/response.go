package wire

// MaxErrorMessageLen bounds the error message carried on the wire.
// Canonical catalog messages longer than this are truncated, never
// allowed to grow the frame.
const MaxErrorMessageLen = 64

// ResponseTag identifies the active variant of a Response.
type ResponseTag uint8

const (
	ResponseTagNone ResponseTag = iota
	ResponseTagPub
	ResponseTagSign
	ResponseTagCoin
	ResponseTagListBackups
	ResponseTagSuccess
	ResponseTagError
)

type PubResponse struct {
	PubKey string `json:"pub_key"`
}

// Sign-next phases reported while a signing session is in progress.
const (
	SignNextInput  = "input"
	SignNextOutput = "output"
	SignNextDone   = "done"
)

// SignNextResponse tells the host which part of the transaction to
// stream next. Signature is set per signed input.
type SignNextResponse struct {
	Next      string `json:"next"`
	Index     uint32 `json:"index"`
	Signature []byte `json:"signature,omitempty"`
}

type CoinResponse struct {
	Success    bool `json:"success"`
	Registered bool `json:"registered,omitempty"`
}

type BackupInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Timestamp int64  `json:"timestamp"`
}

type ListBackupsResponse struct {
	Info []BackupInfo `json:"info"`
}

type SuccessResponse struct{}

type ErrorResponse struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

// Response is the union of everything the device can answer. The
// setters below clear all sibling variants, so exactly one is populated
// when the response reaches the encoder.
type Response struct {
	Pub         *PubResponse
	Sign        *SignNextResponse
	Coin        *CoinResponse
	ListBackups *ListBackupsResponse
	Success     *SuccessResponse
	Error       *ErrorResponse
}

// Tag reports the active variant.
func (r *Response) Tag() ResponseTag {
	switch {
	case r.Pub != nil:
		return ResponseTagPub
	case r.Sign != nil:
		return ResponseTagSign
	case r.Coin != nil:
		return ResponseTagCoin
	case r.ListBackups != nil:
		return ResponseTagListBackups
	case r.Success != nil:
		return ResponseTagSuccess
	case r.Error != nil:
		return ResponseTagError
	default:
		return ResponseTagNone
	}
}

func (r *Response) clear() {
	*r = Response{}
}

func (r *Response) SetPub(p *PubResponse) *PubResponse {
	r.clear()
	if p == nil {
		p = &PubResponse{}
	}
	r.Pub = p
	return p
}

func (r *Response) SetSign(s *SignNextResponse) *SignNextResponse {
	r.clear()
	if s == nil {
		s = &SignNextResponse{}
	}
	r.Sign = s
	return s
}

func (r *Response) SetCoin(c *CoinResponse) *CoinResponse {
	r.clear()
	if c == nil {
		c = &CoinResponse{}
	}
	r.Coin = c
	return c
}

func (r *Response) SetListBackups(l *ListBackupsResponse) *ListBackupsResponse {
	r.clear()
	if l == nil {
		l = &ListBackupsResponse{}
	}
	r.ListBackups = l
	return l
}

func (r *Response) SetSuccess() {
	r.clear()
	r.Success = &SuccessResponse{}
}

// SetError forces the response into its error variant, discarding any
// previously populated variant. Message is truncated to the wire bound.
func (r *Response) SetError(code int32, message string) {
	if len(message) > MaxErrorMessageLen {
		message = message[:MaxErrorMessageLen]
	}
	r.clear()
	r.Error = &ErrorResponse{Code: code, Message: message}
}
