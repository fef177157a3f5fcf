package transport

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/seclave/hsign/pkg/audit"
	"github.com/seclave/hsign/pkg/event"
	"github.com/seclave/hsign/pkg/logger"
	"github.com/seclave/hsign/pkg/wire"
)

// Processor turns one raw request frame into one raw response frame.
type Processor interface {
	Process(input []byte) []byte
}

// Responder serves the device's request-reply subject. The device
// models a single piece of hardware, so commands are strictly
// serialized: one request is fully processed and answered before the
// next one is taken off the wire.
type Responder struct {
	nc        *nats.Conn
	processor Processor
	trail     audit.Trail

	mu  sync.Mutex
	sub *nats.Subscription
}

func NewResponder(nc *nats.Conn, processor Processor, trail audit.Trail) *Responder {
	if trail == nil {
		trail = audit.NoopTrail{}
	}
	return &Responder{nc: nc, processor: processor, trail: trail}
}

// Start subscribes on subject and begins answering requests.
func (r *Responder) Start(subject string) error {
	sub, err := r.nc.QueueSubscribe(subject, event.DeviceQueueGroup, func(msg *nats.Msg) {
		reply := r.handle(msg.Data)
		if err := msg.Respond(reply); err != nil {
			logger.Error("Failed to answer request", err, "subject", msg.Subject)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe on %s: %w", subject, err)
	}

	r.sub = sub
	logger.Info("Device serving requests", "subject", subject, "queue", event.DeviceQueueGroup)
	return nil
}

// Stop drains the subscription so in-flight requests still get their
// answer.
func (r *Responder) Stop() error {
	if r.sub == nil {
		return nil
	}
	if err := r.sub.Drain(); err != nil {
		return fmt.Errorf("failed to drain subscription: %w", err)
	}
	return nil
}

func (r *Responder) handle(data []byte) []byte {
	requestType := peekType(data)

	r.mu.Lock()
	started := time.Now()
	reply := r.processor.Process(data)
	elapsed := time.Since(started)
	r.mu.Unlock()

	r.trail.Record(requestType, peekCode(reply), elapsed)
	return reply
}

// peekType reads the envelope discriminant without decoding the body.
// It assumes wire.JSONCodec's {"type":...,"body":...} envelope; if the
// device ever serves a different codec these helpers must change with
// it. Unparseable input audits as "unknown"; the processor still sees
// the raw bytes and answers with its own error frame.
func peekType(data []byte) string {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
		return "unknown"
	}
	return env.Type
}

// peekCode extracts the error code from a wire.JSONCodec response
// frame; non-error frames audit as code 0.
func peekCode(reply []byte) int32 {
	var env struct {
		Type string `json:"type"`
		Body struct {
			Code int32 `json:"code"`
		} `json:"body"`
	}
	if err := json.Unmarshal(reply, &env); err != nil {
		return 0
	}
	if env.Type != wire.TypeError {
		return 0
	}
	return env.Body.Code
}
