package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/seclave/hsign/pkg/event"
	"github.com/seclave/hsign/pkg/logger"
)

const publishTimeout = 5 * time.Second

// Event is one entry in the device's audit trail: which command came
// in, what the device answered, and how long it took.
type Event struct {
	EventID     string    `json:"event_id"`
	RequestType string    `json:"request_type"`
	Code        int32     `json:"code"`
	DurationMS  int64     `json:"duration_ms"`
	At          time.Time `json:"at"`
}

// Trail records processed commands. Recording must never fail the
// command itself; implementations log and move on.
type Trail interface {
	Record(requestType string, code int32, duration time.Duration)
}

// NoopTrail drops every record. Used when auditing is disabled.
type NoopTrail struct{}

func (NoopTrail) Record(string, int32, time.Duration) {}

// JetStreamTrail persists audit events to a JetStream stream so hosts
// can reconstruct the device's command history after the fact.
type JetStreamTrail struct {
	js jetstream.JetStream
}

func NewJetStreamTrail(nc *nats.Conn) (*JetStreamTrail, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        event.AuditStream,
		Description: "Audit trail for " + event.AuditStream,
		Subjects:    []string{event.AuditTopicWildcard},
		MaxBytes:    10_485_760, // 10 MB, oldest entries roll off
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.LimitsPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create audit stream: %w", err)
	}

	logger.Info("Audit trail ready", "stream", event.AuditStream)
	return &JetStreamTrail{js: js}, nil
}

func (t *JetStreamTrail) Record(requestType string, code int32, duration time.Duration) {
	entry := Event{
		EventID:     uuid.NewString(),
		RequestType: requestType,
		Code:        code,
		DurationMS:  duration.Milliseconds(),
		At:          time.Now().UTC(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		logger.Error("Failed to marshal audit event", err)
		return
	}

	header := nats.Header{}
	header.Add("Nats-Msg-Id", entry.EventID)

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if _, err := t.js.PublishMsg(ctx, &nats.Msg{
		Subject: event.FormatAuditTopic(requestType),
		Data:    data,
		Header:  header,
	}); err != nil {
		logger.Error("Failed to publish audit event", err,
			"requestType", requestType, "code", code)
	}
}
