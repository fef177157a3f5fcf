package transport

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoProcessor struct {
	mu    sync.Mutex
	calls int
	reply []byte
}

func (p *echoProcessor) Process(input []byte) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.reply
}

type recordedEvent struct {
	requestType string
	code        int32
}

type fakeTrail struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeTrail) Record(requestType string, code int32, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{requestType, code})
}

func TestHandle_AuditsTypeAndCode(t *testing.T) {
	trail := &fakeTrail{}
	proc := &echoProcessor{reply: []byte(`{"type":"error","body":{"code":101,"message":"invalid input"}}`)}
	r := NewResponder(nil, proc, trail)

	reply := r.handle([]byte(`{"type":"pub","body":{"keypath":[44]}}`))

	assert.Equal(t, proc.reply, reply)
	require.Len(t, trail.events, 1)
	assert.Equal(t, "pub", trail.events[0].requestType)
	assert.EqualValues(t, 101, trail.events[0].code)
}

func TestHandle_SuccessAuditsCodeZero(t *testing.T) {
	trail := &fakeTrail{}
	proc := &echoProcessor{reply: []byte(`{"type":"success","body":{}}`)}
	r := NewResponder(nil, proc, trail)

	r.handle([]byte(`{"type":"restore_backup","body":{"id":"x"}}`))

	require.Len(t, trail.events, 1)
	assert.Equal(t, "restore_backup", trail.events[0].requestType)
	assert.EqualValues(t, 0, trail.events[0].code)
}

func TestHandle_MalformedInputAuditsUnknown(t *testing.T) {
	trail := &fakeTrail{}
	proc := &echoProcessor{reply: []byte(`{"type":"error","body":{"code":101,"message":"invalid input"}}`)}
	r := NewResponder(nil, proc, trail)

	r.handle([]byte("not json"))

	require.Len(t, trail.events, 1)
	assert.Equal(t, "unknown", trail.events[0].requestType)
}

func TestHandle_NilTrailDefaultsToNoop(t *testing.T) {
	proc := &echoProcessor{reply: []byte(`{"type":"success","body":{}}`)}
	r := NewResponder(nil, proc, nil)

	assert.NotPanics(t, func() { r.handle([]byte(`{"type":"list_backups","body":{}}`)) })
	assert.Equal(t, 1, proc.calls)
}

func TestPeekHelpers(t *testing.T) {
	assert.Equal(t, "pub", peekType([]byte(`{"type":"pub"}`)))
	assert.Equal(t, "unknown", peekType([]byte(`{}`)))
	assert.Equal(t, "unknown", peekType([]byte(`garbage`)))

	assert.EqualValues(t, 103, peekCode([]byte(`{"type":"error","body":{"code":103}}`)))
	assert.EqualValues(t, 0, peekCode([]byte(`{"type":"success","body":{}}`)))
	assert.EqualValues(t, 0, peekCode([]byte(`garbage`)))
}
