package commander

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/seclave/hsign/pkg/wire"
)

func TestErrorCatalog_EveryKindHasARow(t *testing.T) {
	for kind := ErrOK; kind < numErrorKinds; kind++ {
		assert.NotEmpty(t, MessageFor(kind), "kind %s has no message", kind)
		if kind != ErrOK {
			assert.NotZero(t, CodeFor(kind), "kind %s has no code", kind)
		}
	}
}

func TestErrorCatalog_CodesAreUnique(t *testing.T) {
	seen := make(map[int32]ErrorKind)
	for kind := ErrOK; kind < numErrorKinds; kind++ {
		code := CodeFor(kind)
		if prev, ok := seen[code]; ok {
			t.Fatalf("code %d assigned to both %s and %s", code, prev, kind)
		}
		seen[code] = kind
	}
}

func TestErrorCatalog_MessagesFitTheWireBound(t *testing.T) {
	for kind := ErrOK; kind < numErrorKinds; kind++ {
		msg := MessageFor(kind)
		assert.LessOrEqual(t, len(msg), wire.MaxErrorMessageLen, "kind %s", kind)
		for _, r := range msg {
			assert.Less(t, r, rune(128), "kind %s message is not ASCII", kind)
		}
	}
}

func TestErrorCatalog_TotalOverCorruptedKinds(t *testing.T) {
	// A kind past the table must not index out of range.
	assert.Equal(t, CodeFor(ErrGeneric), CodeFor(ErrorKind(200)))
	assert.Equal(t, MessageFor(ErrGeneric), MessageFor(ErrorKind(200)))
}

func TestReportError_Idempotent(t *testing.T) {
	var resp wire.Response
	resp.SetSuccess()

	reportError(&resp, ErrDisabled)
	first := *resp.Error
	reportError(&resp, ErrDisabled)

	assert.Equal(t, first, *resp.Error)
	assert.Equal(t, wire.ResponseTagError, resp.Tag())
}
