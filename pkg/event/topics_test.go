package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatAuditTopic(t *testing.T) {
	assert.Equal(t, "audit.hww.pub", FormatAuditTopic("pub"))
	assert.Equal(t, "audit.hww.unknown", FormatAuditTopic(""))
}
