package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeypath(t *testing.T) {
	kp, err := ParseKeypath("44/0/0/1/7")
	require.NoError(t, err)
	assert.Equal(t, []uint32{44, 0, 0, 1, 7}, kp)

	kp, err = ParseKeypath("m/44/0")
	require.NoError(t, err)
	assert.Equal(t, []uint32{44, 0}, kp)
}

func TestParseKeypath_Invalid(t *testing.T) {
	for _, s := range []string{"", "m/", "44//0", "44/x", "44/-1", "44/4294967296"} {
		_, err := ParseKeypath(s)
		assert.Error(t, err, "input %q", s)
	}
}
