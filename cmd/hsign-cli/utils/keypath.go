package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseKeypath turns a slash-separated derivation path like "44/0/0"
// into its numeric components. A leading "m/" prefix is accepted.
func ParseKeypath(s string) ([]uint32, error) {
	s = strings.TrimPrefix(s, "m/")
	if s == "" {
		return nil, fmt.Errorf("empty keypath")
	}

	parts := strings.Split(s, "/")
	keypath := make([]uint32, 0, len(parts))
	for _, part := range parts {
		index, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid keypath component %q: %w", part, err)
		}
		keypath = append(keypath, uint32(index))
	}
	return keypath, nil
}
