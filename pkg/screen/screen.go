// Package screen is the device display as seen by the rest of the
// firmware. The daemon has no physical screen, so notifications go to
// the structured log.
package screen

import (
	"time"

	"github.com/seclave/hsign/pkg/logger"
)

type Screen struct{}

func New() *Screen {
	return &Screen{}
}

// Notify shows a diagnostic message for the given duration. Fire and
// forget.
func (s *Screen) Notify(message string, duration time.Duration) {
	logger.Debug("screen: "+message, "duration", duration)
}
