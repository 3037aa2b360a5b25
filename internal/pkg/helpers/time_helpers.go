package helpers

import (
	"time"

	"github.com/yigit/coursehub/internal/pkg/logger"
)

// ParseDuration parses a duration string and falls back to defaultDuration on error.
// Config values are validated at load time, so the fallback only covers zero values.
func ParseDuration(durationStr string, defaultDuration time.Duration) time.Duration {
	if durationStr == "" {
		return defaultDuration
	}
	duration, err := time.ParseDuration(durationStr)
	if err != nil || duration <= 0 {
		logger.Warn().Err(err).Str("durationStr", durationStr).Dur("defaultDuration", defaultDuration).
			Msg("Failed to parse duration string, using default")
		return defaultDuration
	}
	return duration
}
