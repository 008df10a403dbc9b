package coordinator

import (
	"time"

	"k8s.io/utils/clock"

	"github.com/pvpmeta/pvpmeta-server/internal/telemetry"
)

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithClock sets the clock driving grace delays and intervals
func WithClock(c clock.WithTicker) Option {
	return func(dc *defaultCoordinator) {
		dc.clock = c
	}
}

// WithStartupDelay sets the grace delay before the first check of each source
func WithStartupDelay(d time.Duration) Option {
	return func(dc *defaultCoordinator) {
		if d >= 0 {
			dc.startupDelay = d
		}
	}
}

// WithSourceMetrics sets the source metrics for the coordinator
func WithSourceMetrics(m *telemetry.SourceMetrics) Option {
	return func(dc *defaultCoordinator) {
		dc.sourceMetrics = m
	}
}

// fallbackInterval applies to a source without a positive interval
const fallbackInterval = time.Hour

// checkInterval returns the interval of a source
func checkInterval(d time.Duration) time.Duration {
	if d <= 0 {
		return fallbackInterval
	}
	return d
}
