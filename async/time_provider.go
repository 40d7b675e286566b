package async

import "time"

// TimeProvider supplies the clock and the inter-tick timer used by Poller.
// Tests inject one to observe the wait between ticks without sleeping.
type TimeProvider interface {
	// Now is read at the start of each tick to measure fetch duration.
	Now() time.Time
	// NewTimer arms the wait before the next tick.
	NewTimer(d time.Duration) *time.Timer
}

// RealTimeProvider is the wall clock.
type RealTimeProvider struct{}

// Now returns time.Now.
func (RealTimeProvider) Now() time.Time {
	return time.Now()
}

// NewTimer returns time.NewTimer(d).
func (RealTimeProvider) NewTimer(d time.Duration) *time.Timer {
	return time.NewTimer(d)
}

var defaultTimeProvider TimeProvider = RealTimeProvider{}

// getTimeProvider falls back to the wall clock when tp is nil.
func getTimeProvider(tp TimeProvider) TimeProvider {
	if tp != nil {
		return tp
	}
	return defaultTimeProvider
}
