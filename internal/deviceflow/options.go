package deviceflow

import "time"

// Option configures the device flow manager
type Option func(*Flow)

// WithCodeExpiry sets the validity window of issued device and user codes
func WithCodeExpiry(d time.Duration) Option {
	return func(f *Flow) {
		f.codeExpiry = d
	}
}

// WithPollInterval sets the poll interval advertised to clients
func WithPollInterval(d time.Duration) Option {
	return func(f *Flow) {
		f.pollInterval = d
	}
}

// withClock overrides the time source in tests
func withClock(now func() time.Time) Option {
	return func(f *Flow) {
		f.now = now
	}
}
