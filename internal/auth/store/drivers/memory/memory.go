// Package memory keeps sessions and revocations in process memory. State is
// lost on restart and is not shared between processes.
package memory

import (
	"time"
)

// Option configures the memory repositories.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source used for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
