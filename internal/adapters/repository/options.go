package repository

import "github.com/okian/sitelog/pkg/logger"

// Option configures a store driver.
type Option func(*options)

type options struct {
	logger   logger.Logger
	inMemory bool
	expiry   bool
}

func defaultOptions() options {
	return options{logger: logger.Discard(), expiry: true}
}

// WithLogger sets the logger used for driver diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithInMemory keeps a badger store entirely in memory.
func WithInMemory() Option {
	return func(o *options) { o.inMemory = true }
}

// WithExpiry toggles honouring the ttl attribute in drivers that support
// native expiry. Enabled by default.
func WithExpiry(enabled bool) Option {
	return func(o *options) { o.expiry = enabled }
}
