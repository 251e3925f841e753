package archive

import (
	"time"

	"github.com/okian/sitelog/pkg/logger"
)

// Option configures an Archiver or Job.
type Option func(*options)

type options struct {
	environment string
	concurrency int
	clock       func() time.Time
	logger      logger.Logger
}

func apply(opts []Option) options {
	o := options{
		environment: "dev",
		concurrency: 1,
		clock:       time.Now,
		logger:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithEnvironment sets the deployment tag written into archives.
func WithEnvironment(env string) Option {
	return func(o *options) {
		if env != "" {
			o.environment = env
		}
	}
}

// WithConcurrency bounds how many sites are archived at once.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithClock sets the time source.
func WithClock(fn func() time.Time) Option {
	return func(o *options) {
		if fn != nil {
			o.clock = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
