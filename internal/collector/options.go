package collector

import (
	"time"

	"github.com/google/uuid"
	"github.com/okian/sitelog/internal/domain/record"
	"github.com/okian/sitelog/pkg/logger"
)

// Option configures a Normalizer or Collector.
type Option func(*options)

type options struct {
	environment string
	ttlDays     int
	newID       func() string
	logger      logger.Logger
	clock       func() time.Time
}

func defaultOptions() options {
	return options{
		environment: "dev",
		ttlDays:     record.DefaultTTLDays,
		newID:       func() string { return uuid.NewString() },
		logger:      logger.Discard(),
		clock:       time.Now,
	}
}

func apply(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithEnvironment sets the deployment tag stamped on every record.
func WithEnvironment(env string) Option {
	return func(o *options) {
		if env != "" {
			o.environment = env
		}
	}
}

// WithTTLDays sets how many days a record lives in the keyed store.
func WithTTLDays(days int) Option {
	return func(o *options) {
		if days > 0 {
			o.ttlDays = days
		}
	}
}

// WithIDGenerator replaces the event id source.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
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

// WithClock sets the processing time source.
func WithClock(fn func() time.Time) Option {
	return func(o *options) {
		if fn != nil {
			o.clock = fn
		}
	}
}
