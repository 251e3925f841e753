// Package service wires configuration, storage and the collector and
// archive components into one runnable unit.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/okian/sitelog/internal/adapters/coldstore"
	repository "github.com/okian/sitelog/internal/adapters/repository"
	"github.com/okian/sitelog/internal/archive"
	"github.com/okian/sitelog/internal/collector"
	"github.com/okian/sitelog/internal/config"
	"github.com/okian/sitelog/pkg/logger"
)

// Service owns the store, bucket, collector and archive job.
type Service struct {
	mu sync.RWMutex

	cfg    *config.Config
	logger logger.Logger
	clock  func() time.Time

	// Injected clients replace the AWS-configured ones.
	dynamo repository.DynamoAPI
	s3     coldstore.S3API

	store     repository.Store
	bucket    coldstore.Bucket
	collector *collector.Collector
	job       *archive.Job
	closers   []func() error

	started bool
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the configuration. Without it defaults from config.New apply.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source shared by the collector and job.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.clock = fn
		}
	}
}

// WithDynamoClient binds the dynamodb driver to client instead of one built
// from the AWS default configuration.
func WithDynamoClient(client repository.DynamoAPI) Option {
	return func(s *Service) { s.dynamo = client }
}

// WithS3Client binds the s3 driver to client instead of one built from the
// AWS default configuration.
func WithS3Client(client coldstore.S3API) Option {
	return func(s *Service) { s.s3 = client }
}

// New constructs a Service. Nothing is opened until Start.
func New(opts ...Option) *Service {
	s := &Service{
		cfg:    config.New(),
		logger: logger.Discard(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start validates the configuration and opens every component.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	store, err := s.openStore(ctx)
	if err != nil {
		s.closeAll()
		return err
	}
	bucket, err := s.openBucket(ctx)
	if err != nil {
		s.closeAll()
		return err
	}
	s.store, s.bucket = store, bucket

	s.collector = collector.New(store,
		collector.WithEnvironment(s.cfg.Environment),
		collector.WithTTLDays(s.cfg.TTLDays),
		collector.WithLogger(s.logger),
		collector.WithClock(s.clock),
	)
	s.job = archive.NewJob(
		archive.NewScanner(store, s.cfg.ScanPageSize, s.logger),
		archive.NewArchiver(bucket,
			archive.WithEnvironment(s.cfg.Environment),
			archive.WithConcurrency(s.cfg.ArchiveConcurrency),
			archive.WithLogger(s.logger),
			archive.WithClock(s.clock),
		),
		archive.WithLogger(s.logger),
		archive.WithClock(s.clock),
	)

	s.started = true
	s.logger.Info(ctx, "service started",
		logger.String("store_driver", s.cfg.StoreDriver),
		logger.String("bucket_driver", s.cfg.BucketDriver),
		logger.String("environment", s.cfg.Environment),
	)
	return nil
}

// Stop closes whatever Start opened.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if err := s.closeAll(); err != nil {
		s.logger.Warn(context.Background(), "close failed", logger.Error(err))
	}
	s.started = false
	s.logger.Info(context.Background(), "service stopped")
}

func (s *Service) closeAll() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Collector returns the ingestion component. Nil before Start.
func (s *Service) Collector() *collector.Collector {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collector
}

// Job returns the archive job. Nil before Start.
func (s *Service) Job() *archive.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.job
}

// Bucket returns the cold store. Nil before Start.
func (s *Service) Bucket() coldstore.Bucket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bucket
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":       s.started,
		"store_driver":  s.cfg.StoreDriver,
		"bucket_driver": s.cfg.BucketDriver,
		"environment":   s.cfg.Environment,
	}
	if s.collector != nil {
		for k, v := range s.collector.GetStats() {
			stats[k] = v
		}
	}
	return stats
}
