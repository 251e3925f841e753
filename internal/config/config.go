// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults and Load(ctx) to layer
//   file and environment overrides on top.
// - External errors must be wrapped with this package's sentinel kinds.
package config

import (
	"fmt"
)

// Runtime values select how binaries receive work.
const (
	RuntimeHTTP   = "http"
	RuntimeLambda = "lambda"
)

// Keyed store drivers.
const (
	StoreMemory   = "memory"
	StoreBadger   = "badger"
	StoreDynamoDB = "dynamodb"
)

// Cold store drivers.
const (
	BucketMemory     = "memory"
	BucketFilesystem = "filesystem"
	BucketS3         = "s3"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`
	// Runtime is "http" (long-running server/loop) or "lambda".
	Runtime string `koanf:"runtime"`

	// Environment is the deployment tag stamped on records and archives.
	Environment string `koanf:"environment"`
	// TTLDays is how long the keyed store keeps records.
	TTLDays int `koanf:"ttl_days"`

	// StoreDriver picks the keyed store implementation.
	StoreDriver string `koanf:"store_driver"`
	// StoreTable is the DynamoDB table name.
	StoreTable string `koanf:"store_table"`
	// StoreDir is the badger data directory; empty runs badger in memory.
	StoreDir string `koanf:"store_dir"`
	// StoreEndpoint overrides the DynamoDB endpoint (dynamodb-local).
	StoreEndpoint string `koanf:"store_endpoint"`
	// ScanPageSize caps items evaluated per scan page; 0 uses the driver default.
	ScanPageSize int `koanf:"scan_page_size"`

	// BucketDriver picks the cold store implementation.
	BucketDriver string `koanf:"bucket_driver"`
	// BucketName is the S3 bucket.
	BucketName string `koanf:"bucket_name"`
	// BucketDir is the root directory of the filesystem bucket.
	BucketDir string `koanf:"bucket_dir"`
	// BucketEndpoint overrides the S3 endpoint (minio, localstack).
	BucketEndpoint string `koanf:"bucket_endpoint"`

	// AWSRegion is used by the DynamoDB and S3 drivers.
	AWSRegion string `koanf:"aws_region"`

	// ArchiveConcurrency bounds how many sites are archived at once.
	ArchiveConcurrency int `koanf:"archive_concurrency"`
	// ArchiveOffsetSeconds delays the hourly run past the top of the hour.
	ArchiveOffsetSeconds int `koanf:"archive_offset_seconds"`
	// ArchiveInProcess runs the hourly archive loop inside the HTTP
	// collector. Disable it when a separate archiver shares a dynamodb table.
	ArchiveInProcess bool `koanf:"archive_in_process"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		Runtime:              RuntimeHTTP,
		Environment:          "dev",
		TTLDays:              180,
		StoreDriver:          StoreMemory,
		BucketDriver:         BucketMemory,
		BucketDir:            "./archive",
		AWSRegion:            "us-east-1",
		ArchiveConcurrency:   1,
		ArchiveOffsetSeconds: 60,
		ArchiveInProcess:     true,
	}
}

// Validate checks option combinations that cannot work at all. Missing table
// or bucket names are not checked here: they only matter once a driver binds.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "" && c.Runtime == RuntimeHTTP:
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Runtime != RuntimeHTTP && c.Runtime != RuntimeLambda:
		return fmt.Errorf("%w: unknown runtime %q", ErrInvalidConfig, c.Runtime)
	case c.TTLDays <= 0:
		return fmt.Errorf("%w: ttl_days must be positive", ErrInvalidConfig)
	}
	switch c.StoreDriver {
	case StoreMemory, StoreBadger, StoreDynamoDB:
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	switch c.BucketDriver {
	case BucketMemory, BucketFilesystem, BucketS3:
	default:
		return fmt.Errorf("%w: unknown bucket_driver %q", ErrInvalidConfig, c.BucketDriver)
	}
	return nil
}

// ValidateStandaloneArchiver reports whether an archiver running in its own
// process can read what the collector stored. A memory store is private to
// the collector and badger holds an exclusive directory lock, so both only
// work from inside the collector; badger is allowed for a single -once run
// against the directory of a stopped collector.
func (c *Config) ValidateStandaloneArchiver(once bool) error {
	switch c.StoreDriver {
	case StoreMemory:
		return fmt.Errorf("%w: store_driver %q is private to the collector process; enable archive_in_process instead",
			ErrInvalidConfig, c.StoreDriver)
	case StoreBadger:
		if !once || c.StoreDir == "" {
			return fmt.Errorf("%w: store_driver %q is locked by the collector; enable archive_in_process or run -once on a stopped collector's store_dir",
				ErrInvalidConfig, c.StoreDriver)
		}
	}
	return nil
}
