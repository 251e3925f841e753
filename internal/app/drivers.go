package service

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/okian/sitelog/internal/adapters/coldstore"
	repository "github.com/okian/sitelog/internal/adapters/repository"
	"github.com/okian/sitelog/internal/config"
)

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	switch s.cfg.StoreDriver {
	case config.StoreBadger:
		opts := []repository.Option{repository.WithLogger(s.logger)}
		if s.cfg.StoreDir == "" {
			opts = append(opts, repository.WithInMemory())
		}
		db, err := repository.OpenBadger(s.cfg.StoreDir, opts...)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db.Close)
		return db, nil
	case config.StoreDynamoDB:
		if s.cfg.StoreTable == "" {
			return nil, fmt.Errorf("%w: store_table is required for dynamodb", config.ErrInvalidConfig)
		}
		client := s.dynamo
		if client == nil {
			awsCfg, err := s.awsConfig(ctx)
			if err != nil {
				return nil, err
			}
			client = dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
				if s.cfg.StoreEndpoint != "" {
					o.BaseEndpoint = aws.String(s.cfg.StoreEndpoint)
				}
			})
		}
		return repository.NewDynamoStore(client, s.cfg.StoreTable), nil
	default:
		return repository.NewMemoryStore(), nil
	}
}

func (s *Service) openBucket(ctx context.Context) (coldstore.Bucket, error) {
	switch s.cfg.BucketDriver {
	case config.BucketFilesystem:
		b, err := coldstore.NewFilesystem(s.cfg.BucketDir)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, b.Close)
		return b, nil
	case config.BucketS3:
		if s.cfg.BucketName == "" {
			return nil, fmt.Errorf("%w: bucket_name is required for s3", config.ErrInvalidConfig)
		}
		client := s.s3
		if client == nil {
			awsCfg, err := s.awsConfig(ctx)
			if err != nil {
				return nil, err
			}
			client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
				if s.cfg.BucketEndpoint != "" {
					o.BaseEndpoint = aws.String(s.cfg.BucketEndpoint)
					o.UsePathStyle = true
				}
			})
		}
		return coldstore.NewS3Bucket(client, s.cfg.BucketName), nil
	default:
		b := coldstore.NewMemory()
		s.closers = append(s.closers, b.Close)
		return b, nil
	}
}

func (s *Service) awsConfig(ctx context.Context) (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(s.cfg.AWSRegion))
	if err != nil {
		return aws.Config{}, fmt.Errorf("%w: aws: %v", config.ErrLoadConfig, err)
	}
	return cfg, nil
}
