package config

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewS3Client returns nil when the storage mode does not publish to S3.
func NewS3Client(cfg *AppConfig) *s3.Client {
	if cfg.StorageMode != StorageModeS3 {
		return nil
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}

	sdkConfig, err := config.LoadDefaultConfig(context.TODO(), opts...)
	if err != nil {
		slog.Error("Failed to load AWS SDK config", "error", err)
		return nil
	}

	client := s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return client
}
