package adapter

import (
	"RNChatMedia/internal/config"
	"RNChatMedia/internal/helper"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var ErrStoredIDExists = errors.New("stored id already exists")

// StorageAdapter owns the storage root. Uploads always land on local disk
// first because the transcoders work on paths; in s3 mode the published
// result is copied to the bucket afterwards.
type StorageAdapter struct {
	root         string
	client       *s3.Client
	bucket       string
	region       string
	publicDomain string
}

func NewStorageAdapter(cfg *config.AppConfig, s3Client *s3.Client) (*StorageAdapter, error) {
	if err := os.MkdirAll(cfg.StorageRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	return &StorageAdapter{
		root:         cfg.StorageRoot,
		client:       s3Client,
		bucket:       cfg.S3Bucket,
		region:       cfg.S3Region,
		publicDomain: cfg.S3PublicDomain,
	}, nil
}

func (s *StorageAdapter) Root() string {
	return s.root
}

// Save writes r to root/id. It never overwrites: an existing id yields
// ErrStoredIDExists so the caller can pick a new one. A partial file is
// removed on failure.
func (s *StorageAdapter) Save(id string, r io.Reader) (string, error) {
	if id == "" || filepath.Base(id) != id {
		return "", fmt.Errorf("invalid stored id %q", id)
	}

	path := filepath.Join(s.root, id)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", ErrStoredIDExists
		}
		return "", err
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		s.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		s.Remove(path)
		return "", err
	}

	return path, nil
}

// Remove deletes a file under the root. Missing files are not an error.
func (s *StorageAdapter) Remove(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to remove stored file", "path", path, "error", err)
	}
}

// Publish uploads a finished file to the bucket under key.
func (s *StorageAdapter) Publish(ctx context.Context, localPath, key, contentType string) error {
	if s.client == nil {
		return errors.New("s3 client is not initialized")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	operation := func(ctx context.Context) (struct{}, bool, error) {
		f, err := os.Open(localPath)
		if err != nil {
			return struct{}{}, false, err
		}
		defer f.Close()

		_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(filepath.ToSlash(key)),
			Body:        f,
			ContentType: aws.String(contentType),
		})
		if err != nil {
			return struct{}{}, ctx.Err() == nil, err
		}
		return struct{}{}, false, nil
	}

	_, err := helper.RetryWithBackoff(ctx, operation, 2, 500*time.Millisecond)
	return err
}

func (s *StorageAdapter) PublicBaseURL() string {
	if s.publicDomain != "" {
		return s.publicDomain
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", s.bucket, s.region)
}
