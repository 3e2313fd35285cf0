package archive

import (
	"context"
	"fmt"
	"strings"

	"restronaut/internal/config"
	"restronaut/internal/services"
)

// Store uploads a local file to a bucket under key.
type Store interface {
	Put(ctx context.Context, bucket, key, localPath string) error
}

// Noop is the store used when archiving is disabled.
type Noop struct{}

func (Noop) Put(context.Context, string, string, string) error { return nil }

// NewFromConfig returns the store selected by archive.provider.
func NewFromConfig(ctx context.Context, cfg config.Archive) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "":
		return Noop{}, nil
	case "s3":
		return NewS3(ctx, S3Options{
			Region:    cfg.Region,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Endpoint:  cfg.Endpoint,
		})
	case "gcs":
		return NewGCS(ctx, cfg.CredentialsFile)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "archive", "new store", fmt.Sprintf("unsupported provider %q", cfg.Provider), nil)
	}
}
