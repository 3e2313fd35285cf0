package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"restronaut/internal/services"
)

// GCS uploads objects to Google Cloud Storage.
type GCS struct {
	client *storage.Client
}

// NewGCS builds a GCS store. An empty credentialsFile uses application
// default credentials.
func NewGCS(ctx context.Context, credentialsFile string) (*GCS, error) {
	var opts []option.ClientOption
	if path := strings.TrimSpace(credentialsFile); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "archive", "gcs client", "create storage client", err)
	}
	return &GCS{client: client}, nil
}

// Put streams localPath into bucket/key.
func (g *GCS) Put(ctx context.Context, bucket, key, localPath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return services.Wrap(services.ErrStorage, "archive", "gcs put", "open source file", err)
	}
	defer file.Close()

	writer := g.client.Bucket(bucket).Object(key).NewWriter(ctx)
	writer.ContentType = "application/xml"
	if _, err := io.Copy(writer, file); err != nil {
		_ = writer.Close()
		return services.Wrap(services.ErrStorage, "archive", "gcs put", describeGCS(bucket, key, err), err)
	}
	if err := writer.Close(); err != nil {
		return services.Wrap(services.ErrStorage, "archive", "gcs put", describeGCS(bucket, key, err), err)
	}
	return nil
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	return g.client.Close()
}

func describeGCS(bucket, key string, err error) string {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("upload gs://%s/%s (status %d)", bucket, key, apiErr.Code)
	}
	return fmt.Sprintf("upload gs://%s/%s", bucket, key)
}
