package archive

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"restronaut/internal/services"
)

// S3Options configures the S3 store. Endpoint, when set, targets an
// S3-compatible service with path-style addressing.
type S3Options struct {
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string
}

// S3 uploads objects with static credentials.
type S3 struct {
	client *s3.Client
}

// NewS3 builds an S3 store.
func NewS3(ctx context.Context, opts S3Options) (*S3, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "archive", "s3 config", "load AWS configuration", err)
	}
	endpoint := strings.TrimSpace(opts.Endpoint)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3{client: client}, nil
}

// Put uploads localPath to bucket/key.
func (s *S3) Put(ctx context.Context, bucket, key, localPath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return services.Wrap(services.ErrStorage, "archive", "s3 put", "open source file", err)
	}
	defer file.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String("application/xml"),
	})
	if err != nil {
		return services.Wrap(services.ErrStorage, "archive", "s3 put", fmt.Sprintf("upload s3://%s/%s", bucket, key), err)
	}
	return nil
}
