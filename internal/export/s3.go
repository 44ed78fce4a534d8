package export

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/prn-tf/teamledger/internal/config"
)

// S3Store writes exports to an S3-compatible bucket.
type S3Store struct {
	client *s3.Client
	bucket string
	logger zerolog.Logger
}

// NewS3Store creates an S3-backed export store from configuration.
// A custom endpoint switches the client to path-style addressing so
// MinIO-style deployments work out of the box.
func NewS3Store(ctx context.Context, cfg config.ExportConfig, logger zerolog.Logger) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Info().Str("bucket", cfg.Bucket).Str("region", cfg.Region).Msg("export store ready")

	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
		logger: logger.With().Str("component", "s3_export").Logger(),
	}, nil
}

// Put writes the content under the given key.
func (s *S3Store) Put(ctx context.Context, key string, contentType string, body io.Reader) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("failed to put export object: %w", err)
	}

	s.logger.Debug().Str("key", key).Msg("export object written")
	return nil
}

// Ensure S3Store implements Store.
var _ Store = (*S3Store)(nil)
