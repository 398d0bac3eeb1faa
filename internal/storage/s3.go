package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"github.com/warehouse-twin/backend/internal/models"
)

// S3Config holds explicit construction parameters for the S3 backend.
// Credentials fall back to the default AWS chain when AccessKeyID is empty.
type S3Config struct {
	Bucket          string
	Key             string // object key of the layout document
	Region          string
	Endpoint        string // optional, e.g. MinIO
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	PathStyle       bool
}

// s3API is the subset of the S3 client used by S3Store.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store keeps the whole collection in one object. PutObject replaces the
// object atomically, so readers never see a partial document.
type S3Store struct {
	client s3API
	bucket string
	key    string
	log    zerolog.Logger
}

// NewS3Store creates an S3-backed store from cfg.
func NewS3Store(ctx context.Context, cfg S3Config, logger zerolog.Logger) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newS3Store(client, cfg, logger), nil
}

func newS3Store(client s3API, cfg S3Config, logger zerolog.Logger) *S3Store {
	key := cfg.Key
	if key == "" {
		key = DefaultDocumentName
	}
	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
		key:    key,
		log:    logger.With().Str("component", "storage").Str("driver", DriverS3).Logger(),
	}
}

// Load fetches the layout object. A missing object loads as empty, as does a
// body that fails to decode. Transport errors are returned.
func (s *S3Store) Load(ctx context.Context) ([]models.Layout, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return emptyCollection(), nil
		}
		return nil, fmt.Errorf("get s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		s.log.Warn().Err(err).Str("key", s.key).Msg("layout object unreadable, loading empty collection")
		return emptyCollection(), nil
	}
	layouts, err := decodeLayouts(data, s.log.With().Str("key", s.key).Logger())
	if err != nil {
		s.log.Warn().Err(err).Str("key", s.key).Msg("layout object corrupt, loading empty collection")
		return emptyCollection(), nil
	}
	return layouts, nil
}

// Save uploads the complete collection as one object.
func (s *S3Store) Save(ctx context.Context, layouts []models.Layout) error {
	data, err := encodeLayouts(layouts)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return nil
}

// Close is a no-op for the S3 backend.
func (s *S3Store) Close() error { return nil }
