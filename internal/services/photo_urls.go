package services

import (
	"context"
	"fmt"
	"time"

	appconfig "reunion-countdown/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PhotoURLSigner hands out time-limited GET URLs for puzzle photos kept in an S3 bucket
type PhotoURLSigner struct {
	presign  *s3.PresignClient
	s3Bucket string
	expiry   time.Duration
}

// NewPhotoURLSigner creates a new photo URL signer
func NewPhotoURLSigner(ctx context.Context, cfg appconfig.AWSConfig) (*PhotoURLSigner, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &PhotoURLSigner{
		presign:  s3.NewPresignClient(s3Client),
		s3Bucket: cfg.S3Bucket,
		expiry:   cfg.URLExpiry,
	}, nil
}

// PhotoURL generates a pre-signed GET URL for the object key
func (s *PhotoURLSigner) PhotoURL(ctx context.Context, key string) (string, error) {
	request, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.s3Bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.expiry
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}
	return request.URL, nil
}

var _ URLResolver = (*PhotoURLSigner)(nil)
