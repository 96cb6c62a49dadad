// utils/r2.go
package utils

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectUploader is the part of the S3 client the exporters need.
type ObjectUploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// R2Store writes objects into a Cloudflare R2 bucket.
type R2Store struct {
	client ObjectUploader
	bucket string
}

func NewR2Store(client ObjectUploader, bucket string) *R2Store {
	return &R2Store{client: client, bucket: bucket}
}

// InitR2 builds an R2Store from account credentials.
func InitR2(ctx context.Context, accountID, accessKeyID, accessKeySecret, bucket string) (*R2Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID, accessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID))
	})
	return NewR2Store(client, bucket), nil
}

// Put uploads body under key.
func (r *R2Store) Put(ctx context.Context, key, contentType string, body []byte) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to R2: %w", key, err)
	}
	return nil
}
