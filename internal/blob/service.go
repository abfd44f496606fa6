// Package blob stores attachment payloads in S3-compatible object storage.
// The API never proxies bytes: clients upload and download through
// short-lived presigned URLs while Postgres keeps only the metadata.
package blob

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const presignTTL = 15 * time.Minute

type Service struct {
	client *minio.Client
	bucket string
}

// NewService connects to the object store. An empty endpoint means
// attachments are disabled; callers should not construct a Service then.
func NewService(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Service, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object store: %w", err)
	}
	return &Service{client: client, bucket: bucket}, nil
}

// EnsureBucket creates the bucket on first boot; an existing bucket is fine.
func (s *Service) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

// PresignUpload returns a URL the client PUTs the file to directly.
func (s *Service) PresignUpload(ctx context.Context, objectKey, contentType string) (string, error) {
	presigned, err := s.client.PresignedPutObject(ctx, s.bucket, objectKey, presignTTL)
	if err != nil {
		return "", fmt.Errorf("presign upload: %w", err)
	}
	_ = contentType // enforced client-side; the bucket accepts any type
	return presigned.String(), nil
}

// PresignDownload returns a URL that serves the object with a download
// disposition carrying the original file name.
func (s *Service) PresignDownload(ctx context.Context, objectKey, fileName string) (string, error) {
	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, presignTTL, params)
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}
	return presigned.String(), nil
}

// Remove deletes the stored object.
func (s *Service) Remove(ctx context.Context, objectKey string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}
