// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/car-marketplace-backend/internal/config"
)

// ObjectStorage stores opaque blobs under caller-chosen keys. The listing
// store only needs to know that the write completed.
type ObjectStorage interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	DeleteObject(ctx context.Context, key string) error
}

type StorageService struct {
	s3Client s3iface.S3API
	bucket   string
	localDir string
}

var imageKeyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._/-]{0,511}$`)

func NewStorageService(cfg config.AWSConfig) (*StorageService, error) {
	if cfg.AccessKeyID == "" {
		// Return service without S3 for local development
		logrus.WithField("dir", cfg.LocalUploadDir).Warn("AWS credentials not set, storing images on local disk")
		return &StorageService{localDir: cfg.LocalUploadDir}, nil
	}

	// Create AWS session
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return NewS3StorageService(s3.New(sess), cfg.S3Bucket), nil
}

// NewS3StorageService wraps an existing S3 client, e.g. one pointed at a
// local S3-compatible endpoint.
func NewS3StorageService(client s3iface.S3API, bucket string) *StorageService {
	return &StorageService{s3Client: client, bucket: bucket}
}

func (s *StorageService) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	if s.s3Client == nil {
		return s.writeLocal(key, data)
	}

	params := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	}

	if _, err := s.s3Client.PutObjectWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

func (s *StorageService) DeleteObject(ctx context.Context, key string) error {
	if s.s3Client == nil {
		err := os.Remove(filepath.Join(s.localDir, filepath.FromSlash(key)))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete local file: %w", err)
		}
		return nil
	}

	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}
	return nil
}

func (s *StorageService) writeLocal(key string, data []byte) error {
	path := filepath.Join(s.localDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create upload dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write local file: %w", err)
	}
	return nil
}

// ValidateImageKey rejects keys that could escape the bucket prefix or the
// local upload directory.
func ValidateImageKey(key string) error {
	if !imageKeyPattern.MatchString(key) || strings.Contains(key, "..") {
		return fmt.Errorf("%w: invalid image key %q", ErrValidation, key)
	}
	return nil
}

// Content types accepted for car images.
var allowedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// DetectImageType sniffs the content and returns the content type to store
// the object with.
func DetectImageType(data []byte) (string, error) {
	mtype := mimetype.Detect(data)
	for _, allowed := range allowedImageTypes {
		if mtype.Is(allowed) {
			return allowed, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported image type %s", ErrValidation, mtype.String())
}
