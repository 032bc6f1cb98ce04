package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/stylhelpr/stylhelpr-backend/config"
)

const presignExpiry = 15 * time.Minute

// ImageContentTypes maps the accepted thumbnail types to their extension.
var ImageContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

type S3Storage struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	region  string
	baseURL string
}

type PresignedURLResponse struct {
	UploadURL string    `json:"upload_url"`
	FileURL   string    `json:"file_url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewS3Storage(ctx context.Context, cfg *config.S3Config) *S3Storage {
	var awsCfg aws.Config
	var err error

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg = aws.Config{
			Region: cfg.Region,
			Credentials: credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				"",
			),
		}
	} else {
		// default chain: env, shared config, instance role
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			awsCfg = aws.Config{Region: cfg.Region}
		}
	}

	client := s3.NewFromConfig(awsCfg)
	return &S3Storage{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		region:  cfg.Region,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// PresignThumbnailUpload returns a PUT URL for an outfit thumbnail stored
// under outfits/<user>/<uuid><ext>.
func (s *S3Storage) PresignThumbnailUpload(ctx context.Context, userID, filename, contentType string) (*PresignedURLResponse, error) {
	if err := ValidateContentType(contentType); err != nil {
		return nil, err
	}
	key := ThumbnailKey(userID, filename, contentType)
	return s.presignPut(ctx, key, contentType)
}

func (s *S3Storage) presignPut(ctx context.Context, key, contentType string) (*PresignedURLResponse, error) {
	presignedReq, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return &PresignedURLResponse{
		UploadURL: presignedReq.URL,
		FileURL:   s.FileURL(key),
		Key:       key,
		ExpiresAt: time.Now().Add(presignExpiry).UTC(),
	}, nil
}

// FileURL is the public URL of key, through the CDN when one is configured.
func (s *S3Storage) FileURL(key string) string {
	if s.baseURL != "" {
		return fmt.Sprintf("%s/%s", s.baseURL, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// ErrContentType is returned for non-image uploads.
type ErrContentType struct {
	ContentType string
}

func (e *ErrContentType) Error() string {
	return fmt.Sprintf("content type %q is not allowed", e.ContentType)
}

func ValidateContentType(contentType string) error {
	if _, ok := ImageContentTypes[strings.ToLower(contentType)]; !ok {
		return &ErrContentType{ContentType: contentType}
	}
	return nil
}

// ThumbnailKey builds the object key. The extension comes from filename when
// it is a known image extension, otherwise from the content type.
func ThumbnailKey(userID, filename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if !knownExtension(ext) {
		ext = ImageContentTypes[strings.ToLower(contentType)]
	}
	return fmt.Sprintf("outfits/%s/%s%s", sanitizeSegment(userID), uuid.NewString(), ext)
}

func knownExtension(ext string) bool {
	if ext == ".jpeg" {
		return true
	}
	for _, e := range ImageContentTypes {
		if e == ext {
			return true
		}
	}
	return false
}

// sanitizeSegment keeps identity-provider ids ("auth0|abc") usable as a
// single path segment.
func sanitizeSegment(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "anonymous"
	}
	return b.String()
}
