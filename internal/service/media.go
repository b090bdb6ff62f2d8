package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"pigmap/internal/config"
	"pigmap/internal/logging"
	domain "pigmap/internal/model"
	"pigmap/internal/sanitize"
)

// MediaService issues presigned upload URLs for Cloudflare R2 and removes
// objects when their marker is deleted. Media bytes never pass through the server.
type MediaService struct {
	s3Client  *s3.Client
	presigner *s3.PresignClient
	bucket    string
	publicURL string
	now       func() time.Time
}

// NewMediaService constructs an S3-compatible client for Cloudflare R2.
func NewMediaService(ctx context.Context, cfg *config.Config) (*MediaService, error) {
	if !cfg.HasBlobStore() {
		return nil, domain.ErrBlobStoreDisabled
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for R2: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &MediaService{
		s3Client:  s3Client,
		presigner: s3.NewPresignClient(s3Client),
		bucket:    cfg.R2BucketName,
		publicURL: strings.TrimSuffix(cfg.R2PublicURL, "/"),
		now:       time.Now,
	}, nil
}

// PresignUpload validates the declared file and returns a one-hour PUT URL.
func (s *MediaService) PresignUpload(ctx context.Context, req domain.UploadURLRequest) (*domain.UploadURLResponse, error) {
	log := logging.Component("media_service")

	key, contentType, err := uploadKey(req, s.now())
	if err != nil {
		return nil, err
	}

	expires := time.Duration(domain.UploadURLExpirySec) * time.Second
	presigned, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(req.ContentLength),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Presign FAILED")
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	log.Info().Str("key", key).Str("content_type", contentType).Int64("size", req.ContentLength).Msg("Presign OK")
	return &domain.UploadURLResponse{
		UploadURL: presigned.URL,
		PublicURL: fmt.Sprintf("%s/%s", s.publicURL, key),
		Key:       key,
		ExpiresIn: domain.UploadURLExpirySec,
	}, nil
}

// uploadKey checks type and size against the per-kind limits and builds
// the object key media/<unix-ms>-<uuid>-<filename>.
func uploadKey(req domain.UploadURLRequest, now time.Time) (key, contentType string, err error) {
	contentType = strings.ToLower(strings.TrimSpace(req.ContentType))
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}

	kind := domain.MediaKindFromContentType(contentType)
	if !domain.IsAllowedContentType(kind, contentType) {
		return "", "", domain.ErrInvalidMediaType
	}
	if req.ContentLength <= 0 || req.ContentLength > domain.MaxMediaSize[kind] {
		return "", "", domain.ErrFileTooLarge
	}

	name := sanitize.Filename(req.Filename)
	if name == "" {
		return "", "", domain.NewValidationError("filename is invalid")
	}

	key = fmt.Sprintf("%s/%d-%s-%s", domain.MediaFolder, now.UnixMilli(), uuid.NewString(), name)
	return key, contentType, nil
}

// DeleteByURL removes the object behind a public URL. URLs outside this
// bucket's public prefix are ignored.
func (s *MediaService) DeleteByURL(ctx context.Context, url string) error {
	key, ok := keyFromURL(s.publicURL, url)
	if !ok {
		return nil
	}
	return s.DeleteObject(ctx, key)
}

func keyFromURL(publicURL, url string) (string, bool) {
	prefix := publicURL + "/"
	if publicURL == "" || !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	return key, key != ""
}

// DeleteObject removes an object by key.
func (s *MediaService) DeleteObject(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from r2: %w", err)
	}
	return nil
}
