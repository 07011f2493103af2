package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/pulseloop-backend/internal/platform/logger"
)

type BucketCategory string

const (
	BucketCategoryTranscript   BucketCategory = "transcripts"
	BucketCategoryAudioSummary BucketCategory = "audio-summaries"
	BucketCategoryArticle      BucketCategory = "articles-raw"
)

var ErrObjectNotFound = errors.New("object not found")

type BucketService interface {
	// Upload writes data under key and returns the object's public URL.
	Upload(ctx context.Context, category BucketCategory, key string, data []byte) (string, error)
	Download(ctx context.Context, category BucketCategory, key string) ([]byte, error)
	Delete(ctx context.Context, category BucketCategory, key string) error
	PublicURL(category BucketCategory, key string) string
	Close() error
}

type bucketService struct {
	log           *logger.Logger
	storageClient *storage.Client
	cfg           ObjectStorageConfig
}

func NewBucketService(ctx context.Context, cfg ObjectStorageConfig, creds Credentials, log *logger.Logger) (BucketService, error) {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}
	serviceLog := log.With("service", "BucketService")

	stClient, err := newStorageClientForMode(ctx, cfg, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	serviceLog.Info(
		"Object storage initialized",
		"mode", cfg.Mode,
		"emulator_host", cfg.EmulatorHost,
		"public_base_url", cfg.PublicBaseURL,
		"default_bucket", cfg.DefaultBucket,
	)
	return &bucketService{log: serviceLog, storageClient: stClient, cfg: cfg}, nil
}

func newStorageClientForMode(ctx context.Context, cfg ObjectStorageConfig, creds Credentials) (*storage.Client, error) {
	switch cfg.Mode {
	case ObjectStorageModeGCS:
		opts := creds.ClientOptions()
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
		return storage.NewClient(ctx, opts...)
	case ObjectStorageModeGCSEmulator:
		_ = os.Setenv("STORAGE_EMULATOR_HOST", cfg.EmulatorHost)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	default:
		return nil, fmt.Errorf("unsupported object storage mode %q", cfg.Mode)
	}
}

func (bs *bucketService) Upload(ctx context.Context, category BucketCategory, key string, data []byte) (string, error) {
	bucket, err := bs.cfg.bucketFor(category)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := bs.storageClient.Bucket(bucket).Object(key).NewWriter(ctx)
	if ct := contentTypeForKey(key); ct != "" {
		w.ContentType = ct
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	bs.log.Debug("Uploaded object", "bucket", bucket, "key", key, "bytes", len(data))
	return bs.cfg.publicURL(bucket, key), nil
}

func (bs *bucketService) Download(ctx context.Context, category BucketCategory, key string) ([]byte, error) {
	bucket, err := bs.cfg.bucketFor(category)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	r, err := bs.storageClient.Bucket(bucket).Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, bucket, key)
	}
	if err != nil {
		return nil, fmt.Errorf("open GCS object %q: %w", key, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (bs *bucketService) Delete(ctx context.Context, category BucketCategory, key string) error {
	bucket, err := bs.cfg.bucketFor(category)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := bs.storageClient.Bucket(bucket).Object(key).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", key, bucket, err)
	}
	return nil
}

func (bs *bucketService) PublicURL(category BucketCategory, key string) string {
	bucket, err := bs.cfg.bucketFor(category)
	if err != nil {
		return ""
	}
	return bs.cfg.publicURL(bucket, key)
}

func (bs *bucketService) Close() error {
	if bs == nil || bs.storageClient == nil {
		return nil
	}
	return bs.storageClient.Close()
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	switch {
	case strings.HasSuffix(s, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(s, ".wav"):
		return "audio/wav"
	case strings.HasSuffix(s, ".json"):
		return "application/json"
	case strings.HasSuffix(s, ".txt"):
		return "text/plain; charset=utf-8"
	case strings.HasSuffix(s, ".html"), strings.HasSuffix(s, ".htm"):
		return "text/html; charset=utf-8"
	default:
		return ""
	}
}
