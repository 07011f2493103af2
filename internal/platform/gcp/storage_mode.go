package gcp

import (
	"fmt"
	"net/url"
	"strings"
)

type ObjectStorageMode string

const (
	ObjectStorageModeGCS         ObjectStorageMode = "gcs"
	ObjectStorageModeGCSEmulator ObjectStorageMode = "gcs_emulator"
)

type ObjectStorageConfig struct {
	Mode          ObjectStorageMode `mapstructure:"mode"`
	EmulatorHost  string            `mapstructure:"emulator_host"`
	PublicBaseURL string            `mapstructure:"public_base_url"`

	// Buckets per category; categories without an entry use DefaultBucket.
	DefaultBucket      string `mapstructure:"bucket"`
	TranscriptBucket   string `mapstructure:"transcript_bucket"`
	AudioSummaryBucket string `mapstructure:"audio_summary_bucket"`
	ArticleBucket      string `mapstructure:"article_bucket"`
}

func (cfg ObjectStorageConfig) IsEmulatorMode() bool {
	return cfg.Mode == ObjectStorageModeGCSEmulator
}

// Normalize fills the mode from the emulator host when it was left empty.
func (cfg ObjectStorageConfig) Normalize() ObjectStorageConfig {
	cfg.Mode = ObjectStorageMode(strings.ToLower(strings.TrimSpace(string(cfg.Mode))))
	cfg.EmulatorHost = strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/")
	cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if cfg.Mode == "" {
		if cfg.EmulatorHost != "" {
			cfg.Mode = ObjectStorageModeGCSEmulator
		} else {
			cfg.Mode = ObjectStorageModeGCS
		}
	}
	return cfg
}

func (cfg ObjectStorageConfig) Validate() error {
	switch cfg.Mode {
	case ObjectStorageModeGCS:
	case ObjectStorageModeGCSEmulator:
		u, err := url.Parse(cfg.EmulatorHost)
		if cfg.EmulatorHost == "" || err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid storage emulator host %q; expected absolute URL like http://fake-gcs:4443", cfg.EmulatorHost)
		}
	default:
		return fmt.Errorf("invalid object storage mode %q (allowed: %q, %q)", cfg.Mode, ObjectStorageModeGCS, ObjectStorageModeGCSEmulator)
	}
	if cfg.PublicBaseURL != "" {
		u, err := url.Parse(cfg.PublicBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid object storage public base url %q", cfg.PublicBaseURL)
		}
	}
	if cfg.DefaultBucket == "" && (cfg.TranscriptBucket == "" || cfg.AudioSummaryBucket == "" || cfg.ArticleBucket == "") {
		return fmt.Errorf("object storage needs a default bucket or one bucket per category")
	}
	return nil
}

func (cfg ObjectStorageConfig) bucketFor(category BucketCategory) (string, error) {
	var name string
	switch category {
	case BucketCategoryTranscript:
		name = cfg.TranscriptBucket
	case BucketCategoryAudioSummary:
		name = cfg.AudioSummaryBucket
	case BucketCategoryArticle:
		name = cfg.ArticleBucket
	default:
		return "", fmt.Errorf("unknown bucket category: %s", category)
	}
	if name == "" {
		name = cfg.DefaultBucket
	}
	return name, nil
}

// publicURL builds the browser-facing URL for an object.
func (cfg ObjectStorageConfig) publicURL(bucket, key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	switch {
	case cfg.PublicBaseURL != "":
		return cfg.PublicBaseURL + "/" + bucket + "/" + escaped
	case cfg.IsEmulatorMode():
		return cfg.EmulatorHost + "/storage/v1/b/" + bucket + "/o/" + url.PathEscape(key) + "?alt=media"
	default:
		return "https://storage.googleapis.com/" + bucket + "/" + escaped
	}
}
