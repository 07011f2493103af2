package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/pulseloop-backend/internal/platform/elevenlabs"
	"github.com/yungbote/pulseloop-backend/internal/platform/gcp"
	"github.com/yungbote/pulseloop-backend/internal/platform/logger"
	"github.com/yungbote/pulseloop-backend/internal/platform/openai"
	"github.com/yungbote/pulseloop-backend/internal/platform/redis"
	"github.com/yungbote/pulseloop-backend/internal/services"
)

// Clients are the process-wide outbound clients. Each one is optional: an unconfigured
// dependency stays nil and the features that need it answer 503.
type Clients struct {
	Redis       *goredis.Client
	QuizCache   redis.QuizCache
	Leaderboard redis.Leaderboard

	AI       openai.Client
	TTS      elevenlabs.Client
	Bucket   gcp.BucketService
	Speech   gcp.Speech
	Verifier services.TokenVerifier
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients

	// Redis
	rdb, err := redis.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}
	if rdb != nil {
		c.Redis = rdb
		c.QuizCache = redis.NewQuizCache(rdb, cfg.Redis)
		c.Leaderboard = redis.NewLeaderboard(rdb, cfg.Redis)
	}

	// Completion service
	ai, err := openai.NewClient(cfg.OpenAI, log)
	switch {
	case errors.Is(err, openai.ErrNotConfigured):
		log.Warn("Completion service not configured; quiz generation and summaries are unavailable")
	case err != nil:
		c.Close()
		return Clients{}, fmt.Errorf("init completion client: %w", err)
	default:
		c.AI = ai
	}

	// Text-to-speech
	tts, err := elevenlabs.NewClient(cfg.ElevenLabs, log)
	switch {
	case errors.Is(err, elevenlabs.ErrNotConfigured):
		log.Warn("ElevenLabs not configured; summaries are served without narration")
	case err != nil:
		c.Close()
		return Clients{}, fmt.Errorf("init elevenlabs client: %w", err)
	default:
		c.TTS = tts
	}

	// GCS
	if storageConfigured(cfg.GCP.Storage) {
		bucket, err := gcp.NewBucketService(ctx, cfg.GCP.Storage, gcp.Credentials(cfg.GCP.Credentials), log)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init bucket client: %w", err)
		}
		c.Bucket = bucket
	} else {
		log.Warn("Object storage not configured; transcripts and narration are not persisted")
	}

	// Speech-to-text
	if cfg.GCP.SpeechEnabled {
		sp, err := gcp.NewSpeech(ctx, gcp.Credentials(cfg.GCP.Credentials), log)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init speech client: %w", err)
		}
		c.Speech = sp
	}

	// Entra ID
	if cfg.Entra.Enabled() {
		v, err := services.NewEntraVerifier(cfg.Entra, log)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init entra verifier: %w", err)
		}
		c.Verifier = v
	} else if cfg.Entra.DevUserExternalID != "" {
		log.Warn("Entra ID not configured; every request runs as the dev user", "external_id", cfg.Entra.DevUserExternalID)
	}

	return c, nil
}

func storageConfigured(s gcp.ObjectStorageConfig) bool {
	for _, b := range []string{s.DefaultBucket, s.TranscriptBucket, s.AudioSummaryBucket, s.ArticleBucket} {
		if strings.TrimSpace(b) != "" {
			return true
		}
	}
	return false
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Speech != nil {
		_ = c.Speech.Close()
	}
	if c.Bucket != nil {
		_ = c.Bucket.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
