package elevenlabs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/yungbote/pulseloop-backend/internal/platform/httpx"
	"github.com/yungbote/pulseloop-backend/internal/platform/logger"
)

const (
	DefaultBaseURL = "https://api.elevenlabs.io"
	DefaultVoiceID = "21m00Tcm4TlvDq8ikWAM"
	DefaultModelID = "eleven_monolingual_v1"
)

var ErrNotConfigured = errors.New("text-to-speech not configured")

type Config struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	VoiceID string        `mapstructure:"voice_id"`
	ModelID string        `mapstructure:"model_id"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Client turns narration text into MP3 audio.
type Client interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type client struct {
	log     *logger.Logger
	http    *resty.Client
	voiceID string
	modelID string
}

func NewClient(cfg Config, log *logger.Logger) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	voice := strings.TrimSpace(cfg.VoiceID)
	if voice == "" {
		voice = DefaultVoiceID
	}
	model := strings.TrimSpace(cfg.ModelID)
	if model == "" {
		model = DefaultModelID
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	hc := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetRetryCount(2).
		AddRetryCondition(httpx.RetryCondition).
		SetRetryAfter(httpx.RetryAfter).
		SetHeader("xi-api-key", cfg.APIKey).
		SetHeader("Accept", "audio/mpeg").
		SetHeader("Content-Type", "application/json")
	return &client{
		log:     log.With("client", "ElevenLabs"),
		http:    hc,
		voiceID: voice,
		modelID: model,
	}, nil
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

func (c *client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty narration")
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(ttsRequest{
			Text:          text,
			ModelID:       c.modelID,
			VoiceSettings: voiceSettings{Stability: 0.5, SimilarityBoost: 0.5},
		}).
		Post("/v1/text-to-speech/" + c.voiceID)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request: %w", err)
	}
	if resp.IsError() {
		return nil, &httpx.StatusError{Service: "elevenlabs", StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}
	audio := resp.Body()
	if len(audio) == 0 {
		return nil, fmt.Errorf("elevenlabs returned empty audio")
	}
	c.log.Debug("Synthesized narration", "chars", len(text), "bytes", len(audio))
	return audio, nil
}
