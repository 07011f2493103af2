package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/yungbote/pulseloop-backend/internal/platform/httpx"
	"github.com/yungbote/pulseloop-backend/internal/platform/logger"
)

var ErrNotConfigured = errors.New("completion service not configured")

// ChatRequest is one system+user exchange against a chat-completions endpoint.
type ChatRequest struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
	// ExpectJSON asks the endpoint for a JSON object response.
	ExpectJSON bool
}

// Client is the completion service used by quiz generation, review hints and storyboards.
type Client interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

type Config struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`

	// Azure deployments are addressed by endpoint + deployment instead of model.
	AzureEndpoint   string `mapstructure:"azure_endpoint"`
	AzureDeployment string `mapstructure:"azure_deployment"`
	AzureAPIVersion string `mapstructure:"azure_api_version"`

	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

func (c Config) azure() bool {
	return strings.TrimSpace(c.AzureEndpoint) != "" && strings.TrimSpace(c.AzureDeployment) != ""
}

type client struct {
	log   *logger.Logger
	http  *resty.Client
	cfg   Config
	path  string
	model string

	noTempMu   sync.RWMutex
	noTempSeen map[string]time.Time
	noTempTTL  time.Duration
}

func NewClient(cfg Config, log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	c := &client{
		log:        log.With("service", "CompletionClient"),
		cfg:        cfg,
		noTempSeen: map[string]time.Time{},
		noTempTTL:  24 * time.Hour,
	}

	hc := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(10*time.Second).
		AddRetryCondition(httpx.RetryCondition).
		SetRetryAfter(httpx.RetryAfter).
		SetHeader("Content-Type", "application/json")

	if cfg.azure() {
		version := strings.TrimSpace(cfg.AzureAPIVersion)
		if version == "" {
			version = "2024-02-15-preview"
		}
		hc.SetBaseURL(strings.TrimRight(cfg.AzureEndpoint, "/")).
			SetHeader("api-key", cfg.APIKey).
			SetQueryParam("api-version", version)
		c.path = "/openai/deployments/" + cfg.AzureDeployment + "/chat/completions"
		c.model = cfg.AzureDeployment
	} else {
		base := strings.TrimSpace(cfg.BaseURL)
		if base == "" {
			base = "https://api.openai.com"
		}
		hc.SetBaseURL(strings.TrimRight(base, "/")).
			SetAuthToken(cfg.APIKey)
		c.path = "/v1/chat/completions"
		c.model = strings.TrimSpace(cfg.Model)
		if c.model == "" {
			c.model = "gpt-4o-mini"
		}
	}
	c.http = hc
	return c, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionRequest struct {
	Model          string          `json:"model,omitempty"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (c *client) Complete(ctx context.Context, req ChatRequest) (string, error) {
	body := &chatCompletionRequest{
		Model:     c.model,
		MaxTokens: req.MaxTokens,
	}
	if s := strings.TrimSpace(req.System); s != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: s})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.User})
	if req.ExpectJSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	if !c.modelIsNoTemp(c.model) {
		t := req.Temperature
		body.Temperature = &t
	}

	start := time.Now()
	out, err := c.post(ctx, body)
	if err != nil && body.Temperature != nil && isUnsupportedTemperatureParam(err) {
		c.noteNoTempModel(c.model)
		body.Temperature = nil
		out, err = c.post(ctx, body)
	}
	if err != nil {
		c.log.Warn("Completion request failed", "model", c.model, "elapsed", time.Since(start).String(), "error", err)
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	c.log.Debug("Completion request finished",
		"model", c.model,
		"elapsed", time.Since(start).String(),
		"prompt_tokens", out.Usage.PromptTokens,
		"completion_tokens", out.Usage.CompletionTokens,
	)
	return out.Choices[0].Message.Content, nil
}

func (c *client) post(ctx context.Context, body *chatCompletionRequest) (*chatCompletionResponse, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(c.path)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, &httpx.StatusError{Service: "completion", StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}
	var out chatCompletionResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("completion decode error: %w", err)
	}
	return &out, nil
}

func (c *client) modelIsNoTemp(model string) bool {
	key := strings.ToLower(strings.TrimSpace(model))
	for _, p := range []string{"o1", "o3", "o4-mini", "gpt-5"} {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	c.noTempMu.RLock()
	seen, ok := c.noTempSeen[key]
	c.noTempMu.RUnlock()
	return ok && time.Since(seen) < c.noTempTTL
}

func (c *client) noteNoTempModel(model string) {
	c.noTempMu.Lock()
	c.noTempSeen[strings.ToLower(strings.TrimSpace(model))] = time.Now()
	c.noTempMu.Unlock()
}

func isUnsupportedTemperatureParam(err error) bool {
	var se *httpx.StatusError
	if !errors.As(err, &se) || se.StatusCode != 400 {
		return false
	}
	msg := strings.ToLower(se.Body)
	if !strings.Contains(msg, "temperature") {
		return false
	}
	for _, frag := range []string{"unsupported", "not supported", "does not support", "only the default", "unknown parameter"} {
		if strings.Contains(msg, frag) {
			return true
		}
	}
	return false
}
