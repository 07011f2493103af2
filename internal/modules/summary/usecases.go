package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/yungbote/pulseloop-backend/internal/data/repos"
	"github.com/yungbote/pulseloop-backend/internal/domain"
	"github.com/yungbote/pulseloop-backend/internal/modules/prompts"
	"github.com/yungbote/pulseloop-backend/internal/observability"
	"github.com/yungbote/pulseloop-backend/internal/platform/apierr"
	"github.com/yungbote/pulseloop-backend/internal/platform/dbctx"
	"github.com/yungbote/pulseloop-backend/internal/platform/elevenlabs"
	"github.com/yungbote/pulseloop-backend/internal/platform/gcp"
	"github.com/yungbote/pulseloop-backend/internal/platform/logger"
	"github.com/yungbote/pulseloop-backend/internal/platform/openai"
)

const maxSteps = 8

type Config struct {
	StoryboardTimeout time.Duration `mapstructure:"storyboard_timeout"`
	NarrationTimeout  time.Duration `mapstructure:"narration_timeout"`
}

func (c Config) withDefaults() Config {
	if c.StoryboardTimeout <= 0 {
		c.StoryboardTimeout = 45 * time.Second
	}
	if c.NarrationTimeout <= 0 {
		c.NarrationTimeout = 60 * time.Second
	}
	return c
}

type UsecasesDeps struct {
	Log *logger.Logger

	AI       openai.Client
	TTS      elevenlabs.Client
	Bucket   gcp.BucketService
	Contents repos.ContentRepo

	Tracer trace.Tracer
	// Clock defaults to time.Now; it stamps blob keys.
	Clock  func() time.Time
	Config Config
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases {
	deps.Config = deps.Config.withDefaults()
	if deps.Tracer == nil {
		deps.Tracer = observability.Tracer()
	}
	return Usecases{deps: deps}
}

func (u Usecases) WithLog(log *logger.Logger) Usecases {
	u.deps.Log = log
	return u
}

func (u Usecases) now() time.Time {
	if u.deps.Clock != nil {
		return u.deps.Clock()
	}
	return time.Now()
}

// Get returns the stored animated summary, building and persisting it on first request.
// A summary without audio is returned but not stored, so a later call can complete it.
func (u Usecases) Get(ctx context.Context, contentID uuid.UUID) (*domain.AnimatedSummary, error) {
	ctx, span := u.deps.Tracer.Start(ctx, "summary.get")
	defer span.End()
	span.SetAttributes(attribute.String("content.id", contentID.String()))

	dbc := dbctx.Context{Ctx: ctx}
	item, err := u.deps.Contents.GetByID(dbc, contentID)
	if err != nil {
		return nil, apierr.Internal("content_lookup_failed", err)
	}
	if item == nil {
		return nil, apierr.NotFound("content_not_found", "content %s", contentID)
	}
	if existing := item.AnimatedSummary.Data(); !existing.IsZero() {
		return &existing, nil
	}
	if strings.TrimSpace(item.Summary) == "" {
		return nil, apierr.InvalidInput("summary_unavailable", "content %s has no summary", contentID)
	}

	steps, err := u.GenerateStoryboard(ctx, item)
	if err != nil {
		return nil, err
	}
	out := &domain.AnimatedSummary{Storyboard: steps}

	audioURL, err := u.narrate(ctx, item.ID, steps)
	if err != nil {
		u.logWarn("narration skipped", "content_id", contentID, "error", err)
		return out, nil
	}
	out.AudioURL = audioURL

	err = u.deps.Contents.UpdateFields(dbc, item.ID, map[string]interface{}{
		"animated_summary": datatypes.NewJSONType(*out),
		"summary_blob_uri": audioURL,
	})
	if err != nil {
		return nil, apierr.Internal("summary_persist_failed", err)
	}
	if u.deps.Log != nil {
		u.deps.Log.Info("animated summary stored", "content_id", contentID, "steps", len(steps))
	}
	return out, nil
}

// GenerateStoryboard asks the completion service for an ordered list of diagram steps.
func (u Usecases) GenerateStoryboard(ctx context.Context, item *domain.ContentItem) ([]domain.StoryboardStep, error) {
	if u.deps.AI == nil {
		return nil, apierr.New(http.StatusServiceUnavailable, "completion_not_configured",
			fmt.Errorf("%w: %v", apierr.ErrServiceNotConfigured, openai.ErrNotConfigured))
	}
	req, err := prompts.Build(prompts.Storyboard, prompts.Input{
		Title:       item.Title,
		ContentType: string(item.Type),
		Summary:     item.Summary,
	})
	if err != nil {
		return nil, apierr.Internal("prompt_render_failed", err)
	}

	cctx, cancel := context.WithTimeout(ctx, u.deps.Config.StoryboardTimeout)
	defer cancel()
	raw, err := u.deps.AI.Complete(cctx, req)
	if err != nil {
		return nil, apierr.Unavailable("completion_failed", err)
	}
	steps := ParseStoryboard(raw)
	if len(steps) == 0 {
		return nil, apierr.Unavailable("storyboard_empty", fmt.Errorf("no usable steps in completion"))
	}
	return steps, nil
}

// ParseStoryboard decodes {"steps":[...]} or a bare array, drops untitled steps and renumbers from 1.
func ParseStoryboard(raw string) []domain.StoryboardStep {
	var items []json.RawMessage
	if !openai.UnwrapList(openai.ExtractJSON(raw), "steps", &items) {
		return nil
	}
	out := make([]domain.StoryboardStep, 0, len(items))
	for _, it := range items {
		var s domain.StoryboardStep
		if json.Unmarshal(it, &s) != nil {
			continue
		}
		s.Title = strings.TrimSpace(s.Title)
		s.Description = strings.TrimSpace(s.Description)
		s.Type = strings.ToLower(strings.TrimSpace(s.Type))
		if s.Title == "" && s.Description == "" {
			continue
		}
		if s.Type == "" {
			s.Type = "concept"
		}
		s.Step = len(out) + 1
		out = append(out, s)
		if len(out) == maxSteps {
			break
		}
	}
	return out
}

// Narration joins the steps into the text read aloud over the diagram.
func Narration(steps []domain.StoryboardStep) string {
	parts := make([]string, 0, len(steps))
	for _, s := range steps {
		title := strings.TrimRight(s.Title, ". ")
		switch {
		case title != "" && s.Description != "":
			parts = append(parts, title+". "+s.Description)
		case title != "":
			parts = append(parts, title+".")
		default:
			parts = append(parts, s.Description)
		}
	}
	return strings.Join(parts, " ")
}

// BlobKey names a write-once summary object.
func BlobKey(contentID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("summary_%s_%s.mp3", contentID, at.UTC().Format("20060102T150405Z"))
}

func (u Usecases) narrate(ctx context.Context, contentID uuid.UUID, steps []domain.StoryboardStep) (string, error) {
	if u.deps.TTS == nil {
		return "", fmt.Errorf("%w: %v", apierr.ErrServiceNotConfigured, elevenlabs.ErrNotConfigured)
	}
	if u.deps.Bucket == nil {
		return "", fmt.Errorf("%w: object storage", apierr.ErrServiceNotConfigured)
	}
	ctx, cancel := context.WithTimeout(ctx, u.deps.Config.NarrationTimeout)
	defer cancel()

	audio, err := u.deps.TTS.Synthesize(ctx, Narration(steps))
	if err != nil {
		return "", fmt.Errorf("synthesize narration: %w", err)
	}
	url, err := u.deps.Bucket.Upload(ctx, gcp.BucketCategoryAudioSummary, BlobKey(contentID, u.now()), audio)
	if err != nil {
		return "", fmt.Errorf("upload narration: %w", err)
	}
	return url, nil
}

func (u Usecases) logWarn(msg string, kv ...interface{}) {
	if u.deps.Log != nil {
		u.deps.Log.Warn(msg, kv...)
	}
}
