package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/pulseloop-backend/internal/data/repos"
	"github.com/yungbote/pulseloop-backend/internal/domain"
	"github.com/yungbote/pulseloop-backend/internal/modules/summary"
	"github.com/yungbote/pulseloop-backend/internal/platform/apierr"
	"github.com/yungbote/pulseloop-backend/internal/platform/ctxutil"
	"github.com/yungbote/pulseloop-backend/internal/platform/dbctx"
	"github.com/yungbote/pulseloop-backend/internal/platform/gcp"
	"github.com/yungbote/pulseloop-backend/internal/platform/logger"
)

type TranscribeInput struct {
	ContentID uuid.UUID
	// AudioURL overrides the item's own URL.
	AudioURL     string
	LanguageCode string
}

type ContentService interface {
	GetContent(ctx context.Context, contentID uuid.UUID) (*domain.ContentItem, error)
	MarkComplete(ctx context.Context, userID, contentID uuid.UUID) error
	GetSummary(ctx context.Context, contentID uuid.UUID) (*domain.AnimatedSummary, error)
	Transcribe(ctx context.Context, in TranscribeInput) (*domain.ContentItem, error)
}

type contentService struct {
	log          *logger.Logger
	contentRepo  repos.ContentRepo
	eventRepo    repos.EventRepo
	summaries    summary.Usecases
	speech       gcp.Speech
	bucket       gcp.BucketService
	speechConfig gcp.SpeechConfig
	clock        func() time.Time
}

// NewContentService wires content reads and the media pipelines. speech and bucket may be nil.
func NewContentService(
	log *logger.Logger,
	contentRepo repos.ContentRepo,
	eventRepo repos.EventRepo,
	summaries summary.Usecases,
	speech gcp.Speech,
	bucket gcp.BucketService,
	speechConfig gcp.SpeechConfig,
) ContentService {
	return &contentService{
		log:          log.With("service", "ContentService"),
		contentRepo:  contentRepo,
		eventRepo:    eventRepo,
		summaries:    summaries,
		speech:       speech,
		bucket:       bucket,
		speechConfig: speechConfig,
		clock:        time.Now,
	}
}

func (cs *contentService) GetContent(ctx context.Context, contentID uuid.UUID) (*domain.ContentItem, error) {
	item, err := cs.contentRepo.GetByID(dbctx.Context{Ctx: ctx}, contentID)
	if err != nil {
		return nil, apierr.Internal("content_lookup_failed", err)
	}
	if item == nil {
		return nil, apierr.NotFound("content_not_found", "content %s", contentID)
	}
	return item, nil
}

// MarkComplete records that the user viewed the item. Streaks only move on passed quizzes.
func (cs *contentService) MarkComplete(ctx context.Context, userID, contentID uuid.UUID) error {
	if _, err := cs.GetContent(ctx, contentID); err != nil {
		return err
	}
	ev := &domain.Event{
		UserID:    userID,
		Type:      domain.EventContentViewed,
		ContentID: &contentID,
		Metadata:  datatypes.NewJSONType(map[string]any{"source": "complete"}),
	}
	if err := cs.eventRepo.Create(dbctx.Context{Ctx: ctx}, []*domain.Event{ev}); err != nil {
		cs.log.Warn("content_viewed event not recorded", "user_id", userID, "content_id", contentID, "error", err)
	}
	return nil
}

func (cs *contentService) GetSummary(ctx context.Context, contentID uuid.UUID) (*domain.AnimatedSummary, error) {
	return cs.summaries.Get(ctx, contentID)
}

// Transcribe runs speech-to-text over the item's audio and stores the transcript on it.
// Only admins may trigger it.
func (cs *contentService) Transcribe(ctx context.Context, in TranscribeInput) (*domain.ContentItem, error) {
	if !ctxutil.GetRequestData(ctx).IsAdmin() {
		return nil, apierr.New(http.StatusForbidden, "admin_required", apierr.ErrForbidden)
	}
	item, err := cs.GetContent(ctx, in.ContentID)
	if err != nil {
		return nil, err
	}
	if cs.speech == nil {
		return nil, apierr.New(http.StatusServiceUnavailable, "speech_not_configured", apierr.ErrServiceNotConfigured)
	}
	audioURL := strings.TrimSpace(in.AudioURL)
	if audioURL == "" {
		audioURL = strings.TrimSpace(item.URL)
	}
	if audioURL == "" {
		return nil, apierr.InvalidInput("audio_url_required", "content %s has no audio url", item.ID)
	}

	cfg := cs.speechConfig
	if in.LanguageCode != "" {
		cfg.LanguageCode = in.LanguageCode
	}
	res, err := cs.speech.Transcribe(ctx, audioURL, cfg)
	if err != nil {
		cs.log.Error("transcription failed", "content_id", item.ID, "error", err)
		return nil, apierr.Unavailable("transcription_failed", err)
	}

	updates := map[string]interface{}{
		"transcript":          res.Text,
		"transcript_segments": datatypes.JSONSlice[domain.TranscriptSegment](res.Segments),
	}
	if uri := cs.storeTranscript(ctx, item.ID, res); uri != "" {
		updates["blob_uri"] = uri
		item.BlobURI = uri
	}
	if err := cs.contentRepo.UpdateFields(dbctx.Context{Ctx: ctx}, item.ID, updates); err != nil {
		return nil, apierr.Internal("transcript_persist_failed", err)
	}
	item.Transcript = res.Text
	item.TranscriptSegments = res.Segments
	cs.log.Info("content transcribed", "content_id", item.ID, "segments", len(res.Segments))
	return item, nil
}

// storeTranscript keeps the raw transcript JSON in object storage. Failures only cost the archive copy.
func (cs *contentService) storeTranscript(ctx context.Context, contentID uuid.UUID, res *gcp.SpeechResult) string {
	if cs.bucket == nil {
		return ""
	}
	body, err := json.Marshal(res)
	if err != nil {
		cs.log.Warn("transcript encode failed", "content_id", contentID, "error", err)
		return ""
	}
	key := fmt.Sprintf("transcript_%s_%s.json", contentID, cs.clock().UTC().Format("20060102T150405Z"))
	uri, err := cs.bucket.Upload(ctx, gcp.BucketCategoryTranscript, key, body)
	if err != nil {
		cs.log.Warn("transcript upload failed", "content_id", contentID, "error", err)
		return ""
	}
	return uri
}
