package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/pulseloop-backend/internal/data/repos"
	"github.com/yungbote/pulseloop-backend/internal/data/repos/testutil"
	"github.com/yungbote/pulseloop-backend/internal/domain"
	"github.com/yungbote/pulseloop-backend/internal/modules/summary"
	"github.com/yungbote/pulseloop-backend/internal/platform/apierr"
	"github.com/yungbote/pulseloop-backend/internal/platform/ctxutil"
	"github.com/yungbote/pulseloop-backend/internal/platform/dbctx"
	"github.com/yungbote/pulseloop-backend/internal/platform/gcp"
)

type fakeSpeech struct {
	url string
	cfg gcp.SpeechConfig
	err error
}

func (f *fakeSpeech) Transcribe(_ context.Context, audioURL string, cfg gcp.SpeechConfig) (*gcp.SpeechResult, error) {
	f.url, f.cfg = audioURL, cfg
	if f.err != nil {
		return nil, f.err
	}
	return &gcp.SpeechResult{
		SourceURI: audioURL,
		Text:      "hello world again",
		Segments: []domain.TranscriptSegment{
			{Text: "hello world", StartMS: 0, EndMS: 9000},
			{Text: "again", StartMS: 10000, EndMS: 12000},
		},
	}, nil
}

func (f *fakeSpeech) Close() error { return nil }

type memBucket struct {
	keys []string
}

func (m *memBucket) Upload(_ context.Context, category gcp.BucketCategory, key string, _ []byte) (string, error) {
	m.keys = append(m.keys, string(category)+"/"+key)
	return "https://blob.example/" + string(category) + "/" + key, nil
}
func (m *memBucket) Download(context.Context, gcp.BucketCategory, string) ([]byte, error) {
	return nil, gcp.ErrObjectNotFound
}
func (m *memBucket) Delete(context.Context, gcp.BucketCategory, string) error { return nil }
func (m *memBucket) PublicURL(c gcp.BucketCategory, key string) string {
	return "https://blob.example/" + string(c) + "/" + key
}
func (m *memBucket) Close() error { return nil }

func asAdmin(ctx context.Context, admin bool) context.Context {
	role := "employee"
	if admin {
		role = "admin"
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{UserID: uuid.New(), Role: role})
}

func newContentService(t *testing.T, speech gcp.Speech, bucket gcp.BucketService) (ContentService, repos.ContentRepo, repos.EventRepo) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	contents := repos.NewContentRepo(db, log)
	events := repos.NewEventRepo(db, log)
	sum := summary.New(summary.UsecasesDeps{Log: log, Contents: contents})
	svc := NewContentService(log, contents, events, sum, speech, bucket, gcp.SpeechConfig{LanguageCode: "en-US"})
	return svc, contents, events
}

func TestContentService_GetAndComplete(t *testing.T) {
	svc, contents, _ := newContentService(t, nil, nil)
	ctx := context.Background()
	item := &domain.ContentItem{Title: "Zero trust", Type: domain.ContentArticle}
	if _, err := contents.Create(dbctx.Context{Ctx: ctx}, []*domain.ContentItem{item}); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.GetContent(ctx, item.ID)
	if err != nil || got.Title != "Zero trust" {
		t.Fatalf("GetContent: %+v err=%v", got, err)
	}
	if _, err := svc.GetContent(ctx, uuid.New()); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("missing: %v", err)
	}
	if err := svc.MarkComplete(ctx, uuid.New(), item.ID); err != nil {
		t.Fatalf("MarkComplete: %v", err)
	}
	if err := svc.MarkComplete(ctx, uuid.New(), uuid.New()); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("complete missing: %v", err)
	}
}

func TestContentService_Transcribe(t *testing.T) {
	speech := &fakeSpeech{}
	bucket := &memBucket{}
	svc, contents, _ := newContentService(t, speech, bucket)
	ctx := context.Background()
	item := &domain.ContentItem{Title: "Episode 12", Type: domain.ContentPodcast, URL: "https://cdn.example/ep12.mp3"}
	if _, err := contents.Create(dbctx.Context{Ctx: ctx}, []*domain.ContentItem{item}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Transcribe(asAdmin(ctx, false), TranscribeInput{ContentID: item.ID}); !errors.Is(err, apierr.ErrForbidden) {
		t.Fatalf("non-admin: %v", err)
	}

	got, err := svc.Transcribe(asAdmin(ctx, true), TranscribeInput{ContentID: item.ID, LanguageCode: "en-GB"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if speech.url != item.URL || speech.cfg.LanguageCode != "en-GB" {
		t.Fatalf("speech called with %q %+v", speech.url, speech.cfg)
	}
	if len(bucket.keys) != 1 || !strings.HasPrefix(bucket.keys[0], "transcripts/transcript_"+item.ID.String()) {
		t.Fatalf("bucket keys: %v", bucket.keys)
	}

	stored, _ := contents.GetByID(dbctx.Context{Ctx: ctx}, item.ID)
	if stored.Transcript != "hello world again" || len(stored.TranscriptSegments) != 2 || stored.BlobURI != got.BlobURI {
		t.Fatalf("stored: %+v", stored)
	}
}

func TestContentService_TranscribeUnavailable(t *testing.T) {
	ctx := context.Background()
	svc, contents, _ := newContentService(t, nil, nil)
	item := &domain.ContentItem{Title: "Episode", Type: domain.ContentPodcast}
	if _, err := contents.Create(dbctx.Context{Ctx: ctx}, []*domain.ContentItem{item}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Transcribe(asAdmin(ctx, true), TranscribeInput{ContentID: item.ID}); !errors.Is(err, apierr.ErrServiceNotConfigured) {
		t.Fatalf("no speech: %v", err)
	}

	failing, contents2, _ := newContentService(t, &fakeSpeech{err: errors.New("quota")}, nil)
	item2 := &domain.ContentItem{Title: "Episode", Type: domain.ContentPodcast}
	if _, err := contents2.Create(dbctx.Context{Ctx: ctx}, []*domain.ContentItem{item2}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := failing.Transcribe(asAdmin(ctx, true), TranscribeInput{ContentID: item2.ID}); !errors.Is(err, apierr.ErrInvalidInput) {
		t.Fatalf("no audio url: %v", err)
	}
	if _, err := failing.Transcribe(asAdmin(ctx, true), TranscribeInput{ContentID: item2.ID, AudioURL: "gs://b/a.flac"}); !errors.Is(err, apierr.ErrServiceUnavailable) {
		t.Fatalf("speech failure: %v", err)
	}
}
