package gcp

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/go-resty/resty/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/yungbote/pulseloop-backend/internal/domain"
	"github.com/yungbote/pulseloop-backend/internal/platform/ctxutil"
	"github.com/yungbote/pulseloop-backend/internal/platform/httpx"
	"github.com/yungbote/pulseloop-backend/internal/platform/logger"
)

const segmentWindow = 10 * time.Second

// maxAudioBytes bounds inline audio downloads; longer media must be passed as gs:// URIs.
const maxAudioBytes = 64 << 20

type Speech interface {
	// Transcribe accepts a gs:// URI or an http(s) URL to an audio file.
	Transcribe(ctx context.Context, audioURL string, cfg SpeechConfig) (*SpeechResult, error)
	Close() error
}

type SpeechConfig struct {
	LanguageCode string `mapstructure:"language_code"`
	Model        string `mapstructure:"model"`
	UseEnhanced  bool   `mapstructure:"use_enhanced"`
}

type SpeechResult struct {
	SourceURI string                     `json:"source_uri"`
	Text      string                     `json:"text"`
	Segments  []domain.TranscriptSegment `json:"segments"`
}

// recognizer is the slice of the GCP client the service drives.
type recognizer interface {
	LongRunningRecognize(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error)
	Close() error
}

type gcpRecognizer struct {
	client *speech.Client
}

func (g gcpRecognizer) LongRunningRecognize(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
	op, err := g.client.LongRunningRecognize(ctx, req)
	if err != nil {
		return nil, err
	}
	return op.Wait(ctx)
}

func (g gcpRecognizer) Close() error { return g.client.Close() }

type speechService struct {
	log        *logger.Logger
	rec        recognizer
	http       *resty.Client
	maxRetries int
	backoff    time.Duration
}

func NewSpeech(ctx context.Context, creds Credentials, log *logger.Logger) (Speech, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	c, err := speech.NewClient(ctx, creds.ClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	return newSpeechService(gcpRecognizer{client: c}, log), nil
}

func newSpeechService(rec recognizer, log *logger.Logger) *speechService {
	return &speechService{
		log: log.With("service", "gcp.Speech"),
		rec: rec,
		http: resty.New().
			SetTimeout(2 * time.Minute).
			SetRetryCount(2).
			AddRetryCondition(httpx.RetryCondition),
		maxRetries: 4,
		backoff:    750 * time.Millisecond,
	}
}

func (s *speechService) Close() error {
	if s == nil || s.rec == nil {
		return nil
	}
	return s.rec.Close()
}

func (s *speechService) Transcribe(ctx context.Context, audioURL string, cfg SpeechConfig) (*SpeechResult, error) {
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	audioURL = strings.TrimSpace(audioURL)
	if audioURL == "" {
		return nil, fmt.Errorf("audio url required")
	}

	var audio *speechpb.RecognitionAudio
	mimeType := ""
	if strings.HasPrefix(audioURL, "gs://") {
		audio = &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Uri{Uri: audioURL}}
	} else {
		data, ct, err := s.download(ctx, audioURL)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return &SpeechResult{SourceURI: audioURL, Segments: []domain.TranscriptSegment{}}, nil
		}
		mimeType = ct
		audio = &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: data}}
	}

	req := &speechpb.LongRunningRecognizeRequest{
		Config: buildRecognitionConfig(mimeType, audioURL, cfg),
		Audio:  audio,
	}
	resp, err := s.retryLR(ctx, func() (*speechpb.LongRunningRecognizeResponse, error) {
		return s.rec.LongRunningRecognize(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("speech longrunningrecognize: %w", err)
	}
	out := parseSpeechResponse(audioURL, resp)
	s.log.Info("Transcription finished", "source", audioURL, "segments", len(out.Segments), "chars", len(out.Text))
	return out, nil
}

func (s *speechService) download(ctx context.Context, rawURL string) ([]byte, string, error) {
	resp, err := s.http.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("download audio: %w", err)
	}
	if resp.IsError() {
		return nil, "", &httpx.StatusError{Service: "audio download", StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}
	body := resp.Body()
	if len(body) > maxAudioBytes {
		return nil, "", fmt.Errorf("audio is %d bytes; upload it to object storage and pass a gs:// uri", len(body))
	}
	return body, resp.Header().Get("Content-Type"), nil
}

func buildRecognitionConfig(mimeType string, uri string, cfg SpeechConfig) *speechpb.RecognitionConfig {
	lang := strings.TrimSpace(cfg.LanguageCode)
	if lang == "" {
		lang = "en-US"
	}
	return &speechpb.RecognitionConfig{
		LanguageCode:               lang,
		Model:                      cfg.Model,
		UseEnhanced:                cfg.UseEnhanced,
		EnableAutomaticPunctuation: true,
		EnableWordTimeOffsets:      true,
		Encoding:                   inferSpeechEncoding(mimeType, uri),
	}
}

func inferSpeechEncoding(mimeType string, uri string) speechpb.RecognitionConfig_AudioEncoding {
	m := strings.ToLower(strings.TrimSpace(mimeType))
	path := strings.ToLower(uri)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	ext := filepath.Ext(path)

	switch {
	case strings.Contains(m, "wav") || ext == ".wav":
		return speechpb.RecognitionConfig_LINEAR16
	case strings.Contains(m, "flac") || ext == ".flac":
		return speechpb.RecognitionConfig_FLAC
	case strings.Contains(m, "mpeg") || strings.Contains(m, "mp3") || ext == ".mp3":
		return speechpb.RecognitionConfig_MP3
	case strings.Contains(m, "ogg") || ext == ".ogg" || ext == ".opus":
		return speechpb.RecognitionConfig_OGG_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

type speechWord struct {
	w string
	s time.Duration
	e time.Duration
}

func parseSpeechResponse(sourceURI string, resp *speechpb.LongRunningRecognizeResponse) *SpeechResult {
	out := &SpeechResult{SourceURI: sourceURI, Segments: []domain.TranscriptSegment{}}
	if resp == nil {
		return out
	}

	var words []speechWord
	var full strings.Builder
	for _, r := range resp.Results {
		if r == nil || len(r.Alternatives) == 0 || r.Alternatives[0] == nil {
			continue
		}
		alt := r.Alternatives[0]
		if strings.TrimSpace(alt.Transcript) == "" {
			continue
		}
		if full.Len() > 0 {
			full.WriteString(" ")
		}
		full.WriteString(strings.TrimSpace(alt.Transcript))
		for _, ww := range alt.Words {
			if ww == nil {
				continue
			}
			words = append(words, speechWord{w: ww.Word, s: durOf(ww.StartTime), e: durOf(ww.EndTime)})
		}
	}
	out.Text = full.String()

	if len(words) > 0 {
		out.Segments = groupByTime(words, segmentWindow)
	} else if out.Text != "" {
		out.Segments = []domain.TranscriptSegment{{Text: out.Text}}
	}
	return out
}

// groupByTime folds words into consecutive windows; a window closes once a word starts
// window or more after the window's first word.
func groupByTime(words []speechWord, window time.Duration) []domain.TranscriptSegment {
	if len(words) == 0 {
		return nil
	}
	segs := []domain.TranscriptSegment{}
	curStart := words[0].s
	curEnd := words[0].e
	var buf strings.Builder

	flush := func() {
		txt := strings.TrimSpace(buf.String())
		if txt == "" {
			return
		}
		segs = append(segs, domain.TranscriptSegment{
			Text:    txt,
			StartMS: curStart.Milliseconds(),
			EndMS:   curEnd.Milliseconds(),
		})
		buf.Reset()
	}

	for _, w := range words {
		if w.s-curStart >= window && buf.Len() > 0 {
			flush()
			curStart = w.s
			curEnd = w.e
		}
		if buf.Len() > 0 {
			buf.WriteString(" ")
		}
		buf.WriteString(w.w)
		if w.e > curEnd {
			curEnd = w.e
		}
	}
	flush()
	return segs
}

func durOf(d *durationpb.Duration) time.Duration {
	if d == nil {
		return 0
	}
	return d.AsDuration()
}

func (s *speechService) retryLR(ctx context.Context, fn func() (*speechpb.LongRunningRecognizeResponse, error)) (*speechpb.LongRunningRecognizeResponse, error) {
	backoff := s.backoff
	var last error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		resp, err := fn()
		if err == nil {
			return resp, nil
		}
		last = err

		code := status.Code(err)
		if code != codes.Unavailable && code != codes.ResourceExhausted && code != codes.DeadlineExceeded {
			return nil, err
		}
		if attempt == s.maxRetries {
			break
		}
		s.log.Warn("Speech request retrying", "attempt", attempt+1, "code", code.String(), "sleep", backoff.String())
		time.Sleep(backoff)
		backoff *= 2
		if backoff > 10*time.Second {
			backoff = 10 * time.Second
		}
	}
	return nil, last
}
