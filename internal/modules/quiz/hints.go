package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/yungbote/pulseloop-backend/internal/domain"
	"github.com/yungbote/pulseloop-backend/internal/modules/prompts"
	"github.com/yungbote/pulseloop-backend/internal/platform/openai"
)

type hintRequest struct {
	Item       *domain.ContentItem
	Quiz       *domain.Quiz
	Grade      Grade
	Candidates []Candidate
}

// hintsPayload is what the completion service returns. Timestamps arrive either as
// "MM:SS-MM:SS" strings or as {start_ms,end_ms} objects.
type hintsPayload struct {
	ArticleHighlights []domain.ParagraphRef `json:"articleHighlights"`
	Timestamps        []json.RawMessage     `json:"timestamps"`
	Concepts          []string              `json:"concepts"`
}

// synthesizeHints never fails: a completion error leaves only the fallbacks.
// fromModel reports whether the completion service contributed.
func (u Usecases) synthesizeHints(ctx context.Context, in hintRequest) (hints domain.ReviewHints, fromModel bool) {
	if u.deps.AI != nil {
		got, err := u.requestHints(ctx, in)
		if err != nil {
			u.logWarn("review hints unavailable, using fallbacks", "content_id", in.Item.ID, "quiz_id", in.Quiz.ID, "error", err)
		} else {
			hints, fromModel = got, true
		}
	}
	return finalizeHints(hints, in, u.deps.Config.FallbackTimestamps), fromModel
}

func (u Usecases) requestHints(ctx context.Context, in hintRequest) (domain.ReviewHints, error) {
	pin := contentInput(in.Item)
	pin.WrongCount = in.Grade.Wrong
	pin.MissedJSON = questionsJSON(pick(in.Quiz.Questions, in.Grade.WrongIndices))
	pin.SegmentsText = segmentsText(in.Candidates)

	req, err := prompts.Build(prompts.ReviewHints, pin)
	if err != nil {
		return domain.ReviewHints{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, u.deps.Config.CompletionTimeout)
	defer cancel()
	raw, err := u.complete(ctx, prompts.ReviewHints, req)
	if err != nil {
		return domain.ReviewHints{}, err
	}
	return parseHints(raw)
}

func parseHints(raw string) (domain.ReviewHints, error) {
	body := openai.ExtractJSON(raw)
	if len(body) == 0 {
		return domain.ReviewHints{}, fmt.Errorf("no json in review hints response")
	}
	var p hintsPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return domain.ReviewHints{}, fmt.Errorf("decode review hints: %w", err)
	}
	out := domain.ReviewHints{}
	for _, h := range p.ArticleHighlights {
		if h.ParagraphIndex >= 0 {
			out.ArticleHighlights = append(out.ArticleHighlights, h)
		}
	}
	for _, ts := range p.Timestamps {
		if tr, ok := decodeTimeRange(ts); ok {
			out.Timestamps = append(out.Timestamps, tr)
		}
	}
	for _, c := range p.Concepts {
		if c = strings.TrimSpace(c); c != "" {
			out.Concepts = append(out.Concepts, c)
		}
	}
	return out, nil
}

// finalizeHints keeps only the pointers that fit the content type and fills the gaps.
func finalizeHints(h domain.ReviewHints, in hintRequest, fallbackCount int) domain.ReviewHints {
	if in.Item.Type.IsTimeBased() {
		h.ArticleHighlights = nil
		if len(h.Timestamps) == 0 && len(in.Candidates) > 0 {
			h.Timestamps = fallbackTimestamps(in.Candidates, fallbackCount)
		}
	} else {
		h.Timestamps = nil
		if n := len(paragraphs(in.Item.Summary)); n > 0 {
			kept := h.ArticleHighlights[:0]
			for _, ref := range h.ArticleHighlights {
				if ref.ParagraphIndex < n {
					kept = append(kept, ref)
				}
			}
			h.ArticleHighlights = kept
		}
	}
	if len(h.Concepts) == 0 {
		for _, q := range pick(in.Quiz.Questions, in.Grade.WrongIndices) {
			if q.Question != "" {
				h.Concepts = append(h.Concepts, q.Question)
			}
		}
	}
	return h.Normalize()
}

func fallbackTimestamps(cands []Candidate, n int) []domain.TimeRange {
	if n <= 0 || n > len(cands) {
		n = len(cands)
	}
	out := make([]domain.TimeRange, 0, n)
	for _, c := range cands[:n] {
		out = append(out, domain.TimeRange{
			StartMS: c.Segment.StartMS,
			EndMS:   c.Segment.EndMS,
			Label:   formatRange(c.Segment.StartMS, c.Segment.EndMS),
		})
	}
	return out
}

func decodeTimeRange(raw json.RawMessage) (domain.TimeRange, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return ParseTimeRange(s)
	}
	var tr domain.TimeRange
	if err := json.Unmarshal(raw, &tr); err != nil || tr.EndMS < tr.StartMS || tr.StartMS < 0 {
		return domain.TimeRange{}, false
	}
	if tr.Label == "" {
		tr.Label = formatRange(tr.StartMS, tr.EndMS)
	}
	return tr, true
}

// ParseTimeRange reads "MM:SS-MM:SS" (hours allowed as H:MM:SS) into milliseconds.
func ParseTimeRange(s string) (domain.TimeRange, bool) {
	s = strings.TrimSpace(s)
	start, end, ok := strings.Cut(s, "-")
	if !ok {
		return domain.TimeRange{}, false
	}
	a, okA := parseClock(start)
	b, okB := parseClock(end)
	if !okA || !okB || b < a {
		return domain.TimeRange{}, false
	}
	return domain.TimeRange{StartMS: a, EndMS: b, Label: formatRange(a, b)}, true
}

func parseClock(s string) (int64, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	var secs int64
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || v < 0 {
			return 0, false
		}
		if i > 0 && v >= 60 {
			return 0, false
		}
		secs = secs*60 + v
	}
	return secs * 1000, true
}

func formatClock(ms int64) string {
	secs := ms / 1000
	if secs >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func formatRange(startMS, endMS int64) string {
	return formatClock(startMS) + "-" + formatClock(endMS)
}

func segmentsText(cands []Candidate) string {
	if len(cands) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, c := range cands {
		fmt.Fprintf(&b, "%s %s\n", formatRange(c.Segment.StartMS, c.Segment.EndMS), strings.TrimSpace(c.Segment.Text))
	}
	return strings.TrimSpace(b.String())
}

func paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func pick(qs []domain.QuizQuestion, idx []int) []domain.QuizQuestion {
	out := make([]domain.QuizQuestion, 0, len(idx))
	for _, i := range idx {
		if i >= 0 && i < len(qs) {
			out = append(out, qs[i])
		}
	}
	return out
}

func (u Usecases) logWarn(msg string, kv ...interface{}) {
	if u.deps.Log != nil {
		u.deps.Log.Warn(msg, kv...)
	}
}
