package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/yungbote/pulseloop-backend/internal/domain"
	"github.com/yungbote/pulseloop-backend/internal/modules/prompts"
	"github.com/yungbote/pulseloop-backend/internal/platform/apierr"
	"github.com/yungbote/pulseloop-backend/internal/platform/openai"
)

// generateQuestions asks the completion service for a question set and keeps the well-formed ones.
// The returned error is only about the call itself; an empty slice is a valid result.
func (u Usecases) generateQuestions(ctx context.Context, name prompts.Name, in prompts.Input) ([]domain.QuizQuestion, error) {
	if u.deps.AI == nil {
		return nil, apierr.New(http.StatusServiceUnavailable, "completion_not_configured",
			fmt.Errorf("%w: %v", apierr.ErrServiceNotConfigured, openai.ErrNotConfigured))
	}
	in.QuestionCount = u.deps.Config.QuestionCount
	req, err := prompts.Build(name, in)
	if err != nil {
		return nil, apierr.Internal("prompt_render_failed", err)
	}

	ctx, cancel := context.WithTimeout(ctx, u.deps.Config.CompletionTimeout)
	defer cancel()
	raw, err := u.complete(ctx, name, req)
	if err != nil {
		return nil, apierr.Unavailable("completion_failed", err)
	}

	questions, dropped := parseQuestions(u.validate, raw, u.deps.Config.QuestionCount)
	if dropped > 0 && u.deps.Log != nil {
		u.deps.Log.Warn("dropped malformed generated questions", "prompt", string(name), "dropped", dropped, "kept", len(questions))
	}
	return questions, nil
}

func (u Usecases) complete(ctx context.Context, name prompts.Name, req openai.ChatRequest) (string, error) {
	start := time.Now()
	raw, err := u.deps.AI.Complete(ctx, req)
	status := "ok"
	if err != nil {
		status = "error"
	}
	u.deps.Metrics.ObserveCompletion(string(name), status, time.Since(start))
	return raw, err
}

// parseQuestions decodes a {"questions":[...]} object or bare array and validates each entry.
// Entries that fail to decode or validate are counted in dropped.
func parseQuestions(v *validator.Validate, raw string, limit int) (out []domain.QuizQuestion, dropped int) {
	out = []domain.QuizQuestion{}
	var items []json.RawMessage
	if !openai.UnwrapList(openai.ExtractJSON(raw), "questions", &items) {
		return out, 0
	}
	for _, item := range items {
		var q domain.QuizQuestion
		if err := json.Unmarshal(item, &q); err != nil {
			dropped++
			continue
		}
		q = trimQuestion(q)
		if err := v.Struct(q); err != nil {
			dropped++
			continue
		}
		if limit > 0 && len(out) >= limit {
			continue
		}
		out = append(out, q)
	}
	return out, dropped
}

func trimQuestion(q domain.QuizQuestion) domain.QuizQuestion {
	q.Question = strings.TrimSpace(q.Question)
	q.Explanation = strings.TrimSpace(q.Explanation)
	opts := make([]string, 0, len(q.Options))
	for _, o := range q.Options {
		opts = append(opts, strings.TrimSpace(o))
	}
	q.Options = opts
	return q
}

func questionsJSON(qs []domain.QuizQuestion) string {
	raw, err := json.MarshalIndent(qs, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func contentInput(item *domain.ContentItem) prompts.Input {
	summary := strings.TrimSpace(item.Summary)
	if summary == "" {
		summary = strings.TrimSpace(item.Description)
	}
	return prompts.Input{
		Title:       item.Title,
		ContentType: string(item.Type),
		Summary:     summary,
	}
}
