package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/pulseloop-backend/internal/data/repos"
	"github.com/yungbote/pulseloop-backend/internal/data/repos/testutil"
	"github.com/yungbote/pulseloop-backend/internal/domain"
	"github.com/yungbote/pulseloop-backend/internal/modules/progress"
	"github.com/yungbote/pulseloop-backend/internal/observability"
	"github.com/yungbote/pulseloop-backend/internal/platform/dbctx"
	"github.com/yungbote/pulseloop-backend/internal/platform/openai"
)

type reply struct {
	body string
	err  error
}

// fakeAI answers by prompt kind so one instance can serve a whole submit flow.
type fakeAI struct {
	mu    sync.Mutex
	calls map[string]int

	quiz  reply
	retry reply
	hints reply
}

func (f *fakeAI) Complete(_ context.Context, req openai.ChatRequest) (string, error) {
	kind := "quiz"
	switch {
	case strings.Contains(req.User, "Missed questions"):
		kind = "hints"
	case strings.Contains(req.User, "Missed concepts"):
		kind = "retry"
	}
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[kind]++
	f.mu.Unlock()

	switch kind {
	case "hints":
		return f.hints.body, f.hints.err
	case "retry":
		return f.retry.body, f.retry.err
	default:
		return f.quiz.body, f.quiz.err
	}
}

func (f *fakeAI) count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[kind]
}

type fakeStreaks struct {
	mu    sync.Mutex
	users []uuid.UUID
}

func (f *fakeStreaks) RecordPass(_ context.Context, userID uuid.UUID) (progress.StreakResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userID)
	return progress.StreakResult{CurrentStreak: 1, LongestStreak: 1, Changed: true}, nil
}

// questionsBody renders a {"questions":[...]} payload whose correct answers are given by correct.
func questionsBody(t *testing.T, prefix string, correct ...int) string {
	t.Helper()
	qs := make([]domain.QuizQuestion, 0, len(correct))
	for i, c := range correct {
		qs = append(qs, domain.QuizQuestion{
			Question:      prefix + " question " + string(rune('A'+i)),
			Options:       []string{"alpha", "beta", "gamma", "delta"},
			CorrectAnswer: c,
			Explanation:   "because " + prefix,
		})
	}
	raw, err := json.Marshal(map[string]any{"questions": qs})
	if err != nil {
		t.Fatalf("marshal questions: %v", err)
	}
	return string(raw)
}

type harness struct {
	db      *gorm.DB
	uc      Usecases
	ai      *fakeAI
	streaks *fakeStreaks
	users   repos.UserRepo
	quizzes repos.QuizRepo
	tries   repos.QuizAttemptRepo
	metrics *observability.Metrics
	deps    UsecasesDeps
}

// rebuild re-creates the usecases after a test swaps a dependency.
func (h *harness) rebuild(edit func(*UsecasesDeps)) {
	edit(&h.deps)
	h.uc = New(h.deps)
}

// retryStoreDown fails every insert except version 1.
type retryStoreDown struct {
	repos.QuizRepo
}

func (r retryStoreDown) Create(dbc dbctx.Context, q *domain.Quiz) error {
	if q.Version > domain.QuizCanonicalVersion {
		return errors.New("disk full")
	}
	return r.QuizRepo.Create(dbc, q)
}

// newHarness wires the usecases against a fresh database. ai may be nil.
func newHarness(t *testing.T, ai *fakeAI) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	h := &harness{
		db:      db,
		ai:      ai,
		streaks: &fakeStreaks{},
		users:   repos.NewUserRepo(db, log),
		quizzes: repos.NewQuizRepo(db, log),
		tries:   repos.NewQuizAttemptRepo(db, log),
		metrics: observability.NewMetrics(),
	}
	deps := UsecasesDeps{
		DB:       db,
		Log:      log,
		Users:    h.users,
		Contents: repos.NewContentRepo(db, log),
		Quizzes:  h.quizzes,
		Attempts: h.tries,
		Events:   repos.NewEventRepo(db, log),
		Streaks:  h.streaks,
		Metrics:  h.metrics,
	}
	if ai != nil {
		deps.AI = ai
	}
	h.deps = deps
	h.uc = New(deps)
	return h
}
