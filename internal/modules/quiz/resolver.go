package quiz

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/pulseloop-backend/internal/data/db"
	"github.com/yungbote/pulseloop-backend/internal/domain"
	"github.com/yungbote/pulseloop-backend/internal/modules/prompts"
	"github.com/yungbote/pulseloop-backend/internal/platform/apierr"
	"github.com/yungbote/pulseloop-backend/internal/platform/dbctx"
)

type ResolveInput struct {
	UserID    uuid.UUID
	ContentID uuid.UUID
	// QuizID is the quiz the client already holds, usually a retry quiz.
	QuizID *uuid.UUID
}

type Resolution struct {
	Quiz          *domain.Quiz
	AttemptNumber int
}

// Resolve picks the quiz a learner should attempt next on a content item.
func (u Usecases) Resolve(ctx context.Context, in ResolveInput) (Resolution, error) {
	ctx, span := u.span(ctx, "resolve")
	defer span.End()
	dbc := dbctx.Context{Ctx: ctx}

	if in.QuizID != nil && *in.QuizID != uuid.Nil {
		q, err := u.deps.Quizzes.GetByID(dbc, *in.QuizID)
		if err != nil {
			return Resolution{}, apierr.Internal("quiz_lookup_failed", err)
		}
		if q == nil {
			return Resolution{}, apierr.NotFound("quiz_not_found", "quiz %s", *in.QuizID)
		}
		if q.ContentID != in.ContentID {
			return Resolution{}, apierr.InvalidInput("quiz_content_mismatch", "quiz %s does not belong to content %s", q.ID, in.ContentID)
		}
		n, err := u.nextAttemptNumber(dbc, in.UserID, in.ContentID)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{Quiz: q, AttemptNumber: n}, nil
	}

	latest, err := u.deps.Attempts.LatestByUserContent(dbc, in.UserID, in.ContentID)
	if err != nil {
		return Resolution{}, apierr.Internal("attempt_lookup_failed", err)
	}
	if latest != nil && !latest.Passed && latest.NextQuizID != nil {
		q, err := u.deps.Quizzes.GetByID(dbc, *latest.NextQuizID)
		if err != nil {
			return Resolution{}, apierr.Internal("quiz_lookup_failed", err)
		}
		if q != nil {
			n, err := u.nextAttemptNumber(dbc, in.UserID, in.ContentID)
			if err != nil {
				return Resolution{}, err
			}
			return Resolution{Quiz: q, AttemptNumber: n}, nil
		}
		u.logWarn("pending retry quiz missing, serving version 1", "user_id", in.UserID, "content_id", in.ContentID, "quiz_id", *latest.NextQuizID)
	}

	q, err := u.GetOrCreate(ctx, in.ContentID)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Quiz: q, AttemptNumber: 1}, nil
}

func (u Usecases) nextAttemptNumber(dbc dbctx.Context, userID, contentID uuid.UUID) (int, error) {
	n, err := u.deps.Attempts.CountByUserContent(dbc, userID, contentID)
	if err != nil {
		return 0, apierr.Internal("attempt_count_failed", err)
	}
	return n + 1, nil
}

// GetQuiz serves GET /quiz/content/:id. Version 1 is created on demand; a retry
// version resolves to the newest one written for userID and must already exist.
func (u Usecases) GetQuiz(ctx context.Context, userID, contentID uuid.UUID, version int) (*domain.Quiz, error) {
	if version < domain.QuizCanonicalVersion {
		return nil, apierr.InvalidInput("invalid_version", "version must be >= 1, got %d", version)
	}
	if version == domain.QuizCanonicalVersion {
		return u.GetOrCreate(ctx, contentID)
	}
	q, err := u.deps.Quizzes.LatestRetry(dbctx.Context{Ctx: ctx}, contentID, version, userID)
	if err != nil {
		return nil, apierr.Internal("quiz_lookup_failed", err)
	}
	if q == nil {
		return nil, apierr.NotFound("quiz_not_found", "content %s version %d", contentID, version)
	}
	return q, nil
}

// PendingRetry returns the retry quiz linked from the learner's latest failed attempt.
func (u Usecases) PendingRetry(ctx context.Context, userID, contentID uuid.UUID) (*domain.Quiz, error) {
	dbc := dbctx.Context{Ctx: ctx}
	latest, err := u.deps.Attempts.LatestByUserContent(dbc, userID, contentID)
	if err != nil {
		return nil, apierr.Internal("attempt_lookup_failed", err)
	}
	if latest == nil {
		return nil, apierr.NotFound("no_previous_attempt", "no attempt on content %s", contentID)
	}
	if latest.Passed {
		return nil, apierr.InvalidInput("quiz_already_passed", "content %s already passed", contentID)
	}
	if latest.NextQuizID == nil {
		return nil, apierr.NotFound("retry_not_available", "no retry quiz for content %s", contentID)
	}
	q, err := u.deps.Quizzes.GetByID(dbc, *latest.NextQuizID)
	if err != nil {
		return nil, apierr.Internal("quiz_lookup_failed", err)
	}
	if q == nil {
		return nil, apierr.NotFound("retry_not_found", "quiz %s", *latest.NextQuizID)
	}
	return q, nil
}

// canonical returns version 1 from the cache or the store, or nil when it does not exist yet.
func (u Usecases) canonical(ctx context.Context, contentID uuid.UUID) (*domain.Quiz, error) {
	if u.deps.Cache != nil {
		if q, err := u.deps.Cache.Get(ctx, contentID, domain.QuizCanonicalVersion); err != nil {
			u.logWarn("quiz cache read failed", "content_id", contentID, "error", err)
		} else if q != nil {
			return q, nil
		}
	}
	q, err := u.deps.Quizzes.GetCanonical(dbctx.Context{Ctx: ctx}, contentID)
	if err != nil {
		return nil, apierr.Internal("quiz_lookup_failed", err)
	}
	u.cachePut(ctx, q)
	return q, nil
}

// cachePut caches the shared version only; retry quizzes are per learner.
func (u Usecases) cachePut(ctx context.Context, q *domain.Quiz) {
	if u.deps.Cache == nil || !q.IsCanonical() {
		return
	}
	if err := u.deps.Cache.Put(ctx, q); err != nil {
		u.logWarn("quiz cache write failed", "quiz_id", q.ID, "error", err)
	}
}

// GetOrCreate returns version 1 for contentID, generating it from the content summary when absent.
func (u Usecases) GetOrCreate(ctx context.Context, contentID uuid.UUID) (*domain.Quiz, error) {
	ctx, span := u.span(ctx, "get_or_create")
	defer span.End()

	q, err := u.canonical(ctx, contentID)
	if err != nil || q != nil {
		return q, err
	}

	item, err := u.deps.Contents.GetByID(dbctx.Context{Ctx: ctx}, contentID)
	if err != nil {
		return nil, apierr.Internal("content_lookup_failed", err)
	}
	if item == nil {
		return nil, apierr.NotFound("content_not_found", "content %s", contentID)
	}

	questions, err := u.generateQuestions(ctx, prompts.QuizQuestions, contentInput(item))
	if err != nil {
		if u.deps.Log != nil {
			u.deps.Log.Error("quiz generation failed", "content_id", contentID, "error", err)
		}
		return nil, err
	}
	return u.insert(ctx, &domain.Quiz{ContentID: contentID, Version: domain.QuizCanonicalVersion, Questions: questions})
}

// insert stores q. Losing the race to create version 1 returns the winner instead.
func (u Usecases) insert(ctx context.Context, q *domain.Quiz) (*domain.Quiz, error) {
	dbc := dbctx.Context{Ctx: ctx}
	createErr := u.deps.Quizzes.Create(dbc, q)
	if createErr == nil {
		u.cachePut(ctx, q)
		return q, nil
	}
	if !q.IsCanonical() || !db.IsUniqueViolation(createErr) {
		return nil, apierr.Internal("quiz_create_failed", createErr)
	}
	existing, err := u.deps.Quizzes.GetCanonical(dbc, q.ContentID)
	if err != nil {
		return nil, apierr.Internal("quiz_create_failed", fmt.Errorf("create: %v; refetch: %w", createErr, err))
	}
	if existing == nil {
		return nil, apierr.Internal("quiz_create_failed", createErr)
	}
	u.cachePut(ctx, existing)
	return existing, nil
}
