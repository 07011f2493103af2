package quiz

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/pulseloop-backend/internal/data/db"
	"github.com/yungbote/pulseloop-backend/internal/domain"
	"github.com/yungbote/pulseloop-backend/internal/modules/progress"
	"github.com/yungbote/pulseloop-backend/internal/platform/apierr"
	"github.com/yungbote/pulseloop-backend/internal/platform/dbctx"
)

type SubmitInput struct {
	UserID         uuid.UUID
	OrganizationID *uuid.UUID
	ContentID      uuid.UUID
	QuizID         *uuid.UUID
	Answers        []int
}

type SubmitResult struct {
	Status          string                 `json:"status"`
	CorrectCount    int                    `json:"correct_count"`
	WrongCount      int                    `json:"wrong_count"`
	TechScoreChange int                    `json:"tech_score_change"`
	UpdatedScore    int                    `json:"updated_score"`
	AttemptNumber   int                    `json:"attempt_number"`
	QuizID          uuid.UUID              `json:"quiz_id"`
	ReviewHints     *domain.ReviewHints    `json:"review_hints,omitempty"`
	NextQuizID      *uuid.UUID             `json:"next_quiz_id,omitempty"`
	Streak          *progress.StreakResult `json:"streak,omitempty"`
}

// Submit grades a submission, records the attempt and applies the score change.
// On a fail it also attaches review hints and links the next quiz version.
func (u Usecases) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	ctx, span := u.span(ctx, "submit")
	defer span.End()

	res, err := u.Resolve(ctx, ResolveInput{UserID: in.UserID, ContentID: in.ContentID, QuizID: in.QuizID})
	if err != nil {
		return nil, err
	}
	qz := res.Quiz

	grade, err := GradeAnswers(qz.Questions, in.Answers)
	if err != nil {
		return nil, err
	}
	delta := ScoreDelta(grade.Passed, res.AttemptNumber)
	span.SetAttributes(
		attribute.String("quiz.id", qz.ID.String()),
		attribute.Int("quiz.version", qz.Version),
		attribute.Int("quiz.attempt_number", res.AttemptNumber),
		attribute.Bool("quiz.passed", grade.Passed),
	)

	attempt := &domain.QuizAttempt{
		UserID:          in.UserID,
		ContentID:       in.ContentID,
		QuizID:          qz.ID,
		AttemptNumber:   res.AttemptNumber,
		Answers:         append([]int(nil), in.Answers...),
		CorrectCount:    grade.Correct,
		WrongCount:      grade.Wrong,
		Passed:          grade.Passed,
		TechScoreChange: delta,
	}

	out := &SubmitResult{
		Status:          grade.Status(),
		CorrectCount:    grade.Correct,
		WrongCount:      grade.Wrong,
		TechScoreChange: delta,
		AttemptNumber:   res.AttemptNumber,
		QuizID:          qz.ID,
	}

	if !grade.Passed {
		rem, err := u.remediate(ctx, in.UserID, u.contentFor(ctx, in.ContentID), qz, grade)
		if err != nil {
			// The grade stands; the learner falls back to version 1 on the next submit.
			if u.deps.Log != nil {
				u.deps.Log.Error("retry quiz could not be stored", "user_id", in.UserID, "content_id", in.ContentID, "quiz_id", qz.ID, "error", err)
			}
		}
		hints := rem.Hints
		stored := datatypes.NewJSONType(hints)
		attempt.ReviewHints = &stored
		out.ReviewHints = &hints
		if rem.NextQuiz != nil {
			attempt.NextQuizID = &rem.NextQuiz.ID
			out.NextQuizID = &rem.NextQuiz.ID
		}
	}

	updated, err := u.persist(ctx, attempt)
	if err != nil {
		if u.deps.Log != nil {
			u.deps.Log.Error("quiz attempt not recorded", "user_id", in.UserID, "content_id", in.ContentID, "quiz_id", qz.ID, "error", err)
		}
		return nil, err
	}
	out.UpdatedScore = updated

	if grade.Passed && u.deps.Streaks != nil {
		streak, err := u.deps.Streaks.RecordPass(ctx, in.UserID)
		if err != nil {
			u.logWarn("streak update failed", "user_id", in.UserID, "content_id", in.ContentID, "error", err)
		} else {
			out.Streak = &streak
		}
	}

	u.publishScore(ctx, in.OrganizationID, in.UserID, updated)
	u.recordAttemptEvents(ctx, attempt, qz)
	u.deps.Metrics.ObserveQuiz(out.Status, res.AttemptNumber, delta)

	if u.deps.Log != nil {
		u.deps.Log.Info("quiz graded",
			"user_id", in.UserID, "content_id", in.ContentID, "quiz_id", qz.ID,
			"version", qz.Version, "attempt", res.AttemptNumber, "status", out.Status,
			"correct", grade.Correct, "wrong", grade.Wrong, "delta", delta)
	}
	return out, nil
}

// persist inserts the attempt and applies the score delta in one transaction.
func (u Usecases) persist(ctx context.Context, attempt *domain.QuizAttempt) (int, error) {
	var updated int
	write := func(dbc dbctx.Context) error {
		if err := u.deps.Attempts.Create(dbc, attempt); err != nil {
			return fmt.Errorf("insert attempt: %w", err)
		}
		score, err := u.deps.Users.IncrementTechScore(dbc, attempt.UserID, attempt.TechScoreChange)
		if err != nil {
			return fmt.Errorf("increment tech score: %w", err)
		}
		updated = score
		return nil
	}

	if u.deps.DB == nil {
		if err := write(dbctx.Context{Ctx: ctx}); err != nil {
			return 0, apierr.Internal("attempt_persist_failed", err)
		}
		return updated, nil
	}

	var err error
	for try := 0; try < 2; try++ {
		err = u.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return write(dbctx.Context{Ctx: ctx, Tx: tx})
		})
		if err == nil || !db.IsRetryable(err) || ctx.Err() != nil {
			break
		}
		u.logWarn("attempt transaction conflict, retrying", "user_id", attempt.UserID, "content_id", attempt.ContentID, "error", err)
	}
	if err != nil {
		return 0, apierr.Internal("attempt_persist_failed", err)
	}
	return updated, nil
}

// contentFor loads the content item for remediation. A vanished or unreadable item
// still gets graded, just without context.
func (u Usecases) contentFor(ctx context.Context, contentID uuid.UUID) *domain.ContentItem {
	item, err := u.deps.Contents.GetByID(dbctx.Context{Ctx: ctx}, contentID)
	if err != nil {
		u.logWarn("content lookup for remediation failed", "content_id", contentID, "error", err)
	}
	if item == nil {
		return &domain.ContentItem{ID: contentID, Type: domain.ContentArticle}
	}
	return item
}

func (u Usecases) publishScore(ctx context.Context, orgID *uuid.UUID, userID uuid.UUID, score int) {
	if u.deps.Leaderboard == nil {
		return
	}
	if err := u.deps.Leaderboard.SetScore(ctx, orgID, userID, score); err != nil {
		u.logWarn("leaderboard update failed", "user_id", userID, "error", err)
	}
}

func (u Usecases) recordAttemptEvents(ctx context.Context, a *domain.QuizAttempt, qz *domain.Quiz) {
	if u.deps.Events == nil {
		return
	}
	meta := map[string]any{
		"quiz_id":           a.QuizID.String(),
		"quiz_version":      qz.Version,
		"attempt_number":    a.AttemptNumber,
		"correct_count":     a.CorrectCount,
		"wrong_count":       a.WrongCount,
		"tech_score_change": a.TechScoreChange,
	}
	outcome := domain.EventQuizPassed
	if !a.Passed {
		outcome = domain.EventQuizFailed
		if a.NextQuizID != nil {
			meta["next_quiz_id"] = a.NextQuizID.String()
		}
	}
	contentID := a.ContentID
	events := []*domain.Event{
		{UserID: a.UserID, Type: domain.EventQuizAttempted, ContentID: &contentID, Metadata: datatypes.NewJSONType(meta)},
		{UserID: a.UserID, Type: outcome, ContentID: &contentID, Metadata: datatypes.NewJSONType(meta)},
	}
	if err := u.deps.Events.Create(dbctx.Context{Ctx: ctx}, events); err != nil {
		u.logWarn("attempt events not recorded", "user_id", a.UserID, "content_id", a.ContentID, "error", err)
	}
}
