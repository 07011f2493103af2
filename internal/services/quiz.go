package services

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/yungbote/pulseloop-backend/internal/domain"
	"github.com/yungbote/pulseloop-backend/internal/modules/quiz"
	"github.com/yungbote/pulseloop-backend/internal/platform/apierr"
	"github.com/yungbote/pulseloop-backend/internal/platform/ctxutil"
	"github.com/yungbote/pulseloop-backend/internal/platform/logger"
)

type QuizService interface {
	// GetQuiz returns version 1, or the request user's own retry quiz for higher versions.
	GetQuiz(ctx context.Context, contentID uuid.UUID, version int) (*domain.Quiz, error)
	// Submit grades answers for the request user.
	Submit(ctx context.Context, contentID uuid.UUID, quizID *uuid.UUID, answers []int) (*quiz.SubmitResult, error)
	GetRetry(ctx context.Context, contentID uuid.UUID) (*domain.Quiz, error)
}

type quizService struct {
	log     *logger.Logger
	quizzes quiz.Usecases
}

func NewQuizService(log *logger.Logger, quizzes quiz.Usecases) QuizService {
	l := log.With("service", "QuizService")
	return &quizService{log: l, quizzes: quizzes.WithLog(l)}
}

func (s *quizService) GetQuiz(ctx context.Context, contentID uuid.UUID, version int) (*domain.Quiz, error) {
	rd, err := requestUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.quizzes.GetQuiz(ctx, rd.UserID, contentID, version)
}

func (s *quizService) Submit(ctx context.Context, contentID uuid.UUID, quizID *uuid.UUID, answers []int) (*quiz.SubmitResult, error) {
	rd, err := requestUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.quizzes.Submit(ctx, quiz.SubmitInput{
		UserID:         rd.UserID,
		OrganizationID: rd.OrganizationID,
		ContentID:      contentID,
		QuizID:         quizID,
		Answers:        answers,
	})
}

func (s *quizService) GetRetry(ctx context.Context, contentID uuid.UUID) (*domain.Quiz, error) {
	rd, err := requestUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.quizzes.PendingRetry(ctx, rd.UserID, contentID)
}

func requestUser(ctx context.Context) (*ctxutil.RequestData, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.New(http.StatusUnauthorized, "unauthorized", apierr.ErrUnauthorized)
	}
	return rd, nil
}
