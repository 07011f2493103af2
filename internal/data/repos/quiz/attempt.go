package quiz

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/pulseloop-backend/internal/domain"
	"github.com/yungbote/pulseloop-backend/internal/platform/dbctx"
	"github.com/yungbote/pulseloop-backend/internal/platform/logger"
)

// PassCounts splits a learner's passed attempts by whether they passed on the first try.
type PassCounts struct {
	Total      int64
	FirstTry   int64
	AfterRetry int64
}

type TypeCount struct {
	Type  domain.ContentType `json:"type"`
	Count int64              `json:"count"`
}

type QuizAttemptRepo interface {
	Create(dbc dbctx.Context, a *domain.QuizAttempt) error
	CountByUserContent(dbc dbctx.Context, userID, contentID uuid.UUID) (int, error)
	LatestByUserContent(dbc dbctx.Context, userID, contentID uuid.UUID) (*domain.QuizAttempt, error)
	PassCounts(dbc dbctx.Context, userID uuid.UUID) (PassCounts, error)
	ListRecentPassed(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*domain.QuizAttempt, error)
	CountPassedByContentType(dbc dbctx.Context, userID uuid.UUID) ([]TypeCount, error)
}

type quizAttemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizAttemptRepo(db *gorm.DB, baseLog *logger.Logger) QuizAttemptRepo {
	return &quizAttemptRepo{db: db, log: baseLog.With("repo", "QuizAttemptRepo")}
}

func (r *quizAttemptRepo) tx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *quizAttemptRepo) Create(dbc dbctx.Context, a *domain.QuizAttempt) error {
	if a.Answers == nil {
		a.Answers = []int{}
	}
	return r.tx(dbc).Create(a).Error
}

func (r *quizAttemptRepo) CountByUserContent(dbc dbctx.Context, userID, contentID uuid.UUID) (int, error) {
	var n int64
	if err := r.tx(dbc).Model(&domain.QuizAttempt{}).
		Where("user_id = ? AND content_id = ?", userID, contentID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *quizAttemptRepo) LatestByUserContent(dbc dbctx.Context, userID, contentID uuid.UUID) (*domain.QuizAttempt, error) {
	var a domain.QuizAttempt
	err := r.tx(dbc).
		Where("user_id = ? AND content_id = ?", userID, contentID).
		Order("created_at DESC").
		Order("attempt_number DESC").
		Limit(1).
		Find(&a).Error
	if err != nil {
		return nil, err
	}
	if a.ID == uuid.Nil {
		return nil, nil
	}
	return &a, nil
}

func (r *quizAttemptRepo) PassCounts(dbc dbctx.Context, userID uuid.UUID) (PassCounts, error) {
	var out PassCounts
	base := func() *gorm.DB {
		return r.tx(dbc).Model(&domain.QuizAttempt{}).Where("user_id = ? AND passed = ?", userID, true)
	}
	if err := base().Count(&out.Total).Error; err != nil {
		return out, err
	}
	if err := base().Where("attempt_number = 1").Count(&out.FirstTry).Error; err != nil {
		return out, err
	}
	out.AfterRetry = out.Total - out.FirstTry
	return out, nil
}

func (r *quizAttemptRepo) ListRecentPassed(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*domain.QuizAttempt, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []*domain.QuizAttempt
	if err := r.tx(dbc).
		Where("user_id = ? AND passed = ?", userID, true).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *quizAttemptRepo) CountPassedByContentType(dbc dbctx.Context, userID uuid.UUID) ([]TypeCount, error) {
	var out []TypeCount
	err := r.tx(dbc).
		Table("quiz_attempts AS a").
		Select("c.type AS type, COUNT(*) AS count").
		Joins("JOIN content_items AS c ON c.id = a.content_id").
		Where("a.user_id = ? AND a.passed = ?", userID, true).
		Group("c.type").
		Order("c.type").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
