package quiz

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/pulseloop-backend/internal/domain"
	"github.com/yungbote/pulseloop-backend/internal/platform/dbctx"
	"github.com/yungbote/pulseloop-backend/internal/platform/logger"
)

type QuizRepo interface {
	// Create fails with gorm.ErrDuplicatedKey when a content item already has a version 1.
	Create(dbc dbctx.Context, q *domain.Quiz) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Quiz, error)
	// GetCanonical returns the shared version 1 quiz, or nil.
	GetCanonical(dbc dbctx.Context, contentID uuid.UUID) (*domain.Quiz, error)
	// LatestRetry returns the newest quiz of a retry version written for userID, or nil.
	LatestRetry(dbc dbctx.Context, contentID uuid.UUID, version int, userID uuid.UUID) (*domain.Quiz, error)
	ListByContent(dbc dbctx.Context, contentID uuid.UUID) ([]*domain.Quiz, error)
}

type quizRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizRepo(db *gorm.DB, baseLog *logger.Logger) QuizRepo {
	return &quizRepo{db: db, log: baseLog.With("repo", "QuizRepo")}
}

func (r *quizRepo) Create(dbc dbctx.Context, q *domain.Quiz) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if q.Questions == nil {
		q.Questions = []domain.QuizQuestion{}
	}
	return transaction.WithContext(dbc.Ctx).Create(q).Error
}

func (r *quizRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Quiz, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var q domain.Quiz
	if err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&q).Error; err != nil {
		return nil, err
	}
	if q.ID == uuid.Nil {
		return nil, nil
	}
	return &q, nil
}

func (r *quizRepo) GetCanonical(dbc dbctx.Context, contentID uuid.UUID) (*domain.Quiz, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var q domain.Quiz
	err := transaction.WithContext(dbc.Ctx).
		Where("content_id = ? AND version = ?", contentID, domain.QuizCanonicalVersion).
		Limit(1).
		Find(&q).Error
	if err != nil {
		return nil, err
	}
	if q.ID == uuid.Nil {
		return nil, nil
	}
	return &q, nil
}

func (r *quizRepo) LatestRetry(dbc dbctx.Context, contentID uuid.UUID, version int, userID uuid.UUID) (*domain.Quiz, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var q domain.Quiz
	err := transaction.WithContext(dbc.Ctx).
		Where("content_id = ? AND version = ? AND user_id = ?", contentID, version, userID).
		Order("created_at DESC").
		Limit(1).
		Find(&q).Error
	if err != nil {
		return nil, err
	}
	if q.ID == uuid.Nil {
		return nil, nil
	}
	return &q, nil
}

func (r *quizRepo) ListByContent(dbc dbctx.Context, contentID uuid.UUID) ([]*domain.Quiz, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.Quiz
	if err := transaction.WithContext(dbc.Ctx).
		Where("content_id = ?", contentID).
		Order("version ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
