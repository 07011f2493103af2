package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/pulseloop-backend/internal/domain"
	"github.com/yungbote/pulseloop-backend/internal/platform/dbctx"
	"github.com/yungbote/pulseloop-backend/internal/platform/logger"
)

// StreakUpdate is the result of advancing a learner's streak for one day.
type StreakUpdate struct {
	Current int
	Longest int
	Day     time.Time
}

type UserRepo interface {
	Create(dbc dbctx.Context, users []*domain.User) ([]*domain.User, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.User, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.User, error)
	GetByExternalID(dbc dbctx.Context, externalID string) (*domain.User, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	IncrementTechScore(dbc dbctx.Context, id uuid.UUID, delta int) (int, error)
	ApplyStreak(dbc dbctx.Context, id uuid.UUID, upd StreakUpdate) (bool, error)
	ListTopByScore(dbc dbctx.Context, orgID *uuid.UUID, limit int) ([]*domain.User, error)
	// ListRanked returns every member's id and tech score, best first.
	ListRanked(dbc dbctx.Context, orgID *uuid.UUID) ([]*domain.User, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) tx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *userRepo) Create(dbc dbctx.Context, users []*domain.User) ([]*domain.User, error) {
	if len(users) == 0 {
		return []*domain.User{}, nil
	}
	if err := r.tx(dbc).Create(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// GetByID returns nil, nil when the user does not exist.
func (r *userRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.User, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var u domain.User
	if err := r.tx(dbc).Where("id = ?", id).Limit(1).Find(&u).Error; err != nil {
		return nil, err
	}
	if u.ID == uuid.Nil {
		return nil, nil
	}
	return &u, nil
}

func (r *userRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.User, error) {
	var out []*domain.User
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.tx(dbc).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userRepo) GetByExternalID(dbc dbctx.Context, externalID string) (*domain.User, error) {
	if externalID == "" {
		return nil, nil
	}
	var u domain.User
	if err := r.tx(dbc).Where("external_id = ?", externalID).Limit(1).Find(&u).Error; err != nil {
		return nil, err
	}
	if u.ID == uuid.Nil {
		return nil, nil
	}
	return &u, nil
}

func (r *userRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return r.tx(dbc).Model(&domain.User{}).Where("id = ?", id).Updates(updates).Error
}

// IncrementTechScore adds delta in a single UPDATE and returns the stored total.
func (r *userRepo) IncrementTechScore(dbc dbctx.Context, id uuid.UUID, delta int) (int, error) {
	db := r.tx(dbc)
	res := db.Model(&domain.User{}).
		Where("id = ?", id).
		UpdateColumn("tech_score", gorm.Expr("tech_score + ?", delta))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	var score int
	if err := db.Model(&domain.User{}).Where("id = ?", id).Select("tech_score").Scan(&score).Error; err != nil {
		return 0, err
	}
	return score, nil
}

// ApplyStreak writes the new streak only if the stored activity date is older than upd.Day.
// It reports false when another request already recorded activity for that day.
func (r *userRepo) ApplyStreak(dbc dbctx.Context, id uuid.UUID, upd StreakUpdate) (bool, error) {
	res := r.tx(dbc).Model(&domain.User{}).
		Where("id = ? AND (last_activity_date IS NULL OR last_activity_date < ?)", id, upd.Day).
		UpdateColumns(map[string]interface{}{
			"current_streak":     upd.Current,
			"longest_streak":     upd.Longest,
			"last_activity_date": upd.Day,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *userRepo) ListTopByScore(dbc dbctx.Context, orgID *uuid.UUID, limit int) ([]*domain.User, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []*domain.User
	if err := r.ranked(dbc, orgID).Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userRepo) ListRanked(dbc dbctx.Context, orgID *uuid.UUID) ([]*domain.User, error) {
	var out []*domain.User
	if err := r.ranked(dbc, orgID).Select("id", "tech_score").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userRepo) ranked(dbc dbctx.Context, orgID *uuid.UUID) *gorm.DB {
	q := r.tx(dbc).Model(&domain.User{})
	if orgID != nil {
		q = q.Where("organization_id = ?", *orgID)
	}
	return q.Order("tech_score DESC").Order("created_at ASC")
}
