package content

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/pulseloop-backend/internal/domain"
	"github.com/yungbote/pulseloop-backend/internal/platform/dbctx"
	"github.com/yungbote/pulseloop-backend/internal/platform/logger"
)

// FeedFilter scopes feed queries. A nil OrganizationID means global content only.
type FeedFilter struct {
	OrganizationID *uuid.UUID
	Type           domain.ContentType
	Limit          int
}

type ContentRepo interface {
	Create(dbc dbctx.Context, items []*domain.ContentItem) ([]*domain.ContentItem, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.ContentItem, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.ContentItem, error)
	ListForFeed(dbc dbctx.Context, f FeedFilter) ([]*domain.ContentItem, error)
	LatestByType(dbc dbctx.Context, orgID *uuid.UUID, t domain.ContentType) (*domain.ContentItem, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type contentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentRepo(db *gorm.DB, baseLog *logger.Logger) ContentRepo {
	return &contentRepo{db: db, log: baseLog.With("repo", "ContentRepo")}
}

func (r *contentRepo) tx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *contentRepo) Create(dbc dbctx.Context, items []*domain.ContentItem) ([]*domain.ContentItem, error) {
	if len(items) == 0 {
		return []*domain.ContentItem{}, nil
	}
	if err := r.tx(dbc).Create(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *contentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.ContentItem, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var item domain.ContentItem
	if err := r.tx(dbc).Where("id = ?", id).Limit(1).Find(&item).Error; err != nil {
		return nil, err
	}
	if item.ID == uuid.Nil {
		return nil, nil
	}
	return &item, nil
}

func (r *contentRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.ContentItem, error) {
	var out []*domain.ContentItem
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.tx(dbc).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// feedOrder sorts by priority, then publish date with undated items last, then insertion.
func feedOrder(q *gorm.DB) *gorm.DB {
	return q.
		Order("priority_score DESC").
		Order("CASE WHEN published_at IS NULL THEN 1 ELSE 0 END").
		Order("published_at DESC").
		Order("created_at DESC")
}

func scopeOrg(q *gorm.DB, orgID *uuid.UUID) *gorm.DB {
	if orgID == nil {
		return q.Where("organization_id IS NULL")
	}
	return q.Where("organization_id IS NULL OR organization_id = ?", *orgID)
}

func (r *contentRepo) ListForFeed(dbc dbctx.Context, f FeedFilter) ([]*domain.ContentItem, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	q := scopeOrg(r.tx(dbc).Model(&domain.ContentItem{}), f.OrganizationID)
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	var out []*domain.ContentItem
	if err := feedOrder(q).Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contentRepo) LatestByType(dbc dbctx.Context, orgID *uuid.UUID, t domain.ContentType) (*domain.ContentItem, error) {
	q := scopeOrg(r.tx(dbc).Model(&domain.ContentItem{}), orgID).Where("type = ?", t)
	var item domain.ContentItem
	err := q.
		Order("CASE WHEN published_at IS NULL THEN 1 ELSE 0 END").
		Order("published_at DESC").
		Order("created_at DESC").
		Limit(1).
		Find(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == uuid.Nil {
		return nil, nil
	}
	return &item, nil
}

func (r *contentRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return r.tx(dbc).Model(&domain.ContentItem{}).Where("id = ?", id).Updates(updates).Error
}
