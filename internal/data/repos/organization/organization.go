package organization

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/pulseloop-backend/internal/domain"
	"github.com/yungbote/pulseloop-backend/internal/platform/dbctx"
	"github.com/yungbote/pulseloop-backend/internal/platform/logger"
)

type OrganizationRepo interface {
	Create(dbc dbctx.Context, org *domain.Organization) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Organization, error)
	GetByTenantID(dbc dbctx.Context, tenantID string) (*domain.Organization, error)
}

type organizationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrganizationRepo(db *gorm.DB, baseLog *logger.Logger) OrganizationRepo {
	return &organizationRepo{db: db, log: baseLog.With("repo", "OrganizationRepo")}
}

func (r *organizationRepo) Create(dbc dbctx.Context, org *domain.Organization) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Create(org).Error
}

func (r *organizationRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Organization, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var org domain.Organization
	if err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&org).Error; err != nil {
		return nil, err
	}
	if org.ID == uuid.Nil {
		return nil, nil
	}
	return &org, nil
}

func (r *organizationRepo) GetByTenantID(dbc dbctx.Context, tenantID string) (*domain.Organization, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if tenantID == "" {
		return nil, nil
	}
	var org domain.Organization
	if err := transaction.WithContext(dbc.Ctx).Where("tenant_id = ?", tenantID).Limit(1).Find(&org).Error; err != nil {
		return nil, err
	}
	if org.ID == uuid.Nil {
		return nil, nil
	}
	return &org, nil
}
