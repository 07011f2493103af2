package event

import (
	"gorm.io/gorm"

	"github.com/yungbote/pulseloop-backend/internal/domain"
	"github.com/yungbote/pulseloop-backend/internal/platform/dbctx"
	"github.com/yungbote/pulseloop-backend/internal/platform/logger"
)

type EventRepo interface {
	Create(dbc dbctx.Context, events []*domain.Event) error
}

type eventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEventRepo(db *gorm.DB, baseLog *logger.Logger) EventRepo {
	return &eventRepo{db: db, log: baseLog.With("repo", "EventRepo")}
}

func (r *eventRepo) Create(dbc dbctx.Context, events []*domain.Event) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(events) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Create(&events).Error
}
