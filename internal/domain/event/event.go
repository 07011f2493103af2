package event

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TypeContentViewed    = "content_viewed"
	TypeContentCompleted = "content_completed"
	TypeQuizAttempted    = "quiz_attempted"
	TypeQuizPassed       = "quiz_passed"
	TypeQuizFailed       = "quiz_failed"
	TypeStreakUpdated    = "streak_updated"
)

// Event is an analytics fact. Writes are best-effort and never block the request.
type Event struct {
	ID        uuid.UUID                          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID                          `gorm:"type:uuid;column:user_id;not null;index" json:"user_id"`
	Type      string                             `gorm:"column:type;not null;index" json:"type"`
	ContentID *uuid.UUID                         `gorm:"type:uuid;column:content_id;index" json:"content_id,omitempty"`
	Metadata  datatypes.JSONType[map[string]any] `gorm:"column:metadata" json:"metadata"`
	CreatedAt time.Time                          `gorm:"not null;index" json:"created_at"`
}

func (Event) TableName() string { return "events" }

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
