package quiz

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	OptionCount  = 4
	PassMaxWrong = 2
)

type Question struct {
	Question      string   `json:"question" validate:"required"`
	Options       []string `json:"options" validate:"len=4,dive,required"`
	CorrectAnswer int      `json:"correct_answer" validate:"min=0,max=3"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Quiz is one immutable question set for a content item. Version 1 is shared by
// every learner and unique per content item; retry versions are written for the
// learner whose failed attempt produced them.
type Quiz struct {
	ID        uuid.UUID                     `gorm:"type:uuid;primaryKey" json:"id"`
	ContentID uuid.UUID                     `gorm:"type:uuid;column:content_id;not null;index:idx_quiz_content_version_user,priority:1;uniqueIndex:idx_quiz_canonical,where:version = 1" json:"content_id"`
	Version   int                           `gorm:"column:version;not null;index:idx_quiz_content_version_user,priority:2" json:"version"`
	UserID    *uuid.UUID                    `gorm:"type:uuid;column:user_id;index:idx_quiz_content_version_user,priority:3" json:"user_id,omitempty"`
	Questions datatypes.JSONSlice[Question] `gorm:"column:questions" json:"questions"`
	CreatedAt time.Time                     `gorm:"not null" json:"created_at"`
}

const CanonicalVersion = 1

func (q *Quiz) IsCanonical() bool {
	return q != nil && q.Version == CanonicalVersion && q.UserID == nil
}

func (Quiz) TableName() string { return "quizzes" }

func (q *Quiz) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

type ParagraphRef struct {
	ParagraphIndex int `json:"paragraphIndex"`
}

type TimeRange struct {
	StartMS int64  `json:"start_ms"`
	EndMS   int64  `json:"end_ms"`
	Label   string `json:"label,omitempty"`
}

// ReviewHints point a learner who failed back at the material worth re-reading.
type ReviewHints struct {
	ArticleHighlights []ParagraphRef `json:"articleHighlights"`
	Timestamps        []TimeRange    `json:"timestamps"`
	Concepts          []string       `json:"concepts"`
}

func (h ReviewHints) IsEmpty() bool {
	return len(h.ArticleHighlights) == 0 && len(h.Timestamps) == 0 && len(h.Concepts) == 0
}

// Normalize replaces nil slices so the hints serialize as empty arrays.
func (h ReviewHints) Normalize() ReviewHints {
	if h.ArticleHighlights == nil {
		h.ArticleHighlights = []ParagraphRef{}
	}
	if h.Timestamps == nil {
		h.Timestamps = []TimeRange{}
	}
	if h.Concepts == nil {
		h.Concepts = []string{}
	}
	return h
}

// Attempt is append-only; one row per submission.
type Attempt struct {
	ID              uuid.UUID                        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID                        `gorm:"type:uuid;column:user_id;not null;index:idx_attempt_user_content,priority:1" json:"user_id"`
	ContentID       uuid.UUID                        `gorm:"type:uuid;column:content_id;not null;index:idx_attempt_user_content,priority:2" json:"content_id"`
	QuizID          uuid.UUID                        `gorm:"type:uuid;column:quiz_id;not null;index" json:"quiz_id"`
	AttemptNumber   int                              `gorm:"column:attempt_number;not null" json:"attempt_number"`
	Answers         datatypes.JSONSlice[int]         `gorm:"column:answers" json:"answers"`
	CorrectCount    int                              `gorm:"column:correct_count;not null" json:"correct_count"`
	WrongCount      int                              `gorm:"column:wrong_count;not null" json:"wrong_count"`
	Passed          bool                             `gorm:"column:passed;not null;index" json:"passed"`
	TechScoreChange int                              `gorm:"column:tech_score_change;not null" json:"tech_score_change"`
	ReviewHints     *datatypes.JSONType[ReviewHints] `gorm:"column:review_hints" json:"review_hints,omitempty"`
	NextQuizID      *uuid.UUID                       `gorm:"type:uuid;column:next_quiz_id" json:"next_quiz_id,omitempty"`
	CreatedAt       time.Time                        `gorm:"not null;index" json:"created_at"`
}

func (Attempt) TableName() string { return "quiz_attempts" }

func (a *Attempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
