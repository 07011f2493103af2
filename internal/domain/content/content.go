package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Type string

const (
	TypeArticle Type = "article"
	TypeVideo   Type = "video"
	TypePodcast Type = "podcast"
)

// IsTimeBased reports whether the content carries a transcript timeline.
func (t Type) IsTimeBased() bool {
	return t == TypeVideo || t == TypePodcast
}

// TranscriptSegment is a window of transcript text. Segments of one item are ordered by time.
type TranscriptSegment struct {
	Text    string `json:"text"`
	StartMS int64  `json:"start_ms"`
	EndMS   int64  `json:"end_ms"`
}

type StoryboardStep struct {
	Step        int    `json:"step"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type AnimatedSummary struct {
	Storyboard []StoryboardStep `json:"storyboard"`
	AudioURL   string           `json:"audio_url"`
}

func (a AnimatedSummary) IsZero() bool {
	return len(a.Storyboard) == 0 && a.AudioURL == ""
}

type Item struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SourceID       *uuid.UUID `gorm:"type:uuid;column:source_id;index" json:"source_id,omitempty"`
	OrganizationID *uuid.UUID `gorm:"type:uuid;column:organization_id;index" json:"organization_id,omitempty"`
	Title          string     `gorm:"column:title;not null" json:"title"`
	Type           Type       `gorm:"column:type;not null;index" json:"type"`
	URL            string     `gorm:"column:url" json:"url"`
	Description    string     `gorm:"column:description" json:"description,omitempty"`
	PublishedAt    *time.Time `gorm:"column:published_at;index" json:"published_at,omitempty"`

	RoleTags datatypes.JSONSlice[string] `gorm:"column:role_tags" json:"role_tags"`
	Tags     datatypes.JSONSlice[string] `gorm:"column:tags" json:"tags"`

	Transcript         string                                 `gorm:"column:transcript;type:text" json:"transcript,omitempty"`
	TranscriptSegments datatypes.JSONSlice[TranscriptSegment] `gorm:"column:transcript_segments" json:"transcript_segments,omitempty"`
	Summary            string                                 `gorm:"column:summary;type:text" json:"summary,omitempty"`
	PriorityScore      float64                                `gorm:"column:priority_score;not null;default:0;index" json:"priority_score"`

	BlobURI         string                              `gorm:"column:blob_uri" json:"blob_uri,omitempty"`
	SummaryBlobURI  string                              `gorm:"column:summary_blob_uri" json:"summary_blob_uri,omitempty"`
	AnimatedSummary datatypes.JSONType[AnimatedSummary] `gorm:"column:animated_summary" json:"animated_summary"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Item) TableName() string { return "content_items" }

func (i *Item) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

type SourceType string

const (
	SourceRSS     SourceType = "rss"
	SourceYouTube SourceType = "youtube"
	SourcePodcast SourceType = "podcast"
	SourceManual  SourceType = "manual"
)

// Source is a feed the ingestion side polls. Only read here.
type Source struct {
	ID        uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string                      `gorm:"column:name;not null" json:"name"`
	Type      SourceType                  `gorm:"column:type;not null" json:"type"`
	URL       string                      `gorm:"column:url" json:"url,omitempty"`
	ChannelID string                      `gorm:"column:channel_id" json:"channel_id,omitempty"`
	RoleTags  datatypes.JSONSlice[string] `gorm:"column:role_tags" json:"role_tags"`
	Enabled   bool                        `gorm:"column:enabled;not null;default:true" json:"enabled"`
	CreatedAt time.Time                   `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time                   `gorm:"not null" json:"updated_at"`
}

func (Source) TableName() string { return "sources" }

func (s *Source) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
