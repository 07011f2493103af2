package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
)

type User struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ExternalID     string     `gorm:"column:external_id;uniqueIndex;not null" json:"external_id"`
	Email          string     `gorm:"column:email;index" json:"email"`
	DisplayName    string     `gorm:"column:display_name" json:"display_name"`
	TenantID       string     `gorm:"column:tenant_id;index" json:"tenant_id,omitempty"`
	OrganizationID *uuid.UUID `gorm:"type:uuid;column:organization_id;index" json:"organization_id,omitempty"`
	Role           string     `gorm:"column:role;not null;default:'employee'" json:"role"`
	JobRole        string     `gorm:"column:job_role" json:"job_role,omitempty"`

	TechScore        int        `gorm:"column:tech_score;not null;default:0" json:"tech_score"`
	CurrentStreak    int        `gorm:"column:current_streak;not null;default:0" json:"current_streak"`
	LongestStreak    int        `gorm:"column:longest_streak;not null;default:0" json:"longest_streak"`
	LastActivityDate *time.Time `gorm:"column:last_activity_date" json:"last_activity_date,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Organization is a customer tenant; users join it through their identity-provider tenant id.
type Organization struct {
	ID        uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID  string                      `gorm:"column:tenant_id;uniqueIndex;not null" json:"tenant_id"`
	Name      string                      `gorm:"column:name" json:"name"`
	Domain    string                      `gorm:"column:domain" json:"domain,omitempty"`
	Roles     datatypes.JSONSlice[string] `gorm:"column:roles" json:"roles"`
	SourceIDs datatypes.JSONSlice[string] `gorm:"column:source_ids" json:"source_ids"`
	CreatedAt time.Time                   `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time                   `gorm:"not null" json:"updated_at"`
}

func (Organization) TableName() string { return "organizations" }

func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
