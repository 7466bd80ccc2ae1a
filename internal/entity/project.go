package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProjectStatus is free-form on update; these are the values the
// service itself writes.
type ProjectStatus string

const (
	ProjectDraft      ProjectStatus = "draft"
	ProjectGenerating ProjectStatus = "generating"
	ProjectGenerated  ProjectStatus = "generated"
	ProjectPublished  ProjectStatus = "published"
	ProjectArchived   ProjectStatus = "archived"
)

type Project struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index"`
	User   *User     `gorm:"constraint:OnDelete:CASCADE"`

	Name            string        `gorm:"type:varchar(200);not null"`
	Description     *string       `gorm:"type:text"`
	Slug            string        `gorm:"type:varchar(255);uniqueIndex;not null"`
	VibeDescription string        `gorm:"type:text;not null"`
	Status          ProjectStatus `gorm:"type:varchar(50);default:'draft';not null;index"`

	GeneratedCode *string `gorm:"type:text"`
	PreviewURL    *string `gorm:"type:varchar(500)"`
	LiveURL       *string `gorm:"type:varchar(500)"`
	CustomDomain  *string `gorm:"type:varchar(255)"`

	Language  string  `gorm:"type:varchar(20);default:'html';not null"`
	Framework *string `gorm:"type:varchar(50)"`

	Tags          datatypes.JSONSlice[string]
	Collaborators datatypes.JSONSlice[string]

	ViewsCount    int64 `gorm:"default:0;not null"`
	LikesCount    int64 `gorm:"default:0;not null"`
	CommentsCount int64 `gorm:"default:0;not null"`

	IsPublic        bool `gorm:"default:false;not null"`
	EnableAnalytics bool `gorm:"default:false;not null"`

	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p Project) OwnedBy(userID uuid.UUID) bool {
	return p.UserID == userID
}
