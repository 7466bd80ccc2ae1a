package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session records one issued token pair. Rows are revoked by clearing
// IsActive and are never deleted by the application.
type Session struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User   *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`

	AccessToken  string `gorm:"type:text;not null" json:"-"`
	RefreshToken string `gorm:"type:text;not null" json:"-"`

	UserAgent *string `gorm:"type:varchar(500)" json:"user_agent,omitempty"`
	IPAddress *string `gorm:"type:varchar(45)" json:"ip_address,omitempty"`
	IsActive  bool    `gorm:"default:true;not null;index" json:"is_active"`

	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `gorm:"not null" json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
