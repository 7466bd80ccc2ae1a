package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string    `gorm:"type:varchar(255);not null"`

	FirstName string  `gorm:"type:varchar(100)"`
	LastName  string  `gorm:"type:varchar(100)"`
	AvatarURL *string `gorm:"type:varchar(500)"`
	Bio       *string `gorm:"type:text"`
	Phone     *string `gorm:"type:varchar(20)"`
	Country   *string `gorm:"type:varchar(100)"`
	Timezone  string  `gorm:"type:varchar(50);default:'UTC'"`
	Language  string  `gorm:"type:varchar(10);default:'en'"`

	GitHubID *string `gorm:"column:github_id;type:varchar(100);uniqueIndex"`
	GoogleID *string `gorm:"type:varchar(100);uniqueIndex"`

	IsActive         bool `gorm:"default:true;not null"`
	IsAdmin          bool `gorm:"default:false;not null"`
	EmailVerified    bool `gorm:"default:false;not null"`
	TwoFactorEnabled bool `gorm:"default:false;not null"`
	TwoFactorSecret  *string
	LastLoginAt      *time.Time

	Metadata datatypes.JSONMap

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
