package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SecurityAction string

const (
	LoginSuccess       SecurityAction = "login_success"
	LoginFailed        SecurityAction = "login_failed"
	Logout             SecurityAction = "logout"
	SessionRevoked     SecurityAction = "session_revoked"
	PasswordChanged    SecurityAction = "password_changed"
	Reset              SecurityAction = "password_reset"
	OAuthLogin         SecurityAction = "oauth_login"
	TwoFactorEnabled   SecurityAction = "two_factor_enabled"
	TwoFactorDisabled  SecurityAction = "two_factor_disabled"
	TwoFactorFailed    SecurityAction = "two_factor_failed"
	AccountDeactivated SecurityAction = "account_deactivated"
)

type SecurityLog struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	UserID *uuid.UUID `gorm:"type:uuid;index"`
	User   *User      `gorm:"constraint:OnDelete:SET NULL"`

	IPAddress *string        `gorm:"type:varchar(45)"`
	UserAgent *string        `gorm:"type:varchar(500)"`
	Action    SecurityAction `gorm:"type:varchar(50);not null"`

	Metadata datatypes.JSON

	CreatedAt time.Time `gorm:"index"`
}

func (l *SecurityLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
