package service

import "vividly/internal/entity"

const TokenTypeBearer = "bearer"

type RegisterInput struct {
	Email           string
	Password        string
	ConfirmPassword string
	FirstName       *string
	LastName        *string
}

type LoginInput struct {
	Email     string
	Password  string
	IPAddress *string
	UserAgent *string
}

type LoginMFAInput struct {
	MFAToken  string
	Code      string
	IPAddress *string
	UserAgent *string
}

type LoginResult struct {
	AccessToken       string
	RefreshToken      string
	TokenType         string
	ExpiresIn         int64
	MFARequired       bool
	MFAToken          string
	MFATokenExpiresIn int64
}

type MFASetup struct {
	Secret     string
	OTPAuthURL string
}

type OAuthResult struct {
	Tokens  *LoginResult
	User    *entity.User
	Created bool
}
