package dto

import (
	"time"

	"vividly/internal/entity"
	"vividly/internal/service"
)

// Envelope wraps the auth endpoints' responses.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type RegisterRequest struct {
	Email           string  `json:"email" validate:"required,email"`
	Password        string  `json:"password" validate:"required,min=8,max=100"`
	ConfirmPassword string  `json:"confirm_password" validate:"required"`
	FirstName       *string `json:"first_name" validate:"omitempty,max=100"`
	LastName        *string `json:"last_name" validate:"omitempty,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginMFARequest struct {
	MFAToken string `json:"mfa_token" validate:"required"`
	Code     string `json:"code" validate:"required,len=6,numeric"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

type PasswordForgotRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetRequest struct {
	Token           string `json:"token" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=100"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

type MFAVerifyRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

type MFADisableRequest struct {
	Password string `json:"password" validate:"required"`
}

type MFAEnableResponse struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
}

type TokenResponse struct {
	AccessToken       string `json:"access_token,omitempty"`
	RefreshToken      string `json:"refresh_token,omitempty"`
	TokenType         string `json:"token_type,omitempty"`
	ExpiresIn         int64  `json:"expires_in,omitempty"`
	MFARequired       bool   `json:"mfa_required,omitempty"`
	MFAToken          string `json:"mfa_token,omitempty"`
	MFATokenExpiresIn int64  `json:"mfa_token_expires_in,omitempty"`
}

func TokenResponseFromResult(result *service.LoginResult) TokenResponse {
	if result == nil {
		return TokenResponse{}
	}
	return TokenResponse{
		AccessToken:       result.AccessToken,
		RefreshToken:      result.RefreshToken,
		TokenType:         result.TokenType,
		ExpiresIn:         result.ExpiresIn,
		MFARequired:       result.MFARequired,
		MFAToken:          result.MFAToken,
		MFATokenExpiresIn: result.MFATokenExpiresIn,
	}
}

type OAuthAuthorizeResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}

type OAuthCallbackResponse struct {
	Message      string `json:"message"`
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	Created      bool   `json:"created"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type SessionResponse struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	UserAgent  *string    `json:"user_agent"`
	IPAddress  *string    `json:"ip_address"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
}

func SessionResponsesFromEntities(sessions []entity.Session) []SessionResponse {
	responses := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		responses = append(responses, SessionResponse{
			ID:         s.ID.String(),
			UserID:     s.UserID.String(),
			UserAgent:  s.UserAgent,
			IPAddress:  s.IPAddress,
			IsActive:   s.IsActive,
			CreatedAt:  s.CreatedAt,
			ExpiresAt:  s.ExpiresAt,
			LastUsedAt: s.LastUsedAt,
		})
	}
	return responses
}
