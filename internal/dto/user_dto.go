package dto

import (
	"encoding/json"
	"time"

	"vividly/internal/entity"
	"vividly/internal/repository"
)

type UserResponse struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	AvatarURL        *string    `json:"avatar_url"`
	Bio              *string    `json:"bio"`
	Phone            *string    `json:"phone,omitempty"`
	Country          *string    `json:"country,omitempty"`
	Timezone         string     `json:"timezone"`
	Language         string     `json:"language"`
	IsActive         bool       `json:"is_active"`
	IsAdmin          bool       `json:"is_admin"`
	EmailVerified    bool       `json:"email_verified"`
	TwoFactorEnabled bool       `json:"two_factor_enabled"`
	LastLogin        *time.Time `json:"last_login"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func UserResponseFromEntity(user *entity.User) UserResponse {
	return UserResponse{
		ID:               user.ID.String(),
		Email:            user.Email,
		FirstName:        user.FirstName,
		LastName:         user.LastName,
		AvatarURL:        user.AvatarURL,
		Bio:              user.Bio,
		Phone:            user.Phone,
		Country:          user.Country,
		Timezone:         user.Timezone,
		Language:         user.Language,
		IsActive:         user.IsActive,
		IsAdmin:          user.IsAdmin,
		EmailVerified:    user.EmailVerified,
		TwoFactorEnabled: user.TwoFactorEnabled,
		LastLogin:        user.LastLoginAt,
		CreatedAt:        user.CreatedAt,
		UpdatedAt:        user.UpdatedAt,
	}
}

func UserResponsesFromEntities(users []entity.User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, UserResponseFromEntity(&users[i]))
	}
	return responses
}

type UserDetailResponse struct {
	UserResponse
	ProjectsCount int64 `json:"projects_count"`
}

type UserListResponse struct {
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
	Users []UserResponse `json:"users"`
}

type UserSearchResponse struct {
	Total   int            `json:"total"`
	Results []UserResponse `json:"results"`
}

type UserStatsResponse struct {
	TotalUsers       int64 `json:"total_users"`
	ActiveUsers      int64 `json:"active_users"`
	InactiveUsers    int64 `json:"inactive_users"`
	VerifiedEmails   int64 `json:"verified_emails"`
	TwoFactorEnabled int64 `json:"two_factor_enabled"`
}

func UserStatsResponseFrom(stats *repository.UserStats) UserStatsResponse {
	return UserStatsResponse{
		TotalUsers:       stats.Total,
		ActiveUsers:      stats.Active,
		InactiveUsers:    stats.Inactive,
		VerifiedEmails:   stats.VerifiedEmails,
		TwoFactorEnabled: stats.TwoFactorEnabled,
	}
}

type UpdateUserRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url"`
	Bio       *string `json:"bio" validate:"omitempty,max=500"`
	Phone     *string `json:"phone" validate:"omitempty,max=20"`
	Country   *string `json:"country" validate:"omitempty,max=100"`
	Timezone  *string `json:"timezone" validate:"omitempty,max=50"`
	Language  *string `json:"language" validate:"omitempty,max=10"`
}

type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password" validate:"required,min=8"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=100"`
	ConfirmPassword string `json:"confirm_password" validate:"required,min=8,max=100"`
}

type DeactivateRequest struct {
	Password string `json:"password" validate:"required"`
}

type DeleteAccountRequest struct {
	Password     string `json:"password" validate:"required"`
	Confirmation string `json:"confirmation" validate:"required"`
}

type UpdatePreferencesRequest struct {
	EmailNotifications *bool   `json:"email_notifications"`
	PushNotifications  *bool   `json:"push_notifications"`
	MarketingEmails    *bool   `json:"marketing_emails"`
	Theme              *string `json:"theme" validate:"omitempty,oneof=light dark system"`
	Language           *string `json:"language" validate:"omitempty,max=10"`
}

type ActivityResponse struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	IPAddress *string         `json:"ip_address"`
	UserAgent *string         `json:"user_agent"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func ActivityResponsesFromEntities(logs []entity.SecurityLog) []ActivityResponse {
	responses := make([]ActivityResponse, 0, len(logs))
	for _, log := range logs {
		item := ActivityResponse{
			ID:        log.ID.String(),
			Action:    string(log.Action),
			IPAddress: log.IPAddress,
			UserAgent: log.UserAgent,
			CreatedAt: log.CreatedAt,
		}
		if len(log.Metadata) > 0 {
			item.Metadata = json.RawMessage(log.Metadata)
		}
		responses = append(responses, item)
	}
	return responses
}
