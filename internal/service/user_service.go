package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"vividly/internal/entity"
	"vividly/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const deleteConfirmation = "DELETE"

type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	AvatarURL *string
	Bio       *string
	Phone     *string
	Country   *string
	Timezone  *string
	Language  *string
}

type ChangePasswordInput struct {
	OldPassword     string
	NewPassword     string
	ConfirmPassword string
	IPAddress       *string
}

type Preferences struct {
	EmailNotifications bool   `json:"email_notifications"`
	PushNotifications  bool   `json:"push_notifications"`
	MarketingEmails    bool   `json:"marketing_emails"`
	Theme              string `json:"theme"`
	Language           string `json:"language"`
}

type UpdatePreferencesInput struct {
	EmailNotifications *bool
	PushNotifications  *bool
	MarketingEmails    *bool
	Theme              *string
	Language           *string
}

func defaultPreferences() Preferences {
	return Preferences{
		EmailNotifications: true,
		PushNotifications:  true,
		Theme:              "dark",
		Language:           "en",
	}
}

type UserProfile struct {
	User          *entity.User
	ProjectsCount int64
}

type UserPage struct {
	Users []entity.User
	Total int64
	Page  int
	Limit int
}

type UserService struct {
	tx           repository.Transactor
	users        repository.UserRepository
	sessions     repository.SessionRepository
	projects     repository.ProjectRepository
	securityLogs repository.SecurityLogRepository
	passwordHash PasswordHasher
	logger       logrus.FieldLogger
}

func NewUserService(
	tx repository.Transactor,
	users repository.UserRepository,
	sessions repository.SessionRepository,
	projects repository.ProjectRepository,
	securityLogs repository.SecurityLogRepository,
	passwordHash PasswordHasher,
	logger logrus.FieldLogger,
) *UserService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &UserService{
		tx:           tx,
		users:        users,
		sessions:     sessions,
		projects:     projects,
		securityLogs: securityLogs,
		passwordHash: passwordHash,
		logger:       logger,
	}
}

func (s *UserService) Profile(ctx context.Context, userID uuid.UUID) (*UserProfile, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	_, total, err := s.projects.ListByUser(ctx, userID, 1, 0)
	if err != nil {
		return nil, internal("error loading profile", err)
	}
	return &UserProfile{User: user, ProjectsCount: total}, nil
}

func (s *UserService) GetUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, internal("error loading user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*entity.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	applyProfile(user, input)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, internal("error updating user", err)
	}
	s.logger.WithField("user_id", user.ID).Info("profile updated")
	return user, nil
}

// UpdateUser lets a caller edit their own profile; admins may edit anyone.
func (s *UserService) UpdateUser(ctx context.Context, caller *entity.User, targetID uuid.UUID, input UpdateProfileInput) (*entity.User, error) {
	if caller.ID != targetID && !caller.IsAdmin {
		return nil, ErrForbidden
	}
	return s.UpdateProfile(ctx, targetID, input)
}

func (s *UserService) ChangePassword(ctx context.Context, userID uuid.UUID, input ChangePasswordInput) error {
	if input.NewPassword != input.ConfirmPassword {
		return ErrPasswordMismatch
	}
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !s.passwordHash.Verify(user.PasswordHash, input.OldPassword) {
		return newFailure(KindValidation, "old password is incorrect")
	}

	hash, err := s.passwordHash.Hash(input.NewPassword)
	if err != nil {
		return internal("error changing password", err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return internal("error changing password", err)
	}

	recordSecurityEvent(ctx, s.securityLogs, s.logger, &user.ID, input.IPAddress, nil, entity.PasswordChanged, nil)
	s.logger.WithField("user_id", user.ID).Info("password changed")
	return nil
}

// Deactivate disables the caller's own account after a password check and
// revokes every session it holds.
func (s *UserService) Deactivate(ctx context.Context, userID uuid.UUID, password string, ipAddress *string) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !s.passwordHash.Verify(user.PasswordHash, password) {
		return ErrIncorrectPassword
	}
	if err := s.setActive(ctx, user.ID, false); err != nil {
		return internal("error deactivating user", err)
	}
	recordSecurityEvent(ctx, s.securityLogs, s.logger, &user.ID, ipAddress, nil, entity.AccountDeactivated, nil)
	s.logger.WithField("user_id", user.ID).Info("user deactivated")
	return nil
}

func (s *UserService) DeleteAccount(ctx context.Context, userID uuid.UUID, password string, confirmation string) error {
	if confirmation != deleteConfirmation {
		return ErrInvalidConfirmation
	}
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !s.passwordHash.Verify(user.PasswordHash, password) {
		return ErrIncorrectPassword
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		return internal("error deleting user", err)
	}
	s.logger.WithField("user_id", user.ID).Info("user deleted own account")
	return nil
}

func (s *UserService) ListUsers(ctx context.Context, skip int, limit int) (*UserPage, error) {
	if limit <= 0 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}
	users, total, err := s.users.List(ctx, limit, skip)
	if err != nil {
		return nil, internal("error listing users", err)
	}
	return &UserPage{Users: users, Total: total, Page: skip/limit + 1, Limit: limit}, nil
}

func (s *UserService) SearchUsers(ctx context.Context, query string, limit int) ([]entity.User, error) {
	if limit <= 0 {
		limit = 10
	}
	users, err := s.users.Search(ctx, query, limit)
	if err != nil {
		return nil, internal("error searching users", err)
	}
	return users, nil
}

func (s *UserService) Stats(ctx context.Context) (*repository.UserStats, error) {
	stats, err := s.users.Stats(ctx)
	if err != nil {
		return nil, internal("error loading user stats", err)
	}
	return stats, nil
}

// SetActive is the admin switch. Deactivation also revokes sessions.
func (s *UserService) SetActive(ctx context.Context, targetID uuid.UUID, active bool) error {
	if _, err := s.GetUser(ctx, targetID); err != nil {
		return err
	}
	if err := s.setActive(ctx, targetID, active); err != nil {
		return internal("error updating user status", err)
	}
	s.logger.WithFields(logrus.Fields{"user_id": targetID, "active": active}).Info("user status changed")
	return nil
}

func (s *UserService) DeleteUser(ctx context.Context, targetID uuid.UUID) error {
	if _, err := s.GetUser(ctx, targetID); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, targetID); err != nil {
		return internal("error deleting user", err)
	}
	s.logger.WithField("user_id", targetID).Info("user deleted")
	return nil
}

func (s *UserService) Activity(ctx context.Context, userID uuid.UUID, limit int) ([]entity.SecurityLog, error) {
	if limit <= 0 {
		limit = 50
	}
	logs, err := s.securityLogs.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, internal("error loading activity", err)
	}
	return logs, nil
}

// Preferences are kept under the "preferences" key of the user's metadata.
func (s *UserService) Preferences(ctx context.Context, userID uuid.UUID) (*Preferences, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	prefs := readPreferences(user.Metadata)
	return &prefs, nil
}

func (s *UserService) UpdatePreferences(ctx context.Context, userID uuid.UUID, input UpdatePreferencesInput) (*Preferences, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	prefs := readPreferences(user.Metadata)
	if input.EmailNotifications != nil {
		prefs.EmailNotifications = *input.EmailNotifications
	}
	if input.PushNotifications != nil {
		prefs.PushNotifications = *input.PushNotifications
	}
	if input.MarketingEmails != nil {
		prefs.MarketingEmails = *input.MarketingEmails
	}
	if input.Theme != nil {
		prefs.Theme = *input.Theme
	}
	if input.Language != nil {
		prefs.Language = *input.Language
	}

	encoded, err := toMap(prefs)
	if err != nil {
		return nil, internal("error updating preferences", err)
	}
	if user.Metadata == nil {
		user.Metadata = datatypes.JSONMap{}
	}
	user.Metadata["preferences"] = encoded
	if err := s.users.Update(ctx, user); err != nil {
		return nil, internal("error updating preferences", err)
	}
	return &prefs, nil
}

func (s *UserService) setActive(ctx context.Context, userID uuid.UUID, active bool) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.users.SetActive(ctx, userID, active); err != nil {
			return err
		}
		if active {
			return nil
		}
		_, err := s.sessions.RevokeAll(ctx, userID)
		return err
	})
}

func applyProfile(user *entity.User, input UpdateProfileInput) {
	if input.FirstName != nil {
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.AvatarURL != nil {
		user.AvatarURL = input.AvatarURL
	}
	if input.Bio != nil {
		user.Bio = input.Bio
	}
	if input.Phone != nil {
		user.Phone = input.Phone
	}
	if input.Country != nil {
		user.Country = input.Country
	}
	if input.Timezone != nil {
		user.Timezone = *input.Timezone
	}
	if input.Language != nil {
		user.Language = *input.Language
	}
}

func readPreferences(metadata datatypes.JSONMap) Preferences {
	prefs := defaultPreferences()
	raw, ok := metadata["preferences"]
	if !ok {
		return prefs
	}
	bytes, err := json.Marshal(raw)
	if err != nil {
		return prefs
	}
	if err := json.Unmarshal(bytes, &prefs); err != nil {
		return defaultPreferences()
	}
	return prefs
}

func toMap(value any) (map[string]any, error) {
	bytes, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(bytes, &out); err != nil {
		return nil, errors.New("preferences did not encode to an object")
	}
	return out, nil
}
