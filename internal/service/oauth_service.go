package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"vividly/internal/entity"
	"vividly/internal/metrics"
	"vividly/internal/repository"
	"vividly/internal/utils"

	"github.com/sirupsen/logrus"
)

type OAuthService struct {
	providers    map[string]OAuthProvider
	auth         *AuthService
	tx           repository.Transactor
	users        repository.UserRepository
	passwordHash PasswordHasher
	sessionTTL   time.Duration
	logger       logrus.FieldLogger
}

func NewOAuthService(
	auth *AuthService,
	tx repository.Transactor,
	users repository.UserRepository,
	passwordHash PasswordHasher,
	logger logrus.FieldLogger,
	providers ...OAuthProvider,
) *OAuthService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	registry := make(map[string]OAuthProvider, len(providers))
	for _, p := range providers {
		registry[p.Name()] = p
	}
	return &OAuthService{
		providers:    registry,
		auth:         auth,
		tx:           tx,
		users:        users,
		passwordHash: passwordHash,
		sessionTTL:   auth.oauthSessionTTL(),
		logger:       logger,
	}
}

func (s *OAuthService) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *OAuthService) AuthorizationURL(provider string, state string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", ErrUnknownProvider
	}
	return p.AuthCodeURL(state), nil
}

// Callback exchanges the code, resolves the profile and signs the user in.
// Find-or-create, session creation and the last-login stamp share one
// transaction.
func (s *OAuthService) Callback(ctx context.Context, provider string, code string, ipAddress *string, userAgent *string) (*OAuthResult, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}
	log := s.logger.WithField("provider", provider)

	accessToken, err := p.ExchangeCode(ctx, code)
	if err != nil {
		log.WithError(err).Warn("oauth code exchange failed")
		return nil, &Failure{Kind: KindValidation, Message: fmt.Sprintf("failed to get %s access token", p.DisplayName()), Err: err}
	}

	profile, err := p.FetchProfile(ctx, accessToken)
	if err != nil {
		log.WithError(err).Warn("oauth profile fetch failed")
		return nil, &Failure{Kind: KindValidation, Message: fmt.Sprintf("failed to get %s user info", p.DisplayName()), Err: err}
	}
	email := utils.NormalizeEmail(profile.Email)
	if email == "" {
		return nil, validation(fmt.Sprintf("could not retrieve email from %s", p.DisplayName()))
	}

	var result OAuthResult
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		user, created, err := s.findOrCreateUser(ctx, p, email, profile)
		if err != nil {
			return err
		}
		if !user.IsActive {
			return ErrInactiveAccount
		}
		tokens, err := s.auth.IssueSession(ctx, user, s.sessionTTL, ipAddress, userAgent)
		if err != nil {
			return err
		}
		result = OAuthResult{Tokens: tokens, User: user, Created: created}
		return nil
	})
	if errors.Is(err, ErrInactiveAccount) {
		return nil, ErrInactiveAccount
	}
	if err != nil {
		log.WithError(err).Error("oauth sign-in failed")
		return nil, internal(fmt.Sprintf("error during %s authentication", p.DisplayName()), err)
	}

	metrics.SessionsIssued.WithLabelValues(provider).Inc()
	s.auth.logSecurity(ctx, &result.User.ID, ipAddress, userAgent, entity.OAuthLogin, map[string]any{"provider": provider})
	log.WithFields(logrus.Fields{"user_id": result.User.ID, "created": result.Created}).Info("oauth login")
	return &result, nil
}

func (s *OAuthService) findOrCreateUser(ctx context.Context, p OAuthProvider, email string, profile *OAuthProfile) (*entity.User, bool, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}

	if user != nil {
		changed := linkProviderID(user, p.Name(), profile.ProviderID)
		if user.AvatarURL == nil && profile.AvatarURL != nil {
			user.AvatarURL = profile.AvatarURL
			changed = true
		}
		if changed {
			if err := s.users.Update(ctx, user); err != nil {
				return nil, false, err
			}
		}
		return user, false, nil
	}

	// The random password is hashed and discarded, so the account cannot be
	// used for password login until it goes through a reset.
	placeholder, err := utils.RandomString(32)
	if err != nil {
		return nil, false, err
	}
	hash, err := s.passwordHash.Hash(placeholder)
	if err != nil {
		return nil, false, err
	}

	first, last := utils.SplitName(profile.Name)
	if first == "" {
		first = p.DisplayName()
	}
	if last == "" {
		last = "User"
	}

	user = &entity.User{
		Email:         email,
		PasswordHash:  hash,
		FirstName:     first,
		LastName:      last,
		AvatarURL:     profile.AvatarURL,
		IsActive:      true,
		EmailVerified: profile.EmailVerified,
	}
	linkProviderID(user, p.Name(), profile.ProviderID)
	if err := s.users.Create(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func linkProviderID(user *entity.User, provider string, providerID string) bool {
	if providerID == "" {
		return false
	}
	id := providerID
	switch provider {
	case "github":
		if user.GitHubID == nil {
			user.GitHubID = &id
			return true
		}
	case "google":
		if user.GoogleID == nil {
			user.GoogleID = &id
			return true
		}
	}
	return false
}
