package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

// OAuthProfile is what the find-or-create step needs from a provider.
type OAuthProfile struct {
	ProviderID    string
	Email         string
	Name          string
	AvatarURL     *string
	EmailVerified bool
}

type OAuthProvider interface {
	Name() string
	DisplayName() string
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (string, error)
	FetchProfile(ctx context.Context, accessToken string) (*OAuthProfile, error)
}

type OAuthClientConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	HTTPClient   *http.Client
}

func (c OAuthClientConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

func (c OAuthClientConfig) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

type GitHubProvider struct {
	Config     *oauth2.Config
	APIBaseURL string
	HTTPClient *http.Client
}

func NewGitHubProvider(cfg OAuthClientConfig) *GitHubProvider {
	return &GitHubProvider{
		Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     github.Endpoint,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"user:email"},
		},
		APIBaseURL: "https://api.github.com",
		HTTPClient: cfg.httpClient(),
	}
}

func (p *GitHubProvider) Name() string        { return "github" }
func (p *GitHubProvider) DisplayName() string { return "GitHub" }

func (p *GitHubProvider) AuthCodeURL(state string) string {
	return p.Config.AuthCodeURL(state)
}

func (p *GitHubProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	return exchangeCode(ctx, p.Config, p.HTTPClient, code)
}

func (p *GitHubProvider) FetchProfile(ctx context.Context, accessToken string) (*OAuthProfile, error) {
	var user struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := getJSON(ctx, p.HTTPClient, p.APIBaseURL+"/user", accessToken, &user); err != nil {
		return nil, err
	}

	var emails []githubEmail
	if err := getJSON(ctx, p.HTTPClient, p.APIBaseURL+"/user/emails", accessToken, &emails); err != nil {
		emails = nil
	}

	name := user.Name
	if strings.TrimSpace(name) == "" {
		name = user.Login
	}
	return &OAuthProfile{
		ProviderID:    strconv.FormatInt(user.ID, 10),
		Email:         resolveGitHubEmail(emails, user.Email),
		Name:          name,
		AvatarURL:     optional(user.AvatarURL),
		EmailVerified: true,
	}, nil
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// resolveGitHubEmail prefers the primary address, then the first verified
// one, then whatever is listed first, then the public profile email.
func resolveGitHubEmail(emails []githubEmail, profileEmail string) string {
	for _, e := range emails {
		if e.Primary && e.Email != "" {
			return e.Email
		}
	}
	for _, e := range emails {
		if e.Verified && e.Email != "" {
			return e.Email
		}
	}
	if len(emails) > 0 && emails[0].Email != "" {
		return emails[0].Email
	}
	return profileEmail
}

type GoogleProvider struct {
	Config      *oauth2.Config
	UserInfoURL string
	HTTPClient  *http.Client
}

func NewGoogleProvider(cfg OAuthClientConfig) *GoogleProvider {
	return &GoogleProvider{
		Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
		},
		UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		HTTPClient:  cfg.httpClient(),
	}
}

func (p *GoogleProvider) Name() string        { return "google" }
func (p *GoogleProvider) DisplayName() string { return "Google" }

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.Config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (p *GoogleProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	return exchangeCode(ctx, p.Config, p.HTTPClient, code)
}

func (p *GoogleProvider) FetchProfile(ctx context.Context, accessToken string) (*OAuthProfile, error) {
	var info struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := getJSON(ctx, p.HTTPClient, p.UserInfoURL, accessToken, &info); err != nil {
		return nil, err
	}
	return &OAuthProfile{
		ProviderID:    info.ID,
		Email:         info.Email,
		Name:          info.Name,
		AvatarURL:     optional(info.Picture),
		EmailVerified: info.VerifiedEmail,
	}, nil
}

func exchangeCode(ctx context.Context, config *oauth2.Config, client *http.Client, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
	token, err := config.Exchange(ctx, code)
	if err != nil {
		return "", err
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token response without access_token")
	}
	return token.AccessToken, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, accessToken string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

func optional(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}
