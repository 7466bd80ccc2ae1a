package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
)

type ResendEmailSender struct {
	client     *resend.Client
	from       string
	appBaseURL string
	verifyPath string
	resetPath  string
}

// NewResendEmailSender returns nil when no API key is configured so callers
// can treat email as disabled.
func NewResendEmailSender(apiKey string, from string, appBaseURL string) *ResendEmailSender {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(from) == "" {
		return nil
	}
	return &ResendEmailSender{
		client:     resend.NewClient(apiKey),
		from:       from,
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
		verifyPath: "/verify-email",
		resetPath:  "/reset-password",
	}
}

func (s *ResendEmailSender) SendVerificationEmail(ctx context.Context, email string, token string) error {
	link := s.buildURL(s.verifyPath, token)
	html := fmt.Sprintf("<p>Welcome to Vividly! Confirm your email address:</p><p><a href=\"%s\">Verify Email</a></p>", link)
	text := fmt.Sprintf("Welcome to Vividly! Confirm your email address: %s", link)
	return s.send(ctx, email, "Verify your email", html, text)
}

func (s *ResendEmailSender) SendPasswordResetEmail(ctx context.Context, email string, token string) error {
	link := s.buildURL(s.resetPath, token)
	html := fmt.Sprintf("<p>Someone asked to reset your Vividly password.</p><p><a href=\"%s\">Reset Password</a></p>", link)
	text := fmt.Sprintf("Reset your Vividly password: %s", link)
	return s.send(ctx, email, "Reset your password", html, text)
}

func (s *ResendEmailSender) buildURL(path string, token string) string {
	if s.appBaseURL == "" {
		return token
	}
	return fmt.Sprintf("%s%s?token=%s", s.appBaseURL, path, token)
}

func (s *ResendEmailSender) send(ctx context.Context, to string, subject string, html string, text string) error {
	if s == nil || s.client == nil {
		return ErrEmailNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.client.Emails.Send(&resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
		Text:    text,
	})
	if err != nil {
		return fmt.Errorf("resend email: %w", err)
	}
	return nil
}
