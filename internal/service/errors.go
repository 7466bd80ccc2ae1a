package service

import "errors"

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Failure is the error type returned by every service operation. Message is
// safe to show to clients; Err keeps the underlying cause for logs.
type Failure struct {
	Kind    Kind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func newFailure(kind Kind, message string) *Failure {
	return &Failure{Kind: kind, Message: message}
}

func internal(message string, err error) *Failure {
	return &Failure{Kind: KindInternal, Message: message, Err: err}
}

func validation(message string) *Failure {
	return newFailure(KindValidation, message)
}

// KindOf reports the failure kind of err. Errors that are not a *Failure
// count as internal.
func KindOf(err error) Kind {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Kind
	}
	return KindInternal
}

var (
	ErrPasswordMismatch       = newFailure(KindValidation, "passwords do not match")
	ErrEmailAlreadyRegistered = newFailure(KindValidation, "user with this email already exists")
	ErrIncorrectPassword      = newFailure(KindValidation, "password is incorrect")
	ErrInvalidConfirmation    = newFailure(KindValidation, `confirmation must be "DELETE"`)
	ErrEmailAlreadyVerified   = newFailure(KindValidation, "email already verified")
	ErrMFANotConfigured       = newFailure(KindValidation, "two-factor authentication is not configured")
	ErrMFAAlreadyEnabled      = newFailure(KindValidation, "two-factor authentication is already enabled")
	ErrInvalidState           = newFailure(KindValidation, "invalid state parameter")
	ErrInvalidExportFormat    = newFailure(KindValidation, "unsupported export format")
	ErrInvalidLanguage        = newFailure(KindValidation, "unsupported language")

	ErrInvalidCredentials  = newFailure(KindAuthentication, "invalid email or password")
	ErrInactiveAccount     = newFailure(KindAuthentication, "user account is inactive")
	ErrInvalidToken        = newFailure(KindAuthentication, "invalid or expired token")
	ErrInvalidRefreshToken = newFailure(KindAuthentication, "invalid refresh token")
	ErrUnknownSubject      = newFailure(KindAuthentication, "user not found")
	ErrInvalidMFACode      = newFailure(KindAuthentication, "invalid two-factor code")

	ErrAccountDisabled = newFailure(KindAuthorization, "user account is inactive")
	ErrForbidden       = newFailure(KindAuthorization, "not authorized to access this resource")

	ErrUserNotFound        = newFailure(KindNotFound, "user not found")
	ErrProjectNotFound     = newFailure(KindNotFound, "project not found")
	ErrUnknownProvider     = newFailure(KindNotFound, "unknown oauth provider")
	ErrVerificationExpired = newFailure(KindNotFound, "verification token not found or expired")

	ErrGeneratorUnavailable = newFailure(KindInternal, "code generation is not configured")
	ErrGenerationFailed     = newFailure(KindInternal, "error generating code")
	ErrEmailNotConfigured   = newFailure(KindInternal, "email sender not configured")
)
