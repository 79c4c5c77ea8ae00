package carbonview

import (
	"github.com/goliatone/go-errors"
)

const (
	textCodeInvalidCredentials = "INVALID_CREDENTIALS"
	textCodeNoCredential       = "NO_CREDENTIAL"
	textCodeCredentialRejected = "CREDENTIAL_REJECTED"
	textCodeRoleForbidden      = "ROLE_FORBIDDEN"
	textCodePlatformDown       = "PLATFORM_UNREACHABLE"
)

// ErrInvalidCredentials is returned when the platform rejects an email and
// password pair. Recoverable; shown inline on the login form.
var ErrInvalidCredentials = errors.New("invalid email or password", errors.CategoryAuth).
	WithTextCode(textCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrNoCredential is returned when an authenticated call is attempted with an
// empty token store.
var ErrNoCredential = errors.New("no stored credential", errors.CategoryAuth).
	WithTextCode(textCodeNoCredential).
	WithCode(errors.CodeUnauthorized)

// ErrCredentialRejected is returned when a stored credential is expired or
// otherwise refused by the platform. The store is cleared before this error
// surfaces.
var ErrCredentialRejected = errors.New("stored credential rejected by platform", errors.CategoryAuth).
	WithTextCode(textCodeCredentialRejected).
	WithCode(errors.CodeUnauthorized)

// ErrRoleForbidden is returned when an authenticated user requests a route
// group owned by a different role.
var ErrRoleForbidden = errors.New("role not allowed for this route", errors.CategoryAuthz).
	WithTextCode(textCodeRoleForbidden).
	WithCode(errors.CodeForbidden)

// NewNetworkError wraps a transport failure talking to the platform.
// Transient; surfaced as a banner, never auto-retried.
func NewNetworkError(err error, operation string) *errors.Error {
	return errors.Wrap(err, errors.CategoryOperation, "marketplace platform unreachable").
		WithTextCode(textCodePlatformDown).
		WithMetadata(map[string]any{"operation": operation})
}

// IsAuthenticationError reports whether err is a bad-credentials failure.
func IsAuthenticationError(err error) bool {
	return hasTextCode(err, textCodeInvalidCredentials)
}

// IsUnauthenticated reports whether err means the console holds no usable
// credential (absent, expired, or rejected).
func IsUnauthenticated(err error) bool {
	return hasTextCode(err, textCodeNoCredential) || hasTextCode(err, textCodeCredentialRejected)
}

// IsAuthorizationError reports whether err is a wrong-role rejection.
func IsAuthorizationError(err error) bool {
	return hasTextCode(err, textCodeRoleForbidden)
}

// IsNetworkError reports whether err is a transport failure reaching the
// platform.
func IsNetworkError(err error) bool {
	return hasTextCode(err, textCodePlatformDown)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

// UserMessage extracts a human-readable message from err, suitable for
// rendering in a form or banner.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.Message != "" {
		return richErr.Message
	}
	return err.Error()
}
