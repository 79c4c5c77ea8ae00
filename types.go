package carbonview

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// TokenStore keeps the bearer credential, the refresh token, and a cached
// copy of the signed-in user's profile across restarts. Absence is reported
// as empty values, never as an error; errors mean the backing store itself
// failed.
type TokenStore interface {
	AccessToken(ctx context.Context) (string, error)
	SetAccessToken(ctx context.Context, token string) error
	RefreshToken(ctx context.Context) (string, error)
	SetRefreshToken(ctx context.Context, token string) error
	Profile(ctx context.Context) (*User, error)
	SetProfile(ctx context.Context, user *User) error
	Clear(ctx context.Context) error
}

// SessionAPI is the slice of the platform client the session Manager needs.
type SessionAPI interface {
	Login(ctx context.Context, email, password string) (*User, error)
	Me(ctx context.Context) (*User, error)
	Logout(ctx context.Context) error
}

// Config holds console options
type Config interface {
	GetListenAddr() string
	GetPlatformURL() string
	GetStoreDSN() string
	GetLoginPath() string
	GetRejectedRouteKey() string
}

// DefaultLogger returns the stdout fallback logger used when no logger is
// provided.
func DefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] CONSOLE "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] CONSOLE "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] CONSOLE "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] CONSOLE "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
