package mockapi

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

const tokenIssuer = "carbonview-mock-platform"

// Claims is the mock platform's JWT payload.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	// Refresh marks a token only good for /auth/refresh.
	Refresh bool `json:"refresh,omitempty"`
}

// TokenService mints and validates HS256 tokens for the mock platform.
type TokenService struct {
	signingKey []byte
	ttl        time.Duration
}

func NewTokenService(signingKey []byte, ttlHours int) *TokenService {
	if ttlHours <= 0 {
		ttlHours = 24
	}
	return &TokenService{
		signingKey: signingKey,
		ttl:        time.Duration(ttlHours) * time.Hour,
	}
}

func (ts *TokenService) Generate(user *User) (string, error) {
	return ts.sign(user, ts.ttl, false)
}

// GenerateRefresh mints the long-lived companion token.
func (ts *TokenService) GenerateRefresh(user *User) (string, error) {
	return ts.sign(user, ts.ttl*7, true)
}

func (ts *TokenService) sign(user *User, ttl time.Duration, refresh bool) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:   user.Email,
		Role:    user.Role,
		Refresh: refresh,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}
	return signed, nil
}

func (ts *TokenService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryAuth, "invalid token").
			WithCode(errors.CodeUnauthorized)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("could not decode token claims", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized)
	}
	return claims, nil
}
