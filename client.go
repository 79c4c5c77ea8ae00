package carbonview

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// DefaultRequestTimeout bounds every platform call when the caller's context
// carries no deadline of its own.
var DefaultRequestTimeout = 15 * time.Second

// DefaultRefreshLeeway is how close to expiry the access token may get before
// an authenticated call exchanges it first.
var DefaultRefreshLeeway = 2 * time.Minute

// Client talks to the marketplace platform's auth endpoints and keeps the
// TokenStore in sync. It is the only writer of the store: a successful login
// fills it, a logout or any 401 clears it.
type Client struct {
	base          string
	http          *http.Client
	store         TokenStore
	logger        Logger
	refreshLeeway time.Duration
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(logger Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRefreshLeeway overrides how early the client refreshes an expiring token.
func WithRefreshLeeway(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.refreshLeeway = d
		}
	}
}

// NewClient returns a session client rooted at the platform base URL.
func NewClient(baseURL string, store TokenStore, opts ...ClientOption) *Client {
	c := &Client{
		base:          strings.TrimRight(baseURL, "/"),
		http:          &http.Client{Timeout: DefaultRequestTimeout},
		store:         store,
		logger:        defLogger{},
		refreshLeeway: DefaultRefreshLeeway,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Store exposes the client's token store, mainly so wiring code can hand the
// same store to the route guard and templates.
func (c *Client) Store() TokenStore {
	return c.store
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type logoutResponse struct {
	Message string `json:"message,omitempty"`
	Email   string `json:"email,omitempty"`
}

type apiMessage struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Login authenticates with the platform. The wire contract is token first,
// profile second: POST /auth/login yields the credential, GET /auth/me
// resolves who it belongs to. Callers see a single operation that returns
// the signed-in user. On failure nothing is written to the store.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var tokens tokenResponse
	status, err := c.call(ctx, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, "", &tokens)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden || status == http.StatusBadRequest {
		return nil, ErrInvalidCredentials
	}
	if status < 200 || status >= 300 {
		return nil, errors.New(fmt.Sprintf("login failed with platform status %d", status), errors.CategoryInternal).
			WithCode(errors.CodeInternal)
	}
	if tokens.AccessToken == "" {
		return nil, errors.New("platform returned an empty credential", errors.CategoryInternal).
			WithCode(errors.CodeInternal)
	}

	user, err := c.fetchProfile(ctx, tokens.AccessToken)
	if err != nil {
		// The token was never stored, so a failed profile fetch leaves the
		// store exactly as it was before the call.
		return nil, err
	}

	if err := c.store.SetAccessToken(ctx, tokens.AccessToken); err != nil {
		return nil, err
	}
	if tokens.RefreshToken != "" {
		if err := c.store.SetRefreshToken(ctx, tokens.RefreshToken); err != nil {
			return nil, err
		}
	}
	if err := c.store.SetProfile(ctx, user); err != nil {
		return nil, err
	}

	c.logger.Info("login succeeded", "email", user.Email, "role", user.Role)
	return user, nil
}

// Me resolves the profile behind the stored credential, refreshing the token
// first when it is close to expiry. A platform rejection clears the store
// before the error surfaces so the console self-heals from stale tokens.
func (c *Client) Me(ctx context.Context) (*User, error) {
	token, err := c.currentToken(ctx)
	if err != nil {
		return nil, err
	}

	user, err := c.fetchProfile(ctx, token)
	if err != nil {
		if IsUnauthenticated(err) {
			c.clearStore(ctx, "me")
		}
		return nil, err
	}

	if err := c.store.SetProfile(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Logout tells the platform the session is over, best effort, and clears the
// store unconditionally. A dead network cannot keep the console signed in.
func (c *Client) Logout(ctx context.Context) error {
	token, _ := c.store.AccessToken(ctx)
	if token != "" {
		var out logoutResponse
		if _, err := c.call(ctx, http.MethodPost, "/auth/logout", nil, token, &out); err != nil {
			c.logger.Warn("logout notification failed, clearing local credential anyway", "error", err)
		}
	}

	c.clearStore(ctx, "logout")
	return nil
}

// Refresh exchanges the stored refresh token for a new access token. Used
// opportunistically by authenticated calls, never on a timer.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	refresh, err := c.store.RefreshToken(ctx)
	if err != nil {
		return "", err
	}
	if refresh == "" {
		return "", ErrNoCredential
	}

	var tokens tokenResponse
	status, err := c.call(ctx, http.MethodPost, "/auth/refresh", refreshRequest{RefreshToken: refresh}, "", &tokens)
	if err != nil {
		return "", err
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		c.clearStore(ctx, "refresh")
		return "", ErrCredentialRejected
	}
	if status < 200 || status >= 300 || tokens.AccessToken == "" {
		return "", errors.New(fmt.Sprintf("refresh failed with platform status %d", status), errors.CategoryInternal).
			WithCode(errors.CodeInternal)
	}

	if err := c.store.SetAccessToken(ctx, tokens.AccessToken); err != nil {
		return "", err
	}
	if tokens.RefreshToken != "" {
		if err := c.store.SetRefreshToken(ctx, tokens.RefreshToken); err != nil {
			return "", err
		}
	}

	return tokens.AccessToken, nil
}

// Register creates an account on the platform. Only owner and buyer accounts
// self-register; auditors and admins are provisioned platform-side.
func (c *Client) Register(ctx context.Context, payload any) error {
	var out apiMessage
	status, err := c.call(ctx, http.MethodPost, "/auth/register", payload, "", &out)
	if err != nil {
		return err
	}
	if status == http.StatusConflict {
		return errors.New("an account with this email already exists", errors.CategoryConflict).
			WithCode(errors.CodeConflict)
	}
	if status < 200 || status >= 300 {
		msg := out.Message
		if msg == "" {
			msg = out.Error
		}
		if msg == "" {
			msg = fmt.Sprintf("registration failed with platform status %d", status)
		}
		return errors.New(msg, errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}
	return nil
}

// Do issues an authenticated JSON request against the platform and decodes
// the response into out. The domain API client (api package) is built on
// this, which keeps the 401 self-healing path in one place.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	token, err := c.currentToken(ctx)
	if err != nil {
		return err
	}

	status, err := c.call(ctx, method, path, body, token, out)
	if err != nil {
		return err
	}

	switch {
	case status == http.StatusUnauthorized:
		c.clearStore(ctx, method+" "+path)
		return ErrCredentialRejected
	case status == http.StatusForbidden:
		return ErrRoleForbidden
	case status == http.StatusNotFound:
		return errors.New("resource not found", errors.CategoryNotFound).
			WithCode(errors.CodeNotFound)
	case status < 200 || status >= 300:
		return errors.New(fmt.Sprintf("platform returned status %d for %s %s", status, method, path), errors.CategoryInternal).
			WithCode(errors.CodeInternal)
	}
	return nil
}

// currentToken returns the stored access token, exchanging it first when it
// is within the refresh leeway of its exp claim. The token stays opaque
// otherwise; the exp read is unverified and purely an optimization.
func (c *Client) currentToken(ctx context.Context) (string, error) {
	token, err := c.store.AccessToken(ctx)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", ErrNoCredential
	}

	if c.tokenExpiring(token) {
		if refreshed, err := c.Refresh(ctx); err == nil {
			return refreshed, nil
		} else if IsUnauthenticated(err) && !hasTextCode(err, textCodeNoCredential) {
			return "", err
		}
		// Refresh was best effort; let the platform be the judge of the
		// original token.
	}

	return token, nil
}

func (c *Client) tokenExpiring(token string) bool {
	claims := new(jwt.RegisteredClaims)
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return time.Until(claims.ExpiresAt.Time) < c.refreshLeeway
}

func (c *Client) fetchProfile(ctx context.Context, token string) (*User, error) {
	user := new(User)
	status, err := c.call(ctx, http.MethodGet, "/auth/me", nil, token, user)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return nil, ErrCredentialRejected
	}
	if status < 200 || status >= 300 {
		return nil, errors.New(fmt.Sprintf("profile fetch failed with platform status %d", status), errors.CategoryInternal).
			WithCode(errors.CodeInternal)
	}
	if _, ok := ParseRole(string(user.Role)); !ok {
		return nil, errors.New("platform returned a profile with an unknown role", errors.CategoryInternal).
			WithCode(errors.CodeInternal)
	}
	return user, nil
}

func (c *Client) clearStore(ctx context.Context, operation string) {
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Error("failed to clear credential store", "operation", operation, "error", err)
		return
	}
	c.logger.Debug("credential store cleared", "operation", operation)
}

// call issues one JSON request and decodes a 2xx (or error-shaped) body into
// out. It returns the HTTP status so callers own the semantic mapping, and
// only errors on transport or encoding failures.
func (c *Client) call(ctx context.Context, method, path string, body any, token string, out any) (int, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultRequestTimeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, errors.Wrap(err, errors.CategoryInternal, "failed to encode request body")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryInternal, "failed to build platform request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, NewNetworkError(err, method+" "+path)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return resp.StatusCode, errors.Wrap(err, errors.CategoryInternal, "failed to decode platform response")
		}
	}

	return resp.StatusCode, nil
}
