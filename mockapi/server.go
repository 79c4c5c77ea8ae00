// Package mockapi is a self-contained stand-in for the marketplace
// platform. The console points at it in development so every screen
// works without the real backend. It speaks the same wire contract:
// bearer tokens, camelCase token fields, snake_case records.
package mockapi

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/evmarket/carbonview"
)

type Server struct {
	db       *bun.DB
	users    Users
	journeys Journeys
	tokens   *TokenService
	logger   carbonview.Logger
	app      *fiber.App
}

type ServerOption func(*Server)

func WithServerLogger(logger carbonview.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewServer(db *bun.DB, signingKey []byte, tokenTTLHours int, opts ...ServerOption) *Server {
	s := &Server{
		db:       db,
		users:    NewUsersRepository(db),
		journeys: NewJourneysRepository(db),
		tokens:   NewTokenService(signingKey, tokenTTLHours),
		logger:   carbonview.DefaultLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "carbonview-mock-platform",
		DisableStartupMessage: true,
	})
	s.routes()

	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.logger.Info("mock platform listening", "addr", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) routes() {
	s.app.Post("/auth/login", s.login)
	s.app.Post("/auth/refresh", s.refresh)
	s.app.Post("/auth/register", s.register)

	authed := s.app.Group("", s.requireToken)
	authed.Get("/auth/me", s.me)
	authed.Post("/auth/logout", s.logout)

	authed.Get("/journeys", s.listJourneys)
	authed.Post("/journeys", s.createJourney)
	authed.Get("/journeys/:id", s.getJourney)
	authed.Get("/credits", s.listCredits)
	authed.Post("/credits/:id/listings", s.sellCredit)
	authed.Get("/wallet", s.wallet)
	authed.Get("/transactions", s.listTransactions)

	authed.Get("/listings", s.listListings)
	authed.Post("/listings/:id/purchase", s.purchase)
	authed.Post("/transactions/:id/disputes", s.openDispute)

	cva := authed.Group("/verification", s.requireRole(string(carbonview.RoleCVA)))
	cva.Get("/queue", s.verificationQueue)
	cva.Post("/journeys/:id", s.reviewJourney)

	admin := authed.Group("/admin", s.requireRole(string(carbonview.RoleAdmin)))
	admin.Get("/users", s.adminUsers)
	admin.Put("/users/:id/status", s.adminUserStatus)
	admin.Get("/disputes", s.adminDisputes)
	admin.Post("/disputes/:id/resolve", s.adminResolveDispute)
	admin.Get("/report", s.adminReport)
}

const localsClaims = "claims"

func (s *Server) requireToken(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, "Bearer ") {
		return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
	}

	claims, err := s.tokens.Validate(strings.TrimPrefix(header, "Bearer "))
	if err != nil || claims.Refresh {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
	}

	c.Locals(localsClaims, claims)
	return c.Next()
}

func (s *Server) requireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := s.claims(c)
		if claims == nil || claims.Role != role {
			return fiber.NewError(fiber.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}

func (s *Server) claims(c *fiber.Ctx) *Claims {
	claims, _ := c.Locals(localsClaims).(*Claims)
	return claims
}

func (s *Server) currentUser(c *fiber.Ctx) (*User, error) {
	claims := s.claims(c)
	if claims == nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "missing token")
	}

	user, err := s.users.GetByEmail(c.Context(), claims.Email)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "unknown account")
	}
	if user.Status != carbonview.UserStatusActive {
		return nil, fiber.NewError(fiber.StatusForbidden, "account is not active")
	}
	return user, nil
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPayload struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

func (s *Server) login(c *fiber.Ctx) error {
	payload := new(loginPayload)
	if err := c.BodyParser(payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}

	user, err := s.users.GetByEmail(c.Context(), payload.Email)
	if err != nil {
		// burn comparable time so a missing account is not distinguishable
		ComparePasswordAndHash(payload.Password, phantomHash)
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	if err := ComparePasswordAndHash(payload.Password, user.PasswordHash); err != nil {
		s.logger.Warn("failed login", "email", payload.Email)
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	if user.Status != carbonview.UserStatusActive {
		return fiber.NewError(fiber.StatusForbidden, "account is not active")
	}

	access, err := s.tokens.Generate(user)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not mint token")
	}
	refresh, err := s.tokens.GenerateRefresh(user)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not mint token")
	}

	return c.JSON(tokenPayload{AccessToken: access, RefreshToken: refresh})
}

type refreshPayload struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) refresh(c *fiber.Ctx) error {
	payload := new(refreshPayload)
	if err := c.BodyParser(payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}

	claims, err := s.tokens.Validate(payload.RefreshToken)
	if err != nil || !claims.Refresh {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid refresh token")
	}

	user, err := s.users.GetByEmail(c.Context(), claims.Email)
	if err != nil || user.Status != carbonview.UserStatusActive {
		return fiber.NewError(fiber.StatusUnauthorized, "account unavailable")
	}

	access, err := s.tokens.Generate(user)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not mint token")
	}
	return c.JSON(tokenPayload{AccessToken: access})
}

func (s *Server) me(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(user.Profile())
}

func (s *Server) logout(c *fiber.Ctx) error {
	claims := s.claims(c)
	return c.JSON(fiber.Map{
		"message": "signed out",
		"email":   claims.Email,
	})
}

type registerPayload struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone_number"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

func (s *Server) register(c *fiber.Ctx) error {
	payload := new(registerPayload)
	if err := c.BodyParser(payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}

	role, ok := carbonview.ParseRole(payload.Role)
	if !ok || (role != carbonview.RoleOwner && role != carbonview.RoleBuyer) {
		return fiber.NewError(fiber.StatusBadRequest, "role must be OWNER or BUYER")
	}
	if payload.Email == "" || payload.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email and password are required")
	}

	if _, err := s.users.GetByEmail(c.Context(), payload.Email); err == nil {
		return fiber.NewError(fiber.StatusConflict, "email already registered")
	}

	hash, err := HashPassword(payload.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid password")
	}

	user := &User{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(payload.Email)),
		FullName:     payload.FullName,
		Phone:        payload.Phone,
		Role:         string(role),
		Status:       carbonview.UserStatusActive,
		PasswordHash: hash,
	}

	ctx, cancel := context.WithTimeout(c.Context(), 10*time.Second)
	defer cancel()

	if _, err := s.users.Create(ctx, user); err != nil {
		if repository.IsRecordNotFound(err) {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create account")
		}
		return fiber.NewError(fiber.StatusConflict, "could not create account")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "account created",
	})
}

// phantomHash is a real bcrypt digest of a random string, only ever used
// to equalize login timing for unknown emails.
var phantomHash = func() string {
	h, _ := HashPassword("phantom-timing-password")
	return h
}()
