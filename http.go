package carbonview

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-router"
)

// DefaultRejectedRouteKey names the cookie holding the path an anonymous
// visitor was bounced from, so login can send them back.
const DefaultRejectedRouteKey = "carbonview_rejected_route"

// RouteGuard decides, per request, whether to render the page, show a
// neutral placeholder, or redirect. It never inspects credentials itself;
// the session Manager's status is the only input, so raw auth errors stop
// at the client/manager boundary.
type RouteGuard struct {
	manager          *Manager
	Logger           Logger
	LoginPath        string
	RejectedRouteKey string
	// ExemptPaths are never guarded, chiefly the login and register screens
	// themselves so a redirect can't loop back into another redirect.
	ExemptPaths      []string
	PendingHandler   func(c router.Context) error
	ForbiddenHandler func(c router.Context) error
}

type RouteGuardOption func(*RouteGuard)

func WithGuardLogger(logger Logger) RouteGuardOption {
	return func(g *RouteGuard) {
		if logger != nil {
			g.Logger = logger
		}
	}
}

func WithPendingHandler(fn func(router.Context) error) RouteGuardOption {
	return func(g *RouteGuard) {
		if fn != nil {
			g.PendingHandler = fn
		}
	}
}

func WithForbiddenHandler(fn func(router.Context) error) RouteGuardOption {
	return func(g *RouteGuard) {
		if fn != nil {
			g.ForbiddenHandler = fn
		}
	}
}

func NewRouteGuard(manager *Manager, opts ...RouteGuardOption) *RouteGuard {
	g := &RouteGuard{
		manager:          manager,
		Logger:           defLogger{},
		LoginPath:        "/login",
		RejectedRouteKey: DefaultRejectedRouteKey,
		ExemptPaths:      []string{"/login", "/register", "/logout"},
	}

	g.PendingHandler = g.defaultPendingHandler
	g.ForbiddenHandler = g.defaultForbiddenHandler

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Middleware enforces the route table on every request:
//
//  1. pending session: placeholder, no redirect decision yet
//  2. unauthenticated: to login, preserving the requested path
//  3. wrong role: to the visitor's own home dashboard
//  4. match: render
//
// Public prefixes fall straight through.
func (g *RouteGuard) Middleware() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			path := c.Path()

			if g.exempt(path) {
				return next(c)
			}

			required, protected := RequiredRole(path)
			if !protected {
				return next(c)
			}

			sess := g.manager.Current()

			if sess.Status.Pending() {
				return g.PendingHandler(c)
			}

			if !sess.Authenticated() {
				return g.redirectToLogin(c)
			}

			if sess.User.Role != required {
				// Redirect without revealing whether the page exists.
				g.Logger.Info("cross-role access denied",
					"path", path,
					"role", sess.User.Role,
					"required", required,
				)
				if sess.User.Role.IsValid() {
					return c.Redirect(sess.User.Role.HomePath(), http.StatusSeeOther)
				}
				return g.ForbiddenHandler(c)
			}

			return next(c)
		}
	}
}

// SetRedirect remembers the rejected path so login can return the visitor.
func (g *RouteGuard) SetRedirect(c router.Context) {
	g.Logger.Info("setting redirect cookie", "key", g.RejectedRouteKey, "path", c.Path())

	c.Cookie(&router.Cookie{
		Name:     g.RejectedRouteKey,
		Value:    c.Path(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// GetRedirect pops the remembered return path, falling back to def.
func (g *RouteGuard) GetRedirect(c router.Context, def string) string {
	r := c.Cookies(g.RejectedRouteKey)
	if r == "" {
		return def
	}
	g.cookieDel(c, g.RejectedRouteKey)

	// Only ever bounce back to a local path.
	if !strings.HasPrefix(r, "/") || strings.HasPrefix(r, "//") {
		return def
	}
	return r
}

func (g *RouteGuard) redirectToLogin(c router.Context) error {
	g.SetRedirect(c)

	target := g.LoginPath + "?next=" + url.QueryEscape(c.Path())

	statusCode := http.StatusSeeOther
	if c.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}
	return c.Redirect(target, statusCode)
}

func (g *RouteGuard) exempt(path string) bool {
	for _, p := range g.ExemptPaths {
		if path == p {
			return true
		}
	}
	return false
}

func (g *RouteGuard) defaultPendingHandler(c router.Context) error {
	// Retry shortly: the session restore settles within one Me round-trip.
	c.SetHeader("Refresh", "1")
	return c.Render("pending", router.ViewContext{
		"title": "Signing you in",
	})
}

func (g *RouteGuard) defaultForbiddenHandler(c router.Context) error {
	return c.Status(http.StatusForbidden).Render("errors/403", router.ViewContext{
		"title": "Not allowed",
	})
}

func (g *RouteGuard) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}
