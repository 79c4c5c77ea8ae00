// Package pages holds the console's role screens. Every handler fetches
// from the platform through the typed API client and renders a django
// view; a platform fetch failure degrades to an inline banner, it never
// takes the page down.
package pages

import (
	"net/http"

	"github.com/goliatone/go-router"

	"github.com/evmarket/carbonview"
)

type Controller struct {
	Logger  carbonview.Logger
	Manager *carbonview.Manager
}

func newController(manager *carbonview.Manager, logger carbonview.Logger) Controller {
	if logger == nil {
		logger = carbonview.DefaultLogger()
	}
	return Controller{Logger: logger, Manager: manager}
}

func (c Controller) render(ctx router.Context, view string, data router.ViewContext) error {
	return ctx.Render(view, carbonview.MergeTemplateData(c.Manager, data))
}

// fetchBanner maps a platform error to the message shown above the page
// content. Auth errors are left to the guard; everything else gets a
// human sentence.
func (c Controller) fetchBanner(op string, err error) string {
	if err == nil {
		return ""
	}
	c.Logger.Error("%s: %v", op, err)
	if carbonview.IsNetworkError(err) {
		return "The marketplace platform is unreachable. Data shown may be incomplete."
	}
	return carbonview.UserMessage(err)
}

// HomeController renders the public landing page.
type HomeController struct {
	Controller
}

// RegisterHomeRoutes mounts the landing page and the session-pending and
// forbidden screens the guard falls back to.
func RegisterHomeRoutes[T any](app router.Router[T], manager *carbonview.Manager, logger carbonview.Logger) {
	c := &HomeController{newController(manager, logger)}

	app.Get("/", c.Landing).SetName("home.get")
	app.Get("/forbidden", c.Forbidden).SetName("forbidden.get")
}

func (c *HomeController) Landing(ctx router.Context) error {
	sess := c.Manager.Current()
	if sess.Authenticated() {
		return ctx.Redirect(sess.User.Role.HomePath(), http.StatusSeeOther)
	}
	return c.render(ctx, "home", router.ViewContext{})
}

func (c *HomeController) Forbidden(ctx router.Context) error {
	return ctx.Status(http.StatusForbidden).Render("errors/403", router.ViewContext{})
}
