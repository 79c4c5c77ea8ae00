package pages

import (
	"net/http"

	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
	"github.com/google/uuid"

	"github.com/evmarket/carbonview"
	"github.com/evmarket/carbonview/api"
)

// AdminController serves the platform-administrator surface: user
// moderation, dispute resolution, and the platform report.
type AdminController struct {
	Controller
	API *api.Client
}

func RegisterAdminRoutes[T any](app router.Router[T], apiClient *api.Client, manager *carbonview.Manager, logger carbonview.Logger) {
	c := &AdminController{
		Controller: newController(manager, logger),
		API:        apiClient,
	}

	app.Get("/admin/dashboard", c.Dashboard).SetName("admin.dashboard")
	app.Get("/admin/users", c.Users).SetName("admin.users")
	app.Post("/admin/users/status", c.UserStatus).SetName("admin.users.status")
	app.Get("/admin/disputes", c.Disputes).SetName("admin.disputes")
	app.Post("/admin/disputes/:id/resolve", c.DisputeResolve).SetName("admin.disputes.resolve")
	app.Get("/admin/reports", c.Reports).SetName("admin.reports")
}

func (c *AdminController) Dashboard(ctx router.Context) error {
	data := router.ViewContext{}

	report, err := c.API.Report(ctx.Context())
	if msg := c.fetchBanner("platform report", err); msg != "" {
		data["banner"] = msg
	}

	data["report"] = report
	return c.render(ctx, "admin/dashboard", data)
}

func (c *AdminController) Users(ctx router.Context) error {
	data := router.ViewContext{}
	users, err := c.API.Users(ctx.Context())
	if msg := c.fetchBanner("admin users", err); msg != "" {
		data["banner"] = msg
	}
	data["users"] = users
	data["statuses"] = []string{
		carbonview.UserStatusActive,
		carbonview.UserStatusSuspended,
	}
	return c.render(ctx, "admin/users", data)
}

// UserStatusPayload activates or suspends an account.
type UserStatusPayload struct {
	UserID string `form:"user_id" json:"user_id"`
	Status string `form:"status" json:"status"`
}

func (c *AdminController) UserStatus(ctx router.Context) error {
	payload := new(UserStatusPayload)
	if err := ctx.Bind(payload); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": "Could not read the form.",
		}).Redirect("/admin/users", http.StatusSeeOther)
	}

	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": "Unknown user.",
		}).Redirect("/admin/users", http.StatusSeeOther)
	}

	if payload.Status != carbonview.UserStatusActive && payload.Status != carbonview.UserStatusSuspended {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": "Unknown status.",
		}).Redirect("/admin/users", http.StatusSeeOther)
	}

	if err := c.API.SetUserStatus(ctx.Context(), userID, payload.Status); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": c.fetchBanner("set user status", err),
		}).Redirect("/admin/users", http.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "User updated.",
	}).Redirect("/admin/users", http.StatusSeeOther)
}

func (c *AdminController) Disputes(ctx router.Context) error {
	data := router.ViewContext{}
	disputes, err := c.API.Disputes(ctx.Context())
	if msg := c.fetchBanner("admin disputes", err); msg != "" {
		data["banner"] = msg
	}
	data["disputes"] = disputes
	return c.render(ctx, "admin/disputes", data)
}

// DisputeResolvePayload closes a dispute with a verdict.
type DisputeResolvePayload struct {
	Resolution string `form:"resolution" json:"resolution"`
	Uphold     string `form:"uphold" json:"uphold"`
}

func (c *AdminController) DisputeResolve(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": "Unknown dispute.",
		}).Redirect("/admin/disputes", http.StatusSeeOther)
	}

	payload := new(DisputeResolvePayload)
	if err := ctx.Bind(payload); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": "Could not read the form.",
		}).Redirect("/admin/disputes", http.StatusSeeOther)
	}

	if payload.Resolution == "" {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": "A resolution note is required.",
		}).Redirect("/admin/disputes", http.StatusSeeOther)
	}

	if _, err := c.API.ResolveDispute(ctx.Context(), id, payload.Resolution, payload.Uphold == "true"); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": c.fetchBanner("resolve dispute", err),
		}).Redirect("/admin/disputes", http.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Dispute resolved.",
	}).Redirect("/admin/disputes", http.StatusSeeOther)
}

func (c *AdminController) Reports(ctx router.Context) error {
	data := router.ViewContext{}
	report, err := c.API.Report(ctx.Context())
	if msg := c.fetchBanner("platform report", err); msg != "" {
		data["banner"] = msg
	}
	data["report"] = report
	return c.render(ctx, "admin/reports", data)
}
