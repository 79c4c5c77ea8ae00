package pages

import (
	"net/http"

	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
	"github.com/google/uuid"

	"github.com/evmarket/carbonview"
	"github.com/evmarket/carbonview/api"
)

// CVAController serves the carbon-verification-agency surface: the
// journey review queue and individual verdicts.
type CVAController struct {
	Controller
	API *api.Client
}

func RegisterCVARoutes[T any](app router.Router[T], apiClient *api.Client, manager *carbonview.Manager, logger carbonview.Logger) {
	c := &CVAController{
		Controller: newController(manager, logger),
		API:        apiClient,
	}

	app.Get("/cva/dashboard", c.Dashboard).SetName("cva.dashboard")
	app.Get("/cva/queue", c.Queue).SetName("cva.queue")
	app.Get("/cva/review/:id", c.ReviewShow).SetName("cva.review.get")
	app.Post("/cva/review/:id", c.ReviewSubmit).SetName("cva.review.post")
}

func (c *CVAController) Dashboard(ctx router.Context) error {
	data := router.ViewContext{}

	queue, err := c.API.VerificationQueue(ctx.Context())
	if msg := c.fetchBanner("verification queue", err); msg != "" {
		data["banner"] = msg
	}

	data["queue_size"] = len(queue)
	data["queue"] = latestJourneys(queue, 5)
	return c.render(ctx, "cva/dashboard", data)
}

func (c *CVAController) Queue(ctx router.Context) error {
	data := router.ViewContext{}
	queue, err := c.API.VerificationQueue(ctx.Context())
	if msg := c.fetchBanner("verification queue", err); msg != "" {
		data["banner"] = msg
	}
	data["queue"] = queue
	return c.render(ctx, "cva/queue", data)
}

func (c *CVAController) ReviewShow(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": "Unknown journey.",
		}).Redirect("/cva/queue", http.StatusSeeOther)
	}

	journey, err := c.API.Journey(ctx.Context(), id)
	if err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": c.fetchBanner("load journey", err),
		}).Redirect("/cva/queue", http.StatusSeeOther)
	}

	return c.render(ctx, "cva/review", router.ViewContext{
		"journey": journey,
	})
}

// ReviewPayload is the verdict form.
type ReviewPayload struct {
	Verdict string `form:"verdict" json:"verdict"`
	Note    string `form:"note" json:"note"`
}

func (c *CVAController) ReviewSubmit(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": "Unknown journey.",
		}).Redirect("/cva/queue", http.StatusSeeOther)
	}

	payload := new(ReviewPayload)
	if err := ctx.Bind(payload); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": "Could not read the review form.",
		}).Redirect("/cva/queue", http.StatusSeeOther)
	}

	approve := payload.Verdict == "approve"
	if !approve && payload.Note == "" {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": "A rejection needs a note for the owner.",
		}).Redirect("/cva/review/"+id.String(), http.StatusSeeOther)
	}

	if _, err := c.API.ReviewJourney(ctx.Context(), id, api.ReviewInput{
		Approve: approve,
		Note:    payload.Note,
	}); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": c.fetchBanner("review journey", err),
		}).Redirect("/cva/queue", http.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Review recorded.",
	}).Redirect("/cva/queue", http.StatusSeeOther)
}
