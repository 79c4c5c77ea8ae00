package pages

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
	"github.com/google/uuid"

	"github.com/evmarket/carbonview"
	"github.com/evmarket/carbonview/api"
)

// OwnerController serves the EV-owner surface: journeys, generated
// credits, and the wallet.
type OwnerController struct {
	Controller
	API *api.Client
}

func RegisterOwnerRoutes[T any](app router.Router[T], apiClient *api.Client, manager *carbonview.Manager, logger carbonview.Logger) {
	c := &OwnerController{
		Controller: newController(manager, logger),
		API:        apiClient,
	}

	app.Get("/owner/dashboard", c.Dashboard).SetName("owner.dashboard")
	app.Get("/owner/journeys", c.Journeys).SetName("owner.journeys")
	app.Post("/owner/journeys", c.JourneyCreate).SetName("owner.journeys.create")
	app.Get("/owner/credits", c.Credits).SetName("owner.credits")
	app.Post("/owner/credits/sell", c.CreditSell).SetName("owner.credits.sell")
	app.Get("/owner/wallet", c.Wallet).SetName("owner.wallet")
}

func (c *OwnerController) Dashboard(ctx router.Context) error {
	data := router.ViewContext{}

	journeys, err := c.API.Journeys(ctx.Context())
	if msg := c.fetchBanner("owner journeys", err); msg != "" {
		data["banner"] = msg
	}

	wallet, err := c.API.Wallet(ctx.Context())
	if msg := c.fetchBanner("owner wallet", err); msg != "" && data["banner"] == nil {
		data["banner"] = msg
	}

	var pending, approved int
	for _, j := range journeys {
		switch j.Status {
		case api.JourneyStatusSubmitted:
			pending++
		case api.JourneyStatusApproved:
			approved++
		}
	}

	data["journeys"] = latestJourneys(journeys, 5)
	data["pending_count"] = pending
	data["approved_count"] = approved
	data["wallet"] = wallet

	return c.render(ctx, "owner/dashboard", data)
}

func (c *OwnerController) Journeys(ctx router.Context) error {
	data := router.ViewContext{}
	journeys, err := c.API.Journeys(ctx.Context())
	if msg := c.fetchBanner("owner journeys", err); msg != "" {
		data["banner"] = msg
	}
	data["journeys"] = journeys
	return c.render(ctx, "owner/journeys", data)
}

// JourneyUploadPayload is the manual journey entry form.
type JourneyUploadPayload struct {
	VehicleID  string `form:"vehicle_id" json:"vehicle_id"`
	DistanceKM string `form:"distance_km" json:"distance_km"`
	StartedAt  string `form:"started_at" json:"started_at"`
	EndedAt    string `form:"ended_at" json:"ended_at"`
}

func (p JourneyUploadPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.VehicleID, validation.Required, validation.Length(1, 64)),
		validation.Field(&p.DistanceKM, validation.Required),
		validation.Field(&p.StartedAt, validation.Required, validation.Date("2006-01-02T15:04")),
		validation.Field(&p.EndedAt, validation.Required, validation.Date("2006-01-02T15:04")),
	)
}

func (c *OwnerController) JourneyCreate(ctx router.Context) error {
	payload := new(JourneyUploadPayload)

	if err := ctx.Bind(payload); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": "Could not read the journey form.",
		}).Redirect("/owner/journeys", http.StatusSeeOther)
	}

	if err := payload.Validate(); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": err.Error(),
		}).Redirect("/owner/journeys", http.StatusSeeOther)
	}

	msg, err := payload.toMessage()
	if err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": err.Error(),
		}).Redirect("/owner/journeys", http.StatusSeeOther)
	}

	handler := api.NewUploadJourneyHandler(c.API)
	if err := handler.Execute(ctx.Context(), msg); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": c.fetchBanner("journey upload", err),
		}).Redirect("/owner/journeys", http.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Journey submitted for verification.",
	}).Redirect("/owner/journeys", http.StatusSeeOther)
}

func (p JourneyUploadPayload) toMessage() (api.UploadJourneyMessage, error) {
	var msg api.UploadJourneyMessage

	km, err := strconv.ParseFloat(p.DistanceKM, 64)
	if err != nil || km <= 0 {
		return msg, fmt.Errorf("distance must be a positive number")
	}

	start, err := time.ParseInLocation("2006-01-02T15:04", p.StartedAt, time.Local)
	if err != nil {
		return msg, fmt.Errorf("invalid start time")
	}
	end, err := time.ParseInLocation("2006-01-02T15:04", p.EndedAt, time.Local)
	if err != nil {
		return msg, fmt.Errorf("invalid end time")
	}
	if !end.After(start) {
		return msg, fmt.Errorf("journey must end after it starts")
	}

	msg.VehicleID = p.VehicleID
	msg.DistanceKM = km
	msg.StartedAt = start
	msg.EndedAt = end
	msg.ClientRef = uuid.New()

	return msg, nil
}

func (c *OwnerController) Credits(ctx router.Context) error {
	data := router.ViewContext{}
	credits, err := c.API.Credits(ctx.Context())
	if msg := c.fetchBanner("owner credits", err); msg != "" {
		data["banner"] = msg
	}
	data["credits"] = credits
	return c.render(ctx, "owner/credits", data)
}

// CreditSellPayload lists a verified credit for sale.
type CreditSellPayload struct {
	CreditID string `form:"credit_id" json:"credit_id"`
	PriceUSD string `form:"price_usd" json:"price_usd"`
}

func (c *OwnerController) CreditSell(ctx router.Context) error {
	payload := new(CreditSellPayload)
	if err := ctx.Bind(payload); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": "Could not read the listing form.",
		}).Redirect("/owner/credits", http.StatusSeeOther)
	}

	creditID, err := uuid.Parse(payload.CreditID)
	if err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": "Unknown credit.",
		}).Redirect("/owner/credits", http.StatusSeeOther)
	}

	priceCents, err := parseUSDCents(payload.PriceUSD)
	if err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": err.Error(),
		}).Redirect("/owner/credits", http.StatusSeeOther)
	}

	if _, err := c.API.SellCredit(ctx.Context(), creditID, priceCents); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": c.fetchBanner("credit sell", err),
		}).Redirect("/owner/credits", http.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Credit listed on the marketplace.",
	}).Redirect("/owner/credits", http.StatusSeeOther)
}

func (c *OwnerController) Wallet(ctx router.Context) error {
	data := router.ViewContext{}

	wallet, err := c.API.Wallet(ctx.Context())
	if msg := c.fetchBanner("owner wallet", err); msg != "" {
		data["banner"] = msg
	}

	txs, err := c.API.Transactions(ctx.Context())
	if msg := c.fetchBanner("owner transactions", err); msg != "" && data["banner"] == nil {
		data["banner"] = msg
	}

	data["wallet"] = wallet
	data["transactions"] = txs
	return c.render(ctx, "owner/wallet", data)
}

func parseUSDCents(s string) (int64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("price must be a positive amount")
	}
	return int64(v*100 + 0.5), nil
}

func latestJourneys(journeys []api.Journey, n int) []api.Journey {
	if len(journeys) <= n {
		return journeys
	}
	return journeys[:n]
}
