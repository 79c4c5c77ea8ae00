package pages

import (
	"net/http"
	"strconv"

	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
	"github.com/google/uuid"

	"github.com/evmarket/carbonview"
	"github.com/evmarket/carbonview/api"
)

// BuyerController serves the credit-buyer surface: marketplace browsing,
// purchases, and dispute filing.
type BuyerController struct {
	Controller
	API *api.Client
}

func RegisterBuyerRoutes[T any](app router.Router[T], apiClient *api.Client, manager *carbonview.Manager, logger carbonview.Logger) {
	c := &BuyerController{
		Controller: newController(manager, logger),
		API:        apiClient,
	}

	app.Get("/buyer/dashboard", c.Dashboard).SetName("buyer.dashboard")
	app.Get("/buyer/marketplace", c.Marketplace).SetName("buyer.marketplace")
	app.Post("/buyer/marketplace/purchase", c.Purchase).SetName("buyer.purchase")
	app.Get("/buyer/purchases", c.Purchases).SetName("buyer.purchases")
	app.Post("/buyer/purchases/dispute", c.DisputeOpen).SetName("buyer.dispute")
}

func (c *BuyerController) Dashboard(ctx router.Context) error {
	data := router.ViewContext{}

	wallet, err := c.API.Wallet(ctx.Context())
	if msg := c.fetchBanner("buyer wallet", err); msg != "" {
		data["banner"] = msg
	}

	txs, err := c.API.Transactions(ctx.Context())
	if msg := c.fetchBanner("buyer transactions", err); msg != "" && data["banner"] == nil {
		data["banner"] = msg
	}

	var totalKg float64
	for _, tx := range txs {
		totalKg += tx.AmountKg
	}

	data["wallet"] = wallet
	data["transactions"] = txs
	data["offset_kg"] = totalKg
	return c.render(ctx, "buyer/dashboard", data)
}

func (c *BuyerController) Marketplace(ctx router.Context) error {
	data := router.ViewContext{}

	filter := api.ListingFilter{Status: api.ListingStatusOpen}
	if raw := ctx.Query("max_price", ""); raw != "" {
		if usd, err := strconv.ParseFloat(raw, 64); err == nil && usd > 0 {
			filter.MaxPriceCents = int64(usd * 100)
		}
	}
	if raw := ctx.Query("min_kg", ""); raw != "" {
		if kg, err := strconv.ParseFloat(raw, 64); err == nil && kg > 0 {
			filter.MinAmountKg = kg
		}
	}

	listings, err := c.API.Listings(ctx.Context(), filter)
	if msg := c.fetchBanner("marketplace listings", err); msg != "" {
		data["banner"] = msg
	}

	data["listings"] = listings
	data["filter"] = filter
	return c.render(ctx, "buyer/marketplace", data)
}

func (c *BuyerController) Purchase(ctx router.Context) error {
	listingID, err := uuid.Parse(ctx.Query("listing_id", ""))
	if err != nil {
		var payload struct {
			ListingID string `form:"listing_id" json:"listing_id"`
		}
		if bindErr := ctx.Bind(&payload); bindErr == nil {
			listingID, err = uuid.Parse(payload.ListingID)
		}
	}
	if err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": "Unknown listing.",
		}).Redirect("/buyer/marketplace", http.StatusSeeOther)
	}

	if _, err := c.API.Purchase(ctx.Context(), listingID); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": c.fetchBanner("purchase", err),
		}).Redirect("/buyer/marketplace", http.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Purchase complete. The credit is in your wallet.",
	}).Redirect("/buyer/purchases", http.StatusSeeOther)
}

func (c *BuyerController) Purchases(ctx router.Context) error {
	data := router.ViewContext{}
	txs, err := c.API.Transactions(ctx.Context())
	if msg := c.fetchBanner("buyer purchases", err); msg != "" {
		data["banner"] = msg
	}
	data["transactions"] = txs
	return c.render(ctx, "buyer/purchases", data)
}

// DisputeOpenPayload files a complaint against a transaction.
type DisputeOpenPayload struct {
	TransactionID string `form:"transaction_id" json:"transaction_id"`
	Reason        string `form:"reason" json:"reason"`
}

func (c *BuyerController) DisputeOpen(ctx router.Context) error {
	payload := new(DisputeOpenPayload)
	if err := ctx.Bind(payload); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": "Could not read the dispute form.",
		}).Redirect("/buyer/purchases", http.StatusSeeOther)
	}

	txID, err := uuid.Parse(payload.TransactionID)
	if err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": "Unknown transaction.",
		}).Redirect("/buyer/purchases", http.StatusSeeOther)
	}

	if payload.Reason == "" {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": "A dispute needs a reason.",
		}).Redirect("/buyer/purchases", http.StatusSeeOther)
	}

	if _, err := c.API.OpenDispute(ctx.Context(), txID, payload.Reason); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": c.fetchBanner("open dispute", err),
		}).Redirect("/buyer/purchases", http.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Dispute filed. An administrator will review it.",
	}).Redirect("/buyer/purchases", http.StatusSeeOther)
}
