// Package api is the typed surface of the marketplace REST API the
// console talks to. It is a thin layer over a Transport; authorization
// and credential handling stay in the session client.
package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"
)

// Transport performs an authenticated round trip to the platform. The
// session client satisfies this; tests plug in fakes.
type Transport interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

// Client exposes the marketplace endpoints grouped by role surface.
type Client struct {
	t Transport
}

func NewClient(t Transport) *Client {
	if t == nil {
		panic("api: transport required")
	}
	return &Client{t: t}
}

// --- owner surface ---

func (c *Client) Journeys(ctx context.Context) ([]Journey, error) {
	var out []Journey
	if err := c.t.Do(ctx, "GET", "/journeys", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateJourney(ctx context.Context, in JourneyInput) (*Journey, error) {
	out := &Journey{}
	if err := c.t.Do(ctx, "POST", "/journeys", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Credits(ctx context.Context) ([]Credit, error) {
	var out []Credit
	if err := c.t.Do(ctx, "GET", "/credits", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SellCredit lists a verified credit on the marketplace.
func (c *Client) SellCredit(ctx context.Context, creditID uuid.UUID, priceCents int64) (*Listing, error) {
	payload := map[string]any{"price_cents": priceCents}
	out := &Listing{}
	path := fmt.Sprintf("/credits/%s/listings", creditID)
	if err := c.t.Do(ctx, "POST", path, payload, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Wallet(ctx context.Context) (*Wallet, error) {
	out := &Wallet{}
	if err := c.t.Do(ctx, "GET", "/wallet", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Transactions(ctx context.Context) ([]Transaction, error) {
	var out []Transaction
	if err := c.t.Do(ctx, "GET", "/transactions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- buyer surface ---

func (c *Client) Listings(ctx context.Context, filter ListingFilter) ([]Listing, error) {
	var out []Listing
	path := "/listings"
	if q := filter.encode(); q != "" {
		path += "?" + q
	}
	if err := c.t.Do(ctx, "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Purchase(ctx context.Context, listingID uuid.UUID) (*Transaction, error) {
	out := &Transaction{}
	path := fmt.Sprintf("/listings/%s/purchase", listingID)
	if err := c.t.Do(ctx, "POST", path, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) OpenDispute(ctx context.Context, transactionID uuid.UUID, reason string) (*Dispute, error) {
	payload := map[string]any{"reason": reason}
	out := &Dispute{}
	path := fmt.Sprintf("/transactions/%s/disputes", transactionID)
	if err := c.t.Do(ctx, "POST", path, payload, out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- cva surface ---

// VerificationQueue returns journeys awaiting review, oldest first.
func (c *Client) VerificationQueue(ctx context.Context) ([]Journey, error) {
	var out []Journey
	if err := c.t.Do(ctx, "GET", "/verification/queue", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Journey(ctx context.Context, id uuid.UUID) (*Journey, error) {
	out := &Journey{}
	if err := c.t.Do(ctx, "GET", fmt.Sprintf("/journeys/%s", id), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ReviewJourney(ctx context.Context, id uuid.UUID, in ReviewInput) (*Journey, error) {
	out := &Journey{}
	path := fmt.Sprintf("/verification/journeys/%s", id)
	if err := c.t.Do(ctx, "POST", path, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- admin surface ---

func (c *Client) Users(ctx context.Context) ([]AdminUser, error) {
	var out []AdminUser
	if err := c.t.Do(ctx, "GET", "/admin/users", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SetUserStatus(ctx context.Context, id uuid.UUID, status string) error {
	payload := map[string]any{"status": status}
	return c.t.Do(ctx, "PUT", fmt.Sprintf("/admin/users/%s/status", id), payload, nil)
}

func (c *Client) Disputes(ctx context.Context) ([]Dispute, error) {
	var out []Dispute
	if err := c.t.Do(ctx, "GET", "/admin/disputes", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ResolveDispute(ctx context.Context, id uuid.UUID, resolution string, uphold bool) (*Dispute, error) {
	payload := map[string]any{"resolution": resolution, "uphold": uphold}
	out := &Dispute{}
	path := fmt.Sprintf("/admin/disputes/%s/resolve", id)
	if err := c.t.Do(ctx, "POST", path, payload, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Report(ctx context.Context) (*PlatformReport, error) {
	out := &PlatformReport{}
	if err := c.t.Do(ctx, "GET", "/admin/report", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (f ListingFilter) encode() string {
	q := url.Values{}
	if f.MaxPriceCents > 0 {
		q.Set("max_price_cents", fmt.Sprintf("%d", f.MaxPriceCents))
	}
	if f.MinAmountKg > 0 {
		q.Set("min_amount_kg", fmt.Sprintf("%g", f.MinAmountKg))
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	return q.Encode()
}
