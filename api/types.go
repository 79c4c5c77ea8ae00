package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/evmarket/carbonview"
)

// JourneyStatus tracks a journey through verification
type JourneyStatus = string

const (
	JourneyStatusSubmitted JourneyStatus = "SUBMITTED"
	JourneyStatusApproved  JourneyStatus = "APPROVED"
	JourneyStatusRejected  JourneyStatus = "REJECTED"
)

// CreditStatus tracks a carbon credit from generation to sale
type CreditStatus = string

const (
	CreditStatusPending  CreditStatus = "PENDING"
	CreditStatusVerified CreditStatus = "VERIFIED"
	CreditStatusListed   CreditStatus = "LISTED"
	CreditStatusSold     CreditStatus = "SOLD"
	CreditStatusRejected CreditStatus = "REJECTED"
)

// ListingStatus on the marketplace
type ListingStatus = string

const (
	ListingStatusOpen      ListingStatus = "OPEN"
	ListingStatusSold      ListingStatus = "SOLD"
	ListingStatusWithdrawn ListingStatus = "WITHDRAWN"
)

// DisputeStatus on a transaction
type DisputeStatus = string

const (
	DisputeStatusOpen     DisputeStatus = "OPEN"
	DisputeStatusResolved DisputeStatus = "RESOLVED"
	DisputeStatusRejected DisputeStatus = "REJECTED"
)

// Journey is one recorded EV trip submitted for credit generation.
type Journey struct {
	ID         uuid.UUID     `json:"id"`
	OwnerID    uuid.UUID     `json:"owner_id"`
	VehicleID  string        `json:"vehicle_id"`
	DistanceKM float64       `json:"distance_km"`
	StartedAt  time.Time     `json:"started_at"`
	EndedAt    time.Time     `json:"ended_at"`
	CO2SavedKg float64       `json:"co2_saved_kg"`
	Status     JourneyStatus `json:"status"`
	ReviewNote string        `json:"review_note,omitempty"`
}

// Credit is a verified carbon credit derived from one or more journeys.
type Credit struct {
	ID        uuid.UUID    `json:"id"`
	OwnerID   uuid.UUID    `json:"owner_id"`
	JourneyID uuid.UUID    `json:"journey_id"`
	AmountKg  float64      `json:"amount_kg"`
	Status    CreditStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

// Listing is a credit offered for sale on the marketplace.
type Listing struct {
	ID         uuid.UUID     `json:"id"`
	CreditID   uuid.UUID     `json:"credit_id"`
	SellerID   uuid.UUID     `json:"seller_id"`
	SellerName string        `json:"seller_name,omitempty"`
	AmountKg   float64       `json:"amount_kg"`
	PriceCents int64         `json:"price_cents"`
	Status     ListingStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Transaction records a completed purchase.
type Transaction struct {
	ID         uuid.UUID `json:"id"`
	ListingID  uuid.UUID `json:"listing_id"`
	BuyerID    uuid.UUID `json:"buyer_id"`
	SellerID   uuid.UUID `json:"seller_id"`
	AmountKg   float64   `json:"amount_kg"`
	PriceCents int64     `json:"price_cents"`
	CreatedAt  time.Time `json:"created_at"`
}

// Wallet summarizes a user's balance and holdings.
type Wallet struct {
	UserID       uuid.UUID `json:"user_id"`
	BalanceCents int64     `json:"balance_cents"`
	CreditsKg    float64   `json:"credits_kg"`
	PendingKg    float64   `json:"pending_kg"`
}

// Dispute is a buyer or seller complaint about a transaction.
type Dispute struct {
	ID            uuid.UUID     `json:"id"`
	TransactionID uuid.UUID     `json:"transaction_id"`
	OpenedByID    uuid.UUID     `json:"opened_by_id"`
	Reason        string        `json:"reason"`
	Status        DisputeStatus `json:"status"`
	Resolution    string        `json:"resolution,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// PlatformReport is the admin roll-up.
type PlatformReport struct {
	TotalUsers      int       `json:"total_users"`
	TotalJourneys   int       `json:"total_journeys"`
	TotalCreditsKg  float64   `json:"total_credits_kg"`
	TotalSalesCents int64     `json:"total_sales_cents"`
	OpenDisputes    int       `json:"open_disputes"`
	PendingJourneys int       `json:"pending_journeys"`
	ActiveListings  int       `json:"active_listings"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// AdminUser is the moderation view of an account.
type AdminUser struct {
	carbonview.User
	JourneyCount int `json:"journey_count"`
	DisputeCount int `json:"dispute_count"`
}

// JourneyInput is the upload payload.
type JourneyInput struct {
	VehicleID  string    `json:"vehicle_id"`
	DistanceKM float64   `json:"distance_km"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	// ClientRef deduplicates retried uploads.
	ClientRef uuid.UUID `json:"client_ref"`
}

// ListingFilter narrows a marketplace browse.
type ListingFilter struct {
	MaxPriceCents int64   `json:"max_price_cents,omitempty"`
	MinAmountKg   float64 `json:"min_amount_kg,omitempty"`
	Status        string  `json:"status,omitempty"`
}

// ReviewInput is a CVA verdict on a journey.
type ReviewInput struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note,omitempty"`
}
