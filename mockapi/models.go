package mockapi

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/evmarket/carbonview"
)

// User is the mock platform's account record.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	FullName      string     `bun:"full_name,notnull" json:"full_name,omitempty"`
	Phone         string     `bun:"phone_number" json:"phone_number,omitempty"`
	Role          string     `bun:"user_role,notnull" json:"role,omitempty"`
	Status        string     `bun:"status,notnull" json:"status,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// Profile is the shape /auth/me hands back to the console.
func (u *User) Profile() *carbonview.User {
	return &carbonview.User{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      carbonview.Role(u.Role),
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
	}
}

// Journey is one submitted EV trip.
type Journey struct {
	bun.BaseModel `bun:"table:journeys,alias:jrn"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	OwnerID       uuid.UUID  `bun:"owner_id,notnull,type:uuid" json:"owner_id,omitempty"`
	VehicleID     string     `bun:"vehicle_id,notnull" json:"vehicle_id,omitempty"`
	ClientRef     uuid.UUID  `bun:"client_ref,nullzero,type:uuid,unique" json:"client_ref,omitempty"`
	DistanceKM    float64    `bun:"distance_km,notnull" json:"distance_km"`
	StartedAt     time.Time  `bun:"started_at,notnull" json:"started_at"`
	EndedAt       time.Time  `bun:"ended_at,notnull" json:"ended_at"`
	CO2SavedKg    float64    `bun:"co2_saved_kg" json:"co2_saved_kg"`
	Status        string     `bun:"status,notnull" json:"status,omitempty"`
	ReviewNote    string     `bun:"review_note" json:"review_note,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Credit is a verified credit derived from a journey.
type Credit struct {
	bun.BaseModel `bun:"table:credits,alias:crd"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	OwnerID       uuid.UUID  `bun:"owner_id,notnull,type:uuid" json:"owner_id,omitempty"`
	JourneyID     uuid.UUID  `bun:"journey_id,notnull,type:uuid" json:"journey_id,omitempty"`
	AmountKg      float64    `bun:"amount_kg,notnull" json:"amount_kg"`
	Status        string     `bun:"status,notnull" json:"status,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Listing is a credit offered for sale.
type Listing struct {
	bun.BaseModel `bun:"table:listings,alias:lst"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	CreditID      uuid.UUID  `bun:"credit_id,notnull,type:uuid" json:"credit_id,omitempty"`
	SellerID      uuid.UUID  `bun:"seller_id,notnull,type:uuid" json:"seller_id,omitempty"`
	SellerName    string     `bun:"seller_name" json:"seller_name,omitempty"`
	AmountKg      float64    `bun:"amount_kg,notnull" json:"amount_kg"`
	PriceCents    int64      `bun:"price_cents,notnull" json:"price_cents"`
	Status        string     `bun:"status,notnull" json:"status,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Transaction records a completed purchase.
type Transaction struct {
	bun.BaseModel `bun:"table:transactions,alias:txn"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	ListingID     uuid.UUID  `bun:"listing_id,notnull,type:uuid" json:"listing_id,omitempty"`
	BuyerID       uuid.UUID  `bun:"buyer_id,notnull,type:uuid" json:"buyer_id,omitempty"`
	SellerID      uuid.UUID  `bun:"seller_id,notnull,type:uuid" json:"seller_id,omitempty"`
	AmountKg      float64    `bun:"amount_kg,notnull" json:"amount_kg"`
	PriceCents    int64      `bun:"price_cents,notnull" json:"price_cents"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Dispute is a complaint against a transaction.
type Dispute struct {
	bun.BaseModel `bun:"table:disputes,alias:dsp"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	TransactionID uuid.UUID  `bun:"transaction_id,notnull,type:uuid" json:"transaction_id,omitempty"`
	OpenedByID    uuid.UUID  `bun:"opened_by_id,notnull,type:uuid" json:"opened_by_id,omitempty"`
	Reason        string     `bun:"reason,notnull" json:"reason,omitempty"`
	Status        string     `bun:"status,notnull" json:"status,omitempty"`
	Resolution    string     `bun:"resolution" json:"resolution,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Models registers every table with the persistence layer.
func Models() []any {
	return []any{
		(*User)(nil),
		(*Journey)(nil),
		(*Credit)(nil),
		(*Listing)(nil),
		(*Transaction)(nil),
		(*Dispute)(nil),
	}
}

// co2SavedKg estimates avoided emissions against an average combustion
// car at 120 g/km.
func co2SavedKg(distanceKM float64) float64 {
	return distanceKM * 0.120
}
