package mockapi

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/evmarket/carbonview"
)

// startingBalanceCents funds every account so buyers can transact
// out of the box.
const startingBalanceCents int64 = 100_000

func (s *Server) listJourneys(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}

	records, err := s.journeys.ByOwner(c.Context(), user.ID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not load journeys")
	}
	return c.JSON(records)
}

type journeyPayload struct {
	VehicleID  string    `json:"vehicle_id"`
	DistanceKM float64   `json:"distance_km"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	ClientRef  uuid.UUID `json:"client_ref"`
}

func (s *Server) createJourney(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	if user.Role != string(carbonview.RoleOwner) {
		return fiber.NewError(fiber.StatusForbidden, "only owners submit journeys")
	}

	payload := new(journeyPayload)
	if err := c.BodyParser(payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	if payload.VehicleID == "" || payload.DistanceKM <= 0 || !payload.EndedAt.After(payload.StartedAt) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid journey")
	}

	// retried uploads with the same ref return the original row
	if payload.ClientRef != uuid.Nil {
		if existing, err := s.journeys.GetByClientRef(c.Context(), payload.ClientRef); err == nil {
			return c.JSON(existing)
		}
	}

	record := &Journey{
		ID:         uuid.New(),
		OwnerID:    user.ID,
		VehicleID:  payload.VehicleID,
		ClientRef:  payload.ClientRef,
		DistanceKM: payload.DistanceKM,
		StartedAt:  payload.StartedAt,
		EndedAt:    payload.EndedAt,
		CO2SavedKg: co2SavedKg(payload.DistanceKM),
		Status:     "SUBMITTED",
	}

	created, err := s.journeys.Create(c.Context(), record)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not store journey")
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (s *Server) getJourney(c *fiber.Ctx) error {
	if _, err := s.currentUser(c); err != nil {
		return err
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid journey id")
	}

	record, err := s.journeys.GetByID(c.Context(), id.String())
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "journey not found")
	}
	return c.JSON(record)
}

func (s *Server) listCredits(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}

	var records []*Credit
	err = s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.owner_id = ?", user.ID).
		Order("created_at DESC").
		Scan(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not load credits")
	}
	return c.JSON(records)
}

type sellPayload struct {
	PriceCents int64 `json:"price_cents"`
}

func (s *Server) sellCredit(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}

	creditID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid credit id")
	}

	payload := new(sellPayload)
	if err := c.BodyParser(payload); err != nil || payload.PriceCents <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "price must be positive")
	}

	credit := &Credit{}
	err = s.db.NewSelect().
		Model(credit).
		Where("?TableAlias.id = ? AND ?TableAlias.owner_id = ?", creditID, user.ID).
		Limit(1).
		Scan(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "credit not found")
	}
	if credit.Status != "VERIFIED" {
		return fiber.NewError(fiber.StatusConflict, "only verified credits can be listed")
	}

	listing := &Listing{
		ID:         uuid.New(),
		CreditID:   credit.ID,
		SellerID:   user.ID,
		SellerName: user.FullName,
		AmountKg:   credit.AmountKg,
		PriceCents: payload.PriceCents,
		Status:     "OPEN",
	}

	err = s.db.RunInTx(c.Context(), nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(listing).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewUpdate().
			Model((*Credit)(nil)).
			Set("status = ?", "LISTED").
			Where("id = ?", credit.ID).
			Exec(ctx)
		return err
	})
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not list credit")
	}

	return c.Status(fiber.StatusCreated).JSON(listing)
}

func (s *Server) wallet(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}

	var bought, sold sql.NullInt64
	_ = s.db.NewSelect().
		Model((*Transaction)(nil)).
		ColumnExpr("COALESCE(SUM(price_cents), 0)").
		Where("buyer_id = ?", user.ID).
		Scan(c.Context(), &bought)
	_ = s.db.NewSelect().
		Model((*Transaction)(nil)).
		ColumnExpr("COALESCE(SUM(price_cents), 0)").
		Where("seller_id = ?", user.ID).
		Scan(c.Context(), &sold)

	var verifiedKg, pendingKg sql.NullFloat64
	_ = s.db.NewSelect().
		Model((*Credit)(nil)).
		ColumnExpr("COALESCE(SUM(amount_kg), 0)").
		Where("owner_id = ? AND status IN (?, ?, ?)", user.ID, "VERIFIED", "LISTED", "SOLD").
		Scan(c.Context(), &verifiedKg)
	_ = s.db.NewSelect().
		Model((*Journey)(nil)).
		ColumnExpr("COALESCE(SUM(co2_saved_kg), 0)").
		Where("owner_id = ? AND status = ?", user.ID, "SUBMITTED").
		Scan(c.Context(), &pendingKg)

	return c.JSON(fiber.Map{
		"user_id":       user.ID,
		"balance_cents": startingBalanceCents - bought.Int64 + sold.Int64,
		"credits_kg":    verifiedKg.Float64,
		"pending_kg":    pendingKg.Float64,
	})
}

func (s *Server) listTransactions(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}

	var records []*Transaction
	err = s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.buyer_id = ? OR ?TableAlias.seller_id = ?", user.ID, user.ID).
		Order("created_at DESC").
		Scan(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not load transactions")
	}
	return c.JSON(records)
}

func (s *Server) listListings(c *fiber.Ctx) error {
	if _, err := s.currentUser(c); err != nil {
		return err
	}

	var records []*Listing
	q := s.db.NewSelect().Model(&records).Order("created_at DESC")

	q = q.Where("?TableAlias.status = ?", c.Query("status", "OPEN"))
	if maxPrice := c.QueryInt("max_price_cents", 0); maxPrice > 0 {
		q = q.Where("?TableAlias.price_cents <= ?", maxPrice)
	}
	if minKg := c.QueryFloat("min_amount_kg", 0); minKg > 0 {
		q = q.Where("?TableAlias.amount_kg >= ?", minKg)
	}

	if err := q.Scan(c.Context()); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not load listings")
	}
	return c.JSON(records)
}

func (s *Server) purchase(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	if user.Role != string(carbonview.RoleBuyer) {
		return fiber.NewError(fiber.StatusForbidden, "only buyers purchase credits")
	}

	listingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid listing id")
	}

	listing := &Listing{}
	err = s.db.NewSelect().
		Model(listing).
		Where("?TableAlias.id = ?", listingID).
		Limit(1).
		Scan(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "listing not found")
	}
	if listing.Status != "OPEN" {
		return fiber.NewError(fiber.StatusConflict, "listing is no longer open")
	}

	txn := &Transaction{
		ID:         uuid.New(),
		ListingID:  listing.ID,
		BuyerID:    user.ID,
		SellerID:   listing.SellerID,
		AmountKg:   listing.AmountKg,
		PriceCents: listing.PriceCents,
	}

	err = s.db.RunInTx(c.Context(), nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*Listing)(nil)).
			Set("status = ?", "SOLD").
			Where("id = ? AND status = ?", listing.ID, "OPEN").
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return sql.ErrNoRows
		}
		if _, err := tx.NewUpdate().
			Model((*Credit)(nil)).
			Set("status = ?, owner_id = ?", "SOLD", user.ID).
			Where("id = ?", listing.CreditID).
			Exec(ctx); err != nil {
			return err
		}
		_, err = tx.NewInsert().Model(txn).Exec(ctx)
		return err
	})
	if err != nil {
		return fiber.NewError(fiber.StatusConflict, "listing is no longer open")
	}

	return c.Status(fiber.StatusCreated).JSON(txn)
}

type disputePayload struct {
	Reason string `json:"reason"`
}

func (s *Server) openDispute(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}

	txID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid transaction id")
	}

	payload := new(disputePayload)
	if err := c.BodyParser(payload); err != nil || payload.Reason == "" {
		return fiber.NewError(fiber.StatusBadRequest, "a reason is required")
	}

	txn := &Transaction{}
	err = s.db.NewSelect().
		Model(txn).
		Where("?TableAlias.id = ? AND (?TableAlias.buyer_id = ? OR ?TableAlias.seller_id = ?)", txID, user.ID, user.ID).
		Limit(1).
		Scan(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "transaction not found")
	}

	dispute := &Dispute{
		ID:            uuid.New(),
		TransactionID: txn.ID,
		OpenedByID:    user.ID,
		Reason:        payload.Reason,
		Status:        "OPEN",
	}
	if _, err := s.db.NewInsert().Model(dispute).Exec(c.Context()); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not file dispute")
	}
	return c.Status(fiber.StatusCreated).JSON(dispute)
}

func (s *Server) verificationQueue(c *fiber.Ctx) error {
	records, err := s.journeys.PendingReview(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not load queue")
	}
	return c.JSON(records)
}

type reviewPayload struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

func (s *Server) reviewJourney(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid journey id")
	}

	payload := new(reviewPayload)
	if err := c.BodyParser(payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}

	journey, err := s.journeys.GetByID(c.Context(), id.String())
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "journey not found")
	}
	if journey.Status != "SUBMITTED" {
		return fiber.NewError(fiber.StatusConflict, "journey already reviewed")
	}

	status := "REJECTED"
	if payload.Approve {
		status = "APPROVED"
	}

	err = s.db.RunInTx(c.Context(), nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewUpdate().
			Model((*Journey)(nil)).
			Set("status = ?, review_note = ?", status, payload.Note).
			Where("id = ?", journey.ID).
			Exec(ctx); err != nil {
			return err
		}
		if !payload.Approve {
			return nil
		}
		credit := &Credit{
			ID:        uuid.New(),
			OwnerID:   journey.OwnerID,
			JourneyID: journey.ID,
			AmountKg:  journey.CO2SavedKg,
			Status:    "VERIFIED",
		}
		_, err := tx.NewInsert().Model(credit).Exec(ctx)
		return err
	})
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not record review")
	}

	journey.Status = status
	journey.ReviewNote = payload.Note
	return c.JSON(journey)
}

func (s *Server) adminUsers(c *fiber.Ctx) error {
	var records []*User
	err := s.db.NewSelect().
		Model(&records).
		Order("created_at ASC").
		Scan(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not load users")
	}

	out := make([]fiber.Map, 0, len(records))
	for _, u := range records {
		var journeyCount, disputeCount int
		journeyCount, _ = s.db.NewSelect().
			Model((*Journey)(nil)).
			Where("owner_id = ?", u.ID).
			Count(c.Context())
		disputeCount, _ = s.db.NewSelect().
			Model((*Dispute)(nil)).
			Where("opened_by_id = ?", u.ID).
			Count(c.Context())

		out = append(out, fiber.Map{
			"id":            u.ID,
			"email":         u.Email,
			"full_name":     u.FullName,
			"role":          u.Role,
			"status":        u.Status,
			"created_at":    u.CreatedAt,
			"journey_count": journeyCount,
			"dispute_count": disputeCount,
		})
	}
	return c.JSON(out)
}

type statusPayload struct {
	Status string `json:"status"`
}

func (s *Server) adminUserStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}

	payload := new(statusPayload)
	if err := c.BodyParser(payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	if payload.Status != carbonview.UserStatusActive && payload.Status != carbonview.UserStatusSuspended {
		return fiber.NewError(fiber.StatusBadRequest, "unknown status")
	}

	user, err := s.users.UpdateStatus(c.Context(), id, payload.Status)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "user not found")
	}
	return c.JSON(user.Profile())
}

func (s *Server) adminDisputes(c *fiber.Ctx) error {
	var records []*Dispute
	err := s.db.NewSelect().
		Model(&records).
		Order("created_at DESC").
		Scan(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not load disputes")
	}
	return c.JSON(records)
}

type resolvePayload struct {
	Resolution string `json:"resolution"`
	Uphold     bool   `json:"uphold"`
}

func (s *Server) adminResolveDispute(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid dispute id")
	}

	payload := new(resolvePayload)
	if err := c.BodyParser(payload); err != nil || payload.Resolution == "" {
		return fiber.NewError(fiber.StatusBadRequest, "a resolution is required")
	}

	dispute := &Dispute{}
	err = s.db.NewSelect().
		Model(dispute).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "dispute not found")
	}
	if dispute.Status != "OPEN" {
		return fiber.NewError(fiber.StatusConflict, "dispute already resolved")
	}

	status := "REJECTED"
	if payload.Uphold {
		status = "RESOLVED"
	}

	_, err = s.db.NewUpdate().
		Model((*Dispute)(nil)).
		Set("status = ?, resolution = ?", status, payload.Resolution).
		Where("id = ?", dispute.ID).
		Exec(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not resolve dispute")
	}

	dispute.Status = status
	dispute.Resolution = payload.Resolution
	return c.JSON(dispute)
}

func (s *Server) adminReport(c *fiber.Ctx) error {
	ctx := c.Context()

	totalUsers, _ := s.db.NewSelect().Model((*User)(nil)).Count(ctx)
	totalJourneys, _ := s.db.NewSelect().Model((*Journey)(nil)).Count(ctx)
	pendingJourneys, _ := s.db.NewSelect().
		Model((*Journey)(nil)).
		Where("status = ?", "SUBMITTED").
		Count(ctx)
	openDisputes, _ := s.db.NewSelect().
		Model((*Dispute)(nil)).
		Where("status = ?", "OPEN").
		Count(ctx)
	activeListings, _ := s.db.NewSelect().
		Model((*Listing)(nil)).
		Where("status = ?", "OPEN").
		Count(ctx)

	var creditsKg sql.NullFloat64
	_ = s.db.NewSelect().
		Model((*Credit)(nil)).
		ColumnExpr("COALESCE(SUM(amount_kg), 0)").
		Scan(ctx, &creditsKg)

	var salesCents sql.NullInt64
	_ = s.db.NewSelect().
		Model((*Transaction)(nil)).
		ColumnExpr("COALESCE(SUM(price_cents), 0)").
		Scan(ctx, &salesCents)

	return c.JSON(fiber.Map{
		"total_users":       totalUsers,
		"total_journeys":    totalJourneys,
		"total_credits_kg":  creditsKg.Float64,
		"total_sales_cents": salesCents.Int64,
		"open_disputes":     openDisputes,
		"pending_journeys":  pendingJourneys,
		"active_listings":   activeListings,
		"generated_at":      time.Now().UTC(),
	})
}
