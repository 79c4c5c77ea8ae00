package api

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// UploadJourneyMessage carries one trip from capture to the platform.
// Retries reuse the same ClientRef so the platform can deduplicate.
type UploadJourneyMessage struct {
	VehicleID  string    `json:"vehicle_id"`
	DistanceKM float64   `json:"distance_km"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	ClientRef  uuid.UUID `json:"client_ref"`
}

func (e UploadJourneyMessage) Type() string { return "journey.upload" }

type UploadJourneyHandler struct {
	client *Client
}

func NewUploadJourneyHandler(client *Client) *UploadJourneyHandler {
	return &UploadJourneyHandler{client: client}
}

func (h *UploadJourneyHandler) Execute(ctx context.Context, event UploadJourneyMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during journey upload",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *UploadJourneyHandler) execute(ctx context.Context, event UploadJourneyMessage) error {
	if err := validateJourney(event); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	ref := event.ClientRef
	if ref == uuid.Nil {
		// derive a stable ref from the trip itself so a retry of the
		// same capture dedupes even when the caller forgot one
		if id, err := hashid.NewUUID(event.VehicleID + event.StartedAt.UTC().Format(time.RFC3339Nano)); err == nil {
			ref = id
		} else {
			ref = uuid.New()
		}
	}

	_, err := h.client.CreateJourney(ctx, JourneyInput{
		VehicleID:  event.VehicleID,
		DistanceKM: event.DistanceKM,
		StartedAt:  event.StartedAt,
		EndedAt:    event.EndedAt,
		ClientRef:  ref,
	})
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryOperation, "journey upload failed")
	}

	return nil
}

func validateJourney(event UploadJourneyMessage) error {
	if event.VehicleID == "" {
		return goerrors.New("vehicle id is required", goerrors.CategoryValidation)
	}
	if event.DistanceKM <= 0 {
		return goerrors.New("distance must be positive", goerrors.CategoryValidation)
	}
	if !event.EndedAt.After(event.StartedAt) {
		return goerrors.New("journey must end after it starts", goerrors.CategoryValidation)
	}
	return nil
}
