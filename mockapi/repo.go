package mockapi

import (
	"context"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the account repository with an email lookup on top of the
// generic CRUD surface.
type Users interface {
	repository.Repository[*User]

	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var _ Users = (*users)(nil)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	return &users{Repository: repo, db: db}
}

func (r *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	record := &User{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", strings.ToLower(strings.TrimSpace(email))).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"email": email})
		}
		return nil, err
	}
	return record, nil
}

func (r *users) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*User, error) {
	record := &User{ID: id, Status: status}
	return r.Repository.Update(ctx, record,
		repository.UpdateByID(id.String()),
		repository.UpdateSkipZeroValues(),
	)
}

// Journeys wraps the journey table. ClientRef makes uploads idempotent:
// GetOrCreate on the ref returns the existing row for a retried upload.
type Journeys interface {
	repository.Repository[*Journey]

	GetByClientRef(ctx context.Context, ref uuid.UUID) (*Journey, error)
	PendingReview(ctx context.Context) ([]*Journey, error)
	ByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Journey, error)
}

type journeys struct {
	repository.Repository[*Journey]
	db *bun.DB
}

var _ Journeys = (*journeys)(nil)

func NewJourneysRepository(db *bun.DB) Journeys {
	repo := repository.NewRepository[*Journey](db, repository.ModelHandlers[*Journey]{
		NewRecord: func() *Journey { return &Journey{} },
		GetID: func(j *Journey) uuid.UUID {
			if j == nil {
				return uuid.Nil
			}
			return j.ID
		},
		SetID: func(j *Journey, id uuid.UUID) {
			if j != nil {
				j.ID = id
			}
		},
	})

	return &journeys{Repository: repo, db: db}
}

func (r *journeys) GetByClientRef(ctx context.Context, ref uuid.UUID) (*Journey, error) {
	record := &Journey{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.client_ref = ?", ref).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"client_ref": ref.String()})
		}
		return nil, err
	}
	return record, nil
}

func (r *journeys) PendingReview(ctx context.Context) ([]*Journey, error) {
	var records []*Journey
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.status = ?", "SUBMITTED").
		Order("started_at ASC").
		Scan(ctx)
	return records, err
}

func (r *journeys) ByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Journey, error) {
	var records []*Journey
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.owner_id = ?", ownerID).
		Order("started_at DESC").
		Scan(ctx)
	return records, err
}
