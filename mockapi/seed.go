package mockapi

import (
	"context"
	"io/fs"
	"text/template"
	"time"

	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dbfixture"

	"github.com/evmarket/carbonview"
)

// DevPassword is shared by every seeded account.
const DevPassword = "carbonview-dev"

type seedAccount struct {
	email    string
	fullName string
	role     carbonview.Role
}

var seedAccounts = []seedAccount{
	{"admin@evmarket.test", "Ada Administrator", carbonview.RoleAdmin},
	{"owner@evmarket.test", "Omar Owner", carbonview.RoleOwner},
	{"buyer@evmarket.test", "Bea Buyer", carbonview.RoleBuyer},
	{"cva@evmarket.test", "Cleo Verifier", carbonview.RoleCVA},
}

// CreateTables sets up the schema. SQLite only, this is a dev fixture.
func CreateTables(ctx context.Context, db *bun.DB) error {
	for _, model := range Models() {
		if _, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// SeedAccounts loads one account per role. Password hashes are computed at
// boot so no digest ships in the tree; stable hashid IDs keep the seed
// idempotent across restarts.
func SeedAccounts(ctx context.Context, db *bun.DB) error {
	for _, acct := range seedAccounts {
		hash, err := HashPassword(DevPassword)
		if err != nil {
			return err
		}

		user := &User{
			Email:        acct.email,
			FullName:     acct.fullName,
			Role:         string(acct.role),
			Status:       carbonview.UserStatusActive,
			PasswordHash: hash,
		}
		if id, err := hashid.NewUUID(acct.email); err == nil {
			user.ID = id
		}

		if _, err := db.NewInsert().
			Model(user).
			On("CONFLICT (email) DO NOTHING").
			Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// LoadFixtures loads marketplace demo rows. Fixture files reference seeded
// accounts through the seedID template func so the YAML stays readable.
func LoadFixtures(ctx context.Context, db *bun.DB, fsys fs.FS, names ...string) error {
	db.RegisterModel(Models()...)

	fixture := dbfixture.New(db, dbfixture.WithTemplateFuncs(template.FuncMap{
		"seedID": func(input string) string {
			return SeedID(input).String()
		},
		"daysAgo": func(days int) string {
			return time.Now().AddDate(0, 0, -days).UTC().Format(time.RFC3339)
		},
	}))

	return fixture.Load(ctx, fsys, names...)
}

// SeedID derives the stable UUID used for a seeded record. Account IDs use
// the bare email as input.
func SeedID(input string) uuid.UUID {
	if id, err := hashid.NewUUID(input); err == nil {
		return id
	}
	return uuid.New()
}
