package carbonview

import (
	"embed"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the credential store migration files
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

//go:embed views
var viewsFS embed.FS

// GetViewsFS returns the embedded console templates
func GetViewsFS() embed.FS {
	return viewsFS
}

//go:embed public
var publicFS embed.FS

// GetPublicFS returns the embedded static assets
func GetPublicFS() embed.FS {
	return publicFS
}

//go:embed data/fixtures/*.yml
var fixturesFS embed.FS

// GetFixturesFS returns demo data for the embedded mock platform
func GetFixturesFS() embed.FS {
	return fixturesFS
}
