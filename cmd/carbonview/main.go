package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	cfs "github.com/goliatone/go-composite-fs"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	mflash "github.com/goliatone/go-router/middleware/flash"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/evmarket/carbonview"
	"github.com/evmarket/carbonview/api"
	"github.com/evmarket/carbonview/config"
	"github.com/evmarket/carbonview/mockapi"
	"github.com/evmarket/carbonview/pages"
)

type App struct {
	config  *gconfig.Container[*config.BaseConfig]
	bunDB   *bun.DB
	store   carbonview.TokenStore
	client  *carbonview.Client
	manager *carbonview.Manager
	guard   *carbonview.RouteGuard
	srv     router.Server[*fiber.App]
	logger  *glog.BaseLogger
	mock    *mockapi.Server
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Debug),
		glog.WithName("carbonview"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.BaseConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	fmt.Println(print.MaybeHighlightJSON(cfg.Raw()))

	app := &App{
		config: cfg,
		logger: lgr,
	}

	platformURL := app.Config().GetPlatformURL()
	if app.Config().GetMock().Enabled {
		url, err := WithMockPlatform(ctx, app)
		if err != nil {
			panic(err)
		}
		platformURL = url
	}

	if !app.Config().GetStore().GetEphemeral() {
		if err := WithPersistence(ctx, app); err != nil {
			panic(err)
		}
	}

	if err := WithSession(ctx, app, platformURL); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	app.srv.Serve(app.Config().GetListenAddr())

	WaitExitSignal()

	if app.mock != nil {
		app.mock.Shutdown()
	}
}

// WithMockPlatform boots the embedded stand-in platform and returns its base
// URL. Demo accounts are seeded on every start; marketplace fixtures give
// each console screen something to show.
func WithMockPlatform(ctx context.Context, app *App) (string, error) {
	mcfg := app.Config().GetMock()

	sqldb, err := sql.Open(sqliteshim.ShimName, mcfg.GetDSN())
	if err != nil {
		return "", err
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())

	if err := mockapi.CreateTables(ctx, db); err != nil {
		return "", err
	}
	if err := mockapi.SeedAccounts(ctx, db); err != nil {
		return "", err
	}

	fixtures, err := fs.Sub(carbonview.GetFixturesFS(), "data/fixtures")
	if err != nil {
		return "", err
	}
	if err := mockapi.LoadFixtures(ctx, db, fixtures, "marketplace.yml"); err != nil {
		app.GetLogger("mock").Warn("fixture load failed, continuing with seed accounts only", "error", err)
	}

	app.mock = mockapi.NewServer(
		db,
		[]byte(mcfg.GetSigningKey()),
		mcfg.GetTokenTTL(),
		mockapi.WithServerLogger(app.GetLogger("mock")),
	)

	go func() {
		if err := app.mock.Listen(mcfg.GetAddr()); err != nil {
			app.GetLogger("mock").Error("mock platform stopped", "error", err)
		}
	}()

	app.GetLogger("mock").Info("demo sign-in", "email", "owner@evmarket.test", "password", mockapi.DevPassword)

	return "http://" + mcfg.GetAddr(), nil
}

// WithPersistence opens the console's own database: a small key-value table
// holding the platform credential and cached profile across restarts.
func WithPersistence(ctx context.Context, app *App) error {
	db, err := sql.Open(sqliteshim.ShimName, app.Config().GetStoreDSN())
	if err != nil {
		return err
	}

	persistence.RegisterModel((*carbonview.CredentialRecord)(nil))

	client, err := persistence.New(app.Config().GetStore(), db, sqlitedialect.New())
	if err != nil {
		return err
	}
	client.SetLogger(app.GetLogger("persistence"))

	migrationsFS, err := fs.Sub(carbonview.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}
	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)
	if err := client.ValidateDialects(ctx); err != nil {
		return err
	}
	if err := client.Migrate(ctx); err != nil {
		return err
	}

	app.bunDB = client.DB()
	return nil
}

// WithSession wires the credential store, the platform client, and the
// process-wide session manager, then replays any stored credential so a
// restart does not sign the operator out.
func WithSession(ctx context.Context, app *App, platformURL string) error {
	if app.Config().GetStore().GetEphemeral() {
		app.store = carbonview.NewMemoryTokenStore()
	} else {
		inner := carbonview.NewBunTokenStore(app.bunDB)
		if err := inner.Init(ctx); err != nil {
			return err
		}
		app.store = carbonview.NewFailsafeTokenStore(inner, app.GetLogger("store"))
	}

	app.client = carbonview.NewClient(
		platformURL,
		app.store,
		carbonview.WithLogger(app.GetLogger("client")),
		carbonview.WithHTTPClient(&http.Client{
			Timeout: app.Config().GetPlatform().GetTimeout(),
		}),
	)

	app.manager = carbonview.NewManager(
		app.client,
		carbonview.WithManagerLogger(app.GetLogger("session")),
	)

	if sess := app.manager.Start(ctx); sess.Authenticated() {
		app.GetLogger("session").Info("session restored", "email", sess.User.Email, "role", sess.User.Role)
	} else {
		// an expired or missing credential is the normal signed-out case
		app.GetLogger("session").Info("starting signed out", "status", string(sess.Status))
	}

	app.guard = carbonview.NewRouteGuard(
		app.manager,
		carbonview.WithGuardLogger(app.GetLogger("guard")),
	)

	return nil
}

// WithHTTPServer builds the view engine and mounts every console route
// behind the session guard.
func WithHTTPServer(ctx context.Context, app *App) error {
	// disk views override the embedded copy so templates can be edited
	// without a rebuild
	embeddedViews, err := fs.Sub(carbonview.GetViewsFS(), "views")
	if err != nil {
		return err
	}
	viewsFS := cfs.NewCompositeFS(os.DirFS("views"), embeddedViews)

	engine := django.NewFileSystem(http.FS(viewsFS), ".html")
	for name, fn := range carbonview.TemplateHelpers(app.manager) {
		engine.AddFunc(name, fn)
	}

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			StrictRouting:     false,
			PassLocalsToViews: true,
			Views:             engine,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))
	srv.Router().Use(mflash.New(mflash.ConfigDefault))
	srv.Router().Use(app.guard.Middleware())

	// same disk-over-embedded layering for stylesheets and the like
	embeddedAssets, err := fs.Sub(carbonview.GetPublicFS(), "public")
	if err != nil {
		return err
	}
	assetFS := cfs.NewCompositeFS(os.DirFS("public"), embeddedAssets)
	srv.Router().Static("/", ".", router.Static{
		FS:   assetFS,
		Root: ".",
	})

	root := srv.Router().Group("/")

	carbonview.RegisterAuthRoutes(root, func(ac *carbonview.AuthController) *carbonview.AuthController {
		ac.Manager = app.manager
		ac.Guard = app.guard
		ac.Client = app.client
		ac.WithLogger(app.GetLogger("auth"))
		return ac
	})

	apiClient := api.NewClient(app.client)

	pages.RegisterHomeRoutes(root, app.manager, app.GetLogger("pages"))
	pages.RegisterOwnerRoutes(root, apiClient, app.manager, app.GetLogger("pages:owner"))
	pages.RegisterBuyerRoutes(root, apiClient, app.manager, app.GetLogger("pages:buyer"))
	pages.RegisterCVARoutes(root, apiClient, app.manager, app.GetLogger("pages:cva"))
	pages.RegisterAdminRoutes(root, apiClient, app.manager, app.GetLogger("pages:admin"))

	app.srv = srv
	return nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
