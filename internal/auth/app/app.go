package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/learnhub/internal/auth/http"
	"github.com/aussiebroadwan/learnhub/internal/auth/service"
	"github.com/aussiebroadwan/learnhub/internal/auth/store"
	"github.com/aussiebroadwan/learnhub/internal/auth/store/drivers/memory"
	"github.com/aussiebroadwan/learnhub/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/learnhub/pkg/cryptox"
	"github.com/aussiebroadwan/learnhub/pkg/httpx"
	"github.com/aussiebroadwan/learnhub/pkg/obs"
	"github.com/aussiebroadwan/learnhub/pkg/slogx"
)

// BuildVersion is overridden at build time with
// -ldflags "-X github.com/aussiebroadwan/learnhub/internal/auth/app.BuildVersion=...".
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg     Config
	logger  *slog.Logger
	metrics *obs.Metrics

	// Core dependencies
	db          *sqlite.Store
	sessions    store.Sessions
	revocations store.Revocations

	// Services
	gate                *service.Gate
	accountService      *service.AccountService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService
	housekeepingStarted bool

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// Option customises New. Tests use it to silence logging.
type Option func(*Application)

// WithLogOutput sends logs to w instead of stdout.
func WithLogOutput(w io.Writer) Option {
	return func(app *Application) {
		app.logger = newLogger(app.cfg, w)
	}
}

func newLogger(cfg Config, w io.Writer) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: "auth-service",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Output:  w,
	})
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config, opts ...Option) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{cfg: cfg}
	for _, opt := range opts {
		opt(app)
	}
	if app.logger == nil {
		app.logger = newLogger(cfg, nil)
	}

	app.metrics = obs.NewMetrics()
	app.metrics.SetBuildInfo(BuildVersion)

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	if err := app.bootstrap(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Handler is the fully wired HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()
	app.housekeepingStarted = true

	app.logger.Info("auth service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"session_backend", app.cfg.SessionBackend,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.Shutdown()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.housekeepingStarted {
		app.housekeepingService.Stop()
		app.housekeepingStarted = false
	}

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase opens the identity database and applies migrations. The
// session backend is chosen here too: sqlite reuses the same database.
func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(sqlite.DSN(app.cfg.DatabaseFile))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}
	app.logger.Info("database migrations applied successfully")

	switch app.cfg.SessionBackend {
	case BackendMemory:
		app.sessions = memory.NewSessions()
		app.revocations = memory.NewRevocations()
	default:
		app.sessions = db.Sessions()
		app.revocations = db.Revocations()
	}
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	tokens, err := service.NewTokenIssuer(service.IssuerConfig{
		Secret:     []byte(app.cfg.SigningSecret),
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	})
	if err != nil {
		return err
	}

	app.gate = &service.Gate{
		Credentials: &service.StoreCredentialVerifier{Identities: app.db.Identities()},
		Tokens:      tokens,
		Sessions:    app.sessions,
		Revocations: app.revocations,
		Metrics:     app.metrics,
	}
	app.accountService = &service.AccountService{
		Identities: app.db.Identities(),
		Sessions:   app.sessions,
	}
	app.bootstrapService = &service.BootstrapService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.sessions,
		app.revocations,
		app.metrics,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	return nil
}

// bootstrap seeds the first admin when configured. An already populated
// database is not an error.
func (app *Application) bootstrap() error {
	if app.cfg.BootstrapAdminEmail == "" {
		return nil
	}

	ctx := slogx.WithContext(context.Background(), app.logger)
	done, err := app.bootstrapService.IsBootstrapped(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if done {
		app.logger.Info("bootstrap skipped, identities already exist")
		return nil
	}

	_, err = app.bootstrapService.Bootstrap(ctx, app.cfg.BootstrapAdminEmail, app.cfg.BootstrapAdminPassword)
	if errors.Is(err, service.ErrBootstrapAlready) {
		app.logger.Info("bootstrap skipped, identities already exist")
		return nil
	}
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(httpapi.RouterConfig{
		BuildVersion: BuildVersion,
		Logger:       app.logger,
		Metrics:      app.metrics,
		Limits:       httpx.LoadRateLimitProfiles(),
		TrustProxy:   app.cfg.TrustProxyHeaders,
		ReadyChecks: map[string]httpapi.ReadyCheck{
			"database": app.db.Ping,
		},
	})

	// Wire services to router
	router.Gate = app.gate
	router.AccountService = app.accountService
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
