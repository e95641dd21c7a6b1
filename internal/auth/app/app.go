package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/passage/internal/auth/federation"
	httpapi "github.com/aussiebroadwan/passage/internal/auth/http"
	"github.com/aussiebroadwan/passage/internal/auth/metrics"
	"github.com/aussiebroadwan/passage/internal/auth/service"
	"github.com/aussiebroadwan/passage/internal/auth/store"
	"github.com/aussiebroadwan/passage/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/passage/pkg/cryptox"
	"github.com/aussiebroadwan/passage/pkg/httpx"
	"github.com/aussiebroadwan/passage/pkg/jwtx"
	"github.com/aussiebroadwan/passage/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// BuildVersion is overridden at build time with -ldflags "-X ...".
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	codec  *jwtx.HS256Codec
	hasher *cryptox.PasswordHasher

	metrics  metrics.Recorder
	registry *prometheus.Registry

	authService         *service.AuthService
	federatedService    *service.FederatedService
	userService         *service.UserService
	housekeepingService *service.HousekeepingService
	providers           *federation.Registry

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
// Any misconfiguration, such as a weak signing secret, fails here.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "passage-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initCrypto(); err != nil {
		return nil, err
	}
	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initMetrics()
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"providers", app.providers.Names(),
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) initCrypto() error {
	secret, err := jwtx.ParseSecret(app.cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("failed to parse signing secret: %w", err)
	}
	codec, err := jwtx.NewHS256Codec(secret, app.cfg.Issuer, app.cfg.AccessTokenTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize token codec: %w", err)
	}
	app.codec = codec

	pepper, err := cryptox.LoadOrCreatePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}
	app.hasher = cryptox.NewPasswordHasher(pepper)
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(sqlite.FileDSN(app.cfg.DatabaseFile))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "file", app.cfg.DatabaseFile)
	return nil
}

func (app *Application) initMetrics() {
	if !app.cfg.MetricsEnabled {
		app.metrics = metrics.Nop{}
		return
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.registry = reg
	app.metrics = metrics.NewCollector(reg)
}

func (app *Application) initServices() {
	issuer := &service.TokenIssuer{
		Access:     app.codec,
		RefreshTTL: app.cfg.RefreshTokenTTL,
	}

	app.authService = &service.AuthService{
		Store:   app.db,
		Hasher:  app.hasher,
		Issuer:  issuer,
		Metrics: app.metrics,
	}
	app.federatedService = &service.FederatedService{
		Store:   app.db,
		CodeTTL: app.cfg.CodeTTL,
		Metrics: app.metrics,
	}
	app.userService = &service.UserService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	var providers []federation.Provider
	if g := app.cfg.Google; g.Enabled() {
		providers = append(providers, federation.NewGoogle(federation.GoogleConfig{
			ClientID:     g.ClientID,
			ClientSecret: g.ClientSecret,
			CallbackURL:  g.CallbackURL,
		}))
	}
	app.providers = federation.NewRegistry(providers...)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	cfg := httpapi.RouterConfig{
		BuildVersion: BuildVersion,
		Cookies: httpapi.CookieConfig{
			Secure:     app.cfg.CookieSecure,
			RefreshTTL: app.cfg.RefreshTokenTTL,
		},
		CORS: httpx.CORSConfig{
			AllowedOrigins:   []string{app.cfg.CORSOrigin},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Authorization", slogx.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           600,
		},
		RedirectURI: app.cfg.RedirectURI,
		Metrics:     app.metrics,
	}
	if app.registry != nil {
		cfg.MetricsHandler = metrics.Handler(app.registry)
	}

	router := httpapi.NewRouter(cfg, app.codec, app.db, app.logger)
	router.AuthService = app.authService
	router.FederatedService = app.federatedService
	router.UserService = app.userService
	router.Providers = app.providers
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
