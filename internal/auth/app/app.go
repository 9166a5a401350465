package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/tabauth/internal/auth/authz"
	httpapi "github.com/aussiebroadwan/tabauth/internal/auth/http"
	"github.com/aussiebroadwan/tabauth/internal/auth/service"
	"github.com/aussiebroadwan/tabauth/internal/auth/store"
	redisstore "github.com/aussiebroadwan/tabauth/internal/auth/store/drivers/redis"
	"github.com/aussiebroadwan/tabauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/tabauth/pkg/cryptox"
	"github.com/aussiebroadwan/tabauth/pkg/jwtx"
	"github.com/aussiebroadwan/tabauth/pkg/slogx"
	goredis "github.com/redis/go-redis/v9"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// sessionBackend is a session store that can be probed and closed on its own.
type sessionBackend interface {
	store.Sessions
	Ping(ctx context.Context) error
	Close() error
}

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	sessions store.Sessions
	redis    sessionBackend // nil unless SESSION_STORE=redis
	codec    *jwtx.Codec

	// Services
	authService         *service.AuthService
	sessionManager      *service.SessionManager
	userService         *service.UserService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "tabauth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	codec, err := InitCodec(&app.cfg, app.logger)
	if err != nil {
		return nil, err
	}
	app.codec = codec

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initSessionStore(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()

	if err := app.bootstrap(context.Background()); err != nil {
		_ = app.close()
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("auth service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"session_store", app.cfg.SessionStore,
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
		if err != nil && err != http.ErrServerClosed {
			app.housekeepingService.Stop()
			_ = app.close()
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

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	if err := app.close(); err != nil {
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// Handler exposes the HTTP handler, for in-process tests.
func (app *Application) Handler() http.Handler { return app.router }

func (app *Application) close() error {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
		}
	}

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initSessionStore picks where sessions live. Users always stay in SQLite.
func (app *Application) initSessionStore() error {
	switch app.cfg.SessionStore {
	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:         app.cfg.RedisAddr,
			DialTimeout:  app.cfg.StoreTimeout,
			ReadTimeout:  app.cfg.StoreTimeout,
			WriteTimeout: app.cfg.StoreTimeout,
		})
		rs := redisstore.NewSessions(client,
			redisstore.WithPrefix(app.cfg.RedisPrefix),
			redisstore.WithRetention(app.cfg.RefreshTTL),
		)

		ctx, cancel := context.WithTimeout(context.Background(), app.cfg.StoreTimeout)
		defer cancel()
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return fmt.Errorf("failed to connect to redis session store: %w", err)
		}

		app.redis = rs
		app.sessions = rs
		app.logger.Info("session store: redis", "addr", app.cfg.RedisAddr, "prefix", app.cfg.RedisPrefix)

	default:
		app.sessions = app.db.Sessions()
		app.logger.Info("session store: sqlite", "file", app.cfg.DatabaseFile)
	}
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	verifier := &service.DirectoryVerifier{
		Users:   app.db.Users(),
		Timeout: app.cfg.StoreTimeout,
		Rehash:  true,
	}

	app.sessionManager = &service.SessionManager{
		Sessions:   app.sessions,
		Directory:  verifier,
		Codec:      app.codec,
		RefreshTTL: app.cfg.RefreshTTL,
		Timeout:    app.cfg.StoreTimeout,
	}

	app.authService = &service.AuthService{
		Verifier:  verifier,
		Sessions:  app.sessionManager,
		Codec:     app.codec,
		AccessTTL: app.cfg.AccessTTL,
	}

	app.userService = &service.UserService{
		Users:   app.db.Users(),
		Timeout: app.cfg.StoreTimeout,
	}
	app.bootstrapService = &service.BootstrapService{Users: app.userService}

	// Redis expires idle sessions itself; the sweep is still harmless there.
	app.housekeepingService = service.NewHousekeepingService(
		app.sessions,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.RefreshTTL,
	)
}

func (app *Application) bootstrap(ctx context.Context) error {
	res, err := app.bootstrapService.EnsureAdmin(
		slogx.WithContext(ctx, app.logger),
		app.cfg.BootstrapUsername,
		app.cfg.BootstrapPassword,
		app.cfg.BootstrapEmail,
	)
	if err != nil {
		return fmt.Errorf("failed to bootstrap admin user: %w", err)
	}
	if res.GeneratedPassword != "" {
		// Printed once so an operator can log in; never logged.
		fmt.Fprintf(os.Stderr, "bootstrap admin %q created with password: %s\n",
			app.cfg.BootstrapUsername, res.GeneratedPassword)
	}
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.codec,
		authz.NewPolicy(httpapi.ServiceRules()...),
		BuildVersion,
		app.logger,
	)

	// Wire services to router
	router.AuthService = app.authService
	router.UserService = app.userService
	router.Database = app.db
	router.Sessions = app.db
	if app.redis != nil {
		router.Sessions = app.redis
	}
	router.StrictLimit = app.cfg.StrictLimit
	router.ModerateLimit = app.cfg.ModerateLimit
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
