package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"openpay/internal/domain/audit"
	"openpay/internal/domain/auth"
	"openpay/internal/domain/payroll"
	"openpay/internal/platform/config"
	cryptoutil "openpay/internal/platform/crypto"
	"openpay/internal/platform/db"
	"openpay/internal/platform/eventbus"
	"openpay/internal/platform/jobs"
	"openpay/internal/platform/metrics"
	audithandler "openpay/internal/transport/http/handlers/audit"
	authhandler "openpay/internal/transport/http/handlers/auth"
	payrollhandler "openpay/internal/transport/http/handlers/payroll"
	reportshandler "openpay/internal/transport/http/handlers/reports"
	"openpay/internal/transport/http/middleware"
)

const shutdownTimeout = 10 * time.Second

// Deps are the services the router is assembled from.
type Deps struct {
	Config  config.Config
	Log     *logrus.Logger
	Payroll *payroll.Service
	Auth    *auth.Service
	Audit   *audit.Service
	Metrics *metrics.Collector
	// Ready reports whether the record store can serve requests.
	Ready func(ctx context.Context) error
}

type App struct {
	Config  config.Config
	Log     *logrus.Logger
	DB      *pgxpool.Pool
	Router  http.Handler
	Jobs    *jobs.Service
	Archive *payroll.Archive
}

// New connects to the database, applies migrations and the admin seed when
// configured, and wires every service onto one event bus.
func New(ctx context.Context, cfg config.Config, log *logrus.Logger) (*App, error) {
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if cfg.RunMigrations {
		if _, err := db.Migrate(ctx, pool, log); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}

	users := auth.NewService(auth.NewStore(pool), cfg.JWTSecret, cfg.TokenTTL, log)
	if cfg.RunSeed {
		if cfg.SeedAdminPassword == "" {
			log.Warn("SEED_ADMIN_PASSWORD not set; skipping admin seed")
		} else if err := db.Seed(ctx, users, cfg, log); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	crypto, err := cryptoutil.New(cfg.DataEncryptionKey)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if !crypto.Configured() {
		log.Warn("DATA_ENCRYPTION_KEY not set; archived pay stubs are stored unencrypted")
	}

	bus := eventbus.New(log)
	collector := metrics.New()
	collector.Attach(bus)
	auditService := audit.New(audit.NewStore(pool), log)
	auditService.Attach(bus)

	runner := jobs.New(pool, log)
	archive := payroll.NewArchive(cfg.PayStubDir, crypto)
	payrollService := payroll.NewService(
		payroll.NewStore(pool),
		bus,
		log,
		payroll.WithArchive(archive),
		payroll.WithJobs(runner),
	)

	router := NewRouter(Deps{
		Config:  cfg,
		Log:     log,
		Payroll: payrollService,
		Auth:    users,
		Audit:   auditService,
		Metrics: collector,
		Ready:   pool.Ping,
	})
	return &App{Config: cfg, Log: log, DB: pool, Router: router, Jobs: runner, Archive: archive}, nil
}

// NewRouter builds the HTTP surface. Everything under /api/v1 answers with
// the JSON envelope.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer(deps.Log))
	var recorder middleware.RequestRecorder
	if deps.Metrics != nil {
		recorder = deps.Metrics
	}
	router.Use(middleware.Logger(deps.Log, recorder))
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Ready(ctx); err != nil {
				deps.Log.WithError(err).Warn("readiness check failed")
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled && deps.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		authHandler := authhandler.NewHandler(deps.Auth)
		r.With(middleware.LoginRateLimit(cfg.LoginRateLimit, cfg.LoginRateWindow)).Post("/auth/login", authHandler.HandleLogin)
		r.Get("/auth/me", authHandler.HandleMe)

		payrollhandler.NewHandler(deps.Payroll).RegisterRoutes(r)
		reportshandler.NewHandler(deps.Payroll.Aggregator()).RegisterRoutes(r)
		if deps.Audit != nil {
			audithandler.NewHandler(deps.Audit, deps.Log).RegisterRoutes(r)
		}
	})

	return router
}

// Run serves until ctx is cancelled, then drains in-flight requests and
// stops the background jobs.
func (a *App) Run(ctx context.Context) error {
	jobsCtx, stopJobs := context.WithCancel(ctx)
	defer func() {
		stopJobs()
		a.Jobs.Wait()
	}()
	a.startJobs(jobsCtx)

	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Log.WithField("addr", a.Config.Addr).Info("openpay server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.Log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (a *App) startJobs(ctx context.Context) {
	a.Jobs.Start(ctx)
	if a.Config.PayStubRetention <= 0 {
		return
	}
	retention := a.Config.PayStubRetention
	a.Jobs.Every(ctx, a.Config.RetentionInterval, jobs.JobPayStubRetention, func(context.Context) (any, error) {
		cutoff := time.Now().Add(-retention)
		removed, err := a.Archive.Prune(cutoff)
		return map[string]any{"cutoff": cutoff, "removed": removed}, err
	})
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}
