package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"hrflow/internal/domain/audit"
	"hrflow/internal/domain/auth"
	"hrflow/internal/domain/catalog"
	"hrflow/internal/domain/dasub"
	"hrflow/internal/domain/evaluation"
	"hrflow/internal/domain/mda"
	"hrflow/internal/domain/notifications"
	"hrflow/internal/domain/pdp"
	"hrflow/internal/platform/config"
	cryptoutil "hrflow/internal/platform/crypto"
	"hrflow/internal/platform/db"
	"hrflow/internal/platform/email"
	"hrflow/internal/platform/jobs"
	"hrflow/internal/platform/metrics"
	adminhandler "hrflow/internal/transport/http/handlers/admin"
	audithandler "hrflow/internal/transport/http/handlers/audit"
	authhandler "hrflow/internal/transport/http/handlers/auth"
	cataloghandler "hrflow/internal/transport/http/handlers/catalog"
	dasubhandler "hrflow/internal/transport/http/handlers/dasub"
	evaluationhandler "hrflow/internal/transport/http/handlers/evaluation"
	mdahandler "hrflow/internal/transport/http/handlers/mda"
	notificationshandler "hrflow/internal/transport/http/handlers/notifications"
	pdphandler "hrflow/internal/transport/http/handlers/pdp"
	"hrflow/internal/transport/http/middleware"
)

type App struct {
	Config config.Config
	DB     *db.Pool
	Router http.Handler
	Jobs   *jobs.Service
}

// New builds the application: database, migrations, seed data, services,
// and the fully wired router. The caller owns Close.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect failed: %w", err)
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, "migrations"); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations failed: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed failed: %w", err)
		}
	}

	crypto, err := cryptoutil.New(cfg.DataEncryptionKey)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("encryption setup failed: %w", err)
	}

	perms := auth.NewPermissionChecker(pool)
	auditSvc := audit.New(pool)
	mailer := email.New(cfg)
	notifySvc := notifications.New(notifications.NewStore(pool), mailer)
	if cfg.EmailFrom != "" {
		notifySvc.DefaultFrom = cfg.EmailFrom
	}

	catalogSvc := catalog.NewService(catalog.NewStore(pool))
	submissionSvc := dasub.NewService(dasub.NewStore(pool), catalogSvc)
	evaluationSvc := evaluation.NewService(evaluation.NewStore(pool), catalogSvc)
	adviceSvc := mda.NewService(mda.NewStore(pool), submissionSvc)
	taskSvc := pdp.NewService(pdp.NewStore(pool))

	jobsSvc := jobs.New(pool, cfg, evaluationSvc, notifySvc)

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.New()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Metrics(collector))
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		authHandler := authhandler.NewHandler(auth.NewService(auth.NewStore(pool)), cfg.JWTSecret, crypto, mailer, cfg.EmailFrom, cfg.FrontendBaseURL, cfg.PasswordResetTTL, auditSvc)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/logout", authHandler.HandleLogout)
		r.Post("/auth/refresh", authHandler.HandleRefresh)
		r.Post("/auth/request-reset", authHandler.HandleRequestReset)
		r.Post("/auth/reset", authHandler.HandleResetPassword)
		r.Post("/auth/mfa/setup", authHandler.HandleMFASetup)
		r.Post("/auth/mfa/enable", authHandler.HandleMFAEnable)
		r.Post("/auth/mfa/disable", authHandler.HandleMFADisable)

		cataloghandler.NewHandler(catalogSvc, perms).RegisterRoutes(r)
		dasubhandler.NewHandler(submissionSvc, perms, notifySvc, auditSvc, middleware.NewIdempotencyStore(pool)).RegisterRoutes(r)
		evaluationhandler.NewHandler(evaluationSvc, perms, notifySvc, auditSvc).RegisterRoutes(r)
		mdahandler.NewHandler(adviceSvc, perms, notifySvc, auditSvc, crypto).RegisterRoutes(r)
		pdphandler.NewHandler(taskSvc, submissionSvc, perms, notifySvc, auditSvc).RegisterRoutes(r)
		notificationshandler.NewHandler(notifySvc).RegisterRoutes(r)
		audithandler.NewHandler(auditSvc, perms).RegisterRoutes(r)
		adminhandler.NewHandler(perms, collector, jobsSvc, auditSvc).RegisterRoutes(r)
	})

	router.Mount("/", spaHandler{staticPath: cfg.FrontendDir, indexPath: "index.html"})

	return &App{Config: cfg, DB: pool, Router: router, Jobs: jobsSvc}, nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

func Run() {
	cfg := config.Load()

	ctx := context.Background()
	app, err := New(ctx, cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer app.Close()

	app.Jobs.Start(ctx)

	log.Printf("hrflow server listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, app.Router); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

type spaHandler struct {
	staticPath string
	indexPath  string
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(h.staticPath, r.URL.Path)
	_, err := os.Stat(path)
	if err == nil {
		http.FileServer(http.Dir(h.staticPath)).ServeHTTP(w, r)
		return
	}

	if os.IsNotExist(err) {
		http.ServeFile(w, r, filepath.Join(h.staticPath, h.indexPath))
		return
	}

	http.NotFound(w, r)
}
