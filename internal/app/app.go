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

	"github.com/redis/go-redis/v9"

	"go-plan-portal/internal/config"
	"go-plan-portal/internal/database"
	"go-plan-portal/internal/handler"
	"go-plan-portal/internal/middleware"
	"go-plan-portal/internal/repository"
	"go-plan-portal/internal/route"
	"go-plan-portal/internal/router"
	"go-plan-portal/internal/scheduler"
	"go-plan-portal/internal/service"
)

type App struct {
	server       *http.Server
	admin        *http.Server
	scheduler    *scheduler.Scheduler
	cleanupFuncs []func()
}

func New(cfg *config.Config) (*App, error) {
	if err := route.Validate(); err != nil {
		return nil, fmt.Errorf("invalid route classification: %w", err)
	}

	ctx := context.Background()

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, cfg.DatabaseURL, database.PoolOptions{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	planRepo := repository.NewPlanRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	itemRepo := repository.NewItemRepository(pool)
	securityLogRepo := repository.NewSecurityLogRepository(pool)
	slog.Info("database ready")

	tokenService, err := service.NewTokenService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	auditService := service.NewAuditService(securityLogRepo, cfg.AuditBufferSize)
	planService := service.NewPlanService(planRepo)
	identityService := service.NewIdentityService(tokenService, userRepo)
	accessService := service.NewAccessService(planService, auditService)

	freePlanName := ""
	if cfg.HasFreeDemo {
		plan, err := service.SeedFreePlan(ctx, planRepo, cfg.FreePlanName, cfg.FreePlanValidityDays)
		if err != nil {
			auditService.Close()
			db.Close()
			return nil, fmt.Errorf("failed to seed free plan: %w", err)
		}
		if plan != nil {
			freePlanName = plan.Name
		}
	}

	recaptcha := service.NewRecaptchaVerifier(cfg.RecaptchaSecretKey, cfg.RecaptchaMinScore)
	if !recaptcha.Enabled() {
		slog.Warn("reCAPTCHA secret not configured, human verification is disabled")
	}

	authService := service.NewAuthService(userRepo, planRepo, tokenService, recaptcha, auditService, service.AuthOptions{
		MaxFailedAttempts: cfg.MaxFailedAttempts,
		LockTime:          cfg.LockTime,
		FreePlanName:      freePlanName,
	})
	paymentService := service.NewPaymentService(orderRepo, planRepo, auditService, cfg.IzipayHMACKey, cfg.IzipayPassword)
	itemService := service.NewItemService(itemRepo)

	loginLimiter, closeLimiter, err := newLoginLimiter(ctx, cfg)
	if err != nil {
		auditService.Close()
		db.Close()
		return nil, err
	}

	maintenance, err := scheduler.New(orderRepo, securityLogRepo, scheduler.Options{
		Schedule:             cfg.CleanupSchedule,
		PendingOrderMaxAge:   cfg.PendingOrderMaxAge,
		SecurityLogRetention: cfg.SecurityLogRetention,
	})
	if err != nil {
		closeLimiter()
		auditService.Close()
		db.Close()
		return nil, fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	metrics := middleware.NewMetrics()

	appRouter := router.New(cfg, router.Deps{
		Identities:   identityService,
		Access:       accessService,
		Audit:        auditService,
		Metrics:      metrics,
		LoginLimiter: loginLimiter,
		Auth: handler.NewAuthHandler(authService, identityService, handler.AuthHandlerOptions{
			CookieSecure:     cfg.CookieSecure,
			AccessTTL:        cfg.JWTAccessTTL,
			RefreshTTL:       cfg.JWTRefreshTTL,
			RecaptchaSiteKey: cfg.RecaptchaSiteKey,
		}),
		Dashboard: handler.NewDashboardHandler(planService, itemService, cfg.CookieSecure),
		Items:     handler.NewItemHandler(itemService),
		Events:    handler.NewSecurityLogHandler(securityLogRepo),
		Orders:    handler.NewOrderHandler(service.NewOrderService(orderRepo)),
		Settings:  handler.NewSettingsHandler(service.NewProfileService(userRepo), cfg.CookieSecure),
		Payments:  handler.NewPaymentHandler(paymentService),
		Health:    handler.NewHealthHandler(db),
		Docs:      handler.NewDocsHandler(),
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	var admin *http.Server
	if cfg.MetricsAddr != "" {
		admin = newAdminServer(cfg.MetricsAddr, metrics)
	}

	// Cleanup runs in order after the server has drained: the audit queue
	// still needs the pool while it flushes.
	return &App{
		server:    server,
		admin:     admin,
		scheduler: maintenance,
		cleanupFuncs: []func(){
			auditService.Close,
			closeLimiter,
			db.Close,
		},
	}, nil
}

func newLoginLimiter(ctx context.Context, cfg *config.Config) (middleware.LoginLimiter, func(), error) {
	if cfg.RedisURL == "" {
		slog.Info("login throttle using in-memory counters")
		return middleware.NewMemoryLoginLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("login throttle using redis", "addr", opts.Addr)
	return middleware.NewRedisLoginLimiter(client, cfg.LoginRateLimit, cfg.LoginRateWindow), func() { _ = client.Close() }, nil
}

// newAdminServer serves /metrics on its own listener, away from the public
// router and its session handling.
func newAdminServer(addr string, metrics *middleware.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler())

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (a *App) Run() error {
	a.scheduler.Start(context.Background())

	if a.admin != nil {
		go func() {
			slog.Info("metrics listener starting", "addr", a.admin.Addr)
			if err := a.admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics listener failed", "error", err)
			}
		}()
	}

	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)
	if a.admin != nil {
		_ = a.admin.Shutdown(ctx)
	}
	a.scheduler.Stop(ctx)

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}
