//go:build integration

package integration

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-plan-portal/internal/config"
	"go-plan-portal/internal/database"
	"go-plan-portal/internal/handler"
	"go-plan-portal/internal/middleware"
	"go-plan-portal/internal/repository"
	"go-plan-portal/internal/router"
	"go-plan-portal/internal/service"
)

type testEnv struct {
	server *httptest.Server
	client *http.Client
	audit  *service.AuditService
	logs   *repository.SecurityLogRepository
}

// newTestEnv wires the full stack against TEST_DATABASE_URL. The schema is
// migrated and every table is emptied first.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	databaseURL := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, databaseURL, database.PoolOptions{MaxConns: 4, MinConns: 1})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.Migrate())
	_, err = db.Pool.Exec(ctx, "TRUNCATE items, security_logs, orders, users, plans RESTART IDENTITY CASCADE")
	require.NoError(t, err)

	cfg := &config.Config{
		Environment:          "test",
		JWTSecret:            "integration-secret",
		JWTAccessTTL:         15 * time.Minute,
		JWTRefreshTTL:        24 * time.Hour,
		RateLimitRPM:         -1,
		AuthRateLimitRPM:     1000,
		RequestTimeout:       10 * time.Second,
		LoginRateLimit:       100,
		LoginRateWindow:      time.Minute,
		MaxFailedAttempts:    5,
		LockTime:             30 * time.Minute,
		HasFreeDemo:          true,
		FreePlanName:         "free",
		FreePlanValidityDays: 30,
	}

	users := repository.NewUserRepository(db.Pool)
	plans := repository.NewPlanRepository(db.Pool)
	orders := repository.NewOrderRepository(db.Pool)
	items := repository.NewItemRepository(db.Pool)
	logs := repository.NewSecurityLogRepository(db.Pool)

	_, err = service.SeedFreePlan(ctx, plans, cfg.FreePlanName, cfg.FreePlanValidityDays)
	require.NoError(t, err)

	tokens, err := service.NewTokenService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	require.NoError(t, err)

	audit := service.NewAuditService(logs, 64)
	t.Cleanup(audit.Close)

	planService := service.NewPlanService(plans)
	identities := service.NewIdentityService(tokens, users)
	auth := service.NewAuthService(users, plans, tokens, service.NewRecaptchaVerifier("", 0.5), audit, service.AuthOptions{
		MaxFailedAttempts: cfg.MaxFailedAttempts,
		LockTime:          cfg.LockTime,
		FreePlanName:      cfg.FreePlanName,
		BcryptCost:        4,
	})
	itemService := service.NewItemService(items)

	server := httptest.NewServer(router.New(cfg, router.Deps{
		Identities:   identities,
		Access:       service.NewAccessService(planService, audit),
		Audit:        audit,
		Metrics:      middleware.NewMetrics(),
		LoginLimiter: middleware.NewMemoryLoginLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow),
		Auth: handler.NewAuthHandler(auth, identities, handler.AuthHandlerOptions{
			AccessTTL:  cfg.JWTAccessTTL,
			RefreshTTL: cfg.JWTRefreshTTL,
		}),
		Dashboard: handler.NewDashboardHandler(planService, itemService, false),
		Items:     handler.NewItemHandler(itemService),
		Events:    handler.NewSecurityLogHandler(logs),
		Orders:    handler.NewOrderHandler(service.NewOrderService(orders)),
		Settings:  handler.NewSettingsHandler(service.NewProfileService(users), false),
		Payments:  handler.NewPaymentHandler(service.NewPaymentService(orders, plans, audit, "hmac-key", "ipn-key")),
		Health:    handler.NewHealthHandler(db),
		Docs:      handler.NewDocsHandler(),
	}))
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testEnv{
		server: server,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		audit: audit,
		logs:  logs,
	}
}

func (e *testEnv) postForm(t *testing.T, path string, values url.Values, headers map[string]string) *http.Response {
	t.Helper()
	return e.send(t, http.MethodPost, path, values, headers)
}

func (e *testEnv) send(t *testing.T, method string, path string, values url.Values, headers map[string]string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(values.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := e.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()

	resp, err := e.client.Get(e.server.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) cookie(t *testing.T, name string) string {
	t.Helper()

	serverURL, err := url.Parse(e.server.URL)
	require.NoError(t, err)
	for _, c := range e.client.Jar.Cookies(serverURL) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}
