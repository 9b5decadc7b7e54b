package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-plan-portal/internal/config"
	"go-plan-portal/internal/handler"
	"go-plan-portal/internal/middleware"
	"go-plan-portal/internal/route"
	"go-plan-portal/internal/service"
)

type Deps struct {
	Identities   *service.IdentityService
	Access       *service.AccessService
	Audit        *service.AuditService
	Metrics      *middleware.Metrics
	LoginLimiter middleware.LoginLimiter

	Auth      *handler.AuthHandler
	Dashboard *handler.DashboardHandler
	Items     *handler.ItemHandler
	Events    *handler.SecurityLogHandler
	Orders    *handler.OrderHandler
	Settings  *handler.SettingsHandler
	Payments  *handler.PaymentHandler
	Health    *handler.HealthHandler
	Docs      *handler.DocsHandler
}

// New assembles the request pipeline. Middleware order matters. Security
// headers are set before anything can write. Timeout buffers headers, so it
// must wrap Session for the renewal cookie to survive next to the handler's
// own cookies. CSRF runs after Session to see the identity.
func New(cfg *config.Config, deps Deps) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	sessionOpts := middleware.SessionOptions{
		CookieSecure: cfg.CookieSecure,
		AccessTTL:    cfg.JWTAccessTTL,
	}
	if deps.Metrics != nil {
		sessionOpts.OnDecision = deps.Metrics.ObserveDecision
	}

	r.Use(middleware.Recovery)
	r.Use(middleware.ClientIP(cfg.TrustProxyHeaders))
	r.Use(middleware.Logging)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	r.Use(middleware.SecurityHeaders(cfg.TrustProxyHeaders))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(rateLimitMiddleware.Handler)
	r.Use(middleware.LoginThrottle(deps.LoginLimiter))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Session(deps.Identities, deps.Access, sessionOpts))
	r.Use(middleware.CSRF(deps.Audit))

	r.Get("/health", deps.Health.Health)
	if deps.Metrics != nil && cfg.ServeMetricsPublicly() {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}
	if !cfg.IsProduction() {
		r.Get("/openapi.yaml", deps.Docs.OpenAPI)
		r.Get("/docs", deps.Docs.SwaggerUI)
	}

	r.Route("/auth", func(auth chi.Router) {
		auth.Get("/login", deps.Auth.LoginPage)
		auth.Post("/login", deps.Auth.Login)
		auth.Get("/register", deps.Auth.RegisterPage)
		auth.Post("/register", deps.Auth.Register)
		auth.Get("/logout", deps.Auth.Logout)
		auth.Post("/refresh", deps.Auth.Refresh)
	})

	r.Get(route.DashboardPath, deps.Dashboard.Show)
	r.Get(route.DashboardPath+"/security-events", deps.Events.List)
	r.Get(route.DashboardPath+"/orders", deps.Orders.List)
	r.Get(route.DashboardPath+"/orders/{id}", deps.Orders.Get)

	r.Route(route.DashboardPath+"/settings", func(settings chi.Router) {
		settings.Get("/profile", deps.Settings.Profile)
		settings.Get("/profile/edit", deps.Settings.EditProfile)
		settings.Patch("/profile/edit", deps.Settings.UpdateProfile)
		settings.Delete("/profile/delete", deps.Settings.DeleteAccount)
		settings.Get("/export", deps.Settings.Export)
	})

	r.Route("/items", func(items chi.Router) {
		items.Get("/", deps.Items.List)
		items.Post("/", deps.Items.Create)
		items.Delete("/{id}", deps.Items.Delete)
	})

	r.Get(route.CheckoutPath, deps.Payments.Checkout)
	r.Post(route.PaidPath, deps.Payments.Paid)
	r.Post("/webhooks/izipay/ipn", deps.Payments.IPN)

	return r
}
