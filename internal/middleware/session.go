package middleware

import (
	"context"
	"net/http"
	"time"

	"go-plan-portal/internal/model"
	"go-plan-portal/internal/requestctx"
	"go-plan-portal/internal/service"
)

type identityResolver interface {
	Resolve(ctx context.Context, creds service.Credentials) service.Resolution
}

type accessDecider interface {
	Decide(ctx context.Context, path string, identity *model.Identity, clientIP string) service.Decision
}

type SessionOptions struct {
	CookieSecure bool
	AccessTTL    time.Duration
	// OnDecision, when set, sees every access decision. Metrics hook in here.
	OnDecision func(service.Decision)
}

// Session resolves the caller from the session cookies, applies the route
// policy and, when the request is allowed, stores the identity in the context
// and sends a renewed access cookie if one was minted. Header-buffering
// middleware such as Timeout must wrap Session, not sit inside it.
func Session(resolver identityResolver, decider accessDecider, opts SessionOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			resolution := resolver.Resolve(ctx, service.Credentials{
				AccessToken:  cookieValue(r, AccessCookieName),
				RefreshToken: cookieValue(r, RefreshCookieName),
				Path:         r.URL.Path,
			})

			decision := decider.Decide(ctx, r.URL.Path, resolution.Identity, clientIPOf(r))
			if opts.OnDecision != nil {
				opts.OnDecision(decision)
			}

			switch decision.Kind {
			case service.Redirect:
				http.Redirect(w, r, decision.Target, http.StatusTemporaryRedirect)
				return
			case service.Deny:
				writeJSONError(w, decision.Status, decision.Code, decision.Message)
				return
			}

			if resolution.RenewedAccessToken != "" {
				SetSessionCookie(w, AccessCookieName, resolution.RenewedAccessToken, opts.AccessTTL, opts.CookieSecure)
				ctx = requestctx.WithSessionRenewed(ctx)
			}

			if resolution.Identity != nil {
				ctx = requestctx.WithIdentity(ctx, resolution.Identity)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the caller stored by Session, or nil.
func IdentityFromContext(ctx context.Context) *model.Identity {
	identity, ok := requestctx.Identity(ctx)
	if !ok {
		return nil
	}
	return identity
}
