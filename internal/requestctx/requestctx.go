// Package requestctx carries per-request values through context.Context.
// Values stored here live exactly as long as the request that created them.
package requestctx

import (
	"context"

	"go-plan-portal/internal/model"
)

type identityKey struct{}
type clientIPKey struct{}
type renewedKey struct{}

func WithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func Identity(ctx context.Context) (*model.Identity, bool) {
	if ctx == nil {
		return nil, false
	}

	identity, ok := ctx.Value(identityKey{}).(*model.Identity)
	return identity, ok && identity != nil
}

// ActorID returns the user id used for audit stamping, or nil for anonymous
// and background work.
func ActorID(ctx context.Context) *int64 {
	identity, ok := Identity(ctx)
	if !ok {
		return nil
	}

	id := identity.UserID
	return &id
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func ClientIP(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// WithSessionRenewed marks that a fresh access cookie is already on its way
// to the client for this request.
func WithSessionRenewed(ctx context.Context) context.Context {
	return context.WithValue(ctx, renewedKey{}, true)
}

func SessionRenewed(ctx context.Context) bool {
	if ctx == nil {
		return false
	}

	renewed, _ := ctx.Value(renewedKey{}).(bool)
	return renewed
}
