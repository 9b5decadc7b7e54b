package handler

import (
	"net"
	"net/http"
	"strings"

	"go-plan-portal/internal/model"
	"go-plan-portal/internal/requestctx"
	"go-plan-portal/pkg/apierror"
)

// currentIdentity returns the caller stored by the session middleware.
// Protected routes never reach a handler without one, so a missing identity
// means the route was mounted outside the session chain.
func currentIdentity(r *http.Request) (*model.Identity, error) {
	identity, ok := requestctx.Identity(r.Context())
	if !ok {
		return nil, apierror.Unauthorized("UNAUTHORIZED", "authentication required")
	}
	return identity, nil
}

func clientIP(r *http.Request) string {
	if ip := requestctx.ClientIP(r.Context()); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}

	return r.RemoteAddr
}
