package middleware

import (
	"net/http"
	"path"
	"strings"

	"go-plan-portal/internal/route"
)

const paymentProviderOrigin = "https://secure.micuentaweb.pe"

type headerProfile struct {
	csp               string
	frameOptions      string
	permissionsPolicy string
	isolateOrigin     bool
}

var (
	checkoutProfile = headerProfile{
		csp: "default-src 'self'; " +
			"script-src 'self' 'unsafe-inline' https://cdn.tailwindcss.com https://static.micuentaweb.pe https://secure.micuentaweb.pe https://h.online-metrix.net https://*.online-metrix.net; " +
			"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com https://static.micuentaweb.pe https://cdn.jsdelivr.net; " +
			"img-src 'self' data: https://img.icons8.com https://cdn.jsdelivr.net https://static.micuentaweb.pe https://h.online-metrix.net https://*.online-metrix.net; " +
			"font-src 'self' https://fonts.gstatic.com; " +
			"frame-src https://secure.micuentaweb.pe https://static.micuentaweb.pe https://h.online-metrix.net https://*.online-metrix.net; " +
			"connect-src 'self' https://secure.micuentaweb.pe https://h.online-metrix.net https://*.online-metrix.net; " +
			"frame-ancestors 'self' " + paymentProviderOrigin + "; " +
			"object-src 'none'",
		frameOptions:      "ALLOW-FROM " + paymentProviderOrigin,
		permissionsPolicy: "accelerometer=(), camera=(), gyroscope=(), geolocation=(), microphone=(), payment=(self \"" + paymentProviderOrigin + "\"), usb=()",
	}

	docsProfile = headerProfile{
		csp: "default-src 'self'; " +
			"script-src 'self' 'unsafe-inline' 'unsafe-eval' https://cdn.jsdelivr.net; " +
			"style-src 'self' 'unsafe-inline' https://cdn.jsdelivr.net https://fonts.googleapis.com; " +
			"img-src 'self' data: https://cdn.jsdelivr.net; " +
			"font-src 'self' https://fonts.gstatic.com; " +
			"object-src 'none'",
		frameOptions:      "DENY",
		permissionsPolicy: restrictivePermissions,
	}

	defaultProfile = headerProfile{
		csp: "default-src 'self' https://www.google.com/recaptcha/; " +
			"script-src 'self' 'unsafe-inline' 'unsafe-eval' https://cdn.twind.style/ https://cdn.tailwindcss.com https://www.google.com/recaptcha/ https://www.gstatic.com/recaptcha/; " +
			"style-src 'self' 'unsafe-inline' https://cdn.jsdelivr.net https://fonts.googleapis.com; " +
			"img-src 'self' data: https://img.icons8.com https://cdn.jsdelivr.net; " +
			"font-src 'self' https://fonts.gstatic.com; " +
			"frame-src https://www.google.com/recaptcha/; " +
			"object-src 'none'",
		frameOptions:      "DENY",
		permissionsPolicy: restrictivePermissions,
		isolateOrigin:     true,
	}
)

const restrictivePermissions = "accelerometer=(), camera=(), gyroscope=(), geolocation=(), microphone=(), payment=(), usb=()"

// SecurityHeaders sets the response hardening headers before the rest of the
// chain runs, so redirects and errors written by inner layers carry them too.
func SecurityHeaders(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profile := profileFor(r.URL.Path)
			h := w.Header()

			h.Set("Content-Security-Policy", profile.csp)
			h.Set("X-Frame-Options", profile.frameOptions)
			h.Set("Permissions-Policy", profile.permissionsPolicy)
			if profile.isolateOrigin {
				h.Set("Cross-Origin-Opener-Policy", "same-origin")
				h.Set("Cross-Origin-Embedder-Policy", "same-origin")
			}

			if isHTTPS(r, trustProxy) {
				h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains; preload")
			}
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next.ServeHTTP(w, r)
		})
	}
}

func profileFor(rawPath string) headerProfile {
	cleaned := path.Clean("/" + rawPath)

	switch {
	case route.HasSegmentPrefix(cleaned, route.CheckoutPath):
		return checkoutProfile
	case route.HasSegmentPrefix(cleaned, "/docs"),
		route.HasSegmentPrefix(cleaned, "/redoc"),
		cleaned == "/openapi.yaml":
		return docsProfile
	default:
		return defaultProfile
	}
}

func isHTTPS(r *http.Request, trustProxy bool) bool {
	if r.TLS != nil {
		return true
	}
	return trustProxy && strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")), "https")
}
