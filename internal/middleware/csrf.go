package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"

	"go-plan-portal/internal/model"
	"go-plan-portal/internal/requestctx"
)

const (
	CSRFHeaderName = "x-csrf-token"
	CSRFCookieName = "csrf_token"

	csrfTokenBytes  = 32
	csrfTokenMaxAge = 3600
)

var csrfExemptPaths = map[string]struct{}{
	"/payments/paid":       {},
	"/webhooks/izipay/ipn": {},
	"/consents":            {},
}

type securityRecorder interface {
	Record(ctx context.Context, event model.SecurityEvent)
}

// CSRF enforces the double-submit check on mutating requests made by an
// authenticated caller. It must run after Session so the identity is known.
func CSRF(recorder securityRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !csrfApplies(r) {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get(CSRFHeaderName)
			cookie, err := r.Cookie(CSRFCookieName)
			if err != nil || header == "" || cookie.Value == "" ||
				subtle.ConstantTimeCompare([]byte(header), []byte(cookie.Value)) != 1 {
				if recorder != nil {
					recorder.Record(r.Context(), model.SecurityEvent{
						IPAddress:   clientIPOf(r),
						EventType:   model.EventCSRFFailed,
						Description: "csrf token mismatch on " + r.Method + " " + r.URL.Path,
					})
				}
				writeJSONError(w, http.StatusForbidden, "CSRF_FAILED", "CSRF token missing or invalid")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func csrfApplies(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}

	if _, exempt := csrfExemptPaths[r.URL.Path]; exempt {
		return false
	}

	_, authenticated := requestctx.Identity(r.Context())
	return authenticated
}

// IssueCSRFToken sets a fresh token cookie and returns the value so the page
// can echo it back in the x-csrf-token header.
func IssueCSRFToken(w http.ResponseWriter, secure bool) (string, error) {
	raw := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate csrf token: %w", err)
	}

	token := base64.RawURLEncoding.EncodeToString(raw)
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   csrfTokenMaxAge,
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})

	return token, nil
}
