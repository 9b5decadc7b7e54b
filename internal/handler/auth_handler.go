package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go-plan-portal/internal/middleware"
	"go-plan-portal/internal/model"
	"go-plan-portal/internal/requestctx"
	"go-plan-portal/internal/route"
	"go-plan-portal/pkg/apierror"
)

type authenticator interface {
	Login(ctx context.Context, req model.LoginRequest) (model.AuthUser, model.TokenPair, error)
	Register(ctx context.Context, req model.RegisterRequest) (model.AuthUser, model.TokenPair, error)
}

type accessRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

type AuthHandlerOptions struct {
	CookieSecure     bool
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	RecaptchaSiteKey string
}

type AuthHandler struct {
	auth      authenticator
	refresher accessRefresher
	opts      AuthHandlerOptions
}

func NewAuthHandler(auth authenticator, refresher accessRefresher, opts AuthHandlerOptions) *AuthHandler {
	return &AuthHandler{auth: auth, refresher: refresher, opts: opts}
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, model.PageModel{View: "login", RecaptchaSiteKey: h.opts.RecaptchaSiteKey})
}

func (h *AuthHandler) RegisterPage(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, model.PageModel{View: "register", RecaptchaSiteKey: h.opts.RecaptchaSiteKey})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, apierror.BadRequest("invalid form body", ""))
		return
	}

	_, tokens, err := h.auth.Login(r.Context(), model.LoginRequest{
		Email:         r.PostFormValue("email"),
		Password:      r.PostFormValue("password"),
		RecaptchaCode: firstFormValue(r, "g_recaptcha_response", "g-recaptcha-response"),
		ClientIP:      clientIP(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSession(w, tokens)
	http.Redirect(w, r, route.DashboardPath, http.StatusFound)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, apierror.BadRequest("invalid form body", ""))
		return
	}

	acceptDPA, _ := strconv.ParseBool(r.PostFormValue("accept_dpa"))
	if r.PostFormValue("accept_dpa") == "on" {
		acceptDPA = true
	}

	_, tokens, err := h.auth.Register(r.Context(), model.RegisterRequest{
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
		FullName:        r.PostFormValue("full_name"),
		LastName:        r.PostFormValue("last_name"),
		PhoneNumber:     r.PostFormValue("phone_number"),
		Company:         r.PostFormValue("company"),
		JobTitle:        r.PostFormValue("job_title"),
		AcceptDPA:       acceptDPA,
		RecaptchaCode:   firstFormValue(r, "g_recaptcha_response_register", "g-recaptcha-response"),
		ClientIP:        clientIP(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSession(w, tokens)
	http.Redirect(w, r, route.DashboardPath, http.StatusFound)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearSessionCookies(w, h.opts.CookieSecure)
	http.Redirect(w, r, route.LoginPath, http.StatusFound)
}

// Refresh mints a new access cookie from the refresh cookie. Unlike the
// implicit renewal done by the session middleware it reports failures.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	expiresIn := map[string]any{"expires_in": int(h.opts.AccessTTL / time.Second)}

	// The session middleware already renewed the cookie from the same
	// refresh token.
	if requestctx.SessionRenewed(r.Context()) {
		writeSuccess(w, http.StatusOK, expiresIn)
		return
	}

	refreshToken := ""
	if cookie, err := r.Cookie(middleware.RefreshCookieName); err == nil {
		refreshToken = strings.TrimSpace(cookie.Value)
	}

	access, err := h.refresher.Refresh(r.Context(), refreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	middleware.SetSessionCookie(w, middleware.AccessCookieName, access, h.opts.AccessTTL, h.opts.CookieSecure)
	writeSuccess(w, http.StatusOK, expiresIn)
}

func (h *AuthHandler) setSession(w http.ResponseWriter, tokens model.TokenPair) {
	middleware.SetSessionCookie(w, middleware.AccessCookieName, tokens.AccessToken, h.opts.AccessTTL, h.opts.CookieSecure)
	middleware.SetSessionCookie(w, middleware.RefreshCookieName, tokens.RefreshToken, h.opts.RefreshTTL, h.opts.CookieSecure)
}

func firstFormValue(r *http.Request, names ...string) string {
	for _, name := range names {
		if value := strings.TrimSpace(r.PostFormValue(name)); value != "" {
			return value
		}
	}
	return ""
}
