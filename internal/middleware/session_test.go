package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-plan-portal/internal/model"
	"go-plan-portal/internal/requestctx"
	"go-plan-portal/internal/service"
)

const sessionSecret = "session-test-secret"

type memoryUsers map[string]model.User

func (m memoryUsers) FindByEmail(_ context.Context, email string) (model.User, error) {
	user, ok := m[email]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return user, nil
}

type stubPlanStatus struct {
	status model.PlanStatus
}

func (s stubPlanStatus) Status(context.Context, model.User) (model.PlanStatus, error) {
	return s.status, nil
}

type recordingAudit struct {
	mu     sync.Mutex
	events []model.SecurityEvent
}

func (r *recordingAudit) Record(_ context.Context, event model.SecurityEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingAudit) types() []model.SecurityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.SecurityEventType, 0, len(r.events))
	for _, event := range r.events {
		out = append(out, event.EventType)
	}
	return out
}

type sessionFixture struct {
	tokens  *service.TokenService
	audit   *recordingAudit
	handler http.Handler
	seen    *model.Identity
	renewed bool
	calls   int
}

var member = model.User{ID: 11, Email: "member@example.com", FullName: "Member"}

func newSessionFixture(t *testing.T, status model.PlanStatus) *sessionFixture {
	t.Helper()

	tokens, err := service.NewTokenService(sessionSecret, time.Hour, 24*time.Hour)
	require.NoError(t, err)

	f := &sessionFixture{tokens: tokens, audit: &recordingAudit{}}
	identities := service.NewIdentityService(tokens, memoryUsers{member.Email: member})
	access := service.NewAccessService(stubPlanStatus{status: status}, f.audit)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls++
		f.seen = IdentityFromContext(r.Context())
		f.renewed = requestctx.SessionRenewed(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	f.handler = Session(identities, access, SessionOptions{AccessTTL: tokens.AccessTTL(), CookieSecure: true})(inner)
	return f
}

func (f *sessionFixture) issue(t *testing.T, kind model.TokenKind) string {
	t.Helper()
	token, err := f.tokens.Issue(member.Email, kind)
	require.NoError(t, err)
	return token
}

func expiredAccessToken(t *testing.T, subject string) string {
	t.Helper()

	past := time.Now().Add(-2 * time.Hour)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"typ": string(model.TokenKindAccess),
		"iat": past.Unix(),
		"exp": past.Add(time.Hour).Unix(),
	}).SignedString([]byte(sessionSecret))
	require.NoError(t, err)
	return token
}

func serve(handler http.Handler, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestSessionAnonymousProtectedRedirectsToLogin(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(t, model.PlanStatusActive)
	rec := serve(f.handler, "/dashboard")

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get("Location"))
	assert.Equal(t, []model.SecurityEventType{model.EventUnauthorizedAccess}, f.audit.types())
	assert.Zero(t, f.calls)
}

func TestSessionNoPlanRedirectsToCheckout(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(t, model.PlanStatusNone)
	rec := serve(f.handler, "/dashboard", &http.Cookie{Name: AccessCookieName, Value: f.issue(t, model.TokenKindAccess)})

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/payments/checkout?plan=starter", rec.Header().Get("Location"))
	assert.Zero(t, f.calls)
}

func TestSessionExpiredPlanIsDenied(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(t, model.PlanStatusExpired)
	rec := serve(f.handler, "/dashboard/items", &http.Cookie{Name: AccessCookieName, Value: f.issue(t, model.TokenKindAccess)})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))
	assert.Contains(t, rec.Body.String(), `"PLAN_EXPIRED"`)
	assert.Zero(t, f.calls)
}

func TestSessionAuthenticatedLoginPageRedirectsToDashboard(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(t, model.PlanStatusActive)
	rec := serve(f.handler, "/auth/login", &http.Cookie{Name: AccessCookieName, Value: f.issue(t, model.TokenKindAccess)})

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestSessionRenewsFromRefreshToken(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(t, model.PlanStatusActive)
	expired := &http.Cookie{Name: AccessCookieName, Value: expiredAccessToken(t, member.Email)}
	refresh := &http.Cookie{Name: RefreshCookieName, Value: f.issue(t, model.TokenKindRefresh)}

	for i := 0; i < 2; i++ {
		rec := serve(f.handler, "/dashboard", expired, refresh)

		require.Equal(t, http.StatusNoContent, rec.Code, "request %d", i)
		require.NotNil(t, f.seen)
		assert.Equal(t, member.ID, f.seen.UserID)
		assert.True(t, f.renewed, "request %d", i)

		renewed := findCookie(rec, AccessCookieName)
		require.NotNil(t, renewed, "request %d", i)
		assert.NotEmpty(t, renewed.Value)
		assert.True(t, renewed.HttpOnly)
		assert.True(t, renewed.Secure)
		assert.Equal(t, http.SameSiteLaxMode, renewed.SameSite)
		assert.Equal(t, int(time.Hour/time.Second), renewed.MaxAge)

		payload := f.tokens.Decode(renewed.Value)
		require.NotNil(t, payload)
		assert.Equal(t, member.Email, payload.Subject)
	}
}

func TestSessionDoesNotRenewOnLogout(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(t, model.PlanStatusActive)
	rec := serve(f.handler, "/auth/logout", &http.Cookie{Name: RefreshCookieName, Value: f.issue(t, model.TokenKindRefresh)})

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, findCookie(rec, AccessCookieName))
	assert.Nil(t, f.seen)
}

func TestSessionActiveUserPassesThrough(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(t, model.PlanStatusActive)
	rec := serve(f.handler, "/dashboard", &http.Cookie{Name: AccessCookieName, Value: f.issue(t, model.TokenKindAccess)})

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, f.seen)
	assert.Equal(t, member.Email, f.seen.Email)
	assert.False(t, f.renewed)
	assert.Nil(t, findCookie(rec, AccessCookieName))
}

func TestSessionReportsDecisions(t *testing.T) {
	t.Parallel()

	tokens, err := service.NewTokenService(sessionSecret, time.Hour, 24*time.Hour)
	require.NoError(t, err)

	var kinds []string
	handler := Session(
		service.NewIdentityService(tokens, memoryUsers{}),
		service.NewAccessService(stubPlanStatus{}, nil),
		SessionOptions{OnDecision: func(d service.Decision) { kinds = append(kinds, d.Kind.String()) }},
	)(okHandler())

	serve(handler, "/")
	serve(handler, "/auth/register")

	assert.Equal(t, []string{"allow", "allow"}, kinds)
}
