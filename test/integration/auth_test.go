//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-plan-portal/internal/middleware"
	"go-plan-portal/internal/model"
)

func registerForm(email string) url.Values {
	return url.Values{
		"email":            {email},
		"password":         {"Sup3r$ecret"},
		"confirm_password": {"Sup3r$ecret"},
		"full_name":        {"Integration"},
		"phone_number":     {"999000111"},
		"accept_dpa":       {"true"},
	}
}

func TestRegisterDashboardAndItems(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postForm(t, "/auth/register", registerForm("flow@example.com"), nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/dashboard", resp.Header.Get("Location"))
	require.NotEmpty(t, env.cookie(t, middleware.AccessCookieName))

	resp = env.get(t, "/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page struct {
		Data struct {
			CSRFToken string `json:"csrf_token"`
			Values    struct {
				Dashboard model.DashboardView `json:"dashboard"`
			} `json:"values"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Equal(t, model.PlanStatusActive, page.Data.Values.Dashboard.PlanStatus)
	require.NotEmpty(t, page.Data.CSRFToken)

	resp = env.postForm(t, "/items", url.Values{"name": {"first"}}, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.postForm(t, "/items", url.Values{"name": {"first"}}, map[string]string{middleware.CSRFHeaderName: page.Data.CSRFToken})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	env.audit.Close()
	events, err := env.logs.Query(context.Background(), model.SecurityLogQuery{EventType: model.EventCSRFFailed})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].UserID)
}

func TestDuplicateRegistrationAndLogin(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postForm(t, "/auth/register", registerForm("dup@example.com"), nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	env.get(t, "/auth/logout")
	assert.Empty(t, env.cookie(t, middleware.AccessCookieName))

	resp = env.postForm(t, "/auth/register", registerForm("dup@example.com"), nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.postForm(t, "/auth/login", url.Values{"email": {"dup@example.com"}, "password": {"wrong"}}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.postForm(t, "/auth/login", url.Values{"email": {"DUP@example.com"}, "password": {"Sup3r$ecret"}}, nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	resp = env.get(t, "/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAnonymousDashboardRedirects(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/dashboard")
	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "/auth/login", resp.Header.Get("Location"))

	resp = env.get(t, "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
