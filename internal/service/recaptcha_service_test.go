package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecaptchaServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "shh", r.PostForm.Get("secret"))
		assert.Equal(t, "token", r.PostForm.Get("response"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRecaptchaVerifier(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	cases := []struct {
		name   string
		status int
		body   string
		action string
		want   bool
		err    bool
	}{
		{"accepted", http.StatusOK, `{"success":true,"action":"login","score":0.9}`, "login", true, false},
		{"score at threshold", http.StatusOK, `{"success":true,"action":"login","score":0.5}`, "login", true, false},
		{"low score", http.StatusOK, `{"success":true,"action":"login","score":0.3}`, "login", false, false},
		{"other action", http.StatusOK, `{"success":true,"action":"register","score":0.9}`, "login", false, false},
		{"unsuccessful", http.StatusOK, `{"success":false,"error-codes":["invalid-input-response"]}`, "login", false, false},
		{"upstream error", http.StatusBadGateway, `oops`, "login", false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newRecaptchaServer(t, tc.status, tc.body)
			v := NewRecaptchaVerifier("shh", 0.5)
			v.endpoint = srv.URL

			ok, err := v.Verify(ctx, "token", tc.action)
			if tc.err {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tc.want, ok)
		})
	}

	t.Run("disabled without secret", func(t *testing.T) {
		v := NewRecaptchaVerifier("", 0.5)
		require.False(t, v.Enabled())

		ok, err := v.Verify(ctx, "", "login")
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("empty token is rejected without a call", func(t *testing.T) {
		v := NewRecaptchaVerifier("shh", 0.5)
		v.endpoint = "http://127.0.0.1:1"

		ok, err := v.Verify(ctx, " ", "login")
		require.NoError(t, err)
		require.False(t, ok)
	})
}
