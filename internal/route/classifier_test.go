package route

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		path string
		want Class
	}{
		{"/dashboard", Protected},
		{"/dashboard/orders", Protected},
		{"/items/42", Protected},
		{"/payments/checkout", Protected},
		{"/payments/paid", Protected},
		{"/auth/login", AuthOnly},
		{"/auth/register", AuthOnly},
		{"/auth/logout", Public},
		{"/auth/refresh", Public},
		{"/static/x.css", Public},
		{"/static", Public},
		{"/", Public},
		{"/dashboards", Other},
		{"/staticfiles/x.css", Other},
		{"/api/contact", Other},
		{"/webhooks/izipay/ipn", Other},
		{"", Other},
	}

	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			require.Equal(t, tc.want, Classify(tc.path))
		})
	}
}

func TestShouldBlockPlanAccess(t *testing.T) {
	t.Parallel()

	require.False(t, ShouldBlockPlanAccess("/payments/checkout"))
	require.False(t, ShouldBlockPlanAccess("/payments/checkout/confirm"))
	require.False(t, ShouldBlockPlanAccess("/payments/paid"))
	require.True(t, ShouldBlockPlanAccess("/payments/history"))
	require.True(t, ShouldBlockPlanAccess("/dashboard"))
	require.True(t, ShouldBlockPlanAccess("/items"))
}

func TestIsLogout(t *testing.T) {
	t.Parallel()

	require.True(t, IsLogout("/auth/logout"))
	require.False(t, IsLogout("/auth/login"))
	require.False(t, IsLogout("/dashboard"))
}

func TestRouteListsDoNotOverlap(t *testing.T) {
	t.Parallel()

	require.NoError(t, Validate())

	for _, path := range []string{"/dashboard", "/items/1", "/payments/checkout", "/auth/login", "/static/app.js"} {
		require.False(t, IsPublic(path) && IsProtected(path), path)
	}
}

func TestClassString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "public", Public.String())
	require.Equal(t, "protected", Protected.String())
	require.Equal(t, "auth_only", AuthOnly.String())
	require.Equal(t, "other", Other.String())
}
