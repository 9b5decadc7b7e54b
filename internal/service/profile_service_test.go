package service

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-plan-portal/internal/model"
)

func profileOwner() model.User {
	u := model.User{ID: 7, Email: "ana@example.com", FullName: "Ana", PhoneNumber: "111", Company: "Acme"}
	u.StampCreated(nil, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	return u
}

func TestProfileServiceUpdate(t *testing.T) {
	t.Parallel()

	t.Run("cleans and stores the fields", func(t *testing.T) {
		t.Parallel()

		users := newFakeUsers(profileOwner())
		svc := NewProfileService(users)

		user, err := svc.Update(context.Background(), model.NewIdentity(profileOwner()), model.ProfileUpdate{
			FullName:    "  Ana\u200b  María ",
			PhoneNumber: "+51\t999 000",
			JobTitle:    "CTO",
		})
		require.NoError(t, err)
		assert.Equal(t, "Ana María", user.FullName)
		assert.Equal(t, "+51 999 000", user.PhoneNumber)
		assert.Empty(t, user.Company)
		assert.Equal(t, "Ana María", users.get("ana@example.com").FullName)
	})

	t.Run("rejects missing required fields", func(t *testing.T) {
		t.Parallel()

		users := newFakeUsers(profileOwner())
		svc := NewProfileService(users)

		_, err := svc.Update(context.Background(), model.NewIdentity(profileOwner()), model.ProfileUpdate{FullName: "Ana", PhoneNumber: "  "})
		apiErr := requireAPIError(t, err, "BAD_REQUEST", http.StatusBadRequest)
		assert.Equal(t, "phone_number is required", apiErr.Message)
		assert.Equal(t, "111", users.get("ana@example.com").PhoneNumber)
	})

	t.Run("rejects oversized and null byte values", func(t *testing.T) {
		t.Parallel()

		svc := NewProfileService(newFakeUsers(profileOwner()))
		for _, update := range []model.ProfileUpdate{
			{FullName: "Ana", PhoneNumber: "1", Company: strings.Repeat("x", 121)},
			{FullName: "Ana\x00", PhoneNumber: "1"},
		} {
			_, err := svc.Update(context.Background(), model.NewIdentity(profileOwner()), update)
			requireAPIError(t, err, "BAD_REQUEST", http.StatusBadRequest)
		}
	})

	t.Run("deleted account is not found", func(t *testing.T) {
		t.Parallel()

		_, err := NewProfileService(newFakeUsers()).Update(context.Background(), model.NewIdentity(profileOwner()),
			model.ProfileUpdate{FullName: "Ana", PhoneNumber: "1"})
		requireAPIError(t, err, "NOT_FOUND", http.StatusNotFound)
	})
}

func TestProfileServiceDelete(t *testing.T) {
	t.Parallel()

	users := newFakeUsers(profileOwner())
	svc := NewProfileService(users)
	identity := model.NewIdentity(profileOwner())

	require.NoError(t, svc.Delete(context.Background(), identity))
	_, err := users.FindByEmail(context.Background(), "ana@example.com")
	require.ErrorIs(t, err, model.ErrUserNotFound)

	err = svc.Delete(context.Background(), identity)
	requireAPIError(t, err, "NOT_FOUND", http.StatusNotFound)
}

func TestProfileServiceExport(t *testing.T) {
	t.Parallel()

	svc := NewProfileService(newFakeUsers(profileOwner()))

	export, err := svc.Export(context.Background(), model.NewIdentity(profileOwner()))
	require.NoError(t, err)
	assert.Equal(t, model.ProfileExport{
		ID:          7,
		Email:       "ana@example.com",
		FullName:    "Ana",
		PhoneNumber: "111",
		Company:     "Acme",
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}, export)
}

func TestProfileServiceStoreFailure(t *testing.T) {
	t.Parallel()

	users := newFakeUsers(profileOwner())
	users.err = errStoreDown
	svc := NewProfileService(users)

	err := svc.Delete(context.Background(), model.NewIdentity(profileOwner()))
	require.ErrorIs(t, err, errStoreDown)
}
