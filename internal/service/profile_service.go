package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"go-plan-portal/internal/model"
	"go-plan-portal/internal/util"
	"go-plan-portal/pkg/apierror"
)

const maxProfileFieldLength = 120

type profileStore interface {
	FindByEmail(ctx context.Context, email string) (model.User, error)
	UpdateProfile(ctx context.Context, userID int64, update model.ProfileUpdate) (model.User, error)
	Delete(ctx context.Context, userID int64) error
}

// ProfileService lets a signed-in user edit, export and delete their account.
type ProfileService struct {
	users profileStore
}

func NewProfileService(users profileStore) *ProfileService {
	return &ProfileService{users: users}
}

// Update cleans every field and stores them. Full name and phone number are
// required; the rest may be left blank.
func (s *ProfileService) Update(ctx context.Context, identity *model.Identity, update model.ProfileUpdate) (model.User, error) {
	fields := []struct {
		name     string
		value    *string
		required bool
	}{
		{"full_name", &update.FullName, true},
		{"last_name", &update.LastName, false},
		{"phone_number", &update.PhoneNumber, true},
		{"company", &update.Company, false},
		{"job_title", &update.JobTitle, false},
	}
	for _, f := range fields {
		cleaned, err := cleanProfileField(f.name, *f.value, f.required)
		if err != nil {
			return model.User{}, err
		}
		*f.value = cleaned
	}

	user, err := s.users.UpdateProfile(ctx, identity.UserID, update)
	if err != nil {
		return model.User{}, userLookupError(err)
	}

	slog.InfoContext(ctx, "profile updated", "user_id", identity.UserID)
	return user, nil
}

// Delete removes the account. No security event is written for it because
// the log row would reference the user being deleted.
func (s *ProfileService) Delete(ctx context.Context, identity *model.Identity) error {
	if err := s.users.Delete(ctx, identity.UserID); err != nil {
		return userLookupError(err)
	}

	slog.InfoContext(ctx, "account deleted", "user_id", identity.UserID)
	return nil
}

func (s *ProfileService) Export(ctx context.Context, identity *model.Identity) (model.ProfileExport, error) {
	user, err := s.users.FindByEmail(ctx, identity.Email)
	if err != nil {
		return model.ProfileExport{}, userLookupError(err)
	}
	return user.Export(), nil
}

func cleanProfileField(field string, value string, required bool) (string, error) {
	if strings.TrimSpace(value) == "" {
		if required {
			return "", apierror.BadRequest(field+" is required", field)
		}
		return "", nil
	}

	cleaned, err := util.CleanDisplayName(value, maxProfileFieldLength)
	if err != nil {
		var apiErr *apierror.APIError
		if errors.As(err, &apiErr) {
			return "", apierror.BadRequest("invalid "+field, apiErr.Message)
		}
		return "", err
	}
	return cleaned, nil
}

func userLookupError(err error) error {
	if errors.Is(err, model.ErrUserNotFound) {
		return apierror.Wrap(model.ErrUserNotFound, "NOT_FOUND", "user not found", http.StatusNotFound)
	}
	return fmt.Errorf("profile: %w", err)
}
