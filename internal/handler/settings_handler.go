package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"go-plan-portal/internal/middleware"
	"go-plan-portal/internal/model"
	"go-plan-portal/internal/route"
	"go-plan-portal/pkg/apierror"
)

const profilePath = route.DashboardPath + "/settings/profile"

type profileManager interface {
	Update(ctx context.Context, identity *model.Identity, update model.ProfileUpdate) (model.User, error)
	Delete(ctx context.Context, identity *model.Identity) error
	Export(ctx context.Context, identity *model.Identity) (model.ProfileExport, error)
}

// SettingsHandler serves the account settings pages. Mutations answer with an
// HX-Redirect header so htmx clients navigate after the swap.
type SettingsHandler struct {
	profiles     profileManager
	cookieSecure bool
}

func NewSettingsHandler(profiles profileManager, cookieSecure bool) *SettingsHandler {
	return &SettingsHandler{profiles: profiles, cookieSecure: cookieSecure}
}

func (h *SettingsHandler) Profile(w http.ResponseWriter, r *http.Request) {
	identity, err := currentIdentity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, profilePage(identity.User, false, ""))
}

func (h *SettingsHandler) EditProfile(w http.ResponseWriter, r *http.Request) {
	identity, err := currentIdentity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := middleware.IssueCSRFToken(w, h.cookieSecure)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, profilePage(identity.User, true, token))
}

func (h *SettingsHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, err := currentIdentity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := r.ParseForm(); err != nil {
		writeError(w, apierror.BadRequest("invalid form body", ""))
		return
	}

	_, err = h.profiles.Update(r.Context(), identity, model.ProfileUpdate{
		FullName:    r.PostFormValue("full_name"),
		LastName:    r.PostFormValue("last_name"),
		PhoneNumber: r.PostFormValue("phone_number"),
		Company:     r.PostFormValue("company"),
		JobTitle:    r.PostFormValue("job_title"),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("HX-Redirect", profilePath)
	w.WriteHeader(http.StatusNoContent)
}

func (h *SettingsHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	identity, err := currentIdentity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.profiles.Delete(r.Context(), identity); err != nil {
		writeError(w, err)
		return
	}

	middleware.ClearSessionCookies(w, h.cookieSecure)
	w.Header().Set("HX-Redirect", route.LoginPath)
	w.WriteHeader(http.StatusNoContent)
}

// Export sends the caller's personal data as a JSON download.
func (h *SettingsHandler) Export(w http.ResponseWriter, r *http.Request) {
	identity, err := currentIdentity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	export, err := h.profiles.Export(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=user_data_%d.json", export.ID))
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(export); err != nil {
		slog.Error("failed to encode profile export", "user_id", export.ID, "error", err)
	}
}

func profilePage(user model.User, editMode bool, csrfToken string) model.PageModel {
	return model.PageModel{
		View:      "profile",
		CSRFToken: csrfToken,
		Values: map[string]any{
			"user":      user.Export(),
			"edit_mode": editMode,
		},
	}
}
