package handler

import (
	"context"
	"net/http"

	"go-plan-portal/internal/middleware"
	"go-plan-portal/internal/model"
)

type planStatusReader interface {
	Status(ctx context.Context, user model.User) (model.PlanStatus, error)
}

type itemLister interface {
	List(ctx context.Context, ownerID int64) ([]model.Item, error)
}

type DashboardHandler struct {
	plans        planStatusReader
	items        itemLister
	cookieSecure bool
}

func NewDashboardHandler(plans planStatusReader, items itemLister, cookieSecure bool) *DashboardHandler {
	return &DashboardHandler{plans: plans, items: items, cookieSecure: cookieSecure}
}

// Show returns the dashboard page model and hands the page a fresh CSRF
// token for its mutating requests.
func (h *DashboardHandler) Show(w http.ResponseWriter, r *http.Request) {
	identity, err := currentIdentity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	status, err := h.plans.Status(r.Context(), identity.User)
	if err != nil {
		writeError(w, err)
		return
	}

	items, err := h.items.List(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := middleware.IssueCSRFToken(w, h.cookieSecure)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.PageModel{
		View:      "dashboard",
		CSRFToken: token,
		Values: map[string]any{
			"dashboard": model.DashboardView{User: identity.User.Public(), PlanStatus: status, Items: items},
		},
	})
}
