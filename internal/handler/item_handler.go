package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"go-plan-portal/internal/model"
	"go-plan-portal/pkg/apierror"
)

type itemManager interface {
	List(ctx context.Context, ownerID int64) ([]model.Item, error)
	Create(ctx context.Context, ownerID int64, name string) (model.Item, error)
	Delete(ctx context.Context, ownerID int64, itemID int64) error
}

type ItemHandler struct {
	items itemManager
}

func NewItemHandler(items itemManager) *ItemHandler {
	return &ItemHandler{items: items}
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, err := currentIdentity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	items, err := h.items.List(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, items)
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, err := currentIdentity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := r.ParseForm(); err != nil {
		writeError(w, apierror.BadRequest("invalid form body", ""))
		return
	}

	item, err := h.items.Create(r.Context(), identity.UserID, r.PostFormValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, item)
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, err := currentIdentity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || itemID <= 0 {
		writeError(w, apierror.BadRequest("invalid item id", chi.URLParam(r, "id")))
		return
	}

	if err := h.items.Delete(r.Context(), identity.UserID, itemID); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]int64{"deleted": itemID})
}
