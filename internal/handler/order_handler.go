package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"go-plan-portal/internal/model"
	"go-plan-portal/pkg/apierror"
)

type orderHistory interface {
	List(ctx context.Context, userID int64) ([]model.Order, error)
	Get(ctx context.Context, userID int64, orderID int64) (model.Order, error)
}

type OrderHandler struct {
	orders orderHistory
}

func NewOrderHandler(orders orderHistory) *OrderHandler {
	return &OrderHandler{orders: orders}
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, err := currentIdentity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	orders, err := h.orders.List(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, orders)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, err := currentIdentity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || orderID <= 0 {
		writeError(w, apierror.BadRequest("invalid order id", chi.URLParam(r, "id")))
		return
	}

	order, err := h.orders.Get(r.Context(), identity.UserID, orderID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, order)
}
