package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-plan-portal/internal/model"
	"go-plan-portal/pkg/apierror"
)

type fakeOrderHistory struct {
	orders   []model.Order
	askedFor int64
}

func (f *fakeOrderHistory) List(context.Context, int64) ([]model.Order, error) {
	return f.orders, nil
}

func (f *fakeOrderHistory) Get(_ context.Context, _ int64, orderID int64) (model.Order, error) {
	f.askedFor = orderID
	for _, o := range f.orders {
		if o.ID == orderID {
			return o, nil
		}
	}
	return model.Order{}, apierror.Wrap(model.ErrOrderNotFound, "NOT_FOUND", "order not found", http.StatusNotFound)
}

func orderRouter(h *OrderHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(withCaller(req.Context())))
		})
	})
	r.Get("/dashboard/orders", h.List)
	r.Get("/dashboard/orders/{id}", h.Get)
	return r
}

func TestOrderHandler(t *testing.T) {
	t.Parallel()

	history := func() *fakeOrderHistory {
		return &fakeOrderHistory{orders: []model.Order{
			{ID: 9, UserID: caller.ID, PlanID: 2, Status: model.OrderStatusPaid, PaymentReference: "tx-9"},
		}}
	}

	t.Run("list", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		orderRouter(NewOrderHandler(history())).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/orders", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, string(decodeEnvelope(t, rec).Data), `"payment_reference":"tx-9"`)
	})

	t.Run("get", func(t *testing.T) {
		t.Parallel()

		orders := history()
		rec := httptest.NewRecorder()
		orderRouter(NewOrderHandler(orders)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/orders/9", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(9), orders.askedFor)
		assert.Contains(t, string(decodeEnvelope(t, rec).Data), `"status":"PAID"`)
	})

	t.Run("unknown order", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		orderRouter(NewOrderHandler(history())).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/orders/10", nil))

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "NOT_FOUND", decodeEnvelope(t, rec).Error.Code)
	})

	t.Run("rejects bad ids", func(t *testing.T) {
		t.Parallel()

		orders := history()
		rec := httptest.NewRecorder()
		orderRouter(NewOrderHandler(orders)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/orders/abc", nil))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Zero(t, orders.askedFor)
	})
}
