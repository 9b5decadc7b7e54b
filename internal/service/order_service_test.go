package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-plan-portal/internal/model"
)

type fakeOrderHistory struct {
	orders []model.Order
	err    error
}

func (f *fakeOrderHistory) ListByUser(_ context.Context, userID int64) ([]model.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.Order, 0)
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrderHistory) FindForUser(_ context.Context, userID int64, orderID int64) (model.Order, error) {
	if f.err != nil {
		return model.Order{}, f.err
	}
	for _, o := range f.orders {
		if o.ID == orderID && o.UserID == userID {
			return o, nil
		}
	}
	return model.Order{}, model.ErrOrderNotFound
}

func TestOrderService(t *testing.T) {
	t.Parallel()

	history := &fakeOrderHistory{orders: []model.Order{
		{ID: 1, UserID: 7, PlanID: 2, Status: model.OrderStatusPaid},
		{ID: 2, UserID: 8, PlanID: 2, Status: model.OrderStatusPending},
		{ID: 3, UserID: 7, PlanID: 3, Status: model.OrderStatusPending},
	}}
	svc := NewOrderService(history)

	t.Run("lists only the caller's orders", func(t *testing.T) {
		t.Parallel()

		orders, err := svc.List(context.Background(), 7)
		require.NoError(t, err)
		require.Len(t, orders, 2)
		for _, o := range orders {
			assert.Equal(t, int64(7), o.UserID)
		}
	})

	t.Run("gets an own order", func(t *testing.T) {
		t.Parallel()

		order, err := svc.Get(context.Background(), 7, 3)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusPending, order.Status)
	})

	t.Run("another user's order is not found", func(t *testing.T) {
		t.Parallel()

		_, err := svc.Get(context.Background(), 7, 2)
		requireAPIError(t, err, "NOT_FOUND", http.StatusNotFound)
		assert.ErrorIs(t, err, model.ErrOrderNotFound)
	})
}

func TestOrderServiceStoreFailure(t *testing.T) {
	t.Parallel()

	svc := NewOrderService(&fakeOrderHistory{err: errStoreDown})

	_, err := svc.List(context.Background(), 7)
	require.ErrorIs(t, err, errStoreDown)

	_, err = svc.Get(context.Background(), 7, 1)
	require.ErrorIs(t, err, errStoreDown)
}
