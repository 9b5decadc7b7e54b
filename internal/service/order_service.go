package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go-plan-portal/internal/model"
	"go-plan-portal/pkg/apierror"
)

type orderReader interface {
	ListByUser(ctx context.Context, userID int64) ([]model.Order, error)
	FindForUser(ctx context.Context, userID int64, orderID int64) (model.Order, error)
}

// OrderService exposes a user's own purchase history.
type OrderService struct {
	orders orderReader
}

func NewOrderService(orders orderReader) *OrderService {
	return &OrderService{orders: orders}
}

func (s *OrderService) List(ctx context.Context, userID int64) ([]model.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// Get returns one order of userID. Orders placed by someone else are reported
// as missing so their ids cannot be enumerated.
func (s *OrderService) Get(ctx context.Context, userID int64, orderID int64) (model.Order, error) {
	order, err := s.orders.FindForUser(ctx, userID, orderID)
	if errors.Is(err, model.ErrOrderNotFound) {
		return model.Order{}, apierror.Wrap(model.ErrOrderNotFound, "NOT_FOUND", "order not found", http.StatusNotFound)
	}
	if err != nil {
		return model.Order{}, err
	}
	return order, nil
}
