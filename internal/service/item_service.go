package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go-plan-portal/internal/model"
	"go-plan-portal/internal/util"
	"go-plan-portal/pkg/apierror"
)

const maxItemNameLength = 200

type itemStore interface {
	Create(ctx context.Context, item model.Item) (model.Item, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]model.Item, error)
	FindByID(ctx context.Context, id int64) (model.Item, error)
	Delete(ctx context.Context, id int64, ownerID int64) error
}

type ItemService struct {
	items itemStore
}

func NewItemService(items itemStore) *ItemService {
	return &ItemService{items: items}
}

func (s *ItemService) List(ctx context.Context, ownerID int64) ([]model.Item, error) {
	items, err := s.items.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func (s *ItemService) Create(ctx context.Context, ownerID int64, name string) (model.Item, error) {
	name, err := util.CleanDisplayName(name, maxItemNameLength)
	if err != nil {
		return model.Item{}, err
	}

	return s.items.Create(ctx, model.Item{Name: name, OwnerID: ownerID})
}

// Delete removes an item owned by ownerID. Items of other users are reported
// as forbidden, not as missing.
func (s *ItemService) Delete(ctx context.Context, ownerID int64, itemID int64) error {
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, model.ErrItemNotFound) {
			return apierror.Wrap(model.ErrItemNotFound, "NOT_FOUND", "item not found", http.StatusNotFound)
		}
		return err
	}

	if item.OwnerID != ownerID {
		return apierror.Wrap(model.ErrForbidden, "FORBIDDEN", "item belongs to another user", http.StatusForbidden)
	}

	if err := s.items.Delete(ctx, itemID, ownerID); err != nil {
		if errors.Is(err, model.ErrItemNotFound) {
			return apierror.Wrap(model.ErrItemNotFound, "NOT_FOUND", "item not found", http.StatusNotFound)
		}
		return err
	}
	return nil
}
