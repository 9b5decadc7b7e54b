package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-plan-portal/internal/model"
)

type ItemRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewItemRepository(pool *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{pool: pool, now: time.Now}
}

func (r *ItemRepository) Create(ctx context.Context, item model.Item) (model.Item, error) {
	stampCreated(ctx, &item, r.now())

	if err := queryRow(ctx, r.pool, insertItemQuery(item), &item.ID); err != nil {
		return model.Item{}, fmt.Errorf("create item: %w", err)
	}
	return item, nil
}

func (r *ItemRepository) ListByOwner(ctx context.Context, ownerID int64) ([]model.Item, error) {
	query, args, err := itemSelect().Where(sq.Eq{"owner_id": ownerID}).OrderBy("id ASC").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := make([]model.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *ItemRepository) FindByID(ctx context.Context, id int64) (model.Item, error) {
	query, args, err := itemSelect().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return model.Item{}, err
	}

	item, err := scanItem(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Item{}, model.ErrItemNotFound
		}
		return model.Item{}, fmt.Errorf("find item: %w", err)
	}
	return item, nil
}

// Delete removes the item only if ownerID still owns it.
func (r *ItemRepository) Delete(ctx context.Context, id int64, ownerID int64) error {
	tag, err := exec(ctx, r.pool, deleteItemQuery(id, ownerID))
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrItemNotFound
	}
	return nil
}

func itemSelect() sq.SelectBuilder {
	return psql.Select("id", "name", "owner_id", "created_at", "created_by").From("items")
}

func insertItemQuery(item model.Item) sq.InsertBuilder {
	return psql.Insert("items").
		Columns("name", "owner_id", "created_at", "created_by").
		Values(item.Name, item.OwnerID, item.CreatedAt, item.CreatedBy).
		Suffix("RETURNING id")
}

func deleteItemQuery(id int64, ownerID int64) sq.DeleteBuilder {
	return psql.Delete("items").Where(sq.Eq{"id": id, "owner_id": ownerID})
}

func scanItem(row pgx.Row) (model.Item, error) {
	var item model.Item
	err := row.Scan(&item.ID, &item.Name, &item.OwnerID, &item.CreatedAt, &item.CreatedBy)
	return item, err
}
