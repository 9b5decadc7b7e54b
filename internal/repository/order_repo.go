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
	"go-plan-portal/internal/requestctx"
)

var orderColumns = []string{
	"id", "user_id", "plan_id", "status", "coalesce(payment_reference, '')",
	"created_at", "updated_at", "created_by", "updated_by",
}

type OrderRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool, now: time.Now}
}

// FindPendingFor returns the most recent pending order of a user for a plan.
func (r *OrderRepository) FindPendingFor(ctx context.Context, userID int64, planID int64) (model.Order, error) {
	builder := psql.Select(orderColumns...).From("orders").
		Where(sq.Eq{"user_id": userID, "plan_id": planID, "status": model.OrderStatusPending}).
		OrderBy("id DESC").
		Limit(1)

	o, err := scanOrder(ctx, r.pool, builder)
	if err != nil {
		return model.Order{}, fmt.Errorf("find pending order: %w", err)
	}
	return o, nil
}

// ListByUser returns every order of a user, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	query, args, err := userOrdersQuery(userID).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]model.Order, 0)
	for rows.Next() {
		o, err := scanOrderRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// FindForUser returns an order only when userID placed it.
func (r *OrderRepository) FindForUser(ctx context.Context, userID int64, orderID int64) (model.Order, error) {
	o, err := scanOrder(ctx, r.pool, psql.Select(orderColumns...).From("orders").
		Where(sq.Eq{"id": orderID, "user_id": userID}))
	if err != nil {
		return model.Order{}, fmt.Errorf("find order: %w", err)
	}
	return o, nil
}

func (r *OrderRepository) Create(ctx context.Context, o model.Order) (model.Order, error) {
	stampCreated(ctx, &o, r.now())
	if o.Status == "" {
		o.Status = model.OrderStatusPending
	}

	builder := psql.Insert("orders").
		Columns("user_id", "plan_id", "status", "created_at", "created_by").
		Values(o.UserID, o.PlanID, o.Status, o.CreatedAt, o.CreatedBy).
		Suffix("RETURNING id")

	if err := queryRow(ctx, r.pool, builder, &o.ID); err != nil {
		return model.Order{}, fmt.Errorf("create order: %w", err)
	}
	return o, nil
}

// Complete marks a pending order paid and assigns its plan to the buyer in one
// transaction. applied is false when the order had already been paid.
func (r *OrderRepository) Complete(ctx context.Context, orderID int64, reference string, at time.Time) (model.Order, bool, error) {
	var (
		order   model.Order
		applied bool
	)

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := scanOrder(ctx, tx, psql.Select(orderColumns...).From("orders").
			Where(sq.Eq{"id": orderID}).
			Suffix("FOR UPDATE"))
		if err != nil {
			return err
		}
		if current.Status == model.OrderStatusPaid {
			order = current
			return nil
		}

		actorID := requestctx.ActorID(ctx)
		current.Status = model.OrderStatusPaid
		current.PaymentReference = reference
		current.StampUpdated(actorID, at.UTC())

		if _, err := exec(ctx, tx, markPaidQuery(current)); err != nil {
			return fmt.Errorf("mark order paid: %w", err)
		}
		if err := assignPlan(ctx, tx, current.UserID, current.PlanID, at, actorID); err != nil {
			return err
		}

		order = current
		applied = true
		return nil
	})
	if err != nil {
		return model.Order{}, false, fmt.Errorf("complete order: %w", err)
	}

	return order, applied, nil
}

// DeleteStalePending removes pending orders created before cutoff.
func (r *OrderRepository) DeleteStalePending(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := exec(ctx, r.pool, stalePendingQuery(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete stale orders: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanOrder(ctx context.Context, q querier, builder sq.SelectBuilder) (model.Order, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return model.Order{}, err
	}

	o, err := scanOrderRow(q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Order{}, model.ErrOrderNotFound
	}
	return o, err
}

func scanOrderRow(row pgx.Row) (model.Order, error) {
	var o model.Order
	err := row.Scan(&o.ID, &o.UserID, &o.PlanID, &o.Status, &o.PaymentReference,
		&o.CreatedAt, &o.UpdatedAt, &o.CreatedBy, &o.UpdatedBy)
	return o, err
}

func userOrdersQuery(userID int64) sq.SelectBuilder {
	return psql.Select(orderColumns...).From("orders").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("id DESC")
}

func markPaidQuery(o model.Order) sq.UpdateBuilder {
	return psql.Update("orders").
		Set("status", o.Status).
		Set("payment_reference", o.PaymentReference).
		Set("updated_at", o.UpdatedAt).
		Set("updated_by", o.UpdatedBy).
		Where(sq.Eq{"id": o.ID})
}

func stalePendingQuery(cutoff time.Time) sq.DeleteBuilder {
	return psql.Delete("orders").
		Where(sq.Eq{"status": model.OrderStatusPending}).
		Where(sq.Lt{"created_at": cutoff.UTC()})
}
