package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-plan-portal/internal/model"
)

var planColumns = []string{
	"id", "name", "price_cents", "description", "features", "is_free", "validity_days",
	"created_at", "updated_at", "created_by", "updated_by",
}

type PlanRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPlanRepository(pool *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{pool: pool, now: time.Now}
}

func (r *PlanRepository) FindByID(ctx context.Context, id int64) (model.Plan, error) {
	p, err := r.findOne(ctx, sq.Eq{"id": id})
	if err != nil {
		return model.Plan{}, fmt.Errorf("find plan by id: %w", err)
	}
	return p, nil
}

func (r *PlanRepository) FindByName(ctx context.Context, name string) (model.Plan, error) {
	p, err := r.findOne(ctx, sq.Eq{"name": name})
	if err != nil {
		return model.Plan{}, fmt.Errorf("find plan by name: %w", err)
	}
	return p, nil
}

// EnsureFreePlan returns the free plan called name, creating it when missing.
func (r *PlanRepository) EnsureFreePlan(ctx context.Context, name string, validityDays *int) (model.Plan, error) {
	p, err := r.findOne(ctx, sq.Eq{"name": name})
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, model.ErrPlanNotFound) {
		return model.Plan{}, fmt.Errorf("find free plan: %w", err)
	}

	p = model.Plan{
		Name:         name,
		Description:  "Free demo plan",
		Features:     map[string]any{"demo": true},
		IsFree:       true,
		ValidityDays: validityDays,
	}
	stampCreated(ctx, &p, r.now())

	features, err := json.Marshal(p.Features)
	if err != nil {
		return model.Plan{}, fmt.Errorf("encode plan features: %w", err)
	}

	builder := psql.Insert("plans").
		Columns("name", "price_cents", "description", "features", "is_free", "validity_days", "created_at", "created_by").
		Values(p.Name, p.PriceCents, p.Description, features, p.IsFree, p.ValidityDays, p.CreatedAt, p.CreatedBy).
		Suffix("ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING id")

	if err := queryRow(ctx, r.pool, builder, &p.ID); err != nil {
		return model.Plan{}, fmt.Errorf("create free plan: %w", err)
	}
	return p, nil
}

func (r *PlanRepository) findOne(ctx context.Context, where sq.Sqlizer) (model.Plan, error) {
	var (
		p        model.Plan
		features []byte
	)
	builder := psql.Select(planColumns...).From("plans").Where(where).Limit(1)

	err := queryRow(ctx, r.pool, builder,
		&p.ID, &p.Name, &p.PriceCents, &p.Description, &features, &p.IsFree, &p.ValidityDays,
		&p.CreatedAt, &p.UpdatedAt, &p.CreatedBy, &p.UpdatedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Plan{}, model.ErrPlanNotFound
	}
	if err != nil {
		return model.Plan{}, err
	}

	if len(features) > 0 {
		if err := json.Unmarshal(features, &p.Features); err != nil {
			return model.Plan{}, fmt.Errorf("decode plan features: %w", err)
		}
	}
	return p, nil
}
