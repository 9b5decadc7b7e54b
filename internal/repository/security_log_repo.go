package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-plan-portal/internal/model"
)

const (
	defaultLogQueryLimit = 50
	maxLogQueryLimit     = 500
)

type SecurityLogRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewSecurityLogRepository(pool *pgxpool.Pool) *SecurityLogRepository {
	return &SecurityLogRepository{pool: pool, now: time.Now}
}

func (r *SecurityLogRepository) Record(ctx context.Context, event model.SecurityEvent) error {
	if event.CreatedAt.IsZero() {
		stampCreated(ctx, &event, r.now())
	}

	if _, err := exec(ctx, r.pool, insertSecurityEventQuery(event)); err != nil {
		return fmt.Errorf("record security event: %w", err)
	}
	return nil
}

// Query returns matching events, newest first.
func (r *SecurityLogRepository) Query(ctx context.Context, query model.SecurityLogQuery) ([]model.SecurityEvent, error) {
	sqlText, args, err := securityLogSelect(query).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query security logs: %w", err)
	}
	defer rows.Close()

	events := make([]model.SecurityEvent, 0)
	for rows.Next() {
		var e model.SecurityEvent
		if err := rows.Scan(&e.ID, &e.UserID, &e.IPAddress, &e.EventType, &e.Description, &e.CreatedAt, &e.CreatedBy); err != nil {
			return nil, fmt.Errorf("scan security log: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// PurgeBefore deletes events older than cutoff.
func (r *SecurityLogRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := exec(ctx, r.pool, psql.Delete("security_logs").Where(sq.Lt{"created_at": cutoff.UTC()}))
	if err != nil {
		return 0, fmt.Errorf("purge security logs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func insertSecurityEventQuery(e model.SecurityEvent) sq.InsertBuilder {
	return psql.Insert("security_logs").
		Columns("user_id", "ip_address", "event_type", "description", "created_at", "created_by").
		Values(e.UserID, e.IPAddress, string(e.EventType), e.Description, e.CreatedAt, e.CreatedBy)
}

func securityLogSelect(query model.SecurityLogQuery) sq.SelectBuilder {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultLogQueryLimit
	}
	if limit > maxLogQueryLimit {
		limit = maxLogQueryLimit
	}

	qb := psql.Select("id", "user_id", "ip_address", "event_type", "description", "created_at", "created_by").
		From("security_logs")
	if query.UserID != nil {
		qb = qb.Where(sq.Eq{"user_id": *query.UserID})
	}
	if query.EventType != "" {
		qb = qb.Where(sq.Eq{"event_type": string(query.EventType)})
	}
	if !query.Since.IsZero() {
		qb = qb.Where(sq.GtOrEq{"created_at": query.Since.UTC()})
	}

	return qb.OrderBy("created_at DESC", "id DESC").Limit(uint64(limit))
}
