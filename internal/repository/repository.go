package repository

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-plan-portal/internal/model"
	"go-plan-portal/internal/requestctx"
)

// psql builds PostgreSQL statements with dollar placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const uniqueViolation = "23505"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ querier = (*pgxpool.Pool)(nil)
	_ querier = (pgx.Tx)(nil)
)

func stampCreated(ctx context.Context, entity model.Auditable, now time.Time) {
	entity.StampCreated(requestctx.ActorID(ctx), now.UTC())
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func queryRow(ctx context.Context, q querier, builder sq.Sqlizer, dest ...any) error {
	query, args, err := builder.ToSql()
	if err != nil {
		return err
	}
	return q.QueryRow(ctx, query, args...).Scan(dest...)
}

func exec(ctx context.Context, q querier, builder sq.Sqlizer) (pgconn.CommandTag, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return q.Exec(ctx, query, args...)
}
