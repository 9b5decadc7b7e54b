package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-plan-portal/internal/model"
	"go-plan-portal/internal/requestctx"
)

var userColumns = []string{
	"id", "email", "full_name", "last_name", "phone_number", "company", "job_title",
	"hashed_password", "failed_attempts", "lock_until", "plan_id", "plan_assigned_at",
	"created_at", "updated_at", "created_by", "updated_by",
}

type UserRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool, now: time.Now}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := r.findOne(ctx, sq.Eq{"lower(email)": strings.ToLower(strings.TrimSpace(email))})
	if err != nil {
		return model.User{}, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u model.User) (model.User, error) {
	stampCreated(ctx, &u, r.now())

	err := queryRow(ctx, r.pool, insertUserQuery(u), &u.ID)
	if isUniqueViolation(err) {
		return model.User{}, model.ErrUserAlreadyExists
	}
	if err != nil {
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// RecordFailedLogin bumps the failed-attempt counter in one statement. Reaching
// maxAttempts locks the account until now+lockFor and restarts the counter.
func (r *UserRepository) RecordFailedLogin(ctx context.Context, userID int64, maxAttempts int, lockFor time.Duration, now time.Time) (model.LoginFailure, error) {
	lockUntil := now.Add(lockFor).UTC()

	var (
		attempts    int
		storedUntil *time.Time
		lockedNow   bool
	)
	err := queryRow(ctx, r.pool, failedLoginQuery(userID, maxAttempts, lockUntil, now.UTC()), &attempts, &storedUntil, &lockedNow)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.LoginFailure{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.LoginFailure{}, fmt.Errorf("record failed login: %w", err)
	}

	return loginFailure(attempts, storedUntil, lockedNow, maxAttempts), nil
}

// loginFailure reports maxAttempts for the attempt that triggered a lock,
// since the stored counter restarts at zero in the same statement.
func loginFailure(attempts int, lockUntil *time.Time, lockedNow bool, maxAttempts int) model.LoginFailure {
	if lockedNow {
		attempts = maxAttempts
	}
	return model.LoginFailure{Attempts: attempts, LockUntil: lockUntil}
}

// UpdateProfile writes the editable profile fields and returns the stored row.
func (r *UserRepository) UpdateProfile(ctx context.Context, userID int64, p model.ProfileUpdate) (model.User, error) {
	u, err := scanUser(ctx, r.pool, updateProfileQuery(userID, p, r.now().UTC(), requestctx.ActorID(ctx)))
	if err != nil {
		return model.User{}, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}

// Delete removes the account. Orders and items go with it; security logs keep
// their rows with the user reference cleared.
func (r *UserRepository) Delete(ctx context.Context, userID int64) error {
	tag, err := exec(ctx, r.pool, psql.Delete("users").Where(sq.Eq{"id": userID}))
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) ResetFailedAttempts(ctx context.Context, userID int64) error {
	builder := psql.Update("users").
		Set("failed_attempts", 0).
		Set("lock_until", nil).
		Set("updated_at", r.now().UTC()).
		Where(sq.Eq{"id": userID})

	tag, err := exec(ctx, r.pool, builder)
	if err != nil {
		return fmt.Errorf("reset failed attempts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, where sq.Sqlizer) (model.User, error) {
	return scanUser(ctx, r.pool, psql.Select(userColumns...).From("users").Where(where).Limit(1))
}

func scanUser(ctx context.Context, q querier, builder sq.Sqlizer) (model.User, error) {
	var u model.User
	err := queryRow(ctx, q, builder,
		&u.ID, &u.Email, &u.FullName, &u.LastName, &u.PhoneNumber, &u.Company, &u.JobTitle,
		&u.PasswordHash, &u.FailedAttempts, &u.LockUntil, &u.PlanID, &u.PlanAssignedAt,
		&u.CreatedAt, &u.UpdatedAt, &u.CreatedBy, &u.UpdatedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	return u, err
}

func assignPlan(ctx context.Context, q querier, userID int64, planID int64, at time.Time, actorID *int64) error {
	builder := psql.Update("users").
		Set("plan_id", planID).
		Set("plan_assigned_at", at.UTC()).
		Set("updated_at", at.UTC()).
		Set("updated_by", actorID).
		Where(sq.Eq{"id": userID})

	tag, err := exec(ctx, q, builder)
	if err != nil {
		return fmt.Errorf("assign plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func insertUserQuery(u model.User) sq.InsertBuilder {
	return psql.Insert("users").
		Columns("email", "full_name", "last_name", "phone_number", "company", "job_title",
			"hashed_password", "plan_id", "plan_assigned_at", "created_at", "created_by").
		Values(u.Email, u.FullName, u.LastName, u.PhoneNumber, u.Company, u.JobTitle,
			u.PasswordHash, u.PlanID, u.PlanAssignedAt, u.CreatedAt, u.CreatedBy).
		Suffix("RETURNING id")
}

func updateProfileQuery(userID int64, p model.ProfileUpdate, now time.Time, actorID *int64) sq.UpdateBuilder {
	return psql.Update("users").
		Set("full_name", p.FullName).
		Set("last_name", p.LastName).
		Set("phone_number", p.PhoneNumber).
		Set("company", p.Company).
		Set("job_title", p.JobTitle).
		Set("updated_at", now).
		Set("updated_by", actorID).
		Where(sq.Eq{"id": userID}).
		Suffix("RETURNING " + strings.Join(userColumns, ", "))
}

func failedLoginQuery(userID int64, maxAttempts int, lockUntil time.Time, now time.Time) sq.UpdateBuilder {
	return psql.Update("users").
		Set("failed_attempts", sq.Expr("CASE WHEN failed_attempts + 1 >= ? THEN 0 ELSE failed_attempts + 1 END", maxAttempts)).
		Set("lock_until", sq.Expr("CASE WHEN failed_attempts + 1 >= ? THEN ?::timestamptz ELSE lock_until END", maxAttempts, lockUntil)).
		Set("updated_at", now).
		Where(sq.Eq{"id": userID}).
		Suffix("RETURNING failed_attempts, lock_until, lock_until IS NOT DISTINCT FROM ?::timestamptz", lockUntil)
}
