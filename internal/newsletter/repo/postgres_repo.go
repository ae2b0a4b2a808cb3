package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/savemedha/outreach-api/internal/newsletter/entity"
	"github.com/savemedha/outreach-api/pkg/utilities"
)

type PostgresRepo struct {
	db *sqlx.DB
}

func NewPostgresRepo(db *sqlx.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// EnsureTable creates the subscriptions table if it does not already exist.
func (r *PostgresRepo) EnsureTable(ctx context.Context) error {
	const tbl = `
	CREATE TABLE IF NOT EXISTS subscriptions (
		id varchar(32) PRIMARY KEY,
		email varchar(254) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`
	if _, err := r.db.ExecContext(ctx, tbl); err != nil {
		return err
	}

	const idx = `
	CREATE UNIQUE INDEX IF NOT EXISTS idx_subscriptions_email ON subscriptions (email);
	`
	if _, err := r.db.ExecContext(ctx, idx); err != nil {
		return err
	}

	const idxCreated = `
	CREATE INDEX IF NOT EXISTS idx_subscriptions_created_at ON subscriptions (created_at DESC);
	`
	if _, err := r.db.ExecContext(ctx, idxCreated); err != nil {
		return err
	}
	return nil
}

func (r *PostgresRepo) Create(ctx context.Context, email string) (*entity.Subscription, error) {
	now := time.Now().UTC()
	s := &entity.Subscription{ID: utilities.NewSnowflakeID(), Email: email, CreatedAt: now, UpdatedAt: now}
	const q = `INSERT INTO subscriptions (id, email, created_at, updated_at) VALUES (:id, :email, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, q, s); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert subscription: %w", err)
	}
	return s, nil
}

func (r *PostgresRepo) FindByEmail(ctx context.Context, email string) (*entity.Subscription, error) {
	return r.get(ctx, `SELECT id, email, created_at, updated_at FROM subscriptions WHERE email=$1`, email)
}

func (r *PostgresRepo) FindByID(ctx context.Context, id string) (*entity.Subscription, error) {
	return r.get(ctx, `SELECT id, email, created_at, updated_at FROM subscriptions WHERE id=$1`, id)
}

func (r *PostgresRepo) get(ctx context.Context, q string, arg any) (*entity.Subscription, error) {
	var s entity.Subscription
	if err := r.db.GetContext(ctx, &s, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// List returns subscriptions newest first.
func (r *PostgresRepo) List(ctx context.Context) ([]*entity.Subscription, error) {
	out := []*entity.Subscription{}
	if err := r.db.SelectContext(ctx, &out, `SELECT id, email, created_at, updated_at FROM subscriptions ORDER BY created_at DESC`); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRepo) UpdateEmail(ctx context.Context, id, email string) (*entity.Subscription, error) {
	var s entity.Subscription
	const q = `UPDATE subscriptions SET email=$1, updated_at=NOW() WHERE id=$2 RETURNING id, email, created_at, updated_at`
	if err := r.db.GetContext(ctx, &s, q, email, id); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		case isUniqueViolation(err):
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &s, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
