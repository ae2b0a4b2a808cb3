package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/savemedha/outreach-api/internal/callback/entity"
	"github.com/savemedha/outreach-api/pkg/utilities"
)

const requestColumns = `id, full_name, phone_number, description, status, admin_comment, created_at, updated_at`

type PostgresRepo struct {
	db *sqlx.DB
}

func NewPostgresRepo(db *sqlx.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// EnsureTable creates the callback_requests table if it does not already exist.
func (r *PostgresRepo) EnsureTable(ctx context.Context) error {
	const tbl = `
	CREATE TABLE IF NOT EXISTS callback_requests (
		id varchar(32) PRIMARY KEY,
		full_name TEXT NOT NULL,
		phone_number varchar(32) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status varchar(16) NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending', 'not received', 'done')),
		admin_comment TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`
	if _, err := r.db.ExecContext(ctx, tbl); err != nil {
		return err
	}
	const idx = `CREATE INDEX IF NOT EXISTS idx_callback_requests_status ON callback_requests (status, created_at DESC);`
	_, err := r.db.ExecContext(ctx, idx)
	return err
}

func (r *PostgresRepo) Create(ctx context.Context, req *entity.Request) (*entity.Request, error) {
	row := *req
	row.ID = utilities.NewSnowflakeID()
	row.CreatedAt = time.Now().UTC()
	row.UpdatedAt = row.CreatedAt
	const q = `INSERT INTO callback_requests (` + requestColumns + `)
		VALUES (:id, :full_name, :phone_number, :description, :status, :admin_comment, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, q, &row); err != nil {
		return nil, fmt.Errorf("insert callback request: %w", err)
	}
	return &row, nil
}

func (r *PostgresRepo) FindByID(ctx context.Context, id string) (*entity.Request, error) {
	var req entity.Request
	if err := r.db.GetContext(ctx, &req, `SELECT `+requestColumns+` FROM callback_requests WHERE id=$1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *PostgresRepo) List(ctx context.Context) ([]*entity.Request, error) {
	out := []*entity.Request{}
	if err := r.db.SelectContext(ctx, &out, `SELECT `+requestColumns+` FROM callback_requests ORDER BY created_at DESC`); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateReview writes status and admin comment and returns the updated row.
func (r *PostgresRepo) UpdateReview(ctx context.Context, id string, status entity.Status, comment string) (*entity.Request, error) {
	var req entity.Request
	const q = `UPDATE callback_requests SET status=$1, admin_comment=$2, updated_at=NOW()
		WHERE id=$3 RETURNING ` + requestColumns
	if err := r.db.GetContext(ctx, &req, q, status, comment, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}
