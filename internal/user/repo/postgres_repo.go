package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/savemedha/outreach-api/internal/session"
	"github.com/savemedha/outreach-api/internal/user/entity"
	"github.com/savemedha/outreach-api/pkg/utilities"
)

const accountColumns = `id, email, password_hash, token_version, first_name, last_name,
	phone_number, address, designation, role, image_url, created_at, updated_at`

// PostgresRepo provides data access for the accounts table using sqlx.
type PostgresRepo struct {
	db *sqlx.DB
}

func NewPostgresRepo(db *sqlx.DB) *PostgresRepo { return &PostgresRepo{db: db} }

// EnsureTable creates the accounts table if not exists (idempotent).
// email is CITEXT so the unique index is case-insensitive.
func (r *PostgresRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE EXTENSION IF NOT EXISTS citext;
CREATE TABLE IF NOT EXISTS accounts (
  id VARCHAR(32) PRIMARY KEY,
  email CITEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  token_version BIGINT NOT NULL DEFAULT 0 CHECK (token_version >= 0),
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  phone_number TEXT NOT NULL,
  address TEXT NOT NULL DEFAULT '',
  designation TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL DEFAULT 'admin',
  image_url TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_accounts_created_at ON accounts(created_at DESC);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts a new account with a snowflake id. A duplicate email yields session.ErrEmailTaken.
func (r *PostgresRepo) Create(ctx context.Context, a *entity.Account) (*entity.Account, error) {
	row := *a
	row.ID = utilities.NewSnowflakeID()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	row.UpdatedAt = row.CreatedAt
	const q = `INSERT INTO accounts (id, email, password_hash, token_version, first_name, last_name,
		phone_number, address, designation, role, image_url, created_at, updated_at)
		VALUES (:id, :email, :password_hash, :token_version, :first_name, :last_name,
		:phone_number, :address, :designation, :role, :image_url, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, q, &row); err != nil {
		if isUniqueViolation(err) {
			return nil, session.ErrEmailTaken
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return &row, nil
}

// FindByEmail returns an account matched by email (case-insensitive due to citext).
func (r *PostgresRepo) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return r.get(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email=$1`, email)
}

// FindByID fetches a full account row.
func (r *PostgresRepo) FindByID(ctx context.Context, id string) (*entity.Account, error) {
	return r.get(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id)
}

func (r *PostgresRepo) get(ctx context.Context, q string, arg any) (*entity.Account, error) {
	var row entity.Account
	if err := r.db.GetContext(ctx, &row, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrAccountNotFound
		}
		return nil, err
	}
	return &row, nil
}

// List returns all accounts, newest first.
func (r *PostgresRepo) List(ctx context.Context) ([]*entity.Account, error) {
	rows := []*entity.Account{}
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at DESC`); err != nil {
		return nil, err
	}
	return rows, nil
}

// IncrementTokenVersion bumps token_version atomically and returns the new value.
func (r *PostgresRepo) IncrementTokenVersion(ctx context.Context, id string) (int64, error) {
	const q = `UPDATE accounts SET token_version = token_version + 1, updated_at=NOW() WHERE id=$1 RETURNING token_version`
	var v int64
	if err := r.db.GetContext(ctx, &v, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, session.ErrAccountNotFound
		}
		return 0, err
	}
	return v, nil
}

// Save writes profile fields and the password hash. token_version and email are never written here.
func (r *PostgresRepo) Save(ctx context.Context, a *entity.Account) error {
	const q = `UPDATE accounts SET password_hash=:password_hash, first_name=:first_name, last_name=:last_name,
		phone_number=:phone_number, address=:address, designation=:designation, role=:role,
		image_url=:image_url, updated_at=NOW() WHERE id=:id`
	res, err := r.db.NamedExecContext(ctx, q, a)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return session.ErrAccountNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
