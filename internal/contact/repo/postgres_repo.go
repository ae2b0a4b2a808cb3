package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/savemedha/outreach-api/internal/contact/entity"
	"github.com/savemedha/outreach-api/pkg/utilities"
)

const contactColumns = `id, full_name, phone, email, comments, created_at, updated_at`

type PostgresRepo struct {
	db *sqlx.DB
}

func NewPostgresRepo(db *sqlx.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// EnsureTable creates the contacts table if it does not already exist.
func (r *PostgresRepo) EnsureTable(ctx context.Context) error {
	const tbl = `
	CREATE TABLE IF NOT EXISTS contacts (
		id varchar(32) PRIMARY KEY,
		full_name TEXT NOT NULL,
		phone varchar(32) NOT NULL,
		email varchar(254) NOT NULL,
		comments TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`
	if _, err := r.db.ExecContext(ctx, tbl); err != nil {
		return err
	}
	const idx = `CREATE INDEX IF NOT EXISTS idx_contacts_created_at ON contacts (created_at DESC);`
	_, err := r.db.ExecContext(ctx, idx)
	return err
}

func (r *PostgresRepo) Create(ctx context.Context, c *entity.Contact) (*entity.Contact, error) {
	row := *c
	row.ID = utilities.NewSnowflakeID()
	row.CreatedAt = time.Now().UTC()
	row.UpdatedAt = row.CreatedAt
	const q = `INSERT INTO contacts (` + contactColumns + `)
		VALUES (:id, :full_name, :phone, :email, :comments, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, q, &row); err != nil {
		return nil, fmt.Errorf("insert contact: %w", err)
	}
	return &row, nil
}

func (r *PostgresRepo) FindByID(ctx context.Context, id string) (*entity.Contact, error) {
	var c entity.Contact
	if err := r.db.GetContext(ctx, &c, `SELECT `+contactColumns+` FROM contacts WHERE id=$1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// List returns submissions newest first.
func (r *PostgresRepo) List(ctx context.Context) ([]*entity.Contact, error) {
	out := []*entity.Contact{}
	if err := r.db.SelectContext(ctx, &out, `SELECT `+contactColumns+` FROM contacts ORDER BY created_at DESC`); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRepo) Save(ctx context.Context, c *entity.Contact) error {
	const q = `UPDATE contacts SET full_name=:full_name, phone=:phone, email=:email,
		comments=:comments, updated_at=NOW() WHERE id=:id`
	res, err := r.db.NamedExecContext(ctx, q, c)
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

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id=$1`, id)
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
