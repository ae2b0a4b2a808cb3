package repo

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savemedha/outreach-api/internal/session"
	"github.com/savemedha/outreach-api/internal/user/entity"
)

func newMockRepo(t *testing.T) (*PostgresRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepo(sqlx.NewDb(db, "postgres")), mock
}

var columns = []string{"id", "email", "password_hash", "token_version", "first_name", "last_name",
	"phone_number", "address", "designation", "role", "image_url", "created_at", "updated_at"}

func TestPostgresRepo_IncrementTokenVersion(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE accounts SET token_version = token_version + 1, updated_at=NOW() WHERE id=$1 RETURNING token_version`)).
		WithArgs("42").
		WillReturnRows(sqlmock.NewRows([]string{"token_version"}).AddRow(int64(3)))

	v, err := r.IncrementTokenVersion(context.Background(), "42")
	require.NoError(t, err)
	assert.EqualValues(t, 3, v)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_IncrementTokenVersion_Missing(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE accounts SET token_version`)).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := r.IncrementTokenVersion(context.Background(), "nope")
	require.ErrorIs(t, err, session.ErrAccountNotFound)
}

func TestPostgresRepo_FindByEmail(t *testing.T) {
	r, mock := newMockRepo(t)
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts WHERE email=$1`)).
		WithArgs("asha@example.org").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			"42", "asha@example.org", "$2a$10$hash", int64(2), "Asha", "Rao",
			"9000000000", "", "", "admin", "", now, now))

	acc, err := r.FindByEmail(context.Background(), "asha@example.org")
	require.NoError(t, err)
	assert.Equal(t, "42", acc.ID)
	assert.EqualValues(t, 2, acc.TokenVersion)
	assert.Equal(t, entity.RoleAdmin, acc.Role)
	assert.Equal(t, "$2a$10$hash", acc.PasswordHash)
}

func TestPostgresRepo_FindByID_NotFound(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts WHERE id=$1`)).
		WithArgs("404").
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := r.FindByID(context.Background(), "404")
	require.ErrorIs(t, err, session.ErrAccountNotFound)
}

func TestPostgresRepo_Create_DuplicateEmail(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO accounts`)).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := r.Create(context.Background(), &entity.Account{Email: "asha@example.org"})
	require.ErrorIs(t, err, session.ErrEmailTaken)
}

func TestPostgresRepo_Create_AssignsID(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO accounts`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	acc, err := r.Create(context.Background(), &entity.Account{Email: "asha@example.org", Role: entity.RoleAdmin})
	require.NoError(t, err)
	assert.NotEmpty(t, acc.ID)
	assert.False(t, acc.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Save_NeverWritesTokenVersion(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectExec(`UPDATE accounts SET password_hash=\$1, first_name=\$2.*WHERE id=\$9`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := r.Save(context.Background(), &entity.Account{ID: "gone", TokenVersion: 99})
	require.ErrorIs(t, err, session.ErrAccountNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
