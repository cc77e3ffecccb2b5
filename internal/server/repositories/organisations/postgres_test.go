package organisations

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/manokeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cols = []string{"id", "name", "encryption_enabled", "encryption_last_update_at",
	"encrypted_verification_key", "locked_for_encryption", "locked_by"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestGetByID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)SELECT .* FROM organisations WHERE id = \$1$`).
		WithArgs("org1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("org1", "Asso", true, at, "canary", true, "u1"))

	o, err := repo.GetByID(context.Background(), "org1")
	require.NoError(t, err)
	assert.Equal(t, "Asso", o.Name)
	assert.True(t, o.EncryptionEnabled)
	require.NotNil(t, o.EncryptionLastUpdateAt)
	assert.True(t, at.Equal(*o.EncryptionLastUpdateAt))
	require.NotNil(t, o.LockedBy)
	assert.Equal(t, "u1", *o.LockedBy)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NullsAndNotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT .* FROM organisations`).
		WithArgs("org1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("org1", "Asso", false, nil, "", false, nil))
	mock.ExpectQuery(`(?s)SELECT .* FROM organisations`).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`(?s)SELECT .* FROM organisations`).
		WithArgs("err").
		WillReturnError(errors.New("db down"))

	o, err := repo.GetByID(context.Background(), "org1")
	require.NoError(t, err)
	assert.Nil(t, o.EncryptionLastUpdateAt)
	assert.Nil(t, o.LockedBy)

	_, err = repo.GetByID(context.Background(), "nope")
	require.ErrorIs(t, err, common.ErrorNotFound)

	_, err = repo.GetByID(context.Background(), "err")
	require.ErrorContains(t, err, "db error: db down")
}

func TestGetForUpdate_LocksRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT .* FROM organisations WHERE id = \$1 FOR UPDATE`).
		WithArgs("org1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("org1", "Asso", false, nil, "", false, nil))

	_, err := repo.GetForUpdate(context.Background(), "org1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetLock(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	by := "u1"
	mock.ExpectExec(`(?s)UPDATE organisations SET locked_for_encryption = \$2, locked_by = \$3 WHERE id = \$1`).
		WithArgs("org1", true, &by).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)UPDATE organisations`).
		WithArgs("nope", false, nil).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`(?s)UPDATE organisations`).
		WithArgs("org1", false, nil).
		WillReturnResult(sqlmock.NewErrorResult(errors.New("rows-err")))

	require.NoError(t, repo.SetLock(context.Background(), "org1", true, &by))
	require.ErrorIs(t, repo.SetLock(context.Background(), "nope", false, nil), common.ErrorNotFound)
	require.ErrorContains(t, repo.SetLock(context.Background(), "org1", false, nil), "rows affected error")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitEncryption(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)UPDATE organisations SET\s+encryption_enabled = TRUE,.*locked_by = NULL\s+WHERE id = \$1\s+RETURNING`).
		WithArgs("org1", "canary", at).
		WillReturnRows(sqlmock.NewRows(cols).AddRow("org1", "Asso", true, at, "canary", false, nil))

	o, err := repo.CommitEncryption(context.Background(), "org1", "canary", at)
	require.NoError(t, err)
	assert.True(t, o.EncryptionEnabled)
	assert.False(t, o.LockedForEncryption)
	assert.Equal(t, "canary", o.EncryptedVerificationKey)
	require.NoError(t, mock.ExpectationsWereMet())
}
