package records

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/manokeeper/internal/common"
	"github.com/dmitrijs2005/manokeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var recordCols = []string{"id", "organisation_id", "encrypted", "encrypted_entity_key", "created_at", "updated_at", "deleted_at"}

func TestList(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	deleted := created.Add(time.Hour)
	after := time.UnixMilli(0)

	mock.ExpectQuery(`(?s)SELECT .* FROM records\s+WHERE organisation_id = \$1 AND collection = \$2 AND updated_at > \$3.*LIMIT \$5 OFFSET \$6`).
		WithArgs("org1", "person", after, true, int64(100), int64(200)).
		WillReturnRows(sqlmock.NewRows(recordCols).
			AddRow("p1", "org1", "enc1", "key1", created, created, nil).
			AddRow("p2", "org1", "enc2", "key2", created, deleted, deleted))

	got, err := repo.List(context.Background(), Query{
		OrganisationID: "org1",
		Collection:     "person",
		UpdatedAfter:   after,
		WithDeleted:    true,
		Limit:          100,
		Offset:         200,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.Collection("person"), got[0].Collection)
	assert.Equal(t, "enc1", got[0].Encrypted)
	assert.Nil(t, got[0].DeletedAt)
	require.NotNil(t, got[1].DeletedAt)
	assert.True(t, deleted.Equal(*got[1].DeletedAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestList_EmptyIsNotNil(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WillReturnRows(sqlmock.NewRows(recordCols))

	got, err := repo.List(context.Background(), Query{OrganisationID: "org1", Collection: "report", Limit: 1})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestList_Errors(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WillReturnError(errors.New("db down"))
	_, err := repo.List(context.Background(), Query{})
	require.ErrorContains(t, err, "failed to select records: db down")

	mock.ExpectQuery(`SELECT`).WillReturnRows(sqlmock.NewRows(recordCols).
		AddRow("p1", "org1", "e", "k", nil, nil, nil).
		RowError(0, errors.New("row broken")))
	_, err = repo.List(context.Background(), Query{})
	require.ErrorContains(t, err, "row broken")
}

func TestUpdateEncrypted(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rec := &models.Record{ID: "p1", Collection: "person", Organisation: "org1", Encrypted: "new", EncryptedEntityKey: "newkey"}

	q := `(?s)UPDATE records SET encrypted = \$4, encrypted_entity_key = \$5, updated_at = \$6\s+WHERE organisation_id = \$1 AND collection = \$2 AND id = \$3`
	mock.ExpectExec(q).WithArgs("org1", "person", "p1", "new", "newkey", at).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("org1", "person", "p1", "new", "newkey", at).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q).WithArgs("org1", "person", "p1", "new", "newkey", at).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(q).WithArgs("org1", "person", "p1", "new", "newkey", at).WillReturnError(errors.New("db down"))

	require.NoError(t, repo.UpdateEncrypted(context.Background(), rec, at))
	require.ErrorIs(t, repo.UpdateEncrypted(context.Background(), rec, at), common.ErrorNotFound)
	require.ErrorContains(t, repo.UpdateEncrypted(context.Background(), rec, at), "unexpected rows affected: 2")
	require.ErrorContains(t, repo.UpdateEncrypted(context.Background(), rec, at), "db error: db down")
	require.NoError(t, mock.ExpectationsWereMet())
}
