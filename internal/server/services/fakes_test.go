package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/manokeeper/internal/common"
	"github.com/dmitrijs2005/manokeeper/internal/dbx"
	"github.com/dmitrijs2005/manokeeper/internal/server/models"
	"github.com/dmitrijs2005/manokeeper/internal/server/repositories/documents"
	"github.com/dmitrijs2005/manokeeper/internal/server/repositories/organisations"
	"github.com/dmitrijs2005/manokeeper/internal/server/repositories/records"
	"github.com/dmitrijs2005/manokeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/manokeeper/internal/server/repositories/users"
)

type fakeOrgsRepo struct {
	organisations.Repository

	org       *models.Organisation
	getErr    error
	lockCalls int
	commitAt  time.Time
	commitErr error
}

func (f *fakeOrgsRepo) GetByID(ctx context.Context, id string) (*models.Organisation, error) {
	return f.GetForUpdate(ctx, id)
}

func (f *fakeOrgsRepo) GetForUpdate(ctx context.Context, id string) (*models.Organisation, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.org == nil || f.org.ID != id {
		return nil, common.ErrorNotFound
	}
	o := *f.org
	return &o, nil
}

func (f *fakeOrgsRepo) SetLock(ctx context.Context, id string, locked bool, lockedBy *string) error {
	f.lockCalls++
	f.org.LockedForEncryption = locked
	f.org.LockedBy = lockedBy
	return nil
}

func (f *fakeOrgsRepo) CommitEncryption(ctx context.Context, id, key string, at time.Time) (*models.Organisation, error) {
	if f.commitErr != nil {
		return nil, f.commitErr
	}
	f.commitAt = at
	f.org.EncryptionEnabled = true
	f.org.EncryptedVerificationKey = key
	f.org.EncryptionLastUpdateAt = &at
	f.org.LockedForEncryption = false
	f.org.LockedBy = nil
	o := *f.org
	return &o, nil
}

type fakeUsersRepo struct {
	users.Repository
	users map[string]*models.User
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

type fakeRecordsRepo struct {
	records.Repository

	lastQuery records.Query
	list      []models.Record
	updated   []models.Record
	updateErr error
}

func (f *fakeRecordsRepo) List(ctx context.Context, q records.Query) ([]models.Record, error) {
	f.lastQuery = q
	return f.list, nil
}

func (f *fakeRecordsRepo) UpdateEncrypted(ctx context.Context, rec *models.Record, at time.Time) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, *rec)
	return nil
}

type fakeDocsRepo struct {
	documents.Repository

	docs      map[string]*models.Document
	createErr error
}

func (f *fakeDocsRepo) Create(ctx context.Context, d *models.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.docs == nil {
		f.docs = map[string]*models.Document{}
	}
	f.docs[d.Filename] = d
	return nil
}

func (f *fakeDocsRepo) Get(ctx context.Context, org, person, filename string) (*models.Document, error) {
	d, ok := f.docs[filename]
	if !ok || d.OrganisationID != org || d.PersonID != person {
		return nil, common.ErrorNotFound
	}
	return d, nil
}

func (f *fakeDocsRepo) Delete(ctx context.Context, org, person, filename string) error {
	if _, err := f.Get(ctx, org, person, filename); err != nil {
		return err
	}
	delete(f.docs, filename)
	return nil
}

type fakeRepoManager struct {
	repomanager.RepositoryManager

	o *fakeOrgsRepo
	u *fakeUsersRepo
	r *fakeRecordsRepo
	d *fakeDocsRepo
}

func (m *fakeRepoManager) Organisations(db dbx.DBTX) organisations.Repository { return m.o }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository                 { return m.u }
func (m *fakeRepoManager) Records(db dbx.DBTX) records.Repository             { return m.r }
func (m *fakeRepoManager) Documents(db dbx.DBTX) documents.Repository         { return m.d }

type fakeStore struct {
	blobs     map[string][]byte
	putErr    error
	deleteErr error
	deleted   []string
}

func (s *fakeStore) Put(ctx context.Context, key, contentType string, body []byte) error {
	if s.putErr != nil {
		return s.putErr
	}
	if s.blobs == nil {
		s.blobs = map[string][]byte{}
	}
	s.blobs[key] = body
	return nil
}

func (s *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, ok := s.blobs[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return b, nil
}

func (s *fakeStore) Delete(ctx context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.blobs, key)
	return nil
}

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}
