package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/manokeeper/internal/common"
	"github.com/dmitrijs2005/manokeeper/internal/server/auth"
	"github.com/dmitrijs2005/manokeeper/internal/server/models"
	"github.com/dmitrijs2005/manokeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/manokeeper/internal/server/storage"
	"github.com/google/uuid"
)

// NewDocument is an upload as received from the client. Content is already
// encrypted.
type NewDocument struct {
	PersonID     string
	OriginalName string
	MimeType     string
	Content      []byte
}

type DocumentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.BlobStore
	now         func() time.Time
	newID       func() string
}

func NewDocumentService(db *sql.DB, repomanager repomanager.RepositoryManager, store storage.BlobStore) *DocumentService {
	return &DocumentService{
		db:          db,
		repomanager: repomanager,
		store:       store,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

func storageKey(organisationID, personID, filename string) string {
	return fmt.Sprintf("organisations/%s/persons/%s/%s", organisationID, personID, filename)
}

// Upload stores a new blob under a fresh filename. The blob is removed again
// if its metadata cannot be saved.
func (s *DocumentService) Upload(ctx context.Context, id auth.Identity, in NewDocument) (*models.FileInfo, error) {
	if in.PersonID == "" {
		return nil, fmt.Errorf("%w: missing person", common.ErrValidation)
	}
	if len(in.Content) == 0 {
		return nil, fmt.Errorf("%w: empty file", common.ErrValidation)
	}

	filename := s.newID()
	doc := &models.Document{
		Filename:       filename,
		OriginalName:   in.OriginalName,
		MimeType:       in.MimeType,
		Size:           int64(len(in.Content)),
		PersonID:       in.PersonID,
		OrganisationID: id.OrganisationID,
		StorageKey:     storageKey(id.OrganisationID, in.PersonID, filename),
		CreatedAt:      s.now().UTC(),
	}

	if err := s.store.Put(ctx, doc.StorageKey, doc.MimeType, in.Content); err != nil {
		return nil, err
	}
	if err := s.repomanager.Documents(s.db).Create(ctx, doc); err != nil {
		if derr := s.store.Delete(ctx, doc.StorageKey); derr != nil {
			err = errors.Join(err, derr)
		}
		return nil, err
	}

	info := doc.Info()
	return &info, nil
}

func (s *DocumentService) Download(ctx context.Context, id auth.Identity, personID, filename string) (*models.Document, []byte, error) {
	doc, err := s.repomanager.Documents(s.db).Get(ctx, id.OrganisationID, personID, filename)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.store.Get(ctx, doc.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return doc, data, nil
}

// Delete removes the metadata first; a blob already gone from storage is not
// an error.
func (s *DocumentService) Delete(ctx context.Context, id auth.Identity, personID, filename string) error {
	repo := s.repomanager.Documents(s.db)
	doc, err := repo.Get(ctx, id.OrganisationID, personID, filename)
	if err != nil {
		return err
	}
	if err := repo.Delete(ctx, id.OrganisationID, personID, filename); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, doc.StorageKey); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return err
	}
	return nil
}
