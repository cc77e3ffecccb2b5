package recrypt

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/manokeeper/internal/client/models"
	"github.com/dmitrijs2005/manokeeper/internal/cryptox"
)

type fakeStore struct {
	blobs       map[string][]byte
	failUpload  map[string]bool // by upload name
	uploads     []models.Upload
	uploadCount int
}

func newFakeStore() *fakeStore {
	return &fakeStore{blobs: map[string][]byte{}, failUpload: map[string]bool{}}
}

func (f *fakeStore) DownloadDocument(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, ok := f.blobs[path]
	if !ok {
		return nil, errors.New("404 " + path)
	}
	return b, nil
}

func (f *fakeStore) UploadDocument(ctx context.Context, personID string, up models.Upload) (*models.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.failUpload[up.Name] {
		return nil, errors.New("upload refused")
	}
	f.uploadCount++
	name := fmt.Sprintf("new-%d", f.uploadCount)
	f.blobs["/person/"+personID+"/document/"+name] = up.Blob
	f.uploads = append(f.uploads, up)
	return &models.FileInfo{Filename: name, OriginalName: up.Name, MimeType: up.MimeType, Size: int64(len(up.Blob))}, nil
}

// storeFile seals content under orgKey, stores it and returns its reference.
func (f *fakeStore) storeFile(personID, filename, original string, content, orgKey []byte) models.DocumentRef {
	enc, err := cryptox.EncryptFile(content, orgKey)
	if err != nil {
		panic(err)
	}
	f.blobs["/person/"+personID+"/document/"+filename] = enc.Blob
	return models.DocumentRef{
		ID:                 filename,
		Name:               original,
		Type:               models.DocumentTypeDocument,
		EncryptedEntityKey: enc.EncryptedEntityKey,
		CreatedBy:          "user-1",
		File:               &models.FileInfo{Filename: filename, OriginalName: original, MimeType: "application/pdf"},
	}
}
