package services

import (
	"context"
	"crypto/sha256"
	"errors"
	"sync"

	"github.com/dmitrijs2005/manokeeper/internal/client/client"
	"github.com/dmitrijs2005/manokeeper/internal/client/models"
)

// fakeClient embeds client.Client so unused methods panic if reached.
type fakeClient struct {
	client.Client

	mu sync.Mutex

	user    *models.User
	userErr error
	org     *models.Organisation
	orgErr  error

	collections map[models.Collection][]models.Item

	deleted   []string
	deleteErr map[string]error
}

func (f *fakeClient) Me(ctx context.Context) (*models.User, error) {
	return f.user, f.userErr
}

func (f *fakeClient) GetOrganisation(ctx context.Context, id string) (*models.Organisation, error) {
	if f.orgErr != nil {
		return nil, f.orgErr
	}
	if f.org == nil || f.org.ID != id {
		return nil, client.ErrNotFound
	}
	return f.org, nil
}

func (f *fakeClient) ListCollection(ctx context.Context, c models.Collection, organisationID string) ([]models.Item, error) {
	return f.collections[c], nil
}

func (f *fakeClient) DeleteDocument(ctx context.Context, personID, filename string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErr[filename]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, personID+"/"+filename)
	return nil
}

func fastDerive(passphrase string) []byte {
	sum := sha256.Sum256([]byte(passphrase))
	return sum[:]
}

var errBoom = errors.New("boom")
