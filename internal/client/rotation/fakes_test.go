package rotation

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/manokeeper/internal/client/keys"
	"github.com/dmitrijs2005/manokeeper/internal/client/models"
	"github.com/dmitrijs2005/manokeeper/internal/common"
	"github.com/dmitrijs2005/manokeeper/internal/cryptox"
	"github.com/stretchr/testify/require"
)

// fakeKeys is a KeyStore with a cheap derivation that counts writes.
type fakeKeys struct {
	mu        sync.Mutex
	active    keys.Material
	setCalls  int
	minLength int
}

var keysDerive = keys.SetOptions{NeedsDerivation: true}

func derive(passphrase string) keys.Material {
	sum := sha256.Sum256([]byte(passphrase))
	return keys.Material(sum[:])
}

func (k *fakeKeys) Active() (keys.Material, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.active == nil {
		return nil, false
	}
	return append(keys.Material(nil), k.active...), true
}

func (k *fakeKeys) SetActive(material []byte, opts keys.SetOptions) (keys.Material, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.setCalls++
	next := append(keys.Material(nil), material...)
	if opts.NeedsDerivation {
		next = derive(string(material))
	}
	k.active = next
	return append(keys.Material(nil), next...), nil
}

func (k *fakeKeys) CheckLength(passphrase string) error {
	if len(passphrase) < k.minLength {
		return fmt.Errorf("%w: too short", common.ErrValidation)
	}
	return nil
}

func (k *fakeKeys) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.active = nil
}

// fakeAPI is an in-memory server. It never sees plaintext.
type fakeAPI struct {
	mu sync.Mutex

	collections map[models.Collection][]models.Item
	blobs       map[string][]byte

	locked      bool
	lockCalls   int
	unlockCalls int
	encryptReqs []*models.EncryptRequest
	uploads     int

	// org is the organisation as the server stores it.
	org *models.Organisation

	lockErr    error
	encryptErr error
	// commitErr is returned by Encrypt after the batch was stored.
	commitErr error
	orgErr    error
	listErr   map[models.Collection]error
	uploadErr map[string]error // by upload name
	// onList runs before a collection is returned; tests use it to block or cancel.
	onList func(ctx context.Context, c models.Collection)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		collections: map[models.Collection][]models.Item{},
		blobs:       map[string][]byte{},
		listErr:     map[models.Collection]error{},
		uploadErr:   map[string]error{},
	}
}

func (f *fakeAPI) SetEncryptionLock(ctx context.Context, organisationID string, locked bool, lockedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if locked {
		f.lockCalls++
		if f.lockErr != nil {
			return f.lockErr
		}
	} else {
		f.unlockCalls++
	}
	f.locked = locked
	return nil
}

func (f *fakeAPI) GetOrganisation(ctx context.Context, organisationID string) (*models.Organisation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.orgErr != nil {
		return nil, f.orgErr
	}
	if f.org == nil || f.org.ID != organisationID {
		return nil, errors.New("organisation not found")
	}
	org := *f.org
	return &org, nil
}

func (f *fakeAPI) ListCollection(ctx context.Context, c models.Collection, organisationID string) ([]models.Item, error) {
	if f.onList != nil {
		f.onList(ctx, c)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.listErr[c]; err != nil {
		return nil, err
	}
	return append([]models.Item(nil), f.collections[c]...), nil
}

func (f *fakeAPI) Encrypt(ctx context.Context, req *models.EncryptRequest) (*models.Organisation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.encryptReqs = append(f.encryptReqs, req)
	if f.encryptErr != nil {
		return nil, f.encryptErr
	}
	f.locked = false
	for c, items := range req.Batches {
		f.collections[c] = items
	}
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	f.org = &models.Organisation{
		ID:                       req.OrganisationID,
		EncryptionEnabled:        true,
		EncryptionLastUpdateAt:   &now,
		EncryptedVerificationKey: req.EncryptedVerificationKey,
	}
	if f.commitErr != nil {
		return nil, f.commitErr
	}
	org := *f.org
	return &org, nil
}

func (f *fakeAPI) DownloadDocument(ctx context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.blobs[path]
	if !ok {
		return nil, errors.New("not found: " + path)
	}
	return b, nil
}

func (f *fakeAPI) UploadDocument(ctx context.Context, personID string, up models.Upload) (*models.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.uploadErr[up.Name]; err != nil {
		return nil, err
	}
	f.uploads++
	name := fmt.Sprintf("up-%d", f.uploads)
	f.blobs["/person/"+personID+"/document/"+name] = up.Blob
	return &models.FileInfo{Filename: name, OriginalName: up.Name, MimeType: up.MimeType, Size: int64(len(up.Blob))}, nil
}

type fakeJournal struct {
	mu      sync.Mutex
	entries map[models.OrphanReason][]models.BlobRef
	ids     []string
}

func (j *fakeJournal) Record(ctx context.Context, rotationID string, reason models.OrphanReason, blobs []models.BlobRef) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.entries == nil {
		j.entries = map[models.OrphanReason][]models.BlobRef{}
	}
	j.entries[reason] = append(j.entries[reason], blobs...)
	j.ids = append(j.ids, rotationID)
	return nil
}

// seedPerson stores a person record with one attached file per name, all
// sealed under key.
func seedPerson(t *testing.T, api *fakeAPI, id string, key []byte, files ...string) []models.DocumentRef {
	t.Helper()
	docs := make([]models.DocumentRef, 0, len(files))
	for i, name := range files {
		enc, err := cryptox.EncryptFile([]byte("content of "+name), key)
		require.NoError(t, err)
		filename := fmt.Sprintf("%s-f%d", id, i)
		api.blobs["/person/"+id+"/document/"+filename] = enc.Blob
		docs = append(docs, models.DocumentRef{
			ID:                 filename,
			Name:               name,
			Type:               models.DocumentTypeDocument,
			EncryptedEntityKey: enc.EncryptedEntityKey,
			File:               &models.FileInfo{Filename: filename, OriginalName: name, MimeType: "text/plain"},
		})
	}
	payload := models.Payload{}
	require.NoError(t, payload.SetDocuments(docs))
	seedItem(t, api, models.CollectionPersons, id, payload, key)
	return docs
}

func seedItem(t *testing.T, api *fakeAPI, c models.Collection, id string, payload models.Payload, key []byte) {
	t.Helper()
	raw, err := payload.Marshal()
	require.NoError(t, err)
	enc, encKey, err := cryptox.EncryptContent(raw, cryptox.GenerateEntityKey(), key)
	require.NoError(t, err)
	api.collections[c] = append(api.collections[c], models.Item{ID: id, Organisation: "org1", Encrypted: enc, EncryptedEntityKey: encKey})
}

func openItem(t *testing.T, item models.Item, key []byte) models.Payload {
	t.Helper()
	raw, _, err := cryptox.DecryptContent(item.Encrypted, item.EncryptedEntityKey, key)
	require.NoError(t, err)
	p, err := models.ParsePayload(raw)
	require.NoError(t, err)
	return p
}
