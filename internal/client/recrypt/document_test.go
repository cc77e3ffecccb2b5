package recrypt

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dmitrijs2005/manokeeper/internal/client/models"
	"github.com/dmitrijs2005/manokeeper/internal/cryptox"
	"github.com/dmitrijs2005/manokeeper/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeys() Keys {
	return Keys{From: cryptox.GenerateEntityKey(), To: cryptox.GenerateEntityKey()}
}

func TestRecryptDocument_Folder(t *testing.T) {
	store := newFakeStore()
	r := NewDocumentRecryptor(store, logging.Nop())

	folder := models.DocumentRef{ID: "f", Name: "Scans", Type: models.DocumentTypeFolder}
	got, err := r.RecryptDocument(context.Background(), folder, "p1", testKeys())
	require.NoError(t, err)
	assert.Equal(t, folder, got)
	assert.Zero(t, store.uploadCount)
}

func TestRecryptDocument_ReencryptsAndUploads(t *testing.T) {
	keys := testKeys()
	store := newFakeStore()
	r := NewDocumentRecryptor(store, logging.Nop())

	doc := store.storeFile("p1", "old-1", "scan.pdf", []byte("pdf bytes"), keys.From)

	got, err := r.RecryptDocument(context.Background(), doc, "p1", keys)
	require.NoError(t, err)

	assert.Equal(t, "new-1", got.ID)
	assert.Equal(t, "/person/p1/document/new-1", got.DownloadPath)
	assert.NotEqual(t, doc.EncryptedEntityKey, got.EncryptedEntityKey)
	assert.Equal(t, doc.Name, got.Name)
	assert.Equal(t, doc.CreatedBy, got.CreatedBy)
	require.NotNil(t, got.File)
	assert.Equal(t, "scan.pdf", got.File.OriginalName)
	assert.Equal(t, "application/pdf", store.uploads[0].MimeType)

	plain, err := cryptox.DecryptFile(store.blobs[got.DownloadPath], got.EncryptedEntityKey, keys.To)
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", string(plain))

	// original reference is untouched
	assert.Equal(t, "old-1", doc.ID)
}

func TestRecryptDocument_UsesDownloadPath(t *testing.T) {
	keys := testKeys()
	store := newFakeStore()
	r := NewDocumentRecryptor(store, logging.Nop())

	// stored under another person than the one the record belongs to
	doc := store.storeFile("p9", "old-1", "a.txt", []byte("x"), keys.From)
	doc.DownloadPath = "/person/p9/document/old-1"

	got, err := r.RecryptDocument(context.Background(), doc, "p1", keys)
	require.NoError(t, err)
	assert.Equal(t, "/person/p1/document/new-1", got.DownloadPath)
}

func TestRecryptDocument_Errors(t *testing.T) {
	keys := testKeys()
	store := newFakeStore()
	r := NewDocumentRecryptor(store, logging.Nop())
	ctx := context.Background()

	_, err := r.RecryptDocument(ctx, models.DocumentRef{ID: "x"}, "p1", keys)
	require.Error(t, err, "no file name and no download path")

	doc := store.storeFile("p1", "old-1", "a.txt", []byte("x"), keys.From)
	_, err = r.RecryptDocument(ctx, doc, "", keys)
	require.Error(t, err, "owner required")

	wrong := Keys{From: cryptox.GenerateEntityKey(), To: keys.To}
	_, err = r.RecryptDocument(ctx, doc, "p1", wrong)
	require.ErrorIs(t, err, cryptox.ErrDecrypt)
}

func TestRecryptDocuments_IsolatesFailures(t *testing.T) {
	keys := testKeys()
	store := newFakeStore()
	r := NewDocumentRecryptor(store, logging.Nop())

	docs := []models.DocumentRef{
		store.storeFile("p1", "d1", "one.pdf", []byte("1"), keys.From),
		store.storeFile("p1", "d2", "two.pdf", []byte("2"), keys.From),
		store.storeFile("p1", "d3", "three.pdf", []byte("3"), keys.From),
		{ID: "folder", Name: "Dossier", Type: models.DocumentTypeFolder},
	}
	store.failUpload["two.pdf"] = true

	out, err := r.RecryptDocuments(context.Background(), docs, "p1", keys)
	require.NoError(t, err)

	require.Len(t, out.Documents, len(docs))
	assert.Equal(t, docs[1], out.Documents[1], "failed document kept byte-identical")
	assert.Equal(t, docs[3], out.Documents[3])
	assert.NotEqual(t, docs[0].ID, out.Documents[0].ID)
	assert.NotEqual(t, docs[2].ID, out.Documents[2].ID)
	assert.Equal(t, 1, out.Failed)

	assert.ElementsMatch(t, []models.BlobRef{{PersonID: "p1", Filename: "d1"}, {PersonID: "p1", Filename: "d3"}}, out.Replaced)
	assert.Len(t, out.Uploaded, 2)
}

func TestRecryptDocuments_AbortPolicy(t *testing.T) {
	keys := testKeys()
	store := newFakeStore()
	r := NewDocumentRecryptor(store, logging.Nop(), WithDocumentFailurePolicy(Abort))
	assert.Equal(t, "abort", r.Policy().String())

	docs := []models.DocumentRef{
		store.storeFile("p1", "d1", "one.pdf", []byte("1"), keys.From),
		store.storeFile("p1", "d2", "two.pdf", []byte("2"), keys.From),
	}
	store.failUpload["two.pdf"] = true

	out, err := r.RecryptDocuments(context.Background(), docs, "p1", keys)
	require.ErrorIs(t, err, ErrDocument)
	assert.Len(t, out.Uploaded, 1, "first upload happened before the failure")
}

func TestRecryptDocuments_Cancelled(t *testing.T) {
	keys := testKeys()
	store := newFakeStore()
	r := NewDocumentRecryptor(store, logging.Nop())

	docs := []models.DocumentRef{store.storeFile("p1", "d1", "one.pdf", []byte("1"), keys.From)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.RecryptDocuments(ctx, docs, "p1", keys)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, store.uploadCount)
}

func TestRecryptDocuments_KeepsFieldsItDoesNotModel(t *testing.T) {
	keys := testKeys()
	store := newFakeStore()
	r := NewDocumentRecryptor(store, logging.Nop())

	a := store.storeFile("p1", "d1", "a.pdf", []byte("a"), keys.From)
	b := store.storeFile("p1", "d2", "b.pdf", []byte("b"), keys.From)
	delete(store.blobs, "/person/p1/document/d2")

	raw := `[` +
		`{"_id":"d1","name":"a.pdf","type":"document","group":true,"encryptedEntityKey":"` + a.EncryptedEntityKey + `","file":{"filename":"d1","originalname":"a.pdf","mimetype":"application/pdf","size":1}},` +
		`{"_id":"d2","name":"b.pdf","type":"document","group":true,"linkedItem":{"_id":"t1","type":"treatment"},"encryptedEntityKey":"` + b.EncryptedEntityKey + `","file":{"filename":"d2","originalname":"b.pdf","mimetype":"application/pdf","size":1}},` +
		`{"_id":"f","name":"Scans","type":"folder","createdAt":1700000000000,"position":"2"}` +
		`]`
	var docs []models.DocumentRef
	require.NoError(t, json.Unmarshal([]byte(raw), &docs))

	out, err := r.RecryptDocuments(context.Background(), docs, "p1", keys)
	require.NoError(t, err)
	require.Len(t, out.Documents, 3)
	assert.Equal(t, 1, out.Failed)

	var rewritten map[string]any
	require.NoError(t, json.Unmarshal(mustMarshal(t, out.Documents[0]), &rewritten))
	assert.Equal(t, "new-1", rewritten["_id"])
	assert.Equal(t, "/person/p1/document/new-1", rewritten["downloadPath"])
	assert.Equal(t, true, rewritten["group"])
	assert.NotEqual(t, a.EncryptedEntityKey, rewritten["encryptedEntityKey"])

	var original []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &original))
	assert.Equal(t, string(original[1]), string(mustMarshal(t, out.Documents[1])))
	assert.Equal(t, string(original[2]), string(mustMarshal(t, out.Documents[2])))
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
