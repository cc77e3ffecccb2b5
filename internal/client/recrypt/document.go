package recrypt

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/manokeeper/internal/client/models"
	"github.com/dmitrijs2005/manokeeper/internal/cryptox"
	"github.com/dmitrijs2005/manokeeper/internal/logging"
)

// ErrDocument marks a failure to recrypt one attached file.
var ErrDocument = errors.New("document recryption failed")

type DocumentFailurePolicy int

const (
	// Isolate logs the failure and keeps the original reference.
	Isolate DocumentFailurePolicy = iota
	// Abort returns the first failure to the caller.
	Abort
)

func (p DocumentFailurePolicy) String() string {
	switch p {
	case Isolate:
		return "isolate"
	case Abort:
		return "abort"
	}
	return fmt.Sprintf("DocumentFailurePolicy(%d)", int(p))
}

// DocumentStore is the blob side of the REST client.
type DocumentStore interface {
	DownloadDocument(ctx context.Context, path string) ([]byte, error)
	UploadDocument(ctx context.Context, personID string, upload models.Upload) (*models.FileInfo, error)
}

type DocumentRecryptor struct {
	store  DocumentStore
	log    logging.Logger
	policy DocumentFailurePolicy
}

type DocumentOption func(*DocumentRecryptor)

func WithDocumentFailurePolicy(p DocumentFailurePolicy) DocumentOption {
	return func(r *DocumentRecryptor) { r.policy = p }
}

func NewDocumentRecryptor(store DocumentStore, log logging.Logger, opts ...DocumentOption) *DocumentRecryptor {
	r := &DocumentRecryptor{store: store, log: log, policy: Isolate}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *DocumentRecryptor) Policy() DocumentFailurePolicy { return r.policy }

// Outcome describes what RecryptDocuments did to one list of documents.
type Outcome struct {
	// Documents has exactly one entry per input document, in input order.
	Documents []models.DocumentRef
	// Replaced are blobs no longer referenced once the new list is committed.
	Replaced []models.BlobRef
	// Uploaded are blobs created by this call.
	Uploaded []models.BlobRef
	Failed   int
}

func sourcePath(doc models.DocumentRef, ownerID string) (string, error) {
	if doc.DownloadPath != "" {
		return doc.DownloadPath, nil
	}
	if doc.File == nil || doc.File.Filename == "" {
		return "", errors.New("document has no file name")
	}
	return models.DocumentPath(ownerID, doc.File.Filename), nil
}

// RecryptDocument re-encrypts one file under keys.To and uploads it to the
// owner's document space. Folders are returned unchanged.
func (r *DocumentRecryptor) RecryptDocument(ctx context.Context, doc models.DocumentRef, ownerID string, keys Keys) (models.DocumentRef, error) {
	if doc.IsFolder() {
		return doc, nil
	}
	if ownerID == "" {
		return doc, errors.New("document owner is unknown")
	}

	path, err := sourcePath(doc, ownerID)
	if err != nil {
		return doc, err
	}

	blob, err := r.store.DownloadDocument(ctx, path)
	if err != nil {
		return doc, fmt.Errorf("download %s: %w", path, err)
	}

	content, err := cryptox.DecryptFile(blob, doc.EncryptedEntityKey, keys.From)
	if err != nil {
		return doc, fmt.Errorf("decrypt %s: %w", path, err)
	}

	enc, err := cryptox.EncryptFile(content, keys.To)
	if err != nil {
		return doc, fmt.Errorf("encrypt %s: %w", path, err)
	}

	upload := models.Upload{Name: doc.Name, Blob: enc.Blob}
	if doc.File != nil {
		upload.Name = doc.File.OriginalName
		upload.MimeType = doc.File.MimeType
	}

	file, err := r.store.UploadDocument(ctx, ownerID, upload)
	if err != nil {
		return doc, fmt.Errorf("upload for %s: %w", ownerID, err)
	}
	if file == nil || file.Filename == "" {
		return doc, errors.New("upload returned no file")
	}
	return doc.Rebind(enc.EncryptedEntityKey, models.DocumentPath(ownerID, file.Filename), file)
}

// RecryptDocuments runs RecryptDocument over docs, applying the failure
// policy. Cancellation of ctx always stops the walk and is returned.
func (r *DocumentRecryptor) RecryptDocuments(ctx context.Context, docs []models.DocumentRef, ownerID string, keys Keys) (*Outcome, error) {
	out := &Outcome{Documents: make([]models.DocumentRef, 0, len(docs))}

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		next, err := r.RecryptDocument(ctx, doc, ownerID, keys)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, ctxErr
			}
			if r.policy == Abort {
				return out, fmt.Errorf("%w: %s: %w", ErrDocument, doc.ID, err)
			}
			r.log.Error(ctx, "document recryption failed, keeping original",
				"document", doc.ID, "owner", ownerID, "error", err)
			out.Failed++
			out.Documents = append(out.Documents, doc) // marshals to its original bytes
			continue
		}

		out.Documents = append(out.Documents, next)
		if doc.IsFolder() {
			continue
		}

		out.Uploaded = append(out.Uploaded, models.BlobRef{PersonID: ownerID, Filename: next.File.Filename})
		if old, ok := r.previousBlob(doc, ownerID); ok {
			out.Replaced = append(out.Replaced, old)
		}
	}
	return out, nil
}

func (r *DocumentRecryptor) previousBlob(doc models.DocumentRef, ownerID string) (models.BlobRef, bool) {
	if doc.DownloadPath != "" {
		return models.ParseDocumentPath(doc.DownloadPath)
	}
	if doc.File != nil && doc.File.Filename != "" {
		return models.BlobRef{PersonID: ownerID, Filename: doc.File.Filename}, true
	}
	return models.BlobRef{}, false
}
