package rotation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/manokeeper/internal/client/keys"
	"github.com/dmitrijs2005/manokeeper/internal/client/models"
	"github.com/dmitrijs2005/manokeeper/internal/client/recrypt"
	"github.com/dmitrijs2005/manokeeper/internal/cryptox"
	"github.com/dmitrijs2005/manokeeper/internal/logging"
	"github.com/dmitrijs2005/manokeeper/internal/netx"
	"github.com/google/uuid"
)

// commitCheckTimeout bounds the organisation read that settles an Encrypt
// call whose outcome is unknown.
const commitCheckTimeout = 30 * time.Second

// Client is the part of the REST API a rotation talks to.
type Client interface {
	recrypt.DocumentStore
	Lister
	GetOrganisation(ctx context.Context, organisationID string) (*models.Organisation, error)
	SetEncryptionLock(ctx context.Context, organisationID string, locked bool, lockedBy string) error
	Encrypt(ctx context.Context, req *models.EncryptRequest) (*models.Organisation, error)
}

// KeyStore holds the process-wide organisation key. *keys.Manager implements it.
type KeyStore interface {
	Active() (keys.Material, bool)
	SetActive(material []byte, opts keys.SetOptions) (keys.Material, error)
	CheckLength(passphrase string) error
	Reset()
}

// OrphanJournal remembers blobs that nothing references any more.
type OrphanJournal interface {
	Record(ctx context.Context, rotationID string, reason models.OrphanReason, blobs []models.BlobRef) error
}

type Orchestrator struct {
	client    Client
	keys      KeyStore
	orphans   OrphanJournal
	log       logging.Logger
	docPolicy recrypt.DocumentFailurePolicy
	documents *recrypt.DocumentRecryptor

	userID     string
	now        func() time.Time
	newID      func() string
	onProgress func(Snapshot)

	running atomic.Bool

	mu        sync.RWMutex
	org       *models.Organisation
	snapshot  Snapshot
	inventory int
}

type Option func(*Orchestrator)

// WithJournal enables orphan tracking. Without it orphaned blobs are only logged.
func WithJournal(j OrphanJournal) Option {
	return func(o *Orchestrator) { o.orphans = j }
}

func WithLogger(l logging.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

func WithDocumentFailurePolicy(p recrypt.DocumentFailurePolicy) Option {
	return func(o *Orchestrator) { o.docPolicy = p }
}

// WithProgress registers fn to be called synchronously after every state change.
func WithProgress(fn func(Snapshot)) Option {
	return func(o *Orchestrator) { o.onProgress = fn }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func NewOrchestrator(client Client, keyStore KeyStore, org *models.Organisation, userID string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client: client,
		keys:   keyStore,
		log:    logging.Nop(),
		org:    org,
		userID: userID,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.documents = recrypt.NewDocumentRecryptor(client, o.log, recrypt.WithDocumentFailurePolicy(o.docPolicy))
	return o
}

// SetInventory sets the progress denominator of the next rotation.
func (o *Orchestrator) SetInventory(total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inventory = total
}

// Inventory returns the progress denominator set by SetInventory.
func (o *Orchestrator) Inventory() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.inventory
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.snapshot
}

// Organisation returns the organisation as last confirmed by the server.
func (o *Orchestrator) Organisation() *models.Organisation {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.org == nil {
		return nil
	}
	org := *o.org
	return &org
}

func (o *Orchestrator) update(fn func(s *Snapshot)) {
	o.mu.Lock()
	fn(&o.snapshot)
	s := o.snapshot
	o.mu.Unlock()

	if o.onProgress != nil {
		o.onProgress(s)
	}
}

func (o *Orchestrator) enter(ctx context.Context, phase Phase, status string) {
	o.update(func(s *Snapshot) {
		s.Phase = phase
		s.Status = status
	})
	o.log.Info(ctx, "rotation phase", "phase", string(phase), "status", status)
}

// Result describes a committed rotation.
type Result struct {
	RotationID   string
	Organisation *models.Organisation
	Processed    int
	// Replaced are the blobs superseded by re-encrypted copies.
	Replaced []models.BlobRef
	// DocumentFailures counts documents kept under their previous reference.
	DocumentFailures int
}

// Validate checks a new passphrase and its confirmation. It has no side effects.
func (o *Orchestrator) Validate(passphrase, confirmation string) error {
	switch {
	case strings.TrimSpace(passphrase) == "":
		return fmt.Errorf("%w: key is required", ErrValidation)
	case confirmation == "":
		return fmt.Errorf("%w: key confirmation is required", ErrValidation)
	}
	if err := o.keys.CheckLength(strings.TrimSpace(passphrase)); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if passphrase != confirmation {
		return fmt.Errorf("%w: keys do not match", ErrValidation)
	}
	return nil
}

// rotation carries the state of one Rotate call.
type rotation struct {
	id          string
	org         models.Organisation
	previous    keys.Material
	hadPrevious bool
	keys        recrypt.Keys
	lockHeld    bool

	replaced []models.BlobRef
	uploaded []models.BlobRef
	docFails int
}

// Rotate re-encrypts all of the organisation's data under a key derived
// from passphrase. Only one rotation may run at a time.
func (o *Orchestrator) Rotate(ctx context.Context, passphrase, confirmation string) (*Result, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyInProgress
	}
	defer o.running.Store(false)

	if err := o.Validate(passphrase, confirmation); err != nil {
		return nil, err
	}

	org := o.Organisation()
	if org == nil {
		return nil, ErrNoOrganisation
	}

	r := &rotation{id: o.newID(), org: *org}
	log := o.log.With("rotation", r.id, "organisation", org.ID)

	o.mu.RLock()
	total := o.inventory
	o.mu.RUnlock()

	o.update(func(s *Snapshot) {
		*s = Snapshot{Phase: PhasePreparation, Status: "deriving new key", Total: total}
	})

	r.previous, r.hadPrevious = o.keys.Active()

	next, err := o.keys.SetActive([]byte(strings.TrimSpace(passphrase)), keys.SetOptions{NeedsDerivation: true})
	if err != nil {
		return nil, o.fail(ctx, log, r, fmt.Errorf("derive key: %w", err))
	}
	r.keys = recrypt.Keys{From: r.previous, To: next}

	canary, err := cryptox.EncryptVerificationKey(next)
	if err != nil {
		return nil, o.fail(ctx, log, r, fmt.Errorf("verification key: %w", err))
	}

	o.enter(ctx, PhaseLocking, "locking organisation")
	if err := ctx.Err(); err != nil {
		return nil, o.fail(ctx, log, r, fmt.Errorf("%w: %w", ErrCancelled, err))
	}
	if err := o.client.SetEncryptionLock(ctx, org.ID, true, o.userID); err != nil {
		return nil, o.fail(ctx, log, r, o.classify(ctx, ErrLockAcquisition, err))
	}
	r.lockHeld = true

	batches := make(map[models.Collection][]models.Item, len(models.RotationOrder))
	for _, col := range models.RotationOrder {
		items, err := o.recryptCollection(ctx, r, col)
		if err != nil {
			return nil, o.fail(ctx, log, r, err)
		}
		batches[col] = items
	}

	o.update(func(s *Snapshot) {
		s.Phase = PhaseUploading
		s.Status = "sending re-encrypted data, this can take several minutes"
		s.UploadStartedAt = o.now()
	})
	log.Info(ctx, "rotation phase", "phase", string(PhaseUploading))
	if err := ctx.Err(); err != nil {
		return nil, o.fail(ctx, log, r, fmt.Errorf("%w: %w", ErrCancelled, err))
	}

	updated, err := o.client.Encrypt(ctx, &models.EncryptRequest{
		OrganisationID:           org.ID,
		Batches:                  batches,
		EncryptedVerificationKey: canary,
		EncryptionLastUpdateAt:   org.EncryptionLastUpdateAt,
	})
	if err != nil {
		updated, err = o.settleCommit(ctx, log, r, err)
		if err != nil {
			return nil, err
		}
	}

	o.mu.Lock()
	o.org = updated
	o.mu.Unlock()

	o.enter(ctx, PhaseDone, "data encrypted")
	o.recordOrphans(context.WithoutCancel(ctx), log, r.id, models.OrphanReplaced, r.replaced)

	final := o.Snapshot()
	log.Info(ctx, "rotation committed", "processed", final.Processed, "replaced_blobs", len(r.replaced), "document_failures", r.docFails)

	return &Result{
		RotationID:       r.id,
		Organisation:     updated,
		Processed:        final.Processed,
		Replaced:         r.replaced,
		DocumentFailures: r.docFails,
	}, nil
}

func (o *Orchestrator) recryptCollection(ctx context.Context, r *rotation, col models.Collection) ([]models.Item, error) {
	o.update(func(s *Snapshot) {
		s.Phase = PhaseEncrypting
		s.Collection = col
		s.Status = "re-encrypting " + string(col)
	})
	o.log.Debug(ctx, "recrypting collection", "collection", string(col))

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	items, err := o.client.ListCollection(ctx, col, r.org.ID)
	if err != nil {
		return nil, o.classify(ctx, ErrFetch, fmt.Errorf("%s: %w", col, err))
	}
	// an unset or stale inventory must not let Processed pass Total
	o.update(func(s *Snapshot) { s.Total = max(s.Total, s.Processed+len(items)) })

	var transform recrypt.Transform
	if col.BearsDocuments() {
		transform = o.documentTransform(col, r)
	}

	out := make([]models.Item, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
		}

		next, err := recrypt.RecryptItem(ctx, item, r.keys, transform)
		if err != nil {
			if errors.Is(err, recrypt.ErrDocument) {
				return nil, fmt.Errorf("%w: %s %s: %w", ErrDocumentRecryption, col, item.ID, err)
			}
			return nil, o.classify(ctx, ErrItemRecryption, fmt.Errorf("%s %s: %w", col, item.ID, err))
		}
		if next != nil {
			out = append(out, *next)
		}
		o.update(func(s *Snapshot) { s.Processed++ })
	}
	return out, nil
}

// documentTransform re-encrypts the documents of a person-related record.
// Files belong to the person: the record itself for persons, the "person"
// field of the payload otherwise.
func (o *Orchestrator) documentTransform(col models.Collection, r *rotation) recrypt.Transform {
	return func(ctx context.Context, item models.Item, payload models.Payload) (models.Payload, error) {
		docs := payload.Documents()
		if len(docs) == 0 {
			return payload, nil
		}

		owner := payload.String("person")
		if col == models.CollectionPersons {
			owner = item.ID
		}

		outcome, err := o.documents.RecryptDocuments(ctx, docs, owner, r.keys)
		r.uploaded = append(r.uploaded, outcome.Uploaded...)
		if err != nil {
			return nil, err
		}
		r.replaced = append(r.replaced, outcome.Replaced...)
		r.docFails += outcome.Failed

		if err := payload.SetDocuments(outcome.Documents); err != nil {
			return nil, err
		}
		return payload, nil
	}
}

// settleCommit decides what a failed Encrypt call did. A 4xx answer is a
// rejection. Anything else may have reached the server, so the organisation
// is read back: a watermark past the one sent means the batch was committed.
func (o *Orchestrator) settleCommit(ctx context.Context, log logging.Logger, r *rotation, encryptErr error) (*models.Organisation, error) {
	if rejected(encryptErr) {
		return nil, o.fail(ctx, log, r, o.classify(ctx, ErrCommit, encryptErr))
	}
	log.Warn(ctx, "commit outcome unclear, reading organisation back", "error", encryptErr)

	check, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitCheckTimeout)
	defer cancel()
	org, err := o.client.GetOrganisation(check, r.org.ID)
	switch {
	case err != nil:
		log.Error(ctx, "could not read organisation back", "error", err)
	case org != nil && watermarkMoved(r.org.EncryptionLastUpdateAt, org.EncryptionLastUpdateAt):
		log.Info(ctx, "commit confirmed by encryption watermark")
		return org, nil
	}
	return nil, o.rollback(ctx, log, r, fmt.Errorf("%w: %w", ErrCommitUnknown, encryptErr), false)
}

func rejected(err error) bool {
	status := netx.StatusOf(err)
	return status >= 400 && status < 500
}

func watermarkMoved(sent, current *time.Time) bool {
	switch {
	case current == nil:
		return false
	case sent == nil:
		return true
	}
	return current.After(*sent)
}

// classify tags err with kind, unless ctx was cancelled meanwhile.
func (o *Orchestrator) classify(ctx context.Context, kind, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, ctxErr)
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// fail restores the previous key, releases the lock if it was taken and
// records the failure. It returns cause.
func (o *Orchestrator) fail(ctx context.Context, log logging.Logger, r *rotation, cause error) error {
	return o.rollback(ctx, log, r, cause, true)
}

// rollback is fail with a choice: uploaded blobs are journaled as abandoned
// only when the server is known not to reference them.
func (o *Orchestrator) rollback(ctx context.Context, log logging.Logger, r *rotation, cause error, abandon bool) error {
	frozen := Report(o.Snapshot(), o.now()).Percent

	if r.hadPrevious {
		if _, err := o.keys.SetActive(r.previous, keys.SetOptions{NeedsDerivation: false}); err != nil {
			log.Error(ctx, "could not restore previous key", "error", err)
		}
	} else {
		o.keys.Reset()
	}

	// cleanup must run even if ctx is what failed
	bg := context.WithoutCancel(ctx)
	if r.lockHeld {
		if err := o.client.SetEncryptionLock(bg, r.org.ID, false, ""); err != nil {
			log.Error(bg, "could not release organisation lock", "error", err)
		}
	}
	if abandon {
		o.recordOrphans(bg, log, r.id, models.OrphanAbandoned, r.uploaded)
	} else if len(r.uploaded) > 0 {
		log.Warn(bg, "uploaded blobs not journaled, commit outcome unknown", "count", len(r.uploaded))
	}

	o.update(func(s *Snapshot) {
		s.Phase = PhaseError
		s.Status = cause.Error()
		s.Processed = 0
		s.UploadStartedAt = time.Time{}
		s.FrozenPercent = frozen
		s.Err = cause
	})
	log.Error(ctx, "rotation failed, previous key restored", "error", cause)
	return cause
}

func (o *Orchestrator) recordOrphans(ctx context.Context, log logging.Logger, rotationID string, reason models.OrphanReason, blobs []models.BlobRef) {
	if len(blobs) == 0 {
		return
	}
	if o.orphans == nil {
		log.Warn(ctx, "orphaned blobs not journaled", "reason", string(reason), "count", len(blobs))
		return
	}
	if err := o.orphans.Record(ctx, rotationID, reason, blobs); err != nil {
		log.Warn(ctx, "could not journal orphaned blobs", "reason", string(reason), "count", len(blobs), "error", err)
	}
}
