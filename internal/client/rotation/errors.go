package rotation

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/manokeeper/internal/common"
)

var (
	// ErrValidation: empty, too short or mismatched passphrase. Nothing was changed.
	ErrValidation = fmt.Errorf("invalid passphrase: %w", common.ErrValidation)
	// ErrLockAcquisition: the server refused to lock the organisation.
	ErrLockAcquisition = errors.New("could not lock organisation for encryption")
	// ErrFetch: a collection could not be listed.
	ErrFetch = errors.New("could not fetch collection")
	// ErrItemRecryption: a record could not be re-encrypted. Fatal.
	ErrItemRecryption = errors.New("could not re-encrypt record")
	// ErrDocumentRecryption is fatal only under the Abort document policy.
	ErrDocumentRecryption = errors.New("could not re-encrypt document")
	// ErrCommit: the server rejected the re-encrypted batch.
	ErrCommit = errors.New("server rejected re-encrypted data")
	// ErrCommitUnknown: the batch was sent but whether the server kept it
	// could not be established. Uploaded blobs are left alone.
	ErrCommitUnknown     = errors.New("commit outcome unknown, check the organisation before retrying")
	ErrAlreadyInProgress = errors.New("a key rotation is already in progress")
	ErrCancelled         = errors.New("key rotation cancelled")
	ErrNoOrganisation    = errors.New("organisation not loaded")
)

// ItemFailurePolicy decides what a record failure does to the rotation.
// Abort is the only policy: a record that cannot be moved to the new key
// would be unreadable after commit.
type ItemFailurePolicy int

const ItemAbort ItemFailurePolicy = iota
