package models

import "time"

// OrphanReason tells why a blob is no longer referenced.
type OrphanReason string

const (
	// OrphanReplaced: the blob was re-encrypted under the new key and the
	// rotation committed; the old copy is dead.
	OrphanReplaced OrphanReason = "replaced"
	// OrphanAbandoned: the blob was uploaded by a rotation that rolled back.
	OrphanAbandoned OrphanReason = "abandoned"
)

// BlobRef locates a stored document blob.
type BlobRef struct {
	PersonID string
	Filename string
}

// OrphanBlob is a journal entry awaiting explicit cleanup.
type OrphanBlob struct {
	ID         int64
	RotationID string
	PersonID   string
	Filename   string
	Reason     OrphanReason
	RecordedAt time.Time
	DeletedAt  *time.Time
}
