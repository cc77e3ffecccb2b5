package models

import "time"

// Record is an encrypted row of any collection. The server never sees the
// plaintext.
type Record struct {
	ID                 string     `json:"_id"`
	Collection         Collection `json:"-"`
	Organisation       string     `json:"organisation"`
	Encrypted          string     `json:"encrypted"`
	EncryptedEntityKey string     `json:"encryptedEntityKey"`
	CreatedAt          *time.Time `json:"createdAt,omitempty"`
	UpdatedAt          *time.Time `json:"updatedAt,omitempty"`
	DeletedAt          *time.Time `json:"deletedAt,omitempty"`
}

// ListOptions mirrors the paging query of the collection endpoints.
type ListOptions struct {
	Limit int64
	Page  int64
	// After, in Unix milliseconds, keeps records updated strictly later.
	After       int64
	WithDeleted bool
}

// EncryptBatch is a whole organisation re-encrypted under a new key.
type EncryptBatch struct {
	Records                  map[Collection][]Record
	EncryptedVerificationKey string
	// Watermark is the encryptionLastUpdateAt the client started from.
	Watermark *time.Time
}
