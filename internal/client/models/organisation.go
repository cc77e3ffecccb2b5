package models

import "time"

// Organisation carries the fields of the server-side organisation record
// that matter to key management.
type Organisation struct {
	ID                       string     `json:"_id"`
	Name                     string     `json:"name"`
	EncryptionEnabled        bool       `json:"encryptionEnabled"`
	EncryptionLastUpdateAt   *time.Time `json:"encryptionLastUpdateAt,omitempty"`
	EncryptedVerificationKey string     `json:"encryptedVerificationKey,omitempty"`
	LockedForEncryption      bool       `json:"lockedForEncryption"`
	LockedBy                 *string    `json:"lockedBy,omitempty"`
}

const RoleAdmin = "admin"

// User is the authenticated caller.
type User struct {
	ID                     string `json:"_id"`
	Name                   string `json:"name"`
	Role                   string `json:"role"`
	Organisation           string `json:"organisation"`
	HealthcareProfessional bool   `json:"healthcareProfessional"`
}

// EncryptRequest is the atomic batch sent to POST /encrypt.
type EncryptRequest struct {
	OrganisationID           string
	Batches                  map[Collection][]Item
	EncryptedVerificationKey string
	// EncryptionLastUpdateAt is the watermark observed before the rotation
	// started; the server rejects the batch when it has moved since.
	EncryptionLastUpdateAt *time.Time
}
