// Package models holds the server-side domain types. JSON tags follow the
// wire format the client expects.
package models

import "time"

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

type User struct {
	ID                     string `json:"_id"`
	Name                   string `json:"name"`
	Role                   string `json:"role"`
	Organisation           string `json:"organisation"`
	HealthcareProfessional bool   `json:"healthcareProfessional"`
}
