package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Item is one record as stored by the server: opaque ciphertext plus the
// entity key wrapped under the organisation key.
type Item struct {
	ID                 string     `json:"_id"`
	Organisation       string     `json:"organisation,omitempty"`
	Encrypted          string     `json:"encrypted"`
	EncryptedEntityKey string     `json:"encryptedEntityKey"`
	CreatedAt          *time.Time `json:"createdAt,omitempty"`
	UpdatedAt          *time.Time `json:"updatedAt,omitempty"`
	DeletedAt          *time.Time `json:"deletedAt,omitempty"`
}

// HasCiphertext is false for legacy records that were never encrypted.
func (i Item) HasCiphertext() bool {
	return i.Encrypted != "" && i.EncryptedEntityKey != ""
}

// Payload is a decrypted record. Fields are kept raw so that anything this
// package does not know about survives a decrypt/re-encrypt cycle untouched.
type Payload map[string]json.RawMessage

func ParsePayload(b []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}
	if p == nil {
		p = Payload{}
	}
	return p, nil
}

func (p Payload) Marshal() ([]byte, error) {
	return marshal(p)
}

// String returns the string field key, or "" when absent or not a string.
func (p Payload) String(key string) string {
	raw, ok := p[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Documents decodes the "documents" field. A missing field, or one that is
// not a list, yields nil.
func (p Payload) Documents() []DocumentRef {
	raw, ok := p["documents"]
	if !ok {
		return nil
	}
	var docs []DocumentRef
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil
	}
	return docs
}

func (p Payload) SetDocuments(docs []DocumentRef) error {
	raw, err := marshal(docs)
	if err != nil {
		return err
	}
	p["documents"] = raw
	return nil
}
