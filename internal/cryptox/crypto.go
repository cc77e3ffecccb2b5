// Package cryptox holds the symmetric primitives used to protect an
// organisation's records and files.
//
// Every sealed value is nonce||secretbox(message) (XSalsa20-Poly1305),
// base64-encoded (standard alphabet) when it travels as a string. Records and
// files are encrypted with a random per-entity key; the entity key itself is
// sealed under the organisation key and stored next to the ciphertext as
// "encryptedEntityKey". Rotating the organisation key therefore only needs to
// rewrap entity keys for records, while files are re-encrypted in full.
package cryptox

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/manokeeper/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	// KeySize is the length of organisation and entity keys.
	KeySize = 32
	// NonceSize is the secretbox nonce length prepended to every box.
	NonceSize = 24

	verificationPassphrase = "Surprise !"
)

// orgKeySalt is fixed so that the same passphrase always derives the same
// organisation key on every device.
var orgKeySalt = []byte{
	0x80, 0x81, 0x82, 0x83, 0x84, 0x85, 0x86, 0x87,
	0x88, 0x89, 0x8a, 0x8b, 0x8c, 0x8d, 0x8e, 0x8f,
}

var (
	ErrKeySize      = errors.New("invalid key size")
	ErrShortMessage = errors.New("ciphertext too short")
	ErrDecrypt      = errors.New("decryption failed")
)

// DeriveKey derives the organisation key from a passphrase with argon2id
// (t=2, m=64MiB, p=1). The passphrase is base64-encoded first so that every
// client hashes the same byte sequence regardless of input encoding.
func DeriveKey(passphrase string) []byte {
	encoded := base64.StdEncoding.EncodeToString([]byte(passphrase))
	return argon2.IDKey([]byte(encoded), orgKeySalt, 2, 64*1024, 1, KeySize)
}

// GenerateEntityKey returns a fresh random per-entity key.
func GenerateEntityKey() []byte {
	return common.GenerateRandByteArray(KeySize)
}

func toKey(key []byte) (*[KeySize]byte, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: %d", ErrKeySize, len(key))
	}
	var k [KeySize]byte
	copy(k[:], key)
	return &k, nil
}

// Seal encrypts message under key and prepends the random nonce.
func Seal(message, key []byte) ([]byte, error) {
	k, err := toKey(key)
	if err != nil {
		return nil, err
	}
	var nonce [NonceSize]byte
	copy(nonce[:], common.GenerateRandByteArray(NonceSize))

	return secretbox.Seal(nonce[:], message, &nonce, k), nil
}

// Open reverses Seal.
func Open(box, key []byte) ([]byte, error) {
	k, err := toKey(key)
	if err != nil {
		return nil, err
	}
	if len(box) < NonceSize+secretbox.Overhead {
		return nil, ErrShortMessage
	}
	var nonce [NonceSize]byte
	copy(nonce[:], box[:NonceSize])

	plain, ok := secretbox.Open(nil, box[NonceSize:], &nonce, k)
	if !ok {
		return nil, ErrDecrypt
	}
	return plain, nil
}

// SealString is Seal with base64 output.
func SealString(message, key []byte) (string, error) {
	box, err := Seal(message, key)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(box), nil
}

// OpenString is Open with base64 input.
func OpenString(box string, key []byte) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(box)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return Open(raw, key)
}

// EncryptContent seals content with entityKey and wraps entityKey with orgKey.
func EncryptContent(content, entityKey, orgKey []byte) (encryptedContent, encryptedEntityKey string, err error) {
	encryptedContent, err = SealString(content, entityKey)
	if err != nil {
		return "", "", fmt.Errorf("content: %w", err)
	}
	encryptedEntityKey, err = SealString(entityKey, orgKey)
	if err != nil {
		return "", "", fmt.Errorf("entity key: %w", err)
	}
	return encryptedContent, encryptedEntityKey, nil
}

// DecryptContent unwraps the entity key with orgKey and opens the content.
// The entity key is returned so callers can reseal under another org key.
func DecryptContent(encryptedContent, encryptedEntityKey string, orgKey []byte) (content, entityKey []byte, err error) {
	entityKey, err = OpenString(encryptedEntityKey, orgKey)
	if err != nil {
		return nil, nil, fmt.Errorf("entity key: %w", err)
	}
	content, err = OpenString(encryptedContent, entityKey)
	if err != nil {
		return nil, nil, fmt.Errorf("content: %w", err)
	}
	return content, entityKey, nil
}

// EncryptedFile is a sealed file blob plus its wrapped per-file key.
type EncryptedFile struct {
	Blob               []byte
	EncryptedEntityKey string
}

// EncryptFile seals content under a new random file key wrapped by orgKey.
func EncryptFile(content, orgKey []byte) (*EncryptedFile, error) {
	fileKey := GenerateEntityKey()
	defer common.WipeByteArray(fileKey)

	blob, err := Seal(content, fileKey)
	if err != nil {
		return nil, err
	}
	wrapped, err := SealString(fileKey, orgKey)
	if err != nil {
		return nil, err
	}
	return &EncryptedFile{Blob: blob, EncryptedEntityKey: wrapped}, nil
}

// DecryptFile opens a blob produced by EncryptFile.
func DecryptFile(blob []byte, encryptedEntityKey string, orgKey []byte) ([]byte, error) {
	fileKey, err := OpenString(encryptedEntityKey, orgKey)
	if err != nil {
		return nil, fmt.Errorf("file key: %w", err)
	}
	defer common.WipeByteArray(fileKey)

	return Open(blob, fileKey)
}

// EncryptVerificationKey seals a known phrase under orgKey. Anyone holding
// the right key can later confirm it with CheckVerificationKey without
// touching real data.
func EncryptVerificationKey(orgKey []byte) (string, error) {
	return SealString([]byte(verificationPassphrase), orgKey)
}

// CheckVerificationKey reports whether orgKey opens the canary.
func CheckVerificationKey(encryptedVerificationKey string, orgKey []byte) bool {
	plain, err := OpenString(encryptedVerificationKey, orgKey)
	if err != nil {
		return false
	}
	return string(plain) == verificationPassphrase
}
