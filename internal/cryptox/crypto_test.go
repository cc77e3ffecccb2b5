package cryptox

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	key1 := DeriveKey("correct-horse-battery-staple")
	key2 := DeriveKey("correct-horse-battery-staple")

	require.Len(t, key1, KeySize)
	require.True(t, bytes.Equal(key1, key2), "same passphrase must derive the same key")

	// a key derived on a second call opens what the first one sealed
	box, err := SealString([]byte("payload"), key1)
	require.NoError(t, err)
	plain, err := OpenString(box, key2)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(plain))
}

func TestDeriveKey_DifferentPassphrases(t *testing.T) {
	assert.NotEqual(t, DeriveKey("passphrase-one"), DeriveKey("passphrase-two"))
}

func TestSealOpen(t *testing.T) {
	key := GenerateEntityKey()

	box, err := Seal([]byte("hello"), key)
	require.NoError(t, err)
	require.Len(t, box, NonceSize+5+16)

	plain, err := Open(box, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), plain)

	t.Run("wrong key", func(t *testing.T) {
		_, err := Open(box, GenerateEntityKey())
		require.ErrorIs(t, err, ErrDecrypt)
	})

	t.Run("short message", func(t *testing.T) {
		_, err := Open(box[:10], key)
		require.ErrorIs(t, err, ErrShortMessage)
	})

	t.Run("bad key size", func(t *testing.T) {
		_, err := Seal([]byte("x"), []byte("short"))
		require.ErrorIs(t, err, ErrKeySize)
	})
}

func TestOpenString_InvalidBase64(t *testing.T) {
	_, err := OpenString("%%%not-base64", GenerateEntityKey())
	require.ErrorIs(t, err, ErrDecrypt)
}

func TestContent_RewrapUnderNewKey(t *testing.T) {
	oldKey := GenerateEntityKey()
	newKey := GenerateEntityKey()
	entityKey := GenerateEntityKey()

	enc, encKey, err := EncryptContent([]byte(`{"name":"Jean"}`), entityKey, oldKey)
	require.NoError(t, err)

	content, gotEntityKey, err := DecryptContent(enc, encKey, oldKey)
	require.NoError(t, err)
	assert.Equal(t, entityKey, gotEntityKey)

	enc2, encKey2, err := EncryptContent(content, gotEntityKey, newKey)
	require.NoError(t, err)

	_, _, err = DecryptContent(enc2, encKey2, oldKey)
	require.Error(t, err, "old key must not open rewrapped content")

	plain, _, err := DecryptContent(enc2, encKey2, newKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Jean"}`, string(plain))
}

func TestFile_RoundTrip(t *testing.T) {
	orgKey := GenerateEntityKey()

	ef, err := EncryptFile([]byte("%PDF-1.7 ..."), orgKey)
	require.NoError(t, err)
	require.NotEmpty(t, ef.EncryptedEntityKey)

	plain, err := DecryptFile(ef.Blob, ef.EncryptedEntityKey, orgKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7 ..."), plain)

	_, err = DecryptFile(ef.Blob, ef.EncryptedEntityKey, GenerateEntityKey())
	require.Error(t, err)
}

func TestVerificationKey(t *testing.T) {
	key := GenerateEntityKey()

	canary, err := EncryptVerificationKey(key)
	require.NoError(t, err)

	assert.True(t, CheckVerificationKey(canary, key))
	assert.False(t, CheckVerificationKey(canary, GenerateEntityKey()))
	assert.False(t, CheckVerificationKey("", key))
}
