package crypto

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sentineldb/sentinel/pkg/log"
	"github.com/stretchr/testify/require"
)

func TestHashDeterministic(t *testing.T) {
	data := json.RawMessage(`{"name":"Ada","age":30}`)
	h1, err := Hash(HashBLAKE3, data)
	require.NoError(t, err)
	h2, err := Hash(HashBLAKE3, data)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
	require.Len(t, h1, 64) // 256-bit digest, hex-encoded
}

func TestHashKeyOrderSensitive(t *testing.T) {
	a := json.RawMessage(`{"a":1,"b":2}`)
	b := json.RawMessage(`{"b":2,"a":1}`)
	ha, err := Hash(HashBLAKE3, a)
	require.NoError(t, err)
	hb, err := Hash(HashBLAKE3, b)
	require.NoError(t, err)
	// Open Question 1: Sentinel hashes the bytes it was handed, it does not
	// normalize key order, so semantically-equal-but-reordered JSON hashes
	// differently. See SPEC_FULL.md §9, decision 1.
	require.NotEqual(t, ha, hb)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	pub, priv, err := GenerateSigningKey()
	require.NoError(t, err)

	msg := []byte("deadbeef")
	sig, err := Sign(SignEd25519, msg, priv)
	require.NoError(t, err)

	ok, err := Verify(SignEd25519, msg, sig, pub)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	pub, priv, err := GenerateSigningKey()
	require.NoError(t, err)

	sig, err := Sign(SignEd25519, []byte("original"), priv)
	require.NoError(t, err)

	ok, err := Verify(SignEd25519, []byte("tampered"), sig, pub)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	plaintext := []byte("top secret signing key material")

	sealed, err := Encrypt(AEADXChaCha20Poly1305, plaintext, key)
	require.NoError(t, err)

	opened, err := Decrypt(AEADXChaCha20Poly1305, sealed, key)
	require.NoError(t, err)
	require.Equal(t, plaintext, opened)
}

func TestDecryptOpaqueFailure(t *testing.T) {
	key := make([]byte, 32)
	other := make([]byte, 32)
	other[0] = 0xFF

	sealed, err := Encrypt(AEADXChaCha20Poly1305, []byte("hello"), key)
	require.NoError(t, err)

	_, err = Decrypt(AEADXChaCha20Poly1305, sealed, other)
	require.Error(t, err)
}

func TestDeriveKeyWithSaltDeterministic(t *testing.T) {
	salt, key, err := DeriveKey(KDFArgon2id, "correct horse battery staple")
	require.NoError(t, err)
	require.Len(t, key, 32)

	key2, err := DeriveKeyWithSalt(KDFArgon2id, "correct horse battery staple", salt)
	require.NoError(t, err)
	require.Equal(t, key, key2)
}

func TestDeriveKeyPBKDF2(t *testing.T) {
	salt, key, err := DeriveKey(KDFPBKDF2, "passphrase")
	require.NoError(t, err)
	key2, err := DeriveKeyWithSalt(KDFPBKDF2, "passphrase", salt)
	require.NoError(t, err)
	require.Equal(t, key, key2)
}

func TestSetDefaultAlgorithmsWarnsOnChange(t *testing.T) {
	var logs bytes.Buffer
	log.Init(log.Config{Level: log.InfoLevel, Output: &logs})
	defer log.Init(log.Config{Level: log.InfoLevel})

	SetDefaultAlgorithms(Default())
	SetDefaultAlgorithms(Fast())
	require.Equal(t, KDFPBKDF2, CurrentDefaultAlgorithms().KDF)
	require.Contains(t, logs.String(), "process-wide crypto algorithms changed")
	SetDefaultAlgorithms(Default())
}
