package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"io"

	"github.com/sentineldb/sentinel/pkg/sentinelerr"
	"golang.org/x/crypto/chacha20poly1305"
)

// Encrypt seals plaintext under a 32-byte key and returns
// hex(nonce || ciphertext). Never distinguishes auth failure from any
// other failure mode on the decrypt side — Decrypt below returns one
// opaque CryptoFailed kind regardless of cause.
func Encrypt(algo AEADAlgorithm, plaintext, key []byte) (string, error) {
	switch algo {
	case AEADXChaCha20Poly1305, "":
		aead, err := chacha20poly1305.NewX(key)
		if err != nil {
			return "", sentinelerr.Wrap(sentinelerr.KindCryptoFailed, "crypto.Encrypt", err)
		}
		nonce := make([]byte, aead.NonceSize())
		if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
			return "", sentinelerr.Wrap(sentinelerr.KindCryptoFailed, "crypto.Encrypt", err)
		}
		sealed := aead.Seal(nonce, nonce, plaintext, nil)
		return hex.EncodeToString(sealed), nil
	default:
		return "", sentinelerr.New(sentinelerr.KindConfigError, "crypto.Encrypt")
	}
}

// GenerateEncryptionKey returns a fresh random 32-byte AEAD key, hex
// encoded. Sentinel itself only ever derives this key from a passphrase
// (DeriveKey); this helper exists for callers who want a random key
// independent of any passphrase, e.g. to seed an external secrets store.
func GenerateEncryptionKey() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", sentinelerr.Wrap(sentinelerr.KindCryptoFailed, "crypto.GenerateEncryptionKey", err)
	}
	return hex.EncodeToString(key), nil
}

// Decrypt opens a hex(nonce||ciphertext) value produced by Encrypt. Any
// failure — bad hex, wrong key, truncated input, tampered ciphertext —
// surfaces as the same KindCryptoFailed error so callers cannot use error
// shape as a decryption oracle.
func Decrypt(algo AEADAlgorithm, hexPayload string, key []byte) ([]byte, error) {
	switch algo {
	case AEADXChaCha20Poly1305, "":
		payload, err := hex.DecodeString(hexPayload)
		if err != nil {
			return nil, sentinelerr.New(sentinelerr.KindCryptoFailed, "crypto.Decrypt")
		}
		aead, err := chacha20poly1305.NewX(key)
		if err != nil {
			return nil, sentinelerr.New(sentinelerr.KindCryptoFailed, "crypto.Decrypt")
		}
		if len(payload) < aead.NonceSize() {
			return nil, sentinelerr.New(sentinelerr.KindCryptoFailed, "crypto.Decrypt")
		}
		nonce, ciphertext := payload[:aead.NonceSize()], payload[aead.NonceSize():]
		plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
		if err != nil {
			return nil, sentinelerr.New(sentinelerr.KindCryptoFailed, "crypto.Decrypt")
		}
		return plaintext, nil
	default:
		return nil, sentinelerr.New(sentinelerr.KindConfigError, "crypto.Decrypt")
	}
}
