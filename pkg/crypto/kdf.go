package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"io"

	"github.com/sentineldb/sentinel/pkg/sentinelerr"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

const (
	argon2Time    = 3
	argon2Memory  = 64 * 1024 // 64 MiB, in KiB
	argon2Threads = 1
	argon2KeyLen  = 32

	pbkdf2Iterations = 100_000
	pbkdf2KeyLen     = 32

	saltLen = 32
)

// DeriveKey generates a fresh random salt and derives a 32-byte key from
// passphrase under the configured KDF.
func DeriveKey(algo KDFAlgorithm, passphrase string) (salt, key []byte, err error) {
	salt = make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, nil, sentinelerr.Wrap(sentinelerr.KindCryptoFailed, "crypto.DeriveKey", err)
	}
	key, err = DeriveKeyWithSalt(algo, passphrase, salt)
	if err != nil {
		return nil, nil, err
	}
	return salt, key, nil
}

// DeriveKeyWithSalt derives a 32-byte key from passphrase and an existing
// salt (e.g. one persisted alongside an encrypted signing key).
func DeriveKeyWithSalt(algo KDFAlgorithm, passphrase string, salt []byte) ([]byte, error) {
	switch algo {
	case KDFArgon2id, "":
		return argon2.IDKey([]byte(passphrase), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen), nil
	case KDFPBKDF2:
		return pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, pbkdf2KeyLen, sha256.New), nil
	default:
		return nil, sentinelerr.New(sentinelerr.KindConfigError, "crypto.DeriveKeyWithSalt")
	}
}
