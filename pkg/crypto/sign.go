package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"

	"github.com/sentineldb/sentinel/pkg/sentinelerr"
)

// GenerateSigningKey returns a fresh Ed25519 key pair.
func GenerateSigningKey() (pub ed25519.PublicKey, priv ed25519.PrivateKey, err error) {
	pub, priv, err = ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, sentinelerr.Wrap(sentinelerr.KindCryptoFailed, "crypto.GenerateSigningKey", err)
	}
	return pub, priv, nil
}

// Sign produces a detached, hex-encoded signature over message (the hash's
// hex-encoded bytes, per the envelope contract — never the raw digest).
func Sign(algo SignAlgorithm, message []byte, signingKey ed25519.PrivateKey) (string, error) {
	switch algo {
	case SignEd25519, "":
		if len(signingKey) != ed25519.PrivateKeySize {
			return "", sentinelerr.New(sentinelerr.KindCryptoFailed, "crypto.Sign")
		}
		sig := ed25519.Sign(signingKey, message)
		return hex.EncodeToString(sig), nil
	default:
		return "", sentinelerr.New(sentinelerr.KindConfigError, "crypto.Sign")
	}
}

// Verify checks a hex-encoded detached signature over message. It returns
// false (not an error) on a bad signature; errors are reserved for
// malformed inputs.
func Verify(algo SignAlgorithm, message []byte, signatureHex string, verifyingKey ed25519.PublicKey) (bool, error) {
	switch algo {
	case SignEd25519, "":
		sig, err := hex.DecodeString(signatureHex)
		if err != nil {
			return false, sentinelerr.Wrap(sentinelerr.KindCryptoFailed, "crypto.Verify", err)
		}
		if len(verifyingKey) != ed25519.PublicKeySize {
			return false, sentinelerr.New(sentinelerr.KindCryptoFailed, "crypto.Verify")
		}
		return ed25519.Verify(verifyingKey, message, sig), nil
	default:
		return false, sentinelerr.New(sentinelerr.KindConfigError, "crypto.Verify")
	}
}
