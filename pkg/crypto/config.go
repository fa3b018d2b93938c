// Package crypto implements Sentinel's pluggable cryptographic primitives:
// content hashing, detached signing, authenticated encryption, and
// passphrase-based key derivation. Algorithm choice is selected once per
// process via a tagged enum (Algorithms) rather than letting callers inject
// arbitrary implementations, so a misconfigured store can't silently fall
// back to a weak or custom primitive.
package crypto

import (
	"sync"

	"github.com/sentineldb/sentinel/pkg/log"
)

// HashAlgorithm identifies the content-hash primitive.
type HashAlgorithm string

const (
	HashBLAKE3 HashAlgorithm = "blake3"
)

// SignAlgorithm identifies the detached-signature primitive.
type SignAlgorithm string

const (
	SignEd25519 SignAlgorithm = "ed25519"
)

// AEADAlgorithm identifies the authenticated-encryption primitive.
type AEADAlgorithm string

const (
	AEADXChaCha20Poly1305 AEADAlgorithm = "xchacha20poly1305"
)

// KDFAlgorithm identifies the passphrase key-derivation primitive.
type KDFAlgorithm string

const (
	KDFArgon2id KDFAlgorithm = "argon2id"
	KDFPBKDF2   KDFAlgorithm = "pbkdf2-sha256"
)

// Algorithms pins the concrete primitive used for every contract in this
// package. The zero value is Default().
type Algorithms struct {
	Hash HashAlgorithm
	Sign SignAlgorithm
	AEAD AEADAlgorithm
	KDF  KDFAlgorithm
}

// Default returns Sentinel's default algorithm selection: BLAKE3,
// Ed25519, XChaCha20-Poly1305, Argon2id.
func Default() Algorithms {
	return Algorithms{
		Hash: HashBLAKE3,
		Sign: SignEd25519,
		AEAD: AEADXChaCha20Poly1305,
		KDF:  KDFArgon2id,
	}
}

// Fast is the supplemented "constrained environment" preset from the
// original crypto_config: PBKDF2 instead of Argon2id so key derivation
// doesn't require 64MiB of working memory.
func Fast() Algorithms {
	a := Default()
	a.KDF = KDFPBKDF2
	return a
}

// Strong is an alias for Default kept for parity with the original
// crypto_config's named presets; BLAKE3/Ed25519/XChaCha20-Poly1305/Argon2id
// is already the strongest combination Sentinel supports.
func Strong() Algorithms {
	return Default()
}

var (
	defaultMu      sync.Mutex
	defaultAlgos   = Default()
	defaultAlgosSet bool
)

// SetDefaultAlgorithms pins the process-wide default algorithm selection.
// Calling it more than once is permitted but logged as a warning, since
// changing hash/sign algorithms mid-process makes previously computed
// hashes and signatures impossible to verify against fresh data.
func SetDefaultAlgorithms(a Algorithms) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultAlgosSet {
		log.WithComponent("crypto").Warn().
			Str("previous_hash", string(defaultAlgos.Hash)).
			Str("new_hash", string(a.Hash)).
			Msg("process-wide crypto algorithms changed after initial configuration")
	}
	defaultAlgos = a
	defaultAlgosSet = true
}

// CurrentDefaultAlgorithms returns the process-wide default.
func CurrentDefaultAlgorithms() Algorithms {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultAlgos
}
