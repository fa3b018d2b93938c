// Package document implements the Sentinel document envelope: the
// id/version/timestamps/hash/signature/data tuple persisted as one
// `<id>.json` file per spec, plus hash and signature verification driven
// by a VerificationOptions policy.
package document

import (
	"crypto/ed25519"
	"encoding/json"
	"time"

	"github.com/sentineldb/sentinel/pkg/crypto"
	"github.com/sentineldb/sentinel/pkg/sentinelerr"
)

// Envelope is the on-disk representation of one document.
type Envelope struct {
	ID        string          `json:"id"`
	Version   int             `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Hash      string          `json:"hash"`
	Signature string          `json:"signature"`
	Data      json.RawMessage `json:"data"`
}

// New builds the initial envelope for an insert: version 1,
// created_at == updated_at, freshly computed hash and (if signingKey is
// non-nil) signature.
func New(algos crypto.Algorithms, id string, data json.RawMessage, signingKey ed25519.PrivateKey) (*Envelope, error) {
	now := time.Now().UTC()
	env := &Envelope{
		ID:        id,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
		Data:      data,
	}
	if err := env.seal(algos, signingKey); err != nil {
		return nil, err
	}
	return env, nil
}

// Mutate produces the next envelope for an update: version bumped by one,
// created_at carried over, updated_at refreshed, hash/signature
// recomputed over the new data.
func Mutate(algos crypto.Algorithms, prev *Envelope, data json.RawMessage, signingKey ed25519.PrivateKey) (*Envelope, error) {
	env := &Envelope{
		ID:        prev.ID,
		Version:   prev.Version + 1,
		CreatedAt: prev.CreatedAt,
		UpdatedAt: time.Now().UTC(),
		Data:      data,
	}
	if err := env.seal(algos, signingKey); err != nil {
		return nil, err
	}
	return env, nil
}

func (e *Envelope) seal(algos crypto.Algorithms, signingKey ed25519.PrivateKey) error {
	hash, err := crypto.Hash(algos.Hash, e.Data)
	if err != nil {
		return sentinelerr.Wrap(sentinelerr.KindCryptoFailed, "document.seal", err)
	}
	e.Hash = hash

	if len(signingKey) == 0 {
		e.Signature = ""
		return nil
	}
	sig, err := crypto.Sign(algos.Sign, []byte(e.Hash), signingKey)
	if err != nil {
		return sentinelerr.Wrap(sentinelerr.KindCryptoFailed, "document.seal", err)
	}
	e.Signature = sig
	return nil
}
