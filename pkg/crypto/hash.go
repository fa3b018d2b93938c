package crypto

import (
	"bytes"
	"encoding/hex"
	"encoding/json"

	"github.com/sentineldb/sentinel/pkg/sentinelerr"
	"lukechampine.com/blake3"
)

// Canonical returns the deterministic byte form of a JSON value used as
// hash input: the value's own bytes with insignificant whitespace removed,
// key order preserved exactly as received. Sentinel does not re-derive a
// canonical key ordering (see SPEC_FULL.md §9, decision 1): two JSON
// documents that are semantically equal but differ in key order hash
// differently, matching the Rust original's behavior of hashing whatever
// the parser handed it.
func Canonical(data json.RawMessage) ([]byte, error) {
	if len(data) == 0 {
		return nil, sentinelerr.New(sentinelerr.KindJSON, "crypto.Canonical")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return nil, sentinelerr.Wrap(sentinelerr.KindJSON, "crypto.Canonical", err)
	}
	return buf.Bytes(), nil
}

// Hash computes the configured content hash over the canonical form of
// data and returns it hex-encoded.
func Hash(algo HashAlgorithm, data json.RawMessage) (string, error) {
	canon, err := Canonical(data)
	if err != nil {
		return "", err
	}
	switch algo {
	case HashBLAKE3, "":
		sum := blake3.Sum256(canon)
		return hex.EncodeToString(sum[:]), nil
	default:
		return "", sentinelerr.New(sentinelerr.KindConfigError, "crypto.Hash")
	}
}
