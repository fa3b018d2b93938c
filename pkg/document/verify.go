package document

import (
	"crypto/ed25519"

	"github.com/sentineldb/sentinel/pkg/crypto"
	"github.com/sentineldb/sentinel/pkg/log"
	"github.com/sentineldb/sentinel/pkg/sentinelerr"
)

// Verify checks the envelope's hash and signature against opts. An empty
// signature is handled by opts.EmptySignatureMode whether or not a
// verifying key is supplied. A non-empty signature is checked only when
// verifyingKey is non-empty; with a nil key that check is skipped silently
// regardless of opts (there is nothing to verify against).
func (e *Envelope) Verify(algos crypto.Algorithms, opts VerificationOptions, verifyingKey ed25519.PublicKey) error {
	logger := log.WithComponent("document").With().Str("doc_id", e.ID).Logger()

	if opts.VerifyHash {
		recomputed, err := crypto.Hash(algos.Hash, e.Data)
		if err != nil {
			return sentinelerr.WithDoc(sentinelerr.Wrap(sentinelerr.KindCryptoFailed, "document.Verify", err), e.ID)
		}
		if recomputed != e.Hash {
			failErr := sentinelerr.WithDoc(sentinelerr.New(sentinelerr.KindHashVerificationFailed, "document.Verify"), e.ID)
			switch opts.HashMode {
			case ModeStrict, "":
				return failErr
			case ModeWarn:
				logger.Warn().Msg("hash verification failed")
			case ModeSilent:
				// ignored
			}
		}
	}

	if opts.VerifySignature {
		if e.Signature == "" {
			switch opts.EmptySignatureMode {
			case ModeStrict:
				return sentinelerr.WithDoc(sentinelerr.New(sentinelerr.KindSignatureVerificationFailed, "document.Verify"), e.ID)
			case ModeWarn, "":
				logger.Warn().Msg("document has no signature")
			case ModeSilent:
				// ignored
			}
		} else if len(verifyingKey) > 0 {
			ok, err := crypto.Verify(algos.Sign, []byte(e.Hash), e.Signature, verifyingKey)
			if err != nil {
				return sentinelerr.WithDoc(sentinelerr.Wrap(sentinelerr.KindCryptoFailed, "document.Verify", err), e.ID)
			}
			if !ok {
				failErr := sentinelerr.WithDoc(sentinelerr.New(sentinelerr.KindSignatureVerificationFailed, "document.Verify"), e.ID)
				switch opts.SignatureMode {
				case ModeStrict, "":
					return failErr
				case ModeWarn:
					logger.Warn().Msg("signature verification failed")
				case ModeSilent:
					// ignored
				}
			}
		}
		// No verifying key available: skipped silently, per spec.
	}

	return nil
}
