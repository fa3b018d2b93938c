// Package sentinelerr defines the typed error taxonomy shared by every
// Sentinel subsystem, so that callers can branch on error kind instead of
// string-matching messages.
package sentinelerr

import (
	"errors"
	"fmt"
)

// Kind classifies a Sentinel error without leaking positional detail about
// the underlying failure (especially for crypto failures).
type Kind int

const (
	// KindUnknown is the zero value; never returned intentionally.
	KindUnknown Kind = iota
	KindIO
	KindJSON
	KindDocumentNotFound
	KindCollectionNotFound
	KindDocumentAlreadyExists
	KindInvalidDocumentID
	KindInvalidCollectionName
	KindHashVerificationFailed
	KindSignatureVerificationFailed
	KindStoreCorruption
	KindCryptoFailed
	KindConfigError
	KindFileSizeLimitExceeded
	KindRecordLimitExceeded
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindJSON:
		return "json"
	case KindDocumentNotFound:
		return "document_not_found"
	case KindCollectionNotFound:
		return "collection_not_found"
	case KindDocumentAlreadyExists:
		return "document_already_exists"
	case KindInvalidDocumentID:
		return "invalid_document_id"
	case KindInvalidCollectionName:
		return "invalid_collection_name"
	case KindHashVerificationFailed:
		return "hash_verification_failed"
	case KindSignatureVerificationFailed:
		return "signature_verification_failed"
	case KindStoreCorruption:
		return "store_corruption"
	case KindCryptoFailed:
		return "crypto_failed"
	case KindConfigError:
		return "config_error"
	case KindFileSizeLimitExceeded:
		return "file_size_limit_exceeded"
	case KindRecordLimitExceeded:
		return "record_limit_exceeded"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by every Sentinel package.
type Error struct {
	Kind Kind
	Op   string // the failing operation, e.g. "collection.Insert"
	Doc  string // optional: document id involved
	Err  error  // wrapped cause, may be nil
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Doc != "":
		return fmt.Sprintf("%s: %s (doc=%s): %v", e.Op, e.Kind, e.Doc, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Doc != "":
		return fmt.Sprintf("%s: %s (doc=%s)", e.Op, e.Kind, e.Doc)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with no wrapped cause.
func New(kind Kind, op string) *Error {
	return &Error{Kind: kind, Op: op}
}

// Wrap builds an Error wrapping an underlying cause.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// WithDoc attaches a document id to an error for easier diagnosis.
func WithDoc(err *Error, docID string) *Error {
	if err == nil {
		return nil
	}
	e := *err
	e.Doc = docID
	return &e
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	for err != nil {
		var se *Error
		if !errors.As(err, &se) {
			return false
		}
		if se.Kind == kind {
			return true
		}
		err = se.Err
	}
	return false
}
