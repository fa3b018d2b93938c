package collection

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sentineldb/sentinel/pkg/document"
	"github.com/sentineldb/sentinel/pkg/events"
	"github.com/sentineldb/sentinel/pkg/metrics"
	"github.com/sentineldb/sentinel/pkg/sentinelerr"
	"github.com/sentineldb/sentinel/pkg/validate"
	"github.com/sentineldb/sentinel/pkg/wal"
)

func newTransactionID() string {
	raw := uuid.New().String()
	out := make([]byte, 0, wal.TransactionIDLen)
	for _, r := range raw {
		if r != '-' {
			out = append(out, byte(r))
		}
	}
	return string(out)
}

// withTransaction brackets a single mutation with Begin/Commit WAL
// records (Rollback on failure), the same way the teacher's BoltStore
// bounds each mutation in a db.Update transaction. fn receives the
// transaction id to stamp onto the mutation's own WAL record.
func (c *Collection) withTransaction(fn func(txnID string) error) error {
	txnID := newTransactionID()
	now := time.Now().UnixMilli()

	if err := c.wal.Append(wal.Record{
		EntryType: wal.EntryBegin, TransactionID: txnID, Collection: c.name, TimestampMs: now,
	}); err != nil {
		return err
	}

	if err := fn(txnID); err != nil {
		if rbErr := c.wal.Append(wal.Record{
			EntryType: wal.EntryRollback, TransactionID: txnID, Collection: c.name, TimestampMs: time.Now().UnixMilli(),
		}); rbErr != nil {
			return rbErr
		}
		return err
	}

	return c.wal.Append(wal.Record{
		EntryType: wal.EntryCommit, TransactionID: txnID, Collection: c.name, TimestampMs: time.Now().UnixMilli(),
	})
}

// Insert creates a new document. Fails with KindDocumentAlreadyExists if
// id is already live.
func (c *Collection) Insert(id string, data json.RawMessage) error {
	if err := validate.DocumentID(id); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.docPath(id)
	if _, err := os.Stat(path); err == nil {
		return sentinelerr.WithDoc(sentinelerr.New(sentinelerr.KindDocumentAlreadyExists, "collection.Insert"), id)
	}

	return c.insertLocked(id, data)
}

// insertLocked performs the insert steps assuming c.mu is already held and
// id has already been confirmed absent.
func (c *Collection) insertLocked(id string, data json.RawMessage) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.DocumentOperationDuration, c.name, "insert")

	path := c.docPath(id)
	env, err := document.New(c.algos, id, data, c.signingKey)
	if err != nil {
		return err
	}

	if err := c.withTransaction(func(txnID string) error {
		if err := c.wal.Append(wal.Record{
			EntryType:     wal.EntryInsert,
			TransactionID: txnID,
			Collection:    c.name,
			DocumentID:    id,
			Data:          data,
			TimestampMs:   time.Now().UnixMilli(),
		}); err != nil {
			return err
		}
		return writeEnvelopeAtomic(path, env)
	}); err != nil {
		return err
	}

	c.metadata.DocumentCount++
	c.metadata.TotalSizeBytes += int64(len(data))
	c.publish(events.Event{Type: events.DocumentInserted, DocumentID: id, Size: int64(len(data))})
	metrics.DocumentInsertsTotal.WithLabelValues(c.name).Inc()

	return nil
}

// Get reads and verifies one document.
func (c *Collection) Get(id string, opts document.VerificationOptions) (*document.Envelope, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.DocumentOperationDuration, c.name, "get")

	env, err := c.readEnvelope(id)
	if err != nil {
		return nil, err
	}
	if err := env.Verify(c.algos, opts, c.verifyingKey); err != nil {
		metrics.VerificationFailuresTotal.WithLabelValues(c.name, verificationFailureKind(err)).Inc()
		return nil, err
	}
	return env, nil
}

// verificationFailureKind classifies a Verify error for the
// sentinel_verification_failures_total label; it falls back to "unknown"
// for anything that isn't a recognized sentinelerr.Kind.
func verificationFailureKind(err error) string {
	switch {
	case sentinelerr.Is(err, sentinelerr.KindHashVerificationFailed):
		return "hash"
	case sentinelerr.Is(err, sentinelerr.KindSignatureVerificationFailed):
		return "signature"
	default:
		return "unknown"
	}
}

// GetMany reads ids in order, returning a nil entry for any id not found.
func (c *Collection) GetMany(ids []string, opts document.VerificationOptions) ([]*document.Envelope, error) {
	out := make([]*document.Envelope, len(ids))
	for i, id := range ids {
		env, err := c.Get(id, opts)
		if err != nil {
			if sentinelerr.Is(err, sentinelerr.KindDocumentNotFound) {
				out[i] = nil
				continue
			}
			return nil, err
		}
		out[i] = env
	}
	return out, nil
}

func (c *Collection) readEnvelope(id string) (*document.Envelope, error) {
	buf, err := os.ReadFile(c.docPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, sentinelerr.WithDoc(sentinelerr.New(sentinelerr.KindDocumentNotFound, "collection.Get"), id)
		}
		return nil, sentinelerr.WithDoc(sentinelerr.Wrap(sentinelerr.KindIO, "collection.Get", err), id)
	}
	var env document.Envelope
	if err := json.Unmarshal(buf, &env); err != nil {
		return nil, sentinelerr.WithDoc(sentinelerr.Wrap(sentinelerr.KindJSON, "collection.Get", err), id)
	}
	return &env, nil
}

// Update replaces an existing document's data. Fails with
// KindDocumentNotFound if id isn't live.
func (c *Collection) Update(id string, data json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.update(id, data)
}

func (c *Collection) update(id string, data json.RawMessage) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.DocumentOperationDuration, c.name, "update")

	prev, err := c.readEnvelope(id)
	if err != nil {
		return err
	}

	env, err := document.Mutate(c.algos, prev, data, c.signingKey)
	if err != nil {
		return err
	}

	if err := c.withTransaction(func(txnID string) error {
		if err := c.wal.Append(wal.Record{
			EntryType:     wal.EntryUpdate,
			TransactionID: txnID,
			Collection:    c.name,
			DocumentID:    id,
			Data:          data,
			TimestampMs:   time.Now().UnixMilli(),
		}); err != nil {
			return err
		}
		return writeEnvelopeAtomic(c.docPath(id), env)
	}); err != nil {
		return err
	}

	delta := int64(len(data)) - int64(len(prev.Data))
	c.metadata.TotalSizeBytes += delta
	c.publish(events.Event{Type: events.DocumentUpdated, DocumentID: id, Size: delta})
	metrics.DocumentUpdatesTotal.WithLabelValues(c.name).Inc()

	return nil
}

// Upsert inserts id if it doesn't exist, otherwise updates it. Returns
// true if this call performed an insert.
func (c *Collection) Upsert(id string, data json.RawMessage) (inserted bool, err error) {
	if err := validate.DocumentID(id); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, statErr := os.Stat(c.docPath(id)); statErr != nil {
		if !os.IsNotExist(statErr) {
			return false, sentinelerr.WithDoc(sentinelerr.Wrap(sentinelerr.KindIO, "collection.Upsert", statErr), id)
		}
		return true, c.insertLocked(id, data)
	}

	return false, c.update(id, data)
}

// Delete soft-deletes a document: the file is moved to
// .deleted/<id>.<timestamp>.json rather than removed outright.
func (c *Collection) Delete(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.DocumentOperationDuration, c.name, "delete")

	path := c.docPath(id)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sentinelerr.WithDoc(sentinelerr.New(sentinelerr.KindDocumentNotFound, "collection.Delete"), id)
		}
		return sentinelerr.WithDoc(sentinelerr.Wrap(sentinelerr.KindIO, "collection.Delete", err), id)
	}
	removedBytes := info.Size()

	tombstone := TombstonePath(c.dir, id)
	if err := c.withTransaction(func(txnID string) error {
		if err := c.wal.Append(wal.Record{
			EntryType:     wal.EntryDelete,
			TransactionID: txnID,
			Collection:    c.name,
			DocumentID:    id,
			TimestampMs:   time.Now().UnixMilli(),
		}); err != nil {
			return err
		}
		if err := os.Rename(path, tombstone); err != nil {
			return sentinelerr.WithDoc(sentinelerr.Wrap(sentinelerr.KindIO, "collection.Delete", err), id)
		}
		return nil
	}); err != nil {
		return err
	}

	c.metadata.DocumentCount--
	c.metadata.TotalSizeBytes -= removedBytes
	c.publish(events.Event{Type: events.DocumentDeleted, DocumentID: id, Size: removedBytes})
	metrics.DocumentDeletesTotal.WithLabelValues(c.name).Inc()

	return nil
}

// BulkInsert inserts pairs in order, stopping at the first failure and
// reporting how many succeeded before it.
func (c *Collection) BulkInsert(pairs map[string]json.RawMessage, order []string) (succeeded int, err error) {
	for _, id := range order {
		if err := c.Insert(id, pairs[id]); err != nil {
			return succeeded, err
		}
		succeeded++
	}
	return succeeded, nil
}

// writeEnvelopeAtomic is the temp-file + rename write shared by insert,
// update, and upsert. The WAL record for this mutation must already be
// durable before this is called.
func writeEnvelopeAtomic(path string, env *document.Envelope) error {
	buf, err := json.Marshal(env)
	if err != nil {
		return sentinelerr.Wrap(sentinelerr.KindJSON, "collection.writeEnvelopeAtomic", err)
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return sentinelerr.Wrap(sentinelerr.KindIO, "collection.writeEnvelopeAtomic", err)
	}
	if _, err := f.Write(buf); err != nil {
		f.Close()
		return sentinelerr.Wrap(sentinelerr.KindIO, "collection.writeEnvelopeAtomic", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return sentinelerr.Wrap(sentinelerr.KindIO, "collection.writeEnvelopeAtomic", err)
	}
	if err := f.Close(); err != nil {
		return sentinelerr.Wrap(sentinelerr.KindIO, "collection.writeEnvelopeAtomic", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return sentinelerr.Wrap(sentinelerr.KindIO, "collection.writeEnvelopeAtomic", err)
	}
	return nil
}
