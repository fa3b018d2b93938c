// Package recovery implements Sentinel's WAL replay: safe (idempotent)
// and forced recovery of a collection directory from its write-ahead log,
// plus WAL-internal and WAL-vs-disk consistency verification.
package recovery

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/sentineldb/sentinel/pkg/collection"
	"github.com/sentineldb/sentinel/pkg/crypto"
	"github.com/sentineldb/sentinel/pkg/document"
	"github.com/sentineldb/sentinel/pkg/log"
	"github.com/sentineldb/sentinel/pkg/metrics"
	"github.com/sentineldb/sentinel/pkg/sentinelerr"
	"github.com/sentineldb/sentinel/pkg/wal"
)

// Failure describes one record that recovery could not apply.
type Failure struct {
	TransactionID string
	DocumentID    string
	Op            string
	Reason        string
}

// Result summarizes a recovery run over a collection's WAL.
type Result struct {
	Recovered int
	Skipped   int
	Failed    int
	Failures  []Failure
}

type applyKey struct {
	docID string
	txnID string
}

// Recover replays every record in the collection directory's WAL against
// its document files. In safe mode (forced=false) records are applied
// idempotently per spec.md §4.C7; in forced mode (forced=true) Insert and
// Update always overwrite, and Delete ignores a missing document.
func Recover(dir string, algos crypto.Algorithms, forced bool) (Result, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.RecoveryDuration)

	records, err := wal.ReadFileEntries(filepath.Join(dir, ".wal"))
	if err != nil {
		metrics.RecoveryRunsTotal.WithLabelValues("read_failed").Inc()
		return Result{}, err
	}

	logger := log.WithComponent("recovery")
	var result Result
	applied := make(map[applyKey]bool)

	for _, rec := range records {
		key := applyKey{docID: rec.DocumentID, txnID: rec.TransactionID}
		if applied[key] {
			result.Skipped++
			continue
		}

		op := rec.EntryType.String()
		path := filepath.Join(dir, rec.DocumentID+".json")

		switch rec.EntryType {
		case wal.EntryBegin, wal.EntryCommit, wal.EntryRollback:
			result.Skipped++
			applied[key] = true
			continue

		case wal.EntryInsert:
			_, statErr := os.Stat(path)
			exists := statErr == nil
			if exists && !forced {
				result.Skipped++
				applied[key] = true
				continue
			}
			env, err := document.New(algos, rec.DocumentID, rec.Data, nil)
			if err != nil {
				result.Failed++
				result.Failures = append(result.Failures, Failure{rec.TransactionID, rec.DocumentID, op, err.Error()})
				continue
			}
			if err := writeEnvelope(path, env); err != nil {
				result.Failed++
				result.Failures = append(result.Failures, Failure{rec.TransactionID, rec.DocumentID, op, err.Error()})
				continue
			}
			result.Recovered++
			applied[key] = true

		case wal.EntryUpdate:
			prev, readErr := readEnvelope(path)
			if readErr != nil {
				if !forced {
					logger.Warn().Str("doc_id", rec.DocumentID).Msg("update record for absent document, insert was lost")
					result.Skipped++
					applied[key] = true
					continue
				}
				prev = &document.Envelope{ID: rec.DocumentID, Version: 0}
			} else if !forced && bytes.Equal(prev.Data, rec.Data) {
				result.Skipped++
				applied[key] = true
				continue
			}
			env, err := document.Mutate(algos, prev, rec.Data, nil)
			if err != nil {
				result.Failed++
				result.Failures = append(result.Failures, Failure{rec.TransactionID, rec.DocumentID, op, err.Error()})
				continue
			}
			if err := writeEnvelope(path, env); err != nil {
				result.Failed++
				result.Failures = append(result.Failures, Failure{rec.TransactionID, rec.DocumentID, op, err.Error()})
				continue
			}
			result.Recovered++
			applied[key] = true

		case wal.EntryDelete:
			if _, err := os.Stat(path); err != nil {
				result.Skipped++
				applied[key] = true
				continue
			}
			if err := collection.Tombstone(dir, rec.DocumentID); err != nil {
				result.Failed++
				result.Failures = append(result.Failures, Failure{rec.TransactionID, rec.DocumentID, op, err.Error()})
				continue
			}
			result.Recovered++
			applied[key] = true
		}
	}

	metrics.RecoveryRecordsAppliedTotal.WithLabelValues("recovered").Add(float64(result.Recovered))
	metrics.RecoveryRecordsAppliedTotal.WithLabelValues("skipped").Add(float64(result.Skipped))
	metrics.RecoveryRecordsAppliedTotal.WithLabelValues("failed").Add(float64(result.Failed))

	outcome := "clean"
	if result.Failed > 0 {
		outcome = "partial_failure"
	}
	metrics.RecoveryRunsTotal.WithLabelValues(outcome).Inc()

	return result, nil
}

func readEnvelope(path string) (*document.Envelope, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, sentinelerr.Wrap(sentinelerr.KindIO, "recovery.readEnvelope", err)
	}
	var env document.Envelope
	if err := json.Unmarshal(buf, &env); err != nil {
		return nil, sentinelerr.Wrap(sentinelerr.KindJSON, "recovery.readEnvelope", err)
	}
	return &env, nil
}

func writeEnvelope(path string, env *document.Envelope) error {
	buf, err := json.Marshal(env)
	if err != nil {
		return sentinelerr.Wrap(sentinelerr.KindJSON, "recovery.writeEnvelope", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return sentinelerr.Wrap(sentinelerr.KindIO, "recovery.writeEnvelope", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return sentinelerr.Wrap(sentinelerr.KindIO, "recovery.writeEnvelope", err)
	}
	return nil
}
