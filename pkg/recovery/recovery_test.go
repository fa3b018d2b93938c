package recovery

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sentineldb/sentinel/pkg/crypto"
	"github.com/sentineldb/sentinel/pkg/wal"
	"github.com/stretchr/testify/require"
)

func newTxnID() string {
	id := uuid.New().String()
	out := ""
	for _, r := range id {
		if r != '-' {
			out += string(r)
		}
	}
	return out
}

func TestRecoverAppliesLostInsert(t *testing.T) {
	dir := t.TempDir()
	m, err := wal.Open(dir, wal.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, m.Append(wal.Record{
		EntryType:     wal.EntryInsert,
		TransactionID: newTxnID(),
		Collection:    "users",
		DocumentID:    "a",
		Data:          json.RawMessage(`{"n":1}`),
		TimestampMs:   time.Now().UnixMilli(),
	}))
	require.NoError(t, m.Close())

	result, err := Recover(dir, crypto.Default(), false)
	require.NoError(t, err)
	require.Equal(t, 1, result.Recovered)
	require.Equal(t, 0, result.Failed)

	buf, err := os.ReadFile(filepath.Join(dir, "a.json"))
	require.NoError(t, err)
	require.Contains(t, string(buf), `"n":1`)
}

func TestRecoverSkipsAlreadyAppliedInsert(t *testing.T) {
	dir := t.TempDir()
	m, err := wal.Open(dir, wal.DefaultConfig())
	require.NoError(t, err)
	rec := wal.Record{
		EntryType:     wal.EntryInsert,
		TransactionID: newTxnID(),
		Collection:    "users",
		DocumentID:    "a",
		Data:          json.RawMessage(`{"n":1}`),
		TimestampMs:   time.Now().UnixMilli(),
	}
	require.NoError(t, m.Append(rec))
	require.NoError(t, m.Close())

	_, err = Recover(dir, crypto.Default(), false)
	require.NoError(t, err)

	result, err := Recover(dir, crypto.Default(), false)
	require.NoError(t, err)
	require.Equal(t, 0, result.Recovered)
	require.Equal(t, 1, result.Skipped)
}

func TestForcedRecoveryOverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	m, err := wal.Open(dir, wal.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, m.Append(wal.Record{
		EntryType:     wal.EntryInsert,
		TransactionID: newTxnID(),
		DocumentID:    "a",
		Data:          json.RawMessage(`{"n":1}`),
		TimestampMs:   1,
	}))
	require.NoError(t, m.Close())

	_, err = Recover(dir, crypto.Default(), false)
	require.NoError(t, err)

	m2, err := wal.Open(dir, wal.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, m2.Append(wal.Record{
		EntryType:     wal.EntryInsert,
		TransactionID: newTxnID(),
		DocumentID:    "a",
		Data:          json.RawMessage(`{"n":2}`),
		TimestampMs:   2,
	}))
	require.NoError(t, m2.Close())

	// Forced mode replays both insert records, overwriting each time.
	result, err := Recover(dir, crypto.Default(), true)
	require.NoError(t, err)
	require.Equal(t, 2, result.Recovered)

	buf, err := os.ReadFile(filepath.Join(dir, "a.json"))
	require.NoError(t, err)
	require.Contains(t, string(buf), `"n":2`)
}

func TestRecoverTombstonesDeletedDocumentRatherThanUnlinking(t *testing.T) {
	dir := t.TempDir()
	m, err := wal.Open(dir, wal.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, m.Append(wal.Record{
		EntryType:     wal.EntryInsert,
		TransactionID: newTxnID(),
		Collection:    "users",
		DocumentID:    "a",
		Data:          json.RawMessage(`{"n":1}`),
		TimestampMs:   1,
	}))
	require.NoError(t, m.Append(wal.Record{
		EntryType:     wal.EntryDelete,
		TransactionID: newTxnID(),
		Collection:    "users",
		DocumentID:    "a",
		TimestampMs:   2,
	}))
	require.NoError(t, m.Close())

	result, err := Recover(dir, crypto.Default(), false)
	require.NoError(t, err)
	require.Equal(t, 2, result.Recovered)
	require.Equal(t, 0, result.Failed)

	require.NoFileExists(t, filepath.Join(dir, "a.json"))

	tombstones, err := filepath.Glob(filepath.Join(dir, ".deleted", "a.*.json"))
	require.NoError(t, err)
	require.Len(t, tombstones, 1)
}

func TestVerifyWALFlagsInsertForPresentDoc(t *testing.T) {
	dir := t.TempDir()
	m, err := wal.Open(dir, wal.DefaultConfig())
	require.NoError(t, err)
	id := newTxnID()
	require.NoError(t, m.Append(wal.Record{EntryType: wal.EntryInsert, TransactionID: id, DocumentID: "a", Data: json.RawMessage(`{}`), TimestampMs: 1}))
	require.NoError(t, m.Append(wal.Record{EntryType: wal.EntryInsert, TransactionID: newTxnID(), DocumentID: "a", Data: json.RawMessage(`{}`), TimestampMs: 2}))
	require.NoError(t, m.Close())

	result, err := VerifyWAL(dir)
	require.NoError(t, err)
	require.False(t, result.Passed)

	found := false
	for _, iss := range result.Issues {
		if iss.Critical && iss.DocumentID == "a" {
			found = true
		}
	}
	require.True(t, found)
}

func TestVerifyWALDetectsDiskDivergence(t *testing.T) {
	dir := t.TempDir()
	m, err := wal.Open(dir, wal.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, m.Append(wal.Record{EntryType: wal.EntryInsert, TransactionID: newTxnID(), DocumentID: "a", Data: json.RawMessage(`{"n":1}`), TimestampMs: 1}))
	require.NoError(t, m.Close())

	_, err = Recover(dir, crypto.Default(), false)
	require.NoError(t, err)

	result, err := VerifyWAL(dir)
	require.NoError(t, err)
	require.True(t, result.Passed)

	env, err := readEnvelope(filepath.Join(dir, "a.json"))
	require.NoError(t, err)
	env.Data = json.RawMessage(`{"n":999}`)
	require.NoError(t, writeEnvelope(filepath.Join(dir, "a.json"), env))

	result, err = VerifyWAL(dir)
	require.NoError(t, err)
	require.False(t, result.Passed)
}
