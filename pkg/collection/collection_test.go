package collection

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sentineldb/sentinel/pkg/document"
	"github.com/sentineldb/sentinel/pkg/events"
	"github.com/sentineldb/sentinel/pkg/sentinelerr"
	"github.com/sentineldb/sentinel/pkg/wal"
	"github.com/stretchr/testify/require"
)

func openTestCollection(t *testing.T) *Collection {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "users")
	c, err := Open(dir, "users", Options{WALConfig: wal.DefaultConfig()})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestInsertGetRoundTrip(t *testing.T) {
	c := openTestCollection(t)

	require.NoError(t, c.Insert("alice", json.RawMessage(`{"name":"Alice"}`)))

	env, err := c.Get("alice", document.DefaultVerificationOptions())
	require.NoError(t, err)
	require.Equal(t, "alice", env.ID)
	require.Equal(t, 1, env.Version)
	require.JSONEq(t, `{"name":"Alice"}`, string(env.Data))
}

func TestInsertDuplicateFails(t *testing.T) {
	c := openTestCollection(t)
	require.NoError(t, c.Insert("alice", json.RawMessage(`{}`)))

	err := c.Insert("alice", json.RawMessage(`{}`))
	require.True(t, sentinelerr.Is(err, sentinelerr.KindDocumentAlreadyExists))
}

func TestGetMissingFails(t *testing.T) {
	c := openTestCollection(t)
	_, err := c.Get("nope", document.DefaultVerificationOptions())
	require.True(t, sentinelerr.Is(err, sentinelerr.KindDocumentNotFound))
}

func TestUpdateBumpsVersionAndPreservesCreatedAt(t *testing.T) {
	c := openTestCollection(t)
	require.NoError(t, c.Insert("alice", json.RawMessage(`{"v":1}`)))
	first, err := c.Get("alice", document.DefaultVerificationOptions())
	require.NoError(t, err)

	require.NoError(t, c.Update("alice", json.RawMessage(`{"v":2}`)))
	second, err := c.Get("alice", document.DefaultVerificationOptions())
	require.NoError(t, err)

	require.Equal(t, 2, second.Version)
	require.Equal(t, first.CreatedAt, second.CreatedAt)
	require.JSONEq(t, `{"v":2}`, string(second.Data))
}

func TestUpdateMissingFails(t *testing.T) {
	c := openTestCollection(t)
	err := c.Update("nope", json.RawMessage(`{}`))
	require.True(t, sentinelerr.Is(err, sentinelerr.KindDocumentNotFound))
}

func TestUpsertInsertsThenUpdates(t *testing.T) {
	c := openTestCollection(t)

	inserted, err := c.Upsert("alice", json.RawMessage(`{"v":1}`))
	require.NoError(t, err)
	require.True(t, inserted)

	inserted, err = c.Upsert("alice", json.RawMessage(`{"v":2}`))
	require.NoError(t, err)
	require.False(t, inserted)

	env, err := c.Get("alice", document.DefaultVerificationOptions())
	require.NoError(t, err)
	require.Equal(t, 2, env.Version)
}

func TestDeleteMovesToTombstoneDir(t *testing.T) {
	c := openTestCollection(t)
	require.NoError(t, c.Insert("alice", json.RawMessage(`{}`)))

	require.NoError(t, c.Delete("alice"))

	_, err := c.Get("alice", document.DefaultVerificationOptions())
	require.True(t, sentinelerr.Is(err, sentinelerr.KindDocumentNotFound))

	entries, err := filepath.Glob(filepath.Join(c.dir, deletedDirName, "alice.*.json"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestDeleteMissingFails(t *testing.T) {
	c := openTestCollection(t)
	err := c.Delete("nope")
	require.True(t, sentinelerr.Is(err, sentinelerr.KindDocumentNotFound))
}

func TestBulkInsertStopsAtFirstFailure(t *testing.T) {
	c := openTestCollection(t)
	require.NoError(t, c.Insert("b", json.RawMessage(`{}`)))

	pairs := map[string]json.RawMessage{
		"a": json.RawMessage(`{}`),
		"b": json.RawMessage(`{}`), // already exists, fails here
		"c": json.RawMessage(`{}`),
	}
	succeeded, err := c.BulkInsert(pairs, []string{"a", "b", "c"})
	require.Error(t, err)
	require.Equal(t, 1, succeeded)

	_, err = c.Get("c", document.DefaultVerificationOptions())
	require.True(t, sentinelerr.Is(err, sentinelerr.KindDocumentNotFound))
}

func TestListAllFilter(t *testing.T) {
	c := openTestCollection(t)
	require.NoError(t, c.Insert("a", json.RawMessage(`{"n":1}`)))
	require.NoError(t, c.Insert("b", json.RawMessage(`{"n":2}`)))

	ids, err := c.List()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b"}, ids)

	count, err := c.Count()
	require.NoError(t, err)
	require.Equal(t, 2, count)

	it, err := c.All(document.DefaultVerificationOptions())
	require.NoError(t, err)
	var seen []string
	for {
		env, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		seen = append(seen, env.ID)
	}
	require.ElementsMatch(t, []string{"a", "b"}, seen)

	filtered, err := c.Filter(document.DefaultVerificationOptions(), func(e *document.Envelope) bool {
		return e.ID == "a"
	})
	require.NoError(t, err)
	env, ok, err := filtered.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a", env.ID)
	_, ok, err = filtered.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEventsPublishedOnMutation(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "users")
	bus := events.NewBus(8)
	c, err := Open(dir, "users", Options{WALConfig: wal.DefaultConfig(), Bus: bus})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Insert("a", json.RawMessage(`{}`)))
	e := <-bus.Events()
	require.Equal(t, events.DocumentInserted, e.Type)
	require.Equal(t, "a", e.DocumentID)

	require.NoError(t, c.Delete("a"))
	e = <-bus.Events()
	require.Equal(t, events.DocumentDeleted, e.Type)
}

func TestSaveMetadataRoundTrip(t *testing.T) {
	c := openTestCollection(t)
	require.NoError(t, c.Insert("a", json.RawMessage(`{}`)))
	require.NoError(t, c.SaveMetadata())

	md, err := loadMetadata(c.dir, "users")
	require.NoError(t, err)
	require.Equal(t, 1, md.DocumentCount)
}
