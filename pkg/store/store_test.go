package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOpenCreatesRootAndMetadata(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, Config{})
	require.NoError(t, err)
	defer s.Close()

	require.FileExists(t, filepath.Join(dir, metadataFileName))
	require.FileExists(t, filepath.Join(dir, lockFileName))
}

func TestOpenTwiceFailsOnLock(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, Config{})
	require.NoError(t, err)
	defer s.Close()

	_, err = Open(dir, Config{})
	require.Error(t, err)
}

func TestCollectionLazyOpenAndCache(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, Config{})
	require.NoError(t, err)
	defer s.Close()

	c1, err := s.Collection("users", nil)
	require.NoError(t, err)
	c2, err := s.Collection("users", nil)
	require.NoError(t, err)
	require.Same(t, c1, c2)

	require.NoError(t, c1.Insert("alice", []byte(`{"n":1}`)))
}

func TestDeleteCollectionRemovesDirectory(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, Config{})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Collection("users", nil)
	require.NoError(t, err)
	require.NoError(t, s.DeleteCollection("users"))

	require.NoDirExists(t, filepath.Join(dir, "users"))
}

func TestListCollectionsExcludesKeys(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, Config{})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Collection("users", nil)
	require.NoError(t, err)
	_, err = s.GenerateSigningKey("hunter2")
	require.NoError(t, err)

	names, err := s.ListCollections()
	require.NoError(t, err)
	require.Equal(t, []string{"users"}, names)
}

func TestGenerateSigningKeyPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, Config{})
	require.NoError(t, err)
	pub, err := s.GenerateSigningKey("hunter2")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := Open(dir, Config{Passphrase: "hunter2"})
	require.NoError(t, err)
	defer s2.Close()
	require.Equal(t, pub, s2.verifyingKey)
	require.NotNil(t, s2.signingKey)
}

func TestWrongPassphraseFailsToDecrypt(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, Config{})
	require.NoError(t, err)
	_, err = s.GenerateSigningKey("hunter2")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(dir, Config{Passphrase: "wrong"})
	require.Error(t, err)
}

func TestCheckpointAllTruncatesOversizedWAL(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, Config{MaxWALSizeBytes: 1})
	require.NoError(t, err)
	defer s.Close()

	c, err := s.Collection("users", nil)
	require.NoError(t, err)
	require.NoError(t, c.Insert("a", []byte(`{"n":1}`)))

	stats, err := c.WALStat()
	require.NoError(t, err)
	require.Greater(t, stats.ActiveSizeBytes, int64(0))

	s.CheckpointAll()

	stats, err = c.WALStat()
	require.NoError(t, err)
	require.Equal(t, 0, stats.LiveRecords)
}

func TestAutocheckpointLoopRuns(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, Config{MaxWALSizeBytes: 1, CheckpointInterval: 20 * time.Millisecond})
	require.NoError(t, err)
	defer s.Close()

	c, err := s.Collection("users", nil)
	require.NoError(t, err)
	require.NoError(t, c.Insert("a", []byte(`{"n":1}`)))

	require.Eventually(t, func() bool {
		stats, err := c.WALStat()
		return err == nil && stats.LiveRecords == 0
	}, time.Second, 10*time.Millisecond)
}

func TestEventConsumerUpdatesDocumentCounters(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, Config{})
	require.NoError(t, err)
	defer s.Close()

	c, err := s.Collection("users", nil)
	require.NoError(t, err)
	require.NoError(t, c.Insert("a", []byte(`{"n":1}`)))

	require.Eventually(t, func() bool {
		return s.md.snapshot().TotalDocuments == 1
	}, time.Second, 10*time.Millisecond)
}
