// Package store implements the Sentinel store supervisor: opening or
// creating a store root, lazily opening and caching per-collection
// handles, the passphrase-gated signing key, an advisory single-process
// lock on the root directory, and the autocheckpoint timer that bounds
// WAL growth across every open collection.
package store

import (
	"crypto/ed25519"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/sentineldb/sentinel/pkg/collection"
	"github.com/sentineldb/sentinel/pkg/crypto"
	"github.com/sentineldb/sentinel/pkg/document"
	"github.com/sentineldb/sentinel/pkg/events"
	"github.com/sentineldb/sentinel/pkg/log"
	"github.com/sentineldb/sentinel/pkg/sentinelerr"
	"github.com/sentineldb/sentinel/pkg/validate"
	"github.com/sentineldb/sentinel/pkg/wal"
)

const lockFileName = ".sentinel.lock"

// Config configures Open.
type Config struct {
	Algorithms crypto.Algorithms
	// Passphrase, if non-empty, unwraps the signing key stored in the
	// reserved .keys collection. Leave empty to open unsigned (or
	// verify-only, if a key was previously generated and its public
	// half can still be read without the passphrase).
	Passphrase string
	// CheckpointInterval is how often the autocheckpoint timer wakes up.
	// Zero disables the timer.
	CheckpointInterval time.Duration
	// MaxWALSizeBytes is the store-wide threshold the autocheckpoint
	// timer compares each open collection's WAL size against. Zero
	// falls back to MaxWALSizeBytes of the WAL config stored in
	// .sentinel.json (wal.DefaultConfig's value for a new store).
	MaxWALSizeBytes int64
}

// Store supervises a store root: the collections opened under it, the
// root-level metadata file, and the event bus that keeps it updated.
type Store struct {
	root string
	cfg  Config

	mu          sync.Mutex
	collections map[string]*collection.Collection

	md *metadataWriter

	algos        crypto.Algorithms
	signingKey   ed25519.PrivateKey
	verifyingKey ed25519.PublicKey

	bus       *events.Bus
	debouncer *events.Debouncer

	lock *flock.Flock

	stopCheckpoint chan struct{}
	checkpointDone chan struct{}
	eventsDone     chan struct{}
}

// Open opens (creating if absent) the store root at path: it takes an
// advisory lock on the root, loads or creates .sentinel.json, unwraps the
// signing key if a passphrase is supplied, and starts the event consumer
// and autocheckpoint timer.
func Open(root string, cfg Config) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, sentinelerr.Wrap(sentinelerr.KindIO, "store.Open", err)
	}

	lk := flock.New(filepath.Join(root, lockFileName))
	locked, err := lk.TryLock()
	if err != nil {
		return nil, sentinelerr.Wrap(sentinelerr.KindIO, "store.Open", err)
	}
	if !locked {
		return nil, sentinelerr.New(sentinelerr.KindConfigError, "store.Open: root already locked by another process")
	}

	md, err := loadOrCreateMetadata(filepath.Join(root, metadataFileName))
	if err != nil {
		lk.Unlock()
		return nil, err
	}

	algos := cfg.Algorithms
	if algos == (crypto.Algorithms{}) {
		algos = crypto.CurrentDefaultAlgorithms()
	}

	s := &Store{
		root:           root,
		cfg:            cfg,
		collections:    make(map[string]*collection.Collection),
		md:             newMetadataWriter(filepath.Join(root, metadataFileName), md),
		algos:          algos,
		bus:            events.NewBus(1024),
		lock:           lk,
		stopCheckpoint: make(chan struct{}),
		checkpointDone: make(chan struct{}),
		eventsDone:     make(chan struct{}),
	}

	signingKey, verifyingKey, err := s.loadSigningKey(cfg.Passphrase)
	if err != nil {
		lk.Unlock()
		return nil, err
	}
	s.signingKey = signingKey
	s.verifyingKey = verifyingKey

	s.debouncer = events.NewDebouncer(500*time.Millisecond, func() {
		if err := s.md.save(); err != nil {
			log.WithComponent("store").Warn().Err(err).Msg("failed to persist store metadata")
		}
	})
	go s.consumeEvents()

	if cfg.CheckpointInterval > 0 {
		go s.autocheckpointLoop(cfg.CheckpointInterval)
	} else {
		close(s.checkpointDone)
	}

	return s, nil
}

// Close flushes metadata, stops the autocheckpoint timer, closes every
// open collection, and releases the root lock.
func (s *Store) Close() error {
	if s.cfg.CheckpointInterval > 0 {
		close(s.stopCheckpoint)
		<-s.checkpointDone
	}

	s.bus.Close()
	<-s.eventsDone

	s.mu.Lock()
	var firstErr error
	for _, c := range s.collections {
		if err := c.SaveMetadata(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.mu.Unlock()

	if err := s.md.save(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.lock.Unlock(); err != nil && firstErr == nil {
		firstErr = sentinelerr.Wrap(sentinelerr.KindIO, "store.Close", err)
	}
	return firstErr
}

func (s *Store) collectionDir(name string) string {
	return filepath.Join(s.root, name)
}

// unverifiedReadOpts is used internally (e.g. loading the signing key
// record) where the caller doesn't yet have a verifying key to check
// against.
func (s *Store) unverifiedReadOpts() document.VerificationOptions {
	return document.VerificationOptions{
		VerifyHash:         false,
		VerifySignature:    false,
		HashMode:           document.ModeSilent,
		SignatureMode:      document.ModeSilent,
		EmptySignatureMode: document.ModeSilent,
	}
}

// CollectionOverrides is the per-open WAL config override accepted by
// Collection.
type CollectionOverrides struct {
	WAL wal.Config
	// PersistOverrides, if true, writes WAL back to the collection's own
	// metadata so it applies to every future open, not just this handle.
	PersistOverrides bool
}

// Collection opens (creating if absent) the named collection, reusing a
// cached handle on subsequent calls. overrides, if non-nil, is merged
// over the store default and any previously persisted per-collection
// override.
func (s *Store) Collection(name string, overrides *CollectionOverrides) (*collection.Collection, error) {
	if err := validate.CollectionName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[name]; ok {
		return c, nil
	}

	storeDefault := s.md.snapshot().WALConfig
	walCfg := storeDefault
	firstOpen := !dirExists(s.collectionDir(name))
	if !firstOpen {
		if existingOverride, err := peekPersistedWALOverride(s.collectionDir(name)); err == nil {
			walCfg = storeDefault.Merge(existingOverride)
		}
	}
	if overrides != nil {
		walCfg = walCfg.Merge(overrides.WAL)
	}

	c, err := collection.Open(s.collectionDir(name), name, collection.Options{
		Algorithms:   s.algos,
		WALConfig:    walCfg,
		SigningKey:   s.signingKey,
		VerifyingKey: s.verifyingKey,
		Bus:          s.bus,
	})
	if err != nil {
		return nil, err
	}

	if overrides != nil && overrides.PersistOverrides {
		c.SetWALOverride(overrides.WAL)
		if err := c.SaveMetadata(); err != nil {
			return nil, err
		}
	}

	s.collections[name] = c

	if firstOpen {
		s.bus.Publish(events.Event{Type: events.CollectionCreated, Collection: name})
		s.md.update(func(m *Metadata) { m.CollectionCount++ })
	}

	return c, nil
}

// DeleteCollection closes the collection's WAL (if open), removes its
// directory tree, emits CollectionDeleted, and subtracts the collection's
// final document/size counters from the store metadata. The event carries
// only the collection name, not the counters. The counters subtracted are
// those of the handle open in this Store; for a collection that is not
// open, none are subtracted.
func (s *Store) DeleteCollection(name string) error {
	if err := validate.CollectionName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var docCount int
	var sizeBytes int64

	if c, ok := s.collections[name]; ok {
		md := c.Metadata()
		docCount, sizeBytes = md.DocumentCount, md.TotalSizeBytes
		if err := c.Close(); err != nil {
			return err
		}
		delete(s.collections, name)
	}

	if err := os.RemoveAll(s.collectionDir(name)); err != nil {
		return sentinelerr.Wrap(sentinelerr.KindIO, "store.DeleteCollection", err)
	}

	s.bus.Publish(events.Event{Type: events.CollectionDeleted, Collection: name})
	s.md.update(func(m *Metadata) {
		if m.CollectionCount > 0 {
			m.CollectionCount--
		}
		m.TotalDocuments -= int64(docCount)
		m.TotalSizeBytes -= sizeBytes
	})

	return nil
}

// ListCollections returns every collection directory under the store
// root, filtered by naming rules and excluding the reserved .keys name.
func (s *Store) ListCollections() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, sentinelerr.Wrap(sentinelerr.KindIO, "store.ListCollections", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if name == validate.KeysCollectionName {
			continue
		}
		if err := validate.CollectionName(name); err != nil {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// peekPersistedWALOverride reads a collection's .metadata.json directly,
// without going through collection.Open, so Collection can resolve the
// effective WAL config before opening the WAL manager.
func peekPersistedWALOverride(dir string) (wal.Config, error) {
	buf, err := os.ReadFile(filepath.Join(dir, ".metadata.json"))
	if err != nil {
		return wal.Config{}, err
	}
	var md struct {
		WALOverride wal.Config `json:"wal_override"`
	}
	if err := json.Unmarshal(buf, &md); err != nil {
		return wal.Config{}, err
	}
	return md.WALOverride, nil
}
