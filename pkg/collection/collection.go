// Package collection implements Sentinel's per-collection document store:
// the on-disk directory layout (one <id>.json file per live document, a
// .metadata.json summary, a bound WAL, and a .deleted/ tombstone area),
// atomic single-document writes, and the CRUD/bulk/stream operations
// built on top of it.
package collection

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sentineldb/sentinel/pkg/crypto"
	"github.com/sentineldb/sentinel/pkg/events"
	"github.com/sentineldb/sentinel/pkg/sentinelerr"
	"github.com/sentineldb/sentinel/pkg/validate"
	"github.com/sentineldb/sentinel/pkg/wal"
)

const deletedDirName = ".deleted"

// TombstonePath returns the .deleted/ path a deleted document's file is
// renamed to rather than unlinked.
func TombstonePath(dir, id string) string {
	return filepath.Join(dir, deletedDirName, id+"."+time.Now().UTC().Format("20060102T150405.000000000")+".json")
}

// Tombstone soft-deletes the document file at <dir>/<id>.json the same way
// Collection.Delete does, by renaming it into .deleted/ rather than
// unlinking it. A no-op if the document file is already absent. Exported
// for WAL recovery, which replays records directly against a collection
// directory rather than through an open Collection.
func Tombstone(dir, id string) error {
	path := filepath.Join(dir, id+".json")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return sentinelerr.WithDoc(sentinelerr.Wrap(sentinelerr.KindIO, "collection.Tombstone", err), id)
	}
	if err := os.MkdirAll(filepath.Join(dir, deletedDirName), 0o755); err != nil {
		return sentinelerr.WithDoc(sentinelerr.Wrap(sentinelerr.KindIO, "collection.Tombstone", err), id)
	}
	if err := os.Rename(path, TombstonePath(dir, id)); err != nil {
		return sentinelerr.WithDoc(sentinelerr.Wrap(sentinelerr.KindIO, "collection.Tombstone", err), id)
	}
	return nil
}

// Collection is one open collection directory. Single-document writes are
// serialized by mu so that WAL-record-then-rename stays atomic with
// respect to concurrent writers. Document reads (Get, List, the
// iterators) do not take it; Metadata takes it only long enough to copy
// the snapshot.
type Collection struct {
	mu sync.Mutex

	dir      string
	name     string
	wal      *wal.Manager
	metadata Metadata
	algos    crypto.Algorithms

	signingKey   ed25519.PrivateKey
	verifyingKey ed25519.PublicKey

	bus *events.Bus
}

// Options configures Open.
type Options struct {
	Algorithms   crypto.Algorithms
	WALConfig    wal.Config
	SigningKey   ed25519.PrivateKey
	VerifyingKey ed25519.PublicKey
	Bus          *events.Bus
}

// Open opens (creating if absent) the collection directory at dir.
func Open(dir, name string, opts Options) (*Collection, error) {
	if err := validate.CollectionName(name); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, sentinelerr.Wrap(sentinelerr.KindIO, "collection.Open", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, deletedDirName), 0o755); err != nil {
		return nil, sentinelerr.Wrap(sentinelerr.KindIO, "collection.Open", err)
	}

	md, err := loadMetadata(dir, name)
	if err != nil {
		return nil, err
	}

	w, err := wal.Open(dir, opts.WALConfig)
	if err != nil {
		return nil, err
	}

	algos := opts.Algorithms
	if algos == (crypto.Algorithms{}) {
		algos = crypto.CurrentDefaultAlgorithms()
	}

	return &Collection{
		dir:          dir,
		name:         name,
		wal:          w,
		metadata:     md,
		algos:        algos,
		signingKey:   opts.SigningKey,
		verifyingKey: opts.VerifyingKey,
		bus:          opts.Bus,
	}, nil
}

// Close closes the collection's WAL file.
func (c *Collection) Close() error {
	return c.wal.Close()
}

// Name returns the collection's name.
func (c *Collection) Name() string { return c.name }

// WALStat returns the collection's current WAL statistics.
func (c *Collection) WALStat() (wal.Stats, error) {
	return c.wal.Stat()
}

// Checkpoint truncates the collection's active WAL file, since every
// record it holds has already been applied to the on-disk documents.
func (c *Collection) Checkpoint() error {
	return c.wal.Checkpoint()
}

func (c *Collection) docPath(id string) string {
	return filepath.Join(c.dir, id+".json")
}

func (c *Collection) publish(e events.Event) {
	if c.bus != nil {
		e.Collection = c.name
		c.bus.Publish(e)
	}
}
