package collection

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/sentineldb/sentinel/pkg/sentinelerr"
	"github.com/sentineldb/sentinel/pkg/wal"
)

const metadataFileName = ".metadata.json"

// Metadata is the collection's versioned on-disk summary, persisted to
// .metadata.json on explicit SaveMetadata calls and during teardown, not
// on every mutation.
type Metadata struct {
	Version        int        `json:"version"`
	Name           string     `json:"name"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DocumentCount  int        `json:"document_count"`
	TotalSizeBytes int64      `json:"total_size_bytes"`
	// WALOverride holds a per-collection WAL config override persisted by
	// the store supervisor when opened with persist_overrides=true. A
	// zero-valued field means "no override for this setting" and falls
	// back to the store-wide default (wal.Config.Merge).
	WALOverride wal.Config `json:"wal_override,omitempty"`
}

func loadMetadata(dir, name string) (Metadata, error) {
	path := filepath.Join(dir, metadataFileName)
	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			now := time.Now().UTC()
			return Metadata{Version: 1, Name: name, CreatedAt: now, UpdatedAt: now}, nil
		}
		return Metadata{}, sentinelerr.Wrap(sentinelerr.KindIO, "collection.loadMetadata", err)
	}
	var md Metadata
	if err := json.Unmarshal(buf, &md); err != nil {
		return Metadata{}, sentinelerr.Wrap(sentinelerr.KindJSON, "collection.loadMetadata", err)
	}
	return md, nil
}

// SaveMetadata persists the collection's current metadata to disk.
func (c *Collection) SaveMetadata() error {
	c.mu.Lock()
	c.metadata.UpdatedAt = time.Now().UTC()
	md := c.metadata
	c.mu.Unlock()

	buf, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return sentinelerr.Wrap(sentinelerr.KindJSON, "collection.SaveMetadata", err)
	}

	tmp := filepath.Join(c.dir, metadataFileName+".tmp")
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return sentinelerr.Wrap(sentinelerr.KindIO, "collection.SaveMetadata", err)
	}
	if err := os.Rename(tmp, filepath.Join(c.dir, metadataFileName)); err != nil {
		return sentinelerr.Wrap(sentinelerr.KindIO, "collection.SaveMetadata", err)
	}
	return nil
}

// Metadata returns a snapshot of the collection's current metadata.
func (c *Collection) Metadata() Metadata {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metadata
}

// SetWALOverride records a persisted per-collection WAL config override
// in metadata without rewriting it to disk; call SaveMetadata to persist.
func (c *Collection) SetWALOverride(cfg wal.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadata.WALOverride = cfg
}
