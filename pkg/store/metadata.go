package store

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/sentineldb/sentinel/pkg/sentinelerr"
	"github.com/sentineldb/sentinel/pkg/wal"
)

const metadataFileName = ".sentinel.json"

// Metadata is the store root's .sentinel.json contents. Unknown fields
// round-trip unmodified: loadOrCreateMetadata decodes into a raw map first so
// that a field this version of Sentinel doesn't know about survives a
// save/load cycle instead of being silently dropped.
type Metadata struct {
	Version         string    `json:"version"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	CollectionCount int       `json:"collection_count"`
	TotalDocuments  int64     `json:"total_documents"`
	TotalSizeBytes  int64     `json:"total_size_bytes"`
	WALConfig       wal.Config `json:"wal_config"`

	unknown map[string]json.RawMessage
}

const metadataVersion = "v1"

func loadOrCreateMetadata(path string) (Metadata, error) {
	buf, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		now := time.Now().UTC()
		return Metadata{Version: metadataVersion, CreatedAt: now, UpdatedAt: now, WALConfig: wal.DefaultConfig()}, nil
	}
	if err != nil {
		return Metadata{}, sentinelerr.Wrap(sentinelerr.KindIO, "store.loadOrCreateMetadata", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(buf, &raw); err != nil {
		return Metadata{}, sentinelerr.Wrap(sentinelerr.KindJSON, "store.loadOrCreateMetadata", err)
	}
	var md Metadata
	if err := json.Unmarshal(buf, &md); err != nil {
		return Metadata{}, sentinelerr.Wrap(sentinelerr.KindJSON, "store.loadOrCreateMetadata", err)
	}
	for _, known := range []string{"version", "created_at", "updated_at", "collection_count", "total_documents", "total_size_bytes", "wal_config"} {
		delete(raw, known)
	}
	md.unknown = raw
	return md, nil
}

// marshal preserves any fields this build didn't recognize on load.
func (m Metadata) marshal() ([]byte, error) {
	known := map[string]any{
		"version":          m.Version,
		"created_at":       m.CreatedAt,
		"updated_at":       m.UpdatedAt,
		"collection_count": m.CollectionCount,
		"total_documents":  m.TotalDocuments,
		"total_size_bytes": m.TotalSizeBytes,
		"wal_config":       m.WALConfig,
	}
	buf, err := json.Marshal(known)
	if err != nil {
		return nil, err
	}
	if len(m.unknown) == 0 {
		return buf, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(buf, &merged); err != nil {
		return nil, err
	}
	for k, v := range m.unknown {
		if _, exists := merged[k]; !exists {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// metadataWriter serializes saves to .sentinel.json and guards the mutable
// summary fields the event consumer updates on every mutation event.
type metadataWriter struct {
	mu   sync.Mutex
	path string
	md   Metadata
}

func newMetadataWriter(path string, md Metadata) *metadataWriter {
	return &metadataWriter{path: path, md: md}
}

func (w *metadataWriter) snapshot() Metadata {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.md
}

func (w *metadataWriter) update(fn func(*Metadata)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(&w.md)
	w.md.UpdatedAt = time.Now().UTC()
}

func (w *metadataWriter) save() error {
	w.mu.Lock()
	buf, err := w.md.marshal()
	w.mu.Unlock()
	if err != nil {
		return sentinelerr.Wrap(sentinelerr.KindJSON, "store.metadataWriter.save", err)
	}

	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return sentinelerr.Wrap(sentinelerr.KindIO, "store.metadataWriter.save", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		return sentinelerr.Wrap(sentinelerr.KindIO, "store.metadataWriter.save", err)
	}
	return nil
}
