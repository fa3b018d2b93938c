package wal

import (
	"bufio"
	"os"
	"path/filepath"
	"sync"

	"github.com/sentineldb/sentinel/pkg/compress"
	"github.com/sentineldb/sentinel/pkg/log"
	"github.com/sentineldb/sentinel/pkg/metrics"
	"github.com/sentineldb/sentinel/pkg/sentinelerr"
)

// WriteMode controls how aggressively the Manager flushes to disk.
type WriteMode string

const (
	// WriteStrict flushes the OS buffer on every write.
	WriteStrict WriteMode = "strict"
	// WriteRelaxed flushes only at rotation and checkpoint boundaries.
	WriteRelaxed WriteMode = "relaxed"
)

// Config is the per-collection WAL configuration.
type Config struct {
	MaxWALSizeBytes   int64
	MaxRecordsPerFile int
	WriteMode         WriteMode
	// RotationCodec is the compress.Registry suffix used to compress
	// rotated files, or "" to leave rotated files uncompressed.
	RotationCodec string
}

// DefaultConfig returns Sentinel's default WAL configuration: 64MiB /
// 100,000 records per file, strict flushing, Zstd-compressed rotations.
func DefaultConfig() Config {
	return Config{
		MaxWALSizeBytes:   64 * 1024 * 1024,
		MaxRecordsPerFile: 100_000,
		WriteMode:         WriteStrict,
		RotationCodec:     "zst",
	}
}

// Merge resolves store-level defaults against per-collection overrides:
// any zero-valued field in override falls back to the base config.
func (c Config) Merge(override Config) Config {
	merged := c
	if override.MaxWALSizeBytes != 0 {
		merged.MaxWALSizeBytes = override.MaxWALSizeBytes
	}
	if override.MaxRecordsPerFile != 0 {
		merged.MaxRecordsPerFile = override.MaxRecordsPerFile
	}
	if override.WriteMode != "" {
		merged.WriteMode = override.WriteMode
	}
	if override.RotationCodec != "" {
		merged.RotationCodec = override.RotationCodec
	}
	return merged
}

// activeFileName is the active WAL file's name within a collection directory.
const activeFileName = ".wal"

// Manager owns one collection's active WAL file: framing, rotation
// thresholds, and checkpoint. Internally serialized by a single mutex —
// readers (ReadAllEntries, StreamEntries) open their own file descriptors
// and never block the writer.
type Manager struct {
	mu sync.Mutex

	dir        string
	activePath string
	file       *os.File
	bufw       *bufio.Writer

	cfg Config

	size        int64
	liveRecords int

	codecs *compress.Registry
}

// Open opens (creating if absent) the active WAL file under dir.
func Open(dir string, cfg Config) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, sentinelerr.Wrap(sentinelerr.KindIO, "wal.Open", err)
	}

	activePath := filepath.Join(dir, activeFileName)
	f, err := os.OpenFile(activePath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, sentinelerr.Wrap(sentinelerr.KindIO, "wal.Open", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, sentinelerr.Wrap(sentinelerr.KindIO, "wal.Open", err)
	}

	m := &Manager{
		dir:        dir,
		activePath: activePath,
		file:       f,
		bufw:       bufio.NewWriter(f),
		cfg:        cfg,
		size:       info.Size(),
		codecs:     compress.NewRegistry(),
	}

	existing, err := m.ReadAllEntries()
	if err != nil {
		f.Close()
		return nil, err
	}
	m.liveRecords = len(existing)

	return m, nil
}

// Close flushes and closes the active file handle.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.bufw.Flush(); err != nil {
		return sentinelerr.Wrap(sentinelerr.KindIO, "wal.Manager.Close", err)
	}
	if err := m.file.Close(); err != nil {
		return sentinelerr.Wrap(sentinelerr.KindIO, "wal.Manager.Close", err)
	}
	return nil
}

// Append writes a record, rotating the active file first if the write
// would exceed a configured threshold, then retrying once.
func (m *Manager) Append(r Record) error {
	if err := m.WriteEntry(r); err != nil {
		if sentinelerr.Is(err, sentinelerr.KindFileSizeLimitExceeded) || sentinelerr.Is(err, sentinelerr.KindRecordLimitExceeded) {
			if rotErr := m.Rotate(); rotErr != nil {
				return rotErr
			}
			return m.WriteEntry(r)
		}
		return err
	}
	return nil
}

// WriteEntry appends one record to the active file without rotating. It
// returns a distinguished FileSizeLimitExceeded/RecordLimitExceeded error
// if the write would breach a rotation threshold, leaving the file
// untouched so the caller can rotate and retry.
func (m *Manager) WriteEntry(r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	encoded, err := encode(r)
	if err != nil {
		return err
	}
	frameSize := int64(4 + len(encoded) + 4)

	if m.cfg.MaxWALSizeBytes > 0 && m.size+frameSize > m.cfg.MaxWALSizeBytes {
		return sentinelerr.New(sentinelerr.KindFileSizeLimitExceeded, "wal.Manager.WriteEntry")
	}
	if m.cfg.MaxRecordsPerFile > 0 && m.liveRecords+1 > m.cfg.MaxRecordsPerFile {
		return sentinelerr.New(sentinelerr.KindRecordLimitExceeded, "wal.Manager.WriteEntry")
	}

	n, err := writeFramed(m.bufw, r)
	if err != nil {
		return err
	}
	if err := m.bufw.Flush(); err != nil {
		return sentinelerr.Wrap(sentinelerr.KindIO, "wal.Manager.WriteEntry", err)
	}
	if m.cfg.WriteMode == WriteStrict {
		if err := m.file.Sync(); err != nil {
			return sentinelerr.Wrap(sentinelerr.KindIO, "wal.Manager.WriteEntry", err)
		}
	}

	m.size += int64(n)
	m.liveRecords++

	name := filepath.Base(m.dir)
	metrics.WALBytesWrittenTotal.WithLabelValues(name).Add(float64(n))
	metrics.WALActiveSizeBytes.WithLabelValues(name).Set(float64(m.size))

	log.WithComponent("wal").Debug().
		Str("entry_type", r.EntryType.String()).
		Str("txn_id", r.TransactionID).
		Int64("size", m.size).
		Msg("wal record appended")

	return nil
}
