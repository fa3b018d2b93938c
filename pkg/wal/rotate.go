package wal

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sentineldb/sentinel/pkg/log"
	"github.com/sentineldb/sentinel/pkg/metrics"
	"github.com/sentineldb/sentinel/pkg/sentinelerr"
)

// Rotate closes the active file, renames it to a timestamped name,
// optionally compresses it with the configured codec, and opens a fresh
// active file. Safe to call even if a reader holds a stale descriptor to
// the old path: rotation renames the old path (or, when compressing,
// writes a new file and removes the old path); it never mutates the bytes
// a reader already opened.
func (m *Manager) Rotate() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.bufw.Flush(); err != nil {
		return sentinelerr.Wrap(sentinelerr.KindIO, "wal.Manager.Rotate", err)
	}
	if err := m.file.Sync(); err != nil {
		return sentinelerr.Wrap(sentinelerr.KindIO, "wal.Manager.Rotate", err)
	}
	if err := m.file.Close(); err != nil {
		return sentinelerr.Wrap(sentinelerr.KindIO, "wal.Manager.Rotate", err)
	}

	ts := time.Now().UnixNano()
	logger := log.WithComponent("wal")

	if m.cfg.RotationCodec != "" {
		codec, err := m.codecs.ByName(m.cfg.RotationCodec)
		if err != nil {
			return err
		}
		raw, err := os.Open(m.activePath)
		if err != nil {
			return sentinelerr.Wrap(sentinelerr.KindIO, "wal.Manager.Rotate", err)
		}
		compressed, err := codec.Compress(raw)
		raw.Close()
		if err != nil {
			return err
		}
		rotatedPath := filepath.Join(m.dir, fmt.Sprintf(".wal.%d.%s", ts, codec.Suffix()))
		if err := os.WriteFile(rotatedPath, compressed, 0o644); err != nil {
			return sentinelerr.Wrap(sentinelerr.KindIO, "wal.Manager.Rotate", err)
		}
		if err := os.Remove(m.activePath); err != nil {
			return sentinelerr.Wrap(sentinelerr.KindIO, "wal.Manager.Rotate", err)
		}
		logger.Info().Str("rotated_to", rotatedPath).Msg("wal rotated and compressed")
	} else {
		rotatedPath := filepath.Join(m.dir, fmt.Sprintf(".wal.%d.raw", ts))
		if err := os.Rename(m.activePath, rotatedPath); err != nil {
			return sentinelerr.Wrap(sentinelerr.KindIO, "wal.Manager.Rotate", err)
		}
		logger.Info().Str("rotated_to", rotatedPath).Msg("wal rotated")
	}

	f, err := os.OpenFile(m.activePath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return sentinelerr.Wrap(sentinelerr.KindIO, "wal.Manager.Rotate", err)
	}
	m.file = f
	m.bufw.Reset(f)
	m.size = 0
	m.liveRecords = 0

	name := filepath.Base(m.dir)
	metrics.WALRotationsTotal.WithLabelValues(name).Inc()
	metrics.WALActiveSizeBytes.WithLabelValues(name).Set(0)

	return nil
}

// Checkpoint truncates the active WAL file once its effects are durable in
// the collection's data files: drop the writer, recreate the file empty,
// reopen in append mode, reset the live record counter. Like Rotate, it's
// safe to call with stale reader descriptors outstanding.
func (m *Manager) Checkpoint() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.bufw.Flush(); err != nil {
		return sentinelerr.Wrap(sentinelerr.KindIO, "wal.Manager.Checkpoint", err)
	}
	if err := m.file.Close(); err != nil {
		return sentinelerr.Wrap(sentinelerr.KindIO, "wal.Manager.Checkpoint", err)
	}

	f, err := os.OpenFile(m.activePath, os.O_CREATE|os.O_TRUNC|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return sentinelerr.Wrap(sentinelerr.KindIO, "wal.Manager.Checkpoint", err)
	}
	m.file = f
	m.bufw = bufio.NewWriter(f)
	m.size = 0
	m.liveRecords = 0

	name := filepath.Base(m.dir)
	metrics.WALCheckpointsTotal.WithLabelValues(name).Inc()
	metrics.WALActiveSizeBytes.WithLabelValues(name).Set(0)

	log.WithComponent("wal").Info().Str("path", m.activePath).Msg("wal checkpointed")
	return nil
}
