package store

import (
	"time"

	"github.com/sentineldb/sentinel/pkg/log"
)

func (s *Store) autocheckpointLoop(interval time.Duration) {
	defer close(s.checkpointDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCheckpoint:
			return
		case <-ticker.C:
			s.CheckpointAll()
		}
	}
}

// CheckpointAll checkpoints every open collection whose active WAL file
// exceeds the store's MaxWALSizeBytes threshold.
func (s *Store) CheckpointAll() {
	threshold := s.cfg.MaxWALSizeBytes
	if threshold <= 0 {
		threshold = s.md.snapshot().WALConfig.MaxWALSizeBytes
	}

	s.mu.Lock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	s.mu.Unlock()

	for _, name := range names {
		s.mu.Lock()
		c, ok := s.collections[name]
		s.mu.Unlock()
		if !ok {
			continue
		}

		stats, err := c.WALStat()
		if err != nil {
			log.WithComponent("store").Warn().Err(err).Str("collection", name).Msg("failed to stat WAL during autocheckpoint")
			continue
		}
		if threshold > 0 && stats.ActiveSizeBytes < threshold {
			continue
		}
		if err := c.Checkpoint(); err != nil {
			log.WithComponent("store").Warn().Err(err).Str("collection", name).Msg("autocheckpoint failed")
		}
	}
}
