package store

import (
	"github.com/sentineldb/sentinel/pkg/events"
	"github.com/sentineldb/sentinel/pkg/metrics"
)

// consumeEvents drains the store's event bus, applying each event's effect
// to the in-memory metadata counters and triggering the debounced
// .sentinel.json write. It returns once the bus is closed and does no
// final save itself; Close waits for it to return and then saves the
// metadata synchronously.
func (s *Store) consumeEvents() {
	defer close(s.eventsDone)
	for e := range s.bus.Events() {
		var snapshot Metadata
		s.md.update(func(m *Metadata) {
			switch e.Type {
			case events.DocumentInserted:
				m.TotalDocuments++
				m.TotalSizeBytes += e.Size
				metrics.DocumentsTotal.WithLabelValues(e.Collection).Inc()
			case events.DocumentUpdated:
				m.TotalSizeBytes += e.Size
			case events.DocumentDeleted:
				if m.TotalDocuments > 0 {
					m.TotalDocuments--
				}
				m.TotalSizeBytes -= e.Size
				metrics.DocumentsTotal.WithLabelValues(e.Collection).Dec()
			case events.CollectionCreated:
				metrics.CollectionsTotal.Inc()
			case events.CollectionDeleted:
				metrics.CollectionsTotal.Dec()
				metrics.DocumentsTotal.DeleteLabelValues(e.Collection)
			}
			snapshot = *m
		})
		if e.Type == events.DocumentInserted || e.Type == events.DocumentUpdated || e.Type == events.DocumentDeleted {
			metrics.StoreSizeBytes.Set(float64(snapshot.TotalSizeBytes))
		}
		s.debouncer.Trigger()
	}
}
