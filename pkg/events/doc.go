// Package events implements Sentinel's internal lifecycle notification
// channel: collections publish CollectionCreated/Deleted and
// DocumentInserted/Updated/Deleted events onto a Bus, and a single
// Debouncer-driven consumer uses them to decide when to persist store
// metadata, without fsyncing on every single document write.
package events
