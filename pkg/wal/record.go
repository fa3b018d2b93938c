// Package wal implements Sentinel's per-collection write-ahead log: framed,
// checksummed append-only records with size/record-count rotation,
// optional compression of rotated files, streaming reads, and checkpoints.
package wal

import (
	"encoding/binary"
	"encoding/json"

	"github.com/sentineldb/sentinel/pkg/sentinelerr"
)

// EntryType identifies the kind of WAL record.
type EntryType byte

const (
	EntryBegin EntryType = iota + 1
	EntryCommit
	EntryRollback
	EntryInsert
	EntryUpdate
	EntryDelete
)

func (t EntryType) String() string {
	switch t {
	case EntryBegin:
		return "begin"
	case EntryCommit:
		return "commit"
	case EntryRollback:
		return "rollback"
	case EntryInsert:
		return "insert"
	case EntryUpdate:
		return "update"
	case EntryDelete:
		return "delete"
	default:
		return "unknown"
	}
}

const (
	// MaxFieldLen bounds Collection and DocumentID to 256 bytes each.
	MaxFieldLen = 256
	// TransactionIDLen is the fixed width of a transaction id: a UUIDv4
	// with its hyphens stripped, 32 hex characters.
	TransactionIDLen = 32
)

// Record is one framed WAL entry.
type Record struct {
	EntryType     EntryType
	TransactionID string
	Collection    string
	DocumentID    string
	Data          json.RawMessage // empty for Delete and transaction markers
	TimestampMs   int64
}

// encode serializes a Record to its compact binary form (no framing).
func encode(r Record) ([]byte, error) {
	if len(r.TransactionID) != TransactionIDLen {
		return nil, sentinelerr.New(sentinelerr.KindInternal, "wal.encode")
	}
	if len(r.Collection) > MaxFieldLen || len(r.DocumentID) > MaxFieldLen {
		return nil, sentinelerr.New(sentinelerr.KindInternal, "wal.encode")
	}

	buf := make([]byte, 0, 1+TransactionIDLen+2+len(r.Collection)+2+len(r.DocumentID)+4+len(r.Data)+8)
	buf = append(buf, byte(r.EntryType))
	buf = append(buf, []byte(r.TransactionID)...)

	buf = appendUint16Prefixed(buf, []byte(r.Collection))
	buf = appendUint16Prefixed(buf, []byte(r.DocumentID))
	buf = appendUint32Prefixed(buf, r.Data)

	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], uint64(r.TimestampMs))
	buf = append(buf, ts[:]...)

	return buf, nil
}

// decode parses a Record from its compact binary form.
func decode(b []byte) (Record, error) {
	const minLen = 1 + TransactionIDLen + 2 + 2 + 4 + 8
	if len(b) < minLen {
		return Record{}, sentinelerr.New(sentinelerr.KindJSON, "wal.decode")
	}
	r := Record{}
	pos := 0

	r.EntryType = EntryType(b[pos])
	pos++

	r.TransactionID = string(b[pos : pos+TransactionIDLen])
	pos += TransactionIDLen

	collection, n, err := readUint16Prefixed(b[pos:])
	if err != nil {
		return Record{}, sentinelerr.Wrap(sentinelerr.KindJSON, "wal.decode", err)
	}
	r.Collection = string(collection)
	pos += n

	docID, n, err := readUint16Prefixed(b[pos:])
	if err != nil {
		return Record{}, sentinelerr.Wrap(sentinelerr.KindJSON, "wal.decode", err)
	}
	r.DocumentID = string(docID)
	pos += n

	data, n, err := readUint32Prefixed(b[pos:])
	if err != nil {
		return Record{}, sentinelerr.Wrap(sentinelerr.KindJSON, "wal.decode", err)
	}
	if len(data) > 0 {
		r.Data = data
	}
	pos += n

	if pos+8 > len(b) {
		return Record{}, sentinelerr.New(sentinelerr.KindJSON, "wal.decode")
	}
	r.TimestampMs = int64(binary.LittleEndian.Uint64(b[pos : pos+8]))
	pos += 8

	if pos != len(b) {
		return Record{}, sentinelerr.New(sentinelerr.KindJSON, "wal.decode")
	}

	return r, nil
}

func appendUint16Prefixed(buf, data []byte) []byte {
	var l [2]byte
	binary.LittleEndian.PutUint16(l[:], uint16(len(data)))
	buf = append(buf, l[:]...)
	return append(buf, data...)
}

func appendUint32Prefixed(buf, data []byte) []byte {
	var l [4]byte
	binary.LittleEndian.PutUint32(l[:], uint32(len(data)))
	buf = append(buf, l[:]...)
	return append(buf, data...)
}

func readUint16Prefixed(b []byte) (data []byte, consumed int, err error) {
	if len(b) < 2 {
		return nil, 0, sentinelerr.New(sentinelerr.KindJSON, "wal.readUint16Prefixed")
	}
	l := int(binary.LittleEndian.Uint16(b))
	if len(b) < 2+l {
		return nil, 0, sentinelerr.New(sentinelerr.KindJSON, "wal.readUint16Prefixed")
	}
	return b[2 : 2+l], 2 + l, nil
}

func readUint32Prefixed(b []byte) (data []byte, consumed int, err error) {
	if len(b) < 4 {
		return nil, 0, sentinelerr.New(sentinelerr.KindJSON, "wal.readUint32Prefixed")
	}
	l := int(binary.LittleEndian.Uint32(b))
	if len(b) < 4+l {
		return nil, 0, sentinelerr.New(sentinelerr.KindJSON, "wal.readUint32Prefixed")
	}
	return b[4 : 4+l], 4 + l, nil
}
