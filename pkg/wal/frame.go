package wal

import (
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/sentineldb/sentinel/pkg/log"
	"github.com/sentineldb/sentinel/pkg/sentinelerr"
)

// writeFramed appends one framed record to w: a 4-byte little-endian
// length, the encoded record, and a 4-byte little-endian CRC32 of the
// encoded record bytes (not including the length prefix).
func writeFramed(w io.Writer, r Record) (int, error) {
	encoded, err := encode(r)
	if err != nil {
		return 0, err
	}

	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(encoded)))

	var trailer [4]byte
	binary.LittleEndian.PutUint32(trailer[:], crc32.ChecksumIEEE(encoded))

	n := 0
	for _, chunk := range [][]byte{header[:], encoded, trailer[:]} {
		written, err := w.Write(chunk)
		n += written
		if err != nil {
			return n, sentinelerr.Wrap(sentinelerr.KindIO, "wal.writeFramed", err)
		}
	}
	return n, nil
}

// readAllTolerant scans for valid records without trusting length prefixes:
// it extends a prospective record one byte at a time until the trailing 4
// bytes validate as the CRC32 of the bytes preceding them, then attempts to
// decode. Either a decode failure past a valid checksum, or exhausting the
// buffer without ever finding one, just advances the cursor one byte and
// resumes scanning from there — a corrupt record is skipped, not a reason
// to give up on the rest of the file. This tolerates a torn tail write and
// isolated single-record corruption at the cost of O(n^2) worst-case
// rescans, which is acceptable because WAL files are size-capped by
// rotation.
func readAllTolerant(buf []byte) []Record {
	logger := log.WithComponent("wal")
	var records []Record

	cursor := 0
	for cursor < len(buf) {
		// Skip the 4-byte length prefix written by writeFramed; the
		// tolerant scan doesn't trust it, but it's always there, so
		// candidates start just past it.
		start := cursor + 4
		if start >= len(buf) {
			break
		}

		found := false
		for end := start + 1; end <= len(buf); end++ {
			if end-start < 4 {
				continue
			}
			candidate := buf[start : end-4]
			trailer := buf[end-4 : end]
			if crc32.ChecksumIEEE(candidate) != binary.LittleEndian.Uint32(trailer) {
				continue
			}
			rec, err := decode(candidate)
			if err != nil {
				logger.Warn().Err(err).Msg("wal record failed checksum-valid decode, skipping")
				cursor++
				found = true
				break
			}
			records = append(records, rec)
			cursor = end
			found = true
			break
		}
		if !found {
			cursor++
			continue
		}
	}

	return records
}

// readFramedStrict reads one length-prefixed, CRC32-trailed record from r.
// Unlike the tolerant scan, it trusts the length prefix; any checksum or
// decode failure is a hard error. Used by StreamEntries against files
// known not to have torn tails (e.g. freshly rotated, already-checkpointed
// files).
func readFramedStrict(r io.Reader) (Record, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Record{}, err // io.EOF propagates to signal end of stream
	}
	length := binary.LittleEndian.Uint32(header[:])

	encoded := make([]byte, length)
	if _, err := io.ReadFull(r, encoded); err != nil {
		return Record{}, sentinelerr.Wrap(sentinelerr.KindIO, "wal.readFramedStrict", err)
	}

	var trailer [4]byte
	if _, err := io.ReadFull(r, trailer[:]); err != nil {
		return Record{}, sentinelerr.Wrap(sentinelerr.KindIO, "wal.readFramedStrict", err)
	}
	if crc32.ChecksumIEEE(encoded) != binary.LittleEndian.Uint32(trailer[:]) {
		return Record{}, sentinelerr.New(sentinelerr.KindStoreCorruption, "wal.readFramedStrict")
	}

	return decode(encoded)
}
