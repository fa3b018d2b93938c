package compress

import (
	"bytes"
	"compress/gzip"
	"io"

	"github.com/sentineldb/sentinel/pkg/sentinelerr"
)

type gzipCodec struct{}

func newGzipCodec() Codec { return gzipCodec{} }

func (gzipCodec) Suffix() string { return "gz" }

func (gzipCodec) Compress(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return nil, sentinelerr.Wrap(sentinelerr.KindIO, "compress.gzip.Compress", err)
	}
	if err := w.Close(); err != nil {
		return nil, sentinelerr.Wrap(sentinelerr.KindIO, "compress.gzip.Compress", err)
	}
	return buf.Bytes(), nil
}

func (gzipCodec) Decompress(r io.Reader) ([]byte, error) {
	dec, err := gzip.NewReader(r)
	if err != nil {
		return nil, sentinelerr.Wrap(sentinelerr.KindIO, "compress.gzip.Decompress", err)
	}
	defer dec.Close()
	out, err := io.ReadAll(dec)
	if err != nil {
		return nil, sentinelerr.Wrap(sentinelerr.KindIO, "compress.gzip.Decompress", err)
	}
	return out, nil
}
