package compress

import (
	"bytes"
	"io"

	"github.com/pierrec/lz4/v4"
	"github.com/sentineldb/sentinel/pkg/sentinelerr"
)

type lz4Codec struct{}

func newLZ4Codec() Codec { return lz4Codec{} }

func (lz4Codec) Suffix() string { return "lz4" }

func (lz4Codec) Compress(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return nil, sentinelerr.Wrap(sentinelerr.KindIO, "compress.lz4.Compress", err)
	}
	if err := w.Close(); err != nil {
		return nil, sentinelerr.Wrap(sentinelerr.KindIO, "compress.lz4.Compress", err)
	}
	return buf.Bytes(), nil
}

func (lz4Codec) Decompress(r io.Reader) ([]byte, error) {
	dec := lz4.NewReader(r)
	out, err := io.ReadAll(dec)
	if err != nil {
		return nil, sentinelerr.Wrap(sentinelerr.KindIO, "compress.lz4.Decompress", err)
	}
	return out, nil
}
