package compress

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/sentineldb/sentinel/pkg/sentinelerr"
)

type zstdCodec struct{}

func newZstdCodec() Codec { return zstdCodec{} }

func (zstdCodec) Suffix() string { return "zst" }

func (zstdCodec) Compress(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, sentinelerr.Wrap(sentinelerr.KindIO, "compress.zstd.Compress", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return nil, sentinelerr.Wrap(sentinelerr.KindIO, "compress.zstd.Compress", err)
	}
	if err := w.Close(); err != nil {
		return nil, sentinelerr.Wrap(sentinelerr.KindIO, "compress.zstd.Compress", err)
	}
	return buf.Bytes(), nil
}

func (zstdCodec) Decompress(r io.Reader) ([]byte, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, sentinelerr.Wrap(sentinelerr.KindIO, "compress.zstd.Decompress", err)
	}
	defer dec.Close()
	out, err := io.ReadAll(dec)
	if err != nil {
		return nil, sentinelerr.Wrap(sentinelerr.KindIO, "compress.zstd.Decompress", err)
	}
	return out, nil
}
