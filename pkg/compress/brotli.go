package compress

import (
	"bytes"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/sentineldb/sentinel/pkg/sentinelerr"
)

type brotliCodec struct{}

func newBrotliCodec() Codec { return brotliCodec{} }

func (brotliCodec) Suffix() string { return "br" }

func (brotliCodec) Compress(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return nil, sentinelerr.Wrap(sentinelerr.KindIO, "compress.brotli.Compress", err)
	}
	if err := w.Close(); err != nil {
		return nil, sentinelerr.Wrap(sentinelerr.KindIO, "compress.brotli.Compress", err)
	}
	return buf.Bytes(), nil
}

func (brotliCodec) Decompress(r io.Reader) ([]byte, error) {
	dec := brotli.NewReader(r)
	out, err := io.ReadAll(dec)
	if err != nil {
		return nil, sentinelerr.Wrap(sentinelerr.KindIO, "compress.brotli.Decompress", err)
	}
	return out, nil
}
