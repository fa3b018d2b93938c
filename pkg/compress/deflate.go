package compress

import (
	"bytes"
	"compress/flate"
	"io"

	"github.com/sentineldb/sentinel/pkg/sentinelerr"
)

type deflateCodec struct{}

func newDeflateCodec() Codec { return deflateCodec{} }

func (deflateCodec) Suffix() string { return "deflate" }

func (deflateCodec) Compress(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, sentinelerr.Wrap(sentinelerr.KindIO, "compress.deflate.Compress", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return nil, sentinelerr.Wrap(sentinelerr.KindIO, "compress.deflate.Compress", err)
	}
	if err := w.Close(); err != nil {
		return nil, sentinelerr.Wrap(sentinelerr.KindIO, "compress.deflate.Compress", err)
	}
	return buf.Bytes(), nil
}

func (deflateCodec) Decompress(r io.Reader) ([]byte, error) {
	dec := flate.NewReader(r)
	defer dec.Close()
	out, err := io.ReadAll(dec)
	if err != nil {
		return nil, sentinelerr.Wrap(sentinelerr.KindIO, "compress.deflate.Decompress", err)
	}
	return out, nil
}
