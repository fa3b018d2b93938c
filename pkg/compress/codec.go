// Package compress implements Sentinel's pluggable WAL rotation codecs.
// Each codec exposes a uniform streaming compress/decompress interface; no
// framing is added beyond what the codec itself defines, and the WAL file
// name suffix (zst/lz4/br/deflate/gz) records which codec produced a
// rotated file.
package compress

import (
	"io"

	"github.com/sentineldb/sentinel/pkg/sentinelerr"
)

// Codec is a streaming compressor/decompressor.
type Codec interface {
	// Suffix is the file-name suffix this codec is identified by, e.g. "zst".
	Suffix() string
	Compress(r io.Reader) ([]byte, error)
	Decompress(r io.Reader) ([]byte, error)
}

// Registry maps file-name suffixes to codec implementations.
type Registry struct {
	codecs map[string]Codec
}

// NewRegistry returns a Registry pre-populated with all five supported
// codecs (Zstd, LZ4, Brotli, Deflate, Gzip).
func NewRegistry() *Registry {
	r := &Registry{codecs: make(map[string]Codec, 5)}
	for _, c := range []Codec{
		newZstdCodec(),
		newLZ4Codec(),
		newBrotliCodec(),
		newDeflateCodec(),
		newGzipCodec(),
	} {
		r.codecs[c.Suffix()] = c
	}
	return r
}

// ByName looks up a codec by its file-name suffix.
func (r *Registry) ByName(suffix string) (Codec, error) {
	c, ok := r.codecs[suffix]
	if !ok {
		return nil, sentinelerr.New(sentinelerr.KindConfigError, "compress.Registry.ByName")
	}
	return c, nil
}

// Default returns Sentinel's default rotation codec: Zstd.
func (r *Registry) Default() Codec {
	return r.codecs["zst"]
}
