package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodecsRoundTrip(t *testing.T) {
	reg := NewRegistry()
	payload := []byte("the quick brown fox jumps over the lazy dog, repeated. " +
		"the quick brown fox jumps over the lazy dog, repeated.")

	for _, suffix := range []string{"zst", "lz4", "br", "deflate", "gz"} {
		t.Run(suffix, func(t *testing.T) {
			codec, err := reg.ByName(suffix)
			require.NoError(t, err)

			compressed, err := codec.Compress(bytes.NewReader(payload))
			require.NoError(t, err)

			decompressed, err := codec.Decompress(bytes.NewReader(compressed))
			require.NoError(t, err)
			require.Equal(t, payload, decompressed)
		})
	}
}

func TestRegistryUnknownSuffix(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.ByName("xz")
	require.Error(t, err)
}

func TestRegistryDefault(t *testing.T) {
	reg := NewRegistry()
	require.Equal(t, "zst", reg.Default().Suffix())
}
