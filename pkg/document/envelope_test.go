package document

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sentineldb/sentinel/pkg/crypto"
	"github.com/sentineldb/sentinel/pkg/sentinelerr"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope(t *testing.T) {
	algos := crypto.Default()
	data := json.RawMessage(`{"name":"Ada","age":30}`)

	env, err := New(algos, "u1", data, nil)
	require.NoError(t, err)
	require.Equal(t, 1, env.Version)
	require.Equal(t, env.CreatedAt, env.UpdatedAt)
	require.NotEmpty(t, env.Hash)
	require.Empty(t, env.Signature)
}

func TestMutateBumpsVersion(t *testing.T) {
	algos := crypto.Default()
	v1, err := New(algos, "u1", json.RawMessage(`{"v":1}`), nil)
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	v2, err := Mutate(algos, v1, json.RawMessage(`{"v":2}`), nil)
	require.NoError(t, err)

	require.Equal(t, 2, v2.Version)
	require.Equal(t, v1.CreatedAt, v2.CreatedAt)
	require.True(t, !v2.UpdatedAt.Before(v1.UpdatedAt))
	require.NotEqual(t, v1.Hash, v2.Hash)
}

func TestVerifyDetectsTamperedData(t *testing.T) {
	algos := crypto.Default()
	env, err := New(algos, "u1", json.RawMessage(`{"v":1}`), nil)
	require.NoError(t, err)

	env.Data = json.RawMessage(`{"v":2}`) // tamper without updating hash

	err = env.Verify(algos, DefaultVerificationOptions(), nil)
	require.True(t, sentinelerr.Is(err, sentinelerr.KindHashVerificationFailed))
}

func TestVerifySignedRoundTrip(t *testing.T) {
	algos := crypto.Default()
	pub, priv, err := crypto.GenerateSigningKey()
	require.NoError(t, err)

	env, err := New(algos, "u1", json.RawMessage(`{"v":1}`), priv)
	require.NoError(t, err)
	require.NotEmpty(t, env.Signature)

	require.NoError(t, env.Verify(algos, DefaultVerificationOptions(), pub))
}

func TestVerifyWarnModeDoesNotError(t *testing.T) {
	algos := crypto.Default()
	env, err := New(algos, "u1", json.RawMessage(`{"v":1}`), nil)
	require.NoError(t, err)
	env.Data = json.RawMessage(`{"v":2}`)

	opts := DefaultVerificationOptions()
	opts.HashMode = ModeWarn
	require.NoError(t, env.Verify(algos, opts, nil))
}
