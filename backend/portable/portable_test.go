package portable_test

import (
	"errors"
	"testing"

	"github.com/bluesky-social/jose"
	"github.com/bluesky-social/jose/alg"
	"github.com/bluesky-social/jose/backend"
	"github.com/bluesky-social/jose/backend/backendtest"
	_ "github.com/bluesky-social/jose/backend/jwxkey"
	_ "github.com/bluesky-social/jose/backend/native"
	"github.com/bluesky-social/jose/backend/portable"
	"github.com/bluesky-social/jose/internal/testkeys"
	"github.com/bluesky-social/jose/keymaterial"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConformance(t *testing.T) {
	backendtest.RunConformance(t, portable.Backend{})
}

func TestRegistered(t *testing.T) {
	b, err := backend.Lookup(portable.Name)
	require.NoError(t, err)
	assert.Equal(t, portable.Name, b.Name())
}

func TestDeterministicSignatures(t *testing.T) {
	assert := assert.New(t)

	for _, pair := range testkeys.Pairs {
		k := backendtest.NewKey(t, portable.Backend{}, pair.Private, pair.Alg)
		sig1, err := k.Sign([]byte("same input"))
		require.NoError(t, err)
		sig2, err := k.Sign([]byte("same input"))
		require.NoError(t, err)
		assert.Equal(sig1, sig2, pair.Alg)

		sig3, err := k.Sign([]byte("other input"))
		require.NoError(t, err)
		assert.NotEqual(sig1, sig3)
	}
}

func TestDigestTooLong(t *testing.T) {
	assert := assert.New(t)

	m, err := keymaterial.ParsePEM([]byte(testkeys.TooShortP256))
	require.NoError(t, err)

	for _, a := range []alg.Algorithm{alg.ES384, alg.ES512} {
		k, err := portable.Backend{}.NewKey(m, a)
		require.NoError(t, err)

		_, err = k.Sign([]byte("too short"))
		assert.True(errors.Is(err, portable.ErrDigestTooLong), a.Name)
		assert.False(errors.Is(err, jose.ErrJOSE))
	}

	// a shorter digest on a larger curve is fine
	p521, err := keymaterial.ParsePEM([]byte(testkeys.PrivateP521))
	require.NoError(t, err)
	k, err := portable.Backend{}.NewKey(p521, alg.ES256)
	require.NoError(t, err)
	sig, err := k.Sign([]byte("short digest"))
	require.NoError(t, err)
	assert.True(k.Verify([]byte("short digest"), sig))
}
