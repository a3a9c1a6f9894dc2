package native_test

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/bluesky-social/jose"
	"github.com/bluesky-social/jose/alg"
	"github.com/bluesky-social/jose/backend/backendtest"
	_ "github.com/bluesky-social/jose/backend/jwxkey"
	"github.com/bluesky-social/jose/backend/native"
	_ "github.com/bluesky-social/jose/backend/portable"
	"github.com/bluesky-social/jose/curve"
	"github.com/bluesky-social/jose/internal/testkeys"
	"github.com/bluesky-social/jose/keymaterial"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConformance(t *testing.T) {
	backendtest.RunConformance(t, native.Backend{})
}

func TestHandleIsolation(t *testing.T) {
	backendtest.CheckHandleIsolation(t, native.Backend{}, func(t *testing.T, handle any) {
		switch h := handle.(type) {
		case *ecdsa.PrivateKey:
			h.D.SetInt64(7)
			h.X.SetInt64(1)
		case *ecdsa.PublicKey:
			h.X.SetInt64(1)
			h.Y.SetInt64(2)
		default:
			t.Fatalf("unexpected handle %T", handle)
		}
	})
}

func TestNativeHandles(t *testing.T) {
	assert := assert.New(t)
	b := native.Backend{}

	k := backendtest.NewKey(t, b, testkeys.PrivateP384, "ES384")
	priv, ok := k.Native().(*ecdsa.PrivateKey)
	require.True(t, ok)
	assert.Equal("P-384", priv.Curve.Params().Name)

	pub, err := k.Public()
	require.NoError(t, err)
	_, ok = pub.Native().(*ecdsa.PublicKey)
	assert.True(ok)

	// values and ecdh keys are accepted too
	for _, handle := range []any{*priv, priv.PublicKey} {
		m, err := b.ParseNative(handle)
		require.NoError(t, err)
		assert.Equal(curve.P384, m.Curve())
	}

	ecdhPriv, err := priv.ECDH()
	require.NoError(t, err)
	m, err := b.ParseNative(ecdhPriv)
	require.NoError(t, err)
	assert.True(k.Material().Equal(m))

	m, err = b.ParseNative(ecdhPriv.PublicKey())
	require.NoError(t, err)
	assert.True(pub.Material().Equal(m))

	x25519, err := ecdh.X25519().GenerateKey(rand.Reader)
	require.NoError(t, err)
	_, err = b.ParseNative(x25519)
	assert.True(errors.Is(err, jose.ErrMalformedKey))

	var nilKey *ecdsa.PrivateKey
	_, err = b.ParseNative(nilKey)
	assert.True(errors.Is(err, jose.ErrInvalidKeyMaterial))
}

func TestParseNativeShortScalar(t *testing.T) {
	assert := assert.New(t)

	// big.Int drops the leading zero byte of this key's scalar
	k := backendtest.NewKey(t, native.Backend{}, testkeys.LeadingZeroP256, "ES256")
	priv := k.Native().(*ecdsa.PrivateKey)
	assert.Len(priv.D.Bytes(), 31)

	m, err := native.Backend{}.ParseNative(priv)
	require.NoError(t, err)
	jwk, err := keymaterial.FromMaterial(m)
	require.NoError(t, err)
	assert.Equal(testkeys.LeadingZeroD, jwk.D)
}

func TestUnsupportedNativeCurve(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P224(), rand.Reader)
	require.NoError(t, err)
	_, err = native.Backend{}.ParseNative(priv)
	assert.True(t, errors.Is(err, jose.ErrMalformedKey))
}

func TestTruncatesWideDigest(t *testing.T) {
	assert := assert.New(t)

	m, err := keymaterial.ParsePEM([]byte(testkeys.TooShortP256))
	require.NoError(t, err)
	k, err := native.Backend{}.NewKey(m, alg.ES512)
	require.NoError(t, err)

	msg := []byte("too short")
	sig, err := k.Sign(msg)
	require.NoError(t, err)
	assert.Len(sig, 64)
	assert.True(k.Verify(msg, sig))
}
