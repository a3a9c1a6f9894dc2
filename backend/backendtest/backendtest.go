// Shared contract tests run against every backend.
package backendtest

import (
	"errors"
	"strings"
	"testing"

	"github.com/bluesky-social/jose"
	"github.com/bluesky-social/jose/alg"
	"github.com/bluesky-social/jose/backend"
	"github.com/bluesky-social/jose/curve"
	"github.com/bluesky-social/jose/internal/testkeys"
	"github.com/bluesky-social/jose/keymaterial"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunConformance checks that b satisfies the backend contract for every supported curve. Cross-backend checks use whatever other backends are registered in the test binary.
func RunConformance(t *testing.T, b backend.Backend) {
	t.Run("PEMRoundTrip", func(t *testing.T) { testPEMRoundTrip(t, b) })
	t.Run("JWKRoundTrip", func(t *testing.T) { testJWKRoundTrip(t, b) })
	t.Run("Public", func(t *testing.T) { testPublic(t, b) })
	t.Run("SignVerify", func(t *testing.T) { testSignVerify(t, b) })
	t.Run("CrossBackend", func(t *testing.T) { testCrossBackend(t, b) })
	t.Run("LeadingZeroScalar", func(t *testing.T) { testLeadingZero(t, b) })
	t.Run("TooShortDeterministic", func(t *testing.T) { testTooShort(t, b) })
	t.Run("DerivePoint", func(t *testing.T) { testDerivePoint(t, b) })
	t.Run("Inconsistent", func(t *testing.T) { testInconsistent(t, b) })
	t.Run("Native", func(t *testing.T) { testNative(t, b) })
	t.Run("Generate", func(t *testing.T) { testGenerate(t, b) })
}

// NewKey parses a PEM fixture and builds a key on b.
func NewKey(t *testing.T, b backend.Backend, pemText, algName string) backend.Key {
	t.Helper()
	m, err := keymaterial.ParsePEM([]byte(pemText))
	require.NoError(t, err)
	a, err := alg.Lookup(algName)
	require.NoError(t, err)
	k, err := b.NewKey(m, a)
	require.NoError(t, err)
	return k
}

// CheckHandleIsolation hands every key's Native handle to tamper and then checks that the key itself still serializes, signs and verifies as before.
func CheckHandleIsolation(t *testing.T, b backend.Backend, tamper func(t *testing.T, handle any)) {
	assert := assert.New(t)
	msg := []byte("handles are copies")

	for _, pair := range testkeys.Pairs {
		priv := NewKey(t, b, pair.Private, pair.Alg)
		pub, err := priv.Public()
		require.NoError(t, err)

		privJWK, err := priv.JWK()
		require.NoError(t, err)
		pubJWK, err := pub.JWK()
		require.NoError(t, err)
		privPEM, err := priv.PEM()
		require.NoError(t, err)
		pubPEM, err := pub.PEM()
		require.NoError(t, err)

		tamper(t, priv.Native())
		tamper(t, pub.Native())

		afterJWK, err := priv.JWK()
		require.NoError(t, err)
		assert.Equal(privJWK, afterJWK, pair.Alg)
		afterJWK, err = pub.JWK()
		require.NoError(t, err)
		assert.Equal(pubJWK, afterJWK, pair.Alg)
		afterPEM, err := priv.PEM()
		require.NoError(t, err)
		assert.Equal(trimmed(privPEM), trimmed(afterPEM), pair.Alg)
		afterPEM, err = pub.PEM()
		require.NoError(t, err)
		assert.Equal(trimmed(pubPEM), trimmed(afterPEM), pair.Alg)

		sig, err := priv.Sign(msg)
		require.NoError(t, err)
		assert.True(priv.Verify(msg, sig), pair.Alg)
		assert.True(pub.Verify(msg, sig), pair.Alg)

		m, err := b.ParseNative(priv.Native())
		require.NoError(t, err)
		assert.True(priv.Material().Equal(m), pair.Alg)
	}
}

func trimmed(b []byte) string {
	return strings.TrimSpace(string(b))
}

func testPEMRoundTrip(t *testing.T, b backend.Backend) {
	assert := assert.New(t)

	for _, pair := range testkeys.Pairs {
		priv := NewKey(t, b, pair.Private, pair.Alg)
		assert.False(priv.IsPublic())
		assert.Equal(pair.Curve, priv.Material().Curve())

		out, err := priv.PEM()
		require.NoError(t, err)
		assert.Equal(strings.TrimSpace(pair.Private), trimmed(out), pair.Alg)

		pub := NewKey(t, b, pair.Public, pair.Alg)
		assert.True(pub.IsPublic())
		out, err = pub.PEM()
		require.NoError(t, err)
		assert.Equal(strings.TrimSpace(pair.Public), trimmed(out), pair.Alg)
	}

	// PKCS#8 input comes back out as SEC1
	priv := NewKey(t, b, testkeys.PrivateP256PKCS8, "ES256")
	out, err := priv.PEM()
	require.NoError(t, err)
	assert.Equal(strings.TrimSpace(testkeys.PrivateP256), trimmed(out))
}

func testJWKRoundTrip(t *testing.T, b backend.Backend) {
	assert := assert.New(t)

	for _, pair := range testkeys.Pairs {
		priv := NewKey(t, b, pair.Private, pair.Alg)
		jwk, err := priv.JWK()
		require.NoError(t, err)
		assert.Equal("EC", jwk.KeyType)
		assert.Equal(pair.Curve.String(), jwk.Curve)
		assert.NotEmpty(jwk.D)

		m, err := keymaterial.ParseJWK(jwk.Map())
		require.NoError(t, err)
		again, err := b.NewKey(m, priv.Algorithm())
		require.NoError(t, err)
		out, err := again.PEM()
		require.NoError(t, err)
		assert.Equal(strings.TrimSpace(pair.Private), trimmed(out), pair.Alg)
	}
}

func testPublic(t *testing.T, b backend.Backend) {
	assert := assert.New(t)

	for _, pair := range testkeys.Pairs {
		priv := NewKey(t, b, pair.Private, pair.Alg)
		pub, err := priv.Public()
		require.NoError(t, err)
		assert.True(pub.IsPublic())
		assert.False(priv.IsPublic())

		again, err := pub.Public()
		require.NoError(t, err)
		assert.True(again.IsPublic())
		assert.True(pub.Material().Equal(again.Material()))

		out, err := pub.PEM()
		require.NoError(t, err)
		assert.Equal(strings.TrimSpace(pair.Public), trimmed(out))

		// public JWK derived from the private key equals the JWK of the public fixture
		derived, err := pub.JWK()
		require.NoError(t, err)
		direct, err := NewKey(t, b, pair.Public, pair.Alg).JWK()
		require.NoError(t, err)
		assert.Equal(direct, derived)
		assert.Empty(derived.D)

		privJWK, err := priv.JWK()
		require.NoError(t, err)
		assert.NotEmpty(privJWK.D)

		_, err = pub.Sign([]byte("hello"))
		assert.True(errors.Is(err, jose.ErrSigningNotSupported))
	}
}

func testSignVerify(t *testing.T, b backend.Backend) {
	assert := assert.New(t)
	msg := []byte("test message for signing")

	for _, pair := range testkeys.Pairs {
		priv := NewKey(t, b, pair.Private, pair.Alg)
		pub, err := priv.Public()
		require.NoError(t, err)

		sig, err := priv.Sign(msg)
		require.NoError(t, err)
		assert.Len(sig, priv.Algorithm().SignatureSize())

		assert.True(priv.Verify(msg, sig), pair.Alg)
		assert.True(pub.Verify(msg, sig), pair.Alg)
		assert.False(pub.Verify([]byte("other message"), sig))
		assert.False(pub.Verify(msg, []byte("not a signature")))
		assert.False(pub.Verify(msg, nil))
		assert.False(pub.Verify(msg, make([]byte, len(sig))))

		tampered := append([]byte{}, sig...)
		tampered[len(tampered)-1] ^= 1
		assert.False(pub.Verify(msg, tampered))
	}
}

func testCrossBackend(t *testing.T, b backend.Backend) {
	assert := assert.New(t)
	msg := []byte("signed on one engine, verified on another")

	for _, pair := range testkeys.Pairs {
		sig, err := NewKey(t, b, pair.Private, pair.Alg).Sign(msg)
		require.NoError(t, err)

		for _, other := range backend.All() {
			pub := NewKey(t, other, pair.Public, pair.Alg)
			assert.True(pub.Verify(msg, sig), "%s signature on %s verifier (%s)", b.Name(), other.Name(), pair.Alg)

			otherSig, err := NewKey(t, other, pair.Private, pair.Alg).Sign(msg)
			require.NoError(t, err)
			assert.True(NewKey(t, b, pair.Public, pair.Alg).Verify(msg, otherSig), "%s signature on %s verifier (%s)", other.Name(), b.Name(), pair.Alg)
		}
	}
}

func testLeadingZero(t *testing.T, b backend.Backend) {
	assert := assert.New(t)

	for _, tc := range []struct {
		alg, crv, x, y, d, stripped string
	}{
		{"ES256", "P-256", testkeys.LeadingZeroX, testkeys.LeadingZeroY, testkeys.LeadingZeroD, testkeys.LeadingZeroDStripped},
		{"ES512", "P-521", testkeys.BilboX, testkeys.BilboY, testkeys.BilboD, testkeys.BilboDStripped},
	} {
		m, err := keymaterial.ParseJWK(map[string]any{"kty": "EC", "crv": tc.crv, "x": tc.x, "y": tc.y, "d": tc.stripped})
		require.NoError(t, err)
		a, err := alg.Lookup(tc.alg)
		require.NoError(t, err)
		k, err := b.NewKey(m, a)
		require.NoError(t, err)

		jwk, err := k.JWK()
		require.NoError(t, err)
		assert.Equal(tc.d, jwk.D, tc.alg)

		msg := []byte("leading zero")
		sig, err := k.Sign(msg)
		require.NoError(t, err)
		assert.True(k.Verify(msg, sig))
	}

	k := NewKey(t, b, testkeys.LeadingZeroP256, "ES256")
	jwk, err := k.JWK()
	require.NoError(t, err)
	assert.Equal(testkeys.LeadingZeroD, jwk.D)
}

// An ES512 digest on a P-256 key is only reachable by driving the backend directly. Backends may sign (truncating the digest) or fail, but must do the same thing every time.
func testTooShort(t *testing.T, b backend.Backend) {
	assert := assert.New(t)

	m, err := keymaterial.ParsePEM([]byte(testkeys.TooShortP256))
	require.NoError(t, err)
	k, err := b.NewKey(m, alg.ES512)
	require.NoError(t, err)

	msg := []byte("too short")
	sig1, err1 := k.Sign(msg)
	sig2, err2 := k.Sign(msg)
	if err1 != nil {
		require.Error(t, err2)
		assert.Equal(err1.Error(), err2.Error())
		assert.False(errors.Is(err1, jose.ErrJOSE), "backend failure is not part of the JOSE family")
		return
	}
	require.NoError(t, err2)
	assert.True(k.Verify(msg, sig1))
	assert.True(k.Verify(msg, sig2))
}

func testDerivePoint(t *testing.T, b backend.Backend) {
	assert := assert.New(t)

	for _, pair := range testkeys.Pairs {
		full, err := keymaterial.ParsePEM([]byte(pair.Private))
		require.NoError(t, err)
		scalarOnly, err := keymaterial.New(full.Curve(), nil, nil, full.D())
		require.NoError(t, err)

		a, err := alg.ForCurve(pair.Curve)
		require.NoError(t, err)
		k, err := b.NewKey(scalarOnly, a)
		require.NoError(t, err)
		assert.True(full.Equal(k.Material()), pair.Alg)
	}
}

func testInconsistent(t *testing.T, b backend.Backend) {
	assert := assert.New(t)

	p256, err := keymaterial.ParsePEM([]byte(testkeys.PrivateP256))
	require.NoError(t, err)
	other, err := keymaterial.ParsePEM([]byte(testkeys.LeadingZeroP256))
	require.NoError(t, err)

	mixed, err := keymaterial.New(curve.P256, other.X(), other.Y(), p256.D())
	require.NoError(t, err)
	_, err = b.NewKey(mixed, alg.ES256)
	assert.True(errors.Is(err, jose.ErrMalformedKey), "%v", err)

	// (1, 1) is not on P-256
	offCurve, err := keymaterial.New(curve.P256, []byte{1}, []byte{1}, nil)
	require.NoError(t, err)
	_, err = b.NewKey(offCurve, alg.ES256)
	assert.True(errors.Is(err, jose.ErrMalformedKey), "%v", err)
}

func testNative(t *testing.T, b backend.Backend) {
	assert := assert.New(t)

	for _, pair := range testkeys.Pairs {
		for _, text := range []string{pair.Private, pair.Public} {
			k := NewKey(t, b, text, pair.Alg)
			m, err := b.ParseNative(k.Native())
			require.NoError(t, err)
			assert.True(k.Material().Equal(m))
		}
	}

	for _, foreign := range []any{"secret", 42, struct{}{}, nil} {
		_, err := b.ParseNative(foreign)
		assert.True(errors.Is(err, jose.ErrInvalidKeyMaterial), "%T", foreign)
	}
}

func testGenerate(t *testing.T, b backend.Backend) {
	assert := assert.New(t)

	for _, a := range alg.All() {
		k, err := b.GenerateKey(a)
		require.NoError(t, err)
		assert.False(k.IsPublic())
		assert.Equal(a.Curve, k.Material().Curve())
		assert.Equal(a, k.Algorithm())

		msg := []byte("fresh key")
		sig, err := k.Sign(msg)
		require.NoError(t, err)
		pub, err := k.Public()
		require.NoError(t, err)
		assert.True(pub.Verify(msg, sig))
	}
}
