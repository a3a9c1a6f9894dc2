package keymaterial

import (
	"encoding/base64"
	"encoding/pem"
	"errors"
	"testing"

	"github.com/bluesky-social/jose"
	"github.com/bluesky-social/jose/curve"
	"github.com/bluesky-social/jose/internal/testkeys"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

const testPrivateP256 = testkeys.PrivateP256

func parseString(s string) (*KeyMaterial, error) {
	return ParsePEM([]byte(s))
}

// sec1WithoutPoint encodes an ECPrivateKey which omits the optional public key field.
func sec1WithoutPoint(t *testing.T, m *KeyMaterial) []byte {
	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1Int64(1)
		b.AddASN1OctetString(m.D())
		b.AddASN1(tagParameters, func(b *cryptobyte.Builder) {
			b.AddASN1ObjectIdentifier(m.Curve().OID())
		})
	})
	der, err := b.Bytes()
	require.NoError(t, err)
	return der
}

func b64(s string) []byte {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

func TestParsePEMFixtures(t *testing.T) {
	assert := assert.New(t)

	for _, pair := range testkeys.Pairs {
		priv, err := parseString(pair.Private)
		require.NoError(t, err)
		assert.Equal(pair.Curve, priv.Curve())
		assert.True(priv.IsPrivate())
		assert.True(priv.HasPoint())

		pub, err := parseString(pair.Public)
		require.NoError(t, err)
		assert.Equal(pair.Curve, pub.Curve())
		assert.False(pub.IsPrivate())
		assert.Equal(priv.PointBytes(), pub.PointBytes())

		// the shared writers reproduce the openssl output byte for byte
		out, err := MarshalPEM(priv)
		assert.NoError(err)
		assert.Equal(pair.Private, string(out))

		out, err = MarshalPEM(pub)
		assert.NoError(err)
		assert.Equal(pair.Public, string(out))
	}
}

func TestParsePEMComponents(t *testing.T) {
	assert := assert.New(t)

	m, err := parseString(testkeys.PrivateP256)
	require.NoError(t, err)
	assert.Equal(b64(testkeys.P256X), m.X())
	assert.Equal(b64(testkeys.P256Y), m.Y())
	assert.Equal(b64(testkeys.P256D), m.D())
}

func TestParsePKCS8(t *testing.T) {
	assert := assert.New(t)

	sec1, err := parseString(testkeys.PrivateP256)
	require.NoError(t, err)
	pkcs8, err := parseString(testkeys.PrivateP256PKCS8)
	require.NoError(t, err)
	assert.True(sec1.Equal(pkcs8))
}

func TestParsePEMWithECParameters(t *testing.T) {
	params := "-----BEGIN EC PARAMETERS-----\nBggqhkjOPQMBBw==\n-----END EC PARAMETERS-----\n"
	m, err := parseString(params + testkeys.PrivateP256)
	assert.NoError(t, err)
	assert.Equal(t, curve.P256, m.Curve())
}

func TestParseSEC1WithoutPublicKey(t *testing.T) {
	assert := assert.New(t)

	full, err := parseString(testkeys.PrivateP384)
	require.NoError(t, err)

	m, err := ParsePEM(EncodePEM(BlockECPrivateKey, sec1WithoutPoint(t, full)))
	assert.NoError(err)
	assert.False(m.HasPoint())
	assert.Equal(full.D(), m.D())
	assert.Equal(curve.P384, m.Curve())
}

func TestParsePEMErrors(t *testing.T) {
	assert := assert.New(t)

	_, err := parseString("secret")
	assert.True(errors.Is(err, jose.ErrInvalidKeyMaterial))

	_, err = parseString("")
	assert.True(errors.Is(err, jose.ErrInvalidKeyMaterial))

	cert := string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{0x30, 0x00}}))
	_, err = parseString(cert)
	assert.True(errors.Is(err, jose.ErrMalformedKey))

	garbage := string(EncodePEM(BlockECPrivateKey, []byte("not der at all")))
	_, err = parseString(garbage)
	assert.True(errors.Is(err, jose.ErrMalformedKey))

	pub, err := parseString(testkeys.PublicP256)
	require.NoError(t, err)
	der, err := MarshalSPKI(pub)
	require.NoError(t, err)
	_, err = ParsePEM(EncodePEM(BlockPublicKey, der[:len(der)-5]))
	assert.True(errors.Is(err, jose.ErrMalformedKey))

	// secp256k1 OID 1.3.132.0.10
	k1 := string(EncodePEM(BlockPublicKey, []byte{
		0x30, 0x14, 0x30, 0x10,
		0x06, 0x07, 0x2a, 0x86, 0x48, 0xce, 0x3d, 0x02, 0x01,
		0x06, 0x05, 0x2b, 0x81, 0x04, 0x00, 0x0a,
		0x03, 0x00,
	}))
	_, err = parseString(k1)
	assert.True(errors.Is(err, jose.ErrMalformedKey))
	assert.True(errors.Is(err, jose.ErrJOSE))

	onlyParams := "-----BEGIN EC PARAMETERS-----\nBggqhkjOPQMBBw==\n-----END EC PARAMETERS-----\n"
	_, err = parseString(onlyParams)
	assert.True(errors.Is(err, jose.ErrMalformedKey))
}

func TestParsePEMTrailingFields(t *testing.T) {
	assert := assert.New(t)

	m, err := parseString(testkeys.PrivateP256)
	require.NoError(t, err)

	sec1 := func(extraParams, extraPub bool) []byte {
		b := cryptobyte.NewBuilder(nil)
		b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1Int64(1)
			b.AddASN1OctetString(m.D())
			b.AddASN1(tagParameters, func(b *cryptobyte.Builder) {
				b.AddASN1ObjectIdentifier(m.Curve().OID())
				if extraParams {
					b.AddASN1NULL()
				}
			})
			b.AddASN1(tagPublicKey, func(b *cryptobyte.Builder) {
				b.AddASN1BitString(m.PointBytes())
				if extraPub {
					b.AddASN1NULL()
				}
			})
		})
		der, err := b.Bytes()
		require.NoError(t, err)
		return der
	}

	_, err = ParsePEM(EncodePEM(BlockECPrivateKey, sec1(false, false)))
	assert.NoError(err)
	_, err = ParsePEM(EncodePEM(BlockECPrivateKey, sec1(true, false)))
	assert.True(errors.Is(err, jose.ErrMalformedKey))
	_, err = ParsePEM(EncodePEM(BlockECPrivateKey, sec1(false, true)))
	assert.True(errors.Is(err, jose.ErrMalformedKey))

	spki := func(extra bool) []byte {
		b := cryptobyte.NewBuilder(nil)
		b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
				b.AddASN1ObjectIdentifier(oidPublicKeyECDSA)
				b.AddASN1ObjectIdentifier(m.Curve().OID())
				if extra {
					b.AddASN1NULL()
				}
			})
			b.AddASN1BitString(m.PointBytes())
		})
		der, err := b.Bytes()
		require.NoError(t, err)
		return der
	}

	_, err = ParsePEM(EncodePEM(BlockPublicKey, spki(false)))
	assert.NoError(err)
	_, err = ParsePEM(EncodePEM(BlockPublicKey, spki(true)))
	assert.True(errors.Is(err, jose.ErrMalformedKey))
}

func TestLooksLikePEM(t *testing.T) {
	assert.True(t, LooksLikePEM([]byte(testkeys.PublicP521)))
	assert.False(t, LooksLikePEM([]byte("secret")))
}
