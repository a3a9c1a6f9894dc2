package alg

import (
	"crypto"
	"errors"
	"testing"

	"github.com/bluesky-social/jose"
	"github.com/bluesky-social/jose/curve"

	"github.com/stretchr/testify/assert"
)

func TestTable(t *testing.T) {
	assert := assert.New(t)

	expect := []struct {
		name    string
		hash    crypto.Hash
		crv     curve.Curve
		sigSize int
	}{
		{"ES256", crypto.SHA256, curve.P256, 64},
		{"ES384", crypto.SHA384, curve.P384, 96},
		{"ES512", crypto.SHA512, curve.P521, 132},
	}

	for _, e := range expect {
		a, err := Lookup(e.name)
		assert.NoError(err)
		assert.Equal(e.hash, a.Hash)
		assert.Equal(e.crv, a.Curve)
		assert.Equal(e.sigSize, a.SignatureSize())
		assert.Equal(e.hash.Size(), a.DigestSize())

		crv, err := CurveFor(e.name)
		assert.NoError(err)
		assert.Equal(e.crv, crv)

		back, err := ForCurve(e.crv)
		assert.NoError(err)
		assert.Equal(a, back)
	}
	assert.Len(All(), 3)
}

func TestUnsupported(t *testing.T) {
	assert := assert.New(t)

	for _, name := range []string{"nonexistent", "", "es256", "ES256K", "RS256", "HS256"} {
		_, err := Lookup(name)
		assert.True(errors.Is(err, jose.ErrUnsupportedAlgorithm), name)
		assert.True(errors.Is(err, jose.ErrJOSE), name)

		_, err = CurveFor(name)
		assert.True(errors.Is(err, jose.ErrUnsupportedAlgorithm), name)
	}

	_, err := ForCurve(curve.Unknown)
	assert.True(errors.Is(err, jose.ErrUnsupportedAlgorithm))
}
