package portable

import (
	"crypto"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/bluesky-social/jose/curve"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unhex(t *testing.T, s string) []byte {
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// RFC 6979 appendix A.2.5, P-256 with SHA-256, message "sample".
func TestRFC6979Vector(t *testing.T) {
	assert := assert.New(t)

	d := unhex(t, "c9afa9d845ba75166b5c215767b1d6934e50c3db36e89b127b8a622b120f6721")
	ux := "60fed4ba255a9d31c961eb74c6356d68c049b8923b61fa6ce669622e60f29fb6"
	uy := "7903fe1008b8bc99a41ae9e95628bc64f2f1b20c2d7e9f5177a3c294d4462299"

	sg := newSigner(curve.P256)
	point, err := sg.grp.scalarBaseMult(d)
	require.NoError(t, err)
	assert.Equal("04"+ux+uy, hex.EncodeToString(point))

	h := sha256.Sum256([]byte("sample"))
	newHash, err := hashFunc(crypto.SHA256)
	require.NoError(t, err)
	e := new(big.Int).SetBytes(h[:])
	nonces := newNonceSource(newHash, d, sg.int2octets(e.Mod(e, sg.order)))
	k := sg.bits2int(nonces.next(256))
	assert.Equal("a6e3c57dd01abe90086538398355dd4c3b17aa873382b0f24d6129493d8aad60", hex.EncodeToString(sg.int2octets(k)))

	sig, err := sg.sign(crypto.SHA256, d, h[:])
	require.NoError(t, err)
	assert.Equal(
		"efd48b2aacb6a8fd1140dd9cd45e81d69d2c877b56aaf991c34d0ea84eaf3716"+
			"f7cb1c942d657c41d436c7a1b6e29f65f3e900dbb9aff4064dc4ab2f843acda8",
		hex.EncodeToString(sig))

	assert.True(sg.verify(point, h[:], sig))
}

func TestVerifyRejectsOutOfRange(t *testing.T) {
	assert := assert.New(t)

	sg := newSigner(curve.P256)
	d := make([]byte, 32)
	d[31] = 7
	point, err := sg.grp.scalarBaseMult(d)
	require.NoError(t, err)
	h := sha256.Sum256([]byte("msg"))

	order := sg.int2octets(sg.order)
	one := sg.int2octets(big.NewInt(1))
	assert.False(sg.verify(point, h[:], append(order, one...)))
	assert.False(sg.verify(point, h[:], append(one, order...)))
	assert.False(sg.verify(point, h[:], make([]byte, 64)))
	assert.False(sg.verify(point, h[:], one))
}

func TestCheckPoint(t *testing.T) {
	assert := assert.New(t)

	for _, crv := range curve.All() {
		grp := groups[crv]
		size := crv.CoordinateLength()
		d := make([]byte, size)
		d[size-1] = 2
		point, err := grp.scalarBaseMult(d)
		require.NoError(t, err)
		assert.NoError(grp.checkPoint(point), crv.String())

		bad := append([]byte{}, point...)
		bad[len(bad)-1] ^= 1
		assert.Error(grp.checkPoint(bad))
		assert.Error(grp.checkPoint([]byte{0}))
	}
}
