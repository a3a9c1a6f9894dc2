// Pure-Go EC backend built on filippo.io/nistec point arithmetic.
//
// Signatures are deterministic (RFC 6979), so signing the same message twice with the same key yields identical bytes. Digests wider than the curve order are rejected with [ErrDigestTooLong] rather than truncated.
package portable

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/bluesky-social/jose"
	"github.com/bluesky-social/jose/alg"
	"github.com/bluesky-social/jose/backend"
	"github.com/bluesky-social/jose/curve"
	"github.com/bluesky-social/jose/keymaterial"
)

const Name = "portable"

func init() {
	backend.Register(Backend{})
}

type Backend struct{}

var _ backend.Backend = Backend{}

func (Backend) Name() string {
	return Name
}

func (Backend) NewKey(m *keymaterial.KeyMaterial, a alg.Algorithm) (backend.Key, error) {
	return newKey(m, a)
}

func newKey(m *keymaterial.KeyMaterial, a alg.Algorithm) (*Key, error) {
	grp, ok := groups[m.Curve()]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported curve %s", jose.ErrMalformedKey, m.Curve())
	}

	if m.IsPrivate() {
		point, err := grp.scalarBaseMult(m.D())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", jose.ErrMalformedKey, err)
		}
		if m, err = m.WithPoint(point); err != nil {
			return nil, err
		}
	} else if err := grp.checkPoint(m.PointBytes()); err != nil {
		return nil, fmt.Errorf("%w: invalid %s public point: %w", jose.ErrMalformedKey, m.Curve(), err)
	}

	return &Key{alg: a, material: m}, nil
}

// ParseNative accepts a *Key from this package.
func (Backend) ParseNative(handle any) (*keymaterial.KeyMaterial, error) {
	k, ok := handle.(*Key)
	if !ok || k == nil {
		return nil, backend.ForeignHandle(Name, handle)
	}
	return k.Material(), nil
}

func (Backend) GenerateKey(a alg.Algorithm) (backend.Key, error) {
	d, err := randomScalar(a.Curve)
	if err != nil {
		return nil, err
	}
	m, err := keymaterial.New(a.Curve, nil, nil, d)
	if err != nil {
		return nil, err
	}
	return newKey(m, a)
}

// randomScalar samples uniformly from [1, n-1] by rejection.
func randomScalar(crv curve.Curve) ([]byte, error) {
	order := crv.Order()
	buf := make([]byte, crv.CoordinateLength())
	for {
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("portable: reading randomness: %w", err)
		}
		// mask excess high bits, so P-521 does not reject most candidates
		if excess := len(buf)*8 - crv.BitSize(); excess > 0 {
			buf[0] &= 0xff >> excess
		}
		d := new(big.Int).SetBytes(buf)
		if d.Sign() > 0 && d.Cmp(order) < 0 {
			return buf, nil
		}
	}
}

// Key is the portable backend's key handle. It is also the native handle type accepted by [Backend.ParseNative].
type Key struct {
	alg      alg.Algorithm
	material *keymaterial.KeyMaterial
}

var _ backend.Key = (*Key)(nil)

func (k *Key) Algorithm() alg.Algorithm {
	return k.alg
}

func (k *Key) Material() *keymaterial.KeyMaterial {
	return k.material
}

func (k *Key) IsPublic() bool {
	return !k.material.IsPrivate()
}

func (k *Key) Public() (backend.Key, error) {
	if k.IsPublic() {
		return k, nil
	}
	pub, err := k.material.Public()
	if err != nil {
		return nil, err
	}
	return &Key{alg: k.alg, material: pub}, nil
}

func (k *Key) PEM() ([]byte, error) {
	return keymaterial.MarshalPEM(k.material)
}

func (k *Key) JWK() (*keymaterial.JWK, error) {
	return keymaterial.FromMaterial(k.material)
}

func (k *Key) Sign(msg []byte) ([]byte, error) {
	if k.IsPublic() {
		return nil, jose.ErrSigningNotSupported
	}
	h, err := digest(k.alg.Hash, msg)
	if err != nil {
		return nil, err
	}
	return newSigner(k.material.Curve()).sign(k.alg.Hash, k.material.D(), h)
}

func (k *Key) Verify(msg, sig []byte) bool {
	h, err := digest(k.alg.Hash, msg)
	if err != nil {
		return false
	}
	return newSigner(k.material.Curve()).verify(k.material.PointBytes(), h, sig)
}

func (k *Key) Native() any {
	return k
}
