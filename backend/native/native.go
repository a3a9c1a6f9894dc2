// EC backend on Go's native crypto packages: crypto/ecdsa for signatures, crypto/ecdh for point validation and derivation, crypto/x509 for DER.
//
// Digests wider than the curve order are truncated per FIPS 186, so an ES512 digest on a P-256 key signs successfully.
package native

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"crypto/x509"
	"fmt"
	"math/big"

	"github.com/bluesky-social/jose"
	"github.com/bluesky-social/jose/alg"
	"github.com/bluesky-social/jose/backend"
	"github.com/bluesky-social/jose/curve"
	"github.com/bluesky-social/jose/keymaterial"
)

const Name = "native"

func init() {
	backend.Register(Backend{})
}

type Backend struct{}

var _ backend.Backend = Backend{}

func (Backend) Name() string {
	return Name
}

func ecdhCurve(c curve.Curve) (ecdh.Curve, error) {
	switch c {
	case curve.P256:
		return ecdh.P256(), nil
	case curve.P384:
		return ecdh.P384(), nil
	case curve.P521:
		return ecdh.P521(), nil
	}
	return nil, fmt.Errorf("%w: unsupported curve %s", jose.ErrMalformedKey, c)
}

func ellipticCurve(c curve.Curve) elliptic.Curve {
	switch c {
	case curve.P256:
		return elliptic.P256()
	case curve.P384:
		return elliptic.P384()
	case curve.P521:
		return elliptic.P521()
	}
	return nil
}

func curveOf(c elliptic.Curve) (curve.Curve, error) {
	if c == nil {
		return curve.Unknown, fmt.Errorf("%w: key has no curve", jose.ErrMalformedKey)
	}
	return curve.ByName(c.Params().Name)
}

func (Backend) NewKey(m *keymaterial.KeyMaterial, a alg.Algorithm) (backend.Key, error) {
	return newKey(m, a)
}

func newKey(m *keymaterial.KeyMaterial, a alg.Algorithm) (*Key, error) {
	ec, err := ecdhCurve(m.Curve())
	if err != nil {
		return nil, err
	}

	if m.IsPrivate() {
		priv, err := ec.NewPrivateKey(m.D())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", jose.ErrMalformedKey, err)
		}
		if m, err = m.WithPoint(priv.PublicKey().Bytes()); err != nil {
			return nil, err
		}
	} else if _, err := ec.NewPublicKey(m.PointBytes()); err != nil {
		return nil, fmt.Errorf("%w: invalid %s public point: %w", jose.ErrMalformedKey, m.Curve(), err)
	}

	k := &Key{alg: a, material: m, pub: ecdsaPublic(m)}
	if m.IsPrivate() {
		k.priv = ecdsaPrivate(m)
	}
	return k, nil
}

// ecdsaPublic and ecdsaPrivate build fresh handles that share no big.Int with any other handle.
func ecdsaPublic(m *keymaterial.KeyMaterial) *ecdsa.PublicKey {
	return &ecdsa.PublicKey{
		Curve: ellipticCurve(m.Curve()),
		X:     new(big.Int).SetBytes(m.X()),
		Y:     new(big.Int).SetBytes(m.Y()),
	}
}

func ecdsaPrivate(m *keymaterial.KeyMaterial) *ecdsa.PrivateKey {
	return &ecdsa.PrivateKey{PublicKey: *ecdsaPublic(m), D: new(big.Int).SetBytes(m.D())}
}

// ParseNative accepts crypto/ecdsa and crypto/ecdh keys, as pointers or values.
func (Backend) ParseNative(handle any) (*keymaterial.KeyMaterial, error) {
	switch h := handle.(type) {
	case *ecdsa.PrivateKey:
		if h == nil {
			break
		}
		return fromECDSA(&h.PublicKey, h.D)
	case ecdsa.PrivateKey:
		return fromECDSA(&h.PublicKey, h.D)
	case *ecdsa.PublicKey:
		if h == nil {
			break
		}
		return fromECDSA(h, nil)
	case ecdsa.PublicKey:
		return fromECDSA(&h, nil)
	case *ecdh.PrivateKey:
		if h == nil {
			break
		}
		return fromECDH(h.Curve(), h.PublicKey().Bytes(), h.Bytes())
	case *ecdh.PublicKey:
		if h == nil {
			break
		}
		return fromECDH(h.Curve(), h.Bytes(), nil)
	}
	return nil, backend.ForeignHandle(Name, handle)
}

func fromECDSA(pub *ecdsa.PublicKey, d *big.Int) (*keymaterial.KeyMaterial, error) {
	crv, err := curveOf(pub.Curve)
	if err != nil {
		return nil, err
	}
	if pub.X == nil || pub.Y == nil {
		return nil, fmt.Errorf("%w: ecdsa key has no public point", jose.ErrMalformedKey)
	}
	var db []byte
	if d != nil {
		db = d.Bytes()
	}
	return keymaterial.New(crv, pub.X.Bytes(), pub.Y.Bytes(), db)
}

func fromECDH(ec ecdh.Curve, point, d []byte) (*keymaterial.KeyMaterial, error) {
	var crv curve.Curve
	switch ec {
	case ecdh.P256():
		crv = curve.P256
	case ecdh.P384():
		crv = curve.P384
	case ecdh.P521():
		crv = curve.P521
	default:
		return nil, fmt.Errorf("%w: unsupported ecdh curve %s", jose.ErrMalformedKey, ec)
	}
	x, y, err := keymaterial.SplitPoint(crv, point)
	if err != nil {
		return nil, err
	}
	return keymaterial.New(crv, x, y, d)
}

func (Backend) GenerateKey(a alg.Algorithm) (backend.Key, error) {
	crv := ellipticCurve(a.Curve)
	if crv == nil {
		return nil, fmt.Errorf("%w: unsupported curve %s", jose.ErrMalformedKey, a.Curve)
	}
	priv, err := ecdsa.GenerateKey(crv, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("native: generating key: %w", err)
	}
	m, err := fromECDSA(&priv.PublicKey, priv.D)
	if err != nil {
		return nil, err
	}
	return newKey(m, a)
}

type Key struct {
	alg      alg.Algorithm
	material *keymaterial.KeyMaterial
	pub      *ecdsa.PublicKey
	priv     *ecdsa.PrivateKey
}

var _ backend.Key = (*Key)(nil)

func (k *Key) Algorithm() alg.Algorithm {
	return k.alg
}

func (k *Key) Material() *keymaterial.KeyMaterial {
	return k.material
}

func (k *Key) IsPublic() bool {
	return k.priv == nil
}

func (k *Key) Public() (backend.Key, error) {
	if k.IsPublic() {
		return k, nil
	}
	pub, err := k.material.Public()
	if err != nil {
		return nil, err
	}
	return &Key{alg: k.alg, material: pub, pub: ecdsaPublic(pub)}, nil
}

func (k *Key) PEM() ([]byte, error) {
	if k.priv != nil {
		der, err := x509.MarshalECPrivateKey(k.priv)
		if err != nil {
			return nil, fmt.Errorf("native: encoding private key: %w", err)
		}
		return keymaterial.EncodePEM(keymaterial.BlockECPrivateKey, der), nil
	}
	der, err := x509.MarshalPKIXPublicKey(k.pub)
	if err != nil {
		return nil, fmt.Errorf("native: encoding public key: %w", err)
	}
	return keymaterial.EncodePEM(keymaterial.BlockPublicKey, der), nil
}

func (k *Key) JWK() (*keymaterial.JWK, error) {
	return keymaterial.FromMaterial(k.material)
}

func (k *Key) Sign(msg []byte) ([]byte, error) {
	if k.priv == nil {
		return nil, jose.ErrSigningNotSupported
	}
	hasher := k.alg.Hash.New()
	hasher.Write(msg)
	r, s, err := ecdsa.Sign(rand.Reader, k.priv, hasher.Sum(nil))
	if err != nil {
		return nil, fmt.Errorf("native: signing: %w", err)
	}
	size := k.material.Curve().CoordinateLength()
	sig := make([]byte, 2*size)
	r.FillBytes(sig[:size])
	s.FillBytes(sig[size:])
	return sig, nil
}

func (k *Key) Verify(msg, sig []byte) bool {
	size := k.material.Curve().CoordinateLength()
	if len(sig) != 2*size {
		return false
	}
	hasher := k.alg.Hash.New()
	hasher.Write(msg)
	r := new(big.Int).SetBytes(sig[:size])
	s := new(big.Int).SetBytes(sig[size:])
	return ecdsa.Verify(k.pub, hasher.Sum(nil), r, s)
}

// Native returns a new *ecdsa.PrivateKey for private keys and a new *ecdsa.PublicKey for public keys. Changing the returned handle does not change k.
func (k *Key) Native() any {
	if k.priv != nil {
		return ecdsaPrivate(k.material)
	}
	return ecdsaPublic(k.material)
}
