// EC backend on the lestrrat-go/jwx JWK and JWS engine.
//
// Key material is loaded through jwk.ParseKey and checked with the key's Validate method, so coordinates must already be fixed-length. Signing goes through jws signers, which hash, sign, and pad r and s themselves.
package jwxkey

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"

	"github.com/bluesky-social/jose"
	"github.com/bluesky-social/jose/alg"
	"github.com/bluesky-social/jose/backend"
	"github.com/bluesky-social/jose/curve"
	"github.com/bluesky-social/jose/keymaterial"
)

const Name = "jwx"

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

// complete checks the point of m against its scalar, or derives it. jwx itself has no scalar multiplication API.
func complete(m *keymaterial.KeyMaterial) (*keymaterial.KeyMaterial, error) {
	var ec ecdh.Curve
	switch m.Curve() {
	case curve.P256:
		ec = ecdh.P256()
	case curve.P384:
		ec = ecdh.P384()
	case curve.P521:
		ec = ecdh.P521()
	default:
		return nil, fmt.Errorf("%w: unsupported curve %s", jose.ErrMalformedKey, m.Curve())
	}

	if !m.IsPrivate() {
		if _, err := ec.NewPublicKey(m.PointBytes()); err != nil {
			return nil, fmt.Errorf("%w: invalid %s public point: %w", jose.ErrMalformedKey, m.Curve(), err)
		}
		return m, nil
	}
	priv, err := ec.NewPrivateKey(m.D())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", jose.ErrMalformedKey, err)
	}
	return m.WithPoint(priv.PublicKey().Bytes())
}

func newKey(m *keymaterial.KeyMaterial, a alg.Algorithm) (*Key, error) {
	m, err := complete(m)
	if err != nil {
		return nil, err
	}
	key, err := load(m, a)
	if err != nil {
		return nil, err
	}

	pub, err := key.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("jwx: deriving public key: %w", err)
	}

	k := &Key{alg: a, material: m, pub: pub}
	if m.IsPrivate() {
		k.priv = key
	}
	return k, nil
}

// load builds a validated jwk.Key for m with the algorithm bound to it. Every call returns a new object.
func load(m *keymaterial.KeyMaterial, a alg.Algorithm) (jwk.Key, error) {
	j, err := keymaterial.FromMaterial(m)
	if err != nil {
		return nil, err
	}
	buf, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("jwx: encoding JWK: %w", err)
	}
	key, err := jwk.ParseKey(buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", jose.ErrMalformedKey, err)
	}
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", jose.ErrMalformedKey, err)
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.SignatureAlgorithm(a.Name)); err != nil {
		return nil, fmt.Errorf("jwx: setting algorithm: %w", err)
	}
	return key, nil
}

// ParseNative accepts EC jwk.Key values.
func (Backend) ParseNative(handle any) (*keymaterial.KeyMaterial, error) {
	switch key := handle.(type) {
	case jwk.ECDSAPrivateKey:
		crv, err := curve.ByName(key.Crv().String())
		if err != nil {
			return nil, err
		}
		return keymaterial.New(crv, key.X(), key.Y(), key.D())
	case jwk.ECDSAPublicKey:
		crv, err := curve.ByName(key.Crv().String())
		if err != nil {
			return nil, err
		}
		return keymaterial.New(crv, key.X(), key.Y(), nil)
	}
	return nil, backend.ForeignHandle(Name, handle)
}

func (b Backend) GenerateKey(a alg.Algorithm) (backend.Key, error) {
	crv, ok := jwk.CurveForAlgorithm(jwa.EllipticCurveAlgorithm(a.Curve.String()))
	if !ok {
		return nil, fmt.Errorf("%w: unsupported curve %s", jose.ErrMalformedKey, a.Curve)
	}
	raw, err := ecdsa.GenerateKey(crv, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("jwx: generating key: %w", err)
	}
	key, err := jwk.FromRaw(raw)
	if err != nil {
		return nil, fmt.Errorf("jwx: importing generated key: %w", err)
	}
	m, err := b.ParseNative(key)
	if err != nil {
		return nil, err
	}
	return newKey(m, a)
}

type Key struct {
	alg      alg.Algorithm
	material *keymaterial.KeyMaterial
	pub      jwk.Key
	priv     jwk.Key
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
	return &Key{alg: k.alg, material: pub, pub: k.pub}, nil
}

// PEM writes SEC1 for private keys. jwk.Pem only emits PKCS#8 for private keys, so it is used for the public side only.
func (k *Key) PEM() ([]byte, error) {
	if k.priv == nil {
		return jwk.Pem(k.pub)
	}
	var raw ecdsa.PrivateKey
	if err := k.priv.Raw(&raw); err != nil {
		return nil, fmt.Errorf("jwx: exporting private key: %w", err)
	}
	der, err := x509.MarshalECPrivateKey(&raw)
	if err != nil {
		return nil, fmt.Errorf("jwx: encoding private key: %w", err)
	}
	return keymaterial.EncodePEM(keymaterial.BlockECPrivateKey, der), nil
}

func (k *Key) JWK() (*keymaterial.JWK, error) {
	src := k.pub
	if k.priv != nil {
		src = k.priv
	}
	buf, err := json.Marshal(src)
	if err != nil {
		return nil, fmt.Errorf("jwx: encoding JWK: %w", err)
	}
	var out keymaterial.JWK
	if err := json.Unmarshal(buf, &out); err != nil {
		return nil, fmt.Errorf("jwx: decoding JWK: %w", err)
	}
	// the algorithm is bound to the key object, not part of the exported material
	out.Algorithm = ""
	return &out, nil
}

func (k *Key) Sign(msg []byte) ([]byte, error) {
	if k.priv == nil {
		return nil, jose.ErrSigningNotSupported
	}
	signer, err := jws.NewSigner(jwa.SignatureAlgorithm(k.alg.Name))
	if err != nil {
		return nil, fmt.Errorf("jwx: %w", err)
	}
	return signer.Sign(msg, k.priv)
}

func (k *Key) Verify(msg, sig []byte) bool {
	verifier, err := jws.NewVerifier(jwa.SignatureAlgorithm(k.alg.Name))
	if err != nil {
		return false
	}
	return verifier.Verify(msg, sig, k.pub) == nil
}

// Native returns a new jwk.Key loaded from the key material: private when the key is private. Changing the returned key does not change k.
func (k *Key) Native() any {
	key, err := load(k.material, k.alg)
	if err != nil {
		// material was validated by newKey
		return nil
	}
	return key
}
