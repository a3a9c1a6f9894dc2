package eckey

import (
	"crypto"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"filippo.io/nistec"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multicodec"
	"github.com/multiformats/go-varint"

	"github.com/bluesky-social/jose"
	"github.com/bluesky-social/jose/alg"
	"github.com/bluesky-social/jose/curve"
	"github.com/bluesky-social/jose/keymaterial"
)

var multicodecs = map[curve.Curve]multicodec.Code{
	curve.P256: multicodec.P256Pub,
	curve.P384: multicodec.P384Pub,
	curve.P521: multicodec.P521Pub,
}

// converts between compressed and uncompressed SEC1 points, checking that the point is on the curve
func recode(crv curve.Curve, point []byte, compressed bool) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch crv {
	case curve.P256:
		var p *nistec.P256Point
		if p, err = nistec.NewP256Point().SetBytes(point); err == nil {
			out = pick(compressed, p.BytesCompressed, p.Bytes)
		}
	case curve.P384:
		var p *nistec.P384Point
		if p, err = nistec.NewP384Point().SetBytes(point); err == nil {
			out = pick(compressed, p.BytesCompressed, p.Bytes)
		}
	case curve.P521:
		var p *nistec.P521Point
		if p, err = nistec.NewP521Point().SetBytes(point); err == nil {
			out = pick(compressed, p.BytesCompressed, p.Bytes)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported curve %s", jose.ErrMalformedKey, crv)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s point: %w", jose.ErrMalformedKey, crv, err)
	}
	return out, nil
}

func pick(compressed bool, c, u func() []byte) []byte {
	if compressed {
		return c()
	}
	return u()
}

// Multibase (base58btc) string encoding of the public key, including a multicodec indicator and compressed curve bytes serialization.
func (k *ECKey) Multibase() (string, error) {
	m := k.key.Material()
	point, err := recode(m.Curve(), m.PointBytes(), true)
	if err != nil {
		return "", err
	}
	kbytes := varint.ToUvarint(uint64(multicodecs[m.Curve()]))
	kbytes = append(kbytes, point...)
	return multibase.Encode(multibase.Base58BTC, kbytes)
}

// did:key string encoding of the public key:
//
//   - compressed binary representation of the point
//   - prefix with the curve's multicodec varint
//   - encode bytes with base58btc, with "z" multibase prefix
//   - add "did:key:" prefix
func (k *ECKey) DIDKey() (string, error) {
	mb, err := k.Multibase()
	if err != nil {
		return "", err
	}
	return "did:key:" + mb, nil
}

// ParseDIDKey loads a public key from a did:key string on the default backend. The algorithm is the one matching the key's curve.
func ParseDIDKey(didKey string) (*ECKey, error) {
	mb, ok := strings.CutPrefix(didKey, "did:key:")
	if !ok {
		return nil, fmt.Errorf("%w: not a did:key: %q", jose.ErrInvalidKeyMaterial, didKey)
	}
	return ParseMultibase(mb)
}

func ParseMultibase(encoded string) (*ECKey, error) {
	enc, data, err := multibase.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid multibase: %w", jose.ErrMalformedKey, err)
	}
	if enc != multibase.Base58BTC {
		return nil, fmt.Errorf("%w: expected base58btc multibase", jose.ErrMalformedKey)
	}
	code, n, err := varint.FromUvarint(data)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid multicodec prefix: %w", jose.ErrMalformedKey, err)
	}
	crv := curve.Unknown
	for c, mc := range multicodecs {
		if uint64(mc) == code {
			crv = c
		}
	}
	if crv == curve.Unknown {
		return nil, fmt.Errorf("%w: unsupported multicodec %s", jose.ErrMalformedKey, multicodec.Code(code))
	}

	point, err := recode(crv, data[n:], false)
	if err != nil {
		return nil, err
	}
	x, y, err := keymaterial.SplitPoint(crv, point)
	if err != nil {
		return nil, err
	}
	m, err := keymaterial.New(crv, x, y, nil)
	if err != nil {
		return nil, err
	}
	a, err := alg.ForCurve(crv)
	if err != nil {
		return nil, err
	}
	return New(m, a.Name)
}

// Thumbprint is the RFC 7638 SHA-256 thumbprint of the public key, base64url encoded. It is suitable as a "kid".
func (k *ECKey) Thumbprint() (string, error) {
	pub, err := k.key.Material().Public()
	if err != nil {
		return "", err
	}
	j, err := keymaterial.FromMaterial(pub)
	if err != nil {
		return "", err
	}
	buf, err := json.Marshal(j)
	if err != nil {
		return "", err
	}
	key, err := jwk.ParseKey(buf)
	if err != nil {
		return "", fmt.Errorf("thumbprint: %w", err)
	}
	tp, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("thumbprint: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(tp), nil
}
