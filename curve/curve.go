// Catalog of the elliptic curves usable with JOSE "EC" keys.
package curve

import (
	"encoding/asn1"
	"fmt"
	"math/big"

	"github.com/bluesky-social/jose"
)

// Curve identifies a supported NIST curve. The zero value is not a valid curve.
type Curve uint8

const (
	Unknown Curve = iota
	P256
	P384
	P521
)

type params struct {
	name    string
	bitSize int
	order   *big.Int
	oid     asn1.ObjectIdentifier
}

var catalog = map[Curve]params{
	P256: {
		name:    "P-256",
		bitSize: 256,
		order:   mustHex("ffffffff00000000ffffffffffffffffbce6faada7179e84f3b9cac2fc632551"),
		oid:     asn1.ObjectIdentifier{1, 2, 840, 10045, 3, 1, 7},
	},
	P384: {
		name:    "P-384",
		bitSize: 384,
		order:   mustHex("ffffffffffffffffffffffffffffffffffffffffffffffffc7634d81f4372ddf581a0db248b0a77aecec196accc52973"),
		oid:     asn1.ObjectIdentifier{1, 3, 132, 0, 34},
	},
	P521: {
		name:    "P-521",
		bitSize: 521,
		order:   mustHex("01fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffa51868783bf2f966b7fcc0148f709a5d03bb5c9b8899c47aebb6fb71e91386409"),
		oid:     asn1.ObjectIdentifier{1, 3, 132, 0, 35},
	},
}

func mustHex(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("curve: bad constant " + s)
	}
	return n
}

// All returns every supported curve, smallest first.
func All() []Curve {
	return []Curve{P256, P384, P521}
}

// ByName resolves a JWK "crv" value ("P-256", "P-384", "P-521").
func ByName(name string) (Curve, error) {
	for _, c := range All() {
		if catalog[c].name == name {
			return c, nil
		}
	}
	return Unknown, fmt.Errorf("%w: unsupported curve %q", jose.ErrMalformedKey, name)
}

// ByOID resolves a named-curve object identifier from SEC1 / X.509 structures.
func ByOID(oid asn1.ObjectIdentifier) (Curve, error) {
	for _, c := range All() {
		if catalog[c].oid.Equal(oid) {
			return c, nil
		}
	}
	return Unknown, fmt.Errorf("%w: unsupported curve OID %s", jose.ErrMalformedKey, oid)
}

func (c Curve) Valid() bool {
	_, ok := catalog[c]
	return ok
}

func (c Curve) String() string {
	p, ok := catalog[c]
	if !ok {
		return "Unknown"
	}
	return p.name
}

// BitSize is the bit length of the group order.
func (c Curve) BitSize() int {
	return catalog[c].bitSize
}

// CoordinateLength is the fixed big-endian byte length of coordinates and private scalars: ceil(BitSize/8).
func (c Curve) CoordinateLength() int {
	return (catalog[c].bitSize + 7) / 8
}

// Order returns a copy of the group order, or nil for an invalid curve.
func (c Curve) Order() *big.Int {
	p, ok := catalog[c]
	if !ok {
		return nil
	}
	return new(big.Int).Set(p.order)
}

// OID returns the named-curve object identifier.
func (c Curve) OID() asn1.ObjectIdentifier {
	p, ok := catalog[c]
	if !ok {
		return nil
	}
	oid := make(asn1.ObjectIdentifier, len(p.oid))
	copy(oid, p.oid)
	return oid
}

// InRange reports whether d is a valid private scalar, 1 <= d < n.
func (c Curve) InRange(d *big.Int) bool {
	p, ok := catalog[c]
	if !ok {
		return false
	}
	return d.Sign() > 0 && d.Cmp(p.order) < 0
}
