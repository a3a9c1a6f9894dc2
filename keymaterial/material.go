// Canonical, backend-independent representation of EC key material, and the parsers which produce it from PEM and JWK inputs.
//
// A [KeyMaterial] always carries fixed-length, left-zero-padded coordinates and scalar. Values are validated once, when the material is created, and can not be modified afterwards.
package keymaterial

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/bluesky-social/jose"
	"github.com/bluesky-social/jose/curve"
)

// KeyMaterial is the curve, public point, and optional private scalar of an EC key.
//
// A private material parsed from SEC1 without the optional public key field has no point yet; backends derive it (see [KeyMaterial.WithPoint]) before handing the material out.
type KeyMaterial struct {
	crv curve.Curve
	x   []byte
	y   []byte
	d   []byte
}

// New validates and copies raw big-endian values. Values shorter than the curve's coordinate length are left-padded with zeros; longer values are rejected. x and y may both be nil only when d is present.
func New(crv curve.Curve, x, y, d []byte) (*KeyMaterial, error) {
	if !crv.Valid() {
		return nil, fmt.Errorf("%w: unsupported curve", jose.ErrMalformedKey)
	}
	m := KeyMaterial{crv: crv}
	size := crv.CoordinateLength()

	if x != nil || y != nil {
		var err error
		if m.x, err = pad(x, size, "x"); err != nil {
			return nil, err
		}
		if m.y, err = pad(y, size, "y"); err != nil {
			return nil, err
		}
	} else if d == nil {
		return nil, fmt.Errorf("%w: public key requires a point", jose.ErrMalformedKey)
	}

	if d != nil {
		var err error
		if m.d, err = pad(d, size, "d"); err != nil {
			return nil, err
		}
		if !crv.InRange(new(big.Int).SetBytes(m.d)) {
			return nil, fmt.Errorf("%w: private scalar out of range for %s", jose.ErrMalformedKey, crv)
		}
	}
	return &m, nil
}

func pad(b []byte, size int, field string) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty %q value", jose.ErrMalformedKey, field)
	}
	if len(b) > size {
		return nil, fmt.Errorf("%w: %q is %d bytes, curve allows %d", jose.ErrMalformedKey, field, len(b), size)
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out, nil
}

func (m *KeyMaterial) Curve() curve.Curve {
	return m.crv
}

// X returns a copy of the padded x coordinate, or nil if the point has not been derived.
func (m *KeyMaterial) X() []byte {
	return bytes.Clone(m.x)
}

// Y returns a copy of the padded y coordinate, or nil if the point has not been derived.
func (m *KeyMaterial) Y() []byte {
	return bytes.Clone(m.y)
}

// D returns a copy of the padded private scalar, or nil for public material.
func (m *KeyMaterial) D() []byte {
	return bytes.Clone(m.d)
}

func (m *KeyMaterial) IsPrivate() bool {
	return m.d != nil
}

func (m *KeyMaterial) HasPoint() bool {
	return m.x != nil
}

// PointBytes is the SEC1 uncompressed point encoding: 0x04 || X || Y.
func (m *KeyMaterial) PointBytes() []byte {
	if !m.HasPoint() {
		return nil
	}
	out := make([]byte, 0, 1+len(m.x)+len(m.y))
	out = append(out, 4)
	out = append(out, m.x...)
	return append(out, m.y...)
}

// Public returns the material without its private scalar.
func (m *KeyMaterial) Public() (*KeyMaterial, error) {
	if !m.HasPoint() {
		return nil, fmt.Errorf("%w: public point has not been derived", jose.ErrMalformedKey)
	}
	return &KeyMaterial{crv: m.crv, x: bytes.Clone(m.x), y: bytes.Clone(m.y)}, nil
}

// WithPoint returns a copy carrying the given uncompressed point. When m already has a point, the two must match; this is how backends check that a private scalar agrees with its public key.
func (m *KeyMaterial) WithPoint(point []byte) (*KeyMaterial, error) {
	x, y, err := SplitPoint(m.crv, point)
	if err != nil {
		return nil, err
	}
	if m.HasPoint() {
		if !bytes.Equal(m.x, x) || !bytes.Equal(m.y, y) {
			return nil, fmt.Errorf("%w: public point does not match private scalar", jose.ErrMalformedKey)
		}
		return m, nil
	}
	return &KeyMaterial{crv: m.crv, x: x, y: y, d: bytes.Clone(m.d)}, nil
}

// SplitPoint parses an uncompressed SEC1 point into padded coordinates. It does not check that the point is on the curve.
func SplitPoint(crv curve.Curve, point []byte) (x, y []byte, err error) {
	size := crv.CoordinateLength()
	if len(point) != 1+2*size || point[0] != 4 {
		return nil, nil, fmt.Errorf("%w: expected uncompressed %s point", jose.ErrMalformedKey, crv)
	}
	return bytes.Clone(point[1 : 1+size]), bytes.Clone(point[1+size:]), nil
}

// Equal compares curve, point, and scalar.
func (m *KeyMaterial) Equal(other *KeyMaterial) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.crv == other.crv &&
		bytes.Equal(m.x, other.x) &&
		bytes.Equal(m.y, other.y) &&
		bytes.Equal(m.d, other.d)
}
