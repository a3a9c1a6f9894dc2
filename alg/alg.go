// Table of the JWS "ES*" signature algorithms and the curve each one mandates.
package alg

import (
	"crypto"
	"fmt"

	"github.com/bluesky-social/jose"
	"github.com/bluesky-social/jose/curve"
)

// Algorithm is an ECDSA JWS algorithm: a digest paired with a curve.
type Algorithm struct {
	Name  string
	Hash  crypto.Hash
	Curve curve.Curve
}

var (
	ES256 = Algorithm{Name: "ES256", Hash: crypto.SHA256, Curve: curve.P256}
	ES384 = Algorithm{Name: "ES384", Hash: crypto.SHA384, Curve: curve.P384}
	ES512 = Algorithm{Name: "ES512", Hash: crypto.SHA512, Curve: curve.P521}
)

var table = []Algorithm{ES256, ES384, ES512}

// All returns the supported algorithms in table order.
func All() []Algorithm {
	out := make([]Algorithm, len(table))
	copy(out, table)
	return out
}

// Lookup resolves an algorithm identifier such as "ES256".
func Lookup(name string) (Algorithm, error) {
	for _, a := range table {
		if a.Name == name {
			return a, nil
		}
	}
	return Algorithm{}, fmt.Errorf("%w: %q", jose.ErrUnsupportedAlgorithm, name)
}

// CurveFor returns the curve an algorithm mandates.
func CurveFor(name string) (curve.Curve, error) {
	a, err := Lookup(name)
	if err != nil {
		return curve.Unknown, err
	}
	return a.Curve, nil
}

// ForCurve returns the algorithm paired with a curve. Used when a key arrives without an algorithm, eg during generation.
func ForCurve(c curve.Curve) (Algorithm, error) {
	for _, a := range table {
		if a.Curve == c {
			return a, nil
		}
	}
	return Algorithm{}, fmt.Errorf("%w: no algorithm for curve %s", jose.ErrUnsupportedAlgorithm, c)
}

// SignatureSize is the length of a JOSE ECDSA signature: R and S, each padded to the coordinate length.
func (a Algorithm) SignatureSize() int {
	return 2 * a.Curve.CoordinateLength()
}

// DigestSize is the output length of the algorithm's hash, in bytes.
func (a Algorithm) DigestSize() int {
	return a.Hash.Size()
}

func (a Algorithm) String() string {
	return a.Name
}
