package portable

import (
	"errors"

	"filippo.io/nistec"

	"github.com/bluesky-social/jose/curve"
)

// point is the method set shared by the nistec point types.
type point[P any] interface {
	Bytes() []byte
	BytesX() ([]byte, error)
	SetBytes([]byte) (P, error)
	Add(P, P) P
	ScalarMult(P, []byte) (P, error)
	ScalarBaseMult([]byte) (P, error)
}

// group hides the concrete point type so that keys on different curves share one implementation. Scalars are always exactly the curve's coordinate length.
type group interface {
	// Uncompressed encoding of k·G.
	scalarBaseMult(k []byte) ([]byte, error)

	// Fails unless p is an uncompressed encoding of a point on the curve.
	checkPoint(p []byte) error

	// x coordinate of u1·G + u2·Q.
	combinedX(u1, u2, q []byte) ([]byte, error)
}

type nistGroup[P point[P]] struct {
	newPoint func() P
}

func (g nistGroup[P]) scalarBaseMult(k []byte) ([]byte, error) {
	p, err := g.newPoint().ScalarBaseMult(k)
	if err != nil {
		return nil, err
	}
	return p.Bytes(), nil
}

func (g nistGroup[P]) checkPoint(b []byte) error {
	if len(b) == 0 || b[0] != 4 {
		return errors.New("point is not in uncompressed form")
	}
	_, err := g.newPoint().SetBytes(b)
	return err
}

func (g nistGroup[P]) combinedX(u1, u2, q []byte) ([]byte, error) {
	Q, err := g.newPoint().SetBytes(q)
	if err != nil {
		return nil, err
	}
	p1, err := g.newPoint().ScalarBaseMult(u1)
	if err != nil {
		return nil, err
	}
	p2, err := g.newPoint().ScalarMult(Q, u2)
	if err != nil {
		return nil, err
	}
	// BytesX fails for the point at infinity
	return p1.Add(p1, p2).BytesX()
}

var groups = map[curve.Curve]group{
	curve.P256: nistGroup[*nistec.P256Point]{newPoint: nistec.NewP256Point},
	curve.P384: nistGroup[*nistec.P384Point]{newPoint: nistec.NewP384Point},
	curve.P521: nistGroup[*nistec.P521Point]{newPoint: nistec.NewP521Point},
}
