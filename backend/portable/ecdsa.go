package portable

import (
	"bytes"
	"crypto"
	"crypto/hmac"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"
	"math/big"

	"github.com/minio/sha256-simd"

	"github.com/bluesky-social/jose/curve"
)

// ErrDigestTooLong is returned when signing a digest with more bits than the curve order, for example an ES512 digest on a P-256 key. This engine does not truncate digests.
var ErrDigestTooLong = errors.New("portable: digest is wider than the curve order")

var errInfinity = errors.New("portable: signature nonce produced the point at infinity")

func hashFunc(h crypto.Hash) (func() hash.Hash, error) {
	switch h {
	case crypto.SHA256:
		return sha256.New, nil
	case crypto.SHA384:
		return sha512.New384, nil
	case crypto.SHA512:
		return sha512.New, nil
	}
	return nil, fmt.Errorf("portable: unsupported hash %s", h)
}

func digest(h crypto.Hash, msg []byte) ([]byte, error) {
	newHash, err := hashFunc(h)
	if err != nil {
		return nil, err
	}
	hasher := newHash()
	hasher.Write(msg)
	return hasher.Sum(nil), nil
}

// signer carries per-curve constants for one signature operation.
type signer struct {
	crv   curve.Curve
	grp   group
	order *big.Int
	size  int
}

func newSigner(crv curve.Curve) signer {
	return signer{
		crv:   crv,
		grp:   groups[crv],
		order: crv.Order(),
		size:  crv.CoordinateLength(),
	}
}

func (sg signer) fits(h []byte) bool {
	return len(h)*8 <= sg.order.BitLen()
}

// bits2int per RFC 6979 section 2.3.2.
func (sg signer) bits2int(b []byte) *big.Int {
	v := new(big.Int).SetBytes(b)
	if excess := len(b)*8 - sg.order.BitLen(); excess > 0 {
		v.Rsh(v, uint(excess))
	}
	return v
}

func (sg signer) int2octets(v *big.Int) []byte {
	return v.FillBytes(make([]byte, sg.size))
}

// sign produces r || s over digest h using the deterministic nonce of RFC 6979.
func (sg signer) sign(h crypto.Hash, d, digest []byte) ([]byte, error) {
	if !sg.fits(digest) {
		return nil, fmt.Errorf("%w: %d-bit digest for %s", ErrDigestTooLong, len(digest)*8, sg.crv)
	}
	newHash, err := hashFunc(h)
	if err != nil {
		return nil, err
	}

	x := new(big.Int).SetBytes(d)
	e := sg.bits2int(digest)
	nonces := newNonceSource(newHash, sg.int2octets(x), sg.int2octets(new(big.Int).Mod(e, sg.order)))

	for {
		k := sg.bits2int(nonces.next(sg.order.BitLen()))
		if k.Sign() == 0 || k.Cmp(sg.order) >= 0 {
			continue
		}

		R, err := sg.grp.scalarBaseMult(sg.int2octets(k))
		if err != nil {
			return nil, err
		}
		if len(R) != 1+2*sg.size {
			return nil, errInfinity
		}
		r := new(big.Int).SetBytes(R[1 : 1+sg.size])
		r.Mod(r, sg.order)
		if r.Sign() == 0 {
			continue
		}

		// s = k⁻¹ (e + r·x) mod n
		s := new(big.Int).Mul(r, x)
		s.Add(s, e)
		s.Mul(s, new(big.Int).ModInverse(k, sg.order))
		s.Mod(s, sg.order)
		if s.Sign() == 0 {
			continue
		}

		return append(sg.int2octets(r), sg.int2octets(s)...), nil
	}
}

func (sg signer) verify(q, digest, sig []byte) bool {
	if len(sig) != 2*sg.size || !sg.fits(digest) {
		return false
	}
	r := new(big.Int).SetBytes(sig[:sg.size])
	s := new(big.Int).SetBytes(sig[sg.size:])
	if r.Sign() == 0 || s.Sign() == 0 || r.Cmp(sg.order) >= 0 || s.Cmp(sg.order) >= 0 {
		return false
	}

	e := sg.bits2int(digest)
	w := new(big.Int).ModInverse(s, sg.order)
	u1 := e.Mul(e, w)
	u1.Mod(u1, sg.order)
	u2 := w.Mul(r, w)
	u2.Mod(u2, sg.order)

	x, err := sg.grp.combinedX(sg.int2octets(u1), sg.int2octets(u2), q)
	if err != nil {
		return false
	}
	v := new(big.Int).SetBytes(x)
	v.Mod(v, sg.order)
	return v.Cmp(r) == 0
}

// nonceSource is the HMAC_DRBG of RFC 6979 section 3.2, seeded with the private key and message digest.
type nonceSource struct {
	newHash func() hash.Hash
	k, v    []byte
	started bool
}

func newNonceSource(newHash func() hash.Hash, x, h1 []byte) *nonceSource {
	size := newHash().Size()
	ns := &nonceSource{
		newHash: newHash,
		k:       make([]byte, size),
		v:       bytes.Repeat([]byte{1}, size),
	}
	ns.k = ns.mac(ns.k, ns.v, []byte{0}, x, h1)
	ns.v = ns.mac(ns.k, ns.v)
	ns.k = ns.mac(ns.k, ns.v, []byte{1}, x, h1)
	ns.v = ns.mac(ns.k, ns.v)
	return ns
}

func (ns *nonceSource) mac(key []byte, parts ...[]byte) []byte {
	m := hmac.New(ns.newHash, key)
	for _, p := range parts {
		m.Write(p)
	}
	return m.Sum(nil)
}

// next returns the next candidate of at least qlen bits. Every call after the first reseeds, so a rejected candidate is never repeated.
func (ns *nonceSource) next(qlen int) []byte {
	if ns.started {
		ns.k = ns.mac(ns.k, ns.v, []byte{0})
		ns.v = ns.mac(ns.k, ns.v)
	}
	ns.started = true

	var t []byte
	for len(t)*8 < qlen {
		ns.v = ns.mac(ns.k, ns.v)
		t = append(t, ns.v...)
	}
	return t
}
