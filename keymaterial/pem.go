package keymaterial

import (
	encoding_asn1 "encoding/asn1"
	"encoding/pem"
	"fmt"

	"github.com/bluesky-social/jose"
	"github.com/bluesky-social/jose/curve"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// PEM block types read and written by this package.
const (
	BlockECPrivateKey = "EC PRIVATE KEY"
	BlockPrivateKey   = "PRIVATE KEY"
	BlockPublicKey    = "PUBLIC KEY"
	blockECParameters = "EC PARAMETERS"
)

var oidPublicKeyECDSA = encoding_asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}

var (
	tagParameters = asn1.Tag(0).Constructed().ContextSpecific()
	tagPublicKey  = asn1.Tag(1).Constructed().ContextSpecific()
)

// LooksLikePEM reports whether data contains PEM armor. Used to tell "not a PEM at all" apart from "a broken PEM".
func LooksLikePEM(data []byte) bool {
	block, _ := pem.Decode(data)
	return block != nil
}

// ParsePEM decodes the first EC key block in data: SEC1 "EC PRIVATE KEY", PKCS#8 "PRIVATE KEY", or SubjectPublicKeyInfo "PUBLIC KEY". A leading "EC PARAMETERS" block, as written by some openssl commands, is skipped.
func ParsePEM(data []byte) (*KeyMaterial, error) {
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			if len(rest) == len(data) {
				return nil, fmt.Errorf("%w: no PEM block found", jose.ErrInvalidKeyMaterial)
			}
			return nil, fmt.Errorf("%w: no EC key PEM block found", jose.ErrMalformedKey)
		}

		switch block.Type {
		case blockECParameters:
			continue
		case BlockECPrivateKey:
			return parseSEC1(block.Bytes, curve.Unknown)
		case BlockPrivateKey:
			return parsePKCS8(block.Bytes)
		case BlockPublicKey:
			return parseSPKI(block.Bytes)
		default:
			return nil, fmt.Errorf("%w: unsupported PEM block type %q", jose.ErrMalformedKey, block.Type)
		}
	}
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{jose.ErrMalformedKey}, args...)...)
}

// parseSEC1 reads an RFC 5915 ECPrivateKey. outer is the curve from an enclosing PKCS#8 structure, or curve.Unknown.
func parseSEC1(der []byte, outer curve.Curve) (*KeyMaterial, error) {
	input := cryptobyte.String(der)
	var (
		seq     cryptobyte.String
		version int
		priv    []byte
	)
	if !input.ReadASN1(&seq, asn1.SEQUENCE) || !input.Empty() {
		return nil, malformed("invalid SEC1 private key structure")
	}
	if !seq.ReadASN1Integer(&version) || version != 1 {
		return nil, malformed("unsupported SEC1 private key version")
	}
	if !seq.ReadASN1Bytes(&priv, asn1.OCTET_STRING) {
		return nil, malformed("invalid SEC1 private key scalar")
	}

	var (
		params, pubField  cryptobyte.String
		hasParams, hasPub bool
	)
	if !seq.ReadOptionalASN1(&params, &hasParams, tagParameters) ||
		!seq.ReadOptionalASN1(&pubField, &hasPub, tagPublicKey) ||
		!seq.Empty() {
		return nil, malformed("invalid SEC1 optional fields")
	}

	crv := outer
	if hasParams {
		var oid encoding_asn1.ObjectIdentifier
		if !params.ReadASN1ObjectIdentifier(&oid) || !params.Empty() {
			return nil, malformed("only named curves are supported")
		}
		inner, err := curve.ByOID(oid)
		if err != nil {
			return nil, err
		}
		if outer != curve.Unknown && inner != outer {
			return nil, malformed("PKCS#8 curve %s disagrees with SEC1 curve %s", outer, inner)
		}
		crv = inner
	}
	if crv == curve.Unknown {
		return nil, malformed("SEC1 private key without curve parameters")
	}

	var x, y []byte
	if hasPub {
		var bits encoding_asn1.BitString
		if !pubField.ReadASN1BitString(&bits) || !pubField.Empty() || bits.BitLength%8 != 0 {
			return nil, malformed("invalid SEC1 public key")
		}
		var err error
		if x, y, err = SplitPoint(crv, bits.Bytes); err != nil {
			return nil, err
		}
	}
	return New(crv, x, y, priv)
}

// readAlgorithm reads an id-ecPublicKey AlgorithmIdentifier and returns the named curve.
func readAlgorithm(s *cryptobyte.String) (curve.Curve, error) {
	var (
		algSeq cryptobyte.String
		algOID encoding_asn1.ObjectIdentifier
		crvOID encoding_asn1.ObjectIdentifier
	)
	if !s.ReadASN1(&algSeq, asn1.SEQUENCE) || !algSeq.ReadASN1ObjectIdentifier(&algOID) {
		return curve.Unknown, malformed("invalid algorithm identifier")
	}
	if !algOID.Equal(oidPublicKeyECDSA) {
		return curve.Unknown, malformed("not an EC key (algorithm %s)", algOID)
	}
	if !algSeq.ReadASN1ObjectIdentifier(&crvOID) || !algSeq.Empty() {
		return curve.Unknown, malformed("only named curves are supported")
	}
	return curve.ByOID(crvOID)
}

func parsePKCS8(der []byte) (*KeyMaterial, error) {
	input := cryptobyte.String(der)
	var (
		seq     cryptobyte.String
		version int
		inner   []byte
	)
	if !input.ReadASN1(&seq, asn1.SEQUENCE) || !input.Empty() {
		return nil, malformed("invalid PKCS#8 structure")
	}
	if !seq.ReadASN1Integer(&version) || (version != 0 && version != 1) {
		return nil, malformed("unsupported PKCS#8 version")
	}
	crv, err := readAlgorithm(&seq)
	if err != nil {
		return nil, err
	}
	if !seq.ReadASN1Bytes(&inner, asn1.OCTET_STRING) {
		return nil, malformed("invalid PKCS#8 private key")
	}
	return parseSEC1(inner, crv)
}

func parseSPKI(der []byte) (*KeyMaterial, error) {
	input := cryptobyte.String(der)
	var (
		seq  cryptobyte.String
		bits encoding_asn1.BitString
	)
	if !input.ReadASN1(&seq, asn1.SEQUENCE) || !input.Empty() {
		return nil, malformed("invalid SubjectPublicKeyInfo structure")
	}
	crv, err := readAlgorithm(&seq)
	if err != nil {
		return nil, err
	}
	if !seq.ReadASN1BitString(&bits) || bits.BitLength%8 != 0 || !seq.Empty() {
		return nil, malformed("invalid SubjectPublicKeyInfo public key")
	}
	x, y, err := SplitPoint(crv, bits.Bytes)
	if err != nil {
		return nil, err
	}
	return New(crv, x, y, nil)
}

// MarshalSEC1 encodes private material as an RFC 5915 ECPrivateKey, including the named curve and public key fields.
func MarshalSEC1(m *KeyMaterial) ([]byte, error) {
	if !m.IsPrivate() || !m.HasPoint() {
		return nil, fmt.Errorf("SEC1 encoding requires a private key with a derived public point")
	}
	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1Int64(1)
		b.AddASN1OctetString(m.d)
		b.AddASN1(tagParameters, func(b *cryptobyte.Builder) {
			b.AddASN1ObjectIdentifier(m.crv.OID())
		})
		b.AddASN1(tagPublicKey, func(b *cryptobyte.Builder) {
			b.AddASN1BitString(m.PointBytes())
		})
	})
	return b.Bytes()
}

// MarshalSPKI encodes the public part of m as an X.509 SubjectPublicKeyInfo.
func MarshalSPKI(m *KeyMaterial) ([]byte, error) {
	if !m.HasPoint() {
		return nil, fmt.Errorf("SubjectPublicKeyInfo encoding requires a public point")
	}
	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1ObjectIdentifier(oidPublicKeyECDSA)
			b.AddASN1ObjectIdentifier(m.crv.OID())
		})
		b.AddASN1BitString(m.PointBytes())
	})
	return b.Bytes()
}

// MarshalPEM writes private material as a SEC1 "EC PRIVATE KEY" block and public material as a "PUBLIC KEY" block.
func MarshalPEM(m *KeyMaterial) ([]byte, error) {
	if m.IsPrivate() {
		der, err := MarshalSEC1(m)
		if err != nil {
			return nil, err
		}
		return EncodePEM(BlockECPrivateKey, der), nil
	}
	der, err := MarshalSPKI(m)
	if err != nil {
		return nil, err
	}
	return EncodePEM(BlockPublicKey, der), nil
}

func EncodePEM(blockType string, der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
}
