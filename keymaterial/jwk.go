package keymaterial

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bluesky-social/jose"
	"github.com/bluesky-social/jose/curve"
)

// Representation of a JSON Web Key (JWK), as relevant to the EC keys supported by this module.
//
// Expected to be marshalled/unmarshalled as JSON. Coordinates and scalar are base64url with no padding.
type JWK struct {
	KeyType   string `json:"kty"`
	Curve     string `json:"crv"`
	X         string `json:"x"`
	Y         string `json:"y"`
	D         string `json:"d,omitempty"`
	Use       string `json:"use,omitempty"`
	KeyID     string `json:"kid,omitempty"`
	Algorithm string `json:"alg,omitempty"`
}

var errNotEC = fmt.Errorf(`%w: "kty" must be "EC"`, jose.ErrMissingParameter)

// ParseJWKJSON loads key material from JWK JSON bytes.
func ParseJWKJSON(data []byte) (*KeyMaterial, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: parsing JWK JSON: %w", jose.ErrInvalidKeyMaterial, err)
	}
	return ParseJWK(m)
}

// ParseJWK loads key material from a decoded JWK mapping. "kty", "crv", "x" and "y" are required; "d" is optional and marks a private key. Other members are ignored.
func ParseJWK(m map[string]any) (*KeyMaterial, error) {
	kty, _, err := member(m, "kty", true)
	if err != nil {
		return nil, err
	}
	if kty != "EC" {
		return nil, fmt.Errorf("%w: unsupported JWK key type %q (%w)", jose.ErrInvalidKeyMaterial, kty, errNotEC)
	}

	crvName, _, err := member(m, "crv", true)
	if err != nil {
		return nil, err
	}
	xs, _, err := member(m, "x", true)
	if err != nil {
		return nil, err
	}
	ys, _, err := member(m, "y", true)
	if err != nil {
		return nil, err
	}
	ds, hasD, err := member(m, "d", false)
	if err != nil {
		return nil, err
	}

	crv, err := curve.ByName(crvName)
	if err != nil {
		return nil, err
	}
	x, err := decodeField("x", xs)
	if err != nil {
		return nil, err
	}
	y, err := decodeField("y", ys)
	if err != nil {
		return nil, err
	}
	var d []byte
	if hasD {
		if ds == "" {
			return nil, fmt.Errorf("%w: \"d\" is present but empty", jose.ErrMalformedKey)
		}
		if d, err = decodeField("d", ds); err != nil {
			return nil, err
		}
	}
	return New(crv, x, y, d)
}

// member fetches a string member and reports whether it was present. A present member of any other type is invalid key material.
func member(m map[string]any, name string, required bool) (string, bool, error) {
	v, ok := m[name]
	if !ok || v == nil {
		if required {
			return "", false, fmt.Errorf("%w: %q", jose.ErrMissingParameter, name)
		}
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", true, fmt.Errorf("%w: JWK member %q is %T, not a string", jose.ErrInvalidKeyMaterial, name, v)
	}
	if s == "" && required {
		return "", true, fmt.Errorf("%w: %q is empty", jose.ErrMissingParameter, name)
	}
	return s, true, nil
}

func decodeField(name, s string) ([]byte, error) {
	// tolerate padded base64url from sloppy encoders
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JWK base64 encoding for %q: %w", jose.ErrMalformedKey, name, err)
	}
	return b, nil
}

func encodeField(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// FromMaterial renders key material as a JWK. Values are already padded to the curve's coordinate length, so the output is fixed-width.
func FromMaterial(m *KeyMaterial) (*JWK, error) {
	if !m.HasPoint() {
		return nil, fmt.Errorf("%w: public point has not been derived", jose.ErrMalformedKey)
	}
	jwk := JWK{
		KeyType: "EC",
		Curve:   m.crv.String(),
		X:       encodeField(m.x),
		Y:       encodeField(m.y),
	}
	if m.IsPrivate() {
		jwk.D = encodeField(m.d)
	}
	return &jwk, nil
}

// Material parses the JWK's key values. Passthrough members (kid, use, alg) are not interpreted.
func (j JWK) Material() (*KeyMaterial, error) {
	return ParseJWK(j.Map())
}

// IsPrivate reports whether the JWK carries a "d" member.
func (j JWK) IsPrivate() bool {
	return j.D != ""
}

// Map returns the JWK as a generic mapping, omitting empty members.
func (j JWK) Map() map[string]any {
	out := map[string]any{}
	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	set("kty", j.KeyType)
	set("crv", j.Curve)
	set("x", j.X)
	set("y", j.Y)
	set("d", j.D)
	set("use", j.Use)
	set("kid", j.KeyID)
	set("alg", j.Algorithm)
	return out
}

// Public returns a copy of the JWK with the private member removed.
func (j JWK) Public() JWK {
	j.D = ""
	return j
}
