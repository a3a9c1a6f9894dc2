// Package eckey is the EC key type used by the JOSE layer.
//
// An [ECKey] wraps one backend key together with the JWS algorithm it is bound to. Keys are loaded from PEM, JWK mappings or JSON, or backend-native handles; the key's curve must match the algorithm's curve. Keys are immutable and safe for concurrent use.
package eckey

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bluesky-social/jose"
	"github.com/bluesky-social/jose/alg"
	"github.com/bluesky-social/jose/backend"
	"github.com/bluesky-social/jose/curve"
	"github.com/bluesky-social/jose/keymaterial"
)

type ECKey struct {
	key     backend.Key
	backend backend.Backend
}

func logger() *slog.Logger {
	return slog.Default().With("system", "eckey")
}

// New loads a key on the default backend. See [NewWithBackend] for the accepted inputs.
func New(input any, algorithm string) (*ECKey, error) {
	return NewWithBackend(DefaultBackend(), input, algorithm)
}

// NewWithBackend loads a key on a specific backend. input may be:
//
//   - PEM text, as string or []byte ("EC PRIVATE KEY", "PRIVATE KEY" or "PUBLIC KEY")
//   - JWK JSON text, as string or []byte
//   - a JWK mapping (map[string]any or map[string]string), or a [keymaterial.JWK]
//   - a [*keymaterial.KeyMaterial] or another [*ECKey]
//   - a native key handle of any registered backend
//
// The algorithm is resolved first, then the material is parsed, then the curves are compared.
func NewWithBackend(b backend.Backend, input any, algorithm string) (*ECKey, error) {
	a, err := alg.Lookup(algorithm)
	if err != nil {
		return nil, err
	}
	m, err := parseInput(b, input)
	if err != nil {
		keysLoaded.WithLabelValues(b.Name(), "invalid").Inc()
		return nil, err
	}
	if m.Curve() != a.Curve {
		keysLoaded.WithLabelValues(b.Name(), "invalid").Inc()
		return nil, fmt.Errorf("%w: %s key used with %s (requires %s)", jose.ErrCurveMismatch, m.Curve(), a.Name, a.Curve)
	}
	k, err := b.NewKey(m, a)
	if err != nil {
		keysLoaded.WithLabelValues(b.Name(), "invalid").Inc()
		return nil, err
	}
	keysLoaded.WithLabelValues(b.Name(), "ok").Inc()
	logger().Debug("loaded EC key", "backend", b.Name(), "alg", a.Name, "public", k.IsPublic())
	return &ECKey{key: k, backend: b}, nil
}

func parseInput(b backend.Backend, input any) (*keymaterial.KeyMaterial, error) {
	switch v := input.(type) {
	case nil:
		return nil, fmt.Errorf("%w: no key given", jose.ErrInvalidKeyMaterial)
	case *keymaterial.KeyMaterial:
		if v == nil {
			return nil, fmt.Errorf("%w: nil key material", jose.ErrInvalidKeyMaterial)
		}
		return v, nil
	case keymaterial.JWK:
		return v.Material()
	case *keymaterial.JWK:
		if v == nil {
			return nil, fmt.Errorf("%w: nil JWK", jose.ErrInvalidKeyMaterial)
		}
		return v.Material()
	case map[string]any:
		return keymaterial.ParseJWK(v)
	case map[string]string:
		generic := make(map[string]any, len(v))
		for name, val := range v {
			generic[name] = val
		}
		return keymaterial.ParseJWK(generic)
	case []byte:
		return parseText(v)
	case string:
		return parseText([]byte(v))
	case *ECKey:
		if v == nil {
			return nil, fmt.Errorf("%w: nil key", jose.ErrInvalidKeyMaterial)
		}
		return v.key.Material(), nil
	}

	m, err := b.ParseNative(input)
	if err == nil || !errors.Is(err, jose.ErrInvalidKeyMaterial) {
		return m, err
	}
	for _, other := range backend.All() {
		if other.Name() == b.Name() {
			continue
		}
		m, err := other.ParseNative(input)
		if err == nil || !errors.Is(err, jose.ErrInvalidKeyMaterial) {
			return m, err
		}
	}
	return nil, fmt.Errorf("%w: unsupported key input type %T", jose.ErrInvalidKeyMaterial, input)
}

func parseText(data []byte) (*keymaterial.KeyMaterial, error) {
	if keymaterial.LooksLikePEM(data) {
		return keymaterial.ParsePEM(data)
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return keymaterial.ParseJWKJSON(trimmed)
	}
	return nil, fmt.Errorf("%w: text is neither PEM nor JWK JSON", jose.ErrInvalidKeyMaterial)
}

func (k *ECKey) IsPublic() bool {
	return k.key.IsPublic()
}

// PublicKey returns a new key holding only the public point. It is idempotent: the public key of a public key is an equal key.
func (k *ECKey) PublicKey() (*ECKey, error) {
	pub, err := k.key.Public()
	if err != nil {
		return nil, err
	}
	return &ECKey{key: pub, backend: k.backend}, nil
}

// Sign hashes msg with the algorithm's digest and returns a raw JWS signature (r || s). Public keys fail with [jose.ErrSigningNotSupported]. Backend failures are returned unwrapped.
func (k *ECKey) Sign(msg []byte) ([]byte, error) {
	a := k.key.Algorithm()
	if k.IsPublic() {
		signatures.WithLabelValues(k.backend.Name(), a.Name, "public").Inc()
		return nil, fmt.Errorf("%w: %s key is public", jose.ErrSigningNotSupported, a.Name)
	}
	sig, err := k.key.Sign(msg)
	if err != nil {
		signatures.WithLabelValues(k.backend.Name(), a.Name, "error").Inc()
		logger().Debug("signing failed", "backend", k.backend.Name(), "alg", a.Name, "err", err)
		return nil, err
	}
	signatures.WithLabelValues(k.backend.Name(), a.Name, "ok").Inc()
	return sig, nil
}

// Verify reports whether sig is a valid raw signature of msg. Private keys verify with their public half.
func (k *ECKey) Verify(msg, sig []byte) bool {
	ok := k.key.Verify(msg, sig)
	result := "invalid"
	if ok {
		result = "valid"
	}
	verifications.WithLabelValues(k.backend.Name(), k.key.Algorithm().Name, result).Inc()
	return ok
}

// ToPEM returns SEC1 "EC PRIVATE KEY" PEM for private keys and "PUBLIC KEY" PEM for public keys.
func (k *ECKey) ToPEM() ([]byte, error) {
	return k.key.PEM()
}

// JWK returns the key as a typed JWK. Coordinates and scalar are padded to the curve's coordinate length.
func (k *ECKey) JWK() (*keymaterial.JWK, error) {
	return k.key.JWK()
}

// ToDict returns the JWK mapping: kty, crv, x and y, plus d when the key is private.
func (k *ECKey) ToDict() (map[string]any, error) {
	j, err := k.key.JWK()
	if err != nil {
		return nil, err
	}
	out := map[string]any{
		"kty": j.KeyType,
		"crv": j.Curve,
		"x":   j.X,
		"y":   j.Y,
	}
	if !k.IsPublic() {
		out["d"] = j.D
	}
	return out, nil
}

// Equal reports whether both keys have the same algorithm and key material. The backends need not match.
func (k *ECKey) Equal(other *ECKey) bool {
	if k == nil || other == nil {
		return k == other
	}
	return k.key.Algorithm() == other.key.Algorithm() &&
		k.key.Material().Equal(other.key.Material())
}

func (k *ECKey) Algorithm() alg.Algorithm {
	return k.key.Algorithm()
}

func (k *ECKey) Curve() curve.Curve {
	return k.key.Material().Curve()
}

func (k *ECKey) Backend() backend.Backend {
	return k.backend
}

// Material returns the backend-independent key values.
func (k *ECKey) Material() *keymaterial.KeyMaterial {
	return k.key.Material()
}

// Native returns the backend's own key object. It is a copy: changing it does not change k.
func (k *ECKey) Native() any {
	return k.key.Native()
}

// Generate creates a new private key for the algorithm on the default backend.
func Generate(algorithm string) (*ECKey, error) {
	return GenerateWithBackend(DefaultBackend(), algorithm)
}

func GenerateWithBackend(b backend.Backend, algorithm string) (*ECKey, error) {
	a, err := alg.Lookup(algorithm)
	if err != nil {
		return nil, err
	}
	k, err := b.GenerateKey(a)
	if err != nil {
		return nil, fmt.Errorf("generating %s key: %w", a.Name, err)
	}
	logger().Debug("generated EC key", "backend", b.Name(), "alg", a.Name)
	return &ECKey{key: k, backend: b}, nil
}
