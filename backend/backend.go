// Contract implemented by each EC engine, plus a name registry for selecting one at startup.
//
// Backends receive already-parsed [keymaterial.KeyMaterial] and must produce byte-identical PEM and JWK output for the same material. Signatures are JOSE "raw" format: r || s, each left-padded to the curve's coordinate length.
package backend

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/bluesky-social/jose"
	"github.com/bluesky-social/jose/alg"
	"github.com/bluesky-social/jose/keymaterial"
)

type Backend interface {
	// Short identifier, used for configuration ("portable", "native", "jwx").
	Name() string

	// Creates a key from validated material. Private material is checked for consistency with its public point, and the point is derived if it is absent.
	//
	// The algorithm's curve is not compared with the material's: that check belongs to the eckey package. Driving a backend directly with a mismatched pair (an ES512 digest on a P-256 key, say) exposes how the engine treats digests wider than the group order.
	NewKey(m *keymaterial.KeyMaterial, a alg.Algorithm) (Key, error)

	// Extracts material from a key handle native to this backend. Returns an error matching [jose.ErrInvalidKeyMaterial] if the handle is of a foreign type.
	ParseNative(handle any) (*keymaterial.KeyMaterial, error)

	// Creates a new random private key on the algorithm's curve.
	GenerateKey(a alg.Algorithm) (Key, error)
}

// Key is a backend-specific key handle. Implementations are immutable and safe for concurrent use.
type Key interface {
	Algorithm() alg.Algorithm

	// Complete material: the public point is always present.
	Material() *keymaterial.KeyMaterial

	IsPublic() bool

	// Returns a key holding only the public point. Calling this on a public key returns an equivalent key.
	Public() (Key, error)

	// SEC1 "EC PRIVATE KEY" for private keys, SubjectPublicKeyInfo "PUBLIC KEY" for public keys.
	PEM() ([]byte, error)

	JWK() (*keymaterial.JWK, error)

	// Hashes msg with the algorithm's digest and signs it. Public keys return [jose.ErrSigningNotSupported]. Other failures are backend-specific.
	Sign(msg []byte) ([]byte, error)

	// Reports whether sig is a valid raw signature of msg. Malformed signatures are simply invalid.
	Verify(msg, sig []byte) bool

	// The backend's own key object, for example *ecdsa.PrivateKey. Changing the returned object must not change the Key.
	Native() any
}

var (
	registryLk sync.RWMutex
	registry   = map[string]Backend{}
)

// Register makes a backend available by name. It is intended to be called from init functions, and panics on duplicate names.
func Register(b Backend) {
	registryLk.Lock()
	defer registryLk.Unlock()
	if _, ok := registry[b.Name()]; ok {
		panic("backend: duplicate registration of " + b.Name())
	}
	registry[b.Name()] = b
}

// ErrUnknownBackend is returned by [Lookup] for names which were never registered.
var ErrUnknownBackend = errors.New("unknown EC backend")

func Lookup(name string) (Backend, error) {
	registryLk.RLock()
	defer registryLk.RUnlock()
	b, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	return b, nil
}

// Names lists registered backends, sorted.
func Names() []string {
	registryLk.RLock()
	defer registryLk.RUnlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// All returns registered backends in name order.
func All() []Backend {
	names := Names()
	out := make([]Backend, 0, len(names))
	for _, name := range names {
		b, err := Lookup(name)
		if err == nil {
			out = append(out, b)
		}
	}
	return out
}

// ForeignHandle is the error for native handles a backend does not recognize.
func ForeignHandle(backend string, handle any) error {
	return fmt.Errorf("%w: %T is not a %s key handle", jose.ErrInvalidKeyMaterial, handle, backend)
}
