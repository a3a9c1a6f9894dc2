// Elliptic-curve keys for JOSE (JWS/JWK) signing and verification.
//
// The key type lives in the [github.com/bluesky-social/jose/eckey] package. It can be built from PEM text, a JSON Web Key mapping, or a backend-native key handle, and always serializes back to the same canonical PEM and JWK forms regardless of which cryptographic backend is doing the work.
//
// Three backends are included:
//
//   - native: golang's stdlib crypto module (crypto/ecdsa, crypto/ecdh, crypto/x509)
//   - portable: pure-Go NIST curve arithmetic from <filippo.io/nistec>, with RFC 6979 deterministic nonces
//   - jwx: the <github.com/lestrrat-go/jwx/v2> JWK and JWS implementation
//
// This package holds the error values shared by all of the above. Every error returned for a protocol-level problem wraps [ErrJOSE], so callers can check broadly with errors.Is(err, jose.ErrJOSE) or narrowly against a specific error.
package jose
