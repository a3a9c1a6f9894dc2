package jose

import (
	"errors"
	"fmt"
)

// Root of the JOSE error family.
var ErrJOSE = errors.New("jose")

var (
	// The requested algorithm is not in the algorithm table.
	ErrUnsupportedAlgorithm = fmt.Errorf("%w: unsupported algorithm", ErrJOSE)

	// The input is not PEM, not a JWK mapping, and not a recognized native key handle.
	ErrInvalidKeyMaterial = fmt.Errorf("%w: invalid key material", ErrJOSE)

	// A JWK mapping lacks a required member.
	ErrMissingParameter = fmt.Errorf("%w: missing JWK parameter", ErrJOSE)

	// PEM or DER is structurally invalid, the curve is unknown, or the key values are out of range.
	ErrMalformedKey = fmt.Errorf("%w: malformed key", ErrJOSE)

	// The key's curve disagrees with the curve mandated by the algorithm.
	ErrCurveMismatch = fmt.Errorf("%w: curve does not match algorithm", ErrJOSE)

	// Signing was attempted with a public-only key.
	ErrSigningNotSupported = fmt.Errorf("%w: signing requires a private key", ErrJOSE)
)
