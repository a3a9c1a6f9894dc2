// Package jwtsign adapts [eckey.ECKey] to golang-jwt's SigningMethod interface, so the EC keys of this module can sign and verify JWTs.
package jwtsign

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bluesky-social/jose/alg"
	"github.com/bluesky-social/jose/eckey"
)

var (
	SigningMethodES256 = &SigningMethod{alg: alg.ES256}
	SigningMethodES384 = &SigningMethod{alg: alg.ES384}
	SigningMethodES512 = &SigningMethod{alg: alg.ES512}

	methods = []*SigningMethod{SigningMethodES256, SigningMethodES384, SigningMethodES512}
)

// Implementation of jwt.SigningMethod for [eckey.ECKey].
//
// Keys may be given as *eckey.ECKey, or as any input [eckey.New] accepts (for example *ecdsa.PublicKey), which is loaded on the default backend.
type SigningMethod struct {
	alg alg.Algorithm
}

var _ jwt.SigningMethod = (*SigningMethod)(nil)

// Register replaces golang-jwt's built-in ES256, ES384 and ES512 methods with these. Tokens are wire-compatible either way.
func Register() {
	for _, sm := range methods {
		jwt.RegisterSigningMethod(sm.Alg(), func() jwt.SigningMethod {
			return sm
		})
	}
}

func (sm *SigningMethod) Alg() string {
	return sm.alg.Name
}

func (sm *SigningMethod) key(key any) (*eckey.ECKey, error) {
	if k, ok := key.(*eckey.ECKey); ok {
		if k == nil || k.Algorithm() != sm.alg {
			return nil, jwt.ErrInvalidKey
		}
		return k, nil
	}
	k, err := eckey.New(key, sm.alg.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", jwt.ErrInvalidKeyType, err)
	}
	return k, nil
}

func (sm *SigningMethod) Verify(signingString string, sig []byte, key any) error {
	pub, err := sm.key(key)
	if err != nil {
		return err
	}

	if !sm.alg.Hash.Available() {
		return jwt.ErrHashUnavailable
	}

	if len(sig) != sm.alg.SignatureSize() {
		return jwt.ErrTokenSignatureInvalid
	}

	if !pub.Verify([]byte(signingString), sig) {
		return jwt.ErrTokenSignatureInvalid
	}
	return nil
}

func (sm *SigningMethod) Sign(signingString string, key any) ([]byte, error) {
	priv, err := sm.key(key)
	if err != nil {
		return nil, err
	}
	return priv.Sign([]byte(signingString))
}
