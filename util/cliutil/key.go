package cliutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bluesky-social/jose/eckey"
)

// Loads a key from PEM or JWK JSON on disk, on the default backend.
func LoadKeyFromFile(fpath, algorithm string) (*eckey.ECKey, error) {
	kb, err := os.ReadFile(fpath)
	if err != nil {
		return nil, err
	}
	key, err := eckey.New(kb, algorithm)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fpath, err)
	}
	return key, nil
}

// Generates a secret key and saves it to disk, as PEM or (format "jwk") as JWK JSON with the key thumbprint as "kid".
func GenerateKeyToFile(fname, algorithm, format string) (*eckey.ECKey, error) {
	key, err := eckey.Generate(algorithm)
	if err != nil {
		return nil, err
	}

	buf, err := EncodeKey(key, format)
	if err != nil {
		return nil, err
	}

	// ensure data directory exists; won't error if it does
	if err := os.MkdirAll(filepath.Dir(fname), 0755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(fname, buf, 0600); err != nil {
		return nil, err
	}
	return key, nil
}

// EncodeKey serializes a key as "pem" or "jwk" (indented JSON, with "kid" and "alg" set).
func EncodeKey(key *eckey.ECKey, format string) ([]byte, error) {
	switch format {
	case "", "pem":
		return key.ToPEM()
	case "jwk":
		j, err := key.JWK()
		if err != nil {
			return nil, err
		}
		if j.KeyID, err = key.Thumbprint(); err != nil {
			return nil, err
		}
		j.Algorithm = key.Algorithm().Name
		buf, err := json.MarshalIndent(j, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal key into JSON: %w", err)
		}
		return append(buf, '\n'), nil
	}
	return nil, fmt.Errorf("unknown key format: %s", format)
}
