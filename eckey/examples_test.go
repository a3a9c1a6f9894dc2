package eckey_test

import (
	"errors"
	"fmt"

	"github.com/bluesky-social/jose"
	"github.com/bluesky-social/jose/eckey"
)

func ExampleNew() {
	key, err := eckey.New(map[string]any{
		"kty": "EC",
		"crv": "P-256",
		"x":   "MKBCTNIcKUSDii11ySs3526iDZ8AiTo7Tu6KPAqv7D4",
		"y":   "4Etl6SRW2YiLUrN5vfvVHuhp7x8PxltmWWlbbM4IFyM",
		"kid": "1",
	}, "ES256")
	if err != nil {
		panic("failed to load key")
	}
	fmt.Println(key.IsPublic())

	_, err = key.Sign([]byte("hello world"))
	fmt.Println(errors.Is(err, jose.ErrSigningNotSupported))
	// Output:
	// true
	// true
}

func ExampleGenerate() {
	// create a private key, and corresponding public key
	priv, err := eckey.Generate("ES384")
	if err != nil {
		panic("failed to generate key")
	}
	pub, err := priv.PublicKey()
	if err != nil {
		panic("failed to derive public key")
	}

	// sign a message
	msg := []byte("hello world")
	sig, err := priv.Sign(msg)
	if err != nil {
		panic("failed to sign")
	}

	// verify the message
	if !pub.Verify(msg, sig) {
		fmt.Println("Verification Failed")
	} else {
		fmt.Println("Success!")
	}
	// Output: Success!
}
