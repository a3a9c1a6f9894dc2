package backend

import (
	"errors"
	"testing"

	"github.com/bluesky-social/jose"
	"github.com/bluesky-social/jose/alg"
	"github.com/bluesky-social/jose/keymaterial"

	"github.com/stretchr/testify/assert"
)

type stubBackend struct {
	name string
}

func (s stubBackend) Name() string {
	return s.name
}

func (s stubBackend) NewKey(m *keymaterial.KeyMaterial, a alg.Algorithm) (Key, error) {
	return nil, errors.New("stub")
}

func (s stubBackend) ParseNative(handle any) (*keymaterial.KeyMaterial, error) {
	return nil, ForeignHandle(s.name, handle)
}

func (s stubBackend) GenerateKey(a alg.Algorithm) (Key, error) {
	return nil, errors.New("stub")
}

func TestRegistry(t *testing.T) {
	assert := assert.New(t)

	Register(stubBackend{name: "zz-stub"})
	Register(stubBackend{name: "aa-stub"})

	b, err := Lookup("zz-stub")
	assert.NoError(err)
	assert.Equal("zz-stub", b.Name())

	names := Names()
	assert.Contains(names, "aa-stub")
	assert.Contains(names, "zz-stub")
	assert.IsIncreasing(names)
	assert.Len(All(), len(names))

	_, err = Lookup("nope")
	assert.True(errors.Is(err, ErrUnknownBackend))
	assert.False(errors.Is(err, jose.ErrJOSE))

	assert.Panics(func() {
		Register(stubBackend{name: "aa-stub"})
	})
}

func TestForeignHandle(t *testing.T) {
	assert := assert.New(t)

	_, err := stubBackend{name: "stub"}.ParseNative("secret")
	assert.True(errors.Is(err, jose.ErrInvalidKeyMaterial))
	assert.Contains(err.Error(), "string")
}
