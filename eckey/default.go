package eckey

import (
	"sync"

	"github.com/bluesky-social/jose/backend"
	_ "github.com/bluesky-social/jose/backend/jwxkey"
	"github.com/bluesky-social/jose/backend/native"
	_ "github.com/bluesky-social/jose/backend/portable"
)

var (
	defaultLk   sync.RWMutex
	defaultName = native.Name
)

// SetDefaultBackend selects the backend used by [New] and [Generate]. It is meant to be called once, at startup.
func SetDefaultBackend(name string) error {
	b, err := backend.Lookup(name)
	if err != nil {
		return err
	}
	defaultLk.Lock()
	defaultName = b.Name()
	defaultLk.Unlock()
	logger().Info("selected EC backend", "backend", name)
	return nil
}

func DefaultBackend() backend.Backend {
	defaultLk.RLock()
	name := defaultName
	defaultLk.RUnlock()
	b, err := backend.Lookup(name)
	if err != nil {
		// names are checked when set, and backends never unregister
		panic(err)
	}
	return b
}
