package badger

import (
	"sync"

	"github.com/poiesic/stash/storage"
)

// The registry tracks every open Backend per database identity so that
// several DB handles in one process can share a connection, and so Drop can
// tell whether other handles still hold the database open. The identity key
// is the on-disk path, or a synthetic key for in-memory databases.

type sharedConn struct {
	backend *Backend
	refs    int
}

var (
	registryMu sync.Mutex
	registry   = make(map[string]*sharedConn)
)

// acquireBackend returns the shared backend for key, opening it on first use.
func acquireBackend(key, path string, inMemory bool) (*Backend, error) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if conn, ok := registry[key]; ok {
		conn.refs++
		return conn.backend, nil
	}

	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}
	registry[key] = &sharedConn{backend: backend, refs: 1}
	return backend, nil
}

// releaseBackend drops one reference, closing the backend with the last one.
func releaseBackend(key string) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	conn, ok := registry[key]
	if !ok {
		return nil
	}
	conn.refs--
	if conn.refs > 0 {
		return nil
	}
	delete(registry, key)
	return conn.backend.Close()
}

// detachBackend removes the registry entry for a database about to be
// deleted and hands its backend to the caller. Fails with ErrDeleteBlocked
// while any other handle still references it.
func detachBackend(key string) (*Backend, error) {
	registryMu.Lock()
	defer registryMu.Unlock()

	conn, ok := registry[key]
	if !ok {
		return nil, storage.ErrStorageClosed
	}
	if conn.refs > 1 {
		return nil, storage.ErrDeleteBlocked
	}
	delete(registry, key)
	return conn.backend, nil
}
