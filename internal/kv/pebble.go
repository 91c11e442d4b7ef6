package kv

import (
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"
)

// PebbleStore implements Store on PebbleDB. Writes go through the WAL, so
// a snapshot survives a process restart without any explicit flush.
type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(dir string) (*PebbleStore, error) {
	d, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleStore{db: d}, nil
}

func (p *PebbleStore) Get(key string) ([]byte, bool, error) {
	v, closer, err := p.db.Get([]byte(key))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	cp := append([]byte(nil), v...)
	if err := closer.Close(); err != nil {
		return nil, false, err
	}
	return cp, true, nil
}

func (p *PebbleStore) Set(key string, value []byte) error {
	// NoSync: the WAL handles durability, losing the very last write on a
	// hard crash is acceptable for cart state.
	return p.db.Set([]byte(key), value, pebble.NoSync)
}

func (p *PebbleStore) Delete(key string) error {
	return p.db.Delete([]byte(key), pebble.NoSync)
}

func (p *PebbleStore) Close() error { return p.db.Close() }
