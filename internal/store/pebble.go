package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"
)

// PebbleKV is the default backend: an embedded database in a directory
// shared by every role process on the machine.
type PebbleKV struct {
	db *pebble.DB
}

func OpenPebble(dir string) (*PebbleKV, error) {
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleKV{db: db}, nil
}

func (p *PebbleKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, closer, err := p.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pebble get %s: %w", key, err)
	}
	out := make([]byte, len(v))
	copy(out, v)
	if err := closer.Close(); err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (p *PebbleKV) Set(_ context.Context, key string, value []byte) error {
	if err := p.db.Set([]byte(key), value, pebble.Sync); err != nil {
		return fmt.Errorf("pebble set %s: %w", key, err)
	}
	return nil
}

func (p *PebbleKV) Delete(_ context.Context, key string) error {
	if err := p.db.Delete([]byte(key), pebble.Sync); err != nil {
		return fmt.Errorf("pebble delete %s: %w", key, err)
	}
	return nil
}

func (p *PebbleKV) Close() error { return p.db.Close() }
