package pebble

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/eigerco/remitchain/pkg/db"
)

// KVStore is a db.KVStore backed by pebble. Writes are synced to disk before
// returning.
type KVStore struct {
	db     *pebble.DB
	closed bool
	mu     sync.RWMutex
}

// NewKVStore opens a store on an in-memory filesystem. Contents are lost on
// Close.
func NewKVStore() (*KVStore, error) {
	return open("", &pebble.Options{FS: vfs.NewMem()})
}

// Open opens or creates a store rooted at path.
func Open(path string) (*KVStore, error) {
	opts := &pebble.Options{
		Cache:                       pebble.NewCache(64 * 1024 * 1024), // 64MB
		MemTableSize:                32 * 1024 * 1024,                  // 32MB
		MemTableStopWritesThreshold: 4,
	}
	defer opts.Cache.Unref()
	return open(path, opts)
}

func open(path string, opts *pebble.Options) (*KVStore, error) {
	pdb, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble store: %w", err)
	}
	return &KVStore{db: pdb}, nil
}

func (p *KVStore) Get(key []byte) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, db.ErrClosed
	}

	value, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close() //nolint:errcheck

	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

func (p *KVStore) Has(key []byte) (bool, error) {
	_, err := p.Get(key)
	if errors.Is(err, db.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *KVStore) Put(key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return db.ErrClosed
	}

	return p.db.Set(key, value, pebble.Sync)
}

func (p *KVStore) Delete(key []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return db.ErrClosed
	}

	return p.db.Delete(key, pebble.Sync)
}

func (p *KVStore) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.db.Close()
}

func (p *KVStore) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}
