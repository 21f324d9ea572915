package badger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/eigerco/remitchain/pkg/db"
)

// KVStore is a db.KVStore backed by badger. Every write runs in its own
// read-write transaction.
type KVStore struct {
	db     *badger.DB
	closed bool
	mu     sync.RWMutex
}

// NewKVStore opens an in-memory store. Contents are lost on Close.
func NewKVStore(logger zerolog.Logger) (*KVStore, error) {
	return open(badger.DefaultOptions("").WithInMemory(true), logger)
}

// Open opens or creates a store rooted at path.
func Open(path string, logger zerolog.Logger) (*KVStore, error) {
	return open(badger.DefaultOptions(path).WithSyncWrites(true), logger)
}

func open(opts badger.Options, logger zerolog.Logger) (*KVStore, error) {
	bdb, err := badger.Open(opts.WithLogger(loggerAdapter{logger: logger}))
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return &KVStore{db: bdb}, nil
}

func (b *KVStore) Get(key []byte) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, db.ErrClosed
	}

	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (b *KVStore) Has(key []byte) (bool, error) {
	_, err := b.Get(key)
	if errors.Is(err, db.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (b *KVStore) Put(key, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return db.ErrClosed
	}

	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(clone(key), clone(value))
	})
}

func (b *KVStore) Delete(key []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return db.ErrClosed
	}

	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(clone(key))
	})
}

func (b *KVStore) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}

func (b *KVStore) isClosed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

// badger holds on to keys and values until the transaction commits
func clone(in []byte) []byte {
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

// loggerAdapter routes badger's internal logging through zerolog.
type loggerAdapter struct {
	logger zerolog.Logger
}

func (l loggerAdapter) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}

func (l loggerAdapter) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}

func (l loggerAdapter) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

func (l loggerAdapter) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Msgf(format, args...)
}
