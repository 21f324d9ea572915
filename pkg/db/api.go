package db

import "errors"

var (
	ErrClosed          = errors.New("kv-store: database is closed")
	ErrNotFound        = errors.New("kv-store: key not found")
	ErrBatchDone       = errors.New("kv-store: batch already committed or closed")
	ErrIteratorInvalid = errors.New("kv-store: iterator is not positioned on a key")
)

// KVStore represents a key-value storage interface providing basic operations
// for data manipulation and iteration.
type KVStore interface {
	Reader
	Writer
	Delete(key []byte) error
	NewBatch() Batch
	NewIterator(start, end []byte) (Iterator, error)
	Close() error
}

// Reader is the read half of a store. Get returns ErrNotFound for absent keys.
type Reader interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
}

type Writer interface {
	Put(key []byte, value []byte) error
}

// Batch represents an atomic batch of operations.
// All operations in a batch are performed atomically.
type Batch interface {
	Writer
	Delete(key []byte) error
	Commit() error
	Close() error
}

// Iterator provides sequential access over a range of key-value pairs in
// ascending key order. The first call to Next positions the iterator on the
// first key. Iterators must be closed after use.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() ([]byte, error)
	Valid() bool
	Close() error
}

// PrefixEnd returns the smallest key greater than every key starting with
// prefix, or nil when no such key exists.
func PrefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
