package badger

import (
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"github.com/eigerco/remitchain/pkg/db"
)

// Batch stages writes in a single read-write transaction, so a commit is
// all or nothing.
type Batch struct {
	store *KVStore
	txn   *badger.Txn
	done  atomic.Bool
}

func (b *KVStore) NewBatch() db.Batch {
	return &Batch{
		store: b,
		txn:   b.db.NewTransaction(true),
	}
}

func (b *Batch) Put(key, value []byte) error {
	if b.done.Load() {
		return db.ErrBatchDone
	}
	return b.txn.Set(clone(key), clone(value))
}

func (b *Batch) Delete(key []byte) error {
	if b.done.Load() {
		return db.ErrBatchDone
	}
	return b.txn.Delete(clone(key))
}

func (b *Batch) Commit() error {
	if b.store.isClosed() {
		return db.ErrClosed
	}
	if !b.done.CompareAndSwap(false, true) {
		return db.ErrBatchDone
	}
	return b.txn.Commit()
}

func (b *Batch) Close() error {
	if b.done.CompareAndSwap(false, true) {
		b.txn.Discard()
	}
	return nil
}
