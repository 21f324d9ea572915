package pebble

import (
	"sync/atomic"

	"github.com/cockroachdb/pebble"

	"github.com/eigerco/remitchain/pkg/db"
)

type Batch struct {
	store *KVStore
	batch *pebble.Batch
	done  atomic.Bool
}

func (p *KVStore) NewBatch() db.Batch {
	return &Batch{
		store: p,
		batch: p.db.NewBatch(),
	}
}

func (b *Batch) Put(key, value []byte) error {
	if b.done.Load() {
		return db.ErrBatchDone
	}
	return b.batch.Set(key, value, nil)
}

func (b *Batch) Delete(key []byte) error {
	if b.done.Load() {
		return db.ErrBatchDone
	}
	return b.batch.Delete(key, nil)
}

// Commit applies every staged operation atomically. A batch can be committed
// once; afterwards only Close is allowed.
func (b *Batch) Commit() error {
	if b.done.Load() {
		return db.ErrBatchDone
	}
	if b.store.isClosed() {
		return db.ErrClosed
	}
	if err := b.batch.Commit(pebble.Sync); err != nil {
		return err
	}
	b.done.Store(true)
	return b.batch.Close()
}

func (b *Batch) Close() error {
	if !b.done.CompareAndSwap(false, true) {
		return nil
	}
	return b.batch.Close()
}
