package badger

import (
	"bytes"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/eigerco/remitchain/pkg/db"
)

// Iterator walks a read-only snapshot taken when it was created.
type Iterator struct {
	txn     *badger.Txn
	iter    *badger.Iterator
	start   []byte
	end     []byte
	started bool
}

func (b *KVStore) NewIterator(start, end []byte) (db.Iterator, error) {
	if b.isClosed() {
		return nil, db.ErrClosed
	}
	txn := b.db.NewTransaction(false)
	return &Iterator{
		txn:   txn,
		iter:  txn.NewIterator(badger.DefaultIteratorOptions),
		start: clone(start),
		end:   clone(end),
	}, nil
}

func (it *Iterator) Next() bool {
	if !it.started {
		it.started = true
		it.iter.Seek(it.start)
	} else if it.iter.Valid() {
		it.iter.Next()
	}
	return it.Valid()
}

func (it *Iterator) Key() []byte {
	if !it.Valid() {
		return nil
	}
	return it.iter.Item().KeyCopy(nil)
}

func (it *Iterator) Value() ([]byte, error) {
	if !it.Valid() {
		return nil, db.ErrIteratorInvalid
	}
	val, err := it.iter.Item().ValueCopy(nil)
	if err != nil {
		return nil, fmt.Errorf("read iterator value: %w", err)
	}
	return val, nil
}

func (it *Iterator) Valid() bool {
	if !it.started || !it.iter.Valid() {
		return false
	}
	if len(it.end) == 0 {
		return true
	}
	return bytes.Compare(it.iter.Item().Key(), it.end) < 0
}

func (it *Iterator) Close() error {
	it.iter.Close()
	it.txn.Discard()
	return nil
}
