package pebble

import (
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/eigerco/remitchain/pkg/db"
)

type Iterator struct {
	iter    *pebble.Iterator
	started bool
}

func (p *KVStore) NewIterator(start, end []byte) (db.Iterator, error) {
	if p.isClosed() {
		return nil, db.ErrClosed
	}
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: start,
		UpperBound: end,
	})
	if err != nil {
		return nil, fmt.Errorf("create iterator: %w", err)
	}
	return &Iterator{iter: iter}, nil
}

func (it *Iterator) Next() bool {
	// The first call positions the iterator at the first key
	if !it.started {
		it.started = true
		return it.iter.First()
	}
	return it.iter.Next()
}

func (it *Iterator) Key() []byte {
	key := it.iter.Key()
	result := make([]byte, len(key))
	copy(result, key)
	return result
}

func (it *Iterator) Value() ([]byte, error) {
	if !it.iter.Valid() {
		return nil, db.ErrIteratorInvalid
	}

	val, err := it.iter.ValueAndErr()
	if err != nil {
		return nil, fmt.Errorf("read iterator value: %w", err)
	}

	result := make([]byte, len(val))
	copy(result, val)
	return result, nil
}

func (it *Iterator) Valid() bool {
	return it.started && it.iter.Valid()
}

func (it *Iterator) Close() error {
	return it.iter.Close()
}
