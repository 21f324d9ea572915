package store

import (
	"errors"
	"fmt"

	"github.com/eigerco/remitchain/internal/remittance"
	"github.com/eigerco/remitchain/pkg/db"
	"github.com/eigerco/remitchain/pkg/serialization/codec/jam"
)

var ErrEntryNotFound = errors.New("journal entry not found")

// Journal is the append-only log of events emitted by successful commands,
// keyed by sequence number.
type Journal struct {
	db db.KVStore
}

func NewJournal(db db.KVStore) *Journal {
	return &Journal{db: db}
}

// Head returns the sequence number the next appended entry will get.
func (j *Journal) Head() (uint64, error) {
	val, err := j.db.Get([]byte{prefixJournalHead})
	if errors.Is(err, db.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get journal head: %w", err)
	}
	head, err := decodeUint64(val)
	if err != nil {
		return 0, fmt.Errorf("decode journal head: %w", err)
	}
	return head, nil
}

// Append writes entry and moves the head past it. entry.Seq must equal the
// current head.
func (j *Journal) Append(w db.Writer, entry remittance.Entry) error {
	entryBytes, err := jam.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}
	if err := w.Put(makeSeqKey(prefixJournalEntry, entry.Seq), entryBytes); err != nil {
		return fmt.Errorf("store journal entry: %w", err)
	}
	if err := w.Put([]byte{prefixJournalHead}, encodeUint64(entry.Seq+1)); err != nil {
		return fmt.Errorf("store journal head: %w", err)
	}
	return nil
}

func (j *Journal) Get(seq uint64) (remittance.Entry, error) {
	val, err := j.db.Get(makeSeqKey(prefixJournalEntry, seq))
	if errors.Is(err, db.ErrNotFound) {
		return remittance.Entry{}, ErrEntryNotFound
	}
	if err != nil {
		return remittance.Entry{}, fmt.Errorf("get journal entry: %w", err)
	}
	return decodeEntry(val)
}

// Range returns up to limit entries starting at sequence from, in order. A
// limit of zero or less returns every remaining entry.
func (j *Journal) Range(from uint64, limit int) ([]remittance.Entry, error) {
	var entries []remittance.Entry
	err := j.Walk(from, func(entry remittance.Entry) error {
		entries = append(entries, entry)
		if limit > 0 && len(entries) >= limit {
			return errStopWalk
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

var errStopWalk = errors.New("stop walk")

// Walk calls fn for every entry from sequence from onwards, in order.
func (j *Journal) Walk(from uint64, fn func(remittance.Entry) error) error {
	iter, err := j.db.NewIterator(makeSeqKey(prefixJournalEntry, from), []byte{prefixJournalEntry + 1})
	if err != nil {
		return fmt.Errorf("create iterator: %w", err)
	}
	defer iter.Close() //nolint:errcheck

	for iter.Next() {
		val, err := iter.Value()
		if err != nil {
			return fmt.Errorf("read journal entry: %w", err)
		}
		entry, err := decodeEntry(val)
		if err != nil {
			return err
		}
		if err := fn(entry); err != nil {
			if errors.Is(err, errStopWalk) {
				return nil
			}
			return err
		}
	}
	return nil
}

func decodeEntry(b []byte) (remittance.Entry, error) {
	var entry remittance.Entry
	if err := jam.Unmarshal(b, &entry); err != nil {
		return remittance.Entry{}, fmt.Errorf("unmarshal journal entry: %w", err)
	}
	return entry, nil
}
