package indexer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/eigerco/remitchain/internal/remittance"
	"github.com/eigerco/remitchain/pkg/db"
	"github.com/eigerco/remitchain/pkg/serialization/codec/jam"
)

var (
	ErrViewNotFound = errors.New("remittance view not found")
	ErrJournalGap   = errors.New("entry is ahead of the indexer cursor")
)

const (
	prefixView byte = iota + 1
	prefixDispute
	prefixCursor
)

// Journal is the source of events to replay.
type Journal interface {
	Walk(from uint64, fn func(remittance.Entry) error) error
}

// Indexer projects journaled events into queryable remittance views. Its
// store is separate from ledger state and can be rebuilt from the journal at
// any time.
type Indexer struct {
	mu      sync.Mutex
	db      db.KVStore
	journal Journal
	log     zerolog.Logger
}

type Option func(*Indexer)

// WithJournal lets Notify fill a gap between the cursor and an incoming
// entry by replaying the missing entries from journal.
func WithJournal(j Journal) Option {
	return func(i *Indexer) {
		i.journal = j
	}
}

func New(kv db.KVStore, log zerolog.Logger, opts ...Option) *Indexer {
	i := &Indexer{db: kv, log: log}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Indexer) Name() string {
	return "indexer"
}

// Notify applies entry. Entries below the cursor were already applied and
// are ignored, so replays are harmless. An entry ahead of the cursor is never
// applied out of order: with a journal the missing entries are replayed first,
// without one ErrJournalGap is returned and the cursor stays put for the next
// CatchUp.
func (i *Indexer) Notify(entry remittance.Entry) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	err := i.apply(entry)
	if !errors.Is(err, ErrJournalGap) || i.journal == nil {
		return err
	}
	i.log.Warn().Err(err).Uint64("seq", entry.Seq).Msg("replaying missed entries")
	return i.catchUp(i.journal)
}

// Cursor returns the sequence number of the next entry the indexer expects.
func (i *Indexer) Cursor() (uint64, error) {
	val, err := i.db.Get([]byte{prefixCursor})
	if errors.Is(err, db.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get cursor: %w", err)
	}
	if len(val) != 8 {
		return 0, fmt.Errorf("corrupt cursor of %d bytes", len(val))
	}
	return binary.LittleEndian.Uint64(val), nil
}

// CatchUp applies every journal entry from the cursor onwards.
func (i *Indexer) CatchUp(journal Journal) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.catchUp(journal)
}

func (i *Indexer) catchUp(journal Journal) error {
	cursor, err := i.Cursor()
	if err != nil {
		return err
	}
	applied := 0
	err = journal.Walk(cursor, func(entry remittance.Entry) error {
		applied++
		return i.apply(entry)
	})
	if err != nil {
		return fmt.Errorf("catch up from %d: %w", cursor, err)
	}
	i.log.Info().Uint64("from", cursor).Int("applied", applied).Msg("indexer caught up")
	return nil
}

// Rebuild drops every view and replays the journal from the start.
func (i *Indexer) Rebuild(journal Journal) error {
	if err := i.reset(); err != nil {
		return err
	}
	return i.CatchUp(journal)
}

func (i *Indexer) reset() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	iter, err := i.db.NewIterator(nil, nil)
	if err != nil {
		return fmt.Errorf("create iterator: %w", err)
	}
	var keys [][]byte
	for iter.Next() {
		keys = append(keys, iter.Key())
	}
	if err := iter.Close(); err != nil {
		return fmt.Errorf("close iterator: %w", err)
	}

	batch := i.db.NewBatch()
	defer batch.Close() //nolint:errcheck
	for _, key := range keys {
		if err := batch.Delete(key); err != nil {
			return fmt.Errorf("delete %x: %w", key, err)
		}
	}
	return batch.Commit()
}

func (i *Indexer) View(id remittance.ID) (View, error) {
	val, err := i.db.Get(makeKey(prefixView, id[:]))
	if errors.Is(err, db.ErrNotFound) {
		return View{}, ErrViewNotFound
	}
	if err != nil {
		return View{}, fmt.Errorf("get view: %w", err)
	}
	var v View
	if err := jam.Unmarshal(val, &v); err != nil {
		return View{}, fmt.Errorf("unmarshal view %s: %w", id, err)
	}
	return v, nil
}

// Disputes returns the disputes opened against id in the order they were
// opened.
func (i *Indexer) Disputes(id remittance.ID) ([]Dispute, error) {
	prefix := makeKey(prefixDispute, id[:])
	iter, err := i.db.NewIterator(prefix, db.PrefixEnd(prefix))
	if err != nil {
		return nil, fmt.Errorf("create iterator: %w", err)
	}
	defer iter.Close() //nolint:errcheck

	var disputes []Dispute
	for iter.Next() {
		val, err := iter.Value()
		if err != nil {
			return nil, fmt.Errorf("read dispute: %w", err)
		}
		var d Dispute
		if err := jam.Unmarshal(val, &d); err != nil {
			return nil, fmt.Errorf("unmarshal dispute: %w", err)
		}
		d.ID = disputeID(d.RemittanceID, d.Seq)
		disputes = append(disputes, d)
	}
	return disputes, nil
}

func (i *Indexer) apply(entry remittance.Entry) error {
	cursor, err := i.Cursor()
	if err != nil {
		return err
	}
	if entry.Seq < cursor {
		return nil
	}
	if entry.Seq > cursor {
		return fmt.Errorf("%w: expected %d, got %d", ErrJournalGap, cursor, entry.Seq)
	}

	batch := i.db.NewBatch()
	defer batch.Close() //nolint:errcheck

	id := entry.Event.RemittanceID()
	switch ev := entry.Event.Value().(type) {
	case remittance.RemittanceSent:
		err = i.putView(batch, View{
			ID:        id,
			Sender:    &ev.Sender,
			Recipient: &ev.Recipient,
			Amount:    ev.Amount,
			AssetID:   ev.AssetID,
			Corridor:  ev.Corridor,
			Status:    StatusSent,
			Block:     entry.Block,
			Seq:       entry.Seq,
		})
	case remittance.CashOutRequested:
		err = i.updateView(batch, id, entry, func(v *View) {
			v.Status = StatusCashOutRequested
			v.CashOutAgent = &ev.Agent
			v.TimeoutAt = &ev.TimeoutAt
		})
	case remittance.CashOutCompleted:
		err = i.updateView(batch, id, entry, func(v *View) {
			v.Status = StatusCompleted
			v.CashOutAgent = &ev.Agent
			v.CompletedAt = &entry.Block
		})
	case remittance.DisputeOpened:
		err = i.putDispute(batch, Dispute{
			RemittanceID: id,
			OpenedBy:     ev.OpenedBy,
			DisputeType:  ev.DisputeType,
			EvidenceHash: ev.EvidenceHash,
			Block:        entry.Block,
			Seq:          entry.Seq,
			Status:       DisputeOpen,
		})
	default:
		err = fmt.Errorf("unknown event %T", ev)
	}
	if err != nil {
		return err
	}

	if err := batch.Put([]byte{prefixCursor}, binary.LittleEndian.AppendUint64(nil, entry.Seq+1)); err != nil {
		return fmt.Errorf("store cursor: %w", err)
	}
	return batch.Commit()
}

// updateView applies fn to the view of id. A view missing its submission is
// started empty.
func (i *Indexer) updateView(w db.Writer, id remittance.ID, entry remittance.Entry, fn func(v *View)) error {
	v, err := i.View(id)
	if errors.Is(err, ErrViewNotFound) {
		v = View{ID: id}
	} else if err != nil {
		return err
	}
	fn(&v)
	v.Block = entry.Block
	v.Seq = entry.Seq
	return i.putView(w, v)
}

func (i *Indexer) putView(w db.Writer, v View) error {
	b, err := jam.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal view: %w", err)
	}
	if err := w.Put(makeKey(prefixView, v.ID[:]), b); err != nil {
		return fmt.Errorf("store view: %w", err)
	}
	return nil
}

func (i *Indexer) putDispute(w db.Writer, d Dispute) error {
	b, err := jam.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal dispute: %w", err)
	}
	key := binary.BigEndian.AppendUint64(makeKey(prefixDispute, d.RemittanceID[:]), d.Seq)
	if err := w.Put(key, b); err != nil {
		return fmt.Errorf("store dispute: %w", err)
	}
	return nil
}

func makeKey(prefix byte, hash []byte) []byte {
	key := make([]byte, 1+len(hash))
	key[0] = prefix
	copy(key[1:], hash)
	return key
}
