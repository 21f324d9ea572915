package store

import (
	"errors"
	"fmt"

	"github.com/eigerco/remitchain/internal/remittance"
	"github.com/eigerco/remitchain/pkg/db"
	"github.com/eigerco/remitchain/pkg/serialization/codec/jam"
)

// Remittances maps identifiers to their immutable records.
type Remittances struct {
	db db.Reader
}

func NewRemittances(db db.Reader) *Remittances {
	return &Remittances{db: db}
}

func (r *Remittances) Contains(id remittance.ID) (bool, error) {
	ok, err := r.db.Has(makeKey(prefixRemittance, id[:]))
	if err != nil {
		return false, fmt.Errorf("lookup remittance: %w", err)
	}
	return ok, nil
}

// Get returns remittance.ErrRemittanceNotFound for unknown identifiers.
func (r *Remittances) Get(id remittance.ID) (remittance.Record, error) {
	val, err := r.db.Get(makeKey(prefixRemittance, id[:]))
	if errors.Is(err, db.ErrNotFound) {
		return remittance.Record{}, remittance.ErrRemittanceNotFound
	}
	if err != nil {
		return remittance.Record{}, fmt.Errorf("get remittance: %w", err)
	}

	var record remittance.Record
	if err := jam.Unmarshal(val, &record); err != nil {
		return remittance.Record{}, fmt.Errorf("unmarshal remittance %s: %w", id, err)
	}
	return record, nil
}

// Insert writes record at id, replacing any existing entry. Rejecting
// collisions is up to the caller.
func (r *Remittances) Insert(w db.Writer, id remittance.ID, record remittance.Record) error {
	recordBytes, err := jam.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal remittance: %w", err)
	}
	if err := w.Put(makeKey(prefixRemittance, id[:]), recordBytes); err != nil {
		return fmt.Errorf("store remittance: %w", err)
	}
	return nil
}
