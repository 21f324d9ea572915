package store

import (
	"errors"
	"fmt"

	"github.com/eigerco/remitchain/internal/crypto"
	"github.com/eigerco/remitchain/pkg/db"
)

// Nonces is the per-sender replay protection counter. Absent senders read as
// zero.
type Nonces struct {
	db db.Reader
}

func NewNonces(db db.Reader) *Nonces {
	return &Nonces{db: db}
}

// CurrentNonce returns the last accepted nonce of sender, or 0.
func (n *Nonces) CurrentNonce(sender crypto.AccountID) (uint64, error) {
	val, err := n.db.Get(makeKey(prefixNonce, sender[:]))
	if errors.Is(err, db.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get nonce: %w", err)
	}
	nonce, err := decodeUint64(val)
	if err != nil {
		return 0, fmt.Errorf("decode nonce of %s: %w", sender, err)
	}
	return nonce, nil
}

// Advance overwrites the counter of sender with nonce. The caller must have
// checked nonce > CurrentNonce(sender).
func (n *Nonces) Advance(w db.Writer, sender crypto.AccountID, nonce uint64) error {
	if err := w.Put(makeKey(prefixNonce, sender[:]), encodeUint64(nonce)); err != nil {
		return fmt.Errorf("store nonce: %w", err)
	}
	return nil
}
