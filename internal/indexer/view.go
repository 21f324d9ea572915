package indexer

import (
	"fmt"

	"github.com/eigerco/remitchain/internal/chaintime"
	"github.com/eigerco/remitchain/internal/crypto"
	"github.com/eigerco/remitchain/internal/remittance"
)

// Status is the lifecycle position of a remittance as seen by the indexer.
// It follows event order and gates nothing on the ledger.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusSent
	StatusCashOutRequested
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusSent:
		return "SENT"
	case StatusCashOutRequested:
		return "CASH_OUT_REQUESTED"
	case StatusCompleted:
		return "COMPLETED"
	default:
		return "UNKNOWN"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for candidate := StatusUnknown; candidate <= StatusCompleted; candidate++ {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

type DisputeStatus uint8

const (
	DisputeOpen DisputeStatus = iota
)

func (s DisputeStatus) MarshalText() ([]byte, error) {
	switch s {
	case DisputeOpen:
		return []byte("OPEN"), nil
	}
	return nil, fmt.Errorf("unknown dispute status %d", s)
}

func (s *DisputeStatus) UnmarshalText(text []byte) error {
	if string(text) != "OPEN" {
		return fmt.Errorf("unknown dispute status %q", text)
	}
	*s = DisputeOpen
	return nil
}

// View is the indexed state of one remittance. Block and Seq locate the
// last event applied to it.
type View struct {
	ID           remittance.ID          `json:"id"`
	Sender       *crypto.AccountID      `json:"sender,omitempty"`
	Recipient    *crypto.AccountID      `json:"recipient,omitempty"`
	Amount       remittance.Amount      `json:"amount"`
	AssetID      remittance.AssetID     `json:"assetId"`
	Corridor     remittance.Corridor    `json:"corridor"`
	Status       Status                 `json:"status"`
	CashOutAgent *crypto.AccountID      `json:"cashOutAgent,omitempty"`
	TimeoutAt    *chaintime.BlockNumber `json:"timeoutAt,omitempty"`
	CompletedAt  *chaintime.BlockNumber `json:"completedAt,omitempty"`
	Block        chaintime.BlockNumber  `json:"block"`
	Seq          uint64                 `json:"seq"`
}

// Dispute is one opened dispute. Disputes accumulate; they are never closed
// by the ledger.
type Dispute struct {
	ID           string                  `json:"id" jam:"-"`
	RemittanceID remittance.ID           `json:"remittanceId"`
	OpenedBy     crypto.AccountID        `json:"openedBy"`
	DisputeType  remittance.DisputeType  `json:"disputeType"`
	EvidenceHash remittance.EvidenceHash `json:"evidenceHash"`
	Block        chaintime.BlockNumber   `json:"block"`
	Seq          uint64                  `json:"seq"`
	Status       DisputeStatus           `json:"status"`
}

func disputeID(id remittance.ID, seq uint64) string {
	return fmt.Sprintf("%s-%d", id, seq)
}
